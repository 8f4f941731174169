package result

// DefaultThreshold is the confidence percentage below which a word is
// flagged for manual review.
const DefaultThreshold = 80.0

// Gate returns a copy of pr with FlaggedWords populated: every word whose
// confidence is present and strictly below threshold.
//
// Pure and deterministic. For pages without confidence data (the local
// engine reports none) the gate is a documented no-op producing an empty
// flag set; callers that want visibility should check HasConfidence and
// log the skip, since an empty set is indistinguishable from "all passed".
func Gate(pr PageResult, threshold float64) PageResult {
	out := pr.clone()
	out.FlaggedWords = nil
	if !pr.Succeeded {
		return out
	}
	for _, w := range out.Words {
		if w.Confidence != nil && *w.Confidence < threshold {
			flagged := Span{Text: w.Text}
			v := *w.Confidence
			flagged.Confidence = &v
			out.FlaggedWords = append(out.FlaggedWords, flagged)
		}
	}
	return out
}
