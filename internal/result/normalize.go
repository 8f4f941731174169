package result

import (
	"strings"

	"scanreview/internal/engine"
)

// Normalize maps an engine's raw response into the canonical PageResult.
//
// It is a total function: a nil or malformed raw response becomes a failed
// result with an explanatory detail, never an error. Confidence values are
// copied verbatim from the raw response; absence stays absent.
func Normalize(raw *engine.RawResponse, pageNumber int, imageRef string) PageResult {
	if raw == nil {
		return Failed(pageNumber, imageRef, "engine returned no response")
	}

	pr := PageResult{
		PageNumber:     pageNumber,
		SourceImageRef: imageRef,
		Succeeded:      true,
	}

	// Text is the engine-ordered lines joined by newline; engines that
	// report no line structure supply the text directly.
	if len(raw.Lines) > 0 {
		texts := make([]string, 0, len(raw.Lines))
		for _, line := range raw.Lines {
			texts = append(texts, line.Text)
		}
		pr.RawText = strings.Join(texts, "\n")
	} else {
		pr.RawText = raw.Text
	}

	pr.Lines = copySpans(raw.Lines)
	pr.Words = copySpans(raw.Words)
	pr.OverallConf = overallConfidence(raw.Lines)

	return pr
}

// overallConfidence is the mean of the line confidences that are present.
// Nil when the engine scored nothing.
func overallConfidence(lines []engine.RawSpan) *float64 {
	var sum float64
	var n int
	for _, line := range lines {
		if line.Confidence != nil {
			sum += *line.Confidence
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

func copySpans(raw []engine.RawSpan) []Span {
	if len(raw) == 0 {
		return nil
	}
	out := make([]Span, len(raw))
	for i, s := range raw {
		out[i] = Span{Text: s.Text}
		if s.Confidence != nil {
			v := *s.Confidence
			out[i].Confidence = &v
		}
	}
	return out
}
