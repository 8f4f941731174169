// Package result defines the canonical OCR result model shared by both
// engines, plus the normalization and quality-gating steps that produce it.
//
// Confidence values are optional 0-100 percentages. A nil confidence means
// the engine reported no score for that span; it is never conflated with a
// defined low or high value.
package result

import (
	"fmt"
)

// Span is one recognized line or word with its optional confidence.
type Span struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// PageResult is the canonical OCR outcome for one page.
//
// Exactly one of the two shapes holds: a succeeded result with text fields
// populated and no error detail, or a failed result with an error detail
// and empty text fields.
type PageResult struct {
	PageNumber     int      `json:"page_number"`
	SourceImageRef string   `json:"source_image_ref"`
	RawText        string   `json:"raw_text"`
	Lines          []Span   `json:"lines,omitempty"`
	Words          []Span   `json:"words,omitempty"`
	OverallConf    *float64 `json:"overall_confidence,omitempty"`
	Succeeded      bool     `json:"succeeded"`
	ErrorDetail    string   `json:"error_detail,omitempty"`
	FlaggedWords   []Span   `json:"flagged_words,omitempty"`
}

// Failed builds a failed PageResult with the given human-readable detail.
func Failed(pageNumber int, imageRef, detail string) PageResult {
	if detail == "" {
		detail = "unknown processing failure"
	}
	return PageResult{
		PageNumber:     pageNumber,
		SourceImageRef: imageRef,
		Succeeded:      false,
		ErrorDetail:    detail,
	}
}

// Validate checks the success/failure mutual-exclusivity invariant.
func (p PageResult) Validate() error {
	if p.PageNumber < 1 {
		return fmt.Errorf("page %d: page numbers start at 1", p.PageNumber)
	}
	if p.Succeeded {
		if p.ErrorDetail != "" {
			return fmt.Errorf("page %d: succeeded result carries error detail %q", p.PageNumber, p.ErrorDetail)
		}
		return nil
	}
	if p.ErrorDetail == "" {
		return fmt.Errorf("page %d: failed result has no error detail", p.PageNumber)
	}
	if p.RawText != "" || len(p.Lines) > 0 || len(p.Words) > 0 || len(p.FlaggedWords) > 0 {
		return fmt.Errorf("page %d: failed result carries text fields", p.PageNumber)
	}
	return nil
}

// HasConfidence reports whether any confidence data is present on the page.
// Pages from the local engine never have any; the quality gate is a no-op
// for them and callers log that explicitly.
func (p PageResult) HasConfidence() bool {
	if p.OverallConf != nil {
		return true
	}
	for _, w := range p.Words {
		if w.Confidence != nil {
			return true
		}
	}
	for _, l := range p.Lines {
		if l.Confidence != nil {
			return true
		}
	}
	return false
}

// clone returns a deep copy so gating never aliases the input.
func (p PageResult) clone() PageResult {
	out := p
	out.Lines = cloneSpans(p.Lines)
	out.Words = cloneSpans(p.Words)
	out.FlaggedWords = cloneSpans(p.FlaggedWords)
	if p.OverallConf != nil {
		v := *p.OverallConf
		out.OverallConf = &v
	}
	return out
}

func cloneSpans(spans []Span) []Span {
	if spans == nil {
		return nil
	}
	out := make([]Span, len(spans))
	for i, s := range spans {
		out[i] = Span{Text: s.Text}
		if s.Confidence != nil {
			v := *s.Confidence
			out[i].Confidence = &v
		}
	}
	return out
}
