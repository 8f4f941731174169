// Package review renders a completed or partial Batch Result into the
// structured side-by-side artifact a human reviewer corrects by hand.
//
// Rendering is deterministic: the same persisted Batch Result always
// produces a structurally identical artifact, so artifacts are regenerable
// at any time and never separately mutated.
package review

import (
	"fmt"

	"scanreview/internal/result"
)

// Page confidence buckets used in the summary.
const (
	highConfidenceFloor   = 85.0
	mediumConfidenceFloor = 70.0
)

// Unit pairs one page image with its extracted text (or failure marker)
// for side-by-side review.
type Unit struct {
	PageNumber     int           `json:"page_number"`
	SourceImageRef string        `json:"source_image_ref"`
	Succeeded      bool          `json:"succeeded"`
	Text           string        `json:"text,omitempty"`
	Confidence     *float64      `json:"confidence,omitempty"`
	FlaggedWords   []result.Span `json:"flagged_words,omitempty"`
	ErrorDetail    string        `json:"error_detail,omitempty"`
}

// Summary is the trailing statistics section of the artifact.
type Summary struct {
	DocumentName      string   `json:"document_name"`
	RunID             string   `json:"run_id"`
	EngineUsed        string   `json:"engine_used"`
	State             string   `json:"state"`
	Incomplete        bool     `json:"incomplete"`
	PageCount         int      `json:"page_count"`
	ProcessedCount    int      `json:"processed_count"`
	SucceededCount    int      `json:"succeeded_count"`
	FailedCount       int      `json:"failed_count"`
	AverageConfidence *float64 `json:"average_confidence,omitempty"`

	// Page counts by confidence bucket; only pages that report a
	// confidence are counted.
	HighConfidencePages   int `json:"high_confidence_pages"`
	MediumConfidencePages int `json:"medium_confidence_pages"`
	LowConfidencePages    int `json:"low_confidence_pages"`
}

// AverageConfidenceLabel formats the average for human output.
func (s Summary) AverageConfidenceLabel() string {
	if s.AverageConfidence == nil {
		return "not available"
	}
	return fmt.Sprintf("%.1f%%", *s.AverageConfidence)
}

// Artifact is the structured review document: one unit per page in
// ascending page order, then a summary.
type Artifact struct {
	Units   []Unit  `json:"units"`
	Summary Summary `json:"summary"`
}

// Render builds the review artifact from a Batch Result. Aborted and
// partially failed batches render too; an aborted batch is visibly marked
// incomplete so partial work is never silently lost.
func Render(b *result.BatchResult) *Artifact {
	a := &Artifact{
		Summary: Summary{
			DocumentName:      b.DocumentName,
			RunID:             b.RunID,
			EngineUsed:        b.EngineUsed,
			State:             string(b.State),
			Incomplete:        b.State == result.Aborted || len(b.Results) < b.PageCount,
			PageCount:         b.PageCount,
			ProcessedCount:    len(b.Results),
			SucceededCount:    b.SucceededCount(),
			FailedCount:       b.FailedCount(),
			AverageConfidence: b.AverageConfidence(),
		},
	}

	for _, pr := range b.Results {
		unit := Unit{
			PageNumber:     pr.PageNumber,
			SourceImageRef: pr.SourceImageRef,
			Succeeded:      pr.Succeeded,
		}
		if pr.Succeeded {
			unit.Text = pr.RawText
			unit.Confidence = pr.OverallConf
			unit.FlaggedWords = pr.FlaggedWords
			if pr.OverallConf != nil {
				switch {
				case *pr.OverallConf >= highConfidenceFloor:
					a.Summary.HighConfidencePages++
				case *pr.OverallConf >= mediumConfidenceFloor:
					a.Summary.MediumConfidencePages++
				default:
					a.Summary.LowConfidencePages++
				}
			}
		} else {
			unit.ErrorDetail = pr.ErrorDetail
		}
		a.Units = append(a.Units, unit)
	}

	return a
}
