package result

import (
	"fmt"
	"time"
)

// State is the batch lifecycle state.
type State string

const (
	NotStarted            State = "not_started"
	Running               State = "running"
	Completed             State = "completed"
	CompletedWithFailures State = "completed_with_failures"
	Aborted               State = "aborted"
)

// Terminal reports whether the state is final. A new batch must be started
// to retry a terminal one.
func (s State) Terminal() bool {
	switch s {
	case Completed, CompletedWithFailures, Aborted:
		return true
	}
	return false
}

// BatchResult aggregates the Page Results for one document run.
//
// Results are append-only with a single writer and are kept in strictly
// increasing, contiguous page order. Once the batch reaches a terminal
// state the value is treated as immutable.
type BatchResult struct {
	RunID        string       `json:"run_id"`
	DocumentName string       `json:"document_name"`
	EngineUsed   string       `json:"engine_used"`
	PageCount    int          `json:"page_count"`
	State        State        `json:"state"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
	Results      []PageResult `json:"results"`
}

// NewBatchResult creates an empty batch in NotStarted state.
func NewBatchResult(runID, documentName, engineUsed string, pageCount int) *BatchResult {
	return &BatchResult{
		RunID:        runID,
		DocumentName: documentName,
		EngineUsed:   engineUsed,
		PageCount:    pageCount,
		State:        NotStarted,
	}
}

// Append adds one page result. Out-of-order or duplicate page numbers are a
// batch-level invariant violation and surface to the caller.
func (b *BatchResult) Append(pr PageResult) error {
	if b.State.Terminal() {
		return fmt.Errorf("batch %s is %s; no further appends", b.RunID, b.State)
	}
	if err := pr.Validate(); err != nil {
		return err
	}
	want := len(b.Results) + 1
	if pr.PageNumber != want {
		return fmt.Errorf("page %d appended out of order (expected page %d)", pr.PageNumber, want)
	}
	if pr.PageNumber > b.PageCount {
		return fmt.Errorf("page %d exceeds page count %d", pr.PageNumber, b.PageCount)
	}
	b.Results = append(b.Results, pr)
	return nil
}

// SucceededCount is derived from Results.
func (b *BatchResult) SucceededCount() int {
	n := 0
	for _, r := range b.Results {
		if r.Succeeded {
			n++
		}
	}
	return n
}

// FailedCount is derived from Results.
func (b *BatchResult) FailedCount() int {
	return len(b.Results) - b.SucceededCount()
}

// AverageConfidence is the mean overall confidence over pages that report
// one. Nil when no page reports confidence: "no data" is not zero.
func (b *BatchResult) AverageConfidence() *float64 {
	var sum float64
	var n int
	for _, r := range b.Results {
		if r.OverallConf != nil {
			sum += *r.OverallConf
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// Page returns the result for a page number, if present.
func (b *BatchResult) Page(pageNumber int) (PageResult, bool) {
	idx := pageNumber - 1
	if idx < 0 || idx >= len(b.Results) {
		return PageResult{}, false
	}
	return b.Results[idx], true
}

// Validate checks batch-level invariants: contiguous unique page numbers
// starting at 1, each page result internally consistent.
func (b *BatchResult) Validate() error {
	if len(b.Results) > b.PageCount {
		return fmt.Errorf("batch has %d results for %d pages", len(b.Results), b.PageCount)
	}
	for i, r := range b.Results {
		if r.PageNumber != i+1 {
			return fmt.Errorf("result at index %d has page number %d", i, r.PageNumber)
		}
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Finish transitions the batch to its terminal state based on outcomes.
func (b *BatchResult) Finish(aborted bool) {
	now := time.Now().UTC()
	b.FinishedAt = &now
	switch {
	case aborted:
		b.State = Aborted
	case b.FailedCount() > 0:
		b.State = CompletedWithFailures
	default:
		b.State = Completed
	}
}
