package batch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"scanreview/internal/result"
)

const (
	headerFile = "batch.json"
	pagesFile  = "pages.jsonl"
)

// Store persists a Batch Result incrementally: a header document plus one
// appended JSON line per committed page. A process interruption therefore
// loses at most the in-flight page, and a partial batch can be reloaded to
// resume the run or to regenerate the review artifact.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// header is the batch document without its page results, which live in
// the append-only page log.
type header struct {
	RunID        string       `json:"run_id"`
	DocumentName string       `json:"document_name"`
	EngineUsed   string       `json:"engine_used"`
	PageCount    int          `json:"page_count"`
	State        result.State `json:"state"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
}

// Init writes the batch header and truncates the page log. Called at
// orchestration start, including on resume: preserved pages are re-committed
// in order, so the rewritten log stays contiguous.
func (s *Store) Init(b *result.BatchResult) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create batch directory: %w", err)
	}
	if err := s.writeHeader(b); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.dir, pagesFile), nil, 0o644); err != nil {
		return fmt.Errorf("failed to reset page log: %w", err)
	}
	return nil
}

// AppendPage appends one committed page result to the page log.
func (s *Store) AppendPage(pr result.PageResult) error {
	f, err := os.OpenFile(filepath.Join(s.dir, pagesFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open page log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(pr)
	if err != nil {
		return fmt.Errorf("failed to encode page %d: %w", pr.PageNumber, err)
	}
	line = append(line, '\n')
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("failed to append page %d: %w", pr.PageNumber, err)
	}
	return nil
}

// Finalize rewrites the header with the batch's terminal state.
func (s *Store) Finalize(b *result.BatchResult) error {
	return s.writeHeader(b)
}

func (s *Store) writeHeader(b *result.BatchResult) error {
	h := header{
		RunID:        b.RunID,
		DocumentName: b.DocumentName,
		EngineUsed:   b.EngineUsed,
		PageCount:    b.PageCount,
		State:        b.State,
		StartedAt:    b.StartedAt,
	}
	h.FinishedAt = b.FinishedAt
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode batch header: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, headerFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write batch header: %w", err)
	}
	return nil
}

// Load reconstructs a Batch Result from a store directory. Duplicate or
// out-of-order page numbers in the log are an invariant violation.
func Load(dir string) (*result.BatchResult, error) {
	data, err := os.ReadFile(filepath.Join(dir, headerFile))
	if err != nil {
		return nil, fmt.Errorf("no batch result found in %s: %w", dir, err)
	}
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("corrupt batch header in %s: %w", dir, err)
	}

	b := &result.BatchResult{
		RunID:        h.RunID,
		DocumentName: h.DocumentName,
		EngineUsed:   h.EngineUsed,
		PageCount:    h.PageCount,
		State:        h.State,
		StartedAt:    h.StartedAt,
	}
	b.FinishedAt = h.FinishedAt

	f, err := os.Open(filepath.Join(dir, pagesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return b, nil
		}
		return nil, fmt.Errorf("failed to open page log: %w", err)
	}
	defer f.Close()

	seen := make(map[int]bool)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var pr result.PageResult
		if err := json.Unmarshal(line, &pr); err != nil {
			return nil, fmt.Errorf("corrupt page log line %d: %w", lineNum, err)
		}
		if seen[pr.PageNumber] {
			return nil, fmt.Errorf("duplicate page number %d in page log", pr.PageNumber)
		}
		seen[pr.PageNumber] = true
		b.Results = append(b.Results, pr)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read page log: %w", err)
	}

	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("persisted batch violates invariants: %w", err)
	}
	return b, nil
}
