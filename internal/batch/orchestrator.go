// Package batch orchestrates per-page OCR across a document: it invokes the
// engine, normalizes and gates each page, isolates per-page failures, and
// accumulates an ordered, incrementally persisted Batch Result.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"

	"scanreview/internal/engine"
	"scanreview/internal/logger"
	"scanreview/internal/pages"
	"scanreview/internal/result"
)

// Config holds the per-run settings the orchestrator owns for the batch's
// lifetime.
type Config struct {
	DocumentName string
	Pages        []pages.Page

	// Quality gate threshold (0-100)
	ConfidenceThreshold float64

	// Throttling retries: attempt count and base delay for the
	// exponential backoff
	MaxRetries     uint
	RetryBaseDelay time.Duration

	// Bounded parallel page invocation
	Workers int
}

func (c Config) validate() error {
	if c.DocumentName == "" {
		return fmt.Errorf("document name is required")
	}
	if len(c.Pages) == 0 {
		return fmt.Errorf("batch has no pages")
	}
	for i, p := range c.Pages {
		if p.Number != i+1 {
			return fmt.Errorf("pages are not contiguous from 1: index %d has page number %d", i, p.Number)
		}
	}
	if c.MaxRetries == 0 {
		return fmt.Errorf("at least one invocation attempt is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("at least one worker is required")
	}
	return nil
}

// Orchestrator runs one batch. It is single-use: terminal states are final
// and a new Orchestrator must be created to retry.
type Orchestrator struct {
	invoker engine.Invoker
	store   *Store // optional; nil disables persistence
	cfg     Config
	seed    *result.BatchResult
	batch   *result.BatchResult
	log     zerolog.Logger
}

// New creates an orchestrator for one document run. store may be nil when
// persistence is not wanted (tests, dry runs).
func New(invoker engine.Invoker, store *Store, runID string, cfg Config) *Orchestrator {
	return &Orchestrator{
		invoker: invoker,
		store:   store,
		cfg:     cfg,
		batch: result.NewBatchResult(runID, cfg.DocumentName,
			string(invoker.Kind()), len(cfg.Pages)),
		log: logger.WithDocument("batch", cfg.DocumentName),
	}
}

// Seed supplies a previously persisted partial Batch Result. Pages the seed
// marks succeeded are reused without re-invoking the engine; failed or
// missing pages are re-attempted.
func (o *Orchestrator) Seed(prev *result.BatchResult) {
	o.seed = prev
}

// pageOutcome is one worker's report for one page.
type pageOutcome struct {
	pageNumber int
	pr         result.PageResult
	fatal      error
}

// Run executes the batch and returns the frozen Batch Result. The result is
// non-nil even on error: a fatal precondition yields an Aborted batch with
// the pages processed so far (possibly none), which still renders.
func (o *Orchestrator) Run(ctx context.Context) (*result.BatchResult, error) {
	if o.batch.State != result.NotStarted {
		return o.batch, fmt.Errorf("batch %s already ran (state %s)", o.batch.RunID, o.batch.State)
	}
	if err := o.cfg.validate(); err != nil {
		return o.batch, fmt.Errorf("invalid batch config: %w", err)
	}

	o.batch.State = result.Running
	o.batch.StartedAt = time.Now().UTC()

	// Fatal precondition check happens once, before any page.
	if err := o.invoker.CheckReady(ctx); err != nil {
		o.log.Error().Err(err).Msg("engine precondition failed; aborting batch")
		o.finish(true)
		return o.batch, err
	}

	if o.store != nil {
		if err := o.store.Init(o.batch); err != nil {
			o.finish(true)
			return o.batch, err
		}
	}

	o.log.Info().
		Str("run_id", o.batch.RunID).
		Str("engine", o.batch.EngineUsed).
		Int("pages", o.batch.PageCount).
		Int("workers", o.cfg.Workers).
		Msg("batch started")

	fatalErr := o.processPages(ctx)
	if fatalErr != nil {
		o.log.Error().Err(fatalErr).
			Int("pages_committed", len(o.batch.Results)).
			Msg("fatal engine failure; batch aborted")
		o.finish(true)
		return o.batch, fatalErr
	}

	o.finish(false)
	avg := "not available"
	if v := o.batch.AverageConfidence(); v != nil {
		avg = fmt.Sprintf("%.1f%%", *v)
	}
	o.log.Info().
		Str("state", string(o.batch.State)).
		Int("succeeded", o.batch.SucceededCount()).
		Int("failed", o.batch.FailedCount()).
		Str("average_confidence", avg).
		Msg("batch finished")
	return o.batch, nil
}

// processPages fans page invocations out to a bounded worker set and
// commits outcomes strictly in page order, independent of completion
// order. Returns the fatal error, if any; after a fatal outcome nothing
// further is appended.
func (o *Orchestrator) processPages(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make(chan pageOutcome, len(o.cfg.Pages))
	sem := make(chan struct{}, o.cfg.Workers)

	// Feed pages to the bounded worker set. Every page yields exactly one
	// outcome; pages still queued when the run is cancelled yield a
	// never-attempted failure instead of an invocation.
	go func() {
		for _, page := range o.cfg.Pages {
			select {
			case <-runCtx.Done():
				outcomes <- pageOutcome{
					pageNumber: page.Number,
					pr: result.Failed(page.Number, page.ImagePath,
						"batch cancelled before page was attempted"),
				}
				continue
			case sem <- struct{}{}: // acquire
			}
			go func(page pages.Page) {
				defer func() { <-sem }() // release
				outcomes <- o.processPage(runCtx, page)
			}(page)
		}
	}()

	var fatalErr error
	pending := make(map[int]result.PageResult)
	next := 1

	for received := 0; received < len(o.cfg.Pages); received++ {
		out := <-outcomes
		if out.fatal != nil {
			if fatalErr == nil {
				fatalErr = out.fatal
				cancel() // stop in-flight and queued invocations
			}
			continue
		}
		if fatalErr != nil {
			continue // frozen: no appends after the fatal transition
		}

		// Append is single-writer and strictly ordered by page number.
		pending[out.pageNumber] = out.pr
		for {
			pr, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			if err := o.commit(pr); err != nil {
				fatalErr = err
				cancel()
				break
			}
			next++
		}
	}

	return fatalErr
}

// commit appends one page result to the batch and the persistent store.
func (o *Orchestrator) commit(pr result.PageResult) error {
	if err := o.batch.Append(pr); err != nil {
		return fmt.Errorf("batch invariant violation: %w", err)
	}
	if o.store != nil {
		if err := o.store.AppendPage(pr); err != nil {
			return err
		}
	}
	return nil
}

// processPage produces exactly one outcome for one page: a reused seed
// result, a normalized and gated engine response, or an isolated failure.
func (o *Orchestrator) processPage(ctx context.Context, page pages.Page) pageOutcome {
	if o.seed != nil {
		if prev, ok := o.seed.Page(page.Number); ok && prev.Succeeded {
			o.log.Debug().Int("page", page.Number).Msg("reusing succeeded page from previous run")
			return pageOutcome{pageNumber: page.Number, pr: prev}
		}
	}

	raw, err := o.invokeWithRetry(ctx, page)
	if err != nil {
		if engine.IsFatal(err) {
			return pageOutcome{pageNumber: page.Number, fatal: err}
		}
		o.log.Warn().Err(err).Int("page", page.Number).Msg("page failed; batch continues")
		return pageOutcome{
			pageNumber: page.Number,
			pr:         result.Failed(page.Number, page.ImagePath, err.Error()),
		}
	}

	pr := result.Normalize(raw, page.Number, page.ImagePath)
	pr = result.Gate(pr, o.cfg.ConfidenceThreshold)

	if pr.Succeeded && !pr.HasConfidence() {
		// The gate no-ops without confidence data; surface that rather
		// than staying truly silent.
		o.log.Debug().Int("page", page.Number).
			Msg("no confidence data reported; quality gate skipped")
	}

	o.log.Info().
		Int("page", page.Number).
		Bool("succeeded", pr.Succeeded).
		Int("flagged_words", len(pr.FlaggedWords)).
		Msg("page processed")
	return pageOutcome{pageNumber: page.Number, pr: pr}
}

// invokeWithRetry invokes the engine once, retrying throttled cloud calls
// with bounded exponential backoff. Exhausting the retry budget downgrades
// the throttling error to a normal per-page failure.
func (o *Orchestrator) invokeWithRetry(ctx context.Context, page pages.Page) (*engine.RawResponse, error) {
	var raw *engine.RawResponse
	err := retry.Do(
		func() error {
			r, err := o.invoker.Invoke(ctx, page.ImagePath)
			if err != nil {
				return err
			}
			raw = r
			return nil
		},
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool { return engine.IsThrottled(err) }),
		retry.Attempts(o.cfg.MaxRetries),
		retry.Delay(o.cfg.RetryBaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			o.log.Warn().
				Int("page", page.Number).
				Uint("attempt", attempt+1).
				Err(err).
				Msg("throttled; backing off")
		}),
	)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (o *Orchestrator) finish(aborted bool) {
	o.batch.Finish(aborted)
	if o.store != nil {
		if err := o.store.Finalize(o.batch); err != nil {
			o.log.Error().Err(err).Msg("failed to finalize batch store")
		}
	}
}
