// Package engine invokes one of two interchangeable OCR engines per page
// image and returns a raw, engine-specific response in a common shape.
//
// Two variants share one contract:
//   - Local (Tesseract via gosseract): plain recognized text, no confidence
//     data. Missing runtime or language data is a fatal precondition.
//   - Cloud (Google Cloud Vision): text plus per-line and per-word confidence
//     scores. Invalid credentials are a fatal precondition; rate limiting is
//     transient and retried by the caller.
//
// The cloud variant is the only component that performs network I/O; the
// local variant is the only component that drives an external OCR runtime.
// Neither mutates batch state.
package engine

import (
	"context"
	"fmt"
)

// Kind identifies one of the two supported OCR engines.
type Kind string

const (
	Local Kind = "local"
	Cloud Kind = "cloud"
)

// ParseKind converts a config string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "local":
		return Local, nil
	case "cloud":
		return Cloud, nil
	}
	return "", fmt.Errorf("unknown engine %q (want \"local\" or \"cloud\")", s)
}

// RawSpan is one recognized line or word. Confidence is a 0-100 percentage
// and is nil for engines that do not score their output; nil is semantically
// distinct from a defined low or high score and must never be defaulted.
type RawSpan struct {
	Text       string
	Confidence *float64
}

// RawResponse is the common shape both engines produce for one page image.
// Lines and Words are in engine-reported order. The local engine fills only
// Text; the cloud engine fills all three.
type RawResponse struct {
	Kind  Kind
	Text  string
	Lines []RawSpan
	Words []RawSpan
}

// Invoker sends one page image to an OCR engine.
type Invoker interface {
	// Kind identifies the engine variant.
	Kind() Kind

	// CheckReady verifies the engine can function at all. It is run once
	// before any page is attempted; an error here is a fatal precondition
	// that aborts the batch.
	CheckReady(ctx context.Context) error

	// Invoke runs OCR on a single page image and returns the raw response.
	// Errors are classified by IsFatal and IsThrottled; everything else is
	// a non-fatal per-page failure.
	Invoke(ctx context.Context, imagePath string) (*RawResponse, error)

	// MinDPI is the minimum rasterization resolution this engine needs.
	MinDPI() int

	// Close releases engine resources.
	Close() error
}

// Pct is a convenience for building optional confidence values.
func Pct(v float64) *float64 { return &v }
