package engine

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"

	"scanreview/internal/logger"
)

// Local engine rasterization floor. Handwritten material needs at least
// 300 DPI for usable recognition.
const tesseractMinDPI = 300

// TesseractInvoker implements Invoker using the Tesseract runtime via
// gosseract. Tesseract reports no usable confidence data through this
// path, so raw responses carry text only.
type TesseractInvoker struct {
	languages string
	log       zerolog.Logger
}

// NewTesseractInvoker creates a local engine invoker. languages is a
// Tesseract language string such as "eng" or "eng+deu".
func NewTesseractInvoker(languages string) *TesseractInvoker {
	if languages == "" {
		languages = "eng"
	}
	return &TesseractInvoker{
		languages: languages,
		log:       logger.WithComponent("engine.tesseract"),
	}
}

func (t *TesseractInvoker) Kind() Kind { return Local }

func (t *TesseractInvoker) MinDPI() int { return tesseractMinDPI }

// CheckReady verifies the Tesseract runtime and the configured language
// data are installed. Run once before any page is attempted.
func (t *TesseractInvoker) CheckReady(ctx context.Context) error {
	const op = "CheckReady"

	path, err := exec.LookPath("tesseract")
	if err != nil {
		return NewEngineError(op, ErrEngineUnavailable, "tesseract not found in PATH")
	}

	available, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return NewEngineError(op, ErrEngineUnavailable,
			fmt.Sprintf("could not list tesseract languages: %v", err))
	}
	installed := make(map[string]bool, len(available))
	for _, lang := range available {
		installed[lang] = true
	}
	for _, lang := range strings.Split(t.languages, "+") {
		if !installed[lang] {
			return NewEngineError(op, ErrEngineUnavailable,
				fmt.Sprintf("tesseract language data %q is not installed", lang))
		}
	}

	t.log.Debug().
		Str("tesseract_path", path).
		Str("languages", t.languages).
		Msg("tesseract runtime ready")
	return nil
}

// Invoke runs Tesseract on a single page image.
func (t *TesseractInvoker) Invoke(ctx context.Context, imagePath string) (*RawResponse, error) {
	const op = "Invoke"

	if err := ctx.Err(); err != nil {
		return nil, WrapEngineError(op, err, "context cancelled before invocation")
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages); err != nil {
		return nil, NewEngineError(op, ErrPageFailed,
			fmt.Sprintf("failed to set language %q: %v", t.languages, err))
	}
	if err := client.SetImage(imagePath); err != nil {
		return nil, NewEngineError(op, ErrPageFailed,
			fmt.Sprintf("failed to load image %s: %v", imagePath, err))
	}

	text, err := client.Text()
	if err != nil {
		return nil, NewEngineError(op, ErrPageFailed,
			fmt.Sprintf("recognition failed for %s: %v", imagePath, err))
	}

	return &RawResponse{
		Kind: Local,
		Text: strings.TrimSpace(text),
	}, nil
}

func (t *TesseractInvoker) Close() error { return nil }
