package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"scanreview/internal/batch"
	"scanreview/internal/engine"
	"scanreview/internal/logger"
	"scanreview/internal/pages"
)

var processCmd = &cobra.Command{
	Use:   "process [pdf-file]",
	Short: "OCR every page of a scanned document into a reviewable batch result",
	Long: `Process a scanned PDF: rasterize each page, run it through the selected
OCR engine, apply the confidence quality gate, and persist the batch result
incrementally so an interrupted run can be resumed.

Per-page failures are recorded in the batch result and do not stop the run.
A fatal engine failure (missing Tesseract runtime, invalid cloud
credentials) aborts the batch; pages processed before the abort are kept.

Required environment for the cloud engine:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string`,
	Example: `  # OCR a scan with the local Tesseract engine
  scanreview process recipes.pdf

  # Use Google Cloud Vision and a stricter quality gate
  scanreview process recipes.pdf --engine cloud --threshold 90

  # Re-attempt only the pages that failed in a previous run
  scanreview process recipes.pdf --resume`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringP("engine", "e", "", "OCR engine: local or cloud (default: OCR_ENGINE)")
	processCmd.Flags().StringP("output", "o", "", "Output directory (default: OUTPUT_DIR)")
	processCmd.Flags().Float64P("threshold", "t", -1, "Confidence threshold for flagging words (default: CONFIDENCE_THRESHOLD)")
	processCmd.Flags().Int("workers", 0, "Parallel page invocations (default: PAGE_WORKERS)")
	processCmd.Flags().Bool("resume", false, "Skip pages a previous run already succeeded on")
	processCmd.Flags().Int("timeout", 3600, "Processing timeout in seconds")
}

func runProcess(cmd *cobra.Command, args []string) error {
	pdfPath := args[0]
	log := logger.WithDocument("process", filepath.Base(pdfPath))

	engineName, _ := cmd.Flags().GetString("engine")
	outputDir, _ := cmd.Flags().GetString("output")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	workers, _ := cmd.Flags().GetInt("workers")
	resume, _ := cmd.Flags().GetBool("resume")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	if engineName == "" {
		engineName = cfg.Engine
	}
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}
	if threshold < 0 {
		threshold = cfg.ConfidenceThreshold
	}
	if workers <= 0 {
		workers = cfg.PageWorkers
	}

	kind, err := engine.ParseKind(engineName)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(timeoutSecs, log)
	defer cancel()

	invoker := newInvoker(kind)
	defer func() {
		if closeErr := invoker.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close engine")
		}
	}()

	docName := filepath.Base(pdfPath)
	runDir := filepath.Join(outputDir, docStem(docName))
	store := batch.NewStore(runDir)

	log.Info().
		Str("engine", string(kind)).
		Str("run_dir", runDir).
		Float64("threshold", threshold).
		Bool("resume", resume).
		Msg("starting batch processing")

	pageList, err := pages.Extract(ctx, pdfPath, filepath.Join(runDir, "images"), invoker.MinDPI())
	if err != nil {
		return fmt.Errorf("page extraction failed: %w", err)
	}

	orch := batch.New(invoker, store, uuid.New().String(), batch.Config{
		DocumentName:        docName,
		Pages:               pageList,
		ConfidenceThreshold: threshold,
		MaxRetries:          uint(cfg.MaxRetries),
		RetryBaseDelay:      cfg.RetryBaseDelay,
		Workers:             workers,
	})

	if resume {
		prev, loadErr := batch.Load(runDir)
		if loadErr != nil {
			return fmt.Errorf("cannot resume: %w", loadErr)
		}
		if prev.DocumentName != docName || prev.PageCount != len(pageList) {
			return fmt.Errorf("cannot resume: existing batch in %s is for %s (%d pages), not %s (%d pages)",
				runDir, prev.DocumentName, prev.PageCount, docName, len(pageList))
		}
		log.Info().
			Int("reusable_pages", prev.SucceededCount()).
			Msg("resuming from previous batch result")
		orch.Seed(prev)
	}

	b, err := orch.Run(ctx)
	if err != nil {
		// Partial work is persisted and still renders.
		fmt.Printf("Batch aborted after %d of %d pages. Partial results kept in %s\n",
			len(b.Results), b.PageCount, runDir)
		return handleEngineError(err)
	}

	fmt.Printf("Processed %d pages (%d succeeded, %d failed) with the %s engine.\n",
		len(b.Results), b.SucceededCount(), b.FailedCount(), b.EngineUsed)
	fmt.Printf("Next step: scanreview review %s\n", runDir)
	return nil
}

// newInvoker builds the engine invoker for the selected variant.
func newInvoker(kind engine.Kind) engine.Invoker {
	if kind == engine.Cloud {
		return engine.NewVisionInvoker()
	}
	return engine.NewTesseractInvoker(cfg.TesseractLanguages)
}

// docStem strips the extension from a document name for use as a directory.
func docStem(docName string) string {
	return strings.TrimSuffix(docName, filepath.Ext(docName))
}

// handleEngineError turns fatal engine errors into actionable messages.
func handleEngineError(err error) error {
	switch {
	case errors.Is(err, engine.ErrEngineUnavailable):
		return fmt.Errorf("the local OCR engine is unusable: %w\n\n"+
			"Install Tesseract and its language data, e.g.:\n"+
			"  apt install tesseract-ocr tesseract-ocr-eng\n"+
			"then re-run with --resume to keep completed pages", err)
	case errors.Is(err, engine.ErrMissingCredentials):
		return fmt.Errorf("cloud OCR credentials are not configured: %w\n\n"+
			"Set GOOGLE_APPLICATION_CREDENTIALS to a service account JSON path, or\n"+
			"GOOGLE_CREDENTIALS to inline JSON, then re-run with --resume", err)
	case errors.Is(err, engine.ErrAuthFailed):
		return fmt.Errorf("cloud OCR rejected the configured credentials: %w\n\n"+
			"Verify the service account exists, the key is current, and it has\n"+
			"the 'Cloud Vision API User' role, then re-run with --resume", err)
	}
	return err
}
