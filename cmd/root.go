// Package cmd wires the scanreview subcommands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"scanreview/internal/config"
	"scanreview/internal/logger"
)

var version = "1.0.0"

// cfg is loaded in main before Execute runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "scanreview",
	Short: "OCR scanned page images and build side-by-side review documents",
	Long: `scanreview converts scanned page documents into machine-readable text
using one of two OCR engines, then renders a review document that pairs
each original page image with its extracted text for manual correction.

Engines:
  local  - Tesseract (no confidence data; requires tesseract in PATH)
  cloud  - Google Cloud Vision (per-word confidence; requires credentials)

Select the engine with OCR_ENGINE or --engine. Cloud credentials come from
GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS.`,
	Version: version,
}

// Execute runs the CLI with the loaded configuration.
func Execute(c *config.Config) {
	cfg = c
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// commandContext creates a context with timeout and SIGINT/SIGTERM handling.
func commandContext(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, cancelling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
