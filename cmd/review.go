package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"scanreview/internal/batch"
	"scanreview/internal/logger"
	"scanreview/internal/result"
	"scanreview/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review [batch-dir]",
	Short: "Render the side-by-side review document from a persisted batch result",
	Long: `Regenerate the review artifact from a batch result directory produced by
'scanreview process'. Works for completed, partially failed, and aborted
batches; incomplete batches are visibly marked as such.

The artifact is written as review.html (for the human reviewer) and
review.json (for tooling) inside the batch directory.`,
	Example: `  scanreview review scanreview_output/recipes

  # Write the artifact somewhere else
  scanreview review scanreview_output/recipes -o /tmp/recipes-review`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().StringP("output", "o", "", "Directory for the rendered artifact (default: the batch directory)")
}

func runReview(cmd *cobra.Command, args []string) error {
	batchDir := args[0]
	log := logger.WithComponent("review")

	outDir, _ := cmd.Flags().GetString("output")
	if outDir == "" {
		outDir = batchDir
	}

	b, err := batch.Load(batchDir)
	if err != nil {
		return err
	}

	log.Info().
		Str("document", b.DocumentName).
		Str("state", string(b.State)).
		Int("pages", len(b.Results)).
		Msg("rendering review artifact")

	artifact := review.Render(b)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	htmlPath := filepath.Join(outDir, "review.html")
	if err := writeArtifact(htmlPath, artifact.WriteHTML); err != nil {
		return err
	}
	jsonPath := filepath.Join(outDir, "review.json")
	if err := writeArtifact(jsonPath, artifact.WriteJSON); err != nil {
		return err
	}

	printSummary(artifact.Summary)

	if b.State == result.Aborted {
		fmt.Println("\nNote: this batch aborted before completing; the artifact covers partial work only.")
	}
	fmt.Printf("\nReview document: %s\n", htmlPath)
	return nil
}

func writeArtifact(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := write(f); err != nil {
		return err
	}
	return nil
}

// printSummary renders the batch statistics table on stdout.
func printSummary(s review.Summary) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	table.Append([]string{"Document", s.DocumentName})
	table.Append([]string{"Engine", s.EngineUsed})
	table.Append([]string{"State", s.State})
	table.Append([]string{"Pages processed", fmt.Sprintf("%d of %d", s.ProcessedCount, s.PageCount)})
	table.Append([]string{"Succeeded", strconv.Itoa(s.SucceededCount)})
	table.Append([]string{"Failed", strconv.Itoa(s.FailedCount)})
	table.Append([]string{"Average confidence", s.AverageConfidenceLabel()})
	table.Append([]string{"High confidence pages (>=85%)", strconv.Itoa(s.HighConfidencePages)})
	table.Append([]string{"Medium confidence pages (70-84%)", strconv.Itoa(s.MediumConfidencePages)})
	table.Append([]string{"Low confidence pages (<70%)", strconv.Itoa(s.LowConfidencePages)})
	table.Render()
}
