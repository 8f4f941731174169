package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scanreview/internal/engine"
	"scanreview/internal/logger"
	"scanreview/internal/pages"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the environment can run the selected OCR engine",
	Long: `Validate the processing environment before starting a batch: page
rasterization tooling, the selected OCR engine's runtime or credentials,
and the output directory. The same checks run as fatal preconditions at
the start of every batch; this command runs them standalone.`,
	Example: `  scanreview validate
  scanreview validate --engine cloud`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("engine", "e", "", "OCR engine to validate: local or cloud (default: OCR_ENGINE)")
	validateCmd.Flags().Int("timeout", 60, "Validation timeout in seconds")
}

func runValidate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("validate")

	engineName, _ := cmd.Flags().GetString("engine")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	if engineName == "" {
		engineName = cfg.Engine
	}

	kind, err := engine.ParseKind(engineName)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(timeoutSecs, log)
	defer cancel()

	failed := false
	check := func(name string, err error) {
		if err != nil {
			failed = true
			fmt.Printf("  FAIL  %s: %v\n", name, err)
			return
		}
		fmt.Printf("  ok    %s\n", name)
	}

	fmt.Printf("Validating environment for the %s engine:\n", kind)

	check("page rasterization (pdftoppm)", pages.CheckTooling())

	invoker := newInvoker(kind)
	check(fmt.Sprintf("%s engine ready", kind), invoker.CheckReady(ctx))
	if closeErr := invoker.Close(); closeErr != nil {
		log.Warn().Err(closeErr).Msg("failed to close engine")
	}

	check("output directory writable", checkWritable(cfg.OutputDir))

	if failed {
		return fmt.Errorf("environment validation failed; fix the items above and re-run")
	}
	fmt.Println("\nEnvironment is ready.")
	return nil
}

// checkWritable verifies the output directory can be created and written.
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}
	probe, err := os.CreateTemp(dir, ".write-probe-*")
	if err != nil {
		return fmt.Errorf("cannot write to %s: %w", dir, err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}
