package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/httpspy/packages/verify"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [expectations...]",
	Short: "Validate expectations files without evaluating them",
	Long: `Validate expectations files for syntax errors and conflicting options
without loading any recordings.

Examples:
  httpspy validate expectations.yaml
  httpspy validate checkout.yaml payments.yaml`,
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files := args
	if len(files) == 0 {
		files = []string{cfg.Expectations}
	}

	hasErrors := false
	for _, file := range files {
		f, err := verify.Load(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
			hasErrors = true
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (%d expectations)\n", file, len(f.Expectations))
	}

	if hasErrors {
		return withExitCode(ExitParseError, fmt.Errorf("validation failed"))
	}

	return nil
}
