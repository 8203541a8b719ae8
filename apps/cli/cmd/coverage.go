package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/httpspy/packages/coverage"
	"github.com/abdul-hamid-achik/httpspy/packages/verify"
	"github.com/spf13/cobra"
)

var (
	coverageOpenAPIFlag string
	coverageJSONFlag    bool
	coverageMinFlag     float64
)

var coverageCmd = &cobra.Command{
	Use:   "coverage [recordings]",
	Short: "Report which OpenAPI operations the recordings exercised",
	Long: `Match recorded requests against the operations of an OpenAPI 3 document.

The report lists covered and uncovered operations, coverage per tag, and
recorded requests that match no documented operation.

Examples:
  httpspy coverage recordings.json --openapi openapi.yaml
  httpspy coverage sqlite:./spy.db --openapi openapi.yaml --json
  httpspy coverage recordings.json --openapi openapi.yaml --min 80`,
	Args: usageArgs(cobra.MaximumNArgs(1)),
	RunE: coverageCommand,
}

func init() {
	coverageCmd.Flags().StringVar(&coverageOpenAPIFlag, "openapi", "", "OpenAPI 3 document (YAML or JSON)")
	coverageCmd.Flags().BoolVar(&coverageJSONFlag, "json", false, "Print the report as JSON")
	coverageCmd.Flags().Float64Var(&coverageMinFlag, "min", 0, "Fail when coverage is below this percentage")
}

func coverageCommand(cmd *cobra.Command, args []string) error {
	if coverageOpenAPIFlag == "" {
		return usageError("--openapi is required")
	}
	source := cfg.Recordings
	if len(args) == 1 {
		source = args[0]
	}

	analyzer := coverage.NewAnalyzer()
	if err := analyzer.LoadOpenAPI(coverageOpenAPIFlag); err != nil {
		return withExitCode(ExitParseError, err)
	}

	requests, err := verify.LoadRecordings(cmd.Context(), source)
	if err != nil {
		return withExitCode(ExitParseError, err)
	}

	report := analyzer.Analyze(requests)
	if coverageJSONFlag {
		data, err := report.FormatJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), data)
	} else {
		fmt.Fprint(cmd.OutOrStdout(), report.FormatConsole())
	}

	if report.CoveragePercent < coverageMinFlag {
		return withExitCode(ExitVerifyFailure,
			fmt.Errorf("coverage %.1f%% is below the minimum of %.1f%%", report.CoveragePercent, coverageMinFlag))
	}
	return nil
}
