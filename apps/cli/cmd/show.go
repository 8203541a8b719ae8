package cmd

import (
	"strings"

	"github.com/abdul-hamid-achik/httpspy/packages/export"
	"github.com/abdul-hamid-achik/httpspy/packages/output"
	"github.com/abdul-hamid-achik/httpspy/packages/verify"
	"github.com/spf13/cobra"
)

var showFormatFlag string

var showCmd = &cobra.Command{
	Use:   "show [recordings]",
	Short: "List recorded requests",
	Long: `List the requests held by a recordings source.

With --format json or yaml the recordings are re-exported, which converts
between the file formats and dumps a SQLite store.

Examples:
  httpspy show recordings.json
  httpspy show sqlite:./spy.db -v
  httpspy show sqlite:./spy.db --format yaml > recordings.yaml`,
	Args: usageArgs(cobra.MaximumNArgs(1)),
	RunE: showCommand,
}

func init() {
	showCmd.Flags().StringVarP(&showFormatFlag, "format", "f", "console", "Output format: console, json, yaml")
}

func showCommand(cmd *cobra.Command, args []string) error {
	source := cfg.Recordings
	if len(args) == 1 {
		source = args[0]
	}

	var format export.Format
	if f := strings.ToLower(showFormatFlag); f != "console" && f != "" {
		parsed, err := export.ParseFormat(f)
		if err != nil {
			return withExitCode(ExitUsageError, err)
		}
		format = parsed
	}

	requests, err := verify.LoadRecordings(cmd.Context(), source)
	if err != nil {
		return withExitCode(ExitParseError, err)
	}

	if format != "" {
		return export.Write(cmd.OutOrStdout(), format, requests)
	}

	formatter := output.NewConsoleFormatter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithVerbose(cfg.GetVerbose()),
		output.WithNoColor(cfg.GetNoColor()),
	)
	formatter.FormatRecordings(source, requests)
	return nil
}
