package cmd

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/httpspy/packages/output"
	"github.com/abdul-hamid-achik/httpspy/packages/replay"
	"github.com/abdul-hamid-achik/httpspy/packages/verify"
	"github.com/spf13/cobra"
)

var (
	replayTargetFlag      string
	replayRateFlag        float64
	replayConcurrencyFlag int
	replayTimeoutFlag     time.Duration
	replayJSONFlag        bool
)

var replayCmd = &cobra.Command{
	Use:   "replay [recordings]",
	Short: "Send recorded requests to another server",
	Long: `Re-send recorded requests to a target server and summarize the responses.

The recorded method, path, query, headers and body are kept; scheme and
host come from --target, and a path in --target is prepended. Headers that
were redacted when recorded are not sent.

Examples:
  httpspy replay recordings.json --target http://localhost:3000
  httpspy replay sqlite:./spy.db --target https://staging.example.com --rate 10
  httpspy replay recordings.json --target http://localhost:3000 --concurrency 4 --json`,
	Args: usageArgs(cobra.MaximumNArgs(1)),
	RunE: replayCommand,
}

func init() {
	replayCmd.Flags().StringVarP(&replayTargetFlag, "target", "t", "", "Server to send the requests to (default from config: proxy.target)")
	replayCmd.Flags().Float64VarP(&replayRateFlag, "rate", "r", 0, "Requests per second (0 = unlimited)")
	replayCmd.Flags().IntVar(&replayConcurrencyFlag, "concurrency", 1, "Requests in flight at once")
	replayCmd.Flags().DurationVar(&replayTimeoutFlag, "timeout", 30*time.Second, "Per-request timeout")
	replayCmd.Flags().BoolVar(&replayJSONFlag, "json", false, "Print the summary as JSON")
}

func replayCommand(cmd *cobra.Command, args []string) error {
	target := cfg.Proxy.Target
	if replayTargetFlag != "" {
		target = replayTargetFlag
	}
	if target == "" {
		return usageError("target URL is required (--target or proxy.target in the config)")
	}
	if replayConcurrencyFlag < 1 {
		return usageError("--concurrency must be at least 1")
	}
	source := cfg.Recordings
	if len(args) == 1 {
		source = args[0]
	}

	requests, err := verify.LoadRecordings(cmd.Context(), source)
	if err != nil {
		return withExitCode(ExitParseError, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := replay.New(
		replay.WithTargetURL(target),
		replay.WithRate(replayRateFlag),
		replay.WithConcurrency(replayConcurrencyFlag),
		replay.WithTimeout(replayTimeoutFlag),
		replay.WithLogger(logger),
	)
	summary, err := r.Run(ctx, requests)
	if summary == nil {
		return withExitCode(ExitUsageError, err)
	}

	if replayJSONFlag {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(summary); encErr != nil {
			return encErr
		}
	} else {
		formatter := output.NewConsoleFormatter(
			output.WithWriter(cmd.OutOrStdout()),
			output.WithVerbose(cfg.GetVerbose()),
			output.WithNoColor(cfg.GetNoColor()),
		)
		formatter.FormatReplay(target, summary)
	}

	if err != nil {
		return err
	}
	if summary.Errors > 0 {
		return fmt.Errorf("%d of %d requests failed", summary.Errors, summary.Total)
	}
	return nil
}
