package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/httpspy/packages/db"
	"github.com/abdul-hamid-achik/httpspy/packages/output"
	"github.com/abdul-hamid-achik/httpspy/packages/verify"
	"github.com/spf13/cobra"
)

var (
	verifyExpectationsFlag string
	verifyOutputFlag       string
	verifyWatchFlag        bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify [recordings]",
	Short: "Check recorded requests against an expectations file",
	Long: `Check recorded requests against the expectations in a YAML file.

Recordings are read from a .json, .yaml or .yml export or from a SQLite
store given as sqlite:<path>. Without an argument the recordings source from
the config file is used.

Exit codes: 0 all expectations held, 1 an expectation failed,
2 recordings or expectations could not be read, 3 configuration error.

Examples:
  httpspy verify recordings.json -e expectations.yaml
  httpspy verify sqlite:./spy.db -e expectations.yaml --output junit
  httpspy verify recordings.yaml --watch`,
	Args: usageArgs(cobra.MaximumNArgs(1)),
	RunE: verifyCommand,
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyExpectationsFlag, "expectations", "e", "", "Expectations file (default from config: expectations.yaml)")
	verifyCmd.Flags().StringVarP(&verifyOutputFlag, "output", "o", "console", "Output format: console, json, junit, tap")
	verifyCmd.Flags().BoolVarP(&verifyWatchFlag, "watch", "w", false, "Re-run when the recordings or expectations change")
}

func verifyCommand(cmd *cobra.Command, args []string) error {
	source := cfg.Recordings
	if len(args) == 1 {
		source = args[0]
	}
	expectations := cfg.Expectations
	if verifyExpectationsFlag != "" {
		expectations = verifyExpectationsFlag
	}

	if _, err := output.NewFormatter(verifyOutputFlag, io.Discard, false, true); err != nil {
		return withExitCode(ExitUsageError, err)
	}

	runOnce := func() error {
		return runVerify(cmd.Context(), cmd.OutOrStdout(), source, expectations)
	}

	err := runOnce()
	if !verifyWatchFlag {
		return err
	}
	if err != nil && !errors.Is(err, errVerifyFailed) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watched := []string{expectations, watchPath(source)}
	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")

	return verify.Watch(ctx, watched, verify.DefaultDebounce, logger, func(path string) {
		fmt.Fprintf(cmd.OutOrStdout(), "\n\nFile changed: %s\nRe-running verification...\n", path)
		if err := runOnce(); err != nil && !errors.Is(err, errVerifyFailed) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")
	})
}

// runVerify evaluates one pass and prints the report.
func runVerify(ctx context.Context, w io.Writer, source, expectations string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	formatter, err := output.NewFormatter(verifyOutputFlag, w, cfg.GetVerbose(), cfg.GetNoColor())
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	report, err := verify.Run(ctx, source, expectations)
	if err != nil {
		return withExitCode(ExitParseError, err)
	}

	logger.Debug("verification finished",
		slog.String("recordings", source),
		slog.Int("passed", report.Passed()),
		slog.Int("failed", report.Failed()),
	)

	formatter.FormatReport(source, report)
	if flushable, ok := formatter.(output.Flushable); ok {
		if err := flushable.Flush(time.Since(start)); err != nil {
			return err
		}
	}

	if !report.OK() {
		return withExitCode(ExitVerifyFailure, errVerifyFailed)
	}
	return nil
}

// watchPath is the file backing a recordings source.
func watchPath(source string) string {
	if db.IsConnectionString(source) {
		path := strings.TrimPrefix(strings.TrimSpace(source), "sqlite:")
		return strings.TrimPrefix(path, "//")
	}
	return source
}
