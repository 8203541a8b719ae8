package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/abdul-hamid-achik/httpspy/packages/db"
	"github.com/abdul-hamid-achik/httpspy/packages/export"
	"github.com/abdul-hamid-achik/httpspy/packages/proxy"
	"github.com/spf13/cobra"
)

var (
	recordPortFlag    int
	recordTargetFlag  string
	recordOutputFlag  string
	recordExcludeFlag string
	recordDBFlag      string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Start a recording proxy to capture HTTP requests",
	Long: `Start an HTTP reverse proxy that records every request it forwards.

Point the code under test at the proxy instead of the real server. When the
proxy stops (Ctrl+C) the recordings are written to the output file, to a
SQLite store, or to stdout.

The proxy:
- Forwards all requests to the target server
- Records method, URL, headers and body of every request
- Redacts sensitive headers (see redactHeaders in the config)

Examples:
  httpspy record --target https://api.example.com
  httpspy record --port 9090 --target https://api.example.com -o recordings.json
  httpspy record --target https://api.example.com --db sqlite:./spy.db
  httpspy record --target https://api.example.com --exclude "/health,/metrics"`,
	Args: usageArgs(cobra.NoArgs),
	RunE: recordCommand,
}

func init() {
	recordCmd.Flags().IntVarP(&recordPortFlag, "port", "p", 0, "Port to run the proxy on (default from config: 8080)")
	recordCmd.Flags().StringVarP(&recordTargetFlag, "target", "t", "", "Target URL to proxy to (default from config)")
	recordCmd.Flags().StringVarP(&recordOutputFlag, "output", "o", "", "Output file path, .json or .yaml (default: stdout)")
	recordCmd.Flags().StringVar(&recordExcludeFlag, "exclude", "", "Paths to exclude from recording (comma-separated)")
	recordCmd.Flags().StringVar(&recordDBFlag, "db", "", "Also save recordings to a SQLite store (sqlite:<path>)")
}

func recordCommand(cmd *cobra.Command, args []string) error {
	target := cfg.Proxy.Target
	if recordTargetFlag != "" {
		target = recordTargetFlag
	}
	if target == "" {
		return usageError("target URL is required (--target or proxy.target in the config)")
	}
	port := cfg.Proxy.Port
	if recordPortFlag > 0 {
		port = recordPortFlag
	}
	if recordDBFlag != "" && !db.IsConnectionString(recordDBFlag) {
		return usageError("--db must be a sqlite:<path> connection string, got %q", recordDBFlag)
	}

	var excludePaths []string
	if recordExcludeFlag != "" {
		for _, p := range strings.Split(recordExcludeFlag, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				excludePaths = append(excludePaths, p)
			}
		}
	}

	recorder := proxy.NewRecorder(
		proxy.WithPort(port),
		proxy.WithTargetURL(target),
		proxy.WithExclude(excludePaths),
		proxy.WithSanitize(cfg.RedactHeaders),
		proxy.WithLogger(logger),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.ErrOrStderr(), "Recording proxy on http://localhost:%d -> %s (press Ctrl+C to stop)\n", port, target)
	if err := recorder.StartWithContext(ctx); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "\nStopping proxy and exporting recordings...\n")
	return saveRecordings(cmd, recorder)
}

func saveRecordings(cmd *cobra.Command, recorder *proxy.Recorder) error {
	requests := recorder.Requests()
	if len(requests) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No requests recorded")
		return nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Recorded %d requests\n", len(requests))

	if recordDBFlag != "" {
		// the signal context is already cancelled
		ctx := context.WithoutCancel(cmd.Context())
		store, err := db.Open(ctx, recordDBFlag)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Save(ctx, requests); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved to %s\n", recordDBFlag)
	}

	if recordOutputFlag != "" {
		if err := export.WriteFile(recordOutputFlag, requests); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", recordOutputFlag)
		return nil
	}
	if recordDBFlag != "" {
		return nil
	}

	format, err := export.ParseFormat(cfg.Format)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}
	return recorder.Export(cmd.OutOrStdout(), format)
}
