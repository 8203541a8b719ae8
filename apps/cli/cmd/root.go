package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/abdul-hamid-achik/httpspy/packages/core/config"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag  string
	envFileFlag string
	verboseFlag bool
	noColorFlag bool

	// cfg is loaded before every command runs
	cfg    = config.DefaultConfig()
	logger = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:   "httpspy",
	Short: "Record HTTP requests. Assert on what was sent.",
	Long: `httpspy records the HTTP requests your code sends and checks them
against expectations: which method and route, which query parameters,
how many times, or never.

Recordings come from the Go spy library, from the recording proxy
(httpspy record) or from a SQLite store.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the CLI and exits with the code matching the outcome.
func Execute(v, bt string) {
	version = v
	buildTime = bt
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errVerifyFailed) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Config file (default: .httpspy.yaml in the current directory)")
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", ".env", "Read HTTPSPY_* overrides from this file when it exists")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose output and debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return withExitCode(ExitUsageError, err)
	})

	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(coverageCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

// loadConfig resolves the configuration: defaults, then the config file,
// then HTTPSPY_* variables, then command-line flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadConfig(configFlag)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	lookup := os.LookupEnv
	if envFileFlag != "" {
		vars, err := config.LoadDotEnv(envFileFlag)
		switch {
		case err == nil:
			lookup = config.DotEnvLookup(vars)
		case !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env-file"):
			return withExitCode(ExitConfigError, err)
		}
	}

	loaded, err = loaded.ApplyEnv(lookup)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	if cmd.Flags().Changed("verbose") {
		loaded.Verbose = config.BoolPtr(verboseFlag)
	}
	if cmd.Flags().Changed("no-color") {
		loaded.NoColor = config.BoolPtr(noColorFlag)
	}
	cfg = loaded
	logger = newLogger(cfg.GetVerbose())

	logger.Debug("configuration loaded",
		slog.String("format", cfg.Format),
		slog.String("expectations", cfg.Expectations),
		slog.String("recordings", cfg.Recordings),
	)
	return nil
}

func newLogger(verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
