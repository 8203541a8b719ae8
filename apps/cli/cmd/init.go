package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/httpspy/packages/core/config"
	"github.com/abdul-hamid-achik/httpspy/packages/verify"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	forceInit bool
	initDir   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new httpspy project",
	Long: `Initialize httpspy in the current directory.

This creates:
  - .httpspy.yaml      - Configuration file
  - expectations.yaml  - Example expectations for httpspy verify

Examples:
  httpspy init
  httpspy init --force`,
	Args: usageArgs(cobra.NoArgs),
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
	initCmd.Flags().StringVar(&initDir, "dir", ".", "Directory to initialize")
}

func initCommand(cmd *cobra.Command, args []string) error {
	configFile := filepath.Join(initDir, ".httpspy.yaml")
	expectationsFile := filepath.Join(initDir, "expectations.yaml")

	if !forceInit {
		for _, f := range []string{configFile, expectationsFile} {
			if _, err := os.Stat(f); err == nil {
				return usageError("file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	sample := config.DefaultConfig()
	sample.Proxy.Target = "http://localhost:3000"
	if err := sample.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	expectationsYAML, err := yaml.Marshal(sampleExpectations())
	if err != nil {
		return err
	}
	if err := os.WriteFile(expectationsFile, expectationsYAML, 0644); err != nil {
		return fmt.Errorf("failed to create expectations file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", expectationsFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nNext steps:\n")
	fmt.Fprintf(cmd.OutOrStdout(), "  httpspy record -o recordings.json   # capture requests through the proxy\n")
	fmt.Fprintf(cmd.OutOrStdout(), "  httpspy verify recordings.json      # check them against expectations.yaml\n")

	return nil
}

func sampleExpectations() *verify.File {
	twice := 2
	return &verify.File{
		Expectations: []verify.Expectation{
			{
				Name:   "lists resources",
				Method: "GET",
				Route:  "/resources",
				QueryParams: map[string][]string{
					"page": {"1"},
				},
			},
			{
				Name:   "creates two resources",
				Method: "POST",
				Route:  "/resources",
				Headers: map[string][]string{
					"Content-Type": {"application/json"},
				},
				JSONBody: []verify.JSONAssertion{
					{Path: "$.name", Equals: "Test Resource"},
				},
				Times: &twice,
			},
			{
				Name:   "never deletes",
				Method: "DELETE",
				Route:  "/resources",
				Never:  true,
			},
		},
	}
}
