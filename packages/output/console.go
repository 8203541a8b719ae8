package output

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/abdul-hamid-achik/httpspy/packages/spy"
	"github.com/abdul-hamid-achik/httpspy/packages/verify"
	"github.com/fatih/color"
)

// formatValue truncates long values for display
func formatValue(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatReport(source string, report *verify.Report) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n", bold("Verifying: "+source))
	fmt.Fprintf(f.writer, "%s\n\n", cyan(fmt.Sprintf("%d recorded request(s)", report.Recordings)))

	for _, r := range report.Results {
		if r.Passed() {
			fmt.Fprintf(f.writer, "  %s %s\n", green("✓"), r.Name)
			if f.verbose && len(r.Constraints) > 0 {
				fmt.Fprintf(f.writer, "    with %s\n", strings.Join(r.Constraints, ", "))
			}
			continue
		}

		fmt.Fprintf(f.writer, "  %s %s\n", red("✗"), r.Name)
		fmt.Fprintf(f.writer, "    %s %s\n", red("→"), failureSummary(r))
		for _, c := range r.Constraints {
			fmt.Fprintf(f.writer, "      with %s\n", formatValue(c, 100))
		}
		if f.verbose && r.Err != nil {
			for _, line := range strings.Split(r.Err.Error(), "\n") {
				fmt.Fprintf(f.writer, "      %s\n", line)
			}
		}
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Expectations: ")
	if passed := report.Passed(); passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", passed)))
	}
	if failed := report.Failed(); failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", failed)))
	}
	fmt.Fprintf(f.writer, "%d total\n\n", len(report.Results))
}

// FormatRecordings lists recorded requests, one per line. Verbose output
// adds headers and bodies.
func (f *ConsoleFormatter) FormatRecordings(source string, requests []*spy.RecordedRequest) {
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n\n", bold(fmt.Sprintf("%s (%d recorded request(s))", source, len(requests))))

	for i, r := range requests {
		fmt.Fprintf(f.writer, "  %3d. %s %s %s\n",
			i+1,
			yellow(r.Method()),
			r.URL().String(),
			cyan(r.Timestamp().Format("15:04:05.000")),
		)
		if !f.verbose {
			continue
		}

		header := r.Header()
		for _, key := range sortedHeaderKeys(header) {
			fmt.Fprintf(f.writer, "       %s: %s\n", key, strings.Join(header[key], ", "))
		}
		if body := r.BodyString(); body != "" {
			fmt.Fprintf(f.writer, "       %s\n", formatValue(body, 200))
		}
	}
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("httpspy"), version)
}

func sortedHeaderKeys(h http.Header) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
