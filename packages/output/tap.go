package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/httpspy/packages/verify"
)

// TAPFormatter formats verification reports in TAP (Test Anything Protocol) format
type TAPFormatter struct {
	writer    io.Writer
	testCount int
	results   []tapResult
}

type tapResult struct {
	number      int
	name        string
	passed      bool
	summary     string
	constraints []string
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{
		writer:  os.Stdout,
		results: make([]tapResult, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

func (f *TAPFormatter) FormatReport(source string, report *verify.Report) {
	for _, r := range report.Results {
		f.testCount++
		tr := tapResult{
			number:      f.testCount,
			name:        r.Name,
			passed:      r.Passed(),
			constraints: r.Constraints,
		}
		if !tr.passed {
			tr.summary = failureSummary(r)
		}
		f.results = append(f.results, tr)
	}
}

func (f *TAPFormatter) FormatError(err error) {
	// Errors are included in individual test results
}

func (f *TAPFormatter) FormatHeader(version string) {
	// Header is written in Flush
}

// Flush writes the accumulated TAP output
func (f *TAPFormatter) Flush(totalDuration time.Duration) error {
	fmt.Fprintf(f.writer, "TAP version 13\n")
	fmt.Fprintf(f.writer, "1..%d\n", f.testCount)

	for _, r := range f.results {
		if r.passed {
			fmt.Fprintf(f.writer, "ok %d - %s\n", r.number, r.name)
			continue
		}

		fmt.Fprintf(f.writer, "not ok %d - %s\n", r.number, r.name)
		fmt.Fprintf(f.writer, "  ---\n")
		fmt.Fprintf(f.writer, "  message: %s\n", escapeYAML(r.summary))
		if len(r.constraints) > 0 {
			fmt.Fprintf(f.writer, "  constraints:\n")
			for _, c := range r.constraints {
				fmt.Fprintf(f.writer, "    - %s\n", escapeYAML(c))
			}
		}
		fmt.Fprintf(f.writer, "  ...\n")
	}

	fmt.Fprintln(f.writer)

	return nil
}

func escapeYAML(s string) string {
	// Simple YAML escaping - wrap in quotes if contains special chars
	if strings.ContainsAny(s, ":\n\"'[]{}#&*!|>%@`") {
		s = strings.ReplaceAll(s, "\"", "\\\"")
		return "\"" + s + "\""
	}
	return s
}
