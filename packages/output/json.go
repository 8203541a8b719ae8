package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/httpspy/packages/verify"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary      JSONSummary       `json:"summary"`
	Expectations []JSONExpectation `json:"expectations"`
	Duration     float64           `json:"duration"`
	Time         string            `json:"time"`
}

// JSONSummary represents the verification summary
type JSONSummary struct {
	Total      int `json:"total"`
	Passed     int `json:"passed"`
	Failed     int `json:"failed"`
	Recordings int `json:"recordings"`
}

// JSONExpectation represents a single expectation result
type JSONExpectation struct {
	Name        string   `json:"name"`
	Source      string   `json:"source"`
	Method      string   `json:"method"`
	Route       string   `json:"route"`
	Constraints []string `json:"constraints,omitempty"`
	Expected    int      `json:"expected"`
	Actual      int      `json:"actual"`
	Passed      bool     `json:"passed"`
	Error       string   `json:"error,omitempty"`
}

// JSONFormatter formats verification reports as JSON
type JSONFormatter struct {
	writer     io.Writer
	results    []JSONExpectation
	recordings int
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:  os.Stdout,
		results: make([]JSONExpectation, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatReport(source string, report *verify.Report) {
	f.recordings += report.Recordings
	for _, r := range report.Results {
		e := JSONExpectation{
			Name:        r.Name,
			Source:      source,
			Method:      r.Expectation.Method,
			Route:       r.Expectation.Route,
			Constraints: r.Constraints,
			Expected:    r.Expected,
			Actual:      r.Actual,
			Passed:      r.Passed(),
		}
		if r.Err != nil {
			e.Error = r.Err.Error()
		}
		f.results = append(f.results, e)
	}
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors are included in individual results
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	var passed, failed int
	for _, e := range f.results {
		if e.Passed {
			passed++
		} else {
			failed++
		}
	}

	output := JSONOutput{
		Summary: JSONSummary{
			Total:      len(f.results),
			Passed:     passed,
			Failed:     failed,
			Recordings: f.recordings,
		},
		Expectations: f.results,
		Duration:     float64(totalDuration.Milliseconds()),
		Time:         time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
