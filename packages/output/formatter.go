package output

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/httpspy/packages/verify"
)

// ErrUnknownFormat is returned by NewFormatter for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown output format")

// Formatter renders verification reports.
type Formatter interface {
	FormatReport(source string, report *verify.Report)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable is implemented by formatters that buffer results until the run
// is complete.
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// NewFormatter creates the formatter named by format. An empty name selects
// the console formatter.
func NewFormatter(format string, w io.Writer, verbose, noColor bool) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "console":
		return NewConsoleFormatter(
			WithWriter(w),
			WithVerbose(verbose),
			WithNoColor(noColor),
		), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case "junit":
		return NewJUnitFormatter(JUnitWithWriter(w)), nil
	case "tap":
		return NewTAPFormatter(TAPWithWriter(w)), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// failureSummary is the one-line description of a failed result.
func failureSummary(r verify.Result) string {
	return fmt.Sprintf("expected %s, got %s", times(r.Expected), times(r.Actual))
}

func times(n int) string {
	switch n {
	case 0:
		return "no requests"
	case 1:
		return "1 request"
	default:
		return fmt.Sprintf("%d requests", n)
	}
}
