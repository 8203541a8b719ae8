package spy

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAssertionMismatch is matched by every error returned from a failed
// occurrence or count assertion.
var ErrAssertionMismatch = errors.New("http request spy assertion failed")

// AssertionError describes a failed assertion: what was expected, how often,
// and what was actually recorded.
type AssertionError struct {
	// Method and Route are empty for HasRecordedRequests failures.
	Method string
	Route  string
	// Constraints lists the extra constraints, e.g. `query "a=1"`.
	Constraints []string
	Expected    int
	Actual      int
	// Recorded lists every recorded request as "METHOD URL".
	Recorded []string
}

func (e *AssertionError) Error() string {
	var b strings.Builder

	if e.Method == "" && e.Route == "" {
		fmt.Fprintf(&b, "expected %d recorded request(s), got %d", e.Expected, e.Actual)
	} else {
		fmt.Fprintf(&b, "expected a %s request to %s", e.Method, e.Route)
		if len(e.Constraints) > 0 {
			fmt.Fprintf(&b, " with %s", strings.Join(e.Constraints, " and "))
		}
		if e.Expected == 0 {
			b.WriteString(" never to occur")
		} else {
			fmt.Fprintf(&b, " to occur %s", times(e.Expected))
		}
		if e.Actual == 0 {
			b.WriteString(", but it never occurred")
		} else {
			fmt.Fprintf(&b, ", but it occurred %s", times(e.Actual))
		}
	}

	if len(e.Recorded) == 0 {
		b.WriteString("; no requests were recorded")
		return b.String()
	}
	b.WriteString("; recorded requests:")
	for _, r := range e.Recorded {
		b.WriteString("\n  - ")
		b.WriteString(r)
	}
	return b.String()
}

func (e *AssertionError) Is(target error) bool {
	return target == ErrAssertionMismatch
}

func times(n int) string {
	switch n {
	case 1:
		return "once"
	case 2:
		return "twice"
	default:
		return fmt.Sprintf("%d times", n)
	}
}
