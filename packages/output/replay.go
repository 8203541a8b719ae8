package output

import (
	"fmt"
	"slices"
	"time"

	"github.com/abdul-hamid-achik/httpspy/packages/replay"
	"github.com/fatih/color"
)

// FormatReplay prints the outcome of replaying recordings against target.
func (f *ConsoleFormatter) FormatReplay(target string, s *replay.Summary) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n\n", bold("Replayed to: "+target))
	fmt.Fprintf(f.writer, "Requests:  %d", s.Total)
	if s.Errors > 0 {
		fmt.Fprintf(f.writer, " (%s)", red(fmt.Sprintf("%d failed", s.Errors)))
	}
	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Duration:  %s\n", s.Duration.Round(time.Millisecond))

	codes := make([]int, 0, len(s.StatusCodes))
	for code := range s.StatusCodes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		label := fmt.Sprintf("%d", code)
		switch {
		case code >= 500:
			label = red(label)
		case code >= 400:
			label = yellow(label)
		default:
			label = green(label)
		}
		fmt.Fprintf(f.writer, "  %s x%d\n", label, s.StatusCodes[code])
	}

	fmt.Fprintf(f.writer, "\nLatency:   %s\n", cyan(formatLatency(s.Latency)))

	if f.verbose {
		fmt.Fprintf(f.writer, "\nBy route:\n")
		for _, r := range s.Routes {
			fmt.Fprintf(f.writer, "  %s x%d  %s\n", r.Route, r.Total, formatLatency(r.Latency))
		}
	}
	fmt.Fprintf(f.writer, "\n")
}

func formatLatency(l replay.Latency) string {
	ms := func(d time.Duration) string {
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	}
	return fmt.Sprintf("p50=%s p95=%s p99=%s max=%s", ms(l.P50), ms(l.P95), ms(l.P99), ms(l.Max))
}
