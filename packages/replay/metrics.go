package replay

import (
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// latency range recorded by the histograms, in microseconds
const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Metrics collects replay outcomes
type Metrics struct {
	mu sync.Mutex

	total       int
	errors      int
	statusCodes map[int]int

	// Latency histogram (in microseconds for precision)
	histogram *hdrhistogram.Histogram
	routes    map[string]*routeMetrics

	startTime time.Time
	endTime   time.Time
}

type routeMetrics struct {
	total     int
	errors    int
	histogram *hdrhistogram.Histogram
}

// NewMetrics creates a new Metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		statusCodes: make(map[int]int),
		histogram:   hdrhistogram.New(minLatencyUs, maxLatencyUs, 3),
		routes:      make(map[string]*routeMetrics),
	}
}

// Start marks the beginning of the replay
func (m *Metrics) Start() {
	m.mu.Lock()
	m.startTime = time.Now()
	m.mu.Unlock()
}

// Stop marks the end of the replay
func (m *Metrics) Stop() {
	m.mu.Lock()
	m.endTime = time.Now()
	m.mu.Unlock()
}

// Record records one replayed request. status is ignored when err is set.
func (m *Metrics) Record(route string, status int, duration time.Duration, err error) {
	latencyUs := duration.Microseconds()
	if latencyUs < minLatencyUs {
		latencyUs = minLatencyUs
	}
	if latencyUs > maxLatencyUs {
		latencyUs = maxLatencyUs
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rm, ok := m.routes[route]
	if !ok {
		rm = &routeMetrics{histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3)}
		m.routes[route] = rm
	}

	m.total++
	rm.total++
	if err != nil {
		m.errors++
		rm.errors++
		return
	}

	m.statusCodes[status]++
	_ = m.histogram.RecordValue(latencyUs)
	_ = rm.histogram.RecordValue(latencyUs)
}

// Summary is the aggregated outcome of a replay.
type Summary struct {
	Total       int            `json:"total"`
	Errors      int            `json:"errors"`
	StatusCodes map[int]int    `json:"statusCodes"`
	Duration    time.Duration  `json:"duration"`
	Latency     Latency        `json:"latency"`
	Routes      []RouteSummary `json:"routes"`
}

// Latency holds latency percentiles of successful requests.
type Latency struct {
	Min  time.Duration `json:"min"`
	Mean time.Duration `json:"mean"`
	P50  time.Duration `json:"p50"`
	P95  time.Duration `json:"p95"`
	P99  time.Duration `json:"p99"`
	Max  time.Duration `json:"max"`
}

// RouteSummary is the per-route breakdown, keyed by "METHOD path".
type RouteSummary struct {
	Route   string  `json:"route"`
	Total   int     `json:"total"`
	Errors  int     `json:"errors"`
	Latency Latency `json:"latency"`
}

// Summary aggregates what was recorded so far.
func (m *Metrics) Summary() *Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	end := m.endTime
	if end.IsZero() {
		end = time.Now()
	}

	s := &Summary{
		Total:       m.total,
		Errors:      m.errors,
		StatusCodes: make(map[int]int, len(m.statusCodes)),
		Latency:     latencyOf(m.histogram),
		Routes:      make([]RouteSummary, 0, len(m.routes)),
	}
	if !m.startTime.IsZero() {
		s.Duration = end.Sub(m.startTime)
	}
	for code, n := range m.statusCodes {
		s.StatusCodes[code] = n
	}
	for route, rm := range m.routes {
		s.Routes = append(s.Routes, RouteSummary{
			Route:   route,
			Total:   rm.total,
			Errors:  rm.errors,
			Latency: latencyOf(rm.histogram),
		})
	}
	sort.Slice(s.Routes, func(i, j int) bool { return s.Routes[i].Route < s.Routes[j].Route })
	return s
}

func latencyOf(h *hdrhistogram.Histogram) Latency {
	if h.TotalCount() == 0 {
		return Latency{}
	}
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return Latency{
		Min:  us(h.Min()),
		Mean: time.Duration(h.Mean() * float64(time.Microsecond)),
		P50:  us(h.ValueAtQuantile(50)),
		P95:  us(h.ValueAtQuantile(95)),
		P99:  us(h.ValueAtQuantile(99)),
		Max:  us(h.Max()),
	}
}
