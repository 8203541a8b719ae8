package spy

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
)

// Spy records requests in the order they were sent.
type Spy struct {
	mu       sync.Mutex
	requests []*RecordedRequest
	logger   *slog.Logger
	redact   []string
	detached bool
}

// RedactedValue replaces the values of redacted headers.
const RedactedValue = "<redacted>"

// Option is a functional option for Spy.
type Option func(*Spy)

// WithLogger sets the logger used to trace recorded requests.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Spy) {
		s.logger = logger
	}
}

// WithRedactedHeaders replaces the values of the named headers with
// RedactedValue when a request is recorded.
func WithRedactedHeaders(headers ...string) Option {
	return func(s *Spy) {
		s.redact = append(s.redact, headers...)
	}
}

// Detached keeps the new spy from becoming the current one.
func Detached() Option {
	return func(s *Spy) {
		s.detached = true
	}
}

// New creates a spy and, unless Detached is given, makes it the current one.
func New(opts ...Option) *Spy {
	s := &Spy{
		requests: make([]*RecordedRequest, 0),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if !s.detached {
		s.Activate()
	}
	return s
}

// ForTest creates a current spy for the duration of t. The current slot is
// cleared on cleanup if it still holds this spy.
func ForTest(t testing.TB, opts ...Option) *Spy {
	t.Helper()
	s := New(opts...)
	t.Cleanup(s.Deactivate)
	return s
}

// RecordRequest appends r. It is a no-op on a nil spy or a nil record.
func (s *Spy) RecordRequest(r *RecordedRequest) {
	if s == nil || r == nil {
		return
	}
	if len(s.redact) > 0 {
		r = r.withHeader(s.redactHeaders(r.header))
	}

	s.mu.Lock()
	s.requests = append(s.requests, r)
	count := len(s.requests)
	s.mu.Unlock()

	s.logger.Debug("recorded request",
		slog.String("id", r.ID()),
		slog.String("method", r.Method()),
		slog.String("url", r.url.String()),
		slog.Int("count", count),
	)
}

// Record captures req and records it.
func (s *Spy) Record(req *http.Request) error {
	r, err := From(req)
	if err != nil {
		return err
	}
	s.RecordRequest(r)
	return nil
}

func (s *Spy) redactHeaders(h http.Header) http.Header {
	if h == nil {
		return nil
	}
	out := h.Clone()
	for key := range out {
		for _, name := range s.redact {
			if strings.EqualFold(key, name) {
				out[key] = []string{RedactedValue}
				break
			}
		}
	}
	return out
}

// Requests returns the recorded requests in send order. A nil spy has none.
func (s *Spy) Requests() []*RecordedRequest {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*RecordedRequest, len(s.requests))
	copy(result, s.requests)
	return result
}

// Clear removes all recorded requests.
func (s *Spy) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = make([]*RecordedRequest, 0)
}

// HasRecordedRequests checks that exactly n requests were recorded.
func (s *Spy) HasRecordedRequests(n int) error {
	recorded := s.Requests()
	if len(recorded) == n {
		return nil
	}
	return &AssertionError{
		Expected: n,
		Actual:   len(recorded),
		Recorded: describe(recorded),
	}
}

// ARequestTo starts an expectation for a request with the given method to
// route. Route is an absolute URL or a path, with or without a leading "/".
func (s *Spy) ARequestTo(method, route string) *Expectation {
	return newExpectation(s, method, route)
}

func (s *Spy) AGetRequestTo(route string) *Expectation {
	return s.ARequestTo(http.MethodGet, route)
}

func (s *Spy) APostRequestTo(route string) *Expectation {
	return s.ARequestTo(http.MethodPost, route)
}

func (s *Spy) APutRequestTo(route string) *Expectation {
	return s.ARequestTo(http.MethodPut, route)
}

func (s *Spy) APatchRequestTo(route string) *Expectation {
	return s.ARequestTo(http.MethodPatch, route)
}

func (s *Spy) ADeleteRequestTo(route string) *Expectation {
	return s.ARequestTo(http.MethodDelete, route)
}

func (s *Spy) AHeadRequestTo(route string) *Expectation {
	return s.ARequestTo(http.MethodHead, route)
}

func (s *Spy) AnOptionsRequestTo(route string) *Expectation {
	return s.ARequestTo(http.MethodOptions, route)
}

func describe(requests []*RecordedRequest) []string {
	out := make([]string, len(requests))
	for i, r := range requests {
		out[i] = r.String()
	}
	return out
}
