// Package replay re-sends recorded requests to a target server at a
// controlled rate and summarizes the responses and their latency.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/httpspy/packages/spy"
	"golang.org/x/time/rate"
)

// ErrNoTarget is returned when no target URL is configured.
var ErrNoTarget = errors.New("target URL is required")

// Replayer sends recorded requests to a target server
type Replayer struct {
	targetURL   string
	client      *http.Client
	limiter     *rate.Limiter
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger
}

// Option is a functional option for Replayer
type Option func(*Replayer)

// WithTargetURL sets the server the requests are sent to. The recorded
// path and query are kept; scheme and host are replaced.
func WithTargetURL(target string) Option {
	return func(r *Replayer) {
		r.targetURL = target
	}
}

// WithRate limits the replay to rps requests per second. Zero means
// unlimited.
func WithRate(rps float64) Option {
	return func(r *Replayer) {
		if rps > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			r.limiter = nil
		}
	}
}

// WithConcurrency sets how many requests may be in flight at once
func WithConcurrency(n int) Option {
	return func(r *Replayer) {
		r.concurrency = n
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(r *Replayer) {
		r.timeout = d
	}
}

// WithClient sets the HTTP client used to send requests
func WithClient(c *http.Client) Option {
	return func(r *Replayer) {
		r.client = c
	}
}

// WithLogger sets the logger for replay events
func WithLogger(logger *slog.Logger) Option {
	return func(r *Replayer) {
		r.logger = logger
	}
}

// New creates a Replayer. The default client records into the spy bound to
// the Run context, if any.
func New(opts ...Option) *Replayer {
	r := &Replayer{
		client:      spy.NewClient(nil),
		concurrency: 1,
		timeout:     30 * time.Second,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.concurrency < 1 {
		r.concurrency = 1
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.client == nil {
		r.client = spy.NewClient(nil)
	}
	return r
}

func (r *Replayer) target() (*url.URL, error) {
	if r.targetURL == "" {
		return nil, ErrNoTarget
	}
	target, err := url.Parse(r.targetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid target URL: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid target URL %q: scheme and host are required", r.targetURL)
	}
	return target, nil
}

// Run sends requests in recorded order. With concurrency above one,
// requests are started in order but may complete out of order. When ctx is
// cancelled the requests already sent are summarized and ctx.Err() is
// returned.
func (r *Replayer) Run(ctx context.Context, requests []*spy.RecordedRequest) (*Summary, error) {
	target, err := r.target()
	if err != nil {
		return nil, err
	}

	metrics := NewMetrics()
	metrics.Start()

	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup

loop:
	for _, rec := range requests {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				break loop
			}
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break loop
		}

		wg.Add(1)
		go func(rec *spy.RecordedRequest) {
			defer wg.Done()
			defer func() { <-sem }()
			r.send(ctx, target, rec, metrics)
		}(rec)
	}

	wg.Wait()
	metrics.Stop()

	return metrics.Summary(), ctx.Err()
}

func (r *Replayer) send(ctx context.Context, target *url.URL, rec *spy.RecordedRequest, metrics *Metrics) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req := Rewrite(rec, target).WithContext(ctx)
	route := rec.Method() + " " + rec.URL().Path

	start := time.Now()
	resp, err := r.client.Do(req)
	duration := time.Since(start)

	if err != nil {
		r.logger.Debug("replay failed", slog.String("route", route), slog.Any("error", err))
		metrics.Record(route, 0, duration, err)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	r.logger.Debug("replayed",
		slog.String("route", route),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", duration),
	)
	metrics.Record(route, resp.StatusCode, duration, nil)
}

// Rewrite rebuilds rec as a request to target. Headers that were redacted
// when recorded are dropped.
func Rewrite(rec *spy.RecordedRequest, target *url.URL) *http.Request {
	req := rec.Request()

	req.URL.Scheme = target.Scheme
	req.URL.Host = target.Host
	req.URL.User = target.User
	if prefix := strings.TrimSuffix(target.Path, "/"); prefix != "" {
		req.URL.Path = prefix + req.URL.Path
		req.URL.RawPath = ""
	}
	req.Host = target.Host

	for key, values := range req.Header {
		if len(values) == 1 && values[0] == spy.RedactedValue {
			req.Header.Del(key)
		}
	}
	return req
}
