// Package proxy provides a reverse proxy that records every request it
// forwards into a spy.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/httpspy/packages/export"
	"github.com/abdul-hamid-achik/httpspy/packages/spy"
)

// ErrNoTarget is returned when the proxy is started without a target URL.
var ErrNoTarget = errors.New("target URL is required")

// Recorder is an HTTP proxy that records requests
type Recorder struct {
	port      int
	targetURL string
	exclude   []string
	sanitize  []string // Headers to redact
	logger    *slog.Logger
	spy       *spy.Spy
}

// Option is a functional option for Recorder
type Option func(*Recorder)

// WithPort sets the proxy port
func WithPort(port int) Option {
	return func(r *Recorder) {
		r.port = port
	}
}

// WithTargetURL sets the target URL to proxy to
func WithTargetURL(target string) Option {
	return func(r *Recorder) {
		r.targetURL = target
	}
}

// WithLogger sets the logger for proxy events
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithExclude sets paths to exclude from recording. Excluded requests are
// still forwarded.
func WithExclude(paths []string) Option {
	return func(r *Recorder) {
		r.exclude = paths
	}
}

// WithSanitize sets headers to redact
func WithSanitize(headers []string) Option {
	return func(r *Recorder) {
		r.sanitize = headers
	}
}

// NewRecorder creates a new recording proxy
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		port:     8080,
		sanitize: []string{"Authorization", "Cookie", "X-Api-Key", "Api-Key"},
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	r.spy = spy.New(
		spy.Detached(),
		spy.WithLogger(r.logger),
		spy.WithRedactedHeaders(r.sanitize...),
	)
	return r
}

func (r *Recorder) target() (*url.URL, error) {
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

// Handler returns the proxying handler. Recorded URLs carry the target's
// scheme and host with the path and query as received.
func (r *Recorder) Handler() (http.Handler, error) {
	target, err := r.target()
	if err != nil {
		return nil, err
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.Host = target.Host
		},
		ModifyResponse: func(resp *http.Response) error {
			r.logger.Debug("proxied",
				slog.String("method", resp.Request.Method),
				slog.String("url", resp.Request.URL.String()),
				slog.Int("status", resp.StatusCode),
			)
			return nil
		},
		ErrorLog: slog.NewLogLogger(r.logger.Handler(), slog.LevelError),
	}

	recorded := spy.MiddlewareFor(r.spy, proxy)

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if r.shouldExclude(req.URL.Path) {
			r.logger.Debug("excluded", slog.String("method", req.Method), slog.String("path", req.URL.Path))
			proxy.ServeHTTP(w, req)
			return
		}

		req.URL.Scheme = target.Scheme
		req.URL.Host = target.Host
		recorded.ServeHTTP(w, req)
	}), nil
}

// StartWithContext serves the proxy until ctx is cancelled, then shuts the
// server down gracefully.
func (r *Recorder) StartWithContext(ctx context.Context) error {
	handler, err := r.Handler()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", r.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", r.port, err)
	}
	return r.Serve(ctx, ln, handler)
}

// Serve serves handler on ln until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	r.logger.Info("recording proxy started",
		slog.String("addr", ln.Addr().String()),
		slog.String("target", r.targetURL),
	)

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (r *Recorder) shouldExclude(path string) bool {
	for _, exclude := range r.exclude {
		if exclude != "" && strings.Contains(path, exclude) {
			return true
		}
	}
	return false
}

// Spy returns the spy the proxy records into, for assertions.
func (r *Recorder) Spy() *spy.Spy {
	return r.spy
}

// Requests returns all recorded requests
func (r *Recorder) Requests() []*spy.RecordedRequest {
	return r.spy.Requests()
}

// Clear clears all recordings
func (r *Recorder) Clear() {
	r.spy.Clear()
}

// Export writes the recordings to w in the given format
func (r *Recorder) Export(w io.Writer, format export.Format) error {
	return export.Write(w, format, r.Requests())
}
