package replay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/httpspy/packages/spy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordings(t *testing.T) []*spy.RecordedRequest {
	t.Helper()
	s := spy.New(spy.Detached(), spy.WithRedactedHeaders("Authorization"))

	get, err := http.NewRequest(http.MethodGet, "http://recorded.local/items?page=1", nil)
	require.NoError(t, err)
	get.Header.Set("Authorization", "Bearer secret")
	get.Header.Set("X-Trace", "abc")
	require.NoError(t, s.Record(get))

	post, err := http.NewRequest(http.MethodPost, "http://recorded.local/items", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, err)
	require.NoError(t, s.Record(post))

	missing, err := http.NewRequest(http.MethodGet, "http://recorded.local/missing", nil)
	require.NoError(t, err)
	require.NoError(t, s.Record(missing))

	return s.Requests()
}

type seen struct {
	mu       sync.Mutex
	requests []string
	bodies   []string
	auth     []string
}

func newServer(t *testing.T, got *seen) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got.mu.Lock()
		got.requests = append(got.requests, r.Method+" "+r.URL.RequestURI())
		got.bodies = append(got.bodies, string(body))
		got.auth = append(got.auth, r.Header.Get("Authorization"))
		got.mu.Unlock()

		if r.URL.Path == "/api/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestReplayer_Run(t *testing.T) {
	got := &seen{}
	srv := newServer(t, got)

	r := New(WithTargetURL(srv.URL + "/api"))
	summary, err := r.Run(context.Background(), recordings(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"GET /api/items?page=1", "POST /api/items", "GET /api/missing"}, got.requests)
	assert.Equal(t, `{"name":"x"}`, got.bodies[1])
	assert.Empty(t, got.auth[0], "redacted headers are not replayed")

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 0, summary.Errors)
	assert.Equal(t, map[int]int{200: 2, 404: 1}, summary.StatusCodes)
	assert.Len(t, summary.Routes, 3)
	assert.Positive(t, summary.Latency.Max)
	assert.LessOrEqual(t, summary.Latency.P50, summary.Latency.Max)
}

func TestReplayer_RecordsIntoContextSpy(t *testing.T) {
	got := &seen{}
	srv := newServer(t, got)

	s := spy.New(spy.Detached())
	ctx := spy.NewContext(context.Background(), s)

	_, err := New(WithTargetURL(srv.URL)).Run(ctx, recordings(t))
	require.NoError(t, err)

	assert.NoError(t, s.APostRequestTo(srv.URL+"/items").OccurredOnce())
	assert.NoError(t, s.AGetRequestTo("/items").WithQueryParam("page", "1").OccurredOnce())
}

func TestReplayer_RateLimit(t *testing.T) {
	got := &seen{}
	srv := newServer(t, got)

	start := time.Now()
	_, err := New(WithTargetURL(srv.URL), WithRate(20)).Run(context.Background(), recordings(t))
	require.NoError(t, err)

	// burst of one: the 2nd and 3rd request wait 50ms each
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestReplayer_Concurrency(t *testing.T) {
	got := &seen{}
	srv := newServer(t, got)

	summary, err := New(WithTargetURL(srv.URL), WithConcurrency(3)).Run(context.Background(), recordings(t))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Len(t, got.requests, 3)
}

func TestReplayer_ConnectionErrors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	summary, err := New(WithTargetURL(target), WithTimeout(time.Second)).Run(context.Background(), recordings(t))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Errors)
	assert.Empty(t, summary.StatusCodes)
}

func TestReplayer_Cancelled(t *testing.T) {
	got := &seen{}
	srv := newServer(t, got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := New(WithTargetURL(srv.URL), WithRate(1)).Run(ctx, recordings(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Total)
}

func TestReplayer_InvalidTarget(t *testing.T) {
	_, err := New().Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoTarget)

	_, err = New(WithTargetURL("not-a-url")).Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestRewrite(t *testing.T) {
	rec := recordings(t)[0]
	target, _ := url.Parse("https://user:pw@staging.local:8443/v2/")

	req := Rewrite(rec, target)
	assert.Equal(t, "https://user:pw@staging.local:8443/v2/items?page=1", req.URL.String())
	assert.Equal(t, "staging.local:8443", req.Host)
	assert.Empty(t, req.Header.Get("Authorization"))
	assert.Equal(t, "abc", req.Header.Get("X-Trace"))

	// the recording itself is untouched
	assert.Equal(t, "recorded.local", rec.URL().Host)
}

func TestMetrics_Summary(t *testing.T) {
	m := NewMetrics()
	m.Start()
	m.Record("GET /a", 200, 10*time.Millisecond, nil)
	m.Record("GET /a", 500, 30*time.Millisecond, nil)
	m.Record("GET /b", 0, time.Millisecond, assert.AnError)
	m.Stop()

	s := m.Summary()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, map[int]int{200: 1, 500: 1}, s.StatusCodes)
	require.Len(t, s.Routes, 2)
	assert.Equal(t, "GET /a", s.Routes[0].Route)
	assert.Equal(t, 1, s.Routes[1].Errors)
	assert.InDelta(t, float64(30*time.Millisecond), float64(s.Latency.Max), float64(time.Millisecond))
	assert.Equal(t, Latency{}, s.Routes[1].Latency)
}
