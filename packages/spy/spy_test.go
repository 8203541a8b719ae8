package spy

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const absoluteRoute = "http://domain/path/to/resource"

func registerRequest(t *testing.T, method, route string, payload any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = strings.NewReader(string(data))
	}

	req, err := http.NewRequest(method, route, body)
	require.NoError(t, err)

	record, err := From(req)
	require.NoError(t, err)
	Current().RecordRequest(record)
}

func registerGetRequest(t *testing.T, query string) {
	t.Helper()
	route := absoluteRoute
	if query != "" {
		if !strings.HasPrefix(query, "?") {
			query = "?" + query
		}
		route += query
	}
	registerRequest(t, http.MethodGet, route, nil)
}

func registerPostWithJSONPayload(t *testing.T) {
	t.Helper()
	registerRequest(t, http.MethodPost, absoluteRoute, map[string]string{"Property": "P"})
}

func TestFrom_ClonesRequestWithReplayableBody(t *testing.T) {
	req, err := http.NewRequest(http.MethodPost, absoluteRoute, io.NopCloser(strings.NewReader(`{"Property":"P"}`)))
	require.NoError(t, err)
	require.Nil(t, req.GetBody)

	record, err := From(req)
	require.NoError(t, err)

	first, err := io.ReadAll(record.Body())
	require.NoError(t, err)
	second, err := io.ReadAll(record.Body())
	require.NoError(t, err)
	assert.Equal(t, `{"Property":"P"}`, string(first))
	assert.Equal(t, first, second)

	clone := record.Request()
	assert.NotSame(t, req, clone)
	assert.NotSame(t, req.URL, clone.URL)
	assert.NotSame(t, req, record.Request())

	// the source request must still be sendable
	sourceBody, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"Property":"P"}`, string(sourceBody))

	cloneBody, err := io.ReadAll(clone.Body)
	require.NoError(t, err)
	assert.Equal(t, first, cloneBody)
}

func TestFrom_UsesGetBodyWithoutConsumingSource(t *testing.T) {
	req, err := http.NewRequest(http.MethodPut, absoluteRoute, strings.NewReader("payload"))
	require.NoError(t, err)

	record, err := From(req)
	require.NoError(t, err)
	assert.Equal(t, "payload", record.BodyString())

	sourceBody, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(sourceBody))
}

func TestFrom_NoBody(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, absoluteRoute, nil)
	require.NoError(t, err)

	record, err := From(req)
	require.NoError(t, err)
	assert.Empty(t, record.BodyBytes())
	assert.Equal(t, http.NoBody, record.Request().Body)
	assert.NotEmpty(t, record.ID())
	assert.False(t, record.Timestamp().IsZero())
	assert.Equal(t, "GET http://domain/path/to/resource", record.String())
}

func TestFrom_SnapshotIsImmutable(t *testing.T) {
	req, err := http.NewRequest(http.MethodPost, absoluteRoute+"?a=1", strings.NewReader("abc"))
	require.NoError(t, err)
	req.Header.Set("X-Trace", "1")

	record, err := From(req)
	require.NoError(t, err)

	req.Header.Set("X-Trace", "2")
	req.URL.Path = "/changed"
	record.Header().Set("X-Trace", "3")
	record.URL().Path = "/changed"
	record.BodyBytes()[0] = 'z'

	assert.Equal(t, "1", record.Header().Get("X-Trace"))
	assert.Equal(t, "/path/to/resource", record.URL().Path)
	assert.Equal(t, "abc", record.BodyString())
}

type failingReader struct {
	err error
}

func (f *failingReader) Read(_ []byte) (int, error) {
	return 0, f.err
}

func TestFrom_BodyReadErrorPropagates(t *testing.T) {
	readErr := errors.New("connection reset")
	req, err := http.NewRequest(http.MethodPost, absoluteRoute, &failingReader{err: readErr})
	require.NoError(t, err)

	_, err = From(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, readErr)
}

func TestRestore(t *testing.T) {
	record, err := Restore(Snapshot{
		Method: http.MethodDelete,
		URL:    absoluteRoute,
		Header: http.Header{"A": {"b"}},
		Body:   []byte("x"),
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, record.Method())
	assert.Equal(t, "b", record.Header().Get("A"))
	assert.Equal(t, "x", record.BodyString())
	assert.NotEmpty(t, record.ID())
	assert.False(t, record.Timestamp().IsZero())

	snap := record.Snapshot()
	restored, err := Restore(snap)
	require.NoError(t, err)
	assert.Equal(t, record.ID(), restored.ID())
	assert.True(t, record.Timestamp().Equal(restored.Timestamp()))
	assert.Equal(t, absoluteRoute, snap.URL)

	_, err = Restore(Snapshot{Method: http.MethodGet, URL: "http://[::1"})
	assert.Error(t, err)
}

func TestSpy_RecordManyRequests(t *testing.T) {
	s := ForTest(t)

	registerGetRequest(t, "")
	registerPostWithJSONPayload(t)

	assert.NoError(t, s.HasRecordedRequests(2))

	err := s.HasRecordedRequests(3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssertionMismatch)
	assert.Contains(t, err.Error(), "expected 3 recorded request(s), got 2")
}

func TestSpy_GetRequestSent(t *testing.T) {
	s := ForTest(t)

	registerGetRequest(t, "")

	assert.NoError(t, s.AGetRequestTo("/path/to/resource").OccurredOnce())
	assert.NoError(t, s.AGetRequestTo("path/to/resource").OccurredOnce())
	assert.NoError(t, s.AGetRequestTo(absoluteRoute).OccurredOnce())
	assert.NoError(t, s.AGetRequestTo("/path/to/other/resource").NeverOccurred())
}

func TestSpy_FailsWhenNoRequestRecorded(t *testing.T) {
	s := ForTest(t)

	err := s.AGetRequestTo("/path/to/other/resource").OccurredOnce()
	require.Error(t, err)

	var assertionErr *AssertionError
	require.ErrorAs(t, err, &assertionErr)
	assert.Equal(t, 1, assertionErr.Expected)
	assert.Equal(t, 0, assertionErr.Actual)
	assert.Contains(t, err.Error(), "no requests were recorded")
}

func TestSpy_FailsWhenExpectedRequestNotSent(t *testing.T) {
	s := ForTest(t)

	registerGetRequest(t, "")
	registerPostWithJSONPayload(t)

	err := s.AGetRequestTo("/path/to/other/resource").OccurredOnce()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssertionMismatch)
	assert.Contains(t, err.Error(), "expected a GET request to /path/to/other/resource to occur once, but it never occurred")
	assert.Contains(t, err.Error(), "POST http://domain/path/to/resource")
}

func TestSpy_AbsoluteRouteDoesNotMatchOtherHost(t *testing.T) {
	s := ForTest(t)

	registerGetRequest(t, "")

	assert.NoError(t, s.AGetRequestTo("http://other/path/to/resource").NeverOccurred())
	assert.NoError(t, s.AGetRequestTo("HTTP://DOMAIN/path/to/resource").OccurredOnce())
}

func TestSpy_GetRequestSentTwice(t *testing.T) {
	s := ForTest(t)

	registerGetRequest(t, "")
	registerGetRequest(t, "")

	assert.NoError(t, s.AGetRequestTo("/path/to/resource").OccurredTwice())
	assert.NoError(t, s.AGetRequestTo("/path/to/resource").OccurredNTimes(2))
	assert.Equal(t, 2, s.AGetRequestTo("/path/to/resource").Count())

	err := s.AGetRequestTo("/path/to/resource").OccurredOnce()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "to occur once, but it occurred twice")

	err = s.AGetRequestTo("/path/to/resource").NeverOccurred()
	assert.ErrorIs(t, err, ErrAssertionMismatch)
	assert.Contains(t, err.Error(), "never to occur, but it occurred twice")
}

func TestSpy_VerbFactories(t *testing.T) {
	s := ForTest(t)

	registerPostWithJSONPayload(t)
	registerRequest(t, http.MethodDelete, absoluteRoute, nil)
	registerRequest(t, http.MethodPut, absoluteRoute, nil)
	registerRequest(t, http.MethodPatch, absoluteRoute, nil)
	registerRequest(t, http.MethodHead, absoluteRoute, nil)
	registerRequest(t, http.MethodOptions, absoluteRoute, nil)
	registerRequest(t, "PURGE", absoluteRoute, nil)

	assert.NoError(t, s.APostRequestTo("/path/to/resource").OccurredOnce())
	assert.NoError(t, s.APostRequestTo("path/to/resource").OccurredOnce())
	assert.NoError(t, s.ADeleteRequestTo("/path/to/resource").OccurredOnce())
	assert.NoError(t, s.APutRequestTo("/path/to/resource").OccurredOnce())
	assert.NoError(t, s.APatchRequestTo("/path/to/resource").OccurredOnce())
	assert.NoError(t, s.AHeadRequestTo("/path/to/resource").OccurredOnce())
	assert.NoError(t, s.AnOptionsRequestTo("/path/to/resource").OccurredOnce())
	assert.NoError(t, s.ARequestTo("purge", "/path/to/resource").OccurredOnce())
	assert.NoError(t, s.AGetRequestTo("/path/to/resource").NeverOccurred())
}

func TestSpy_WithQuery(t *testing.T) {
	s := ForTest(t)

	registerGetRequest(t, "param=1&param2=value")

	assert.NoError(t, s.AGetRequestTo("/path/to/resource").WithQuery("param2=value&param=1").OccurredOnce())
	assert.NoError(t, s.AGetRequestTo("/path/to/resource").WithQuery("?param=1&param2=value").OccurredOnce())
	assert.NoError(t, s.AGetRequestTo("/path/to/resource?param2=value&param=1").OccurredOnce())
	assert.NoError(t, s.AGetRequestTo("/path/to/resource").WithQuery("param=1").NeverOccurred())
}

func TestSpy_WithQueryMap(t *testing.T) {
	s := ForTest(t)

	registerGetRequest(t, "param=1&param2=value&list=a&list=b")

	err := s.AGetRequestTo("/path/to/resource").
		WithQueryMap(map[string]string{
			"param":  "1",
			"param2": "value",
			"list":   "a,b",
		}).
		OccurredOnce()
	assert.NoError(t, err)
}

func TestSpy_FailsWhenQueryDoesNotMatch(t *testing.T) {
	s := ForTest(t)

	registerGetRequest(t, "param=1&param2=hello")

	err := s.AGetRequestTo("/path/to/resource").
		WithQueryMap(map[string]string{"param": "2"}).
		OccurredOnce()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssertionMismatch)
	assert.Contains(t, err.Error(), `with query "param=2"`)
}

func TestSpy_WithQueryParam(t *testing.T) {
	s := ForTest(t)

	registerGetRequest(t, "param=1&param2=hello")

	assert.NoError(t, s.AGetRequestTo("/path/to/resource").WithQueryParam("param2", "hello").OccurredOnce())
	assert.NoError(t, s.AGetRequestTo("/path/to/resource").WithQueryParam("param").OccurredOnce())
	assert.NoError(t, s.AGetRequestTo("/path/to/resource").WithQueryParam("missing").NeverOccurred())

	err := s.AGetRequestTo("/path/to/resource").WithQueryParam("param", "2").OccurredOnce()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query param param=2")
}

func TestSpy_QueryConstraintsCompose(t *testing.T) {
	s := ForTest(t)

	registerGetRequest(t, "param=1&param2=hello")

	assert.NoError(t, s.AGetRequestTo("/path/to/resource").
		WithQuery("param=1&param2=hello").
		WithQueryParam("param", "1").
		OccurredOnce())

	assert.NoError(t, s.AGetRequestTo("/path/to/resource").
		WithQuery("param=1&param2=hello").
		WithQueryParam("param", "2").
		NeverOccurred())

	// the last whole-query constraint wins
	assert.NoError(t, s.AGetRequestTo("/path/to/resource").
		WithQuery("param=9").
		WithQuery("param2=hello&param=1").
		OccurredOnce())
}

func TestSpy_WithHeaderAndBody(t *testing.T) {
	s := ForTest(t)

	req, err := http.NewRequest(http.MethodPost, absoluteRoute, strings.NewReader(`{"Property":"P","count":2}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	require.NoError(t, s.Record(req))

	assert.NoError(t, s.APostRequestTo("/path/to/resource").WithHeader("content-type").OccurredOnce())
	assert.NoError(t, s.APostRequestTo("/path/to/resource").WithHeader("Content-Type", "application/json").OccurredOnce())
	assert.NoError(t, s.APostRequestTo("/path/to/resource").WithHeader("Content-Type", "text/plain").NeverOccurred())

	assert.NoError(t, s.APostRequestTo("/path/to/resource").WithBody(`{"Property":"P","count":2}`).OccurredOnce())
	assert.NoError(t, s.APostRequestTo("/path/to/resource").WithJSONBody("Property", "P").WithJSONBody("count", 2).OccurredOnce())
	assert.NoError(t, s.APostRequestTo("/path/to/resource").WithJSONBody("Property", "Q").NeverOccurred())
	assert.NoError(t, s.APostRequestTo("/path/to/resource").
		WithBodySchema(`{"type":"object","required":["Property"]}`).
		OccurredOnce())
}

func TestSpy_RedactedHeaders(t *testing.T) {
	s := New(Detached(), WithRedactedHeaders("Authorization"))

	req, err := http.NewRequest(http.MethodGet, absoluteRoute, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Accept", "application/json")
	require.NoError(t, s.Record(req))

	recorded := s.Requests()
	require.Len(t, recorded, 1)
	assert.Equal(t, "<redacted>", recorded[0].Header().Get("Authorization"))
	assert.Equal(t, "application/json", recorded[0].Header().Get("Accept"))
	assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
}

func TestSpy_Clear(t *testing.T) {
	s := New(Detached())
	require.NoError(t, s.Record(httpRequest(t, http.MethodGet, absoluteRoute)))
	s.Clear()
	assert.NoError(t, s.HasRecordedRequests(0))
}

func TestSpy_NilSpyRecordIsNoop(t *testing.T) {
	var s *Spy
	assert.NotPanics(t, func() {
		s.RecordRequest(nil)
	})
}

func httpRequest(t *testing.T, method, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	return req
}

func TestSpy_EscapedPathMatchesInEveryForm(t *testing.T) {
	s := New(Detached())
	require.NoError(t, s.Record(httpRequest(t, http.MethodGet, "http://domain/a%20b/c")))

	assert.NoError(t, s.AGetRequestTo("http://domain/a b/c").OccurredOnce())
	assert.NoError(t, s.AGetRequestTo("/a b/c").OccurredOnce())
	assert.NoError(t, s.AGetRequestTo("/a%20b/c").OccurredOnce())
	assert.NoError(t, s.AGetRequestTo("a b/c").OccurredOnce())
	assert.NoError(t, s.AGetRequestTo("/a+b/c").NeverOccurred())
}

func TestSpy_AbsoluteRouteIgnoresDefaultPort(t *testing.T) {
	s := New(Detached())
	require.NoError(t, s.Record(httpRequest(t, http.MethodGet, "http://domain/x")))
	require.NoError(t, s.Record(httpRequest(t, http.MethodGet, "https://secure:443/y")))

	assert.NoError(t, s.AGetRequestTo("http://domain:80/x").OccurredOnce())
	assert.NoError(t, s.AGetRequestTo("https://secure/y").OccurredOnce())
	assert.NoError(t, s.AGetRequestTo("http://domain:8080/x").NeverOccurred())
	assert.NoError(t, s.AGetRequestTo("https://domain:80/x").NeverOccurred())
}

func TestSpy_WithBodyContaining(t *testing.T) {
	s := New(Detached())
	req, err := http.NewRequest(http.MethodPost, absoluteRoute, strings.NewReader(`{"Property":"P"}`))
	require.NoError(t, err)
	require.NoError(t, s.Record(req))

	assert.NoError(t, s.APostRequestTo("/path/to/resource").WithBodyContaining(`"Property"`).OccurredOnce())
	err = s.APostRequestTo("/path/to/resource").WithBodyContaining("missing").OccurredOnce()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `body containing "missing"`)
}

func TestSpy_NilSpyAssertionsFail(t *testing.T) {
	var s *Spy
	assert.Nil(t, s.Requests())
	assert.NoError(t, s.AGetRequestTo("/path").NeverOccurred())

	var err error
	assert.NotPanics(t, func() {
		err = s.AGetRequestTo("/path").OccurredOnce()
	})
	var assertionErr *AssertionError
	require.ErrorAs(t, err, &assertionErr)
	assert.Equal(t, 0, assertionErr.Actual)
}
