package spy

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// RecordedRequest is an immutable snapshot of a sent request. Accessors
// return copies, so callers cannot alter what was recorded.
type RecordedRequest struct {
	id        string
	timestamp time.Time
	method    string
	url       *url.URL
	header    http.Header
	body      []byte
}

// From captures req. The body is read in full and req.Body is replaced with
// an equivalent reader so the request can still be sent. Server-side requests
// carrying only a path get their scheme and host from the request.
func From(req *http.Request) (*RecordedRequest, error) {
	body, err := readBody(req)
	if err != nil {
		return nil, err
	}

	u := *req.URL
	if u.Host == "" && req.Host != "" {
		u.Host = req.Host
		u.Scheme = "http"
		if req.TLS != nil {
			u.Scheme = "https"
		}
	}

	return &RecordedRequest{
		id:        uuid.New().String(),
		timestamp: time.Now(),
		method:    req.Method,
		url:       &u,
		header:    req.Header.Clone(),
		body:      body,
	}, nil
}

// Snapshot is the plain data of a RecordedRequest, used to persist and
// restore recordings.
type Snapshot struct {
	ID        string
	Timestamp time.Time
	Method    string
	URL       string
	Header    http.Header
	Body      []byte
}

// Restore builds a RecordedRequest from persisted data. A missing ID or
// timestamp is generated.
func Restore(snap Snapshot) (*RecordedRequest, error) {
	u, err := url.Parse(snap.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid recorded URL %q: %w", snap.URL, err)
	}

	r := &RecordedRequest{
		id:        snap.ID,
		timestamp: snap.Timestamp,
		method:    snap.Method,
		url:       u,
		header:    snap.Header.Clone(),
		body:      bytes.Clone(snap.Body),
	}
	if r.id == "" {
		r.id = uuid.New().String()
	}
	if r.timestamp.IsZero() {
		r.timestamp = time.Now()
	}
	return r, nil
}

// Snapshot returns a copy of the recorded data.
func (r *RecordedRequest) Snapshot() Snapshot {
	return Snapshot{
		ID:        r.id,
		Timestamp: r.timestamp,
		Method:    r.method,
		URL:       r.url.String(),
		Header:    r.Header(),
		Body:      r.BodyBytes(),
	}
}

func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}

	if req.GetBody != nil {
		rc, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		return b, nil
	}

	b, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	req.Body = io.NopCloser(bytes.NewReader(b))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
	return b, nil
}

// withHeader returns a copy of r with header replaced.
func (r *RecordedRequest) withHeader(header http.Header) *RecordedRequest {
	c := *r
	c.header = header
	return &c
}

// ID uniquely identifies the snapshot.
func (r *RecordedRequest) ID() string { return r.id }

// Timestamp is when the snapshot was taken.
func (r *RecordedRequest) Timestamp() time.Time { return r.timestamp }

func (r *RecordedRequest) Method() string { return r.method }

// URL returns a copy of the absolute request URL.
func (r *RecordedRequest) URL() *url.URL {
	u := *r.url
	return &u
}

func (r *RecordedRequest) Header() http.Header { return r.header.Clone() }

// Body returns a fresh reader over the buffered body.
func (r *RecordedRequest) Body() io.ReadCloser {
	return io.NopCloser(bytes.NewReader(r.body))
}

func (r *RecordedRequest) BodyBytes() []byte { return bytes.Clone(r.body) }

func (r *RecordedRequest) BodyString() string { return string(r.body) }

// Request rebuilds an *http.Request from the snapshot. Each call returns a
// new request with its own body reader.
func (r *RecordedRequest) Request() *http.Request {
	req := &http.Request{
		Method:     r.method,
		URL:        r.URL(),
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     r.Header(),
		Host:       r.url.Host,
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if len(r.body) > 0 {
		req.Body = r.Body()
		req.ContentLength = int64(len(r.body))
		req.GetBody = func() (io.ReadCloser, error) { return r.Body(), nil }
	} else {
		req.Body = http.NoBody
	}
	return req
}

// String renders the snapshot as "METHOD URL".
func (r *RecordedRequest) String() string {
	return r.method + " " + r.url.String()
}
