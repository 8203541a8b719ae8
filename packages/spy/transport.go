package spy

import (
	"net/http"
)

var _ http.RoundTripper = (*Transport)(nil)

// Transport is an http.RoundTripper that records every outgoing request into
// the spy found with FromContext, then hands the request to Next. When no spy
// is active the request is forwarded untouched.
type Transport struct {
	// Next defaults to http.DefaultTransport.
	Next http.RoundTripper
}

// NewClient returns an *http.Client whose requests go through a Transport
// wrapping next.
func NewClient(next http.RoundTripper) *http.Client {
	return &http.Client{Transport: &Transport{Next: next}}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.Next
	if next == nil {
		next = http.DefaultTransport
	}

	s := FromContext(req.Context())
	if s == nil {
		return next.RoundTrip(req)
	}

	// RoundTrip must not modify req, and capturing may swap the body.
	out := req.Clone(req.Context())
	if err := s.Record(out); err != nil {
		return nil, err
	}
	return next.RoundTrip(out)
}
