// Package spy records outgoing HTTP requests and asserts on them.
//
// A Spy holds an ordered list of RecordedRequest snapshots. Snapshots are
// taken with From, which buffers the request body so it can be read any
// number of times afterwards. Interception code does not need a reference to
// the Spy: it looks up the active one with FromContext or Current, and
// Transport and Middleware already do that.
//
// Assertions are built fluently and evaluated by a terminal call:
//
//	s := spy.ForTest(t)
//	client := spy.NewClient(nil)
//	// ... exercise code that uses client ...
//	err := s.AGetRequestTo("/path/to/resource").
//		WithQueryParam("page", "2").
//		OccurredOnce()
//
// Terminal calls return nil on success and an *AssertionError otherwise;
// errors.Is(err, ErrAssertionMismatch) identifies spy failures.
package spy
