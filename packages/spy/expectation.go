package spy

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/abdul-hamid-achik/httpspy/packages/assertions"
	"github.com/abdul-hamid-achik/httpspy/packages/query"
)

// Expectation describes a request pattern to look for among the recorded
// requests. Constraints are conjunctive. Nothing is evaluated until a
// terminal method (Count, OccurredOnce, ...) is called.
type Expectation struct {
	spy    *Spy
	method string
	route  route

	// whole-query constraint, the last one set wins
	query     *query.Set
	queryDesc string

	params  []valueConstraint
	headers []valueConstraint
	bodies  []bodyConstraint
}

// valueConstraint requires key to be present and, when hasValue is set,
// to carry value.
type valueConstraint struct {
	key      string
	value    string
	hasValue bool
}

func (c valueConstraint) String() string {
	if c.hasValue {
		return fmt.Sprintf("%s=%s", c.key, c.value)
	}
	return c.key
}

type bodyConstraint struct {
	desc  string
	check func(body []byte) *assertions.Result
}

func newExpectation(s *Spy, method, rawRoute string) *Expectation {
	e := &Expectation{
		spy:    s,
		method: strings.ToUpper(method),
		route:  parseRoute(rawRoute),
	}
	if e.route.query != "" {
		e.WithQuery(e.route.query)
	}
	return e
}

// WithQuery requires the recorded query to equal raw, ignoring pair order.
func (e *Expectation) WithQuery(raw string) *Expectation {
	q := query.Parse(raw)
	e.query = &q
	e.queryDesc = q.String()
	return e
}

// WithQueryMap requires the recorded query to equal m. Comma-joined values
// stand for repeated keys: {"list": "a,b"} matches "list=a&list=b".
func (e *Expectation) WithQueryMap(m map[string]string) *Expectation {
	q := query.FromMap(m)
	e.query = &q
	e.queryDesc = q.String()
	return e
}

// WithQueryValues requires the recorded query to equal values.
func (e *Expectation) WithQueryValues(values url.Values) *Expectation {
	q := query.FromValues(values)
	e.query = &q
	e.queryDesc = q.String()
	return e
}

// WithQueryParam requires the query parameter key to be present and, when
// a value is given, to carry that value. Other parameters are ignored.
func (e *Expectation) WithQueryParam(key string, value ...string) *Expectation {
	e.params = append(e.params, newValueConstraint(key, value))
	return e
}

// WithHeader requires the header key to be present and, when a value is
// given, to carry that value.
func (e *Expectation) WithHeader(key string, value ...string) *Expectation {
	e.headers = append(e.headers, newValueConstraint(http.CanonicalHeaderKey(key), value))
	return e
}

// WithBody requires the recorded body to equal body exactly.
func (e *Expectation) WithBody(body string) *Expectation {
	e.bodies = append(e.bodies, bodyConstraint{
		desc: fmt.Sprintf("body %q", body),
		check: func(b []byte) *assertions.Result {
			return &assertions.Result{Passed: string(b) == body}
		},
	})
	return e
}

// WithBodyContaining requires the body to contain substr.
func (e *Expectation) WithBodyContaining(substr string) *Expectation {
	e.bodies = append(e.bodies, bodyConstraint{
		desc: fmt.Sprintf("body containing %q", substr),
		check: func(b []byte) *assertions.Result {
			return assertions.Contains(b, substr)
		},
	})
	return e
}

// WithJSONBody requires the JSON value at path in the body to equal expected.
func (e *Expectation) WithJSONBody(path string, expected any) *Expectation {
	e.bodies = append(e.bodies, bodyConstraint{
		desc: fmt.Sprintf("json %s=%v", path, expected),
		check: func(b []byte) *assertions.Result {
			return assertions.JSONPath(b, path, expected)
		},
	})
	return e
}

// WithBodySchema requires the body to validate against a JSON Schema, given
// inline or as a file path.
func (e *Expectation) WithBodySchema(schema string) *Expectation {
	e.bodies = append(e.bodies, bodyConstraint{
		desc: "body matching schema",
		check: func(b []byte) *assertions.Result {
			return assertions.Schema(b, schema)
		},
	})
	return e
}

func newValueConstraint(key string, value []string) valueConstraint {
	c := valueConstraint{key: key}
	if len(value) > 0 {
		c.value = value[0]
		c.hasValue = true
	}
	return c
}

// Matches reports whether r satisfies every constraint.
func (e *Expectation) Matches(r *RecordedRequest) bool {
	if !strings.EqualFold(r.method, e.method) {
		return false
	}
	if !e.route.matches(r.url) {
		return false
	}

	recorded := query.Parse(r.url.RawQuery)
	if e.query != nil && !e.query.Equal(recorded) {
		return false
	}
	for _, p := range e.params {
		if p.hasValue && !recorded.HasValue(p.key, p.value) {
			return false
		}
		if !p.hasValue && !recorded.Has(p.key) {
			return false
		}
	}

	for _, h := range e.headers {
		values, ok := r.header[h.key]
		if !ok {
			return false
		}
		if h.hasValue && !contains(values, h.value) {
			return false
		}
	}

	for _, b := range e.bodies {
		if !b.check(r.body).Passed {
			return false
		}
	}
	return true
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// Count returns how many recorded requests match.
func (e *Expectation) Count() int {
	return e.countIn(e.spy.Requests())
}

func (e *Expectation) countIn(recorded []*RecordedRequest) int {
	n := 0
	for _, r := range recorded {
		if e.Matches(r) {
			n++
		}
	}
	return n
}

func (e *Expectation) OccurredOnce() error {
	return e.OccurredNTimes(1)
}

func (e *Expectation) OccurredTwice() error {
	return e.OccurredNTimes(2)
}

func (e *Expectation) NeverOccurred() error {
	return e.OccurredNTimes(0)
}

// OccurredNTimes checks that exactly n recorded requests match.
func (e *Expectation) OccurredNTimes(n int) error {
	recorded := e.spy.Requests()
	actual := e.countIn(recorded)
	if actual == n {
		return nil
	}

	return &AssertionError{
		Method:      e.method,
		Route:       e.route.raw,
		Constraints: e.Constraints(),
		Expected:    n,
		Actual:      actual,
		Recorded:    describe(recorded),
	}
}

// Constraints describes the constraints beyond method and route.
func (e *Expectation) Constraints() []string {
	var out []string
	if e.query != nil {
		out = append(out, fmt.Sprintf("query %q", e.queryDesc))
	}
	for _, p := range e.params {
		out = append(out, "query param "+p.String())
	}
	for _, h := range e.headers {
		out = append(out, "header "+h.String())
	}
	for _, b := range e.bodies {
		out = append(out, b.desc)
	}
	return out
}
