package verify

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/abdul-hamid-achik/httpspy/packages/spy"
	"gopkg.in/yaml.v3"
)

// ErrInvalidExpectations is returned when an expectations file cannot be
// parsed or fails validation.
var ErrInvalidExpectations = errors.New("invalid expectations")

// File is a parsed expectations file.
type File struct {
	Path         string        `yaml:"-"`
	Expectations []Expectation `yaml:"expectations"`
}

// Expectation is one declarative assertion. Times defaults to 1 unless
// Never is set.
type Expectation struct {
	Name         string              `yaml:"name,omitempty"`
	Method       string              `yaml:"method"`
	Route        string              `yaml:"route"`
	Query        string              `yaml:"query,omitempty"`
	QueryMap     map[string]string   `yaml:"queryMap,omitempty"`
	QueryParams  map[string][]string `yaml:"queryParams,omitempty"`
	Headers      map[string][]string `yaml:"headers,omitempty"`
	Body         string              `yaml:"body,omitempty"`
	BodyContains []string            `yaml:"bodyContains,omitempty"`
	JSONBody     []JSONAssertion     `yaml:"jsonBody,omitempty"`
	Schema       string              `yaml:"schema,omitempty"`
	Times        *int                `yaml:"times,omitempty"`
	Never        bool                `yaml:"never,omitempty"`
}

// JSONAssertion compares the value at a JSON path of the body.
type JSONAssertion struct {
	Path   string `yaml:"path"`
	Equals any    `yaml:"equals"`
}

// Load reads and validates an expectations file. Relative schema paths are
// resolved against the file's directory.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read expectations: %w", err)
	}

	f, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Path = path

	dir := filepath.Dir(path)
	for i := range f.Expectations {
		schema := f.Expectations[i].Schema
		if schema != "" && !isInlineJSON(schema) && !filepath.IsAbs(schema) {
			f.Expectations[i].Schema = filepath.Join(dir, schema)
		}
	}
	return f, nil
}

// Parse decodes and validates expectations from r.
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidExpectations)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpectations, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks every expectation for required fields and conflicting
// options.
func (f *File) Validate() error {
	if len(f.Expectations) == 0 {
		return fmt.Errorf("%w: no expectations defined", ErrInvalidExpectations)
	}

	var errs []error
	for i, e := range f.Expectations {
		label := e.Label(i)
		if strings.TrimSpace(e.Method) == "" {
			errs = append(errs, fmt.Errorf("%s: method is required", label))
		}
		if strings.TrimSpace(e.Route) == "" {
			errs = append(errs, fmt.Errorf("%s: route is required", label))
		}
		if e.Query != "" && e.QueryMap != nil {
			errs = append(errs, fmt.Errorf("%s: query and queryMap are mutually exclusive", label))
		}
		if e.Never && e.Times != nil && *e.Times != 0 {
			errs = append(errs, fmt.Errorf("%s: never conflicts with times: %d", label, *e.Times))
		}
		if e.Times != nil && *e.Times < 0 {
			errs = append(errs, fmt.Errorf("%s: times must not be negative", label))
		}
		for _, j := range e.JSONBody {
			if strings.TrimSpace(j.Path) == "" {
				errs = append(errs, fmt.Errorf("%s: jsonBody entry without path", label))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidExpectations, errors.Join(errs...))
	}
	return nil
}

// Label names the expectation for reports, falling back to its method and
// route.
func (e Expectation) Label(index int) string {
	if e.Name != "" {
		return e.Name
	}
	if e.Method == "" && e.Route == "" {
		return fmt.Sprintf("expectation #%d", index+1)
	}
	return fmt.Sprintf("%s %s", strings.ToUpper(e.Method), e.Route)
}

// ExpectedTimes is the occurrence count the expectation asserts.
func (e Expectation) ExpectedTimes() int {
	if e.Never {
		return 0
	}
	if e.Times == nil {
		return 1
	}
	return *e.Times
}

// Build turns the declaration into a spy expectation on s.
func (e Expectation) Build(s *spy.Spy) *spy.Expectation {
	exp := s.ARequestTo(e.Method, e.Route)

	if e.Query != "" {
		exp.WithQuery(e.Query)
	}
	if e.QueryMap != nil {
		exp.WithQueryMap(e.QueryMap)
	}
	// a key with several values requires each of them
	for _, key := range sortedKeys(e.QueryParams) {
		if len(e.QueryParams[key]) == 0 {
			exp.WithQueryParam(key)
		}
		for _, v := range e.QueryParams[key] {
			exp.WithQueryParam(key, v)
		}
	}
	for _, key := range sortedKeys(e.Headers) {
		if len(e.Headers[key]) == 0 {
			exp.WithHeader(key)
		}
		for _, v := range e.Headers[key] {
			exp.WithHeader(key, v)
		}
	}
	if e.Body != "" {
		exp.WithBody(e.Body)
	}
	for _, substr := range e.BodyContains {
		exp.WithBodyContaining(substr)
	}
	for _, j := range e.JSONBody {
		exp.WithJSONBody(j.Path, j.Equals)
	}
	if e.Schema != "" {
		exp.WithBodySchema(e.Schema)
	}
	return exp
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func isInlineJSON(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}
