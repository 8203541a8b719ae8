// Package coverage reports which operations of an OpenAPI document were
// exercised by recorded requests, and which recorded requests match no
// documented operation.
package coverage

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/httpspy/packages/spy"
	"github.com/getkin/kin-openapi/openapi3"
)

// Report represents an API coverage report.
type Report struct {
	TotalEndpoints   int                   `json:"totalEndpoints"`
	CoveredEndpoints int                   `json:"coveredEndpoints"`
	CoveragePercent  float64               `json:"coveragePercent"`
	ByTag            map[string]*TagReport `json:"byTag,omitempty"`
	Endpoints        []EndpointStatus      `json:"endpoints"`
	Undocumented     []string              `json:"undocumented,omitempty"`
}

// TagReport represents coverage for a specific tag.
type TagReport struct {
	Tag              string  `json:"tag"`
	TotalEndpoints   int     `json:"totalEndpoints"`
	CoveredEndpoints int     `json:"coveredEndpoints"`
	CoveragePercent  float64 `json:"coveragePercent"`
}

// EndpointStatus represents the coverage status of an endpoint.
type EndpointStatus struct {
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	OperationID string   `json:"operationId,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Covered     bool     `json:"covered"`
	Requests    int      `json:"requests"`
}

// Analyzer analyzes API coverage against an OpenAPI document.
type Analyzer struct {
	endpoints []Endpoint
	basePaths []string
}

// Endpoint represents an API operation from the OpenAPI document.
type Endpoint struct {
	Method      string
	Path        string
	OperationID string
	Tags        []string

	pattern *regexp.Regexp
	params  int
}

var (
	pathParam = regexp.MustCompile(`\{[^}]+\}`)
	// matches a path parameter after regexp.QuoteMeta escaped its braces
	quotedPathParam = regexp.MustCompile(`\\\{[^}]+\\\}`)
)

// NewEndpoint builds an endpoint; path parameters such as {id} match one
// path segment.
func NewEndpoint(method, path, operationID string, tags ...string) Endpoint {
	quoted := quotedPathParam.ReplaceAllString(regexp.QuoteMeta(path), `[^/]+`)
	return Endpoint{
		Method:      strings.ToUpper(method),
		Path:        path,
		OperationID: operationID,
		Tags:        tags,
		pattern:     regexp.MustCompile("^" + quoted + "/?$"),
		params:      len(pathParam.FindAllString(path, -1)),
	}
}

// NewAnalyzer creates a new coverage analyzer.
func NewAnalyzer(endpoints ...Endpoint) *Analyzer {
	return &Analyzer{
		endpoints: endpoints,
	}
}

// LoadOpenAPI loads endpoints from an OpenAPI 3 document. Paths of the
// document's server URLs are treated as prefixes of the recorded paths.
func (a *Analyzer) LoadOpenAPI(path string) error {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return fmt.Errorf("failed to load OpenAPI document: %w", err)
	}
	return a.addDocument(doc)
}

// LoadOpenAPIData loads endpoints from OpenAPI document bytes (YAML or JSON).
func (a *Analyzer) LoadOpenAPIData(data []byte) error {
	doc, err := openapi3.NewLoader().LoadFromData(data)
	if err != nil {
		return fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	return a.addDocument(doc)
}

func (a *Analyzer) addDocument(doc *openapi3.T) error {
	if doc.Paths == nil || doc.Paths.Len() == 0 {
		return fmt.Errorf("no paths found in OpenAPI document")
	}

	for _, server := range doc.Servers {
		if server == nil || strings.Contains(server.URL, "{") {
			continue
		}
		u, err := url.Parse(server.URL)
		if err != nil {
			continue
		}
		if base := strings.TrimSuffix(u.Path, "/"); base != "" {
			a.basePaths = append(a.basePaths, base)
		}
	}

	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			a.endpoints = append(a.endpoints, NewEndpoint(method, path, op.OperationID, op.Tags...))
		}
	}
	return nil
}

// Endpoints returns the loaded endpoints.
func (a *Analyzer) Endpoints() []Endpoint {
	return a.endpoints
}

// Analyze compares recorded requests against the loaded endpoints.
func (a *Analyzer) Analyze(requests []*spy.RecordedRequest) *Report {
	report := &Report{
		TotalEndpoints: len(a.endpoints),
		ByTag:          make(map[string]*TagReport),
		Endpoints:      make([]EndpointStatus, 0, len(a.endpoints)),
	}

	// Track which endpoints were covered and how many times
	coverageCount := make(map[int]int)

	for _, req := range requests {
		idx := a.match(req.Method(), req.URL().Path)
		if idx < 0 {
			report.Undocumented = append(report.Undocumented, req.String())
			continue
		}
		coverageCount[idx]++
	}

	for i, endpoint := range a.endpoints {
		count := coverageCount[i]
		covered := count > 0

		report.Endpoints = append(report.Endpoints, EndpointStatus{
			Method:      endpoint.Method,
			Path:        endpoint.Path,
			OperationID: endpoint.OperationID,
			Tags:        endpoint.Tags,
			Covered:     covered,
			Requests:    count,
		})

		if covered {
			report.CoveredEndpoints++
		}

		for _, tag := range endpoint.Tags {
			tagReport, exists := report.ByTag[tag]
			if !exists {
				tagReport = &TagReport{Tag: tag}
				report.ByTag[tag] = tagReport
			}
			tagReport.TotalEndpoints++
			if covered {
				tagReport.CoveredEndpoints++
			}
		}
	}

	if report.TotalEndpoints > 0 {
		report.CoveragePercent = float64(report.CoveredEndpoints) / float64(report.TotalEndpoints) * 100
	}
	for _, tagReport := range report.ByTag {
		if tagReport.TotalEndpoints > 0 {
			tagReport.CoveragePercent = float64(tagReport.CoveredEndpoints) / float64(tagReport.TotalEndpoints) * 100
		}
	}

	// Sort endpoints by path and method
	sort.Slice(report.Endpoints, func(i, j int) bool {
		if report.Endpoints[i].Path != report.Endpoints[j].Path {
			return report.Endpoints[i].Path < report.Endpoints[j].Path
		}
		return report.Endpoints[i].Method < report.Endpoints[j].Method
	})

	return report
}

// match returns the index of the endpoint matching method and path, or -1.
// When several match, the one with the fewest path parameters wins, so
// /users/me is preferred over /users/{id}.
func (a *Analyzer) match(method, path string) int {
	candidates := []string{path}
	for _, base := range a.basePaths {
		rest, ok := strings.CutPrefix(path, base)
		if !ok {
			continue
		}
		if rest == "" {
			rest = "/"
		}
		if strings.HasPrefix(rest, "/") {
			candidates = append(candidates, rest)
		}
	}

	best := -1
	for i, endpoint := range a.endpoints {
		if !strings.EqualFold(method, endpoint.Method) {
			continue
		}
		for _, p := range candidates {
			if endpoint.pattern.MatchString(p) {
				if best < 0 || endpoint.params < a.endpoints[best].params {
					best = i
				}
				break
			}
		}
	}
	return best
}

// FormatConsole formats the report for console output.
func (r *Report) FormatConsole() string {
	var sb strings.Builder

	sb.WriteString("\nAPI Coverage Report\n")
	sb.WriteString("===================\n\n")

	fmt.Fprintf(&sb, "Total Endpoints:   %d\n", r.TotalEndpoints)
	fmt.Fprintf(&sb, "Covered Endpoints: %d\n", r.CoveredEndpoints)
	fmt.Fprintf(&sb, "Coverage:          %.1f%%\n\n", r.CoveragePercent)

	if len(r.ByTag) > 0 {
		sb.WriteString("Coverage by Tag:\n")

		tags := make([]string, 0, len(r.ByTag))
		for tag := range r.ByTag {
			tags = append(tags, tag)
		}
		sort.Strings(tags)

		for _, tag := range tags {
			tagReport := r.ByTag[tag]
			fmt.Fprintf(&sb, "  %s: %d/%d (%.1f%%)\n",
				tag, tagReport.CoveredEndpoints, tagReport.TotalEndpoints, tagReport.CoveragePercent)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Endpoint Details:\n")
	for _, endpoint := range r.Endpoints {
		status := "[ ]"
		if endpoint.Covered {
			status = "[x]"
		}
		fmt.Fprintf(&sb, "  %s %s %s", status, endpoint.Method, endpoint.Path)
		if endpoint.Requests > 1 {
			fmt.Fprintf(&sb, " (x%d)", endpoint.Requests)
		}
		sb.WriteString("\n")
	}

	if len(r.Undocumented) > 0 {
		sb.WriteString("\nUndocumented Requests:\n")
		for _, u := range r.Undocumented {
			fmt.Fprintf(&sb, "  %s\n", u)
		}
	}

	return sb.String()
}

// FormatJSON formats the report as JSON.
func (r *Report) FormatJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
