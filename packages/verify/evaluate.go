package verify

import (
	"errors"

	"github.com/abdul-hamid-achik/httpspy/packages/spy"
)

// Result is the outcome of one expectation.
type Result struct {
	Name        string
	Expectation Expectation
	Expected    int
	Actual      int
	Constraints []string
	Err         error
}

// Passed reports whether the expectation held.
func (r Result) Passed() bool {
	return r.Err == nil
}

// Report collects the results of one verification run.
type Report struct {
	Recordings int
	Results    []Result
}

// Passed returns the number of expectations that held.
func (r *Report) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.Passed() {
			n++
		}
	}
	return n
}

// Failed returns the number of expectations that did not hold.
func (r *Report) Failed() int {
	return len(r.Results) - r.Passed()
}

// OK reports whether every expectation held.
func (r *Report) OK() bool {
	return r.Failed() == 0
}

// Evaluate checks every expectation in f against requests. The requests are
// loaded into a detached spy so the process-wide current spy is untouched.
func Evaluate(f *File, requests []*spy.RecordedRequest) *Report {
	s := spy.New(spy.Detached())
	for _, r := range requests {
		s.RecordRequest(r)
	}

	report := &Report{
		Recordings: len(requests),
		Results:    make([]Result, 0, len(f.Expectations)),
	}
	for i, e := range f.Expectations {
		exp := e.Build(s)
		res := Result{
			Name:        e.Label(i),
			Expectation: e,
			Expected:    e.ExpectedTimes(),
			Constraints: exp.Constraints(),
		}

		res.Err = exp.OccurredNTimes(res.Expected)
		var assertionErr *spy.AssertionError
		if errors.As(res.Err, &assertionErr) {
			res.Actual = assertionErr.Actual
		} else {
			res.Actual = res.Expected
		}
		report.Results = append(report.Results, res)
	}
	return report
}
