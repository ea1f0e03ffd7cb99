package framework

import (
	"fmt"
	"strings"
)

type Results struct {
	Tests    []TestResult
	Failures []TestResult

	// Aborted is the error that stopped the run early, if any.
	Aborted error
}

type TestResult struct {
	TestID     TestID
	Errors     []error
	Skipped    bool
	Assertions []CheckOutcome
}

func (r Results) OK() bool {
	return len(r.Failures) == 0 && r.Aborted == nil
}

// Counts returns the number of tests that passed, failed, and were skipped.
func (r Results) Counts() (passed, failed, skipped int) {
	for _, t := range r.Tests {
		if t.Skipped {
			skipped++
		}
	}
	failed = len(r.Failures)
	passed = len(r.Tests) - failed - skipped
	return
}

// FirstFailure describes the earliest failure of the run, or returns nil if there was none.
func (r Results) FirstFailure() *TestFailure {
	if len(r.Failures) == 0 {
		if r.Aborted != nil {
			return &TestFailure{Err: r.Aborted}
		}
		return nil
	}
	f := r.Failures[0]
	for _, a := range f.Assertions {
		if !a.Passed {
			return &TestFailure{ID: f.TestID, Err: a.AsError()}
		}
	}
	if len(f.Errors) > 0 {
		return &TestFailure{ID: f.TestID, Err: f.Errors[0]}
	}
	return &TestFailure{ID: f.TestID, Err: fmt.Errorf("test failed")}
}

type TestID struct {
	Path []string
}

func (t TestID) String() string {
	return strings.Join(t.Path, "/")
}

type TestFailure struct {
	ID  TestID
	Err error
}

func (f TestFailure) Error() string {
	return fmt.Sprintf("[%s]: %s", f.ID, f.Err)
}
