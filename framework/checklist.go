package framework

import (
	"fmt"

	"github.com/stretchr/testify/assert"
)

// Check is one step of an ordered checklist: a description, the value expected, and a function
// that reads the actual value. Actual is not called until every earlier check has passed.
type Check struct {
	Description string
	Expected    interface{}
	Actual      func() (interface{}, error)
}

// Expect is a shorthand for a Check whose actual value cannot fail to be read.
func Expect(description string, expected interface{}, actual func() interface{}) Check {
	return Check{
		Description: description,
		Expected:    expected,
		Actual:      func() (interface{}, error) { return actual(), nil },
	}
}

// CheckOutcome is the entry that a Check leaves in the assertion log.
type CheckOutcome struct {
	Description string
	Passed      bool
	Expected    interface{}
	Actual      interface{}
	Err         error
}

func (o CheckOutcome) String() string {
	switch {
	case o.Passed:
		return "PASS: " + o.Description
	case o.Err != nil:
		return fmt.Sprintf("FAIL: %s (%s)", o.Description, o.Err)
	default:
		return fmt.Sprintf("FAIL: %s (expected %#v, got %#v)", o.Description, o.Expected, o.Actual)
	}
}

// AsError describes a failed outcome as an error, or returns nil if it passed.
func (o CheckOutcome) AsError() error {
	if o.Passed {
		return nil
	}
	if o.Err != nil {
		return fmt.Errorf("%s: %w", o.Description, o.Err)
	}
	return fmt.Errorf("%s: expected %#v, got %#v", o.Description, o.Expected, o.Actual)
}

// CheckResult is the outcome of RunChecks.
type CheckResult struct {
	Outcomes []CheckOutcome
}

func (r CheckResult) OK() bool {
	return r.Failure() == nil
}

// Failure returns the failed outcome, if any. There is at most one, and it is always last.
func (r CheckResult) Failure() *CheckOutcome {
	if n := len(r.Outcomes); n > 0 && !r.Outcomes[n-1].Passed {
		return &r.Outcomes[n-1]
	}
	return nil
}

// RunChecks evaluates the checks in order and stops at the first one that fails, so that a later
// check never runs against a state that an earlier one already found to be wrong.
func RunChecks(checks ...Check) CheckResult {
	var result CheckResult
	for _, c := range checks {
		outcome := CheckOutcome{Description: c.Description, Expected: c.Expected}
		actual, err := c.Actual()
		outcome.Actual = actual
		outcome.Err = err
		outcome.Passed = err == nil && assert.ObjectsAreEqual(c.Expected, actual)
		result.Outcomes = append(result.Outcomes, outcome)
		if !outcome.Passed {
			break
		}
	}
	return result
}
