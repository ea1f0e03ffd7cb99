package framework

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/hrdashboard/dashboard-contract-tests/logging"
)

type environment struct {
	results    Results
	testLogger TestLogger
	filter     Filter
	aborted    error
}

// Context is the state of one test or subtest. Like testing.T, it accumulates failures; unlike
// testing.T, it runs outside of the Go test runner.
type Context struct {
	env         *environment
	id          TestID
	debugLogger logging.CapturingLogger
	failed      bool
	skipped     bool
	skipReason  string
	errors      []error
	assertions  []CheckOutcome
}

func Run(
	filter func(TestID) bool,
	testLogger TestLogger,
	action func(*Context),
) Results {
	if testLogger == nil {
		testLogger = nullTestLogger{}
	}
	env := &environment{
		filter:     filter,
		testLogger: testLogger,
	}
	c := &Context{env: env}
	c.run(action)
	env.results.Aborted = env.aborted
	return env.results
}

func (c *Context) run(action func(*Context)) {
	defer func() {
		if r := recover(); r != nil {
			if c.skipped {
				return
			}
			c.failed = true
			var addError error
			if _, ok := r.(*Context); ok {
				if len(c.errors) == 0 {
					addError = errors.New("test failed with no failure message")
				}
			} else {
				addError = fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack()))
			}
			if addError != nil {
				c.errors = append(c.errors, addError)
				c.env.testLogger.TestError(c.id, addError)
			}
		}
		if c.skipped || (len(c.id.Path) == 0 && !c.failed) {
			return
		}
		result := TestResult{TestID: c.id, Errors: c.errors, Assertions: c.assertions}
		c.env.results.Tests = append(c.env.results.Tests, result)
		if c.failed {
			c.env.results.Failures = append(c.env.results.Failures, result)
		}
	}()

	action(c)
}

func (c *Context) ID() TestID {
	return c.id
}

func (c *Context) Run(name string, action func(*Context)) {
	id := TestID{Path: append(append([]string(nil), c.id.Path...), name)}

	c.env.testLogger.TestStarted(id)
	if c.env.filter != nil && !c.env.filter(id) {
		c.env.testLogger.TestSkipped(id, "excluded by filter parameters")
		return
	}
	if c.env.aborted != nil {
		c.env.testLogger.TestSkipped(id, "run aborted")
		c.env.results.Tests = append(c.env.results.Tests, TestResult{TestID: id, Skipped: true})
		return
	}
	c1 := &Context{
		id:  id,
		env: c.env,
	}
	c1.run(action)
	if c1.skipped {
		c.env.testLogger.TestSkipped(id, c1.skipReason)
		c.env.results.Tests = append(c.env.results.Tests, TestResult{TestID: id, Skipped: true})
	} else {
		c.env.testLogger.TestFinished(id, c1.failed, c1.debugLogger.Output())
	}
}

func (c *Context) Errorf(format string, args ...interface{}) {
	c.failed = true
	err := fmt.Errorf(format, args...)
	c.errors = append(c.errors, err)
	c.env.testLogger.TestError(c.id, reformatError(err))
}

func (c *Context) FailNow() {
	panic(c)
}

func (c *Context) Skip() {
	c.skipped = true
	panic(c)
}

func (c *Context) SkipWithReason(reason string) {
	c.skipReason = reason
	c.Skip()
}

// AbortRun fails the current test and causes every test that has not started yet to be
// skipped. It is for failures that make the rest of the run meaningless, such as markup that
// cannot be loaded.
func (c *Context) AbortRun(err error) {
	if c.env.aborted == nil {
		c.env.aborted = err
	}
	c.Errorf("%s", err)
	c.FailNow()
}

// Aborted returns the error passed to AbortRun, if any test has called it.
func (c *Context) Aborted() error {
	return c.env.aborted
}

// Record adds an outcome to this test's assertion log.
func (c *Context) Record(outcome CheckOutcome) {
	c.assertions = append(c.assertions, outcome)
	c.debugLogger.Printf("%s", outcome)
}

// Assertions returns the assertion log so far.
func (c *Context) Assertions() []CheckOutcome {
	return append([]CheckOutcome(nil), c.assertions...)
}

func (c *Context) Debug(message string, args ...interface{}) {
	c.debugLogger.Printf(message, args...)
}

func (c *Context) DebugLogger() logging.Logger {
	return &c.debugLogger
}

// reformatError drops the "Error Trace" section that testify adds to assertion messages, since
// the file locations in it are not useful outside of go test.
func reformatError(err error) error {
	lines := strings.Split(strings.TrimLeft(err.Error(), "\n"), "\n")
	var kept []string
	inTrace := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Error Trace:"):
			inTrace = true
			continue
		case inTrace && isLabel(trimmed):
			inTrace = false
		case inTrace:
			continue
		}
		kept = append(kept, strings.TrimRight(line, " \t"))
	}
	if len(kept) == len(lines) {
		return err
	}
	return errors.New(strings.Join(kept, "\n"))
}

func isLabel(line string) bool {
	fields := strings.Fields(line)
	return len(fields) > 0 && strings.HasSuffix(fields[0], ":")
}
