package framework

import (
	"errors"
	"testing"

	"github.com/hrdashboard/dashboard-contract-tests/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTestLogger struct {
	events []string
}

func (r *recordingTestLogger) TestStarted(id TestID) {
	r.events = append(r.events, "start "+id.String())
}

func (r *recordingTestLogger) TestError(id TestID, err error) {
	r.events = append(r.events, "error "+id.String()+": "+err.Error())
}

func (r *recordingTestLogger) TestFinished(id TestID, failed bool, _ logging.CapturedOutput) {
	if failed {
		r.events = append(r.events, "failed "+id.String())
	} else {
		r.events = append(r.events, "passed "+id.String())
	}
}

func (r *recordingTestLogger) TestSkipped(id TestID, reason string) {
	r.events = append(r.events, "skipped "+id.String()+" ("+reason+")")
}

func TestPassingAndFailingTests(t *testing.T) {
	logger := &recordingTestLogger{}
	results := Run(nil, logger, func(c *Context) {
		c.Run("good", func(c *Context) {})
		c.Run("bad", func(c *Context) {
			c.Errorf("went wrong")
			c.FailNow()
			c.Errorf("not reached")
		})
	})

	assert.False(t, results.OK())
	require.Len(t, results.Tests, 2)
	require.Len(t, results.Failures, 1)
	assert.Equal(t, "bad", results.Failures[0].TestID.String())
	assert.Equal(t, []string{
		"start good",
		"passed good",
		"start bad",
		"error bad: went wrong",
		"failed bad",
	}, logger.events)
}

func TestNestedIDs(t *testing.T) {
	var ids []string
	Run(nil, nil, func(c *Context) {
		c.Run("a", func(c *Context) {
			c.Run("b", func(c *Context) {
				ids = append(ids, c.ID().String())
			})
			c.Run("c", func(c *Context) {
				ids = append(ids, c.ID().String())
			})
		})
	})
	assert.Equal(t, []string{"a/b", "a/c"}, ids)
}

func TestPanicBecomesFailure(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("panics", func(c *Context) {
			panic("oops")
		})
	})
	require.Len(t, results.Failures, 1)
	require.Len(t, results.Failures[0].Errors, 1)
	assert.Contains(t, results.Failures[0].Errors[0].Error(), "unexpected panic in test: oops")
}

func TestFilterAndSkip(t *testing.T) {
	logger := &recordingTestLogger{}
	var filters RegexFilters
	require.NoError(t, filters.MustNotMatch.Set("^excluded"))
	results := Run(filters.AsFilter, logger, func(c *Context) {
		c.Run("excluded", func(c *Context) { c.Errorf("should not run") })
		c.Run("skips", func(c *Context) { c.SkipWithReason("not today") })
	})
	assert.True(t, results.OK())
	assert.Contains(t, logger.events, "skipped excluded (excluded by filter parameters)")
	assert.Contains(t, logger.events, "skipped skips (not today)")
	passed, failed, skipped := results.Counts()
	assert.Equal(t, 0, passed)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 1, skipped)
}

func TestAbortRunSkipsLaterTests(t *testing.T) {
	logger := &recordingTestLogger{}
	var ranAfter bool
	results := Run(nil, logger, func(c *Context) {
		c.Run("first", func(c *Context) {
			c.AbortRun(errors.New("markup is broken"))
		})
		c.Run("second", func(c *Context) { ranAfter = true })
	})
	assert.False(t, ranAfter)
	assert.False(t, results.OK())
	require.Error(t, results.Aborted)
	assert.Equal(t, "markup is broken", results.Aborted.Error())
	assert.Contains(t, logger.events, "skipped second (run aborted)")
	passed, failed, skipped := results.Counts()
	assert.Equal(t, []int{0, 1, 1}, []int{passed, failed, skipped})
}

func TestAssertionLogIsKeptOnResult(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("checks", func(c *Context) {
			c.Record(CheckOutcome{Description: "one", Passed: true})
			c.Record(CheckOutcome{Description: "two", Passed: true})
			assert.Len(t, c.Assertions(), 2)
		})
	})
	require.Len(t, results.Tests, 1)
	assert.Equal(t, "one", results.Tests[0].Assertions[0].Description)
	assert.Equal(t, "two", results.Tests[0].Assertions[1].Description)
}

func TestFirstFailure(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("x", func(c *Context) {
			c.Record(CheckOutcome{Description: "fine", Passed: true})
			c.Record(CheckOutcome{Description: "tab is shown", Expected: "block", Actual: "none"})
			c.FailNow()
		})
	})
	f := results.FirstFailure()
	require.NotNil(t, f)
	assert.Equal(t, `[x]: tab is shown: expected "block", got "none"`, f.Error())

	assert.Nil(t, Run(nil, nil, func(c *Context) {}).FirstFailure())
}

func TestReformatErrorDropsTrace(t *testing.T) {
	err := errors.New("\n\tError Trace:\tsomething.go:12\n\t            \t\tother.go:5\n\tError:      \tNot equal\n\tMessages:   \tdisplay")
	assert.Equal(t, "\tError:      \tNot equal\n\tMessages:   \tdisplay", reformatError(err).Error())

	plain := errors.New("plain message")
	assert.Equal(t, plain, reformatError(plain))
}
