package main

import (
	"errors"
	"flag"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/hrdashboard/dashboard-contract-tests/framework"

	"github.com/alessio/shellescape"
)

const (
	defaultFetchTimeout = time.Second * 10
	commandName         = "dashboard-contract-tests"
)

type commandParams struct {
	markupSource  string
	suitePath     string
	fixturesPath  string
	filters       framework.RegexFilters
	settleTimeout time.Duration
	settleSet     bool
	fetchTimeout  time.Duration
	debug         bool
	debugAll      bool
}

func (c *commandParams) Read(args []string, errOut io.Writer) error {
	fs := flag.NewFlagSet(commandName, flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&c.markupSource, "markup", "", "dashboard markup file path or http(s) URL")
	fs.StringVar(&c.suitePath, "suite", "", "YAML suite file with scenarios, fixtures, and layout")
	fs.StringVar(&c.fixturesPath, "fixtures", "", "JSON file of fixture overrides, keyed by method name")
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	fs.DurationVar(&c.settleTimeout, "settle-timeout", 0, "how long to wait for timers and bridge calls to finish after each action")
	fs.DurationVar(&c.fetchTimeout, "fetch-timeout", defaultFetchTimeout, "how long to keep retrying an http(s) markup source")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed tests")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all tests")

	if err := fs.Parse(args); err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "settle-timeout" {
			c.settleSet = true
		}
	})
	if c.markupSource == "" {
		fs.Usage()
		return errors.New("-markup is required")
	}
	return nil
}

// rerunCommand is a command line that runs only the given test again, with the same inputs.
func (c *commandParams) rerunCommand(id framework.TestID) string {
	var b commandBuilder
	b.add(commandName, "-markup", c.markupSource)
	if c.suitePath != "" {
		b.add("-suite", c.suitePath)
	}
	if c.fixturesPath != "" {
		b.add("-fixtures", c.fixturesPath)
	}
	if c.settleSet {
		b.add("-settle-timeout", c.settleTimeout.String())
	}
	b.add("-run", "^"+regexp.QuoteMeta(id.String())+"$", "-debug")
	return b.String()
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}
