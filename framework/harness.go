package framework

import (
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hrdashboard/dashboard-contract-tests/logging"
)

const fetchRetryInterval = time.Millisecond * 100

// TestHarness holds what every test in a run shares: the markup of the document under test.
// Each test builds its own document environment from it.
type TestHarness struct {
	markupSource string
	markup       []byte
	logger       logging.Logger
}

// NewTestHarness loads the markup to be tested. The source is either a file path or an http or
// https URL. A URL is retried until fetchTimeout elapses, so that the harness can be started
// at the same time as a development server that serves the page.
func NewTestHarness(
	markupSource string,
	fetchTimeout time.Duration,
	debugLogger logging.Logger,
	startupOutput io.Writer,
) (*TestHarness, error) {
	if debugLogger == nil {
		debugLogger = logging.NullLogger()
	}
	if startupOutput == nil {
		startupOutput = ioutil.Discard
	}

	var markup []byte
	var err error
	if isURL(markupSource) {
		markup, err = fetchMarkup(markupSource, fetchTimeout, startupOutput)
	} else {
		fmt.Fprintf(startupOutput, "Reading markup from %s\n", markupSource)
		markup, err = os.ReadFile(markupSource)
	}
	if err != nil {
		return nil, fmt.Errorf("could not load markup from %s: %w", markupSource, err)
	}
	debugLogger.Printf("Loaded %d bytes of markup from %s", len(markup), markupSource)

	return NewTestHarnessFromMarkup(markupSource, markup, debugLogger), nil
}

// NewTestHarnessFromMarkup creates a TestHarness for markup that is already in memory.
func NewTestHarnessFromMarkup(name string, markup []byte, debugLogger logging.Logger) *TestHarness {
	if debugLogger == nil {
		debugLogger = logging.NullLogger()
	}
	return &TestHarness{
		markupSource: name,
		markup:       append([]byte(nil), markup...),
		logger:       debugLogger,
	}
}

// MarkupSource returns the path or URL that the markup was loaded from.
func (h *TestHarness) MarkupSource() string {
	return h.markupSource
}

// Markup returns a copy of the markup.
func (h *TestHarness) Markup() []byte {
	return append([]byte(nil), h.markup...)
}

func (h *TestHarness) Logger() logging.Logger {
	return h.logger
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func fetchMarkup(url string, timeout time.Duration, output io.Writer) ([]byte, error) {
	fmt.Fprintf(output, "Fetching markup from %s", url)

	deadline := time.Now().Add(timeout)
	for {
		fmt.Fprintf(output, ".")
		resp, err := http.DefaultClient.Get(url)
		if err == nil {
			fmt.Fprintln(output)
			data, readErr := ioutil.ReadAll(resp.Body)
			resp.Body.Close()
			if resp.StatusCode != 200 {
				return nil, fmt.Errorf("server returned status code %d", resp.StatusCode)
			}
			if readErr != nil {
				return nil, readErr
			}
			return data, nil
		}
		if !time.Now().Before(deadline) {
			fmt.Fprintln(output)
			return nil, fmt.Errorf("timed out, result of last request was: %w", err)
		}
		time.Sleep(fetchRetryInterval)
	}
}
