package dashtests

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hrdashboard/dashboard-contract-tests/bridge"
	"github.com/hrdashboard/dashboard-contract-tests/fixtures"
	"github.com/hrdashboard/dashboard-contract-tests/servicedef"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSettleTimeout = time.Second * 2
	DefaultReadyTimeout  = time.Second * 5
	DefaultEntryCard     = "navigateToView('reports', 'demographics')"
	DefaultTab           = "resignation"
)

// Visibility is the expected visibility of the permission-gated tabs.
type Visibility struct {
	MyRequests bool `yaml:"myRequests"`
	Approvals  bool `yaml:"approvals"`
}

// VisibilityFor is the dashboard's permission rule: the "my requests" tab is shown only to users
// who cannot edit, and the "approvals" tab only to users who can approve. The two are
// independent.
func VisibilityFor(flags servicedef.RoleFlags) Visibility {
	return Visibility{
		MyRequests: !flags.CanEdit,
		Approvals:  flags.CanApprove,
	}
}

// Scenario is one run of the checklist against a fresh document environment.
type Scenario struct {
	Name  string               `yaml:"name"`
	Flags servicedef.RoleFlags `yaml:",inline"`

	// Expect overrides the visibility derived from Flags.
	Expect *Visibility `yaml:"expect,omitempty"`

	// EntryCard is the inline onclick expression of the homepage card to click.
	EntryCard string `yaml:"entryCard,omitempty"`

	// Tab is the key of the tab to select after navigating, such as "resignation" for
	// #tab-resignation and #resignation-view.
	Tab string `yaml:"tab,omitempty"`
}

// Expected returns the visibility the permission checks should find.
func (s Scenario) Expected() Visibility {
	if s.Expect != nil {
		return *s.Expect
	}
	return VisibilityFor(s.Flags)
}

// DefaultScenarios covers every combination of the two role flags.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{
			Name:      "no privileges",
			Flags:     servicedef.RoleFlags{CanEdit: false, CanApprove: false},
			EntryCard: DefaultEntryCard,
			Tab:       DefaultTab,
		},
		{
			Name:      "approver only",
			Flags:     servicedef.RoleFlags{CanEdit: false, CanApprove: true},
			EntryCard: DefaultEntryCard,
			Tab:       DefaultTab,
		},
		{
			Name:      "editor and approver",
			Flags:     servicedef.RoleFlags{CanEdit: true, CanApprove: true},
			EntryCard: DefaultEntryCard,
			Tab:       "masterlist",
		},
		{
			Name:      "editor only",
			Flags:     servicedef.RoleFlags{CanEdit: true, CanApprove: false},
			EntryCard: "navigateToView('reports', 'analytics')",
			Tab:       "demographics",
		},
	}
}

// Layout names the parts of the document that the checks look at.
type Layout struct {
	LoginView     string `yaml:"loginView"`
	AppView       string `yaml:"appView"`
	HomepageView  string `yaml:"homepageView"`
	TabArea       string `yaml:"tabArea"`
	ErrorBanner   string `yaml:"errorBanner"`
	MyRequestsTab string `yaml:"myRequestsTab"`
	ApprovalsTab  string `yaml:"approvalsTab"`
	CardSelector  string `yaml:"cardSelector"`
	GroupSelector string `yaml:"groupSelector"`
	TabSelector   string `yaml:"tabSelector"`
	PaneSelector  string `yaml:"paneSelector"`
	ActiveClass   string `yaml:"activeClass"`
	TabIDPrefix   string `yaml:"tabIdPrefix"`
	PaneIDSuffix  string `yaml:"paneIdSuffix"`
}

func DefaultLayout() Layout {
	return Layout{
		LoginView:     "login-view",
		AppView:       "app-view",
		HomepageView:  "homepage-view",
		TabArea:       "tab-area",
		ErrorBanner:   "error-banner",
		MyRequestsTab: "tab-my-requests",
		ApprovalsTab:  "tab-approvals",
		CardSelector:  ".dashboard-card",
		GroupSelector: ".tab-group",
		TabSelector:   ".tab-button",
		PaneSelector:  ".tab-content",
		ActiveClass:   "active",
		TabIDPrefix:   "tab-",
		PaneIDSuffix:  "-view",
	}
}

// TabID returns the id of the tab button for a tab key.
func (l Layout) TabID(key string) string { return l.TabIDPrefix + key }

// PaneID returns the id of the content pane for a tab key.
func (l Layout) PaneID(key string) string { return key + l.PaneIDSuffix }

// Suite is everything a run needs besides the markup.
type Suite struct {
	Scenarios     []Scenario
	Fixtures      *fixtures.Table
	Layout        Layout
	UserEmail     string
	BridgeDelay   time.Duration
	SettleTimeout time.Duration
	ReadyTimeout  time.Duration
}

func DefaultSuite() Suite {
	return Suite{
		Scenarios:     DefaultScenarios(),
		Fixtures:      fixtures.DefaultTable(),
		Layout:        DefaultLayout(),
		BridgeDelay:   bridge.DefaultDelay,
		SettleTimeout: DefaultSettleTimeout,
		ReadyTimeout:  DefaultReadyTimeout,
	}
}

type suiteFile struct {
	UserEmail       string                 `yaml:"userEmail"`
	BridgeDelayMS   *int                   `yaml:"bridgeDelayMs"`
	SettleTimeoutMS *int                   `yaml:"settleTimeoutMs"`
	ReadyTimeoutMS  *int                   `yaml:"readyTimeoutMs"`
	Scenarios       []Scenario             `yaml:"scenarios"`
	Fixtures        map[string]interface{} `yaml:"fixtures"`
	Layout          Layout                 `yaml:"layout"`
}

// LoadSuite reads a YAML suite file. Anything the file leaves out keeps its value from
// DefaultSuite; if the file lists scenarios, they replace the default ones.
func LoadSuite(path string) (Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Suite{}, fmt.Errorf("could not read suite file: %w", err)
	}
	suite, err := ParseSuite(data)
	if err != nil {
		return Suite{}, fmt.Errorf("%s: %w", path, err)
	}
	return suite, nil
}

// ParseSuite is LoadSuite for data that is already in memory. Unknown keys are errors.
func ParseSuite(data []byte) (Suite, error) {
	suite := DefaultSuite()
	file := suiteFile{Layout: suite.Layout}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return Suite{}, fmt.Errorf("malformed suite: %w", err)
	}

	suite.Layout = file.Layout
	suite.UserEmail = file.UserEmail
	applyMillis(&suite.BridgeDelay, ldvalue.NewOptionalIntFromPointer(file.BridgeDelayMS))
	applyMillis(&suite.SettleTimeout, ldvalue.NewOptionalIntFromPointer(file.SettleTimeoutMS))
	applyMillis(&suite.ReadyTimeout, ldvalue.NewOptionalIntFromPointer(file.ReadyTimeoutMS))

	if len(file.Fixtures) > 0 {
		raw, err := json.Marshal(file.Fixtures)
		if err != nil {
			return Suite{}, fmt.Errorf("fixtures could not be converted to JSON: %w", err)
		}
		overrides, err := fixtures.ParseOverrides(raw)
		if err != nil {
			return Suite{}, err
		}
		suite.Fixtures.Apply(overrides)
	}

	if len(file.Scenarios) > 0 {
		seen := make(map[string]bool)
		for i, s := range file.Scenarios {
			if s.Name == "" {
				return Suite{}, fmt.Errorf("scenario %d has no name", i+1)
			}
			if seen[s.Name] {
				return Suite{}, fmt.Errorf("scenario name %q is used more than once", s.Name)
			}
			seen[s.Name] = true
			if s.EntryCard == "" {
				file.Scenarios[i].EntryCard = DefaultEntryCard
			}
			if s.Tab == "" {
				file.Scenarios[i].Tab = DefaultTab
			}
		}
		suite.Scenarios = file.Scenarios
	}
	return suite, nil
}

func applyMillis(target *time.Duration, value ldvalue.OptionalInt) {
	if value.IsDefined() && value.IntValue() > 0 {
		*target = time.Duration(value.IntValue()) * time.Millisecond
	}
}
