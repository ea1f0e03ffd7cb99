package fixtures

import (
	"sort"

	"github.com/hrdashboard/dashboard-contract-tests/servicedef"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Fixture produces the canned response for one backend method.
type Fixture func(params servicedef.ScenarioParams) ldvalue.Value

// Constant returns a Fixture that always produces the same value.
func Constant(value ldvalue.Value) Fixture {
	return func(servicedef.ScenarioParams) ldvalue.Value { return value }
}

// Table maps backend method names to fixtures. A Table is not safe for concurrent
// modification; each scenario should work on its own Clone.
type Table struct {
	entries map[string]Fixture
}

func NewTable() *Table {
	return &Table{entries: make(map[string]Fixture)}
}

// Set adds or replaces the fixture for a method.
func (t *Table) Set(method string, fixture Fixture) {
	t.entries[method] = fixture
}

// SetValue adds or replaces a constant fixture for a method.
func (t *Table) SetValue(method string, value ldvalue.Value) {
	t.Set(method, Constant(value))
}

// Lookup resolves the response for a method. The second return value is false if the
// table has no entry for it.
func (t *Table) Lookup(method string, params servicedef.ScenarioParams) (ldvalue.Value, bool) {
	f, ok := t.entries[method]
	if !ok || f == nil {
		return ldvalue.Null(), false
	}
	return f(params), true
}

func (t *Table) Has(method string) bool {
	_, ok := t.entries[method]
	return ok
}

// Methods returns the method names in the table, sorted.
func (t *Table) Methods() []string {
	ret := make([]string, 0, len(t.entries))
	for m := range t.entries {
		ret = append(ret, m)
	}
	sort.Strings(ret)
	return ret
}

func (t *Table) Clone() *Table {
	ret := NewTable()
	for m, f := range t.entries {
		ret.entries[m] = f
	}
	return ret
}

// Apply merges overrides into the table as constant fixtures.
func (t *Table) Apply(overrides map[string]ldvalue.Value) {
	for m, v := range overrides {
		t.SetValue(m, v)
	}
}
