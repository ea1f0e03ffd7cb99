package dashtests

import (
	"fmt"

	"github.com/hrdashboard/dashboard-contract-tests/docenv"
	"github.com/hrdashboard/dashboard-contract-tests/framework"
)

const (
	displayShown  = "block"
	displayHidden = "none"
)

func displayValue(visible bool) string {
	if visible {
		return displayShown
	}
	return displayHidden
}

// DisplayIs checks the inline display style of an element.
func DisplayIs(description string, el *docenv.Element, expected string) framework.Check {
	return framework.Check{
		Description: description,
		Expected:    expected,
		Actual: func() (interface{}, error) {
			return el.Style("display")
		},
	}
}

// ClassIs checks whether an element has a class.
func ClassIs(description string, el *docenv.Element, class string, expected bool) framework.Check {
	return framework.Check{
		Description: description,
		Expected:    expected,
		Actual: func() (interface{}, error) {
			return el.HasClass(class)
		},
	}
}

// CountWithClass checks how many of the elements have a class.
func CountWithClass(description string, els []*docenv.Element, class string, expected int) framework.Check {
	return framework.Check{
		Description: description,
		Expected:    expected,
		Actual: func() (interface{}, error) {
			count := 0
			for _, el := range els {
				has, err := el.HasClass(class)
				if err != nil {
					return nil, err
				}
				if has {
					count++
				}
			}
			return count, nil
		},
	}
}

// NoUncaughtErrors checks that no handler, timer, or bridge callback has thrown.
func NoUncaughtErrors(description string, env *docenv.Environment) framework.Check {
	return framework.Check{
		Description: description,
		Expected:    []string{},
		Actual: func() (interface{}, error) {
			ret := []string{}
			for _, err := range env.UncaughtErrors() {
				ret = append(ret, err.Error())
			}
			return ret, nil
		},
	}
}

// NoAlerts checks that the dashboard has not called alert().
func NoAlerts(description string, env *docenv.Environment) framework.Check {
	return framework.Check{
		Description: description,
		Expected:    []string{},
		Actual: func() (interface{}, error) {
			return append([]string{}, env.Alerts()...), nil
		},
	}
}

// tabGroup returns the group enclosing a tab, with the tabs and panes in it.
func (t *T) tabGroup(tab *docenv.Element) (group *docenv.Element, tabs, panes []*docenv.Element) {
	layout := t.Layout()
	group, err := tab.Closest(layout.GroupSelector)
	if err != nil {
		t.Errorf("%s is not inside a tab group: %s", tab, err)
		t.FailNow()
	}
	return group, t.RequireAll(group, layout.TabSelector), t.RequireAll(group, layout.PaneSelector)
}

func tabDescription(key string) string {
	return fmt.Sprintf("tab %q", key)
}
