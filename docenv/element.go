package docenv

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Element is a handle to one element of an Environment's document. Its accessors read
// the live DOM on the environment's event loop, so they observe every change the
// document's scripts have made.
type Element struct {
	env  *Environment
	node *html.Node
}

func (el *Element) String() string {
	var desc string
	if err := el.env.loop.do(func() error {
		desc = describeNode(el.node)
		return nil
	}); err != nil {
		return describeNode(el.node)
	}
	return desc
}

// ID returns the element's id attribute.
func (el *Element) ID() string {
	var id string
	_ = el.env.loop.do(func() error {
		id, _ = getAttr(el.node, "id")
		return nil
	})
	return id
}

// Style returns the value of an inline style property, such as "display". It returns ""
// if the property is not set inline.
func (el *Element) Style(property string) (string, error) {
	var value string
	err := el.env.loop.do(func() error {
		value = getStyleProperty(el.node, cssPropertyName(property))
		return nil
	})
	return value, err
}

// HasClass reports whether the element's class list contains name.
func (el *Element) HasClass(name string) (bool, error) {
	var ret bool
	err := el.env.loop.do(func() error {
		ret = hasClass(el.node, name)
		return nil
	})
	return ret, err
}

// Attr returns an attribute value and whether the attribute is present.
func (el *Element) Attr(name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := el.env.loop.do(func() error {
		value, ok = getAttr(el.node, name)
		return nil
	})
	return value, ok, err
}

// Text returns the element's text content.
func (el *Element) Text() (string, error) {
	var text string
	err := el.env.loop.do(func() error {
		text = textContent(el.node)
		return nil
	})
	return text, err
}

// QueryAll returns the descendants of the element that match a CSS selector.
func (el *Element) QueryAll(selector string) ([]*Element, error) {
	var ret []*Element
	err := el.env.loop.do(func() error {
		for _, n := range querySelectorAll(el.node, selector) {
			ret = append(ret, &Element{env: el.env, node: n})
		}
		return nil
	})
	return ret, err
}

// Closest returns the element itself or its nearest ancestor that matches a CSS selector.
func (el *Element) Closest(selector string) (*Element, error) {
	var found *html.Node
	err := el.env.loop.do(func() error {
		found = closest(el.node, selector)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, &ElementNotFoundError{Query: selector + " enclosing " + el.String()}
	}
	return &Element{env: el.env, node: found}, nil
}

// Click is shorthand for Environment.Click.
func (el *Element) Click() error {
	return el.env.Click(el)
}

func querySelectorAll(root *html.Node, selector string) []*html.Node {
	return goquery.NewDocumentFromNode(root).Find(selector).Nodes
}

func querySelector(root *html.Node, selector string) *html.Node {
	if nodes := querySelectorAll(root, selector); len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}

// findByHandler returns the elements whose inline handler attribute is exactly expr.
// The comparison is literal, so expressions containing quotes need no escaping.
func findByHandler(root *html.Node, attr, expr string) []*html.Node {
	return goquery.NewDocumentFromNode(root).
		Find("[" + attr + "]").
		FilterFunction(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr(attr)
			return v == expr
		}).
		Nodes
}

func closest(n *html.Node, selector string) *html.Node {
	if nodes := goquery.NewDocumentFromNode(n).Closest(selector).Nodes; len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}

func matches(n *html.Node, selector string) bool {
	return goquery.NewDocumentFromNode(n).Is(selector)
}
