package docenv

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

func removeAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func classNames(n *html.Node) []string {
	v, _ := getAttr(n, "class")
	return strings.Fields(v)
}

func hasClass(n *html.Node, name string) bool {
	for _, c := range classNames(n) {
		if c == name {
			return true
		}
	}
	return false
}

func addClass(n *html.Node, name string) {
	if name == "" || hasClass(n, name) {
		return
	}
	setAttr(n, "class", strings.Join(append(classNames(n), name), " "))
}

func removeClass(n *html.Node, name string) {
	var kept []string
	for _, c := range classNames(n) {
		if c != name {
			kept = append(kept, c)
		}
	}
	setAttr(n, "class", strings.Join(kept, " "))
}

// styleDecl is one "name: value" pair of an inline style attribute.
type styleDecl struct {
	name  string
	value string
}

func parseStyle(s string) []styleDecl {
	var ret []styleDecl
	for _, part := range strings.Split(s, ";") {
		colon := strings.Index(part, ":")
		if colon < 0 {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(part[:colon]))
		value := strings.TrimSpace(part[colon+1:])
		if name == "" {
			continue
		}
		ret = append(ret, styleDecl{name: name, value: value})
	}
	return ret
}

func formatStyle(decls []styleDecl) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.name+": "+d.value+";")
	}
	return strings.Join(parts, " ")
}

func getStyleProperty(n *html.Node, name string) string {
	s, _ := getAttr(n, "style")
	for _, d := range parseStyle(s) {
		if d.name == name {
			return d.value
		}
	}
	return ""
}

// setStyleProperty sets one inline style property. An empty value removes it, as it
// does in a browser.
func setStyleProperty(n *html.Node, name, value string) {
	s, _ := getAttr(n, "style")
	decls := parseStyle(s)
	value = strings.TrimSpace(value)
	found := false
	for i := 0; i < len(decls); i++ {
		if decls[i].name != name {
			continue
		}
		found = true
		if value == "" {
			decls = append(decls[:i], decls[i+1:]...)
			i--
		} else {
			decls[i].value = value
		}
	}
	if !found && value != "" {
		decls = append(decls, styleDecl{name: name, value: value})
	}
	setAttr(n, "style", formatStyle(decls))
}

// cssPropertyName converts a CSSStyleDeclaration property name such as backgroundColor
// into the CSS name background-color.
func cssPropertyName(jsName string) string {
	if jsName == "cssFloat" {
		return "float"
	}
	if strings.Contains(jsName, "-") {
		return strings.ToLower(jsName)
	}
	var b strings.Builder
	for _, r := range jsName {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('-')
			b.WriteRune(r + ('a' - 'A'))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// jsPropertyName is the inverse of cssPropertyName.
func jsPropertyName(cssName string) string {
	if cssName == "float" {
		return "cssFloat"
	}
	parts := strings.Split(cssName, "-")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

func setTextContent(n *html.Node, text string) {
	removeChildren(n)
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

func renderChildren(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

func setInnerHTML(n *html.Node, markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), n)
	if err != nil {
		return err
	}
	removeChildren(n)
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}

// walk visits the descendants of n in document order, not including n itself. Returning
// false from fn stops the walk.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !fn(c) {
			return false
		}
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func findByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if v, ok := getAttr(n, "id"); ok && v == id {
				found = n
				return false
			}
		}
		return true
	})
	return found
}

func findFirstElement(root *html.Node, tag string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == tag {
			found = n
			return false
		}
		return true
	})
	return found
}

func elementChildren(n *html.Node) []*html.Node {
	var ret []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			ret = append(ret, c)
		}
	}
	return ret
}

// describeNode gives a short selector-like description of an element for messages.
func describeNode(n *html.Node) string {
	if n == nil {
		return "<nil>"
	}
	if n.Type == html.DocumentNode {
		return "#document"
	}
	desc := n.Data
	if id, ok := getAttr(n, "id"); ok && id != "" {
		return desc + "#" + id
	}
	if classes := classNames(n); len(classes) > 0 {
		desc += "." + strings.Join(classes, ".")
	}
	if onclick, ok := getAttr(n, "onclick"); ok {
		desc += `[onclick="` + onclick + `"]`
	}
	return desc
}
