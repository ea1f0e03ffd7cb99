package docenv

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func parseBody(t *testing.T, markup string) *html.Node {
	doc, err := html.Parse(strings.NewReader("<html><body>" + markup + "</body></html>"))
	require.NoError(t, err)
	return doc
}

func TestPropertyNames(t *testing.T) {
	for js, css := range map[string]string{
		"display":         "display",
		"backgroundColor": "background-color",
		"borderTopWidth":  "border-top-width",
		"cssFloat":        "float",
	} {
		assert.Equal(t, css, cssPropertyName(js))
		assert.Equal(t, js, jsPropertyName(css))
	}
	assert.Equal(t, "margin-top", cssPropertyName("margin-top"))
}

func TestStyleProperties(t *testing.T) {
	doc := parseBody(t, `<div id="a" style="display:none; COLOR : Red ;;bogus"></div>`)
	n := findByID(doc, "a")
	require.NotNil(t, n)

	assert.Equal(t, "none", getStyleProperty(n, "display"))
	assert.Equal(t, "Red", getStyleProperty(n, "color"))
	assert.Equal(t, "", getStyleProperty(n, "margin"))

	setStyleProperty(n, "display", "block")
	setStyleProperty(n, "margin", "0")
	setStyleProperty(n, "color", "")
	style, _ := getAttr(n, "style")
	assert.Equal(t, "display: block; margin: 0;", style)
}

func TestClasses(t *testing.T) {
	doc := parseBody(t, `<div id="a" class="tab  active"></div>`)
	n := findByID(doc, "a")
	addClass(n, "active")
	addClass(n, "wide")
	assert.Equal(t, []string{"tab", "active", "wide"}, classNames(n))
	removeClass(n, "active")
	assert.False(t, hasClass(n, "active"))
	assert.True(t, hasClass(n, "wide"))
}

func TestTextAndMarkup(t *testing.T) {
	doc := parseBody(t, `<p id="p">Hello <b>there</b></p>`)
	p := findByID(doc, "p")
	assert.Equal(t, "Hello there", textContent(p))
	assert.Equal(t, "Hello <b>there</b>", renderChildren(p))

	require.NoError(t, setInnerHTML(p, `<i>new</i> text`))
	assert.Equal(t, "new text", textContent(p))
	setTextContent(p, "")
	assert.Nil(t, p.FirstChild)
}

func TestDescribeNode(t *testing.T) {
	doc := parseBody(t, `<div id="x"></div><span class="card big" onclick="go('a')"></span>`)
	assert.Equal(t, "div#x", describeNode(findByID(doc, "x")))
	assert.Equal(t, `span.card.big[onclick="go('a')"]`, describeNode(findFirstElement(doc, "span")))
	assert.Equal(t, "#document", describeNode(doc))
}

func TestSelectorHelpers(t *testing.T) {
	doc := parseBody(t, `<section class="pane"><ul><li id="one" class="item">1</li><li class="item">2</li></ul></section>`)
	assert.Len(t, querySelectorAll(doc, "li.item"), 2)
	one := findByID(doc, "one")
	assert.True(t, matches(one, ".item"))
	assert.Equal(t, "section", closest(one, ".pane").Data)
	assert.Nil(t, querySelector(doc, ".missing"))
}
