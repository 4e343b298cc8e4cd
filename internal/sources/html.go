package sources

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// htmlText flattens an HTML fragment to plain text. Block elements and <br>
// become line breaks and code spans are wrapped in backticks.
func htmlText(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}

	var b strings.Builder
	var walk func(n *html.Node)
	children := func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style:
				return
			case atom.Br:
				b.WriteByte('\n')
				return
			case atom.Code:
				b.WriteByte('`')
				children(n)
				b.WriteByte('`')
				return
			case atom.P, atom.Div, atom.Li, atom.Pre, atom.Blockquote:
				b.WriteByte('\n')
				children(n)
				b.WriteByte('\n')
				return
			}
		}
		children(n)
	}
	walk(doc)

	return strings.TrimSpace(b.String())
}
