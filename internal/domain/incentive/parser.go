// Package incentive turns rendered comment HTML into element and word counts
// and prices those counts against an incentive table.
package incentive

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
)

// bodyContext is the parent element fragments are parsed under.
var bodyContext = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}

// ParseFragment counts every element by tag name, at every nesting level,
// and adds the whitespace-separated word count of every text node under
// model.TextCategory. If the fragment cannot be parsed, the whole input is
// counted as plain text.
func ParseFragment(body string) model.CommentMultiset {
	m := model.CommentMultiset{}

	nodes, err := html.ParseFragment(strings.NewReader(body), bodyContext)
	if err != nil {
		addWords(m, body)
		return m
	}

	for _, n := range nodes {
		walk(n, m)
	}
	return m
}

// ParseFragments parses each body and merges the results.
func ParseFragments(bodies []string) model.CommentMultiset {
	m := model.CommentMultiset{}
	for _, b := range bodies {
		m.Merge(ParseFragment(b))
	}
	return m
}

func walk(n *html.Node, m model.CommentMultiset) {
	switch n.Type {
	case html.ElementNode:
		m[n.Data]++
	case html.TextNode:
		addWords(m, n.Data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, m)
	}
}

func addWords(m model.CommentMultiset, text string) {
	if n := len(strings.Fields(text)); n > 0 {
		m[model.TextCategory] += n
	}
}
