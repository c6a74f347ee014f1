// Package dom holds detached snapshots of the live page and the query
// helpers strategies use on them.
//
// A snapshot is plain HTML in which every open shadow root is serialised
// as a <template shadowrootmode="open"> child of its host element. Those
// templates are the encapsulation boundaries: Query and QueryAll never cross
// them, QueryDeep does.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Document is a parsed snapshot of a page.
type Document struct {
	*goquery.Document
}

// Parse reads a snapshot from r.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse snapshot: %w", err)
	}
	return &Document{Document: doc}, nil
}

// ParseString reads a snapshot from an HTML string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Title returns the trimmed text of the first <title> element.
func (d *Document) Title() string {
	return strings.TrimSpace(d.Find("head > title").First().Text())
}

// Root returns the document node as a selection.
func (d *Document) Root() *goquery.Selection {
	return d.Selection
}

// Node returns the underlying document node.
func (d *Document) Node() *html.Node {
	return d.Document.Nodes[0]
}

// isShadowRoot reports whether n is a serialised shadow root.
func isShadowRoot(n *html.Node) bool {
	if n.Type != html.ElementNode || n.Data != "template" {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "shadowrootmode" || a.Key == "shadowroot" {
			return true
		}
	}
	return false
}

// ShadowRoot returns the shadow root hosted by the first element of host,
// or an empty selection.
func ShadowRoot(host *goquery.Selection) *goquery.Selection {
	if host.Length() == 0 {
		return host
	}
	for c := host.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		if isShadowRoot(c) {
			return host.FindNodes(c)
		}
	}
	return host.FindNodes()
}

// walkLight visits every descendant of n in document order without
// entering shadow roots. fn returning false stops the walk.
func walkLight(n *html.Node, fn func(*html.Node) bool) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if isShadowRoot(c) {
			continue
		}
		if !fn(c) {
			return false
		}
		if !walkLight(c, fn) {
			return false
		}
	}
	return true
}

func compile(selector string) (cascadia.Sel, error) {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return nil, fmt.Errorf("dom: invalid selector %q: %w", selector, err)
	}
	return sel, nil
}

// Query returns the first light-tree descendant of root's first node that
// matches selector, like Element.querySelector.
func Query(root *goquery.Selection, selector string) (*goquery.Selection, error) {
	sel, err := compile(selector)
	if err != nil {
		return nil, err
	}
	if root.Length() == 0 {
		return root.FindNodes(), nil
	}
	var found *html.Node
	walkLight(root.Nodes[0], func(n *html.Node) bool {
		if sel.Match(n) {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return root.FindNodes(), nil
	}
	return root.FindNodes(found), nil
}

// QueryAll returns all light-tree descendants of root's first node that
// match selector, in document order.
func QueryAll(root *goquery.Selection, selector string) (*goquery.Selection, error) {
	sel, err := compile(selector)
	if err != nil {
		return nil, err
	}
	if root.Length() == 0 {
		return root.FindNodes(), nil
	}
	var found []*html.Node
	walkLight(root.Nodes[0], func(n *html.Node) bool {
		if sel.Match(n) {
			found = append(found, n)
		}
		return true
	})
	return root.FindNodes(found...), nil
}

// QueryDeep searches root's light subtree first; if nothing matches it
// visits root's own shadow root and then every shadow host under root in
// document order, recursing into each shadow root. The first match wins.
func QueryDeep(root *goquery.Selection, selector string) (*goquery.Selection, error) {
	sel, err := compile(selector)
	if err != nil {
		return nil, err
	}
	if root.Length() == 0 {
		return root.FindNodes(), nil
	}
	if n := queryDeep(root.Nodes[0], sel); n != nil {
		return root.FindNodes(n), nil
	}
	return root.FindNodes(), nil
}

func queryDeep(root *html.Node, sel cascadia.Sel) *html.Node {
	var found *html.Node
	var shadows []*html.Node
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if isShadowRoot(c) {
			shadows = append(shadows, c)
			break
		}
	}
	walkLight(root, func(n *html.Node) bool {
		if found == nil && sel.Match(n) {
			found = n
			return false
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if isShadowRoot(c) {
				shadows = append(shadows, c)
				break
			}
		}
		return true
	})
	if found != nil {
		return found
	}
	for _, shadow := range shadows {
		if n := queryDeep(shadow, sel); n != nil {
			return n
		}
	}
	return nil
}

// QueryAllDeep returns every match under root in the order QueryDeep
// visits them: the light subtree, then each shadow root in document order.
func QueryAllDeep(root *goquery.Selection, selector string) (*goquery.Selection, error) {
	sel, err := compile(selector)
	if err != nil {
		return nil, err
	}
	if root.Length() == 0 {
		return root.FindNodes(), nil
	}
	var found []*html.Node
	queryAllDeep(root.Nodes[0], sel, &found)
	return root.FindNodes(found...), nil
}

func queryAllDeep(root *html.Node, sel cascadia.Sel, found *[]*html.Node) {
	var shadows []*html.Node
	if s := shadowOf(root); s != nil {
		shadows = append(shadows, s)
	}
	walkLight(root, func(n *html.Node) bool {
		if sel.Match(n) {
			*found = append(*found, n)
		}
		if s := shadowOf(n); s != nil {
			shadows = append(shadows, s)
		}
		return true
	})
	for _, shadow := range shadows {
		queryAllDeep(shadow, sel, found)
	}
}

func shadowOf(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isShadowRoot(c) {
			return c
		}
	}
	return nil
}

// InnerHTML renders the children of the first node in s, skipping any
// shadow root so only light-tree markup is converted.
func InnerHTML(s *goquery.Selection) (string, error) {
	if s.Length() == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	for c := s.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		if isShadowRoot(c) {
			continue
		}
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("dom: render: %w", err)
		}
	}
	return buf.String(), nil
}
