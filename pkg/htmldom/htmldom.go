// Package htmldom adapts a parsed golang.org/x/net/html tree as the
// selector primitive consumed by domwatch. It implements
// domwatch.SelectorEngine with CSS matching via cascadia.
//
// The package is a selector engine only: it reports nothing about
// mutations. Pair it with a real MutationSource, or with
// domwatch.ChannelSource when driving batches by hand.
package htmldom

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/zoobzio/domwatch"
)

// Node is a canonical handle to one element of a Document. Two handles to
// the same underlying node are the same pointer, so identity comparison
// works the way domwatch.Element requires.
type Node struct {
	doc *Document
	n   *html.Node
}

// TagName returns the element's tag in lower case.
func (n *Node) TagName() string {
	return strings.ToLower(n.n.Data)
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// Unwrap exposes the underlying parse node.
func (n *Node) Unwrap() *html.Node {
	return n.n
}

// Document wraps a parsed HTML tree and hands out canonical element
// handles. It implements domwatch.SelectorEngine.
type Document struct {
	root *html.Node

	mu    sync.Mutex
	nodes map[*html.Node]*Node
	sels  map[string]cascadia.Sel
}

// Load parses an HTML document.
func Load(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmldom: parse: %w", err)
	}
	return &Document{
		root:  root,
		nodes: make(map[*html.Node]*Node),
		sels:  make(map[string]cascadia.Sel),
	}, nil
}

// LoadString parses an HTML document from a string.
func LoadString(src string) (*Document, error) {
	return Load(strings.NewReader(src))
}

// Root returns the document's root element handle.
func (d *Document) Root() *Node {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return d.wrap(c)
		}
	}
	return d.wrap(d.root)
}

// Wrap returns the canonical handle for a parse node.
func (d *Document) Wrap(n *html.Node) *Node {
	return d.wrap(n)
}

func (d *Document) wrap(n *html.Node) *Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.nodes[n]; ok {
		return w
	}
	w := &Node{doc: d, n: n}
	d.nodes[n] = w
	return w
}

// compile returns the cached cascadia selector, or nil when the
// expression does not parse.
func (d *Document) compile(selector string) cascadia.Sel {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.sels[selector]; ok {
		return s
	}
	s, err := cascadia.Parse(selector)
	if err != nil {
		s = nil
	}
	d.sels[selector] = s
	return s
}

// unwrap resolves a domwatch.Element back to its parse node. A nil
// element means the document root.
func (d *Document) unwrap(el domwatch.Element) *html.Node {
	if el == nil {
		return d.root
	}
	if n, ok := el.(*Node); ok && n.doc == d {
		return n.n
	}
	return nil
}

// Matches reports whether el satisfies the CSS selector.
func (d *Document) Matches(el domwatch.Element, selector string) bool {
	n := d.unwrap(el)
	sel := d.compile(selector)
	if n == nil || sel == nil || n.Type != html.ElementNode {
		return false
	}
	return sel.Match(n)
}

// QueryAll returns the descendants of root satisfying the selector, in
// document order. The root itself is excluded.
func (d *Document) QueryAll(root domwatch.Element, selector string) []domwatch.Element {
	n := d.unwrap(root)
	sel := d.compile(selector)
	if n == nil || sel == nil {
		return nil
	}

	var out []domwatch.Element
	for _, m := range cascadia.QueryAll(n, sel) {
		if m == n {
			continue
		}
		out = append(out, d.wrap(m))
	}
	return out
}

// Contains reports whether el is root or a descendant of root.
func (d *Document) Contains(root, el domwatch.Element) bool {
	top := d.unwrap(root)
	n := d.unwrap(el)
	if top == nil || n == nil {
		return false
	}
	for ; n != nil; n = n.Parent {
		if n == top {
			return true
		}
	}
	return false
}
