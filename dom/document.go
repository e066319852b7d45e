// Package dom provides a live HTML document for the translation pipeline.
//
// A Document wraps a golang.org/x/net/html tree and exposes the small part of
// the browser DOM the pipeline relies on: element handles that can be checked
// for liveness, inner HTML reads and writes, mutation observers, and
// capture/bubble event dispatch (clicks and keyboard events).
//
// All tree access is serialised by the document's lock. Observer callbacks and
// event listeners always run outside that lock, so they may freely call back
// into the document.
package dom

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Document is a mutable HTML document.
type Document struct {
	mu        sync.RWMutex
	root      *html.Node
	framed    bool
	listeners map[*html.Node][]listener
	observers []*Observer
}

// Option configures a Document.
type Option func(*Document)

// WithFrame marks the document as the content of an embedded frame rather
// than a top-level page.
func WithFrame() Option {
	return func(d *Document) {
		d.framed = true
	}
}

// Parse reads an HTML document from r.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, &DocumentError{Op: "parse", Cause: err}
	}

	d := &Document{
		root:      root,
		listeners: make(map[*html.Node][]listener),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(content string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(content), opts...)
}

// InFrame reports whether the document is an embedded frame.
func (d *Document) InFrame() bool {
	return d.framed
}

// Root returns the document node.
func (d *Document) Root() Node {
	return d.wrap(d.root)
}

// Body returns the <body> element, or an invalid Node if there is none.
func (d *Document) Body() Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.wrap(findElement(d.root, func(n *html.Node) bool {
		return n.Data == "body"
	}))
}

// GetElementByID returns the first element whose id attribute equals id.
func (d *Document) GetElementByID(id string) Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.wrap(findElement(d.root, func(n *html.Node) bool {
		v, ok := attr(n, "id")
		return ok && v == id
	}))
}

// Query returns all elements matching a CSS selector.
func (d *Document) Query(selector string) []Node {
	return d.Root().Find(selector)
}

// Contains reports whether n is still attached to this document.
func (d *Document) Contains(n Node) bool {
	if n.n == nil || n.doc != d {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.attached(n.n)
}

// HTML serialises the whole document.
func (d *Document) HTML() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return "", &DocumentError{Op: "render", Cause: err}
	}
	return buf.String(), nil
}

// attached must be called with the lock held.
func (d *Document) attached(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

func (d *Document) wrap(n *html.Node) Node {
	if n == nil {
		return Node{}
	}
	return Node{doc: d, n: n}
}

// forget drops listeners registered on a detached subtree.
func (d *Document) forget(n *html.Node) {
	delete(d.listeners, n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.forget(c)
	}
}

func findElement(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}
