package dom

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Node is a handle to an element or text node. Handles are comparable and
// can be used as map keys; they do not keep the node attached, so callers
// check Document.Contains before acting on one they stored earlier.
type Node struct {
	doc *Document
	n   *html.Node
}

// Valid reports whether the handle refers to a node at all.
func (n Node) Valid() bool {
	return n.n != nil
}

// Document returns the owning document.
func (n Node) Document() *Document {
	return n.doc
}

// IsElement reports whether the node is an element.
func (n Node) IsElement() bool {
	return n.n != nil && n.n.Type == html.ElementNode
}

// IsText reports whether the node is a text node.
func (n Node) IsText() bool {
	return n.n != nil && n.n.Type == html.TextNode
}

// Tag returns the lowercase tag name of an element, or "" for other nodes.
func (n Node) Tag() string {
	if !n.IsElement() {
		return ""
	}
	return strings.ToLower(n.n.Data)
}

// Data returns the contents of a text node.
func (n Node) Data() string {
	if n.n == nil {
		return ""
	}
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	return n.n.Data
}

// Attr returns the value of an attribute.
func (n Node) Attr(key string) (string, bool) {
	if !n.IsElement() {
		return "", false
	}
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	return attr(n.n, key)
}

// SetAttr sets an attribute. Attribute changes are not reported to observers.
func (n Node) SetAttr(key, val string) {
	if !n.IsElement() {
		return
	}
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	for i, a := range n.n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.n.Attr[i].Val = val
			return
		}
	}
	n.n.Attr = append(n.n.Attr, html.Attribute{Key: key, Val: val})
}

// Parent returns the parent node, or an invalid Node at the top.
func (n Node) Parent() Node {
	if n.n == nil {
		return Node{}
	}
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	if n.n.Parent == nil {
		return Node{}
	}
	return n.doc.wrap(n.n.Parent)
}

// TextContent returns the concatenated text of the node and its descendants.
func (n Node) TextContent() string {
	if n.n == nil {
		return ""
	}
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(x *html.Node) {
		if x.Type == html.TextNode {
			b.WriteString(x.Data)
		}
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n.n)
	return b.String()
}

// InnerHTML serialises the children of the node.
func (n Node) InnerHTML() (string, error) {
	if n.n == nil {
		return "", &DocumentError{Op: "inner html", Cause: ErrDetached}
	}
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()

	var buf bytes.Buffer
	for c := n.n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", &DocumentError{Op: "inner html", Cause: err}
		}
	}
	return buf.String(), nil
}

// SetInnerHTML replaces the children of an element with parsed markup and
// reports a child-list mutation.
func (n Node) SetInnerHTML(content string) error {
	return n.insertHTML(content, true)
}

// AppendHTML parses markup and appends it to the element's children.
func (n Node) AppendHTML(content string) error {
	return n.insertHTML(content, false)
}

func (n Node) insertHTML(content string, replace bool) error {
	if !n.IsElement() {
		return &DocumentError{Op: "set inner html", Cause: ErrDetached}
	}
	d := n.doc
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.attached(n.n) {
		return &DocumentError{Op: "set inner html", Cause: ErrDetached}
	}

	nodes, err := html.ParseFragment(strings.NewReader(content), n.n)
	if err != nil {
		return &DocumentError{Op: "set inner html", Cause: err}
	}

	if replace {
		for c := n.n.FirstChild; c != nil; {
			next := c.NextSibling
			n.n.RemoveChild(c)
			d.forget(c)
			c = next
		}
	}
	for _, c := range nodes {
		n.n.AppendChild(c)
	}

	d.notify(ChildList, n.n)
	return nil
}

// SetText replaces the contents of a text node and reports a character-data
// mutation.
func (n Node) SetText(text string) error {
	if !n.IsText() {
		return &DocumentError{Op: "set text", Cause: ErrDetached}
	}
	d := n.doc
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.attached(n.n) {
		return &DocumentError{Op: "set text", Cause: ErrDetached}
	}
	n.n.Data = text
	d.notify(CharacterData, n.n)
	return nil
}

// Remove detaches the node from its parent.
func (n Node) Remove() error {
	if n.n == nil {
		return &DocumentError{Op: "remove", Cause: ErrDetached}
	}
	d := n.doc
	d.mu.Lock()
	defer d.mu.Unlock()

	parent := n.n.Parent
	if parent == nil || !d.attached(n.n) {
		return &DocumentError{Op: "remove", Cause: ErrDetached}
	}
	parent.RemoveChild(n.n)
	d.forget(n.n)
	d.notify(ChildList, parent)
	return nil
}

// Matches reports whether the element matches a CSS selector.
func (n Node) Matches(selector string) bool {
	if !n.IsElement() || selector == "" {
		return false
	}
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	return n.selection().Is(selector)
}

// Closest returns the nearest ancestor-or-self element matching selector.
func (n Node) Closest(selector string) Node {
	if n.n == nil || selector == "" {
		return Node{}
	}
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()

	start := n.n
	if start.Type != html.ElementNode {
		start = start.Parent
	}
	if start == nil {
		return Node{}
	}
	found := goquery.NewDocumentFromNode(start).Closest(selector)
	if found.Length() == 0 {
		return Node{}
	}
	return n.doc.wrap(found.Get(0))
}

// Find returns all descendant elements matching a CSS selector.
func (n Node) Find(selector string) []Node {
	if n.n == nil {
		return nil
	}
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()

	var out []Node
	n.selection().Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, n.doc.wrap(s.Get(0)))
	})
	return out
}

// TextNodes returns the text nodes under n in document order, skipping the
// contents of elements whose tag is in skip.
func (n Node) TextNodes(skip map[string]bool) []Node {
	if n.n == nil {
		return nil
	}
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()

	var out []Node
	var walk func(*html.Node)
	walk = func(x *html.Node) {
		switch x.Type {
		case html.TextNode:
			out = append(out, n.doc.wrap(x))
			return
		case html.ElementNode:
			if skip[strings.ToLower(x.Data)] {
				return
			}
		}
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n.n)
	return out
}

// IsHidden reports whether the node would not be rendered: it or an ancestor
// carries the hidden attribute or an inline display:none. Elements set to
// display:contents are never considered hidden themselves.
func (n Node) IsHidden() bool {
	if n.n == nil {
		return true
	}
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()

	for p := n.n; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		display := inlineDisplay(p)
		if display == "contents" {
			continue
		}
		if display == "none" {
			return true
		}
		if _, ok := attr(p, "hidden"); ok {
			return true
		}
	}
	return false
}

func (n Node) selection() *goquery.Selection {
	return goquery.NewDocumentFromNode(n.n).Selection
}

func inlineDisplay(n *html.Node) string {
	style, ok := attr(n, "style")
	if !ok {
		return ""
	}
	display := ""
	for _, decl := range strings.Split(style, ";") {
		name, value, found := strings.Cut(decl, ":")
		if !found || strings.ToLower(strings.TrimSpace(name)) != "display" {
			continue
		}
		value = strings.ToLower(strings.TrimSpace(value))
		value = strings.TrimSpace(strings.TrimSuffix(value, "!important"))
		display = value
	}
	return display
}
