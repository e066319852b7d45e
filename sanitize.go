package framelai

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Sanitize removes executable content from an HTML fragment: <script> and
// <style> elements, on* event-handler attributes and javascript: URLs. All
// other markup is kept. If the fragment cannot be processed it is returned
// fully escaped, so nothing unchecked ever reaches the document.
func Sanitize(content string) string {
	if !strings.ContainsAny(content, "<&") {
		return content
	}

	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(content), context)
	if err != nil {
		return html.EscapeString(content)
	}

	root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	doc := goquery.NewDocumentFromNode(root)
	doc.Find("script, style").Remove()
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			stripUnsafeAttrs(n)
		}
	})

	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return html.EscapeString(content)
		}
	}
	return buf.String()
}

func stripUnsafeAttrs(n *html.Node) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if strings.HasPrefix(strings.ToLower(a.Key), "on") {
			continue
		}
		if isScriptURL(a.Val) {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

// isScriptURL ignores whitespace and control characters the way browsers do
// when resolving a URL scheme.
func isScriptURL(v string) bool {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, v)
	return strings.HasPrefix(cleaned, "javascript:")
}
