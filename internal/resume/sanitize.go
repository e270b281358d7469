package resume

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var droppedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Frame:    true,
	atom.Frameset: true,
	atom.Link:     true,
	atom.Meta:     true,
	atom.Base:     true,
}

// Sanitize removes active content from user supplied resume HTML: script
// and embedding elements, event handler attributes and javascript: URLs.
func Sanitize(doc string) (string, error) {
	nodes, err := parseFragment(doc)
	if err != nil {
		return "", err
	}
	kept := nodes[:0]
	for _, n := range nodes {
		if n.Type == html.CommentNode || (n.Type == html.ElementNode && droppedElements[n.DataAtom]) {
			continue
		}
		scrub(n)
		kept = append(kept, n)
	}
	out, err := renderNodes(kept)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func scrub(n *html.Node) {
	if n.Type == html.ElementNode {
		attrs := n.Attr[:0]
		for _, a := range n.Attr {
			key := strings.ToLower(a.Key)
			if strings.HasPrefix(key, "on") {
				continue
			}
			if (key == "href" || key == "src" || key == "action" || key == "formaction") && unsafeURL(a.Val) {
				continue
			}
			attrs = append(attrs, a)
		}
		n.Attr = attrs
	}

	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.ElementNode && droppedElements[c.DataAtom] {
			n.RemoveChild(c)
			continue
		}
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
			continue
		}
		scrub(c)
	}
}

// unsafeURL reports script-bearing URLs. Browsers ignore control
// characters and whitespace anywhere in the scheme, so those are dropped
// before the prefix check.
func unsafeURL(v string) bool {
	v = strings.ToLower(strings.Map(func(r rune) rune {
		if r <= ' ' || r == 0x7f || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, v))
	return strings.HasPrefix(v, "javascript:") || strings.HasPrefix(v, "vbscript:") || strings.HasPrefix(v, "data:text/html")
}
