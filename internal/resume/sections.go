package resume

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"careerboost/internal/errors"
)

// HeaderSection holds the content that precedes the first heading
const HeaderSection = "header"

// Section is a named block of the resume HTML that can be edited on its own
type Section struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}

// sectionAliases maps common heading texts to canonical section names
var sectionAliases = map[string]string{
	"summary":                     "summary",
	"professional summary":        "summary",
	"profile":                     "summary",
	"professional profile":        "summary",
	"about":                       "summary",
	"about me":                    "summary",
	"objective":                   "summary",
	"career objective":            "summary",
	"experience":                  "experience",
	"work experience":             "experience",
	"professional experience":     "experience",
	"relevant experience":         "experience",
	"employment":                  "experience",
	"employment history":          "experience",
	"work history":                "experience",
	"career history":              "experience",
	"education":                   "education",
	"academic background":         "education",
	"education and training":      "education",
	"skills":                      "skills",
	"technical skills":            "skills",
	"key skills":                  "skills",
	"core competencies":           "skills",
	"competencies":                "skills",
	"technologies":                "skills",
	"tech stack":                  "skills",
	"projects":                    "projects",
	"personal projects":           "projects",
	"key projects":                "projects",
	"certifications":              "certifications",
	"certificates":                "certifications",
	"licenses and certifications": "certifications",
	"licenses & certifications":   "certifications",
	"languages":                   "languages",
	"awards":                      "awards",
	"honors":                      "awards",
	"honours":                     "awards",
	"achievements":                "awards",
	"awards and honors":           "awards",
	"volunteering":                "volunteering",
	"volunteer experience":        "volunteering",
	"volunteer work":              "volunteering",
	"interests":                   "interests",
	"hobbies":                     "interests",
	"hobbies and interests":       "interests",
	"publications":                "publications",
	"references":                  "references",
	"contact":                     "contact",
	"contact information":         "contact",
	"contact details":             "contact",
	"header":                      "header",
	"personal information":        "header",
	"personal details":            "header",
	"additional information":      "additional",
	"additional":                  "additional",
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// CanonicalName normalizes a heading or attribute value into a section name
func CanonicalName(text string) string {
	key := strings.ToLower(strings.Join(strings.Fields(text), " "))
	key = strings.TrimRight(key, ": ")
	if name, ok := sectionAliases[key]; ok {
		return name
	}
	slug := strings.Trim(slugInvalid.ReplaceAllString(key, "-"), "-")
	if slug == "" {
		return "section"
	}
	return slug
}

func knownSection(text string) bool {
	key := strings.ToLower(strings.Join(strings.Fields(text), " "))
	_, ok := sectionAliases[strings.TrimRight(key, ": ")]
	return ok
}

func bodyContext() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
}

func parseFragment(doc string) ([]*html.Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(doc), bodyContext())
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat, "failed to parse resume HTML", err)
	}
	return nodes, nil
}

// ParseSections splits a resume HTML blob into named sections. Explicit
// <section> elements win; otherwise h2 headings (and h1/h3 headings whose
// text is a known section title) start a new section.
func ParseSections(doc string) ([]Section, error) {
	nodes, err := parseFragment(doc)
	if err != nil {
		return nil, err
	}
	nodes = unwrap(nodes)

	type pending struct {
		name  string
		title string
		nodes []*html.Node
	}
	var (
		blocks  []*pending
		current *pending
	)
	start := func(name, title string, n *html.Node) {
		current = &pending{name: name, title: title, nodes: []*html.Node{n}}
		blocks = append(blocks, current)
	}

	for _, n := range nodes {
		switch {
		case isBlank(n):
			if current != nil {
				current.nodes = append(current.nodes, n)
			}
		case isSectionElement(n):
			title := headingText(n)
			name := attr(n, "data-section")
			if name == "" {
				name = attr(n, "id")
			}
			if name == "" {
				name = title
			}
			start(CanonicalName(name), title, n)
		case isBoundaryHeading(n):
			title := textContent(n)
			start(CanonicalName(title), title, n)
		default:
			if current == nil {
				start(HeaderSection, "", n)
				continue
			}
			current.nodes = append(current.nodes, n)
		}
	}

	seen := make(map[string]int, len(blocks))
	sections := make([]Section, 0, len(blocks))
	for _, b := range blocks {
		rendered, err := renderNodes(b.nodes)
		if err != nil {
			return nil, err
		}
		seen[b.name]++
		name := b.name
		if seen[b.name] > 1 {
			name = fmt.Sprintf("%s-%d", b.name, seen[b.name])
		}
		sections = append(sections, Section{
			Name:  name,
			Title: b.title,
			HTML:  strings.TrimSpace(rendered),
		})
	}
	return sections, nil
}

// JoinSections renders sections back into a single HTML blob
func JoinSections(sections []Section) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		if s.HTML != "" {
			parts = append(parts, s.HTML)
		}
	}
	return strings.Join(parts, "\n")
}

// FindSection returns the section with the given name
func FindSection(sections []Section, name string) (Section, bool) {
	for _, s := range sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// ReplaceSection rewrites one section of doc and leaves the others intact.
// The replacement is sanitized before it is spliced in.
func ReplaceSection(doc, name, newHTML string) (string, error) {
	sections, err := ParseSections(doc)
	if err != nil {
		return "", err
	}
	clean, err := Sanitize(newHTML)
	if err != nil {
		return "", err
	}
	for i := range sections {
		if sections[i].Name == name {
			sections[i].HTML = keepName(clean, name)
			return JoinSections(sections), nil
		}
	}
	return "", errors.NewNotFoundError(errors.ErrCodeSectionNotFound,
		fmt.Sprintf("section %q not found", name), nil).
		WithContext("section", name)
}

// keepName wraps a replacement that would not parse back under name in an
// explicit section element, so edits never merge into a neighbour.
func keepName(clean, name string) string {
	if clean == "" {
		return clean
	}
	parsed, err := ParseSections(clean)
	if err == nil && len(parsed) == 1 && parsed[0].Name == name {
		return clean
	}
	return `<section data-section="` + html.EscapeString(name) + `">` + clean + `</section>`
}

// PlainText returns the visible text of doc with whitespace collapsed
func PlainText(doc string) string {
	nodes, err := html.ParseFragment(strings.NewReader(doc), bodyContext())
	if err != nil {
		return strings.Join(strings.Fields(doc), " ")
	}
	var words []string
	for _, n := range nodes {
		words = append(words, strings.Fields(textContent(n))...)
	}
	return strings.Join(words, " ")
}

// unwrap strips a single div/article/main element wrapping the whole document
func unwrap(nodes []*html.Node) []*html.Node {
	for {
		var only *html.Node
		count := 0
		for _, n := range nodes {
			if isBlank(n) {
				continue
			}
			count++
			only = n
		}
		if count != 1 || only.Type != html.ElementNode || isSectionElement(only) {
			return nodes
		}
		switch only.DataAtom {
		case atom.Div, atom.Article, atom.Main:
		default:
			return nodes
		}
		var children []*html.Node
		for c := only.FirstChild; c != nil; c = c.NextSibling {
			children = append(children, c)
		}
		nodes = children
	}
}

func isBlank(n *html.Node) bool {
	switch n.Type {
	case html.CommentNode:
		return true
	case html.TextNode:
		return strings.TrimSpace(n.Data) == ""
	}
	return false
}

func isSectionElement(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	return n.DataAtom == atom.Section || attr(n, "data-section") != ""
}

func isBoundaryHeading(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.H2:
		return true
	case atom.H1, atom.H3:
		return knownSection(textContent(n))
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// headingText returns the text of the first h1-h6 inside n
func headingText(n *html.Node) string {
	var found string
	var traverse func(*html.Node) bool
	traverse = func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				found = textContent(n)
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if traverse(c) {
				return true
			}
		}
		return false
	}
	traverse(n)
	return found
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
			if n.DataAtom == atom.Br {
				b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
		if n.Type == html.ElementNode && !isInline(n.DataAtom) {
			b.WriteByte(' ')
		}
	}
	traverse(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func isInline(a atom.Atom) bool {
	switch a {
	case atom.A, atom.B, atom.Strong, atom.I, atom.Em, atom.Span, atom.U, atom.Small, atom.Sup, atom.Sub, atom.Code, atom.Mark:
		return true
	}
	return false
}

func renderNodes(nodes []*html.Node) (string, error) {
	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", errors.NewInternalError("RENDER_FAILED", "failed to render resume HTML", err)
		}
	}
	return buf.String(), nil
}
