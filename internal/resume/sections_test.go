package resume

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"careerboost/internal/errors"
)

const headingResume = `<div>
<h1>Jane Doe</h1>
<p>jane@example.com</p>
<h2>Professional Summary</h2>
<p>Backend engineer.</p>
<h2>Work Experience</h2>
<h3>Engineer at Acme</h3>
<ul><li>Built APIs</li></ul>
<h2>Technical Skills</h2>
<p>Go, SQL</p>
</div>`

func TestParseSections_Headings(t *testing.T) {
	got, err := ParseSections(headingResume)
	if err != nil {
		t.Fatalf("ParseSections() error = %v", err)
	}

	want := []Section{
		{Name: "header", Title: "", HTML: "<h1>Jane Doe</h1>\n<p>jane@example.com</p>"},
		{Name: "summary", Title: "Professional Summary", HTML: "<h2>Professional Summary</h2>\n<p>Backend engineer.</p>"},
		{Name: "experience", Title: "Work Experience", HTML: "<h2>Work Experience</h2>\n<h3>Engineer at Acme</h3>\n<ul><li>Built APIs</li></ul>"},
		{Name: "skills", Title: "Technical Skills", HTML: "<h2>Technical Skills</h2>\n<p>Go, SQL</p>"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseSections() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSections_ExplicitElements(t *testing.T) {
	doc := `<section data-section="experience"><h2>Jobs</h2><p>a</p></section>` +
		`<section id="education"><h2>School</h2></section>` +
		`<section><h2>Side Projects</h2></section>` +
		`<section><h2>Work History</h2></section>`

	got, err := ParseSections(doc)
	if err != nil {
		t.Fatalf("ParseSections() error = %v", err)
	}

	var names, titles []string
	for _, s := range got {
		names = append(names, s.Name)
		titles = append(titles, s.Title)
	}
	if diff := cmp.Diff([]string{"experience", "education", "side-projects", "experience-2"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Jobs", "School", "Side Projects", "Work History"}, titles); diff != "" {
		t.Errorf("titles mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSections_Empty(t *testing.T) {
	got, err := ParseSections("   ")
	if err != nil {
		t.Fatalf("ParseSections() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no sections, got %d", len(got))
	}
}

func TestCanonicalName(t *testing.T) {
	tests := map[string]string{
		"Work Experience":           "experience",
		"  TECHNICAL   skills: ":    "skills",
		"About Me":                  "summary",
		"Open Source":               "open-source",
		"!!!":                       "section",
		"Licenses & Certifications": "certifications",
	}
	for in, want := range tests {
		if got := CanonicalName(in); got != want {
			t.Errorf("CanonicalName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReplaceSection(t *testing.T) {
	updated, err := ReplaceSection(headingResume, "skills",
		`<h2>Technical Skills</h2><p>Go, Rust</p><script>alert(1)</script>`)
	if err != nil {
		t.Fatalf("ReplaceSection() error = %v", err)
	}
	if !strings.Contains(updated, "Go, Rust") {
		t.Errorf("replacement missing from %q", updated)
	}
	if strings.Contains(updated, "script") {
		t.Errorf("script survived sanitizing: %q", updated)
	}
	if !strings.Contains(updated, "<p>Backend engineer.</p>") {
		t.Errorf("other sections changed: %q", updated)
	}

	sections, err := ParseSections(updated)
	if err != nil {
		t.Fatalf("ParseSections() error = %v", err)
	}
	if len(sections) != 4 {
		t.Fatalf("expected 4 sections after replace, got %d", len(sections))
	}
}

func TestReplaceSection_KeepsNameWithoutHeading(t *testing.T) {
	updated, err := ReplaceSection(headingResume, "experience", "<p>Freelance work</p>")
	if err != nil {
		t.Fatalf("ReplaceSection() error = %v", err)
	}

	sections, err := ParseSections(updated)
	if err != nil {
		t.Fatalf("ParseSections() error = %v", err)
	}
	var names []string
	for _, s := range sections {
		names = append(names, s.Name)
	}
	if diff := cmp.Diff([]string{"header", "summary", "experience", "skills"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	exp, _ := FindSection(sections, "experience")
	if !strings.Contains(exp.HTML, "Freelance work") {
		t.Errorf("experience = %q", exp.HTML)
	}
}

func TestReplaceSection_NotFound(t *testing.T) {
	_, err := ReplaceSection(headingResume, "awards", "<p>x</p>")
	if !errors.HasCode(err, errors.ErrCodeSectionNotFound) {
		t.Fatalf("expected SECTION_NOT_FOUND, got %v", err)
	}
	if !errors.IsType(err, errors.ErrorTypeNotFound) {
		t.Errorf("expected not found error type, got %v", err)
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"inline", "<p>Hello <b>world</b></p>", "Hello world"},
		{"blocks", "<ul><li>Go</li><li>SQL</li></ul>", "Go SQL"},
		{"script", "<p>a</p><script>var x = 1</script>", "a"},
		{"plain", "just text", "just text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.in); got != tt.want {
				t.Errorf("PlainText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	in := `<p onclick="x()">Hi <a href="javascript:alert(1)">link</a></p><script>bad()</script><!-- note -->`
	got, err := Sanitize(in)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if want := "<p>Hi <a>link</a></p>"; got != want {
		t.Errorf("Sanitize() = %q, want %q", got, want)
	}

	kept, err := Sanitize(`<a href="https://example.com">site</a>`)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if !strings.Contains(kept, `href="https://example.com"`) {
		t.Errorf("safe link removed: %q", kept)
	}
}

func TestSanitizeObfuscatedSchemes(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"leading control reference", `<a href="&#1;javascript:alert(1)">link</a>`},
		{"raw control character", "<a href=\"\x01\x02javascript:alert(1)\">link</a>"},
		{"tab inside scheme", `<a href="java&#9;script:alert(1)">link</a>`},
		{"leading newline", `<a href="&#10;JavaScript:alert(1)">link</a>`},
		{"delete character", `<a href="&#127;vbscript:msgbox(1)">link</a>`},
		{"data html", `<a href=" data:text/html;base64,PHNjcmlwdD4=">link</a>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sanitize(tt.in)
			if err != nil {
				t.Fatalf("Sanitize() error = %v", err)
			}
			if got != "<a>link</a>" {
				t.Errorf("Sanitize(%q) = %q, want <a>link</a>", tt.in, got)
			}
		})
	}
}
