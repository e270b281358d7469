package formatters

import (
	"fmt"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"careerboost/internal/resume"
	"careerboost/internal/types"
)

// OptimizeReport is the CLI result of one optimization run
type OptimizeReport struct {
	Source          string                     `json:"source"`
	Result          types.OptimizeResumeOutput `json:"result"`
	Score           resume.ScoreBreakdown      `json:"score"`
	MissingKeywords []string                   `json:"missingKeywords,omitempty"`
}

// SectionList is the parsed sections of a resume document
type SectionList struct {
	Source   string           `json:"source"`
	Sections []resume.Section `json:"sections"`
}

// Formatter renders one result type in one output format
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// GlobalRegistry holds the default formatters
var GlobalRegistry = NewFormatterRegistry()

// NewFormatterRegistry creates a registry with the default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "OptimizeReport", &OptimizeTextFormatter{})
	registry.RegisterFormatter("markdown", "OptimizeReport", &OptimizeMarkdownFormatter{})
	registry.RegisterFormatter("text", "SectionList", &SectionsTextFormatter{})
	registry.RegisterFormatter("markdown", "SectionList", &SectionsMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a formatter for a format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the most specific formatter registered
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case OptimizeReport, *OptimizeReport:
		return "OptimizeReport"
	case SectionList, *SectionList:
		return "SectionList"
	default:
		return "any"
	}
}

func deref[T any](data any) (T, error) {
	switch v := data.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("expected %T, got %T", zero, data)
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// OptimizeTextFormatter renders an optimization report as plain text
type OptimizeTextFormatter struct{}

func (f *OptimizeTextFormatter) Format(data any) (string, error) {
	report, err := deref[OptimizeReport](data)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	out.WriteString("=== OPTIMIZED RESUME ===\n\n")
	out.WriteString(resume.PlainText(report.Result.OptimizedText))
	out.WriteString("\n\n")

	fmt.Fprintf(&out, "=== ATS SCORE ===\n")
	fmt.Fprintf(&out, "Score: %d/100 (up to %d/100 with every suggestion and keyword)\n\n",
		report.Score.Total, report.Score.MaxPotential)

	if len(report.Result.Suggestions) > 0 {
		out.WriteString("=== SUGGESTIONS ===\n")
		for _, s := range report.Result.Suggestions {
			fmt.Fprintf(&out, "[%s] %s (+%d)\n", s.Type, s.Text, suggestionPoints(s))
			if s.Impact != "" {
				fmt.Fprintf(&out, "    %s\n", s.Impact)
			}
		}
		out.WriteString("\n")
	}

	if len(report.Result.Keywords) > 0 {
		out.WriteString("=== KEYWORDS ===\n")
		for _, k := range report.Result.Keywords {
			state := "missing"
			if k.Present {
				state = "present"
			}
			fmt.Fprintf(&out, "%-24s %s\n", k.Keyword, state)
		}
	}

	return out.String(), nil
}

func (f *OptimizeTextFormatter) SupportedType() string {
	return "OptimizeReport"
}

// OptimizeMarkdownFormatter renders an optimization report as markdown
type OptimizeMarkdownFormatter struct{}

func (f *OptimizeMarkdownFormatter) Format(data any) (string, error) {
	report, err := deref[OptimizeReport](data)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	fmt.Fprintf(&out, "# Optimized Resume\n\n")
	if report.Source != "" {
		fmt.Fprintf(&out, "_Source: %s_\n\n", report.Source)
	}
	fmt.Fprintf(&out, "**ATS score:** %d/100 (potential %d/100)\n\n", report.Score.Total, report.Score.MaxPotential)

	sections, err := resume.ParseSections(report.Result.OptimizedText)
	if err != nil {
		return "", fmt.Errorf("failed to parse optimized resume: %w", err)
	}
	for _, s := range sections {
		if s.Name != resume.HeaderSection {
			fmt.Fprintf(&out, "## %s\n\n", sectionTitle(s))
		}
		fmt.Fprintf(&out, "%s\n\n", sectionBody(s))
	}

	if len(report.Result.Suggestions) > 0 {
		out.WriteString("## Suggestions\n\n")
		out.WriteString("| Type | Suggestion | Points |\n|---|---|---|\n")
		for _, s := range report.Result.Suggestions {
			fmt.Fprintf(&out, "| %s | %s | +%d |\n", s.Type, escapeCell(s.Text), suggestionPoints(s))
		}
		out.WriteString("\n")
	}

	if len(report.MissingKeywords) > 0 {
		out.WriteString("## Missing Keywords\n\n")
		for _, k := range report.MissingKeywords {
			fmt.Fprintf(&out, "- %s\n", k)
		}
	}

	return out.String(), nil
}

func (f *OptimizeMarkdownFormatter) SupportedType() string {
	return "OptimizeReport"
}

// SectionsTextFormatter lists sections as plain text
type SectionsTextFormatter struct{}

func (f *SectionsTextFormatter) Format(data any) (string, error) {
	list, err := deref[SectionList](data)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, s := range list.Sections {
		fmt.Fprintf(&out, "%-16s %-32s %d chars\n", s.Name, sectionTitle(s), len(sectionBody(s)))
	}
	return out.String(), nil
}

func (f *SectionsTextFormatter) SupportedType() string {
	return "SectionList"
}

// SectionsMarkdownFormatter renders every section under its own heading
type SectionsMarkdownFormatter struct{}

func (f *SectionsMarkdownFormatter) Format(data any) (string, error) {
	list, err := deref[SectionList](data)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, s := range list.Sections {
		fmt.Fprintf(&out, "## %s (`%s`)\n\n%s\n\n", sectionTitle(s), s.Name, sectionBody(s))
	}
	return out.String(), nil
}

func (f *SectionsMarkdownFormatter) SupportedType() string {
	return "SectionList"
}

func sectionTitle(s resume.Section) string {
	if s.Title != "" {
		return s.Title
	}
	return s.Name
}

// sectionBody is the section text without its heading
func sectionBody(s resume.Section) string {
	text := resume.PlainText(s.HTML)
	if s.Title != "" {
		text = strings.TrimSpace(strings.TrimPrefix(text, s.Title))
	}
	return text
}

func suggestionPoints(s types.Suggestion) int {
	if s.PointImpact <= 0 {
		return types.DefaultSuggestionPoints
	}
	return s.PointImpact
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}
