package ai

import (
	"html"
	"strings"
	"unicode/utf8"

	"careerboost/internal/types"

	"github.com/google/uuid"
)

const (
	maxSuggestionPoints = 10
	maxKeywordPoints    = 5
)

// sanitizeUTF8 replaces invalid UTF-8 sequences and strips NUL bytes that
// PDF extraction sometimes leaves behind; the Gemini API rejects both.
func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	return strings.ReplaceAll(s, "\x00", "")
}

// cleanJSON strips markdown code fences the model may wrap JSON in even when
// a response schema is set.
func cleanJSON(input string) string {
	clean := strings.TrimSpace(input)

	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	} else if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	}
	clean = strings.TrimLeft(clean, "\r\n")
	clean = strings.TrimSuffix(clean, "```")

	return strings.TrimSpace(clean)
}

// normalizeOutput makes the model output safe for the editor: scores within
// range, unique suggestion ids, unique keywords, nothing pre-applied.
func normalizeOutput(out *types.OptimizeResumeOutput, defaultLanguage string) {
	out.ATSScore = clamp(out.ATSScore, types.MinATSScore, types.MaxATSScore)
	out.OptimizedText = ensureHTML(strings.TrimSpace(out.OptimizedText))

	if strings.TrimSpace(out.Language) == "" {
		out.Language = defaultLanguage
	}
	out.Language = strings.ToLower(strings.TrimSpace(out.Language))

	seenIDs := make(map[string]bool)
	suggestions := make([]types.Suggestion, 0, len(out.Suggestions))
	for _, s := range out.Suggestions {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			continue
		}
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" || seenIDs[s.ID] {
			s.ID = uuid.NewString()
		}
		seenIDs[s.ID] = true

		s.Type = strings.ToLower(strings.TrimSpace(s.Type))
		if s.Type == "" {
			s.Type = "general"
		}
		if s.PointImpact <= 0 {
			s.PointImpact = types.DefaultSuggestionPoints
		}
		s.PointImpact = min(s.PointImpact, maxSuggestionPoints)
		s.IsApplied = false
		suggestions = append(suggestions, s)
	}
	out.Suggestions = suggestions

	seenKeywords := make(map[string]bool)
	keywords := make([]types.Keyword, 0, len(out.Keywords))
	for _, k := range out.Keywords {
		k.Keyword = strings.TrimSpace(k.Keyword)
		folded := strings.ToLower(k.Keyword)
		if folded == "" || seenKeywords[folded] {
			continue
		}
		seenKeywords[folded] = true

		if k.PointImpact <= 0 {
			k.PointImpact = types.DefaultKeywordPoints
		}
		k.PointImpact = min(k.PointImpact, maxKeywordPoints)
		k.IsApplied = false
		keywords = append(keywords, k)
	}
	out.Keywords = keywords
}

// ensureHTML wraps plain text answers in paragraphs so the section parser
// always receives markup
func ensureHTML(text string) string {
	if text == "" || strings.Contains(text, "<") {
		return text
	}

	var b strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(para), "\n", "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
