package resume

import (
	"regexp"
	"strings"
	"sync"

	"careerboost/internal/types"
)

// ScoreBreakdown explains how a simulated ATS score was reached
type ScoreBreakdown struct {
	Base               int `json:"base"`
	SuggestionPoints   int `json:"suggestionPoints"`
	KeywordPoints      int `json:"keywordPoints"`
	Total              int `json:"total"`
	MaxPotential       int `json:"maxPotential"`
	AppliedSuggestions int `json:"appliedSuggestions"`
	AppliedKeywords    int `json:"appliedKeywords"`
	TotalSuggestions   int `json:"totalSuggestions"`
	TotalKeywords      int `json:"totalKeywords"`
}

// Breakdown simulates the ATS score for the given toggle states. Keywords
// already present in the optimized text are part of base and add nothing.
func Breakdown(base int, suggestions []types.Suggestion, keywords []types.Keyword) ScoreBreakdown {
	b := ScoreBreakdown{
		Base:             ClampScore(base),
		TotalSuggestions: len(suggestions),
		TotalKeywords:    len(keywords),
	}
	potential := b.Base
	for _, s := range suggestions {
		points := suggestionPoints(s)
		potential += points
		if s.IsApplied {
			b.SuggestionPoints += points
			b.AppliedSuggestions++
		}
	}
	for _, k := range keywords {
		if k.IsApplied {
			b.AppliedKeywords++
		}
		if k.Present {
			continue
		}
		points := keywordPoints(k)
		potential += points
		if k.IsApplied {
			b.KeywordPoints += points
		}
	}
	b.Total = ClampScore(b.Base + b.SuggestionPoints + b.KeywordPoints)
	b.MaxPotential = ClampScore(potential)
	return b
}

// SimulateScore returns the clamped score for the given toggle states
func SimulateScore(base int, suggestions []types.Suggestion, keywords []types.Keyword) int {
	return Breakdown(base, suggestions, keywords).Total
}

// ClampScore bounds a score to the ATS range
func ClampScore(score int) int {
	return max(types.MinATSScore, min(types.MaxATSScore, score))
}

func suggestionPoints(s types.Suggestion) int {
	if s.PointImpact <= 0 {
		return types.DefaultSuggestionPoints
	}
	return s.PointImpact
}

func keywordPoints(k types.Keyword) int {
	if k.PointImpact <= 0 {
		return types.DefaultKeywordPoints
	}
	return k.PointImpact
}

// ToggleSuggestion returns a copy of suggestions with the one matching id
// flipped. The second result is false when no suggestion matches.
func ToggleSuggestion(suggestions []types.Suggestion, id string) ([]types.Suggestion, bool) {
	out := append([]types.Suggestion(nil), suggestions...)
	for i := range out {
		if out[i].ID == id {
			out[i].IsApplied = !out[i].IsApplied
			return out, true
		}
	}
	return out, false
}

// ToggleKeyword flips the keyword matching term, ignoring case
func ToggleKeyword(keywords []types.Keyword, term string) ([]types.Keyword, bool) {
	out := append([]types.Keyword(nil), keywords...)
	term = strings.TrimSpace(term)
	for i := range out {
		if strings.EqualFold(out[i].Keyword, term) {
			out[i].IsApplied = !out[i].IsApplied
			return out, true
		}
	}
	return out, false
}

// ClearApplied returns copies of both lists with every toggle switched off
func ClearApplied(suggestions []types.Suggestion, keywords []types.Keyword) ([]types.Suggestion, []types.Keyword) {
	s := append([]types.Suggestion(nil), suggestions...)
	for i := range s {
		s[i].IsApplied = false
	}
	k := append([]types.Keyword(nil), keywords...)
	for i := range k {
		k[i].IsApplied = false
	}
	return s, k
}

var (
	keywordPatternMu sync.Mutex
	keywordPatterns  = map[string]*regexp.Regexp{}
)

// keywordPattern matches term on word boundaries. \b is not used because it
// fails around terms such as "C++" or ".NET".
func keywordPattern(term string) *regexp.Regexp {
	key := strings.ToLower(term)
	keywordPatternMu.Lock()
	defer keywordPatternMu.Unlock()
	if re, ok := keywordPatterns[key]; ok {
		return re
	}
	re := regexp.MustCompile(`(?i)(?:^|[^\pL\pN])` + regexp.QuoteMeta(term) + `(?:$|[^\pL\pN])`)
	if len(keywordPatterns) > 1024 {
		clear(keywordPatterns)
	}
	keywordPatterns[key] = re
	return re
}

// ContainsKeyword reports whether text mentions term as a whole word
func ContainsKeyword(text, term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return false
	}
	return keywordPattern(term).MatchString(text)
}

// DetectKeywordUsage flags the keywords that text already contains. text is
// expected to be plain text; see PlainText.
func DetectKeywordUsage(text string, keywords []types.Keyword) []types.Keyword {
	out := append([]types.Keyword(nil), keywords...)
	for i := range out {
		out[i].Present = ContainsKeyword(text, out[i].Keyword)
	}
	return out
}

// MissingKeywords lists the keywords text does not mention yet
func MissingKeywords(text string, keywords []types.Keyword) []string {
	var missing []string
	for _, k := range keywords {
		if !ContainsKeyword(text, k.Keyword) {
			missing = append(missing, k.Keyword)
		}
	}
	return missing
}
