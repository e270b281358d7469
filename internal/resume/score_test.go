package resume

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"careerboost/internal/types"
)

func sampleSuggestions() []types.Suggestion {
	return []types.Suggestion{
		{ID: "s1", Text: "Quantify impact", PointImpact: 4},
		{ID: "s2", Text: "Add a summary", PointImpact: 0},
		{ID: "s3", Text: "Use action verbs", PointImpact: 3, IsApplied: true},
	}
}

func sampleKeywords() []types.Keyword {
	return []types.Keyword{
		{Keyword: "Kubernetes", PointImpact: 2},
		{Keyword: "Go", PointImpact: 0, Present: true},
		{Keyword: "CI/CD", PointImpact: 1},
	}
}

func TestBreakdown(t *testing.T) {
	suggestions := sampleSuggestions()
	keywords := sampleKeywords()
	keywords[0].IsApplied = true
	keywords[1].IsApplied = true

	got := Breakdown(70, suggestions, keywords)
	want := ScoreBreakdown{
		Base:               70,
		SuggestionPoints:   3,
		KeywordPoints:      2,
		Total:              75,
		MaxPotential:       82, // 70 + 4 + 2 + 3 + 2 + 1
		AppliedSuggestions: 1,
		AppliedKeywords:    2,
		TotalSuggestions:   3,
		TotalKeywords:      3,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Breakdown() mismatch (-want +got):\n%s", diff)
	}
}

func TestSimulateScore_Clamps(t *testing.T) {
	suggestions := []types.Suggestion{{ID: "a", PointImpact: 10, IsApplied: true}}
	if got := SimulateScore(95, suggestions, nil); got != 100 {
		t.Errorf("SimulateScore() = %d, want 100", got)
	}
	if got := SimulateScore(-20, nil, nil); got != 0 {
		t.Errorf("SimulateScore() = %d, want 0", got)
	}
}

func TestSimulateScore_DefaultPoints(t *testing.T) {
	suggestions := []types.Suggestion{{ID: "a", IsApplied: true}}
	keywords := []types.Keyword{{Keyword: "SQL", IsApplied: true}}
	want := 50 + types.DefaultSuggestionPoints + types.DefaultKeywordPoints
	if got := SimulateScore(50, suggestions, keywords); got != want {
		t.Errorf("SimulateScore() = %d, want %d", got, want)
	}
}

func TestToggleSuggestion(t *testing.T) {
	original := sampleSuggestions()
	toggled, ok := ToggleSuggestion(original, "s1")
	if !ok {
		t.Fatal("expected s1 to be found")
	}
	if !toggled[0].IsApplied {
		t.Error("s1 should be applied")
	}
	if original[0].IsApplied {
		t.Error("input slice must not be modified")
	}

	if _, ok := ToggleSuggestion(original, "missing"); ok {
		t.Error("expected missing suggestion to report false")
	}
}

func TestToggleKeyword_CaseInsensitive(t *testing.T) {
	toggled, ok := ToggleKeyword(sampleKeywords(), " kubernetes ")
	if !ok {
		t.Fatal("expected keyword to be found")
	}
	if !toggled[0].IsApplied {
		t.Error("Kubernetes should be applied")
	}
}

func TestClearApplied(t *testing.T) {
	keywords := sampleKeywords()
	keywords[2].IsApplied = true
	s, k := ClearApplied(sampleSuggestions(), keywords)
	for _, item := range s {
		if item.IsApplied {
			t.Errorf("suggestion %s still applied", item.ID)
		}
	}
	for _, item := range k {
		if item.IsApplied {
			t.Errorf("keyword %s still applied", item.Keyword)
		}
	}
	if !keywords[2].IsApplied {
		t.Error("input slice must not be modified")
	}
}

func TestContainsKeyword(t *testing.T) {
	tests := []struct {
		text string
		term string
		want bool
	}{
		{"Experienced Go developer", "go", true},
		{"Worked on Google Cloud", "go", false},
		{"Skilled in C++ and Rust", "C++", true},
		{"Built .NET services", ".NET", true},
		{"CI/CD pipelines", "ci/cd", true},
		{"anything", "  ", false},
	}
	for _, tt := range tests {
		if got := ContainsKeyword(tt.text, tt.term); got != tt.want {
			t.Errorf("ContainsKeyword(%q, %q) = %v, want %v", tt.text, tt.term, got, tt.want)
		}
	}
}

func TestDetectKeywordUsage(t *testing.T) {
	keywords := []types.Keyword{
		{Keyword: "Kubernetes"},
		{Keyword: "Terraform", Present: true},
	}
	got := DetectKeywordUsage("Ran kubernetes clusters", keywords)
	if !got[0].Present {
		t.Error("Kubernetes should be present")
	}
	if got[1].Present {
		t.Error("Terraform should not be present")
	}

	missing := MissingKeywords("Ran kubernetes clusters", keywords)
	if diff := cmp.Diff([]string{"Terraform"}, missing); diff != "" {
		t.Errorf("MissingKeywords() mismatch (-want +got):\n%s", diff)
	}
}
