package types

import "testing"

func TestResumeCurrentValues(t *testing.T) {
	r := &Resume{OptimizedText: "<p>ai</p>", ATSScore: 70}

	if r.CurrentText() != "<p>ai</p>" || r.CurrentScore() != 70 || r.HasSavedEdits() {
		t.Fatalf("unsaved resume should expose AI values")
	}

	saved := "<p>mine</p>"
	score := 82
	r.LastSavedText = &saved
	r.LastSavedScore = &score

	if r.CurrentText() != saved {
		t.Errorf("CurrentText() = %q, want %q", r.CurrentText(), saved)
	}
	if r.CurrentScore() != 82 {
		t.Errorf("CurrentScore() = %d, want 82", r.CurrentScore())
	}
	if !r.Summary().HasSavedEdits {
		t.Errorf("summary should report saved edits")
	}
}

func TestResumeCloneIsDeep(t *testing.T) {
	saved := "<p>x</p>"
	r := &Resume{
		LastSavedText: &saved,
		Suggestions:   []Suggestion{{ID: "s1"}},
		Keywords:      []Keyword{{Keyword: "go"}},
	}

	c := r.Clone()
	c.Suggestions[0].IsApplied = true
	c.Keywords[0].IsApplied = true
	*c.LastSavedText = "<p>y</p>"

	if r.Suggestions[0].IsApplied || r.Keywords[0].IsApplied {
		t.Errorf("clone shares item slices with the original")
	}
	if *r.LastSavedText != "<p>x</p>" {
		t.Errorf("clone shares saved text pointer with the original")
	}
}
