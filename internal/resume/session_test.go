package resume

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"careerboost/internal/errors"
	"careerboost/internal/types"
)

type memoryPersister struct {
	mu    sync.Mutex
	saved []*types.Resume
	err   error
}

func (p *memoryPersister) Update(_ context.Context, r *types.Resume) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.saved = append(p.saved, r.Clone())
	return nil
}

func (p *memoryPersister) last() *types.Resume {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.saved) == 0 {
		return nil
	}
	return p.saved[len(p.saved)-1]
}

type recorder struct {
	mu          sync.Mutex
	transitions []Transition
}

func (r *recorder) observe(t Transition) {
	r.mu.Lock()
	r.transitions = append(r.transitions, t)
	r.mu.Unlock()
}

func (r *recorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.transitions))
	for _, t := range r.transitions {
		out = append(out, t.Action)
	}
	return out
}

func testResume() *types.Resume {
	return &types.Resume{
		ID:               "r1",
		UserID:           "u1",
		Title:            "Backend Engineer",
		OriginalText:     "Jane Doe, engineer",
		OptimizedText:    headingResume,
		ATSScore:         70,
		Language:         "en",
		SelectedTemplate: "classic",
		Suggestions:      sampleSuggestions(),
		Keywords:         sampleKeywords(),
	}
}

func previewSession(t *testing.T) (*Session, *recorder) {
	t.Helper()
	rec := &recorder{}
	s := NewSession("r1", "u1", rec.observe)
	if err := s.Load(testResume()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s, rec
}

func requireTransitionError(t *testing.T, err error) {
	t.Helper()
	if !errors.HasCode(err, errors.ErrCodeInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION, got %v", err)
	}
	if !errors.IsType(err, errors.ErrorTypeConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestSession_ProcessingLifecycle(t *testing.T) {
	rec := &recorder{}
	s := NewSession("r1", "u1", rec.observe)
	if s.Phase() != PhaseUpload {
		t.Fatalf("new session phase = %s", s.Phase())
	}

	requireTransitionError(t, s.CompleteProcessing(testResume()))

	if err := s.BeginProcessing(); err != nil {
		t.Fatalf("BeginProcessing() error = %v", err)
	}
	requireTransitionError(t, s.BeginProcessing())
	requireTransitionError(t, s.StartEditing())

	if err := s.FailProcessing(fmt.Errorf("model overloaded")); err != nil {
		t.Fatalf("FailProcessing() error = %v", err)
	}
	snap := s.Snapshot()
	if snap.Phase != PhaseUpload || snap.LastError != "model overloaded" {
		t.Fatalf("after failure: phase=%s error=%q", snap.Phase, snap.LastError)
	}

	if err := s.BeginProcessing(); err != nil {
		t.Fatalf("retry BeginProcessing() error = %v", err)
	}
	if err := s.CompleteProcessing(testResume()); err != nil {
		t.Fatalf("CompleteProcessing() error = %v", err)
	}
	snap = s.Snapshot()
	if snap.Phase != PhasePreview {
		t.Fatalf("phase = %s, want preview", snap.Phase)
	}
	if snap.LastError != "" {
		t.Errorf("last error not cleared: %q", snap.LastError)
	}
	if snap.Score.Total != 73 {
		t.Errorf("score = %d, want 73", snap.Score.Total)
	}

	want := []string{"processing", "failed", "processing", "processed"}
	if got := rec.actions(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("actions = %v, want %v", got, want)
	}
}

func TestSession_FailedReoptimizeReturnsToPreview(t *testing.T) {
	s, _ := previewSession(t)
	if err := s.BeginProcessing(); err != nil {
		t.Fatalf("BeginProcessing() error = %v", err)
	}
	if err := s.FailProcessing(nil); err != nil {
		t.Fatalf("FailProcessing() error = %v", err)
	}
	if s.Phase() != PhasePreview {
		t.Errorf("phase = %s, want preview", s.Phase())
	}
}

func TestSession_EditAndCancel(t *testing.T) {
	s, _ := previewSession(t)

	requireTransitionError(t, s.UpdateContent("<p>too early</p>"))

	if err := s.StartEditing(); err != nil {
		t.Fatalf("StartEditing() error = %v", err)
	}
	if err := s.UpdateSection("skills", "<h2>Skills</h2><p>Go, Rust</p>"); err != nil {
		t.Fatalf("UpdateSection() error = %v", err)
	}
	if !strings.Contains(s.Snapshot().Content, "Go, Rust") {
		t.Fatal("section update not applied to draft")
	}
	if !s.Snapshot().Dirty {
		t.Error("draft should be dirty")
	}

	if err := s.UpdateSection("awards", "<p>x</p>"); !errors.HasCode(err, errors.ErrCodeSectionNotFound) {
		t.Errorf("expected SECTION_NOT_FOUND, got %v", err)
	}

	if err := s.CancelEditing(); err != nil {
		t.Fatalf("CancelEditing() error = %v", err)
	}
	snap := s.Snapshot()
	if snap.Phase != PhasePreview {
		t.Errorf("phase = %s", snap.Phase)
	}
	if strings.Contains(snap.Content, "Go, Rust") {
		t.Error("cancel should restore the content")
	}
	if snap.Dirty {
		t.Error("draft should be clean after cancel")
	}
}

func TestSession_ToggleSimulatesScore(t *testing.T) {
	s, rec := previewSession(t)

	score, err := s.ToggleSuggestion("s1")
	if err != nil {
		t.Fatalf("ToggleSuggestion() error = %v", err)
	}
	if score != 77 {
		t.Errorf("score = %d, want 77", score)
	}

	score, err = s.ToggleKeyword("KUBERNETES")
	if err != nil {
		t.Fatalf("ToggleKeyword() error = %v", err)
	}
	if score != 79 {
		t.Errorf("score = %d, want 79", score)
	}

	score, err = s.ToggleSuggestion("s1")
	if err != nil {
		t.Fatalf("ToggleSuggestion() error = %v", err)
	}
	if score != 75 {
		t.Errorf("score = %d, want 75", score)
	}

	if _, err := s.ToggleSuggestion("nope"); !errors.HasCode(err, errors.ErrCodeUnknownItem) {
		t.Errorf("expected UNKNOWN_ITEM, got %v", err)
	}
	if _, err := s.ToggleKeyword("nope"); !errors.HasCode(err, errors.ErrCodeUnknownItem) {
		t.Errorf("expected UNKNOWN_ITEM, got %v", err)
	}

	last := rec.transitions[len(rec.transitions)-1]
	if last.Action != "toggle_suggestion" || last.Score != 75 {
		t.Errorf("last transition = %+v", last)
	}
}

func TestSession_SaveAndReset(t *testing.T) {
	s, _ := previewSession(t)
	p := &memoryPersister{}

	if err := s.StartEditing(); err != nil {
		t.Fatalf("StartEditing() error = %v", err)
	}
	if err := s.UpdateContent(`<h2>Summary</h2><p>Edited</p><script>x()</script>`); err != nil {
		t.Fatalf("UpdateContent() error = %v", err)
	}
	if _, err := s.ToggleKeyword("kubernetes"); err != nil {
		t.Fatalf("ToggleKeyword() error = %v", err)
	}
	if err := s.SelectTemplate("modern"); err != nil {
		t.Fatalf("SelectTemplate() error = %v", err)
	}

	saved, err := s.Save(context.Background(), p)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if s.Phase() != PhasePreview {
		t.Errorf("phase after save = %s", s.Phase())
	}
	if saved.LastSavedText == nil || *saved.LastSavedText != "<h2>Summary</h2><p>Edited</p>" {
		t.Errorf("LastSavedText = %v", saved.LastSavedText)
	}
	if saved.LastSavedScore == nil || *saved.LastSavedScore != 75 {
		t.Errorf("LastSavedScore = %v", saved.LastSavedScore)
	}
	if saved.SelectedTemplate != "modern" {
		t.Errorf("template = %s", saved.SelectedTemplate)
	}
	if !saved.Keywords[0].IsApplied {
		t.Error("toggle state not persisted")
	}
	if p.last() == nil || p.last().CurrentScore() != 75 {
		t.Fatal("persister did not receive the saved resume")
	}
	if s.Snapshot().Dirty {
		t.Error("draft should be clean after save")
	}

	reset, err := s.Reset(context.Background(), p)
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if reset.HasSavedEdits() {
		t.Error("reset should clear saved edits")
	}
	if reset.CurrentScore() != 70 {
		t.Errorf("score after reset = %d, want 70", reset.CurrentScore())
	}
	if reset.SelectedTemplate != "modern" {
		t.Errorf("reset should keep the template, got %s", reset.SelectedTemplate)
	}
	for _, k := range reset.Keywords {
		if k.IsApplied {
			t.Errorf("keyword %s still applied after reset", k.Keyword)
		}
	}
	for _, sg := range reset.Suggestions {
		if sg.IsApplied {
			t.Errorf("suggestion %s still applied after reset", sg.ID)
		}
	}
	snap := s.Snapshot()
	if snap.Content != headingResume {
		t.Error("reset should restore the optimized text")
	}
}

func TestSession_SaveFailureKeepsDraft(t *testing.T) {
	s, _ := previewSession(t)
	if err := s.StartEditing(); err != nil {
		t.Fatalf("StartEditing() error = %v", err)
	}
	if err := s.UpdateContent("<p>draft</p>"); err != nil {
		t.Fatalf("UpdateContent() error = %v", err)
	}

	p := &memoryPersister{err: errors.NewStorageError(errors.ErrCodeStorageFailed, "db down", nil)}
	if _, err := s.Save(context.Background(), p); !errors.HasCode(err, errors.ErrCodeStorageFailed) {
		t.Fatalf("expected storage error, got %v", err)
	}

	snap := s.Snapshot()
	if snap.Phase != PhaseEdit || snap.Content != "<p>draft</p>" || !snap.Dirty {
		t.Errorf("state changed after failed save: %+v", snap)
	}
}

func TestSession_Revert(t *testing.T) {
	s, _ := previewSession(t)
	if _, err := s.ToggleSuggestion("s2"); err != nil {
		t.Fatalf("ToggleSuggestion() error = %v", err)
	}
	if err := s.Revert(); err != nil {
		t.Fatalf("Revert() error = %v", err)
	}
	snap := s.Snapshot()
	if snap.Dirty || snap.Score.Total != 73 {
		t.Errorf("revert did not restore saved state: dirty=%v score=%d", snap.Dirty, snap.Score.Total)
	}
}

func TestSession_ObserverMayCallBack(t *testing.T) {
	var s *Session
	phases := make(chan Phase, 4)
	s = NewSession("r1", "u1", func(Transition) {
		phases <- s.Phase()
	})
	if err := s.Load(testResume()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	select {
	case p := <-phases:
		if p != PhasePreview {
			t.Errorf("observer saw phase %s", p)
		}
	case <-time.After(time.Second):
		t.Fatal("observer was not called")
	}
}
