package resume

import (
	"context"
	"fmt"
	"sync"
	"time"

	"careerboost/internal/errors"
	"careerboost/internal/types"
)

// Phase is the step of the upload/optimize/edit workflow a session is in
type Phase string

const (
	PhaseUpload     Phase = "upload"
	PhaseProcessing Phase = "processing"
	PhasePreview    Phase = "preview"
	PhaseEdit       Phase = "edit"
)

// Persister stores the saved state of a resume
type Persister interface {
	Update(ctx context.Context, resume *types.Resume) error
}

// Transition describes a completed session action
type Transition struct {
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	Action    string    `json:"action"`
	From      Phase     `json:"from"`
	To        Phase     `json:"to"`
	Score     int       `json:"score"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Observer is called after every successful transition, outside the
// session lock.
type Observer func(Transition)

type draft struct {
	content     string
	suggestions []types.Suggestion
	keywords    []types.Keyword
	template    string
}

func (d draft) clone() draft {
	d.suggestions = append([]types.Suggestion(nil), d.suggestions...)
	d.keywords = append([]types.Keyword(nil), d.keywords...)
	return d
}

func draftFrom(r *types.Resume) draft {
	return draft{
		content:     r.CurrentText(),
		suggestions: append([]types.Suggestion(nil), r.Suggestions...),
		keywords:    append([]types.Keyword(nil), r.Keywords...),
		template:    r.SelectedTemplate,
	}
}

// Session tracks one user's work on one resume: the phase, the persisted
// record and an unsaved draft with toggle states.
type Session struct {
	mu         sync.Mutex
	id         string
	userID     string
	phase      Phase
	resume     *types.Resume
	draft      draft
	snapshot   *draft
	dirty      bool
	lastError  string
	lastActive time.Time
	observer   Observer
	now        func() time.Time
}

// NewSession creates a session in the upload phase
func NewSession(id, userID string, observer Observer) *Session {
	s := &Session{
		id:       id,
		userID:   userID,
		phase:    PhaseUpload,
		observer: observer,
		now:      time.Now,
	}
	s.lastActive = s.now()
	return s
}

// ID returns the session identifier, which is also the resume ID
func (s *Session) ID() string { return s.id }

// UserID returns the owner of the session
func (s *Session) UserID() string { return s.userID }

// Phase returns the current phase
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) idleSince() (time.Time, Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive, s.phase
}

func (s *Session) require(action string, allowed ...Phase) error {
	for _, p := range allowed {
		if s.phase == p {
			return nil
		}
	}
	return errors.NewConflictError(errors.ErrCodeInvalidTransition,
		fmt.Sprintf("cannot %s while in %s phase", action, s.phase), nil).
		WithContext("phase", string(s.phase)).
		WithContext("action", action)
}

// move switches phase and returns the transition to report. Callers hold mu.
func (s *Session) move(action string, to Phase) Transition {
	t := Transition{
		SessionID: s.id,
		UserID:    s.userID,
		Action:    action,
		From:      s.phase,
		To:        to,
		Score:     s.score(),
		Error:     s.lastError,
		At:        s.now(),
	}
	s.phase = to
	s.lastActive = t.At
	return t
}

func (s *Session) notify(t *Transition) {
	if t != nil && s.observer != nil {
		s.observer(*t)
	}
}

func (s *Session) score() int {
	if s.resume == nil {
		return 0
	}
	return SimulateScore(s.resume.ATSScore, s.draft.suggestions, s.draft.keywords)
}

// BeginProcessing marks the start of an optimization run
func (s *Session) BeginProcessing() error {
	s.mu.Lock()
	if err := s.require("start processing", PhaseUpload, PhasePreview); err != nil {
		s.mu.Unlock()
		return err
	}
	s.lastError = ""
	t := s.move("processing", PhaseProcessing)
	s.mu.Unlock()
	s.notify(&t)
	return nil
}

// CompleteProcessing loads the freshly optimized resume into the preview
func (s *Session) CompleteProcessing(r *types.Resume) error {
	if r == nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "resume is required", nil)
	}
	s.mu.Lock()
	if err := s.require("complete processing", PhaseProcessing); err != nil {
		s.mu.Unlock()
		return err
	}
	s.load(r)
	t := s.move("processed", PhasePreview)
	s.mu.Unlock()
	s.notify(&t)
	return nil
}

// FailProcessing records the failure and returns to the upload phase so the
// user can retry.
func (s *Session) FailProcessing(cause error) error {
	s.mu.Lock()
	if err := s.require("fail processing", PhaseProcessing); err != nil {
		s.mu.Unlock()
		return err
	}
	if cause != nil {
		s.lastError = cause.Error()
	} else {
		s.lastError = "processing failed"
	}
	to := PhaseUpload
	if s.resume != nil {
		to = PhasePreview
	}
	t := s.move("failed", to)
	s.mu.Unlock()
	s.notify(&t)
	return nil
}

// Load opens an existing resume in the preview phase from any phase
func (s *Session) Load(r *types.Resume) error {
	if r == nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "resume is required", nil)
	}
	s.mu.Lock()
	s.load(r)
	s.lastError = ""
	t := s.move("load", PhasePreview)
	s.mu.Unlock()
	s.notify(&t)
	return nil
}

func (s *Session) load(r *types.Resume) {
	s.resume = r.Clone()
	s.draft = draftFrom(s.resume)
	s.snapshot = nil
	s.dirty = false
}

// StartEditing enters edit mode, remembering the draft so it can be restored
func (s *Session) StartEditing() error {
	s.mu.Lock()
	if err := s.require("start editing", PhasePreview); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.draft.clone()
	s.snapshot = &snap
	t := s.move("edit", PhaseEdit)
	s.mu.Unlock()
	s.notify(&t)
	return nil
}

// CancelEditing leaves edit mode and restores the draft taken on entry
func (s *Session) CancelEditing() error {
	s.mu.Lock()
	if err := s.require("cancel editing", PhaseEdit); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.snapshot != nil {
		s.draft = s.snapshot.clone()
		s.snapshot = nil
	}
	s.dirty = s.draftDiffers()
	t := s.move("cancel", PhasePreview)
	s.mu.Unlock()
	s.notify(&t)
	return nil
}

// Revert drops unsaved draft changes and returns to the last saved state
func (s *Session) Revert() error {
	s.mu.Lock()
	if err := s.require("revert", PhasePreview, PhaseEdit); err != nil {
		s.mu.Unlock()
		return err
	}
	s.draft = draftFrom(s.resume)
	s.snapshot = nil
	s.dirty = false
	t := s.move("revert", PhasePreview)
	s.mu.Unlock()
	s.notify(&t)
	return nil
}

// UpdateSection replaces one named section of the draft content
func (s *Session) UpdateSection(name, content string) error {
	s.mu.Lock()
	if err := s.require("update a section", PhaseEdit); err != nil {
		s.mu.Unlock()
		return err
	}
	updated, err := ReplaceSection(s.draft.content, name, content)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.draft.content = updated
	s.dirty = true
	t := s.move("update_section", PhaseEdit)
	s.mu.Unlock()
	s.notify(&t)
	return nil
}

// UpdateContent replaces the whole draft content
func (s *Session) UpdateContent(content string) error {
	s.mu.Lock()
	if err := s.require("update content", PhaseEdit); err != nil {
		s.mu.Unlock()
		return err
	}
	clean, err := Sanitize(content)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.draft.content = clean
	s.dirty = true
	t := s.move("update_content", PhaseEdit)
	s.mu.Unlock()
	s.notify(&t)
	return nil
}

// ToggleSuggestion flips a suggestion and returns the simulated score
func (s *Session) ToggleSuggestion(id string) (int, error) {
	s.mu.Lock()
	if err := s.require("toggle a suggestion", PhasePreview, PhaseEdit); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	toggled, ok := ToggleSuggestion(s.draft.suggestions, id)
	if !ok {
		s.mu.Unlock()
		return 0, errors.NewNotFoundError(errors.ErrCodeUnknownItem,
			fmt.Sprintf("suggestion %q not found", id), nil).WithContext("suggestion", id)
	}
	s.draft.suggestions = toggled
	s.dirty = true
	t := s.move("toggle_suggestion", s.phase)
	s.mu.Unlock()
	s.notify(&t)
	return t.Score, nil
}

// ToggleKeyword flips a keyword and returns the simulated score
func (s *Session) ToggleKeyword(term string) (int, error) {
	s.mu.Lock()
	if err := s.require("toggle a keyword", PhasePreview, PhaseEdit); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	toggled, ok := ToggleKeyword(s.draft.keywords, term)
	if !ok {
		s.mu.Unlock()
		return 0, errors.NewNotFoundError(errors.ErrCodeUnknownItem,
			fmt.Sprintf("keyword %q not found", term), nil).WithContext("keyword", term)
	}
	s.draft.keywords = toggled
	s.dirty = true
	t := s.move("toggle_keyword", s.phase)
	s.mu.Unlock()
	s.notify(&t)
	return t.Score, nil
}

// SelectTemplate changes the template of the draft. The caller validates
// the ID against the catalog.
func (s *Session) SelectTemplate(id string) error {
	if id == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "template id is required", nil)
	}
	s.mu.Lock()
	if err := s.require("select a template", PhasePreview, PhaseEdit); err != nil {
		s.mu.Unlock()
		return err
	}
	s.draft.template = id
	s.dirty = true
	t := s.move("select_template", s.phase)
	s.mu.Unlock()
	s.notify(&t)
	return nil
}

// Save persists the draft as the last saved version. On failure the session
// keeps its draft and phase.
func (s *Session) Save(ctx context.Context, p Persister) (*types.Resume, error) {
	s.mu.Lock()
	if err := s.require("save", PhasePreview, PhaseEdit); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	score := s.score()
	content := s.draft.content
	next := s.resume.Clone()
	next.LastSavedText = &content
	next.LastSavedScore = &score
	next.Suggestions = append([]types.Suggestion(nil), s.draft.suggestions...)
	next.Keywords = append([]types.Keyword(nil), s.draft.keywords...)
	next.SelectedTemplate = s.draft.template
	next.UpdatedAt = s.now().UTC()

	if err := p.Update(ctx, next); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	s.resume = next
	s.draft = draftFrom(next)
	s.snapshot = nil
	s.dirty = false
	t := s.move("save", PhasePreview)
	s.mu.Unlock()
	s.notify(&t)
	return next.Clone(), nil
}

// Reset discards saved edits and toggles, restoring the AI optimized text
// and its base score. The selected template is kept.
func (s *Session) Reset(ctx context.Context, p Persister) (*types.Resume, error) {
	s.mu.Lock()
	if err := s.require("reset", PhasePreview, PhaseEdit); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	next := s.resume.Clone()
	next.LastSavedText = nil
	next.LastSavedScore = nil
	next.Suggestions, next.Keywords = ClearApplied(next.Suggestions, next.Keywords)
	next.Keywords = DetectKeywordUsage(PlainText(next.OptimizedText), next.Keywords)
	next.SelectedTemplate = s.draft.template
	next.UpdatedAt = s.now().UTC()

	if err := p.Update(ctx, next); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	s.resume = next
	s.draft = draftFrom(next)
	s.snapshot = nil
	s.dirty = false
	t := s.move("reset", PhasePreview)
	s.mu.Unlock()
	s.notify(&t)
	return next.Clone(), nil
}

// draftDiffers reports whether the draft differs from the persisted record
func (s *Session) draftDiffers() bool {
	if s.resume == nil {
		return false
	}
	saved := draftFrom(s.resume)
	if saved.content != s.draft.content || saved.template != s.draft.template {
		return true
	}
	if len(saved.suggestions) != len(s.draft.suggestions) || len(saved.keywords) != len(s.draft.keywords) {
		return true
	}
	for i := range saved.suggestions {
		if saved.suggestions[i] != s.draft.suggestions[i] {
			return true
		}
	}
	for i := range saved.keywords {
		if saved.keywords[i] != s.draft.keywords[i] {
			return true
		}
	}
	return false
}

// Snapshot is a read-only view of a session
type Snapshot struct {
	ID              string             `json:"id"`
	UserID          string             `json:"userId"`
	Phase           Phase              `json:"phase"`
	Title           string             `json:"title,omitempty"`
	Language        string             `json:"language,omitempty"`
	Content         string             `json:"content"`
	Template        string             `json:"template"`
	Score           ScoreBreakdown     `json:"score"`
	Suggestions     []types.Suggestion `json:"suggestions"`
	Keywords        []types.Keyword    `json:"keywords"`
	MissingKeywords []string           `json:"missingKeywords,omitempty"`
	Dirty           bool               `json:"dirty"`
	HasSavedEdits   bool               `json:"hasSavedEdits"`
	LastError       string             `json:"lastError,omitempty"`
	LastActive      time.Time          `json:"lastActive"`
}

// Snapshot returns a copy of the session state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:          s.id,
		UserID:      s.userID,
		Phase:       s.phase,
		Content:     s.draft.content,
		Template:    s.draft.template,
		Suggestions: append([]types.Suggestion(nil), s.draft.suggestions...),
		Keywords:    append([]types.Keyword(nil), s.draft.keywords...),
		Dirty:       s.dirty,
		LastError:   s.lastError,
		LastActive:  s.lastActive,
	}
	if s.resume != nil {
		snap.Title = s.resume.Title
		snap.Language = s.resume.Language
		snap.HasSavedEdits = s.resume.HasSavedEdits()
		snap.Score = Breakdown(s.resume.ATSScore, s.draft.suggestions, s.draft.keywords)
		snap.MissingKeywords = MissingKeywords(PlainText(s.draft.content), s.draft.keywords)
	}
	return snap
}

// Sections parses the draft content into sections
func (s *Session) Sections() ([]Section, error) {
	s.mu.Lock()
	content := s.draft.content
	s.lastActive = s.now()
	s.mu.Unlock()
	return ParseSections(content)
}
