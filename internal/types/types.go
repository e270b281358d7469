package types

import "time"

// Suggestion is an improvement the optimizer recommends. Toggling it only
// changes the simulated score; the optimized text already reflects it.
type Suggestion struct {
	ID          string `json:"id"`
	Type        string `json:"type"`        // summary, experience, skills, education, formatting, general
	Text        string `json:"text"`        // what to change
	Impact      string `json:"impact"`      // human readable effect
	PointImpact int    `json:"pointImpact"` // ATS points gained when applied
	IsApplied   bool   `json:"isApplied"`
}

// Keyword is an ATS keyword the optimizer found relevant for the resume.
// Present keywords already appear in the optimized text, so the base ATS
// score accounts for them and applying them adds nothing.
type Keyword struct {
	Keyword     string `json:"keyword"`
	PointImpact int    `json:"pointImpact"`
	IsApplied   bool   `json:"isApplied"`
	Present     bool   `json:"present"`
}

// OptimizeResumeInput represents the input for optimizing a resume
type OptimizeResumeInput struct {
	ResumeText     string `json:"resumeText"`
	Language       string `json:"language,omitempty"`
	TargetRole     string `json:"targetRole,omitempty"`
	JobDescription string `json:"jobDescription,omitempty"`
}

// OptimizeResumeOutput represents the output from optimizing a resume
type OptimizeResumeOutput struct {
	OptimizedText string       `json:"optimizedText"` // HTML
	ATSScore      int          `json:"atsScore"`      // 0-100
	Language      string       `json:"language"`
	Suggestions   []Suggestion `json:"suggestions"`
	Keywords      []Keyword    `json:"keywords"`
}

// Resume is a persisted optimization result plus the user's saved edits
type Resume struct {
	ID               string       `json:"id"`
	UserID           string       `json:"userId"`
	Title            string       `json:"title"`
	FileName         string       `json:"fileName,omitempty"`
	FileType         string       `json:"fileType,omitempty"`
	FileKey          string       `json:"fileKey,omitempty"`
	FileURL          string       `json:"fileUrl,omitempty"`
	OriginalText     string       `json:"originalText"`
	OptimizedText    string       `json:"optimizedText"`
	LastSavedText    *string      `json:"lastSavedText,omitempty"`
	LastSavedScore   *int         `json:"lastSavedScore,omitempty"`
	ATSScore         int          `json:"atsScore"`
	Language         string       `json:"language"`
	Suggestions      []Suggestion `json:"suggestions"`
	Keywords         []Keyword    `json:"keywords"`
	SelectedTemplate string       `json:"selectedTemplate"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// CurrentText returns the last saved text, or the AI-optimized text when
// the user has not saved anything yet.
func (r *Resume) CurrentText() string {
	if r.LastSavedText != nil {
		return *r.LastSavedText
	}
	return r.OptimizedText
}

// CurrentScore returns the last saved score, falling back to the AI score
func (r *Resume) CurrentScore() int {
	if r.LastSavedScore != nil {
		return *r.LastSavedScore
	}
	return r.ATSScore
}

// HasSavedEdits reports whether the user saved a version over the AI one
func (r *Resume) HasSavedEdits() bool {
	return r.LastSavedText != nil
}

// Clone returns a deep copy so sessions can mutate drafts independently
func (r *Resume) Clone() *Resume {
	if r == nil {
		return nil
	}
	c := *r
	if r.LastSavedText != nil {
		text := *r.LastSavedText
		c.LastSavedText = &text
	}
	if r.LastSavedScore != nil {
		score := *r.LastSavedScore
		c.LastSavedScore = &score
	}
	c.Suggestions = append([]Suggestion(nil), r.Suggestions...)
	c.Keywords = append([]Keyword(nil), r.Keywords...)
	return &c
}

// ResumeSummary is the list view of a resume
type ResumeSummary struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	FileName         string    `json:"fileName,omitempty"`
	ATSScore         int       `json:"atsScore"`
	CurrentScore     int       `json:"currentScore"`
	Language         string    `json:"language"`
	SelectedTemplate string    `json:"selectedTemplate"`
	HasSavedEdits    bool      `json:"hasSavedEdits"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Summary builds the list view of r
func (r *Resume) Summary() ResumeSummary {
	return ResumeSummary{
		ID:               r.ID,
		Title:            r.Title,
		FileName:         r.FileName,
		ATSScore:         r.ATSScore,
		CurrentScore:     r.CurrentScore(),
		Language:         r.Language,
		SelectedTemplate: r.SelectedTemplate,
		HasSavedEdits:    r.HasSavedEdits(),
		UpdatedAt:        r.UpdatedAt,
	}
}

// UploadResult describes a stored upload and its extracted text
type UploadResult struct {
	FileKey  string `json:"fileKey"`
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	Size     int64  `json:"size"`
	Text     string `json:"text"`
}

// Template is an entry of the resume template catalog
type Template struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Premium     bool   `json:"premium" yaml:"premium"`
}

// Point impacts used when the optimizer omits one, and the ATS score range
const (
	DefaultSuggestionPoints = 2
	DefaultKeywordPoints    = 1
	MinATSScore             = 0
	MaxATSScore             = 100
)
