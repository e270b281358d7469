// Package optimizer runs the upload and AI optimization workflow and hands
// the result to an editor session.
package optimizer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"careerboost/internal/ai"
	"careerboost/internal/config"
	"careerboost/internal/errors"
	"careerboost/internal/extract"
	"careerboost/internal/observability"
	"careerboost/internal/resume"
	"careerboost/internal/storage"
	"careerboost/internal/store"
	"careerboost/internal/templates"
	"careerboost/internal/types"
	"careerboost/internal/utils"
)

const uploadPrefix = "uploads/"

// Request describes one optimization run. Exactly one of Text or FileKey
// supplies the resume; ResumeID re-optimizes a resume the user already has.
type Request struct {
	UserID         string `json:"-"`
	ResumeID       string `json:"resumeId,omitempty"`
	SessionID      string `json:"sessionId,omitempty"`
	Text           string `json:"text,omitempty"`
	FileKey        string `json:"fileKey,omitempty"`
	FileName       string `json:"fileName,omitempty"`
	FileType       string `json:"fileType,omitempty"`
	Title          string `json:"title,omitempty"`
	Language       string `json:"language,omitempty"`
	TargetRole     string `json:"targetRole,omitempty"`
	JobDescription string `json:"jobDescription,omitempty"`
}

// Deps are the collaborators of a Service. Files and Metrics may be nil.
// MaxFileSize bounds uploads in bytes; zero disables the check.
type Deps struct {
	Provider    ai.AIProvider
	Store       store.ResumeStore
	Files       storage.ObjectStore
	Sessions    *resume.SessionManager
	Templates   *templates.Catalog
	Metrics     *observability.Metrics
	Config      config.ResumeConfig
	MaxFileSize int64
	Logger      *errors.Logger
}

// Service coordinates extraction, the AI provider, persistence and sessions
type Service struct {
	provider    ai.AIProvider
	store       store.ResumeStore
	files       storage.ObjectStore
	sessions    *resume.SessionManager
	templates   *templates.Catalog
	metrics     *observability.Metrics
	cfg         config.ResumeConfig
	maxFileSize int64
	logger      *errors.Logger
	now         func() time.Time
}

// New creates a Service
func New(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = errors.NewNopLogger()
	}
	if d.Metrics == nil {
		d.Metrics = &observability.Metrics{}
	}
	if d.Templates == nil {
		d.Templates = templates.NewDefault(d.Config.DefaultTemplate)
	}
	return &Service{
		provider:    d.Provider,
		store:       d.Store,
		files:       d.Files,
		sessions:    d.Sessions,
		templates:   d.Templates,
		metrics:     d.Metrics,
		cfg:         d.Config,
		maxFileSize: d.MaxFileSize,
		logger:      d.Logger,
		now:         time.Now,
	}
}

// Sessions returns the session manager
func (s *Service) Sessions() *resume.SessionManager { return s.sessions }

// Templates returns the template catalog
func (s *Service) Templates() *templates.Catalog { return s.templates }

// Store returns the resume store
func (s *Service) Store() store.ResumeStore { return s.store }

// Upload stores a resume file for the user and returns its extracted text
func (s *Service) Upload(ctx context.Context, userID, fileName, contentType string, data []byte) (*types.UploadResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if s.files == nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "file storage is not configured", nil)
	}
	if err := s.checkUploadType(fileName); err != nil {
		return nil, err
	}
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return nil, errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("file size %s exceeds maximum allowed size %s",
				utils.FormatFileSize(int64(len(data))), utils.FormatFileSize(s.maxFileSize)), nil).
			WithContext("file_name", fileName)
	}

	kind, err := extract.Detect(fileName, contentType)
	if err != nil {
		return nil, err
	}
	text, err := extract.Text(data, fileName, contentType)
	if err != nil {
		s.metrics.RecordBusinessMetric(ctx, observability.MetricUploadProcessed, false,
			attribute.String("file_type", string(kind)))
		return nil, err
	}

	key := uploadKey(userID, uuid.NewString(), fileName)
	if err := s.files.Put(ctx, key, data, kind.ContentType()); err != nil {
		s.metrics.RecordBusinessMetric(ctx, observability.MetricUploadProcessed, false,
			attribute.String("file_type", string(kind)))
		return nil, err
	}

	s.metrics.RecordBusinessMetric(ctx, observability.MetricUploadProcessed, true,
		attribute.String("file_type", string(kind)))
	s.logger.Info("Resume uploaded",
		"user_id", userID,
		"file_key", key,
		"file_type", kind,
		"size", len(data),
		"text_chars", len(text))

	return &types.UploadResult{
		FileKey:  key,
		FileURL:  s.files.URL(key),
		FileName: baseName(fileName),
		FileType: string(kind),
		Size:     int64(len(data)),
		Text:     text,
	}, nil
}

func (s *Service) checkUploadType(fileName string) error {
	if len(s.cfg.AllowedUploadTypes) == 0 {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, allowed := range s.cfg.AllowedUploadTypes {
		if strings.EqualFold(strings.TrimSpace(allowed), ext) {
			return nil
		}
	}
	return errors.NewValidationError(errors.ErrCodeUnsupportedFileType,
		fmt.Sprintf("file type %q is not allowed", ext), nil).
		WithContext("file_name", fileName).
		WithContext("allowed", strings.Join(s.cfg.AllowedUploadTypes, ","))
}

// Optimize runs the AI optimization and returns the stored resume together
// with the session now previewing it. A failed run leaves the session in
// the upload phase (or back in preview for a re-optimization) with the
// error recorded, and the session is still returned so the caller can retry.
func (s *Service) Optimize(ctx context.Context, req Request) (*types.Resume, *resume.Session, error) {
	if err := requireUser(req.UserID); err != nil {
		return nil, nil, err
	}

	var existing *types.Resume
	if req.ResumeID != "" {
		r, err := s.store.Get(ctx, req.UserID, req.ResumeID)
		if err != nil {
			return nil, nil, err
		}
		existing = r
	}

	text, err := s.resolveText(ctx, req, existing)
	if err != nil {
		return nil, nil, err
	}

	sess, err := s.session(req, existing)
	if err != nil {
		return nil, nil, err
	}
	if err := sess.BeginProcessing(); err != nil {
		return nil, sess, err
	}

	record, err := s.run(ctx, req, text, sess.ID(), existing)
	if err != nil {
		if failErr := sess.FailProcessing(err); failErr != nil {
			s.logger.LogError(failErr, "Failed to record processing failure", "session_id", sess.ID())
		}
		s.metrics.RecordBusinessMetric(ctx, observability.MetricResumeOptimized, false)
		return nil, sess, err
	}

	if err := sess.CompleteProcessing(record); err != nil {
		return nil, sess, err
	}

	s.metrics.RecordBusinessMetric(ctx, observability.MetricResumeOptimized, true,
		attribute.String("language", record.Language),
		attribute.Bool("reoptimized", existing != nil))
	s.metrics.RecordScore(ctx, "optimized", record.ATSScore)

	s.logger.Info("Resume optimized",
		"user_id", req.UserID,
		"resume_id", record.ID,
		"ats_score", record.ATSScore,
		"suggestions", len(record.Suggestions),
		"keywords", len(record.Keywords),
		"reoptimized", existing != nil)

	return record, sess, nil
}

// session picks the session to drive: the live one of an existing resume,
// an upload-phase session being retried, or a new one.
func (s *Service) session(req Request, existing *types.Resume) (*resume.Session, error) {
	if existing != nil {
		return s.sessions.Open(existing)
	}
	if req.SessionID != "" {
		sess, ok := s.sessions.Get(req.SessionID, req.UserID)
		if !ok {
			return nil, errors.NewNotFoundError(errors.ErrCodeResumeNotFound, "session not found", nil).
				WithContext("session_id", req.SessionID)
		}
		if phase := sess.Phase(); phase != resume.PhaseUpload {
			return nil, errors.NewConflictError(errors.ErrCodeInvalidTransition,
				"session already holds a resume, re-optimize it by resume id", nil).
				WithContext("session_id", req.SessionID).
				WithContext("phase", string(phase))
		}
		return sess, nil
	}
	return s.sessions.Create(req.UserID), nil
}

func (s *Service) resolveText(ctx context.Context, req Request, existing *types.Resume) (string, error) {
	text := req.Text
	switch {
	case strings.TrimSpace(text) != "":
	case req.FileKey != "":
		if !strings.HasPrefix(req.FileKey, userPrefix(req.UserID)) {
			return "", errors.NewNotFoundError(errors.ErrCodeFileNotFound, "uploaded file not found", nil).
				WithContext("file_key", req.FileKey)
		}
		if s.files == nil {
			return "", errors.NewConfigError(errors.ErrCodeInvalidConfig, "file storage is not configured", nil)
		}
		data, err := s.files.Get(ctx, req.FileKey)
		if err != nil {
			return "", err
		}
		name := req.FileName
		if name == "" {
			name = req.FileKey
		}
		text, err = extract.Text(data, name, req.FileType)
		if err != nil {
			return "", err
		}
	case existing != nil:
		text = existing.OriginalText
	default:
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"resume text or an uploaded file key is required", nil)
	}

	text = strings.TrimSpace(strings.ToValidUTF8(text, ""))
	if text == "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "resume text is empty", nil)
	}
	if limit := s.cfg.MaxResumeChars; limit > 0 && len([]rune(text)) > limit {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("resume text exceeds %d characters", limit), nil)
	}
	return text, nil
}

func (s *Service) run(ctx context.Context, req Request, text, id string, existing *types.Resume) (*types.Resume, error) {
	if s.provider == nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "AI provider is not configured", nil)
	}

	language := req.Language
	if language == "" && existing != nil {
		language = existing.Language
	}
	if language == "" {
		language = s.cfg.DefaultLanguage
	}

	input := types.OptimizeResumeInput{
		ResumeText:     text,
		Language:       language,
		TargetRole:     req.TargetRole,
		JobDescription: req.JobDescription,
	}

	var out types.OptimizeResumeOutput
	err := s.metrics.TrackAIOperation(ctx, "optimize", func(ctx context.Context) *observability.AIOperationResult {
		result, usage, err := s.provider.OptimizeResume(ctx, input)
		if err != nil {
			return &observability.AIOperationResult{Error: err}
		}
		out = result
		return &observability.AIOperationResult{TokenUsage: tokenUsage(usage)}
	})
	if err != nil {
		return nil, err
	}

	optimized, err := resume.Sanitize(out.OptimizedText)
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeInvalidFormat, "optimized resume is not valid HTML", err)
	}
	keywords := resume.DetectKeywordUsage(resume.PlainText(optimized), out.Keywords)
	if out.Language == "" {
		out.Language = language
	}

	now := s.now().UTC()
	if existing != nil {
		next := existing.Clone()
		next.OriginalText = text
		next.OptimizedText = optimized
		next.ATSScore = resume.ClampScore(out.ATSScore)
		next.Language = out.Language
		next.Suggestions = out.Suggestions
		next.Keywords = keywords
		next.LastSavedText = nil
		next.LastSavedScore = nil
		next.UpdatedAt = now
		if err := s.store.Update(ctx, next); err != nil {
			return nil, err
		}
		return next, nil
	}

	record := &types.Resume{
		ID:               id,
		UserID:           req.UserID,
		Title:            title(req),
		FileName:         baseName(req.FileName),
		FileType:         req.FileType,
		FileKey:          req.FileKey,
		OriginalText:     text,
		OptimizedText:    optimized,
		ATSScore:         resume.ClampScore(out.ATSScore),
		Language:         out.Language,
		Suggestions:      out.Suggestions,
		Keywords:         keywords,
		SelectedTemplate: s.templates.Default(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if req.FileKey != "" && s.files != nil {
		record.FileURL = s.files.URL(req.FileKey)
	}
	if err := s.store.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// OpenSession returns the live session of a stored resume, loading it from
// the store when the session expired or never existed.
func (s *Service) OpenSession(ctx context.Context, userID, id string) (*resume.Session, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if sess, ok := s.sessions.Get(id, userID); ok {
		return sess, nil
	}
	r, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.sessions.Open(r)
}

// Save persists the session draft as the user's saved version
func (s *Service) Save(ctx context.Context, sess *resume.Session) (*types.Resume, error) {
	saved, err := sess.Save(ctx, s.store)
	s.metrics.RecordBusinessMetric(ctx, observability.MetricResumeSaved, err == nil)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordScore(ctx, "saved", saved.CurrentScore())
	s.logger.Info("Resume saved", "user_id", saved.UserID, "resume_id", saved.ID, "score", saved.CurrentScore())
	return saved, nil
}

// Reset discards the saved version and returns to the AI-optimized one
func (s *Service) Reset(ctx context.Context, sess *resume.Session) (*types.Resume, error) {
	r, err := sess.Reset(ctx, s.store)
	s.metrics.RecordBusinessMetric(ctx, observability.MetricResumeReset, err == nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Resume reset", "user_id", r.UserID, "resume_id", r.ID)
	return r, nil
}

// Delete removes a resume, its live session and its uploaded file
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	r, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.sessions.Remove(id)

	if r.FileKey != "" && s.files != nil {
		if err := s.files.Delete(ctx, r.FileKey); err != nil {
			s.logger.LogError(err, "Failed to delete uploaded file", "resume_id", id, "file_key", r.FileKey)
		}
	}
	s.logger.Info("Resume deleted", "user_id", userID, "resume_id", id)
	return nil
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "user id is required", nil)
	}
	return nil
}

// userPrefix percent-encodes every byte outside [A-Za-z0-9_-] so distinct
// user IDs never share a prefix and none can form a "." or ".." segment.
func userPrefix(userID string) string {
	var b strings.Builder
	b.WriteString(uploadPrefix)
	for i := 0; i < len(userID); i++ {
		c := userID[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	b.WriteByte('/')
	return b.String()
}

func uploadKey(userID, id, fileName string) string {
	return userPrefix(userID) + id + strings.ToLower(filepath.Ext(fileName))
}

func baseName(fileName string) string {
	if fileName == "" {
		return ""
	}
	return filepath.Base(fileName)
}

func title(req Request) string {
	if t := strings.TrimSpace(req.Title); t != "" {
		return t
	}
	if req.FileName != "" {
		base := filepath.Base(req.FileName)
		if t := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base))); t != "" {
			return t
		}
	}
	if req.TargetRole != "" {
		return req.TargetRole + " resume"
	}
	return "Untitled resume"
}

func tokenUsage(u *ai.TokenUsage) *observability.TokenUsage {
	if u == nil {
		return nil
	}
	return &observability.TokenUsage{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		TotalTokens:  u.TotalTokens,
	}
}
