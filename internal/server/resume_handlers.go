package server

import (
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	cberrors "careerboost/internal/errors"
	"careerboost/internal/observability"
	"careerboost/internal/optimizer"
	"careerboost/internal/resume"
	"careerboost/internal/types"
)

const (
	maxUploadMemory  = 8 << 20
	defaultListLimit = 50
	maxListLimit     = 200
)

// uploadHandler stores a multipart "file" and returns its extracted text
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.telemetry.Tracer("careerboost.api").Start(r.Context(), "api.upload")
	defer span.End()

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		span.RecordError(err)
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			writeErrorResponse(w, "Upload too large", "file exceeds the request size limit", http.StatusRequestEntityTooLarge)
			return
		}
		writeErrorResponse(w, "Invalid upload", err.Error(), http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorResponse(w, "Missing file", "multipart field \"file\" is required", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		span.RecordError(err)
		writeErrorResponse(w, "Invalid upload", err.Error(), http.StatusBadRequest)
		return
	}

	span.SetAttributes(
		attribute.String("upload.file_name", header.Filename),
		attribute.Int("upload.size", len(data)),
	)

	result, err := s.optimizer.Upload(ctx, userFrom(r), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.writeError(w, r, "Failed to process upload", err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// optimizeHandler runs the AI optimization of pasted text or an upload
func (s *Server) optimizeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.telemetry.Tracer("careerboost.api").Start(r.Context(), "api.optimize")
	defer span.End()

	var req OptimizeRequest
	if err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	span.SetAttributes(
		attribute.Bool("request.reoptimize", req.ResumeID != ""),
		attribute.Bool("request.from_upload", req.FileKey != ""),
		attribute.Int("request.text_length", len(req.Text)),
	)

	record, sess, err := s.optimizer.Optimize(ctx, optimizer.Request{
		UserID:         userFrom(r),
		ResumeID:       req.ResumeID,
		SessionID:      req.SessionID,
		Text:           req.Text,
		FileKey:        req.FileKey,
		FileName:       req.FileName,
		FileType:       req.FileType,
		Title:          req.Title,
		Language:       req.Language,
		TargetRole:     req.TargetRole,
		JobDescription: req.JobDescription,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		resp := ErrorResponse{Error: "Failed to optimize resume", Message: err.Error()}
		if appErr, ok := cberrors.AsAppError(err); ok {
			resp.Code = appErr.Code
			resp.Message = appErr.Message
		}
		if sess != nil {
			resp.Session = sess.ID()
		}
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.Logger.LogError(err, "Failed to optimize resume", "user_id", userFrom(r))
		}
		writeJSON(w, status, resp)
		return
	}

	span.SetAttributes(attribute.Int("ats.score", record.ATSScore))
	snap := sess.Snapshot()
	status := http.StatusCreated
	if req.ResumeID != "" {
		status = http.StatusOK
	}
	writeJSON(w, status, ResumeResponse{Resume: record, Session: &snap})
}

func (s *Server) listResumesHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeErrorResponse(w, "Invalid limit", "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxListLimit)
	}

	resumes, err := s.optimizer.Store().ListByUser(r.Context(), userFrom(r), limit)
	if err != nil {
		s.writeError(w, r, "Failed to list resumes", err)
		return
	}

	summaries := make([]types.ResumeSummary, 0, len(resumes))
	for i := range resumes {
		summaries = append(summaries, resumes[i].Summary())
	}
	writeJSON(w, http.StatusOK, map[string]any{"resumes": summaries})
}

func (s *Server) getResumeHandler(w http.ResponseWriter, r *http.Request) {
	record, err := s.optimizer.Store().Get(r.Context(), userFrom(r), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, "Failed to load resume", err)
		return
	}
	writeJSON(w, http.StatusOK, ResumeResponse{Resume: record})
}

func (s *Server) deleteResumeHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.optimizer.Delete(r.Context(), userFrom(r), r.PathValue("id")); err != nil {
		s.writeError(w, r, "Failed to delete resume", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// openSession resolves the live session of the resume in the path
func (s *Server) openSession(w http.ResponseWriter, r *http.Request) (*resume.Session, bool) {
	sess, err := s.optimizer.OpenSession(r.Context(), userFrom(r), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, "Failed to open session", err)
		return nil, false
	}
	return sess, true
}

// sessionAction runs fn on the session and replies with its snapshot
func (s *Server) sessionAction(title string, fn func(r *http.Request, sess *resume.Session) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.openSession(w, r)
		if !ok {
			return
		}
		if err := fn(r, sess); err != nil {
			s.writeError(w, r, title, err)
			return
		}
		writeJSON(w, http.StatusOK, sess.Snapshot())
	}
}

func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	s.sessionAction("Failed to load session", func(*http.Request, *resume.Session) error { return nil })(w, r)
}

func (s *Server) startEditHandler(w http.ResponseWriter, r *http.Request) {
	s.sessionAction("Cannot start editing", func(_ *http.Request, sess *resume.Session) error {
		return sess.StartEditing()
	})(w, r)
}

func (s *Server) cancelEditHandler(w http.ResponseWriter, r *http.Request) {
	s.sessionAction("Cannot cancel editing", func(_ *http.Request, sess *resume.Session) error {
		return sess.CancelEditing()
	})(w, r)
}

func (s *Server) revertHandler(w http.ResponseWriter, r *http.Request) {
	s.sessionAction("Cannot revert draft", func(_ *http.Request, sess *resume.Session) error {
		return sess.Revert()
	})(w, r)
}

func (s *Server) updateSectionHandler(w http.ResponseWriter, r *http.Request) {
	s.sessionAction("Cannot update section", func(r *http.Request, sess *resume.Session) error {
		var req ContentRequest
		if err := parseJSONRequest(r, &req); err != nil {
			return cberrors.NewValidationError(cberrors.ErrCodeInvalidRequest, err.Error(), nil)
		}
		return sess.UpdateSection(r.PathValue("name"), req.Content)
	})(w, r)
}

func (s *Server) updateContentHandler(w http.ResponseWriter, r *http.Request) {
	s.sessionAction("Cannot update content", func(r *http.Request, sess *resume.Session) error {
		var req ContentRequest
		if err := parseJSONRequest(r, &req); err != nil {
			return cberrors.NewValidationError(cberrors.ErrCodeInvalidRequest, err.Error(), nil)
		}
		return sess.UpdateContent(req.Content)
	})(w, r)
}

func (s *Server) templateHandler(w http.ResponseWriter, r *http.Request) {
	s.sessionAction("Cannot select template", func(r *http.Request, sess *resume.Session) error {
		var req TemplateRequest
		if err := parseJSONRequest(r, &req); err != nil {
			return cberrors.NewValidationError(cberrors.ErrCodeInvalidRequest, err.Error(), nil)
		}
		if _, err := s.optimizer.Templates().Get(req.TemplateID); err != nil {
			return err
		}
		return sess.SelectTemplate(req.TemplateID)
	})(w, r)
}

func (s *Server) sectionsHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	sections, err := sess.Sections()
	if err != nil {
		s.writeError(w, r, "Failed to parse sections", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": sections})
}

func (s *Server) toggleSuggestionHandler(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, r, observability.MetricSuggestionToggled, func(sess *resume.Session) (int, error) {
		return sess.ToggleSuggestion(r.PathValue("sid"))
	})
}

func (s *Server) toggleKeywordHandler(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, r, observability.MetricKeywordToggled, func(sess *resume.Session) (int, error) {
		return sess.ToggleKeyword(r.PathValue("kw"))
	})
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request, metric string, fn func(*resume.Session) (int, error)) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	score, err := fn(sess)
	s.metrics().RecordBusinessMetric(r.Context(), metric, err == nil)
	if err != nil {
		s.writeError(w, r, "Cannot toggle item", err)
		return
	}
	writeJSON(w, http.StatusOK, ToggleResponse{Score: score, Session: sess.Snapshot()})
}

func (s *Server) saveHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	saved, err := s.optimizer.Save(r.Context(), sess)
	if err != nil {
		s.writeError(w, r, "Failed to save resume", err)
		return
	}
	snap := sess.Snapshot()
	writeJSON(w, http.StatusOK, ResumeResponse{Resume: saved, Session: &snap})
}

func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	reset, err := s.optimizer.Reset(r.Context(), sess)
	if err != nil {
		s.writeError(w, r, "Failed to reset resume", err)
		return
	}
	snap := sess.Snapshot()
	writeJSON(w, http.StatusOK, ResumeResponse{Resume: reset, Session: &snap})
}
