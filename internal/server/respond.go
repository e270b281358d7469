package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	cberrors "careerboost/internal/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// parseJSONRequest decodes a JSON request body into v
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, title, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: title, Message: message})
}

// writeError maps err to a status code and writes it. Server-side
// failures are logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, title string, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: title, Message: err.Error()}
	if appErr, ok := cberrors.AsAppError(err); ok {
		resp.Code = appErr.Code
		resp.Message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, title,
			"method", r.Method,
			"path", r.URL.Path,
			"user_id", userFrom(r),
			"status", status)
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	appErr, ok := cberrors.AsAppError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Type {
	case cberrors.ErrorTypeValidation:
		if appErr.Code == cberrors.ErrCodeFileTooLarge {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	case cberrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case cberrors.ErrorTypeConflict:
		return http.StatusConflict
	case cberrors.ErrorTypeIO:
		return http.StatusUnprocessableEntity
	case cberrors.ErrorTypeAI, cberrors.ErrorTypeNetwork:
		if appErr.Code == cberrors.ErrCodeAITimeout || appErr.Code == cberrors.ErrCodeNetworkTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case cberrors.ErrorTypeStorage:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
