package server

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"careerboost/internal/observability"
)

type userKey struct{}

// Handler returns the routed API wrapped in telemetry middleware
func (s *Server) Handler() http.Handler {
	mux := s.setupRoutes()
	var h http.Handler = mux
	h = observability.UserAttributes(s.UserHeader)(h)
	return s.telemetry.HTTPMiddleware()(h)
}

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)

	mux.HandleFunc("GET /templates", s.api(s.templatesHandler))
	mux.HandleFunc("POST /score", s.api(s.scoreHandler))

	mux.HandleFunc("POST /uploads", s.userAPI(s.uploadHandler))
	mux.HandleFunc("POST /optimize", s.userAPI(s.optimizeHandler))

	mux.HandleFunc("GET /resumes", s.userAPI(s.listResumesHandler))
	mux.HandleFunc("GET /resumes/{id}", s.userAPI(s.getResumeHandler))
	mux.HandleFunc("DELETE /resumes/{id}", s.userAPI(s.deleteResumeHandler))
	mux.HandleFunc("GET /resumes/{id}/session", s.userAPI(s.sessionHandler))
	mux.HandleFunc("POST /resumes/{id}/edit", s.userAPI(s.startEditHandler))
	mux.HandleFunc("POST /resumes/{id}/cancel", s.userAPI(s.cancelEditHandler))
	mux.HandleFunc("POST /resumes/{id}/revert", s.userAPI(s.revertHandler))
	mux.HandleFunc("GET /resumes/{id}/sections", s.userAPI(s.sectionsHandler))
	mux.HandleFunc("PUT /resumes/{id}/sections/{name}", s.userAPI(s.updateSectionHandler))
	mux.HandleFunc("PUT /resumes/{id}/content", s.userAPI(s.updateContentHandler))
	mux.HandleFunc("POST /resumes/{id}/suggestions/{sid}/toggle", s.userAPI(s.toggleSuggestionHandler))
	mux.HandleFunc("POST /resumes/{id}/keywords/{kw}/toggle", s.userAPI(s.toggleKeywordHandler))
	mux.HandleFunc("PUT /resumes/{id}/template", s.userAPI(s.templateHandler))
	mux.HandleFunc("POST /resumes/{id}/save", s.userAPI(s.saveHandler))
	mux.HandleFunc("POST /resumes/{id}/reset", s.userAPI(s.resetHandler))

	return mux
}

// api chains rate limiting, authentication and the body limit
func (s *Server) api(h http.HandlerFunc) http.HandlerFunc {
	return s.rateLimitMiddleware()(s.authMiddleware(s.requestSizeLimitMiddleware()(h)))
}

// userAPI is api plus a required user identity
func (s *Server) userAPI(h http.HandlerFunc) http.HandlerFunc {
	return s.api(s.userMiddleware(h))
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		apiKey := apiKeyFrom(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, "Missing API key", "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
			return
		}

		if !s.APIKeys[apiKey] {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}

// userMiddleware reads the caller identity set by the gateway
func (s *Server) userMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(s.UserHeader))
		if userID == "" {
			writeErrorResponse(w, "Missing user identity", s.UserHeader+" header is required", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, userID)))
	}
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}
			next(w, r)
		}
	}
}

// rateLimitMiddleware rejects callers over their token bucket and counts the hits
func (s *Server) rateLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	if s.RateLimiter == nil {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := getRateLimitKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
			if key == "" {
				next(w, r)
				return
			}

			if !s.RateLimiter.Allow(key) {
				s.Logger.Info("Rate limit exceeded",
					"endpoint", r.URL.Path,
					"client_ip", getClientIP(r))
				s.metrics().RecordBusinessMetric(r.Context(), observability.MetricRateLimitHit, false,
					attribute.String("endpoint", r.Pattern),
					attribute.String("method", r.Method))
				writeErrorResponse(w, "Rate limit exceeded", "Too many requests", http.StatusTooManyRequests)
				return
			}

			next(w, r)
		}
	}
}

func userFrom(r *http.Request) string {
	userID, _ := r.Context().Value(userKey{}).(string)
	return userID
}

func apiKeyFrom(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	return ""
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
