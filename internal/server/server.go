// Package server exposes the resume workflow over HTTP
package server

import (
	"io"
	"os"
	"time"

	"careerboost/internal/ai"
	"careerboost/internal/config"
	cberrors "careerboost/internal/errors"
	"careerboost/internal/observability"
	"careerboost/internal/optimizer"
	"careerboost/internal/resume"
	"careerboost/internal/types"
)

// OptimizeRequest is the body of POST /optimize
type OptimizeRequest struct {
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

// ScoreRequest is the body of POST /score
type ScoreRequest struct {
	ATSScore    int                `json:"atsScore"`
	Suggestions []types.Suggestion `json:"suggestions"`
	Keywords    []types.Keyword    `json:"keywords"`
}

// ContentRequest replaces a section or the whole draft
type ContentRequest struct {
	Content string `json:"content"`
}

// TemplateRequest selects a template for the draft
type TemplateRequest struct {
	TemplateID string `json:"templateId"`
}

// ResumeResponse pairs a stored resume with its editor session
type ResumeResponse struct {
	Resume  *types.Resume    `json:"resume,omitempty"`
	Session *resume.Snapshot `json:"session,omitempty"`
}

// ToggleResponse reports the simulated score after a toggle
type ToggleResponse struct {
	Score   int             `json:"score"`
	Session resume.Snapshot `json:"session"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Session string `json:"sessionId,omitempty"`
}

// Deps are the services the HTTP layer drives. AI and Telemetry may be nil.
type Deps struct {
	Optimizer *optimizer.Service
	AI        *ai.Service
	Telemetry *observability.Manager
	Vault     SecretReader
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	AppConfig *config.Config
	TLSConfig config.TLSConfig

	CertificateManager *CertificateManager

	APIKeys    map[string]bool
	UserHeader string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *LimiterManager

	Logger *cberrors.Logger

	optimizer *optimizer.Service
	ai        *ai.Service
	telemetry *observability.Manager
	vault     SecretReader
	out       io.Writer
	startedAt time.Time
}

// NewServer creates a Server from the application configuration
func NewServer(appCfg *config.Config, version string, deps Deps, logger *cberrors.Logger) *Server {
	if logger == nil {
		logger = cberrors.NewNopLogger()
	}
	cfg := appCfg.Server

	apiKeys := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeys[key] = true
		}
	}

	userHeader := cfg.UserHeader
	if userHeader == "" {
		userHeader = "X-User-ID"
	}

	rateLimit := cfg.RateLimit
	var limiter *LimiterManager
	if rateLimit.Enabled {
		limiter = NewRateLimiter(rateLimit.RequestsPerMin, rateLimit.Window, rateLimit.BurstCapacity, logger)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLS,
		APIKeys:        apiKeys,
		UserHeader:     userHeader,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      &rateLimit,
		RateLimiter:    limiter,
		Logger:         logger,
		optimizer:      deps.Optimizer,
		ai:             deps.AI,
		telemetry:      deps.Telemetry,
		vault:          deps.Vault,
		out:            os.Stdout,
		startedAt:      time.Now(),
	}
}

// SetOutput redirects the startup banner
func (s *Server) SetOutput(w io.Writer) {
	s.out = w
}

func (s *Server) metrics() *observability.Metrics {
	return s.telemetry.GetMetrics()
}
