package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	cberrors "careerboost/internal/errors"
	"careerboost/internal/resume"
	"careerboost/internal/types"
)

const defaultHealthTimeout = 5 * time.Second

func (s *Server) healthTimeout() time.Duration {
	if s.AppConfig != nil && s.AppConfig.Observability.HealthCheck.Timeout > 0 {
		return s.AppConfig.Observability.HealthCheck.Timeout
	}
	return defaultHealthTimeout
}

// healthHandler reports the AI model, the database and the certificates
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.healthTimeout())
	defer cancel()

	healthy := true
	response := map[string]any{
		"service": "careerboost",
		"version": s.Version,
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
	}

	if s.ai != nil {
		info := s.ai.GetModelInfo(ctx)
		response["ai_model"] = info
		response["circuit_breakers"] = s.ai.Provider.GetCircuitBreakerStats()
		if info == nil || !info.Available {
			healthy = false
		}
	}

	if s.optimizer != nil {
		db := map[string]any{"healthy": true}
		if err := s.optimizer.Store().Ping(ctx); err != nil {
			db["healthy"] = false
			db["error"] = err.Error()
			healthy = false
		}
		response["database"] = db
	}

	if certStatus := s.checkCertificateHealth(); certStatus != nil {
		response["certificates"] = certStatus
		if ok, _ := certStatus["healthy"].(bool); !ok {
			healthy = false
		}
	}

	status := http.StatusOK
	response["status"] = "healthy"
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// checkCertificateHealth flags certificates expiring within a day
func (s *Server) checkCertificateHealth() map[string]any {
	if s.CertificateManager == nil {
		return nil
	}

	certStatus := map[string]any{
		"auto_reload": s.CertificateManager.WatcherStatus(),
		"metrics":     s.CertificateManager.GetStats(),
	}

	timeToExpiry, err := s.CertificateManager.CheckExpiry()
	if err != nil {
		certStatus["healthy"] = false
		certStatus["error"] = fmt.Sprintf("Failed to check certificate expiry: %v", err)
		return certStatus
	}

	certStatus["time_to_expiry_hours"] = int(timeToExpiry.Hours())
	switch {
	case timeToExpiry <= 0:
		certStatus["healthy"] = false
		certStatus["status"] = "expired"
	case timeToExpiry <= 24*time.Hour:
		certStatus["healthy"] = false
		certStatus["status"] = "critical"
	case timeToExpiry <= 7*24*time.Hour:
		certStatus["healthy"] = true
		certStatus["status"] = "warning"
	default:
		certStatus["healthy"] = true
		certStatus["status"] = "ok"
	}
	return certStatus
}

// statsHandler provides session, template and rate limiting statistics
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "careerboost",
		"version": s.Version,
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"tls_mode":               tlsMode(s.TLSConfig.Mode),
		},
	}

	if s.optimizer != nil {
		response["sessions"] = s.optimizer.Sessions().GetStats()
		catalog := s.optimizer.Templates()
		response["templates"] = map[string]any{
			"count":     len(catalog.List()),
			"default":   catalog.Default(),
			"loaded_at": catalog.LoadedAt(),
		}
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	writeJSON(w, http.StatusOK, response)
}

// templatesHandler lists the template catalog
func (s *Server) templatesHandler(w http.ResponseWriter, r *http.Request) {
	catalog := s.optimizer.Templates()
	writeJSON(w, http.StatusOK, map[string]any{
		"default":   catalog.Default(),
		"templates": catalog.List(),
	})
}

// scoreHandler simulates a score for posted toggle states without a session
func (s *Server) scoreHandler(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if req.ATSScore < types.MinATSScore || req.ATSScore > types.MaxATSScore {
		s.writeError(w, r, "Invalid score", cberrors.NewValidationError(cberrors.ErrCodeInvalidRequest,
			fmt.Sprintf("atsScore must be between %d and %d", types.MinATSScore, types.MaxATSScore), nil))
		return
	}
	writeJSON(w, http.StatusOK, resume.Breakdown(req.ATSScore, req.Suggestions, req.Keywords))
}
