package server

import "fmt"

var endpoints = []struct{ route, about string }{
	{"GET    /health", "Health check"},
	{"GET    /stats", "Server statistics"},
	{"GET    /templates", "Template catalog"},
	{"POST   /score", "Simulate an ATS score"},
	{"POST   /uploads", "Upload a resume file"},
	{"POST   /optimize", "Optimize pasted text or an upload"},
	{"GET    /resumes", "List resumes"},
	{"GET    /resumes/{id}", "Get a resume"},
	{"DELETE /resumes/{id}", "Delete a resume"},
	{"GET    /resumes/{id}/session", "Editor session"},
	{"POST   /resumes/{id}/edit|cancel|revert", "Edit mode"},
	{"GET    /resumes/{id}/sections", "Parsed sections"},
	{"PUT    /resumes/{id}/sections/{name}", "Replace a section"},
	{"PUT    /resumes/{id}/content", "Replace the draft"},
	{"POST   /resumes/{id}/suggestions/{sid}/toggle", "Toggle a suggestion"},
	{"POST   /resumes/{id}/keywords/{kw}/toggle", "Toggle a keyword"},
	{"PUT    /resumes/{id}/template", "Select a template"},
	{"POST   /resumes/{id}/save|reset", "Save or reset"},
}

// displayServerInfo prints the startup banner
func (s *Server) displayServerInfo() {
	scheme := "http"
	if s.CertificateManager != nil {
		scheme = "https"
	}
	fmt.Fprintf(s.out, "CareerBoost %s listening on %s://%s:%s (TLS %s)\n", s.Version, scheme, s.Host, s.Port, tlsMode(s.TLSConfig.Mode))

	fmt.Fprintln(s.out, "Available endpoints:")
	for _, e := range endpoints {
		fmt.Fprintf(s.out, "  %-48s %s\n", e.route, e.about)
	}

	if len(s.APIKeys) > 0 {
		fmt.Fprintf(s.out, "API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
	} else {
		fmt.Fprintln(s.out, "API authentication: DISABLED (no API keys configured)")
		fmt.Fprintln(s.out, "WARNING: API endpoints are publicly accessible!")
	}
	fmt.Fprintf(s.out, "User identity header: %s\n", s.UserHeader)

	if s.MaxRequestSize > 0 {
		fmt.Fprintf(s.out, "Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Fprintln(s.out, "WARNING: No request size limits configured!")
	}

	if s.RateLimiter != nil {
		fmt.Fprintf(s.out, "Rate limiting: ENABLED (%d requests/min, burst: %d, by API key: %t, by IP: %t)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
	} else {
		fmt.Fprintln(s.out, "Rate limiting: DISABLED")
	}

	if s.CertificateManager != nil && s.TLSConfig.AutoReload.Enabled {
		fmt.Fprintln(s.out, "TLS auto-reload: ENABLED")
	}
}

func tlsMode(mode string) string {
	if mode == "" {
		return "disabled"
	}
	return mode
}
