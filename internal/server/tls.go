package server

import (
	"crypto/tls"
	"fmt"
	"net/http"
)

// configureTLS attaches a TLS configuration to httpServer unless TLS is disabled
func (s *Server) configureTLS(httpServer *http.Server) error {
	switch s.TLSConfig.Mode {
	case "", "disabled":
		return nil
	case "server", "mutual":
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode)
	}

	vaultPath := ""
	if s.AppConfig != nil {
		vaultPath = s.AppConfig.Vault.Secrets.TLSCerts
	}
	cm := NewCertificateManager(s.TLSConfig, s.vault, vaultPath, s.metrics(), s.Logger)
	if err := cm.Start(); err != nil {
		return fmt.Errorf("failed to start certificate manager: %w", err)
	}
	cm.AddReloadCallback(func(success bool, err error) {
		if success {
			s.Logger.Info("TLS certificates reloaded")
		} else {
			s.Logger.LogError(err, "TLS certificate reload failed, keeping previous certificates")
		}
	})
	s.CertificateManager = cm

	httpServer.TLSConfig = s.buildTLSConfig(cm)
	return nil
}

// buildTLSConfig serves certificates through cm so reloads apply to new handshakes
func (s *Server) buildTLSConfig(cm *CertificateManager) *tls.Config {
	cfg := &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: cm.GetServerCertificate,
		ClientAuth:     tls.NoClientCert,
	}
	if s.TLSConfig.MinVersion == "1.3" {
		cfg.MinVersion = tls.VersionTLS13
	}
	cfg.CipherSuites = s.cipherSuites()

	if s.TLSConfig.Mode == "mutual" {
		cfg.ClientAuth = clientAuthPolicy(s.TLSConfig.ClientAuthPolicy)
		cfg.ClientCAs = cm.GetCACertPool()
		cfg.GetConfigForClient = cm.ConfigForClient(cfg)
	}
	return cfg
}

// cipherSuites resolves configured suite names, skipping unknown ones
func (s *Server) cipherSuites() []uint16 {
	if len(s.TLSConfig.CipherSuites) == 0 {
		return nil
	}
	suites := make([]uint16, 0, len(s.TLSConfig.CipherSuites))
	for _, name := range s.TLSConfig.CipherSuites {
		id, ok := cipherSuiteID(name)
		if !ok {
			s.Logger.Warn("Ignoring unknown TLS cipher suite", "cipher_suite", name)
			continue
		}
		suites = append(suites, id)
	}
	return suites
}

func clientAuthPolicy(policy string) tls.ClientAuthType {
	switch policy {
	case "request":
		return tls.RequestClientCert
	case "verify":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}

// cipherSuiteID looks up a secure cipher suite by its IANA name
func cipherSuiteID(name string) (uint16, bool) {
	for _, suite := range tls.CipherSuites() {
		if suite.Name == name {
			return suite.ID, true
		}
	}
	return 0, false
}
