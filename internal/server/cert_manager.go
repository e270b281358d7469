package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"careerboost/internal/config"
	"careerboost/internal/errors"
	"careerboost/internal/observability"
	"careerboost/internal/watch"
)

const expiryCheckInterval = time.Minute

// ReloadCallback is called after every reload attempt
type ReloadCallback func(success bool, err error)

// CertificateStats counts certificate reloads
type CertificateStats struct {
	ReloadCount        int64     `json:"reload_count"`
	ReloadSuccessCount int64     `json:"reload_success_count"`
	ReloadFailureCount int64     `json:"reload_failure_count"`
	LastReloadTime     time.Time `json:"last_reload_time"`
	LastReloadSuccess  bool      `json:"last_reload_success"`
	LastReloadError    string    `json:"last_reload_error,omitempty"`
}

// CertificateManager serves the current TLS material and swaps it when
// the files on disk or the Vault secret change. A failed reload keeps the
// previous certificates.
type CertificateManager struct {
	mu sync.RWMutex

	serverCert       *tls.Certificate
	caCertPool       *x509.CertPool
	serverCertExpiry time.Time

	config    config.TLSConfig
	vault     SecretReader
	vaultPath string

	fileWatcher  *watch.FileWatcher
	vaultWatcher *VaultWatcher

	reloadCallbacks []ReloadCallback
	stats           CertificateStats

	metrics *observability.Metrics
	logger  *errors.Logger

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	now      func() time.Time
}

// NewCertificateManager creates a manager for tlsConfig. vault and
// vaultPath enable polling of the Vault TLS secret; both may be empty.
func NewCertificateManager(tlsConfig config.TLSConfig, vault SecretReader, vaultPath string, metrics *observability.Metrics, logger *errors.Logger) *CertificateManager {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	if metrics == nil {
		metrics = &observability.Metrics{}
	}
	return &CertificateManager{
		config:    tlsConfig,
		vault:     vault,
		vaultPath: vaultPath,
		metrics:   metrics,
		logger:    logger,
		done:      make(chan struct{}),
		now:       time.Now,
	}
}

// Start loads the certificates and starts the configured watchers
func (cm *CertificateManager) Start() error {
	if err := cm.loadCertificates(); err != nil {
		return fmt.Errorf("failed to load initial certificates: %w", err)
	}

	cm.wg.Add(1)
	go cm.monitorExpiry(expiryCheckInterval)

	if !cm.config.AutoReload.Enabled {
		return nil
	}
	if err := cm.startFileWatcher(); err != nil {
		cm.Stop()
		return err
	}
	if err := cm.startVaultWatcher(); err != nil {
		cm.Stop()
		return err
	}
	return nil
}

func (cm *CertificateManager) startFileWatcher() error {
	files := []string{cm.config.CertFile, cm.config.KeyFile}
	if cm.config.Mode == "mutual" {
		files = append(files, cm.config.CAFile)
	}
	w := watch.New("tls", files, cm.config.AutoReload.DebounceDelay, cm.triggerReload, cm.logger)
	if len(w.Files()) == 0 {
		return nil
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start certificate file watcher: %w", err)
	}
	cm.fileWatcher = w
	return nil
}

func (cm *CertificateManager) startVaultWatcher() error {
	if cm.vault == nil || cm.vaultPath == "" || cm.config.AutoReload.VaultPollInterval <= 0 {
		return nil
	}
	vw := NewVaultWatcher(cm.vault, cm.vaultPath, cm.config.AutoReload.VaultPollInterval, cm.applyVaultData, cm.logger)
	if err := vw.Start(); err != nil {
		return fmt.Errorf("failed to start Vault watcher: %w", err)
	}
	cm.vaultWatcher = vw
	return nil
}

// applyVaultData replaces the inline PEM content and reloads
func (cm *CertificateManager) applyVaultData(data *CertificateData, err error) {
	if err != nil {
		return
	}
	cm.mu.Lock()
	if data.CertContent != "" {
		cm.config.CertContent = data.CertContent
	}
	if data.KeyContent != "" {
		cm.config.KeyContent = data.KeyContent
	}
	if data.CAContent != "" {
		cm.config.CAContent = data.CAContent
	}
	cm.mu.Unlock()
	cm.triggerReload()
}

// Stop stops the watchers and the expiry monitor
func (cm *CertificateManager) Stop() {
	cm.stopOnce.Do(func() {
		if cm.fileWatcher != nil {
			if err := cm.fileWatcher.Stop(); err != nil {
				cm.logger.LogError(err, "Failed to stop certificate file watcher")
			}
		}
		if cm.vaultWatcher != nil {
			if err := cm.vaultWatcher.Stop(); err != nil {
				cm.logger.LogError(err, "Failed to stop Vault watcher")
			}
		}
		close(cm.done)
		cm.wg.Wait()
		cm.logger.Info("Certificate manager stopped")
	})
}

// GetServerCertificate returns the current server certificate for TLS handshakes
func (cm *CertificateManager) GetServerCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.serverCert == nil {
		return nil, fmt.Errorf("no server certificate available")
	}
	if cm.now().After(cm.serverCertExpiry) {
		serverName := ""
		if hello != nil {
			serverName = hello.ServerName
		}
		cm.logger.Error("Server certificate expired", "expiry", cm.serverCertExpiry, "server_name", serverName)
		return nil, fmt.Errorf("server certificate expired")
	}
	return cm.serverCert, nil
}

// GetCACertPool returns the current client CA pool
func (cm *CertificateManager) GetCACertPool() *x509.CertPool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.caCertPool
}

// ConfigForClient returns a GetConfigForClient hook that serves base with
// the current client CA pool, so mutual TLS picks up reloaded CAs.
func (cm *CertificateManager) ConfigForClient(base *tls.Config) func(*tls.ClientHelloInfo) (*tls.Config, error) {
	return func(*tls.ClientHelloInfo) (*tls.Config, error) {
		cfg := base.Clone()
		cfg.GetConfigForClient = nil
		cfg.ClientCAs = cm.GetCACertPool()
		return cfg, nil
	}
}

// ReloadCertificates reloads the certificates now
func (cm *CertificateManager) ReloadCertificates() error {
	return cm.loadCertificates()
}

// AddReloadCallback registers a callback for reload attempts
func (cm *CertificateManager) AddReloadCallback(callback ReloadCallback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.reloadCallbacks = append(cm.reloadCallbacks, callback)
}

// CheckExpiry returns the time left before the server certificate expires
func (cm *CertificateManager) CheckExpiry() (time.Duration, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if cm.serverCertExpiry.IsZero() {
		return 0, fmt.Errorf("no certificates loaded")
	}
	return cm.serverCertExpiry.Sub(cm.now()), nil
}

// GetStats returns reload counters
func (cm *CertificateManager) GetStats() CertificateStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.stats
}

// WatcherStatus describes the running reload sources
func (cm *CertificateManager) WatcherStatus() map[string]any {
	status := map[string]any{"enabled": cm.config.AutoReload.Enabled}
	if cm.fileWatcher != nil {
		status["file_watcher_running"] = cm.fileWatcher.IsRunning()
		status["watched_files"] = cm.fileWatcher.Files()
	}
	if cm.vaultWatcher != nil {
		status["vault_watcher"] = cm.vaultWatcher.Status()
	}
	return status
}

// loadCertificates reads the key pair and CA, then swaps them in
func (cm *CertificateManager) loadCertificates() error {
	cm.mu.RLock()
	cfg := cm.config
	cm.mu.RUnlock()

	cert, expiry, err := loadKeyPair(cfg)
	var pool *x509.CertPool
	if err == nil && cfg.Mode == "mutual" {
		pool, err = loadCAPool(cfg)
	}

	cm.mu.Lock()
	cm.stats.ReloadCount++
	cm.stats.LastReloadTime = cm.now()
	cm.stats.LastReloadSuccess = err == nil
	if err != nil {
		cm.stats.ReloadFailureCount++
		cm.stats.LastReloadError = err.Error()
	} else {
		cm.stats.ReloadSuccessCount++
		cm.stats.LastReloadError = ""
		cm.serverCert = cert
		cm.serverCertExpiry = expiry
		cm.caCertPool = pool
	}
	callbacks := append([]ReloadCallback(nil), cm.reloadCallbacks...)
	cm.mu.Unlock()

	ctx := context.Background()
	cm.metrics.RecordReload(ctx, "tls", err == nil)
	if err != nil {
		cm.logger.LogError(err, "Failed to reload certificates")
	} else {
		cm.metrics.RecordCertExpiry(ctx, expiry)
		cm.logger.Info("Certificates loaded", "server_cert_expiry", expiry)
	}
	for _, cb := range callbacks {
		cb(err == nil, err)
	}
	return err
}

func (cm *CertificateManager) triggerReload() {
	cm.logger.Info("Certificate reload triggered")
	_ = cm.loadCertificates()
}

func (cm *CertificateManager) monitorExpiry(interval time.Duration) {
	defer cm.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cm.mu.RLock()
			expiry := cm.serverCertExpiry
			cm.mu.RUnlock()
			if !expiry.IsZero() {
				cm.metrics.RecordCertExpiry(context.Background(), expiry)
			}
		case <-cm.done:
			return
		}
	}
}

// loadKeyPair loads the server key pair from inline content or files
func loadKeyPair(cfg config.TLSConfig) (*tls.Certificate, time.Time, error) {
	var cert tls.Certificate
	var err error
	switch {
	case cfg.CertContent != "" && cfg.KeyContent != "":
		cert, err = tls.X509KeyPair([]byte(cfg.CertContent), []byte(cfg.KeyContent))
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to load server cert/key from content: %w", err)
		}
	case cfg.CertFile != "" && cfg.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to load server cert/key from files: %w", err)
		}
	default:
		return nil, time.Time{}, fmt.Errorf("TLS certificate and key are required (provide either files or content)")
	}

	leaf := cert.Leaf
	if leaf == nil {
		leaf, err = x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to parse server certificate: %w", err)
		}
		cert.Leaf = leaf
	}
	return &cert, leaf.NotAfter, nil
}

// loadCAPool loads the client CA pool for mutual TLS
func loadCAPool(cfg config.TLSConfig) (*x509.CertPool, error) {
	var pem []byte
	switch {
	case cfg.CAContent != "":
		pem = []byte(cfg.CAContent)
	case cfg.CAFile != "":
		data, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pem = data
	default:
		return nil, fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}
	return pool, nil
}
