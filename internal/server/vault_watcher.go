package server

import (
	"fmt"
	"sync"
	"time"

	"careerboost/internal/config"
	"careerboost/internal/errors"
)

// SecretReader reads KV v2 secrets; config.VaultClient implements it
type SecretReader interface {
	GetSecretV2(path string) (*config.VaultSecret, error)
}

// CertificateData holds PEM material fetched from Vault
type CertificateData struct {
	CertContent string
	KeyContent  string
	CAContent   string
}

// VaultReloadCallback receives new certificate data, or the error that
// prevented reading it
type VaultReloadCallback func(data *CertificateData, err error)

// VaultWatcher polls a Vault secret and reports new versions
type VaultWatcher struct {
	mu sync.RWMutex

	client         SecretReader
	secretPath     string
	pollInterval   time.Duration
	reloadCallback VaultReloadCallback
	logger         *errors.Logger

	stop        chan struct{}
	wg          sync.WaitGroup
	running     bool
	lastVersion int64
	lastPoll    time.Time
}

// NewVaultWatcher creates a watcher; Start begins polling
func NewVaultWatcher(client SecretReader, secretPath string, pollInterval time.Duration, reloadCallback VaultReloadCallback, logger *errors.Logger) *VaultWatcher {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &VaultWatcher{
		client:         client,
		secretPath:     secretPath,
		pollInterval:   pollInterval,
		reloadCallback: reloadCallback,
		logger:         logger,
	}
}

// Start records the current secret version and begins polling
func (vw *VaultWatcher) Start() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()
	if vw.running {
		return fmt.Errorf("vault watcher is already running")
	}
	if vw.pollInterval <= 0 {
		return fmt.Errorf("vault watcher poll interval must be positive")
	}

	secret, err := vw.client.GetSecretV2(vw.secretPath)
	switch {
	case err != nil:
		vw.logger.LogError(err, "Failed to read initial Vault TLS secret version", "secret_path", vw.secretPath)
	case secret != nil:
		vw.lastVersion = secret.Version
	}

	vw.stop = make(chan struct{})
	vw.running = true
	vw.wg.Add(1)
	go vw.pollLoop(vw.stop)

	vw.logger.Info("Vault watcher started", "secret_path", vw.secretPath, "poll_interval", vw.pollInterval)
	return nil
}

// Stop stops polling and waits for the loop to exit
func (vw *VaultWatcher) Stop() error {
	vw.mu.Lock()
	if !vw.running {
		vw.mu.Unlock()
		return nil
	}
	close(vw.stop)
	vw.running = false
	vw.mu.Unlock()

	vw.wg.Wait()
	vw.logger.Info("Vault watcher stopped", "secret_path", vw.secretPath)
	return nil
}

func (vw *VaultWatcher) pollLoop(stop <-chan struct{}) {
	defer vw.wg.Done()
	ticker := time.NewTicker(vw.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			vw.poll()
		case <-stop:
			return
		}
	}
}

// poll reads the secret once and hands new versions to the callback
func (vw *VaultWatcher) poll() {
	data, changed, err := vw.checkForUpdates()
	if err != nil {
		vw.logger.LogError(err, "Failed to check Vault for TLS updates", "secret_path", vw.secretPath)
		vw.reloadCallback(nil, err)
		return
	}
	if changed {
		vw.logger.Info("Vault TLS secret changed, triggering reload", "secret_path", vw.secretPath)
		vw.reloadCallback(data, nil)
	}
}

// checkForUpdates returns the certificate data when the secret version
// moved past the last one seen
func (vw *VaultWatcher) checkForUpdates() (*CertificateData, bool, error) {
	secret, err := vw.client.GetSecretV2(vw.secretPath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read secret: %w", err)
	}
	if secret == nil {
		return nil, false, fmt.Errorf("secret not found at path: %s", vw.secretPath)
	}

	vw.mu.Lock()
	defer vw.mu.Unlock()
	vw.lastPoll = time.Now()
	if secret.Version <= vw.lastVersion {
		return nil, false, nil
	}
	vw.lastVersion = secret.Version

	data := &CertificateData{}
	data.CertContent, _ = secret.Data["cert"].(string)
	data.KeyContent, _ = secret.Data["key"].(string)
	data.CAContent, _ = secret.Data["ca"].(string)
	return data, true, nil
}

// Status returns the current status of the watcher for health reporting
func (vw *VaultWatcher) Status() map[string]any {
	vw.mu.RLock()
	defer vw.mu.RUnlock()
	return map[string]any{
		"running":       vw.running,
		"poll_interval": vw.pollInterval.String(),
		"secret_path":   vw.secretPath,
		"last_version":  vw.lastVersion,
		"last_poll":     vw.lastPoll,
	}
}
