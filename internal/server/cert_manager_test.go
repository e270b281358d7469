package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"careerboost/internal/config"
)

// selfSigned returns a PEM cert and key valid until notAfter
func selfSigned(t *testing.T, notAfter time.Time) (certPEM, keyPEM []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: "localhost"},
		DNSNames:              []string{"localhost"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM
}

func writeKeyPair(t *testing.T, dir string, notAfter time.Time) config.TLSConfig {
	t.Helper()
	certPEM, keyPEM := selfSigned(t, notAfter)
	cfg := config.TLSConfig{
		Mode:     "server",
		CertFile: filepath.Join(dir, "server.crt"),
		KeyFile:  filepath.Join(dir, "server.key"),
	}
	require.NoError(t, os.WriteFile(cfg.CertFile, certPEM, 0o600))
	require.NoError(t, os.WriteFile(cfg.KeyFile, keyPEM, 0o600))
	return cfg
}

func TestCertificateManagerLoadsFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := writeKeyPair(t, t.TempDir(), time.Now().Add(90*24*time.Hour))
	cm := NewCertificateManager(cfg, nil, "", nil, nil)
	require.NoError(t, cm.Start())
	defer cm.Stop()

	cert, err := cm.GetServerCertificate(&tls.ClientHelloInfo{ServerName: "localhost"})
	require.NoError(t, err)
	require.NotNil(t, cert.Leaf)
	assert.Equal(t, "localhost", cert.Leaf.Subject.CommonName)

	left, err := cm.CheckExpiry()
	require.NoError(t, err)
	assert.Greater(t, left, 89*24*time.Hour)

	stats := cm.GetStats()
	assert.Equal(t, int64(1), stats.ReloadSuccessCount)
	assert.True(t, stats.LastReloadSuccess)
	assert.Equal(t, map[string]any{"enabled": false}, cm.WatcherStatus())
}

func TestCertificateManagerRejectsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	cm := NewCertificateManager(config.TLSConfig{
		Mode:     "server",
		CertFile: filepath.Join(dir, "missing.crt"),
		KeyFile:  filepath.Join(dir, "missing.key"),
	}, nil, "", nil, nil)
	require.Error(t, cm.Start())

	_, err := cm.CheckExpiry()
	assert.Error(t, err)
}

func TestCertificateManagerFailedReloadKeepsCertificate(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	cfg := writeKeyPair(t, dir, time.Now().Add(30*24*time.Hour))
	cm := NewCertificateManager(cfg, nil, "", nil, nil)
	require.NoError(t, cm.Start())
	defer cm.Stop()

	before, err := cm.GetServerCertificate(nil)
	require.NoError(t, err)

	var results []bool
	cm.AddReloadCallback(func(success bool, _ error) { results = append(results, success) })

	require.NoError(t, os.WriteFile(cfg.CertFile, []byte("not a certificate"), 0o600))
	require.Error(t, cm.ReloadCertificates())

	after, err := cm.GetServerCertificate(nil)
	require.NoError(t, err)
	assert.Same(t, before, after)
	assert.Equal(t, []bool{false}, results)

	stats := cm.GetStats()
	assert.Equal(t, int64(1), stats.ReloadFailureCount)
	assert.False(t, stats.LastReloadSuccess)
	assert.NotEmpty(t, stats.LastReloadError)
}

func TestCertificateManagerReloadsOnFileChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	cfg := writeKeyPair(t, dir, time.Now().Add(10*24*time.Hour))
	cfg.AutoReload = config.AutoReloadConfig{Enabled: true, DebounceDelay: 20 * time.Millisecond}

	cm := NewCertificateManager(cfg, nil, "", nil, nil)
	require.NoError(t, cm.Start())
	defer cm.Stop()

	status := cm.WatcherStatus()
	assert.Equal(t, true, status["file_watcher_running"])

	writeKeyPair(t, dir, time.Now().Add(365*24*time.Hour))

	require.Eventually(t, func() bool {
		left, err := cm.CheckExpiry()
		return err == nil && left > 300*24*time.Hour
	}, 5*time.Second, 20*time.Millisecond)
}

func TestCertificateManagerReloadsFromVault(t *testing.T) {
	defer goleak.VerifyNone(t)

	first, firstKey := selfSigned(t, time.Now().Add(10*24*time.Hour))
	vault := &fakeVault{}
	vault.set("secret/tls", 1, map[string]any{"cert": string(first), "key": string(firstKey)})

	cfg := config.TLSConfig{
		Mode:        "server",
		CertContent: string(first),
		KeyContent:  string(firstKey),
		AutoReload:  config.AutoReloadConfig{Enabled: true, VaultPollInterval: 10 * time.Millisecond},
	}
	cm := NewCertificateManager(cfg, vault, "secret/tls", nil, nil)
	require.NoError(t, cm.Start())
	defer cm.Stop()

	next, nextKey := selfSigned(t, time.Now().Add(365*24*time.Hour))
	vault.set("secret/tls", 2, map[string]any{"cert": string(next), "key": string(nextKey)})

	require.Eventually(t, func() bool {
		left, err := cm.CheckExpiry()
		return err == nil && left > 300*24*time.Hour
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, cm.WatcherStatus(), "vault_watcher")
}

func TestConfigForClientUsesCurrentPool(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	cfg := writeKeyPair(t, dir, time.Now().Add(30*24*time.Hour))
	cfg.Mode = "mutual"
	cfg.CAFile = cfg.CertFile

	cm := NewCertificateManager(cfg, nil, "", nil, nil)
	require.NoError(t, cm.Start())
	defer cm.Stop()

	base := &tls.Config{MinVersion: tls.VersionTLS13, ClientAuth: tls.RequireAndVerifyClientCert}
	hook := cm.ConfigForClient(base)

	got, err := hook(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	assert.Same(t, cm.GetCACertPool(), got.ClientCAs)
	assert.Equal(t, uint16(tls.VersionTLS13), got.MinVersion)
	assert.Nil(t, got.GetConfigForClient)
}

func TestCertificateHealth(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := writeKeyPair(t, t.TempDir(), time.Now().Add(12*time.Hour))
	cm := NewCertificateManager(cfg, nil, "", nil, nil)
	require.NoError(t, cm.Start())
	defer cm.Stop()

	s := &Server{CertificateManager: cm}
	status := s.checkCertificateHealth()
	assert.Equal(t, false, status["healthy"])
	assert.Equal(t, "critical", status["status"])
}
