package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"careerboost/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets map[string]*VaultSecret

func (f fakeSecrets) GetSecretV2(path string) (*VaultSecret, error) {
	if s, ok := f[path]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("secret not found at path: %s", path)
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{"int64 value", int64(42), 42, false},
		{"int value", 7, 7, false},
		{"float64 value", float64(42.0), 42, false},
		{"string value", "42", 42, false},
		{"json number", json.Number("3"), 3, false},
		{"invalid string value", "not-a-number", 0, true},
		{"unsupported type", []string{"42"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersionValue(tt.input, "secret/data/x")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseKVv2(t *testing.T) {
	secret, err := parseKVv2(map[string]any{
		"data":     map[string]any{"api_key": "abc"},
		"metadata": map[string]any{"version": json.Number("5")},
	}, "secret/data/gemini")
	require.NoError(t, err)
	assert.Equal(t, int64(5), secret.Version)
	assert.Equal(t, "abc", secret.Data["api_key"])

	_, err = parseKVv2(map[string]any{"api_key": "abc"}, "secret/gemini")
	assert.ErrorContains(t, err, "not in KVv2 format")
}

func TestApplySecrets(t *testing.T) {
	cfg := validConfig()
	cfg.AI.Optimize.APIKey = ""
	cfg.Vault.Secrets = VaultSecrets{
		APIKeys:   "secret/data/api",
		GeminiKey: "secret/data/gemini",
		Database:  "secret/data/db",
		Storage:   "secret/data/r2",
		TLSCerts:  "secret/data/tls",
	}

	reader := fakeSecrets{
		"secret/data/api":    {Data: map[string]any{"keys": "a, b"}, Version: 1},
		"secret/data/gemini": {Data: map[string]any{"api_key": "vault-gemini"}, Version: 2},
		"secret/data/db":     {Data: map[string]any{"dsn": "postgres://u:p@db/cb"}, Version: 1},
		"secret/data/r2":     {Data: map[string]any{"access_key": "AK", "secret_key": "SK"}, Version: 1},
		"secret/data/tls":    {Data: map[string]any{"cert": "CERT", "key": "KEY"}, Version: 3},
	}

	require.NoError(t, applySecrets(reader, cfg, errors.NewNopLogger()))

	assert.Equal(t, []string{"a", "b"}, cfg.Server.APIKeys)
	assert.Equal(t, "vault-gemini", cfg.AI.APIKey)
	assert.Equal(t, "vault-gemini", cfg.AI.Optimize.APIKey)
	assert.Equal(t, "postgres://u:p@db/cb", cfg.Database.DSN)
	assert.Equal(t, "AK", cfg.Storage.AccessKey)
	assert.Equal(t, "SK", cfg.Storage.SecretKey)
	assert.Equal(t, "CERT", cfg.Server.TLS.CertContent)
	assert.Equal(t, "KEY", cfg.Server.TLS.KeyContent)
	assert.Empty(t, cfg.Server.TLS.CAContent)
}

func TestApplySecretsMissingKey(t *testing.T) {
	cfg := validConfig()
	cfg.Vault.Secrets.Database = "secret/data/db"

	reader := fakeSecrets{"secret/data/db": {Data: map[string]any{"url": "x"}}}

	err := applySecrets(reader, cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load database from vault")
}

func TestApplyGeminiKeyKeepsOperationKey(t *testing.T) {
	cfg := &Config{AI: AIConfig{Optimize: OperationAIConfig{APIKey: "existing"}}}
	applyGeminiKeyToConfig(cfg, "vault-key")

	assert.Equal(t, "vault-key", cfg.AI.APIKey)
	assert.Equal(t, "existing", cfg.AI.Optimize.APIKey)
}

func TestResolveVaultToken(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("s.file-token\n"), 0600))

	token, err := resolveVaultToken(VaultConfig{Token: "s.inline"})
	require.NoError(t, err)
	assert.Equal(t, "s.inline", token)

	token, err = resolveVaultToken(VaultConfig{TokenFile: tokenFile})
	require.NoError(t, err)
	assert.Equal(t, "s.file-token", token)

	_, err = resolveVaultToken(VaultConfig{})
	assert.Error(t, err)
}

func TestNewVaultClientDisabled(t *testing.T) {
	client, err := NewVaultClient(VaultConfig{Enabled: false}, nil)
	assert.NoError(t, err)
	assert.Nil(t, client)
}
