package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func validConfig() *Config {
	return &Config{
		AI:       AIConfig{Provider: "gemini", Timeout: time.Minute, APIKey: "k"},
		Server:   ServerConfig{Port: "8080", TLS: TLSConfig{Mode: "disabled"}},
		App:      AppConfig{DefaultFormat: "json", SupportedFormats: []string{"json", "text"}},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "test.db"},
		Storage:  StorageConfig{Provider: "local", LocalDir: "uploads"},
		Resume:   ResumeConfig{SessionTTL: time.Minute},
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
ai:
  model: gemini-2.5-flash
  apiKey: file-key
  optimize:
    temperature: 0.1
server:
  port: "9000"
database:
  driver: sqlite
  dsn: `+filepath.Join(dir, "cb.db")+`
storage:
  provider: local
  localDir: `+filepath.Join(dir, "uploads")+`
resume:
  sessionTTL: 5m
  defaultTemplate: modern
`)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "modern", cfg.Resume.DefaultTemplate)
	assert.Equal(t, 5*time.Minute, cfg.Resume.SessionTTL)
	assert.Equal(t, "session_updates", cfg.Events.Exchange)

	op := cfg.GetOptimizeConfig()
	assert.Equal(t, "gemini-2.5-flash", op.Model)
	assert.Equal(t, "file-key", op.APIKey)
	require.NotNil(t, op.Temperature)
	assert.InDelta(t, 0.1, *op.Temperature, 0.0001)
	require.NotNil(t, op.Timeout)
	assert.Equal(t, 90*time.Second, *op.Timeout)
	assert.True(t, op.CircuitBreaker.Enabled)
	assert.NoError(t, cfg.RequireAIKey())
}

func TestGetOptimizeConfigFallsBackToGlobal(t *testing.T) {
	cfg := validConfig()
	cfg.AI.Model = "global-model"
	cfg.AI.MaxRetries = 4
	cfg.AI.Temperature = 0.5
	cfg.AI.UseSystemPrompts = true
	cfg.AI.CustomPrompts.SystemPrompt = "global system"

	op := cfg.GetOptimizeConfig()

	assert.Equal(t, "gemini", op.Provider)
	assert.Equal(t, "global-model", op.Model)
	assert.Equal(t, 4, *op.MaxRetries)
	assert.InDelta(t, 0.5, *op.Temperature, 0.0001)
	assert.True(t, *op.UseSystemPrompts)
	assert.Equal(t, "global system", op.CustomPrompts.SystemPrompt)

	// the returned pointers must not alias the global config
	*op.MaxRetries = 9
	assert.Equal(t, 4, cfg.AI.MaxRetries)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad provider", func(c *Config) { c.AI.Provider = "openai" }, "unsupported AI provider"},
		{"bad timeout", func(c *Config) { c.AI.Timeout = 0 }, "timeout must be positive"},
		{"missing port", func(c *Config) { c.Server.Port = "" }, "port is required"},
		{"bad format", func(c *Config) { c.App.DefaultFormat = "xml" }, "invalid default format"},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "invalid database driver"},
		{"s3 without bucket", func(c *Config) { c.Storage.Provider = "s3" }, "bucket is required"},
		{"local without dir", func(c *Config) { c.Storage.LocalDir = "" }, "localDir is required"},
		{"bad storage", func(c *Config) { c.Storage.Provider = "gcs" }, "invalid storage provider"},
		{"events without url", func(c *Config) { c.Events.Enabled = true }, "events url is required"},
		{"negative ttl", func(c *Config) { c.Resume.SessionTTL = -time.Second }, "TTL cannot be negative"},
		{"bad tls mode", func(c *Config) { c.Server.TLS.Mode = "strict" }, "invalid TLS mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRequireAIKey(t *testing.T) {
	cfg := validConfig()
	cfg.AI.APIKey = ""
	assert.Error(t, cfg.RequireAIKey())

	cfg.AI.Optimize.APIKey = "op-key"
	assert.NoError(t, cfg.RequireAIKey())
}

func TestValidateTLSConfig(t *testing.T) {
	tests := []struct {
		name    string
		tls     TLSConfig
		wantErr bool
	}{
		{"disabled", TLSConfig{Mode: "disabled"}, false},
		{"server with files", TLSConfig{Mode: "server", CertFile: "c.pem", KeyFile: "k.pem"}, false},
		{"server with content", TLSConfig{Mode: "server", CertContent: "c", KeyContent: "k", MinVersion: "1.3"}, false},
		{"server missing key", TLSConfig{Mode: "server", CertFile: "c.pem"}, true},
		{"server duplicate cert", TLSConfig{Mode: "server", CertFile: "c.pem", CertContent: "c", KeyFile: "k.pem"}, true},
		{"mutual without ca", TLSConfig{Mode: "mutual", CertFile: "c.pem", KeyFile: "k.pem"}, true},
		{"mutual ok", TLSConfig{Mode: "mutual", CertFile: "c.pem", KeyFile: "k.pem", CAFile: "ca.pem", ClientAuthPolicy: "verify"}, false},
		{"mutual bad policy", TLSConfig{Mode: "mutual", CertFile: "c.pem", KeyFile: "k.pem", CAFile: "ca.pem", ClientAuthPolicy: "maybe"}, true},
		{"bad version", TLSConfig{Mode: "server", CertFile: "c.pem", KeyFile: "k.pem", MinVersion: "1.1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Server: ServerConfig{TLS: tt.tls}}
			err := cfg.ValidateTLSConfig()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyFallbacksFromEnvironment(t *testing.T) {
	t.Setenv(EnvPrefix+"_SERVER_APIKEYS", " key-one , key-two,, ")
	t.Setenv("GEMINI_API_KEY", "env-gemini")

	cfg := &Config{
		Server:        ServerConfig{TLS: TLSConfig{Mode: "mutual"}},
		Observability: ObservabilityConfig{ServiceName: "careerboost"},
	}
	cfg.applyFallbacks()

	assert.Equal(t, []string{"key-one", "key-two"}, cfg.Server.APIKeys)
	assert.Equal(t, "env-gemini", cfg.AI.APIKey)
	assert.Equal(t, "require", cfg.Server.TLS.ClientAuthPolicy)
	assert.Equal(t, "1.2", cfg.Server.TLS.MinVersion)
	assert.Equal(t, "classic", cfg.Resume.DefaultTemplate)
	assert.NotEmpty(t, cfg.Observability.ServiceInstance)
}
