package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"careerboost/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets holds KV v2 paths of each secret. Empty paths are skipped.
//
//	apiKeys:   keys=<comma separated list>
//	geminiKey: api_key
//	database:  dsn
//	storage:   access_key, secret_key
//	tlsCerts:  cert, key, ca (PEM content)
type VaultSecrets struct {
	APIKeys   string `mapstructure:"apiKeys"`
	GeminiKey string `mapstructure:"geminiKey"`
	Database  string `mapstructure:"database"`
	Storage   string `mapstructure:"storage"`
	TLSCerts  string `mapstructure:"tlsCerts"`
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

type secretReader interface {
	GetSecretV2(path string) (*VaultSecret, error)
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	client *api.Client
	config VaultConfig
	logger *errors.Logger
}

// NewVaultClient creates a new Vault client and checks the server is reachable.
// It returns nil when Vault is disabled.
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !config.Enabled {
		return nil, nil
	}

	vaultConfig := api.DefaultConfig()
	if config.Address != "" {
		vaultConfig.Address = config.Address
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	token, err := resolveVaultToken(config)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vault at %s: %w", config.Address, err)
	}

	if logger != nil {
		logger.Info("Connected to Vault",
			"address", config.Address,
			"version", health.Version,
			"sealed", health.Sealed,
			"cluster_name", health.ClusterName)
	}

	return &VaultClient{client: client, config: config, logger: logger}, nil
}

// resolveVaultToken resolves the Vault token from config or file
func resolveVaultToken(config VaultConfig) (string, error) {
	token := config.Token

	if token == "" && config.TokenFile != "" {
		tokenBytes, err := os.ReadFile(config.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(tokenBytes))
	}

	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// GetSecretV2 retrieves a secret from a Vault KVv2 store.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	return parseKVv2(secret.Data, path)
}

// parseKVv2 unpacks the data and metadata.version fields of a KV v2 read
func parseKVv2(raw map[string]any, path string) (*VaultSecret, error) {
	data, ok := raw["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}

	metadata, ok := raw["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}

	versionRaw, ok := metadata["version"]
	if !ok {
		return nil, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	}

	version, err := parseVersionValue(versionRaw, path)
	if err != nil {
		return nil, err
	}

	return &VaultSecret{Data: data, Version: version}, nil
}

// parseVersionValue parses the version, which the JSON decoder may hand back
// as a number or a json.Number string
func parseVersionValue(versionRaw any, path string) (int64, error) {
	switch v := versionRaw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case fmt.Stringer:
		return parseVersionValue(v.String(), path)
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, versionRaw)
	}
}

// stringField returns data[key] as a string
func stringField(secret *VaultSecret, path, key string) (string, error) {
	value, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}
	return str, nil
}

// ApplyVaultSecrets loads secrets from Vault and applies them to the config
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if !config.Vault.Enabled {
		return nil
	}

	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}

	return applySecrets(client, config, logger)
}

// applySecrets copies every configured secret into config
func applySecrets(reader secretReader, config *Config, logger *errors.Logger) error {
	paths := config.Vault.Secrets

	steps := []struct {
		name  string
		path  string
		apply func(*VaultSecret, string) error
	}{
		{"api keys", paths.APIKeys, func(s *VaultSecret, p string) error {
			keys, err := stringField(s, p, "keys")
			if err != nil {
				return err
			}
			if parsed := splitAndTrim(keys); len(parsed) > 0 {
				config.Server.APIKeys = parsed
			}
			return nil
		}},
		{"gemini key", paths.GeminiKey, func(s *VaultSecret, p string) error {
			key, err := stringField(s, p, "api_key")
			if err != nil {
				return err
			}
			applyGeminiKeyToConfig(config, key)
			return nil
		}},
		{"database", paths.Database, func(s *VaultSecret, p string) error {
			dsn, err := stringField(s, p, "dsn")
			if err != nil {
				return err
			}
			config.Database.DSN = dsn
			return nil
		}},
		{"storage", paths.Storage, func(s *VaultSecret, p string) error {
			accessKey, err := stringField(s, p, "access_key")
			if err != nil {
				return err
			}
			secretKey, err := stringField(s, p, "secret_key")
			if err != nil {
				return err
			}
			config.Storage.AccessKey = accessKey
			config.Storage.SecretKey = secretKey
			return nil
		}},
		{"tls certificates", paths.TLSCerts, func(s *VaultSecret, _ string) error {
			applyTLSContent(config, s)
			return nil
		}},
	}

	for _, step := range steps {
		if step.path == "" {
			continue
		}
		secret, err := reader.GetSecretV2(step.path)
		if err != nil {
			return fmt.Errorf("failed to load %s from vault: %w", step.name, err)
		}
		if err := step.apply(secret, step.path); err != nil {
			return fmt.Errorf("failed to load %s from vault: %w", step.name, err)
		}
		if logger != nil {
			logger.Info("Secret applied from Vault", "secret", step.name, "version", secret.Version)
		}
	}

	return nil
}

// applyGeminiKeyToConfig sets the global key and any operation key left empty
func applyGeminiKeyToConfig(config *Config, geminiKey string) {
	if geminiKey == "" {
		return
	}
	config.AI.APIKey = geminiKey
	if config.AI.Optimize.APIKey == "" {
		config.AI.Optimize.APIKey = geminiKey
	}
}

func applyTLSContent(config *Config, secret *VaultSecret) {
	targets := map[string]*string{
		"cert": &config.Server.TLS.CertContent,
		"key":  &config.Server.TLS.KeyContent,
		"ca":   &config.Server.TLS.CAContent,
	}
	for key, target := range targets {
		if content, ok := secret.Data[key].(string); ok && content != "" {
			*target = content
		}
	}
}
