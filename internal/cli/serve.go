package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"careerboost/internal/config"
	"careerboost/internal/errors"
	"careerboost/internal/events"
	"careerboost/internal/observability"
	"careerboost/internal/optimizer"
	"careerboost/internal/resume"
	"careerboost/internal/server"
	"careerboost/internal/storage"
	"careerboost/internal/templates"
)

const (
	templateReloadDebounce  = 500 * time.Millisecond
	telemetryShutdownWindow = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API for uploading, optimizing, editing and saving resumes.

The caller's identity is read from the configured user header (X-User-ID by
default), which an upstream gateway is expected to set.

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	applyServeFlags(cmd, cfg)
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	telemetry, err := observability.NewManager(observability.SettingsFromConfig(cfg, Version), cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownWindow)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.LogError(err, "Failed to shut down observability")
		}
	}()
	metrics := telemetry.GetMetrics()

	aiService, err := newAIService(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLogged(logger, "AI service", aiService.Close)

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLogged(logger, "resume store", st.Close)

	files, err := storage.New(ctx, &cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize file storage: %w", err)
	}

	publisher, err := events.New(&cfg.Events, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize session events: %w", err)
	}
	defer closeLogged(logger, "event publisher", publisher.Close)

	sessions := resume.NewSessionManager(cfg.Resume.SessionTTL,
		observability.ChainObservers(events.Observer(publisher, logger), metrics.SessionObserver()),
		logger)
	defer sessions.Close()

	catalog, err := templates.Load(cfg.Resume.TemplatesFile, cfg.Resume.DefaultTemplate, logger)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	defer closeLogged(logger, "template watcher", catalog.Close)
	if err := catalog.Watch(templateReloadDebounce, func(err error) {
		metrics.RecordReload(context.Background(), "templates", err == nil)
	}); err != nil {
		return fmt.Errorf("failed to watch templates: %w", err)
	}

	deps := server.Deps{
		Optimizer: optimizer.New(optimizer.Deps{
			Provider:    aiService.Provider,
			Store:       st,
			Files:       files,
			Sessions:    sessions,
			Templates:   catalog,
			Metrics:     metrics,
			Config:      cfg.Resume,
			MaxFileSize: cfg.App.MaxFileSize,
			Logger:      logger,
		}),
		AI:        aiService,
		Telemetry: telemetry,
	}
	if cfg.Vault.Enabled && cfg.Vault.Secrets.TLSCerts != "" && cfg.Server.TLS.AutoReload.VaultPollInterval > 0 {
		vault, err := config.NewVaultClient(cfg.Vault, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to Vault for TLS rotation: %w", err)
		}
		deps.Vault = vault
	}

	srv := server.NewServer(cfg, Version, deps, logger)
	defer srv.Close()
	return srv.Start(ctx)
}

// applyServeFlags copies flag overrides into cfg, which was loaded before
// the flags were parsed
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	overrides := []struct {
		flag   string
		target *string
	}{
		{"port", &cfg.Server.Port},
		{"host", &cfg.Server.Host},
		{"tls-mode", &cfg.Server.TLS.Mode},
		{"cert-file", &cfg.Server.TLS.CertFile},
		{"key-file", &cfg.Server.TLS.KeyFile},
		{"ca-file", &cfg.Server.TLS.CAFile},
	}
	for _, o := range overrides {
		if cmd.Flags().Changed(o.flag) {
			*o.target, _ = cmd.Flags().GetString(o.flag)
		}
	}
}

func closeLogged(logger *errors.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.LogError(err, "Failed to close "+what)
	}
}
