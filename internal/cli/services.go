package cli

import (
	"context"
	"fmt"

	"careerboost/internal/ai"
	"careerboost/internal/config"
	"careerboost/internal/errors"
	"careerboost/internal/store"
)

// newAIService creates the optimize AI service with file-loaded prompts
func newAIService(cfg *config.Config, logger *errors.Logger) (*ai.Service, error) {
	if err := cfg.RequireAIKey(); err != nil {
		return nil, err
	}
	opCfg := cfg.GetOptimizeConfig()
	svc, err := ai.NewService(&opCfg, "optimize", logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI service: %w", err)
	}
	if gemini, ok := svc.Provider.(*ai.GeminiProvider); ok {
		gemini.SetLoadedPrompts(cfg.GetLoadedOptimizePrompts())
	}
	return svc, nil
}

// openStore connects to the resume database
func openStore(ctx context.Context, cfg *config.Config, logger *errors.Logger) (*store.SQLStore, error) {
	st, err := store.Open(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open resume store: %w", err)
	}
	return st, nil
}
