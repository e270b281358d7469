package ai

import (
	"context"

	"careerboost/internal/types"
)

// AIProvider interface for different AI implementations
// Methods return token usage information - callers can ignore it if not needed
type AIProvider interface {
	OptimizeResume(ctx context.Context, input types.OptimizeResumeInput) (types.OptimizeResumeOutput, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	GetCircuitBreakerStats() map[string]any
	Close() error
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
