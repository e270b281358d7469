package ai

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"careerboost/internal/config"
	cberrors "careerboost/internal/errors"
	"careerboost/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const defaultModelCheckTimeout = 10 * time.Second

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

type getModelFunc func(ctx context.Context, model string, cfg *genai.GetModelConfig) (*genai.Model, error)

// GeminiProvider implements AIProvider for Google Gemini
type GeminiProvider struct {
	generate          generateFunc
	getModel          getModelFunc
	config            *config.OperationAIConfig
	prompts           config.LoadedPrompts
	circuitBreaker    *Breaker[*genai.GenerateContentResponse]
	modelBreaker      *Breaker[*genai.Model]
	modelCheckTimeout time.Duration
	defaultLanguage   string
	logger            *cberrors.Logger
}

var _ AIProvider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider instance for a specific operation
func NewGeminiProvider(cfg *config.OperationAIConfig, operationType string, logger *cberrors.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, cberrors.NewAIError(cberrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return newGeminiProvider(client.Models.GenerateContent, client.Models.Get, cfg, operationType, logger), nil
}

func newGeminiProvider(generate generateFunc, getModel getModelFunc, cfg *config.OperationAIConfig, operationType string, logger *cberrors.Logger) *GeminiProvider {
	return &GeminiProvider{
		generate:          generate,
		getModel:          getModel,
		config:            cfg,
		circuitBreaker:    NewAICircuitBreaker(operationType, cfg, logger),
		modelBreaker:      NewModelCircuitBreaker(operationType, cfg, logger),
		modelCheckTimeout: defaultModelCheckTimeout,
		defaultLanguage:   "en",
		logger:            logger,
	}
}

// SetLoadedPrompts installs prompts read from prompt files; they take
// precedence over inline config prompts
func (g *GeminiProvider) SetLoadedPrompts(prompts config.LoadedPrompts) {
	g.prompts = prompts
}

// SetModelCheckTimeout bounds GetModelInfo calls
func (g *GeminiProvider) SetModelCheckTimeout(timeout time.Duration) {
	if timeout > 0 {
		g.modelCheckTimeout = timeout
	}
}

// SetDefaultLanguage is used when neither the request nor the model names one
func (g *GeminiProvider) SetDefaultLanguage(language string) {
	if language != "" {
		g.defaultLanguage = language
	}
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{Name: g.config.Model}

	checkCtx, cancel := context.WithTimeout(ctx, g.modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.getModel(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.DisplayName
	modelInfo.Version = model.Version
	return modelInfo
}

// executeWithRetry executes an AI operation with retry logic and exponential backoff
func (g *GeminiProvider) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	var lastErr error
	maxRetries := *g.config.MaxRetries

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", maxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(backoffDelay(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	g.logger.LogError(lastErr, "AI operation failed",
		"operation", operation,
		"max_retries", maxRetries)

	return nil, fmt.Errorf("operation '%s' failed: %w", operation, lastErr)
}

// backoffDelay is 2^(attempt-1) seconds plus up to 10% jitter, capped at 30s
func backoffDelay(attempt int) time.Duration {
	baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
	jitter := time.Duration(0)
	if jitterBig, err := rand.Int(rand.Reader, big.NewInt(int64(float64(baseDelay)*0.1))); err == nil {
		jitter = time.Duration(jitterBig.Int64())
	}
	return min(baseDelay+jitter, 30*time.Second)
}

// isRetryableError reports network failures and transient Google API statuses
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}

// executeAIOperation runs one structured generation call and decodes the JSON answer into Out
func executeAIOperation[Out any](
	g *GeminiProvider,
	ctx context.Context,
	operationName string,
	userPrompt string,
	systemPrompt string,
	genaiConfig *genai.GenerateContentConfig,
	spanAttributes ...attribute.KeyValue,
) (Out, *TokenUsage, error) {
	var output Out
	tracer := otel.Tracer("careerboost.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+operationName)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
	)
	span.SetAttributes(spanAttributes...)

	if *g.config.UseSystemPrompts && systemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, operationName, func() (*genai.GenerateContentResponse, error) {
			return g.generate(ctx, g.config.Model, genai.Text(userPrompt), genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		code := cberrors.ErrCodeAIServiceFailed
		if errors.Is(err, context.DeadlineExceeded) {
			code = cberrors.ErrCodeAITimeout
		}
		return output, nil, cberrors.NewAIError(code, "Failed to generate content for "+operationName, err)
	}

	if err := json.Unmarshal([]byte(cleanJSON(result.Text())), &output); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return output, nil, cberrors.NewAIError("AI_RESPONSE_PARSE_FAILED", "Failed to parse AI response for "+operationName, err)
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}

	span.SetAttributes(attribute.Bool("success", true))
	return output, tokenUsage, nil
}

// OptimizeResume rewrites the resume as sectioned HTML and returns the ATS
// score, suggestions and keywords
func (g *GeminiProvider) OptimizeResume(ctx context.Context, input types.OptimizeResumeInput) (types.OptimizeResumeOutput, *TokenUsage, error) {
	resumeText := sanitizeUTF8(input.ResumeText)
	if resumeText == "" {
		return types.OptimizeResumeOutput{}, nil, cberrors.NewValidationError(cberrors.ErrCodeInvalidRequest,
			"resume text is empty", nil)
	}

	language := input.Language
	if language == "" {
		language = g.defaultLanguage
	}

	if g.config.Timeout != nil && *g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *g.config.Timeout)
		defer cancel()
	}

	systemPrompt := resolvePrompt(g.prompts.SystemPrompt, g.config.CustomPrompts.SystemPrompt, DefaultSystemPrompt)
	userTemplate := resolvePrompt(g.prompts.UserPrompt, g.config.CustomPrompts.UserPrompt, DefaultUserPrompt)
	userPrompt := fmt.Sprintf(userTemplate, languageName(language), targetingContext(input), resumeText)

	output, tokenUsage, err := executeAIOperation[types.OptimizeResumeOutput](
		g,
		ctx,
		"optimize_resume",
		userPrompt,
		systemPrompt,
		g.buildOptimizeSchema(),
		attribute.Int("input.resume_length", len(resumeText)),
		attribute.String("input.language", language),
		attribute.Bool("input.targeted", input.JobDescription != "" || input.TargetRole != ""),
	)
	if err != nil {
		return types.OptimizeResumeOutput{}, nil, err
	}

	normalizeOutput(&output, language)
	if output.OptimizedText == "" {
		return types.OptimizeResumeOutput{}, tokenUsage, cberrors.NewAIError(cberrors.ErrCodeAIServiceFailed,
			"AI returned an empty optimized resume", nil)
	}

	return output, tokenUsage, nil
}

// GetCircuitBreakerStats reports both breakers and an overall health flag
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    g.circuitBreaker.GetStats(),
		"model_operations": g.modelBreaker.GetStats(),
		"overall_healthy":  g.circuitBreaker.IsHealthy() && g.modelBreaker.IsHealthy(),
	}
}

func (g *GeminiProvider) Close() error {
	return nil
}

func (g *GeminiProvider) buildOptimizeSchema() *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"optimizedText": {Type: genai.TypeString},
				"atsScore":      {Type: genai.TypeInteger},
				"language":      {Type: genai.TypeString},
				"suggestions": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"id":          {Type: genai.TypeString},
							"type":        {Type: genai.TypeString},
							"text":        {Type: genai.TypeString},
							"impact":      {Type: genai.TypeString},
							"pointImpact": {Type: genai.TypeInteger},
						},
						Required: []string{"id", "type", "text", "impact", "pointImpact"},
					},
				},
				"keywords": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"keyword":     {Type: genai.TypeString},
							"pointImpact": {Type: genai.TypeInteger},
						},
						Required: []string{"keyword", "pointImpact"},
					},
				},
			},
			Required: []string{"optimizedText", "atsScore", "language", "suggestions", "keywords"},
		},
	}

	if *g.config.Temperature > 0 {
		config.Temperature = g.config.Temperature
	}

	return config
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
