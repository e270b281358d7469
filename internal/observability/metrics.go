package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"careerboost/internal/config"
	"careerboost/internal/resume"
)

// Business events counted by RecordBusinessMetric
const (
	MetricResumeOptimized   = "resume_optimized"
	MetricResumeSaved       = "resume_saved"
	MetricResumeReset       = "resume_reset"
	MetricUploadProcessed   = "upload_processed"
	MetricSuggestionToggled = "suggestion_toggled"
	MetricKeywordToggled    = "keyword_toggled"
	MetricRateLimitHit      = "rate_limit_hit"
)

// Metrics holds the custom instruments. The zero value records nothing.
type Metrics struct {
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	ResumesOptimized metric.Int64Counter
	ResumesSaved     metric.Int64Counter
	ResumesReset     metric.Int64Counter
	UploadsProcessed metric.Int64Counter
	ItemsToggled     metric.Int64Counter
	ATSScore         metric.Int64Histogram

	SessionTransitions metric.Int64Counter
	ConfigReloads      metric.Int64Counter
	CertExpiryTime     metric.Float64Gauge
	RateLimitHits      metric.Int64Counter

	custom config.CustomMetricsConfig
}

// TokenUsage is the token accounting of one AI call
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// AIOperationResult is what an instrumented AI call reports back
type AIOperationResult struct {
	Error      error
	TokenUsage *TokenUsage
}

func newMetrics(meter metric.Meter, custom config.CustomMetricsConfig) (*Metrics, error) {
	m := &Metrics{custom: custom}
	var err error

	if m.AIProcessingTime, err = meter.Float64Histogram("careerboost_ai_processing_duration_seconds",
		metric.WithDescription("Time spent processing AI requests"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create AI processing time metric: %w", err)
	}
	if m.AIRequestCount, err = meter.Int64Counter("careerboost_ai_requests_total",
		metric.WithDescription("Total number of AI requests")); err != nil {
		return nil, fmt.Errorf("failed to create AI request count metric: %w", err)
	}
	if m.AIErrorCount, err = meter.Int64Counter("careerboost_ai_errors_total",
		metric.WithDescription("Total number of AI request errors")); err != nil {
		return nil, fmt.Errorf("failed to create AI error count metric: %w", err)
	}
	if m.AITokenUsage, err = meter.Int64Histogram("careerboost_ai_token_usage",
		metric.WithDescription("Token usage for AI requests"), metric.WithUnit("{token}")); err != nil {
		return nil, fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	if m.ResumesOptimized, err = meter.Int64Counter("careerboost_resumes_optimized_total",
		metric.WithDescription("Total number of resume optimizations")); err != nil {
		return nil, fmt.Errorf("failed to create resumes optimized metric: %w", err)
	}
	if m.ResumesSaved, err = meter.Int64Counter("careerboost_resumes_saved_total",
		metric.WithDescription("Total number of saved resume versions")); err != nil {
		return nil, fmt.Errorf("failed to create resumes saved metric: %w", err)
	}
	if m.ResumesReset, err = meter.Int64Counter("careerboost_resumes_reset_total",
		metric.WithDescription("Total number of resumes reset to the optimized version")); err != nil {
		return nil, fmt.Errorf("failed to create resumes reset metric: %w", err)
	}
	if m.UploadsProcessed, err = meter.Int64Counter("careerboost_uploads_processed_total",
		metric.WithDescription("Total number of processed resume uploads")); err != nil {
		return nil, fmt.Errorf("failed to create uploads metric: %w", err)
	}
	if m.ItemsToggled, err = meter.Int64Counter("careerboost_items_toggled_total",
		metric.WithDescription("Suggestion and keyword toggles")); err != nil {
		return nil, fmt.Errorf("failed to create toggles metric: %w", err)
	}
	if m.ATSScore, err = meter.Int64Histogram("careerboost_ats_score",
		metric.WithDescription("ATS scores of optimized and saved resumes"),
		metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 80, 90, 100)); err != nil {
		return nil, fmt.Errorf("failed to create ATS score metric: %w", err)
	}

	if m.SessionTransitions, err = meter.Int64Counter("careerboost_session_transitions_total",
		metric.WithDescription("Editor session phase transitions")); err != nil {
		return nil, fmt.Errorf("failed to create session transitions metric: %w", err)
	}
	if m.ConfigReloads, err = meter.Int64Counter("careerboost_reloads_total",
		metric.WithDescription("Hot reloads of certificates and templates")); err != nil {
		return nil, fmt.Errorf("failed to create reload metric: %w", err)
	}
	if m.CertExpiryTime, err = meter.Float64Gauge("careerboost_cert_expiry_seconds",
		metric.WithDescription("Seconds until certificate expiry"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create certificate expiry metric: %w", err)
	}
	if m.RateLimitHits, err = meter.Int64Counter("careerboost_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits")); err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return m, nil
}

// TrackAIOperation instruments an AI call with a span and, when enabled,
// duration, request, error and token metrics.
func (m *Metrics) TrackAIOperation(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult) error {
	ctx, span := otel.Tracer("careerboost.ai").Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}
	span.SetAttributes(attrs...)

	if m.AIRequestCount != nil && m.custom.AIOperations.Enabled {
		if m.custom.AIOperations.TrackDuration {
			m.AIProcessingTime.Record(ctx, duration, metric.WithAttributes(attrs...))
		}
		m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		if err != nil {
			m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
		if result != nil && result.TokenUsage != nil && m.custom.AIOperations.TrackTokenUsage {
			m.recordTokens(ctx, operation, result.TokenUsage)
		}
	}

	if result != nil && result.TokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", result.TokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", result.TokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", result.TokenUsage.TotalTokens),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (m *Metrics) recordTokens(ctx context.Context, operation string, usage *TokenUsage) {
	for _, tt := range []struct {
		kind  string
		value int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
		{"total", usage.TotalTokens},
	} {
		m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("token_type", tt.kind),
		))
	}
}

// RecordBusinessMetric counts one business event of metricType
func (m *Metrics) RecordBusinessMetric(ctx context.Context, metricType string, success bool, attributes ...attribute.KeyValue) {
	if metricType == MetricRateLimitHit {
		m.recordRateLimitHit(ctx, attributes)
		return
	}
	if !m.custom.BusinessMetrics.Enabled {
		return
	}

	attrs := attributes
	if m.custom.BusinessMetrics.TrackSuccessRates {
		attrs = append([]attribute.KeyValue{attribute.Bool("success", success)}, attributes...)
	}

	var counter metric.Int64Counter
	switch metricType {
	case MetricResumeOptimized:
		counter = m.ResumesOptimized
	case MetricResumeSaved:
		counter = m.ResumesSaved
	case MetricResumeReset:
		counter = m.ResumesReset
	case MetricUploadProcessed:
		counter = m.UploadsProcessed
	case MetricSuggestionToggled, MetricKeywordToggled:
		counter = m.ItemsToggled
		attrs = append(attrs, attribute.String("item", metricType))
	}
	if counter != nil {
		counter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (m *Metrics) recordRateLimitHit(ctx context.Context, attrs []attribute.KeyValue) {
	if m.RateLimitHits == nil || !m.custom.Infrastructure.Enabled || !m.custom.Infrastructure.TrackRateLimits {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordScore records an ATS score; stage is "optimized" or "saved"
func (m *Metrics) RecordScore(ctx context.Context, stage string, score int) {
	if m.ATSScore == nil || !m.custom.BusinessMetrics.Enabled || !m.custom.BusinessMetrics.TrackScores {
		return
	}
	m.ATSScore.Record(ctx, int64(score), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordReload counts a hot reload of component
func (m *Metrics) RecordReload(ctx context.Context, component string, success bool) {
	if m.ConfigReloads == nil || !m.custom.Infrastructure.Enabled || !m.custom.Infrastructure.TrackReloads {
		return
	}
	m.ConfigReloads.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", component),
		attribute.Bool("success", success),
	))
}

// RecordCertExpiry sets the seconds left before the serving certificate expires
func (m *Metrics) RecordCertExpiry(ctx context.Context, notAfter time.Time) {
	if m.CertExpiryTime == nil {
		return
	}
	m.CertExpiryTime.Record(ctx, time.Until(notAfter).Seconds())
}

// SessionObserver counts editor session transitions by action and target phase
func (m *Metrics) SessionObserver() resume.Observer {
	return func(t resume.Transition) {
		if m.SessionTransitions == nil {
			return
		}
		m.SessionTransitions.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("action", t.Action),
			attribute.String("to", string(t.To)),
		))
	}
}

// ChainObservers calls every non-nil observer in order
func ChainObservers(observers ...resume.Observer) resume.Observer {
	return func(t resume.Transition) {
		for _, o := range observers {
			if o != nil {
				o(t)
			}
		}
	}
}
