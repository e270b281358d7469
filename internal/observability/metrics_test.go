package observability

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"careerboost/internal/resume"
)

func newTestManager(t *testing.T) (*Manager, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	om, err := newManager(Settings{
		ServiceName:    "careerboost-test",
		ServiceVersion: "test",
		Enabled:        true,
		MetricsEnabled: true,
		SampleRate:     1,
	}, nil, nil, reader)
	require.NoError(t, err)
	t.Cleanup(func() { _ = om.Shutdown(context.Background()) })
	return om, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_BusinessCounters(t *testing.T) {
	om, reader := newTestManager(t)
	m := om.GetMetrics()
	ctx := context.Background()

	m.RecordBusinessMetric(ctx, MetricResumeOptimized, true)
	m.RecordBusinessMetric(ctx, MetricResumeSaved, true)
	m.RecordBusinessMetric(ctx, MetricSuggestionToggled, true)
	m.RecordBusinessMetric(ctx, MetricKeywordToggled, true)
	m.RecordBusinessMetric(ctx, MetricRateLimitHit, false)
	m.RecordScore(ctx, "optimized", 72)
	m.RecordReload(ctx, "templates", true)

	got := collect(t, reader)
	assert.Equal(t, int64(1), sumOf(t, got["careerboost_resumes_optimized_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["careerboost_resumes_saved_total"]))
	assert.Equal(t, int64(2), sumOf(t, got["careerboost_items_toggled_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["careerboost_rate_limit_hits_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["careerboost_reloads_total"]))

	hist, ok := got["careerboost_ats_score"].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, int64(72), hist.DataPoints[0].Sum)
}

func TestMetrics_TrackAIOperation(t *testing.T) {
	om, reader := newTestManager(t)
	m := om.GetMetrics()

	err := m.TrackAIOperation(context.Background(), "optimize", func(context.Context) *AIOperationResult {
		return &AIOperationResult{TokenUsage: &TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}
	})
	require.NoError(t, err)

	boom := fmt.Errorf("boom")
	err = m.TrackAIOperation(context.Background(), "optimize", func(context.Context) *AIOperationResult {
		return &AIOperationResult{Error: boom}
	})
	assert.ErrorIs(t, err, boom)

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, got["careerboost_ai_requests_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["careerboost_ai_errors_total"]))

	tokens, ok := got["careerboost_ai_token_usage"].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	assert.Len(t, tokens.DataPoints, 3, "input, output and total")
}

func TestMetrics_SessionObserver(t *testing.T) {
	om, reader := newTestManager(t)

	var seen []string
	observer := ChainObservers(nil, om.GetMetrics().SessionObserver(), func(tr resume.Transition) {
		seen = append(seen, tr.Action)
	})

	s := resume.NewSession("r1", "u1", observer)
	require.NoError(t, s.BeginProcessing())
	require.NoError(t, s.FailProcessing(nil))

	assert.Equal(t, []string{"processing", "failed"}, seen)
	assert.Equal(t, int64(2), sumOf(t, collect(t, reader)["careerboost_session_transitions_total"]))
}

func TestDisabledManagerIsNoop(t *testing.T) {
	om, err := NewManager(Settings{Enabled: false}, nil, nil)
	require.NoError(t, err)

	m := om.GetMetrics()
	m.RecordBusinessMetric(context.Background(), MetricResumeSaved, true)
	m.RecordScore(context.Background(), "saved", 50)
	m.SessionObserver()(resume.Transition{Action: "save"})

	called := false
	h := om.HTTPMiddleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.True(t, called)

	var nilManager *Manager
	assert.NotNil(t, nilManager.GetMetrics())
	assert.NoError(t, nilManager.Shutdown(context.Background()))
}

func TestSettingsFromConfig_Defaults(t *testing.T) {
	s := SettingsFromConfig(nil, "1.2.3")
	assert.Equal(t, "careerboost", s.ServiceName)
	assert.Equal(t, "1.2.3", s.ServiceVersion)
	assert.True(t, s.Prometheus.Enabled)
	assert.Equal(t, "/metrics", s.Prometheus.Endpoint)
}
