package ai

import (
	"fmt"
	"testing"
	"time"

	"careerboost/internal/config"
	"careerboost/internal/errors"

	"google.golang.org/genai"
)

func breakerConfig(enabled bool) *config.OperationAIConfig {
	return &config.OperationAIConfig{
		Provider: "gemini",
		Model:    "gemini-2.0-flash",
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          enabled,
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          time.Minute,
			MinRequests:      2,
			FailureThreshold: 0.5,
		},
	}
}

func TestAICircuitBreakerTrips(t *testing.T) {
	cb := NewAICircuitBreaker("Optimize", breakerConfig(true), errors.NewNopLogger())

	stats := cb.GetStats()
	if stats["name"] != "AI-Optimize" {
		t.Errorf("expected name AI-Optimize, got %v", stats["name"])
	}
	if stats["state"] != "closed" {
		t.Errorf("expected closed state, got %v", stats["state"])
	}

	failing := func() (*genai.GenerateContentResponse, error) {
		return nil, fmt.Errorf("upstream unavailable")
	}

	for i := 0; i < 2; i++ {
		if _, err := cb.Execute(failing); err == nil {
			t.Fatalf("expected failure on call %d", i)
		}
	}

	if cb.IsHealthy() {
		t.Fatalf("breaker should be open after 2 failures at ratio 1.0")
	}

	called := false
	_, err := cb.Execute(func() (*genai.GenerateContentResponse, error) {
		called = true
		return &genai.GenerateContentResponse{}, nil
	})
	if err == nil || called {
		t.Errorf("open breaker must reject calls without running them")
	}
}

func TestDisabledBreakerPassesThrough(t *testing.T) {
	cb := NewAICircuitBreaker("Optimize", breakerConfig(false), nil)
	if cb != nil {
		t.Fatalf("disabled breaker should be nil")
	}

	if !cb.IsHealthy() {
		t.Errorf("nil breaker must report healthy")
	}
	if enabled, _ := cb.GetStats()["enabled"].(bool); enabled {
		t.Errorf("nil breaker must report enabled=false")
	}

	want := &genai.GenerateContentResponse{}
	resp, err := cb.Execute(func() (*genai.GenerateContentResponse, error) {
		return want, nil
	})
	if err != nil || resp != want {
		t.Errorf("nil breaker should call through, got %v, %v", resp, err)
	}
}

func TestModelBreakerIsLenient(t *testing.T) {
	cb := NewModelCircuitBreaker("Optimize", breakerConfig(true), nil)

	for i := 0; i < 4; i++ {
		_, _ = cb.Execute(func() (*genai.Model, error) { return nil, fmt.Errorf("boom") })
	}
	if !cb.IsHealthy() {
		t.Errorf("model breaker should stay closed below 5 requests")
	}

	_, _ = cb.Execute(func() (*genai.Model, error) { return nil, fmt.Errorf("boom") })
	if cb.IsHealthy() {
		t.Errorf("model breaker should open at 5 failed requests")
	}
}
