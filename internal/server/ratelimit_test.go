package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestLimiterManagerAllow(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewRateLimiter(60, time.Minute, 2, nil)
	defer m.Close()

	assert.True(t, m.Allow("ip:10.0.0.1"))
	assert.True(t, m.Allow("ip:10.0.0.1"))
	assert.False(t, m.Allow("ip:10.0.0.1"), "burst exhausted")
	assert.True(t, m.Allow("ip:10.0.0.2"), "keys have separate buckets")

	stats := m.GetStats()
	assert.Equal(t, 2, stats["active_limiters"])
	assert.Equal(t, 2, stats["burst_capacity"])
	assert.InDelta(t, 60.0, stats["rate_per_minute"], 0.001)
}

func TestLimiterManagerDefaults(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewRateLimiter(5, 0, 0, nil)
	defer m.Close()

	assert.Equal(t, 5, m.GetStats()["burst_capacity"])
	assert.InDelta(t, 5.0, m.GetStats()["rate_per_minute"], 0.001)
}

func TestLimiterManagerCleanup(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewRateLimiter(10, time.Minute, 1, nil)
	defer m.Close()

	now := time.Now()
	m.now = func() time.Time { return now }
	m.GetLimiter("old")
	now = now.Add(20 * time.Minute)
	m.GetLimiter("fresh")

	assert.Equal(t, 1, m.cleanup(10*time.Minute))
	assert.Equal(t, 1, m.GetStats()["active_limiters"])

	m.Close()
	m.Close()
}

func TestGetRateLimitKey(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		remote   string
		byAPIKey bool
		byIP     bool
		want     string
	}{
		{"api key", map[string]string{"X-API-Key": "k1"}, "192.0.2.1:1234", true, true, "api:k1"},
		{"bearer", map[string]string{"Authorization": "Bearer k2"}, "192.0.2.1:1234", true, false, "api:k2"},
		{"ip fallback", nil, "192.0.2.1:1234", true, true, "ip:192.0.2.1"},
		{"forwarded", map[string]string{"X-Forwarded-For": "bogus, 203.0.113.9"}, "192.0.2.1:1234", false, true, "ip:203.0.113.9"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "192.0.2.1:1234", false, true, "ip:198.51.100.7"},
		{"disabled", nil, "192.0.2.1:1234", false, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getRateLimitKey(r, tt.byAPIKey, tt.byIP))
		})
	}
}
