package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"remote addr", nil, "198.51.100.7:5555", "198.51.100.7"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.1"}, "10.0.0.2:80", "203.0.113.1"},
		{"real ip", map[string]string{"X-Real-IP": " 203.0.113.2 "}, "10.0.0.2:80", "203.0.113.2"},
		{"no port", nil, "unix-socket", "unix-socket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetClientIP(r))
		})
	}
}

func TestIPRateLimiterCountsAndCleansUp(t *testing.T) {
	rl := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1, CleanupInterval: time.Hour})
	defer rl.Stop()

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, RateLimitStats{Allowed: 2, Rejected: 1}, rl.Stats())

	assert.Equal(t, 0, rl.cleanup(time.Now().Add(-time.Minute)))
	assert.Equal(t, 2, rl.cleanup(time.Now().Add(time.Minute)))

	// a forgotten client starts with a fresh bucket
	assert.True(t, rl.Allow("a"))
	rl.Stop()
}

func TestConnLimiter(t *testing.T) {
	c := NewConnLimiter(2)
	assert.True(t, c.Acquire("x"))
	assert.True(t, c.Acquire("x"))
	assert.False(t, c.Acquire("x"))
	assert.True(t, c.Acquire("y"))
	assert.Equal(t, 2, c.Count("x"))

	c.Release("x")
	assert.Equal(t, 1, c.Count("x"))
	c.Release("x")
	c.Release("x")
	assert.Equal(t, 0, c.Count("x"))
	assert.True(t, c.Acquire("x"))
}

func TestOriginChecker(t *testing.T) {
	def := NewOriginChecker(nil)
	custom := NewOriginChecker([]string{"https://arena.example", "https://*.arena.example"})

	tests := []struct {
		name    string
		checker *OriginChecker
		origin  string
		want    bool
	}{
		{"no origin header", def, "", true},
		{"localhost with port", def, "http://localhost:5173", true},
		{"bare localhost", def, "http://localhost", true},
		{"loopback ip", def, "http://127.0.0.1:8080", true},
		{"foreign", def, "https://evil.example", false},
		{"exact", custom, "https://arena.example", true},
		{"subdomain", custom, "https://play.arena.example", true},
		{"lookalike", custom, "https://arena.example.evil", false},
		{"localhost not listed", custom, "http://localhost:3000", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.checker.Allowed(tt.origin))
		})
	}
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, isLoopback("127.0.0.1:6060"))
	assert.True(t, isLoopback("localhost:6060"))
	assert.True(t, isLoopback("[::1]:6060"))
	assert.False(t, isLoopback("0.0.0.0:6060"))
	assert.False(t, isLoopback(":6060"))
	assert.False(t, isLoopback("127.0.0.1"))
}
