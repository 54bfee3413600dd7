package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_BurstThenReject(t *testing.T) {
	rl := NewRateLimiter(1, 2, time.Minute, discardLogger())
	defer rl.Close()

	h := rl.Middleware(okHandler)
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_KeysByPrincipal(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute, discardLogger())
	defer rl.Close()
	h := rl.Middleware(okHandler)

	send := func(principal string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		req = req.WithContext(WithPrincipal(req.Context(), principal))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("ST1TEST"))
	assert.Equal(t, http.StatusOK, send("ST2TEST"))
	assert.Equal(t, http.StatusTooManyRequests, send("ST1TEST"))
}

func TestRateLimiter_Evict(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Hour, discardLogger())
	defer rl.Close()

	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.Allow("a")
	rl.Allow("b")
	assert.Equal(t, 2, rl.size())

	now = now.Add(2 * time.Hour)
	rl.Allow("b")
	rl.evict()
	assert.Equal(t, 1, rl.size())
}

func TestRateLimiter_CloseTwice(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute, discardLogger())
	rl.Close()
	assert.NotPanics(t, rl.Close)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"forwarded chain", "203.0.113.5, 10.0.0.1", "", "10.0.0.2:1", "203.0.113.5"},
		{"real ip", "", "198.51.100.7", "10.0.0.2:1", "198.51.100.7"},
		{"garbage forwarded", "not-an-ip", "", "10.0.0.2:1", "10.0.0.2"},
		{"remote only", "", "", "192.0.2.1:443", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
