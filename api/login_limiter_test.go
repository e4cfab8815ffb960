package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoginLimiter_BlocksAfterMax(t *testing.T) {
	l := newLoginLimiter(3, time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, _ := l.Check("10.0.0.1")
		assert.True(t, ok, "attempt %d", i+1)
		l.Record("10.0.0.1")
		now = now.Add(10 * time.Second)
	}

	ok, retryAfter := l.Check("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, 30*time.Second, retryAfter)

	ok, _ = l.Check("10.0.0.2")
	assert.True(t, ok)
}

func TestLoginLimiter_WindowSlides(t *testing.T) {
	l := newLoginLimiter(2, time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Record("10.0.0.1")
	l.Record("10.0.0.1")
	ok, _ := l.Check("10.0.0.1")
	assert.False(t, ok)

	now = now.Add(61 * time.Second)
	ok, _ = l.Check("10.0.0.1")
	assert.True(t, ok)
	assert.Empty(t, l.attempts)
}

func TestLoginLimiter_ResetAndSweep(t *testing.T) {
	l := newLoginLimiter(2, time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Record("10.0.0.1")
	l.Record("10.0.0.1")
	l.Reset("10.0.0.1")
	ok, _ := l.Check("10.0.0.1")
	assert.True(t, ok)

	l.Record("10.0.0.3")
	now = now.Add(2 * time.Minute)
	l.Record("10.0.0.4")
	assert.NotContains(t, l.attempts, "10.0.0.3")
	assert.Contains(t, l.attempts, "10.0.0.4")
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("POST", "/admin/login", nil)
	r.RemoteAddr = "203.0.113.7:52100"
	assert.Equal(t, "203.0.113.7", clientIP(r))

	r.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientIP(r))

	r.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", clientIP(r))
}
