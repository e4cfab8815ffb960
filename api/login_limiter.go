package api

import (
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	defaultLoginMaxAttempts = 5
	defaultLoginWindow      = 15 * time.Minute
)

// loginLimiter counts failed sign-ins per client IP over a sliding window
type loginLimiter struct {
	mu        sync.Mutex
	attempts  map[string][]time.Time
	max       int
	window    time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func newLoginLimiter(max int, window time.Duration) *loginLimiter {
	if max <= 0 {
		max = defaultLoginMaxAttempts
	}
	if window <= 0 {
		window = defaultLoginWindow
	}
	return &loginLimiter{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
		now:      time.Now,
	}
}

// Check reports whether ip may try to sign in. When it may not, the second value is how long
// until its oldest counted failure leaves the window.
func (l *loginLimiter) Check(ip string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.prune(ip, now)
	if len(kept) < l.max {
		return true, 0
	}
	return false, kept[0].Add(l.window).Sub(now)
}

// Record counts a failed sign-in for ip
func (l *loginLimiter) Record(ip string) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.attempts[ip] = append(l.attempts[ip], now)
	if now.Sub(l.lastSweep) > l.window {
		for other := range l.attempts {
			l.prune(other, now)
		}
		l.lastSweep = now
	}
}

// Reset forgets the failures of ip after a successful sign-in
func (l *loginLimiter) Reset(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, ip)
}

// prune drops the failures of ip that left the window. Callers hold mu.
func (l *loginLimiter) prune(ip string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	hits := l.attempts[ip]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.attempts, ip)
		return nil
	}
	l.attempts[ip] = kept
	return kept
}

// clientIP is the host part of the request's remote address
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
