package directory

import (
	"sync"
	"time"
)

// loginLimiter tracks failed authentication attempts per email within
// a sliding window. A successful login clears the counter.
type loginLimiter struct {
	mu          sync.Mutex
	maxAttempts int
	window      time.Duration
	attempts    map[string][]time.Time
	now         func() time.Time
}

func newLoginLimiter(maxAttempts int, window time.Duration) *loginLimiter {
	return &loginLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		attempts:    make(map[string][]time.Time),
		now:         time.Now,
	}
}

// allow reports whether another attempt for this email is permitted.
func (l *loginLimiter) allow(email string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.recent(email)) < l.maxAttempts
}

// fail records a failed attempt.
func (l *loginLimiter) fail(email string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts[email] = append(l.recent(email), l.now())
}

// clear forgets all attempts for this email.
func (l *loginLimiter) clear(email string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, email)
}

// recent prunes entries older than the window. Caller holds the lock.
func (l *loginLimiter) recent(email string) []time.Time {
	cutoff := l.now().Add(-l.window)
	var kept []time.Time
	for _, t := range l.attempts[email] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if kept == nil {
		delete(l.attempts, email)
	} else {
		l.attempts[email] = kept
	}
	return kept
}
