package auth

import (
	"fmt"
	"sync"
	"time"
)

// Throttle policy defaults
const (
	// MaxFailedAttempts is the number of consecutive failures before a
	// client key is blocked.
	MaxFailedAttempts = 5
	// CooldownWindow is how long a blocked client key stays blocked,
	// counted from the failure that crossed the threshold.
	CooldownWindow = 15 * time.Minute
)

// ThrottledError is returned when a client key has exceeded the failure
// threshold and must wait before retrying.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many failed login attempts, retry after %s", e.RetryAfter.Round(time.Second))
}

// attemptRecord tracks consecutive failures for one client key. Records are
// created lazily on first failure and live for the process lifetime at most.
type attemptRecord struct {
	failures     int
	blockedUntil time.Time
}

// LoginThrottle counts consecutive authentication failures per client key
// and rejects further attempts once a threshold is crossed, until a fixed
// cool-down elapses. The cool-down is checked lazily at the next attempt,
// not by a background timer.
//
// This is best-effort, single-process, in-memory protection. Counters are
// not shared across processes or persisted across restarts, so it is not a
// security boundary against distributed attacks.
type LoginThrottle struct {
	mu       sync.Mutex
	attempts map[string]*attemptRecord

	maxFailures int
	cooldown    time.Duration
	now         func() time.Time
}

// NewLoginThrottle creates a LoginThrottle with the given policy. Pass the
// package defaults MaxFailedAttempts and CooldownWindow for the standard
// 5-failures / 15-minute policy.
func NewLoginThrottle(maxFailures int, cooldown time.Duration) *LoginThrottle {
	return &LoginThrottle{
		attempts:    make(map[string]*attemptRecord),
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// CheckAllowed reports whether the client key may attempt to authenticate.
// Returns nil when allowed, or a *ThrottledError carrying the remaining
// cool-down when blocked. A record whose cool-down has elapsed is reset to
// zero here.
func (t *LoginThrottle) CheckAllowed(clientKey string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.attempts[clientKey]
	if !ok || rec.failures < t.maxFailures {
		return nil
	}

	now := t.now()
	if now.Before(rec.blockedUntil) {
		return &ThrottledError{RetryAfter: rec.blockedUntil.Sub(now)}
	}

	// Cool-down elapsed: reset lazily.
	delete(t.attempts, clientKey)
	return nil
}

// RecordFailure increments the failure counter for the client key. The
// failure that crosses the threshold starts the cool-down window. Updates
// are atomic per key, so concurrent failures cannot race past the threshold.
func (t *LoginThrottle) RecordFailure(clientKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.attempts[clientKey]
	if !ok {
		rec = &attemptRecord{}
		t.attempts[clientKey] = rec
	}

	rec.failures++
	if rec.failures >= t.maxFailures && rec.blockedUntil.IsZero() {
		rec.blockedUntil = t.now().Add(t.cooldown)
	}
}

// RecordSuccess resets the failure counter for the client key
func (t *LoginThrottle) RecordSuccess(clientKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.attempts, clientKey)
}

// Failures returns the current consecutive failure count for a client key
func (t *LoginThrottle) Failures(clientKey string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.attempts[clientKey]
	if !ok {
		return 0
	}
	return rec.failures
}
