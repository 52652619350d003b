package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/mrlokans/library/internal/apperr"
)

var errTooManyAttempts = apperr.New(apperr.ErrRateLimited, "Too many login attempts, please try again later")

// LockoutError reports that a client must wait before trying to log in again.
// It matches apperr.ErrRateLimited.
type LockoutError struct {
	RetryAfter time.Duration
}

func (e *LockoutError) Error() string { return errTooManyAttempts.Error() }

func (e *LockoutError) Unwrap() error { return errTooManyAttempts }

// ThrottleConfig bounds failed logins per client address and email.
type ThrottleConfig struct {
	MaxFailures   int           // default: 5
	Window        time.Duration // default: 15m
	Lockout       time.Duration // default: 30m
	SweepInterval time.Duration // default: 5m
}

// LoginThrottle counts failed logins per address and email. Once MaxFailures
// land inside one Window the pair is locked out for Lockout.
//
// This guards the endpoint. Account locking in Service guards the account
// regardless of where attempts come from.
type LoginThrottle struct {
	cfg ThrottleConfig
	now func() time.Time

	mu      sync.Mutex
	windows map[string]*failureWindow

	stop     chan struct{}
	stopOnce sync.Once
}

type failureWindow struct {
	failures    int
	start       time.Time
	lockedUntil time.Time
}

// NewLoginThrottle creates a throttle and starts sweeping expired windows.
// Call Stop to end the sweep.
func NewLoginThrottle(cfg ThrottleConfig) *LoginThrottle {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.Lockout <= 0 {
		cfg.Lockout = 30 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Minute
	}

	t := &LoginThrottle{
		cfg:     cfg,
		now:     time.Now,
		windows: make(map[string]*failureWindow),
		stop:    make(chan struct{}),
	}
	go t.sweepLoop()
	return t
}

func (t *LoginThrottle) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

func throttleKey(ip, email string) string {
	return ip + "|" + strings.ToLower(strings.TrimSpace(email))
}

// Check returns a *LockoutError while the pair is locked out.
func (t *LoginThrottle) Check(ip, email string) error {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.windows[throttleKey(ip, email)]
	if !ok || !now.Before(w.lockedUntil) {
		return nil
	}
	return &LockoutError{RetryAfter: w.lockedUntil.Sub(now)}
}

// Fail counts a failed login. It returns a *LockoutError when this failure
// starts a lockout.
func (t *LoginThrottle) Fail(ip, email string) error {
	now := t.now()
	key := throttleKey(ip, email)

	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.windows[key]
	if !ok || w.expired(now, t.cfg.Window) {
		w = &failureWindow{start: now}
		t.windows[key] = w
	}

	w.failures++
	if w.failures < t.cfg.MaxFailures {
		return nil
	}
	w.lockedUntil = now.Add(t.cfg.Lockout)
	return &LockoutError{RetryAfter: t.cfg.Lockout}
}

// Reset forgets the failures of the pair after a successful login.
func (t *LoginThrottle) Reset(ip, email string) {
	t.mu.Lock()
	delete(t.windows, throttleKey(ip, email))
	t.mu.Unlock()
}

// expired reports whether a new failure should start a fresh window: the
// counting window has passed, or a lockout has run out.
func (w *failureWindow) expired(now time.Time, window time.Duration) bool {
	if !w.lockedUntil.IsZero() {
		return !now.Before(w.lockedUntil)
	}
	return now.Sub(w.start) > window
}

func (t *LoginThrottle) sweepLoop() {
	ticker := time.NewTicker(t.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.sweep()
		case <-t.stop:
			return
		}
	}
}

func (t *LoginThrottle) sweep() {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	for key, w := range t.windows {
		if w.expired(now, t.cfg.Window) {
			delete(t.windows, key)
		}
	}
}
