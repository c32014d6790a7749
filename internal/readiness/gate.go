package readiness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nearhire/pkg/logger"
)

// Status is the process-wide readiness of the backing service.
type Status int

const (
	// StatusUnknown is the initial state; no probe has been attempted.
	StatusUnknown Status = iota
	// StatusVerifying means a probe is in flight or a backoff retry is
	// scheduled.
	StatusVerifying
	// StatusReady is sticky: once reached it is never re-verified within a
	// process lifetime.
	StatusReady
	// StatusFailed is terminal after the retry budget is exhausted; only an
	// explicit Reset clears it.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "Unknown"
	case StatusVerifying:
		return "Verifying"
	case StatusReady:
		return "Ready"
	case StatusFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Probe performs one lightweight write-then-confirm round-trip against the
// backing service.
type Probe interface {
	WriteConfirm(ctx context.Context) error
}

type Config struct {
	BaseDelay   time.Duration
	MaxAttempts int
}

func DefaultConfig() Config {
	return Config{BaseDelay: time.Second, MaxAttempts: 5}
}

// Gate verifies that the backing service is usable before real-time
// features activate. Only one probe is ever in flight; failed attempts are
// retried on a timer with exponential backoff, so callers are never blocked
// waiting out a delay.
type Gate struct {
	cfg   Config
	probe Probe
	log   *logger.Logger

	// onAttempt is an optional observability hook invoked per probe.
	onAttempt func(attempt int)

	mu       sync.Mutex
	status   Status
	attempts int
	inFlight bool
	epoch    int // bumped by Reset so stale probe results are discarded
	timer    *time.Timer
}

func NewGate(probe Probe, cfg Config, log *logger.Logger) *Gate {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultConfig().BaseDelay
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Gate{cfg: cfg, probe: probe, log: log}
}

// SetAttemptHook registers a per-attempt observability callback. Must be
// called before Verify.
func (g *Gate) SetAttemptHook(fn func(attempt int)) {
	g.onAttempt = fn
}

func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

func (g *Gate) Ready() bool {
	return g.Status() == StatusReady
}

func (g *Gate) Attempts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attempts
}

// Verify drives the gate. Ready and Failed are returned immediately; a
// caller arriving while Verifying gets the current status without starting
// another probe; an absent probe target reports not-ready without consuming
// a retry attempt. Only from Unknown does Verify start a probe.
func (g *Gate) Verify(ctx context.Context) Status {
	g.mu.Lock()
	st := g.status
	if st != StatusUnknown || g.probe == nil {
		g.mu.Unlock()
		return st
	}
	epoch := g.epoch
	g.mu.Unlock()
	return g.runProbe(ctx, epoch)
}

func (g *Gate) runProbe(ctx context.Context, epoch int) Status {
	g.mu.Lock()
	if g.epoch != epoch || g.status == StatusReady || g.status == StatusFailed || g.inFlight {
		st := g.status
		g.mu.Unlock()
		return st
	}
	g.inFlight = true
	g.attempts++
	n := g.attempts
	g.status = StatusVerifying
	g.mu.Unlock()

	if g.onAttempt != nil {
		g.onAttempt(n)
	}
	err := g.probe.WriteConfirm(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.epoch != epoch {
		// Reset raced with the probe; the result belongs to a previous life
		// of the gate.
		g.inFlight = false
		return g.status
	}
	g.inFlight = false

	if err == nil {
		g.status = StatusReady
		g.stopTimerLocked()
		g.log.Infof("backing service ready after %d attempt(s)", n)
		return StatusReady
	}

	g.log.Warnf("readiness probe attempt %d failed: %v", n, err)
	if n >= g.cfg.MaxAttempts {
		g.status = StatusFailed
		g.stopTimerLocked()
		g.log.Errorf("readiness verification exhausted after %d attempts", n)
		return StatusFailed
	}

	delay := backoffDelay(g.cfg.BaseDelay, n)
	g.timer = time.AfterFunc(delay, func() {
		g.runProbe(context.Background(), epoch)
	})
	return StatusVerifying
}

// Reset clears a Failed (or still-verifying) gate back to Unknown with a
// fresh attempt budget, for a user-driven manual retry. Ready is sticky and
// is not reset.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status == StatusReady {
		return
	}
	g.stopTimerLocked()
	g.epoch++
	g.attempts = 0
	g.inFlight = false
	g.status = StatusUnknown
}

func (g *Gate) stopTimerLocked() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

// backoffDelay is base * 2^(attempt-1).
func backoffDelay(base time.Duration, attempt int) time.Duration {
	return base << uint(attempt-1)
}
