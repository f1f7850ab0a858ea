// Package session: reconnection policy. Triggered only on unexpected
// transport loss, never after a manual disconnect. Each consecutive failure
// schedules exactly one delayed attempt with a linearly growing, capped
// delay; the attempt counter resets on every successful handshake
// acknowledgement. Once the ceiling is exceeded the session stops retrying
// and surfaces a terminal error that requires a manual reconnect.
package session

import (
	"fmt"
	"time"

	cwerrors "github.com/chatwire/chatwire/internal/errors"
	"github.com/chatwire/chatwire/internal/interfaces"
)

// reconnectPolicy tracks the failure attempt counter and the single pending
// reconnect timer. At most one timer may be pending at a time; scheduling a
// new one cancels any prior timer, which defends against overlapping failure
// reports for the same loss.
type reconnectPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	attempts    int
	timer       *time.Timer
}

// newReconnectPolicy creates a policy with the given ceiling and delays
func newReconnectPolicy(maxAttempts int, baseDelay, maxDelay time.Duration) *reconnectPolicy {
	return &reconnectPolicy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
	}
}

// next advances the attempt counter and returns the delay before the next
// attempt. Returns false once the ceiling is exceeded.
func (p *reconnectPolicy) next() (time.Duration, bool) {
	p.attempts++
	if p.attempts > p.maxAttempts {
		return 0, false
	}
	return backoffDelay(p.attempts, p.baseDelay, p.maxDelay), true
}

// reset clears the attempt counter after a successful handshake
func (p *reconnectPolicy) reset() {
	p.attempts = 0
}

// schedule arms the reconnect timer, cancelling any prior pending timer
func (p *reconnectPolicy) schedule(delay time.Duration, fn func()) {
	p.cancelTimer()
	p.timer = time.AfterFunc(delay, fn)
}

// cancel stops any pending timer without touching the attempt counter
func (p *reconnectPolicy) cancel() {
	p.cancelTimer()
}

func (p *reconnectPolicy) cancelTimer() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// backoffDelay computes the delay for the given attempt number:
// attempt * base, capped at max.
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	delay := time.Duration(attempt) * base
	if delay > max {
		delay = max
	}
	return delay
}

// scheduleReconnectLocked asks the policy for the next attempt. When the
// ceiling is exceeded the session enters a terminal error state; otherwise a
// single timer is armed, bound to the current connection generation. Caller
// holds the session mutex.
func (s *Session) scheduleReconnectLocked() {
	delay, ok := s.reconnect.next()
	if !ok {
		s.logger.Error("Reconnect ceiling exceeded, giving up",
			"attempts", s.reconnect.attempts-1)
		s.terminal = true
		s.setStateLocked(interfaces.StateError, cwerrors.ErrMaxReconnectAttempts.Error())
		return
	}

	gen := s.generation
	s.logger.LogReconnectScheduled(s.reconnect.attempts, delay)
	s.reconnect.schedule(delay, func() {
		s.attemptReconnect(gen)
	})
}

// attemptReconnect re-dials the backend for the epoch the timer was armed in.
// Fired timers from a superseded epoch drop themselves.
func (s *Session) attemptReconnect(gen uint64) {
	s.mutex.Lock()

	if gen != s.generation || s.manualStop || s.terminal || s.profile == nil {
		s.mutex.Unlock()
		return
	}

	target, err := buildURL(s.profile)
	if err != nil {
		// The profile validated at Connect time; treat a failure here as fatal.
		s.terminal = true
		s.setStateLocked(interfaces.StateError, fmt.Sprintf("reconnect aborted: %v", err))
		s.mutex.Unlock()
		return
	}

	s.setStateLocked(interfaces.StateConnecting, "")
	timeout := s.profile.ConnectTimeout
	attempt := s.reconnect.attempts
	s.mutex.Unlock()

	s.logger.Info("Reconnecting", "attempt", attempt, "url", target)
	s.dial(gen, target, timeout)
}
