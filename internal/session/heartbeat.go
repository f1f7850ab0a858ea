// Package session: heartbeat scheduler. While the session is ready, a ping
// command is emitted on a fixed interval to keep the connection alive. The
// scheduler starts only after a successful handshake acknowledgement, stops
// on every disconnect or error, and is restarted fresh per connection, so two
// tickers can never run concurrently for the same session.
package session

import (
	"time"

	"github.com/chatwire/chatwire/internal/protocol"
)

// heartbeat represents one running keepalive loop. The stop channel ends the
// loop; the generation guard in sendPing catches any tick that slips through
// after a teardown.
type heartbeat struct {
	stop chan struct{}
}

// startHeartbeatLocked replaces any running heartbeat with a fresh one bound
// to the current connection generation. Caller holds the session mutex.
func (s *Session) startHeartbeatLocked(gen uint64) {
	s.stopHeartbeatLocked()

	hb := &heartbeat{stop: make(chan struct{})}
	s.heartbeat = hb
	go s.runHeartbeat(gen, hb, s.profile.HeartbeatInterval)
}

// stopHeartbeatLocked cancels the running heartbeat, if any. Caller holds the
// session mutex.
func (s *Session) stopHeartbeatLocked() {
	if s.heartbeat != nil {
		close(s.heartbeat.stop)
		s.heartbeat = nil
	}
}

// runHeartbeat fires pings on a repeating ticker until stopped
func (s *Session) runHeartbeat(gen uint64, hb *heartbeat, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-hb.stop:
			return
		case <-ticker.C:
			s.sendPing(gen)
		}
	}
}

// sendPing writes one keepalive command. The send is best-effort: a write
// failure gets no special handling here because ordinary transport-failure
// handling in the receive loop covers a broken connection.
func (s *Session) sendPing(gen uint64) {
	s.mutex.Lock()
	if gen != s.generation || !s.state.Ready() || s.transport == nil {
		s.mutex.Unlock()
		return
	}
	tr := s.transport
	s.mutex.Unlock()

	data, err := protocol.EncodeCommand(protocol.NewPing())
	if err != nil {
		s.logger.Error("Failed to encode ping command", "error", err.Error())
		return
	}

	if err := tr.WriteFrame(data); err != nil {
		s.logger.Debug("Heartbeat write failed", "error", err.Error())
	}
}
