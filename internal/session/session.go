// Package session implements the connection/session state machine: it owns the
// socket lifecycle (connect, handshake, authenticate, ready), drives the
// heartbeat scheduler and reconnection policy, routes inbound envelopes to
// their handlers, and keeps the message reconciliation store consistent under
// network flakiness, reordering, and duplicate delivery.
//
// All session state is guarded by a single mutex, and every asynchronous
// callback (dial completion, receive loop, heartbeat tick, reconnect timer)
// carries the connection generation it belongs to. A callback whose generation
// no longer matches the session's is discarded unconditionally, so late events
// from a superseded transport can never mutate current state.
package session

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	cwerrors "github.com/chatwire/chatwire/internal/errors"
	"github.com/chatwire/chatwire/internal/interfaces"
	"github.com/chatwire/chatwire/internal/logging"
	"github.com/chatwire/chatwire/internal/protocol"
	"github.com/chatwire/chatwire/internal/reconcile"
)

// Default tuning values, applied when the profile leaves them unset
const (
	DefaultReconnectMaxAttempts = 10
	DefaultReconnectBaseDelay   = 2 * time.Second
	DefaultReconnectMaxDelay    = 30 * time.Second
	DefaultHeartbeatInterval    = 25 * time.Second
	DefaultConnectTimeout       = 30 * time.Second

	// eventBufferSize bounds the session event channel. The UI drains it
	// continuously; a full buffer indicates a stalled consumer and further
	// events are dropped with a warning rather than deadlocking the core.
	eventBufferSize = 256
)

// Session implements interfaces.ChatSession. A single Session instance is
// constructed at application start and reused across connects; every
// disconnect resets the connection-scoped attributes.
type Session struct {
	logger *logging.Logger
	dialer interfaces.Dialer
	store  *reconcile.Store

	// clientID identifies this process across reconnects of one run
	clientID string

	mutex         sync.Mutex
	state         interfaces.ConnectionState
	stateDetail   string
	connectionID  string
	authenticated bool
	terminal      bool
	manualStop    bool
	profile       *interfaces.Profile
	transport     interfaces.Transport

	// generation increments on every connect and teardown; stale callbacks
	// compare against it and drop themselves
	generation uint64

	heartbeat *heartbeat
	reconnect *reconnectPolicy

	events chan interfaces.Event
}

// NewSession creates a session with injected transport dialer and logger.
// The reconciliation store is owned by the session; external collaborators
// observe it only through events.
func NewSession(dialer interfaces.Dialer, logger *logging.Logger) (*Session, error) {
	if dialer == nil {
		return nil, fmt.Errorf("dialer cannot be nil")
	}
	if logger == nil {
		logger = logging.GetSessionLogger()
	}

	return &Session{
		logger:    logger,
		dialer:    dialer,
		store:     reconcile.NewStore(),
		clientID:  uuid.NewString(),
		state:     interfaces.StateDisconnected,
		reconnect: newReconnectPolicy(DefaultReconnectMaxAttempts, DefaultReconnectBaseDelay, DefaultReconnectMaxDelay),
		events:    make(chan interfaces.Event, eventBufferSize),
	}, nil
}

// Connect validates the profile's target address and begins a connection
// attempt. Idempotent: an existing session is torn down first. On a malformed
// address the session transitions directly to the error state without opening
// a socket and ErrInvalidAddress is returned.
func (s *Session) Connect(profile *interfaces.Profile) error {
	if profile == nil {
		return fmt.Errorf("profile cannot be nil")
	}

	s.mutex.Lock()

	// Tear down any previous connection before starting over
	s.teardownLocked()
	s.manualStop = false
	s.terminal = false
	s.profile = applyProfileDefaults(profile)
	s.reconnect = newReconnectPolicy(
		s.profile.ReconnectMaxAttempts,
		s.profile.ReconnectBaseDelay,
		s.profile.ReconnectMaxDelay,
	)

	target, err := buildURL(s.profile)
	if err != nil {
		s.terminal = true
		s.setStateLocked(interfaces.StateError, err.Error())
		s.mutex.Unlock()
		return err
	}

	gen := s.generation
	s.setStateLocked(interfaces.StateConnecting, "")
	timeout := s.profile.ConnectTimeout
	s.mutex.Unlock()

	s.logger.LogConnectionAttempt(target, profile.Auth.Type)
	go s.dial(gen, target, timeout)
	return nil
}

// Disconnect closes the session, suppresses reconnection, and resets all
// connection-scoped state. Safe to call when already disconnected.
func (s *Session) Disconnect() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.manualStop = true
	s.terminal = false
	s.teardownLocked()
	s.connectionID = ""
	s.authenticated = false
	s.setStateLocked(interfaces.StateDisconnected, "")
}

// SendMessage registers a pending reconciliation entry for a locally generated
// message id and writes the chat message to the backend. Rejected
// synchronously with ErrNotReady when the session cannot send.
func (s *Session) SendMessage(conversationID, conversationTitle, text string) (string, error) {
	s.mutex.Lock()
	if !s.state.Ready() || s.transport == nil {
		s.mutex.Unlock()
		return "", cwerrors.ErrNotReady
	}
	tr := s.transport
	user := s.profile.User
	s.mutex.Unlock()

	messageID := uuid.NewString()
	s.store.RegisterPending(messageID, conversationID)

	now := time.Now()
	s.emit(interfaces.Event{
		Kind: interfaces.EventMessageAppended,
		Message: &interfaces.ChatMessage{
			ID:             messageID,
			ConversationID: conversationID,
			SenderID:       user.ID,
			SenderName:     user.Name,
			Text:           text,
			Timestamp:      now,
			Origin:         interfaces.OriginUser,
			Status:         interfaces.StatusSending,
		},
	})

	cmd := protocol.NewMessage(messageID, conversationID, conversationTitle, text, user)
	data, err := protocol.EncodeCommand(cmd)
	if err != nil {
		s.resolveLocalFailure(messageID, err.Error())
		return messageID, fmt.Errorf("%w: %v", cwerrors.ErrEncodingFailure, err)
	}

	if err := tr.WriteFrame(data); err != nil {
		// The frame never left the device; resolve the entry immediately.
		// The connection-level consequences surface through the receive loop.
		s.resolveLocalFailure(messageID, err.Error())
		return messageID, cwerrors.NewTransportError("send", err)
	}

	return messageID, nil
}

// State returns the current connection state
func (s *Session) State() interfaces.ConnectionState {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

// StateDetail returns the human-readable detail for the current state, such
// as the error description while in the error state.
func (s *Session) StateDetail() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.stateDetail
}

// ConnectionID returns the server-assigned connection identifier, empty when
// no handshake has completed on the current connection.
func (s *Session) ConnectionID() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.connectionID
}

// Events returns the ordered session event channel consumed by the UI
func (s *Session) Events() <-chan interfaces.Event {
	return s.events
}

// ClearPending drops all pending reconciliation entries
func (s *Session) ClearPending() {
	s.store.Clear()
}

// PendingCount reports the number of unresolved outbound messages
func (s *Session) PendingCount() int {
	return s.store.PendingCount()
}

// dial opens the transport off the caller's goroutine and hands the result
// back to the session under the generation guard.
func (s *Session) dial(gen uint64, target string, timeout time.Duration) {
	tr, err := s.dialer.Dial(context.Background(), target, timeout)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if gen != s.generation {
		// A newer connect or disconnect superseded this attempt
		if err == nil {
			_ = tr.Close()
		}
		return
	}

	if err != nil {
		s.logger.LogConnectionFailure(target, err)
		s.handleTransportFailureLocked(fmt.Sprintf("connect failed: %v", err))
		return
	}

	s.transport = tr
	s.setStateLocked(interfaces.StateConnected, "")
	go s.readLoop(gen, tr)
}

// readLoop is the continuously re-arming receive loop for one transport
// instance. Envelopes are handled strictly in arrival order. Decode failures
// on individual frames are swallowed; only a connection-level read error ends
// the loop.
func (s *Session) readLoop(gen uint64, tr interfaces.Transport) {
	for {
		data, err := tr.ReadFrame()
		if err != nil {
			s.mutex.Lock()
			if gen == s.generation && !s.manualStop {
				s.handleTransportFailureLocked(fmt.Sprintf("connection lost: %v", err))
			}
			s.mutex.Unlock()
			return
		}

		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			// Unknown types and malformed frames are dropped; the loop
			// continues with the next frame.
			s.logger.LogFrameDropped(err.Error())
			continue
		}

		s.handleEnvelope(gen, env)
	}
}

// handleEnvelope dispatches one inbound envelope by its type discriminator
func (s *Session) handleEnvelope(gen uint64, env *protocol.Envelope) {
	s.mutex.Lock()

	if gen != s.generation {
		s.mutex.Unlock()
		return
	}

	switch env.Type {
	case protocol.TypeHelloAck:
		s.handleHelloAckLocked(gen, env)
		s.mutex.Unlock()

	case protocol.TypeHelloRequired:
		s.handleHelloRequiredLocked(env)
		s.mutex.Unlock()

	case protocol.TypeDispatchAck:
		s.mutex.Unlock()
		if res, ok := s.store.OnDispatchAck(env.MessageID, env.Status, env.Reason); ok {
			s.emitResolution(res)
		}

	case protocol.TypeReply:
		s.mutex.Unlock()
		if res, ok := s.store.OnReply(env.MessageID); ok {
			s.emitResolution(res)
		}
		s.emitInbound(env, interfaces.OriginBot)

	case protocol.TypeProactive:
		s.mutex.Unlock()
		s.emitInbound(env, interfaces.OriginProactive)

	case protocol.TypePong:
		s.mutex.Unlock()
		s.logger.Debug("Pong received")

	case protocol.TypeError:
		s.handleErrorEnvelopeLocked(env)
		s.mutex.Unlock()

	default:
		s.mutex.Unlock()
	}
}

// handleHelloAckLocked completes the handshake: the server assigned a
// connection id, the reconnect counter resets, and the heartbeat starts.
func (s *Session) handleHelloAckLocked(gen uint64, env *protocol.Envelope) {
	s.connectionID = env.ConnectionID
	s.authenticated = env.Authenticated
	s.reconnect.reset()

	if env.Authenticated {
		s.setStateLocked(interfaces.StateAuthenticated, "")
	} else {
		s.setStateLocked(interfaces.StateConnected, "")
	}

	s.startHeartbeatLocked(gen)
	s.logger.LogConnectionEstablished(env.ConnectionID, env.Authenticated)
}

// handleHelloRequiredLocked answers an authentication challenge by sending a
// hello command with the configured credential and identity fields. The send
// is fire-and-forget: a write failure is not separately surfaced, since a
// broken transport will report through the receive loop anyway.
func (s *Session) handleHelloRequiredLocked(env *protocol.Envelope) {
	s.connectionID = env.ConnectionID
	s.setStateLocked(interfaces.StateAuthenticating, "")

	hello := protocol.NewHello(s.profile, s.clientID, nil)
	tr := s.transport

	go func() {
		data, err := protocol.EncodeCommand(hello)
		if err != nil {
			s.logger.Error("Failed to encode hello command", "error", err.Error())
			return
		}
		if err := tr.WriteFrame(data); err != nil {
			s.logger.Warn("Failed to send hello command", "error", err.Error())
		}
	}()
}

// handleErrorEnvelopeLocked processes a server error frame. An authentication
// failure is terminal; any other error stays at message level and is surfaced
// as an inline error entry without touching connection state.
func (s *Session) handleErrorEnvelopeLocked(env *protocol.Envelope) {
	if env.IsAuthFailure() {
		s.logger.Error("Authentication rejected by server", "code", env.Code)
		s.terminal = true
		s.teardownLocked()
		s.connectionID = ""
		s.setStateLocked(interfaces.StateError, cwerrors.ErrAuthenticationFailed.Error())
		return
	}

	text := env.Message
	if text == "" {
		text = fmt.Sprintf("server error (%s)", env.Code)
	}
	s.emit(interfaces.Event{
		Kind: interfaces.EventMessageAppended,
		Message: &interfaces.ChatMessage{
			ID:        uuid.NewString(),
			Text:      text,
			Timestamp: time.Now(),
			Origin:    interfaces.OriginError,
		},
	})
}

// handleTransportFailureLocked reacts to an unexpected transport loss: the
// state moves to error with a description and the reconnection policy decides
// whether another attempt is scheduled. A session already in a terminal error
// ignores further failure reports.
func (s *Session) handleTransportFailureLocked(description string) {
	if s.terminal || s.manualStop {
		return
	}

	s.teardownLocked()
	s.connectionID = ""
	s.authenticated = false
	s.setStateLocked(interfaces.StateError, description)
	s.scheduleReconnectLocked()
}

// resolveLocalFailure applies a synchronous send failure to the store and
// surfaces the per-message status change.
func (s *Session) resolveLocalFailure(messageID, reason string) {
	if res, ok := s.store.OnLocalSendFailure(messageID, reason); ok {
		s.emitResolution(res)
	}
}

// teardownLocked invalidates the current connection epoch: the generation
// advances so in-flight callbacks drop themselves, the heartbeat and any
// pending reconnect timer are cancelled, and the transport is closed.
func (s *Session) teardownLocked() {
	s.generation++
	s.stopHeartbeatLocked()
	s.reconnect.cancel()
	if s.transport != nil {
		_ = s.transport.Close()
		s.transport = nil
	}
}

// setStateLocked records a state transition and surfaces it as an event
func (s *Session) setStateLocked(state interfaces.ConnectionState, detail string) {
	if s.state == state && s.stateDetail == detail {
		return
	}
	s.logger.Debug("Session state transition",
		"from", s.state.String(),
		"to", state.String(),
		"detail", detail)
	s.state = state
	s.stateDetail = detail
	s.emit(interfaces.Event{
		Kind:   interfaces.EventConnectionState,
		State:  state,
		Detail: detail,
	})
}

// emit places an event on the session channel without ever blocking the core.
// The UI drains the channel continuously; if it has stalled, the event is
// dropped and logged.
func (s *Session) emit(ev interfaces.Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("Event channel full, dropping event", "kind", int(ev.Kind))
	}
}

// emitResolution surfaces a reconciliation status change
func (s *Session) emitResolution(res *reconcile.Resolution) {
	s.emit(interfaces.Event{
		Kind:      interfaces.EventMessageStatus,
		MessageID: res.MessageID,
		Status:    res.Status,
		Reason:    res.Reason,
	})
}

// emitInbound surfaces a reply or proactive envelope as a new chat entry
func (s *Session) emitInbound(env *protocol.Envelope, origin interfaces.MessageOrigin) {
	s.emit(interfaces.Event{
		Kind: interfaces.EventMessageAppended,
		Message: &interfaces.ChatMessage{
			ID:             uuid.NewString(),
			ConversationID: env.ConversationID,
			Text:           env.Text,
			Timestamp:      time.Now(),
			UseMarkdown:    env.UseMarkdown,
			Origin:         origin,
			SenderName:     env.Title,
		},
	})
}

// buildURL validates the profile's connection target and assembles the
// websocket URL. A malformed target is fatal to the connect attempt.
func buildURL(profile *interfaces.Profile) (string, error) {
	host := strings.TrimSpace(profile.Host)
	if host == "" {
		return "", fmt.Errorf("%w: host cannot be empty", cwerrors.ErrInvalidAddress)
	}
	if strings.ContainsAny(host, " /?#") {
		return "", fmt.Errorf("%w: host %q contains invalid characters", cwerrors.ErrInvalidAddress, host)
	}
	if profile.Port <= 0 || profile.Port > 65535 {
		return "", fmt.Errorf("%w: port %d out of range", cwerrors.ErrInvalidAddress, profile.Port)
	}

	scheme := "ws"
	if profile.TLS {
		scheme = "wss"
	}

	path := profile.Path
	if path == "" {
		path = "/ws"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	target := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, fmt.Sprintf("%d", profile.Port)),
		Path:   path,
	}

	if _, err := url.Parse(target.String()); err != nil {
		return "", fmt.Errorf("%w: %v", cwerrors.ErrInvalidAddress, err)
	}
	return target.String(), nil
}

// applyProfileDefaults fills unset tuning knobs with the package defaults,
// leaving the caller's profile untouched.
func applyProfileDefaults(profile *interfaces.Profile) *interfaces.Profile {
	p := *profile
	if p.ReconnectMaxAttempts <= 0 {
		p.ReconnectMaxAttempts = DefaultReconnectMaxAttempts
	}
	if p.ReconnectBaseDelay <= 0 {
		p.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if p.ReconnectMaxDelay <= 0 {
		p.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if p.HeartbeatInterval <= 0 {
		p.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if p.ConnectTimeout <= 0 {
		p.ConnectTimeout = DefaultConnectTimeout
	}
	return &p
}
