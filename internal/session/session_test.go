package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cwerrors "github.com/chatwire/chatwire/internal/errors"
	"github.com/chatwire/chatwire/internal/interfaces"
	"github.com/chatwire/chatwire/internal/logging"
)

// fakeTransport is an in-memory Transport. Frames pushed into incoming are
// returned by ReadFrame; Close unblocks ReadFrame with an error, which is how
// an unexpected connection loss is simulated.
type fakeTransport struct {
	mu        sync.Mutex
	sent      [][]byte
	writeErr  error
	incoming  chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		incoming: make(chan []byte, 16),
		closed:   make(chan struct{}),
	}
}

func (t *fakeTransport) WriteFrame(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writeErr != nil {
		return t.writeErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	t.sent = append(t.sent, cp)
	return nil
}

func (t *fakeTransport) ReadFrame() ([]byte, error) {
	select {
	case data := <-t.incoming:
		return data, nil
	case <-t.closed:
		return nil, errors.New("connection closed")
	}
}

func (t *fakeTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

func (t *fakeTransport) push(frame string) {
	t.incoming <- []byte(frame)
}

func (t *fakeTransport) setWriteErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeErr = err
}

// sentContaining reports whether any written frame contains the substring
func (t *fakeTransport) sentContaining(substr string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, frame := range t.sent {
		if strings.Contains(string(frame), substr) {
			return true
		}
	}
	return false
}

// fakeDialer hands out queued transports in order and refuses dials once the
// queue is exhausted.
type fakeDialer struct {
	mu         sync.Mutex
	transports []*fakeTransport
	dials      int
}

func newFakeDialer(transports ...*fakeTransport) *fakeDialer {
	return &fakeDialer{transports: transports}
}

func (d *fakeDialer) Dial(ctx context.Context, url string, timeout time.Duration) (interfaces.Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if len(d.transports) == 0 {
		return nil, errors.New("dial refused")
	}
	tr := d.transports[0]
	d.transports = d.transports[1:]
	return tr, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger(logging.Config{
		Level:  logging.ErrorLevel,
		Format: "text",
		Output: "stderr",
	})
	require.NoError(t, err)
	return logger
}

func testProfile() *interfaces.Profile {
	return &interfaces.Profile{
		Name:                 "test",
		Host:                 "localhost",
		Port:                 9000,
		Path:                 "/ws",
		Auth:                 interfaces.AuthConfig{Type: "none"},
		User:                 interfaces.UserIdentity{ID: "u-1", Name: "Ada"},
		ReconnectMaxAttempts: 3,
		ReconnectBaseDelay:   5 * time.Millisecond,
		ReconnectMaxDelay:    20 * time.Millisecond,
		HeartbeatInterval:    time.Hour,
		ConnectTimeout:       time.Second,
	}
}

func waitForState(t *testing.T, s *Session, want interfaces.ConnectionState) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.State() == want
	}, 2*time.Second, 2*time.Millisecond, "expected state %s, still %s", want, s.State())
}

// awaitEvent drains the session event channel until an event matches
func awaitEvent(t *testing.T, s *Session, match func(interfaces.Event) bool) interfaces.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-s.Events():
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("timed out waiting for session event")
			return interfaces.Event{}
		}
	}
}

func TestConnectNilProfile(t *testing.T) {
	s, err := NewSession(newFakeDialer(), testLogger(t))
	require.NoError(t, err)

	assert.Error(t, s.Connect(nil))
}

func TestConnectInvalidAddress(t *testing.T) {
	dialer := newFakeDialer(newFakeTransport())
	s, err := NewSession(dialer, testLogger(t))
	require.NoError(t, err)

	profile := testProfile()
	profile.Host = ""

	err = s.Connect(profile)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cwerrors.ErrInvalidAddress))
	assert.Equal(t, interfaces.StateError, s.State())

	// No socket may be opened for a malformed address
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, dialer.dialCount())
}

func TestHandshakeAuthenticated(t *testing.T) {
	tr := newFakeTransport()
	s, err := NewSession(newFakeDialer(tr), testLogger(t))
	require.NoError(t, err)

	require.NoError(t, s.Connect(testProfile()))
	waitForState(t, s, interfaces.StateConnected)

	tr.push(`{"type":"hello_ack","connectionId":"conn-1","authenticated":true}`)
	waitForState(t, s, interfaces.StateAuthenticated)
	assert.Equal(t, "conn-1", s.ConnectionID())
}

func TestHelloRequiredChallenge(t *testing.T) {
	tr := newFakeTransport()
	s, err := NewSession(newFakeDialer(tr), testLogger(t))
	require.NoError(t, err)

	profile := testProfile()
	profile.Auth = interfaces.AuthConfig{Type: "bearer", Token: "sekrit-token"}
	require.NoError(t, s.Connect(profile))
	waitForState(t, s, interfaces.StateConnected)

	tr.push(`{"type":"hello_required","connectionId":"conn-2"}`)
	waitForState(t, s, interfaces.StateAuthenticating)

	// The session must answer with a hello command carrying the token
	require.Eventually(t, func() bool {
		return tr.sentContaining(`"kind":"hello"`)
	}, 2*time.Second, 2*time.Millisecond)
	assert.True(t, tr.sentContaining("sekrit-token"))

	tr.push(`{"type":"hello_ack","connectionId":"conn-2","authenticated":true}`)
	waitForState(t, s, interfaces.StateAuthenticated)
}

func TestSendMessageNotReady(t *testing.T) {
	s, err := NewSession(newFakeDialer(), testLogger(t))
	require.NoError(t, err)

	_, err = s.SendMessage("conv-1", "General", "hello")
	assert.True(t, errors.Is(err, cwerrors.ErrNotReady))
}

func TestSendMessageLifecycle(t *testing.T) {
	tr := newFakeTransport()
	s, err := NewSession(newFakeDialer(tr), testLogger(t))
	require.NoError(t, err)

	require.NoError(t, s.Connect(testProfile()))
	waitForState(t, s, interfaces.StateConnected)
	tr.push(`{"type":"hello_ack","connectionId":"conn-1","authenticated":true}`)
	waitForState(t, s, interfaces.StateAuthenticated)

	id, err := s.SendMessage("conv-1", "General", "hello there")
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, 1, s.PendingCount())
	assert.True(t, tr.sentContaining(`"kind":"message"`))
	assert.True(t, tr.sentContaining(id))

	// The locally authored message surfaces immediately in Sending status
	ev := awaitEvent(t, s, func(ev interfaces.Event) bool {
		return ev.Kind == interfaces.EventMessageAppended && ev.Message.Origin == interfaces.OriginUser
	})
	assert.Equal(t, id, ev.Message.ID)
	assert.Equal(t, interfaces.StatusSending, ev.Message.Status)

	tr.push(fmt.Sprintf(`{"type":"dispatch_ack","messageId":%q,"status":"dispatched"}`, id))
	ev = awaitEvent(t, s, func(ev interfaces.Event) bool {
		return ev.Kind == interfaces.EventMessageStatus && ev.MessageID == id
	})
	assert.Equal(t, interfaces.StatusWaitingReply, ev.Status)

	tr.push(fmt.Sprintf(`{"type":"reply","messageId":%q,"conversationId":"conv-1","text":"hi back"}`, id))
	ev = awaitEvent(t, s, func(ev interfaces.Event) bool {
		return ev.Kind == interfaces.EventMessageStatus && ev.MessageID == id
	})
	assert.Equal(t, interfaces.StatusDelivered, ev.Status)

	// The reply also lands as a new bot message
	ev = awaitEvent(t, s, func(ev interfaces.Event) bool {
		return ev.Kind == interfaces.EventMessageAppended && ev.Message.Origin == interfaces.OriginBot
	})
	assert.Equal(t, "hi back", ev.Message.Text)
	assert.Zero(t, s.PendingCount())
}

func TestSendMessageWriteFailureResolvesLocally(t *testing.T) {
	tr := newFakeTransport()
	s, err := NewSession(newFakeDialer(tr), testLogger(t))
	require.NoError(t, err)

	require.NoError(t, s.Connect(testProfile()))
	waitForState(t, s, interfaces.StateConnected)

	tr.setWriteErr(errors.New("broken pipe"))
	id, err := s.SendMessage("conv-1", "General", "doomed")
	require.Error(t, err)
	assert.True(t, cwerrors.IsTransport(err))
	require.NotEmpty(t, id)

	ev := awaitEvent(t, s, func(ev interfaces.Event) bool {
		return ev.Kind == interfaces.EventMessageStatus && ev.MessageID == id
	})
	assert.Equal(t, interfaces.StatusErrored, ev.Status)
	assert.Zero(t, s.PendingCount())
}

func TestUnknownFrameDoesNotKillReceiveLoop(t *testing.T) {
	tr := newFakeTransport()
	s, err := NewSession(newFakeDialer(tr), testLogger(t))
	require.NoError(t, err)

	require.NoError(t, s.Connect(testProfile()))
	waitForState(t, s, interfaces.StateConnected)

	tr.push(`{"type":"telemetry","payload":42}`)
	tr.push(`not even json`)
	tr.push(`{"type":"proactive","text":"still alive"}`)

	ev := awaitEvent(t, s, func(ev interfaces.Event) bool {
		return ev.Kind == interfaces.EventMessageAppended && ev.Message.Origin == interfaces.OriginProactive
	})
	assert.Equal(t, "still alive", ev.Message.Text)
}

func TestProactiveDoesNotTouchPending(t *testing.T) {
	tr := newFakeTransport()
	s, err := NewSession(newFakeDialer(tr), testLogger(t))
	require.NoError(t, err)

	require.NoError(t, s.Connect(testProfile()))
	waitForState(t, s, interfaces.StateConnected)
	tr.push(`{"type":"hello_ack","connectionId":"conn-1"}`)

	id, err := s.SendMessage("conv-1", "General", "hello")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	tr.push(`{"type":"proactive","conversationId":"conv-1","text":"server news"}`)
	awaitEvent(t, s, func(ev interfaces.Event) bool {
		return ev.Kind == interfaces.EventMessageAppended && ev.Message.Origin == interfaces.OriginProactive
	})

	assert.Equal(t, 1, s.PendingCount(), "proactive messages must not resolve pending entries")
}

func TestServerErrorSurfacesInline(t *testing.T) {
	tr := newFakeTransport()
	s, err := NewSession(newFakeDialer(tr), testLogger(t))
	require.NoError(t, err)

	require.NoError(t, s.Connect(testProfile()))
	waitForState(t, s, interfaces.StateConnected)
	tr.push(`{"type":"hello_ack","connectionId":"conn-1"}`)

	tr.push(`{"type":"error","code":"bad_request","message":"that made no sense"}`)
	ev := awaitEvent(t, s, func(ev interfaces.Event) bool {
		return ev.Kind == interfaces.EventMessageAppended && ev.Message.Origin == interfaces.OriginError
	})
	assert.Equal(t, "that made no sense", ev.Message.Text)

	// A message-level error never degrades the connection
	assert.True(t, s.State().Ready())
}

func TestAuthFailureIsTerminal(t *testing.T) {
	tr := newFakeTransport()
	dialer := newFakeDialer(tr, newFakeTransport())
	s, err := NewSession(dialer, testLogger(t))
	require.NoError(t, err)

	require.NoError(t, s.Connect(testProfile()))
	waitForState(t, s, interfaces.StateConnected)

	tr.push(`{"type":"error","code":"auth_failed","message":"invalid token"}`)
	waitForState(t, s, interfaces.StateError)
	assert.Equal(t, cwerrors.ErrAuthenticationFailed.Error(), s.StateDetail())

	// No reconnection after a credential rejection
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, dialer.dialCount())
}

func TestReconnectAfterTransportLoss(t *testing.T) {
	tr1 := newFakeTransport()
	tr2 := newFakeTransport()
	dialer := newFakeDialer(tr1, tr2)
	s, err := NewSession(dialer, testLogger(t))
	require.NoError(t, err)

	require.NoError(t, s.Connect(testProfile()))
	waitForState(t, s, interfaces.StateConnected)
	tr1.push(`{"type":"hello_ack","connectionId":"conn-1","authenticated":true}`)
	waitForState(t, s, interfaces.StateAuthenticated)

	// Simulate an unexpected connection loss
	tr1.Close()

	require.Eventually(t, func() bool {
		return dialer.dialCount() == 2
	}, 2*time.Second, 2*time.Millisecond)

	tr2.push(`{"type":"hello_ack","connectionId":"conn-2","authenticated":true}`)
	waitForState(t, s, interfaces.StateAuthenticated)
	assert.Equal(t, "conn-2", s.ConnectionID())
}

func TestReconnectCounterResetsAfterSuccess(t *testing.T) {
	tr1 := newFakeTransport()
	tr2 := newFakeTransport()
	tr3 := newFakeTransport()
	dialer := newFakeDialer(tr1, tr2, tr3)
	s, err := NewSession(dialer, testLogger(t))
	require.NoError(t, err)

	profile := testProfile()
	profile.ReconnectMaxAttempts = 1
	require.NoError(t, s.Connect(profile))
	waitForState(t, s, interfaces.StateConnected)
	tr1.push(`{"type":"hello_ack","connectionId":"conn-1"}`)

	// First loss consumes the single allowed attempt
	tr1.Close()
	require.Eventually(t, func() bool { return dialer.dialCount() == 2 }, 2*time.Second, 2*time.Millisecond)
	tr2.push(`{"type":"hello_ack","connectionId":"conn-2"}`)
	waitForState(t, s, interfaces.StateConnected)

	// After the successful handshake the counter is back to zero, so a second
	// loss must be allowed to retry instead of going terminal
	tr2.Close()
	require.Eventually(t, func() bool { return dialer.dialCount() == 3 }, 2*time.Second, 2*time.Millisecond)
	tr3.push(`{"type":"hello_ack","connectionId":"conn-3"}`)
	waitForState(t, s, interfaces.StateConnected)
}

func TestReconnectCeilingIsTerminal(t *testing.T) {
	tr := newFakeTransport()
	dialer := newFakeDialer(tr) // all further dials refused
	s, err := NewSession(dialer, testLogger(t))
	require.NoError(t, err)

	profile := testProfile()
	profile.ReconnectMaxAttempts = 2
	require.NoError(t, s.Connect(profile))
	waitForState(t, s, interfaces.StateConnected)
	tr.push(`{"type":"hello_ack","connectionId":"conn-1"}`)
	waitForState(t, s, interfaces.StateConnected)

	tr.Close()

	require.Eventually(t, func() bool {
		return s.State() == interfaces.StateError &&
			s.StateDetail() == cwerrors.ErrMaxReconnectAttempts.Error()
	}, 2*time.Second, 2*time.Millisecond)

	// Initial dial plus the two failed retries, then nothing further
	assert.Equal(t, 3, dialer.dialCount())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 3, dialer.dialCount())
}

func TestDisconnectSuppressesReconnect(t *testing.T) {
	tr := newFakeTransport()
	dialer := newFakeDialer(tr, newFakeTransport())
	s, err := NewSession(dialer, testLogger(t))
	require.NoError(t, err)

	require.NoError(t, s.Connect(testProfile()))
	waitForState(t, s, interfaces.StateConnected)
	tr.push(`{"type":"hello_ack","connectionId":"conn-1"}`)

	s.Disconnect()
	assert.Equal(t, interfaces.StateDisconnected, s.State())
	assert.Empty(t, s.ConnectionID())

	// Disconnect is idempotent
	s.Disconnect()
	assert.Equal(t, interfaces.StateDisconnected, s.State())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, dialer.dialCount(), "manual disconnect must not trigger reconnection")
}

func TestHeartbeatSendsPings(t *testing.T) {
	tr := newFakeTransport()
	s, err := NewSession(newFakeDialer(tr), testLogger(t))
	require.NoError(t, err)

	profile := testProfile()
	profile.HeartbeatInterval = 10 * time.Millisecond
	require.NoError(t, s.Connect(profile))
	waitForState(t, s, interfaces.StateConnected)

	// The heartbeat starts only after the handshake acknowledgement
	time.Sleep(30 * time.Millisecond)
	assert.False(t, tr.sentContaining(`"kind":"ping"`))

	tr.push(`{"type":"hello_ack","connectionId":"conn-1"}`)
	require.Eventually(t, func() bool {
		return tr.sentContaining(`"kind":"ping"`)
	}, 2*time.Second, 2*time.Millisecond)
}

func TestConnectIsIdempotent(t *testing.T) {
	tr1 := newFakeTransport()
	tr2 := newFakeTransport()
	dialer := newFakeDialer(tr1, tr2)
	s, err := NewSession(dialer, testLogger(t))
	require.NoError(t, err)

	require.NoError(t, s.Connect(testProfile()))
	waitForState(t, s, interfaces.StateConnected)
	tr1.push(`{"type":"hello_ack","connectionId":"conn-1"}`)

	// A second connect tears the first session down and starts over
	require.NoError(t, s.Connect(testProfile()))
	require.Eventually(t, func() bool { return dialer.dialCount() == 2 }, 2*time.Second, 2*time.Millisecond)

	tr2.push(`{"type":"hello_ack","connectionId":"conn-2"}`)
	require.Eventually(t, func() bool {
		return s.ConnectionID() == "conn-2"
	}, 2*time.Second, 2*time.Millisecond)
}

func TestSendMessageGeneratesUniqueIDs(t *testing.T) {
	tr := newFakeTransport()
	s, err := NewSession(newFakeDialer(tr), testLogger(t))
	require.NoError(t, err)

	require.NoError(t, s.Connect(testProfile()))
	waitForState(t, s, interfaces.StateConnected)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := s.SendMessage("conv-1", "General", "rapid fire")
		require.NoError(t, err)
		require.False(t, seen[id], "duplicate message id %s", id)
		seen[id] = true
	}
	assert.Equal(t, 50, s.PendingCount())
}

func TestClearPendingDropsEntries(t *testing.T) {
	tr := newFakeTransport()
	s, err := NewSession(newFakeDialer(tr), testLogger(t))
	require.NoError(t, err)

	require.NoError(t, s.Connect(testProfile()))
	waitForState(t, s, interfaces.StateConnected)

	id, err := s.SendMessage("conv-1", "General", "hello")
	require.NoError(t, err)

	s.ClearPending()
	assert.Zero(t, s.PendingCount())

	// A late ack for a cleared entry is a no-op: no status event may follow
	tr.push(fmt.Sprintf(`{"type":"dispatch_ack","messageId":%q,"status":"dispatched"}`, id))
	time.Sleep(30 * time.Millisecond)

	for {
		select {
		case ev := <-s.Events():
			assert.NotEqual(t, interfaces.EventMessageStatus, ev.Kind, "late ack produced a status event")
		default:
			return
		}
	}
}
