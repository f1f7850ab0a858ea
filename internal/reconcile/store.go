// Package reconcile implements the message reconciliation store: the mapping
// between locally authored message identifiers and their eventual server-side
// acknowledgement, reply, or failure. The store resolves out-of-order arrival
// into a consistent per-message status and tolerates late or duplicate
// acknowledgements as no-ops.
package reconcile

import (
	"strings"
	"sync"
	"time"

	"github.com/chatwire/chatwire/internal/interfaces"
)

// PendingMessage represents a user-authored chat message awaiting resolution
type PendingMessage struct {
	MessageID      string
	ConversationID string
	Status         interfaces.MessageStatus
	Reason         string
	RegisteredAt   time.Time
}

// Resolution describes a status change produced by an inbound event. The
// session emits it to the UI as a per-message status event.
type Resolution struct {
	MessageID string
	Status    interfaces.MessageStatus
	Reason    string
}

// Store maps outbound message ids to their pending reconciliation entries.
// At most one entry exists per message id; entries are reclaimed once a
// message resolves to Delivered or Errored (the message itself persists in
// the visible history, only the reconciliation entry is dropped).
type Store struct {
	mutex   sync.Mutex
	pending map[string]*PendingMessage
}

// NewStore creates an empty reconciliation store
func NewStore() *Store {
	return &Store{
		pending: make(map[string]*PendingMessage),
	}
}

// RegisterPending creates a Sending-status entry for a freshly authored
// message. A duplicate message id is a silent no-op and returns nil, guarding
// against accidental double-registration.
func (s *Store) RegisterPending(messageID, conversationID string) *PendingMessage {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.pending[messageID]; exists {
		return nil
	}

	entry := &PendingMessage{
		MessageID:      messageID,
		ConversationID: conversationID,
		Status:         interfaces.StatusSending,
		RegisteredAt:   time.Now(),
	}
	s.pending[messageID] = entry
	return entry
}

// OnDispatchAck applies a server dispatch acknowledgement. Unmatched ids are
// no-ops (late or duplicate acks after local state was cleared). A recognized
// failure status resolves the entry to Errored and reclaims it; any other
// status value, including ones from newer servers, is treated as a successful
// dispatch and moves the entry to WaitingReply so forward-compatible status
// strings cannot strand a message in Sending.
func (s *Store) OnDispatchAck(messageID, status, reason string) (*Resolution, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, exists := s.pending[messageID]
	if !exists {
		return nil, false
	}

	if isFailureStatus(status) {
		delete(s.pending, messageID)
		entry.Status = interfaces.StatusErrored
		entry.Reason = reason
		return &Resolution{MessageID: messageID, Status: interfaces.StatusErrored, Reason: reason}, true
	}

	entry.Status = interfaces.StatusWaitingReply
	return &Resolution{MessageID: messageID, Status: interfaces.StatusWaitingReply}, true
}

// OnReply resolves the matching pending entry to Delivered and reclaims it.
// A reply may arrive before any dispatch acknowledgement (the entry jumps
// straight from Sending to Delivered). An absent or unmatched message id
// returns no resolution; the caller still surfaces the reply as a new
// inbound chat entry.
func (s *Store) OnReply(messageID string) (*Resolution, bool) {
	if messageID == "" {
		return nil, false
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.pending[messageID]; !exists {
		return nil, false
	}

	delete(s.pending, messageID)
	return &Resolution{MessageID: messageID, Status: interfaces.StatusDelivered}, true
}

// OnLocalSendFailure resolves an entry to Errored immediately when the
// transport failed synchronously and the frame never left the device.
func (s *Store) OnLocalSendFailure(messageID, reason string) (*Resolution, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.pending[messageID]; !exists {
		return nil, false
	}

	delete(s.pending, messageID)
	return &Resolution{MessageID: messageID, Status: interfaces.StatusErrored, Reason: reason}, true
}

// Clear drops all pending entries. Called on conversation switch or history
// clear so stale late acknowledgements cannot mutate messages that are no
// longer visible.
func (s *Store) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.pending = make(map[string]*PendingMessage)
}

// PendingCount returns the number of unresolved entries
func (s *Store) PendingCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.pending)
}

// Get retrieves a copy of a pending entry, if present
func (s *Store) Get(messageID string) (PendingMessage, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, exists := s.pending[messageID]
	if !exists {
		return PendingMessage{}, false
	}
	return *entry, true
}

// isFailureStatus recognizes the dispatch status tokens that mean the backend
// declined the message. Comparison is case-insensitive.
func isFailureStatus(status string) bool {
	switch strings.ToLower(status) {
	case "error", "failed", "rejected":
		return true
	default:
		return false
	}
}
