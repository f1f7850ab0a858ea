// Package interfaces defines all core interfaces required for dependency injection
// and comprehensive testability throughout ChatWire.
package interfaces

import (
	"context"
	"time"
)

// Profile represents a complete configuration profile for connecting to a dispatch backend
type Profile struct {
	Name                 string        `yaml:"name"`
	Host                 string        `yaml:"host"`
	Port                 int           `yaml:"port"`
	Path                 string        `yaml:"path"`
	TLS                  bool          `yaml:"tls"`
	Auth                 AuthConfig    `yaml:"auth"`
	User                 UserIdentity  `yaml:"user"`
	DefaultConversation  string        `yaml:"defaultConversation,omitempty"`
	ReconnectMaxAttempts int           `yaml:"reconnectMaxAttempts,omitempty"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnectBaseDelay,omitempty"`
	ReconnectMaxDelay    time.Duration `yaml:"reconnectMaxDelay,omitempty"`
	HeartbeatInterval    time.Duration `yaml:"heartbeatInterval,omitempty"`
	ConnectTimeout       time.Duration `yaml:"connectTimeout,omitempty"`
}

// AuthConfig represents authentication configuration for a profile
type AuthConfig struct {
	Type  string `yaml:"type"` // "bearer", "none"
	Token string `yaml:"token,omitempty"`
}

// UserIdentity identifies the local sender on outbound chat messages
type UserIdentity struct {
	ID   string `yaml:"id,omitempty"`
	Name string `yaml:"name,omitempty"`
}

// ConnectionState enumerates the session state machine states
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateAuthenticating
	StateAuthenticated
	StateError
)

// String returns the human-readable label for a connection state
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Ready reports whether the session can send chat messages in this state.
// A server that never challenges for authentication leaves the session in
// StateConnected, so both StateConnected and StateAuthenticated are ready.
func (s ConnectionState) Ready() bool {
	return s == StateConnected || s == StateAuthenticated
}

// MessageStatus tracks the lifecycle of a locally authored message
type MessageStatus int

const (
	StatusSending MessageStatus = iota
	StatusSent
	StatusWaitingReply
	StatusDelivered
	StatusErrored
)

// String returns the human-readable label for a message status
func (s MessageStatus) String() string {
	switch s {
	case StatusSending:
		return "sending"
	case StatusSent:
		return "sent"
	case StatusWaitingReply:
		return "waiting"
	case StatusDelivered:
		return "delivered"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// MessageOrigin distinguishes who authored a chat entry
type MessageOrigin string

const (
	OriginUser      MessageOrigin = "user"
	OriginBot       MessageOrigin = "bot"
	OriginProactive MessageOrigin = "proactive"
	OriginError     MessageOrigin = "error"
)

// ChatMessage represents one entry in the visible conversation history
type ChatMessage struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversationId,omitempty"`
	SenderID       string        `json:"senderId,omitempty"`
	SenderName     string        `json:"senderName,omitempty"`
	Text           string        `json:"text"`
	Timestamp      time.Time     `json:"timestamp"`
	UseMarkdown    bool          `json:"useMarkdown,omitempty"`
	Origin         MessageOrigin `json:"origin"`
	Status         MessageStatus `json:"status,omitempty"`
	StatusReason   string        `json:"statusReason,omitempty"`
}

// Conversation represents a logical chat thread persisted across runs
type Conversation struct {
	ID              string    `yaml:"id" json:"id"`
	Title           string    `yaml:"title" json:"title"`
	LastMessage     string    `yaml:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	LastMessageTime time.Time `yaml:"lastMessageTime,omitempty" json:"lastMessageTime,omitempty"`
	UnreadCount     int       `yaml:"unreadCount,omitempty" json:"unreadCount,omitempty"`
}

// EventKind discriminates session events surfaced to the UI
type EventKind int

const (
	// EventConnectionState signals a session state machine transition
	EventConnectionState EventKind = iota
	// EventMessageAppended signals a new visible chat entry (user, bot, proactive, error)
	EventMessageAppended
	// EventMessageStatus signals a per-message status change from reconciliation
	EventMessageStatus
)

// Event is the tagged union emitted on the session event channel. Exactly the
// fields relevant to Kind are populated; the channel preserves arrival order.
type Event struct {
	Kind EventKind

	// EventConnectionState
	State  ConnectionState
	Detail string

	// EventMessageAppended
	Message *ChatMessage

	// EventMessageStatus
	MessageID string
	Status    MessageStatus
	Reason    string
}

// ChatSession is the session state machine owning the socket lifecycle,
// handshake, heartbeat, reconnection, and message reconciliation.
type ChatSession interface {
	// Connect validates the profile address and begins a connection attempt.
	// It is idempotent: an existing session is torn down first.
	Connect(profile *Profile) error

	// Disconnect closes the session and suppresses reconnection. Safe to call
	// when already disconnected.
	Disconnect()

	// SendMessage registers a pending entry and writes a chat message to the
	// backend. Returns the locally generated message identifier.
	SendMessage(conversationID, conversationTitle, text string) (string, error)

	// State returns the current connection state
	State() ConnectionState

	// ConnectionID returns the server-assigned connection identifier, if any
	ConnectionID() string

	// Events returns the ordered session event channel consumed by the UI
	Events() <-chan Event

	// ClearPending drops all pending reconciliation entries. Called on
	// conversation switch so stale acknowledgements cannot mutate messages
	// that are no longer visible.
	ClearPending()
}

// Transport owns one physical socket connection. Implementations must
// serialize concurrent writers themselves.
type Transport interface {
	// WriteFrame writes one text frame to the socket
	WriteFrame(data []byte) error

	// ReadFrame blocks until the next text frame arrives or the connection fails
	ReadFrame() ([]byte, error)

	// Close tears down the underlying connection. Safe to call more than once.
	Close() error
}

// Dialer opens Transport instances. Injected into the session so tests can
// substitute an in-memory transport.
type Dialer interface {
	// Dial opens a connection to the given websocket URL, bounded by timeout
	Dial(ctx context.Context, url string, timeout time.Duration) (Transport, error)
}

// ConfigManager handles profile management
type ConfigManager interface {
	// LoadProfile retrieves a profile by name from the configuration file
	LoadProfile(name string) (*Profile, error)

	// SaveProfile persists a profile to the configuration file
	SaveProfile(profile *Profile) error

	// ListProfiles returns all available profile names
	ListProfiles() ([]string, error)

	// ValidateProfile ensures profile has all required fields
	ValidateProfile(profile *Profile) error

	// GetConfigPath returns the path to the configuration file
	GetConfigPath() string
}

// AuthManager handles security credentials and authentication
type AuthManager interface {
	// ValidateToken verifies the format and basic validity of an authentication token
	ValidateToken(token string, tokenType string) error

	// SecureStore encrypts and stores sensitive authentication data
	SecureStore(key string, value string) error

	// SecureRetrieve decrypts and retrieves sensitive authentication data
	SecureRetrieve(key string) (string, error)

	// ClearSecureData removes all stored authentication credentials
	ClearSecureData() error
}

// ConversationStore persists the ordered conversation list
type ConversationStore interface {
	// List returns all conversations ordered by most recent activity
	List() ([]Conversation, error)

	// Get retrieves a single conversation by id
	Get(id string) (*Conversation, error)

	// Upsert inserts or replaces a conversation record
	Upsert(conv Conversation) error

	// RecordMessage updates a conversation's preview and timestamp after a
	// message-driven update, incrementing the unread counter when the
	// conversation is not currently open.
	RecordMessage(conversationID, title, preview string, at time.Time, unread bool) error

	// MarkRead clears the unread counter for a conversation
	MarkRead(id string) error
}

// ContentRenderer formats chat messages for terminal display
type ContentRenderer interface {
	// RenderMessage renders one chat entry, honoring the markdown hint
	RenderMessage(msg ChatMessage, width int) string
}
