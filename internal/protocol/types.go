// Package protocol implements the wire format spoken with the message-dispatch
// backend. This file defines the outbound command variants and the inbound
// envelope shapes exchanged as JSON text frames over the websocket transport.
package protocol

// Outbound command kind discriminators
const (
	KindHello   = "hello"
	KindMessage = "message"
	KindPing    = "ping"
)

// Inbound envelope type discriminators
const (
	TypeHelloAck      = "hello_ack"
	TypeHelloRequired = "hello_required"
	TypeDispatchAck   = "dispatch_ack"
	TypeReply         = "reply"
	TypeProactive     = "proactive"
	TypePong          = "pong"
	TypeError         = "error"
)

// Error envelope codes that signal an authentication failure
const (
	ErrorCodeAuthFailed   = "auth_failed"
	ErrorCodeUnauthorized = "unauthorized"
)

// HelloCommand introduces (and optionally authenticates) the client after a
// hello_required challenge. All fields are optional on the wire.
type HelloCommand struct {
	Kind              string                 `json:"kind"`
	Timestamp         int64                  `json:"timestamp"`
	Token             string                 `json:"token,omitempty"`
	ClientID          string                 `json:"clientId,omitempty"`
	UserID            string                 `json:"userId,omitempty"`
	UserName          string                 `json:"userName,omitempty"`
	ConversationID    string                 `json:"conversationId,omitempty"`
	ConversationTitle string                 `json:"conversationTitle,omitempty"`
	IsDirect          bool                   `json:"isDirect,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}

// MessageCommand carries one user-authored chat message. IdempotencyKey always
// equals MessageID so the backend can deduplicate retried sends.
type MessageCommand struct {
	Kind              string `json:"kind"`
	Timestamp         int64  `json:"timestamp"`
	MessageID         string `json:"messageId"`
	IdempotencyKey    string `json:"idempotencyKey"`
	ConversationID    string `json:"conversationId,omitempty"`
	ConversationTitle string `json:"conversationTitle,omitempty"`
	IsDirect          bool   `json:"isDirect,omitempty"`
	SenderID          string `json:"senderId,omitempty"`
	SenderName        string `json:"senderName,omitempty"`
	Text              string `json:"text"`
}

// PingCommand is the keepalive emitted by the heartbeat scheduler
type PingCommand struct {
	Kind      string `json:"kind"`
	Timestamp int64  `json:"timestamp"`
}

// Envelope is one parsed inbound server frame. A single struct covers every
// recognized type; fields irrelevant to a given type are left at their zero
// values, which matches the decoder's tolerance for missing optional fields.
type Envelope struct {
	Type string `json:"type"`

	// hello_ack / hello_required
	ConnectionID  string `json:"connectionId,omitempty"`
	ServerTime    int64  `json:"serverTime,omitempty"`
	Authenticated bool   `json:"authenticated,omitempty"`

	// dispatch_ack
	MessageID string `json:"messageId,omitempty"`
	Status    string `json:"status,omitempty"`
	Reason    string `json:"reason,omitempty"`

	// reply / proactive
	ConversationID string `json:"conversationId,omitempty"`
	Text           string `json:"text,omitempty"`
	Title          string `json:"title,omitempty"`
	UseMarkdown    bool   `json:"useMarkdown,omitempty"`

	// error
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// IsAuthFailure reports whether an error envelope signals that the backend
// rejected the session's credentials.
func (e *Envelope) IsAuthFailure() bool {
	if e.Type != TypeError {
		return false
	}
	return e.Code == ErrorCodeAuthFailed || e.Code == ErrorCodeUnauthorized
}
