// Package protocol implements the wire format spoken with the message-dispatch
// backend. This file provides the envelope codec: serialization of outbound
// command objects and forward-compatible parsing of inbound frames.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/chatwire/chatwire/internal/interfaces"
)

// ErrUnknownType is returned by DecodeEnvelope when a frame carries an
// unrecognized type discriminator. Callers drop the frame and continue; the
// error must never tear down the receive loop.
var ErrUnknownType = fmt.Errorf("unknown envelope type")

// recognizedTypes gates decoding so that frames from newer protocol revisions
// are dropped instead of being misinterpreted.
var recognizedTypes = map[string]bool{
	TypeHelloAck:      true,
	TypeHelloRequired: true,
	TypeDispatchAck:   true,
	TypeReply:         true,
	TypeProactive:     true,
	TypePong:          true,
	TypeError:         true,
}

// NewHello builds a hello command from the profile's credential and identity
// fields, stamped with the current millisecond epoch.
func NewHello(profile *interfaces.Profile, clientID string, metadata map[string]interface{}) *HelloCommand {
	cmd := &HelloCommand{
		Kind:           KindHello,
		Timestamp:      nowMillis(),
		ClientID:       clientID,
		ConversationID: profile.DefaultConversation,
		Metadata:       metadata,
	}
	if profile.Auth.Type == "bearer" {
		cmd.Token = profile.Auth.Token
	}
	cmd.UserID = profile.User.ID
	cmd.UserName = profile.User.Name
	return cmd
}

// NewMessage builds a chat message command for a locally generated message id.
// The idempotency key mirrors the message id so retried sends deduplicate
// server-side.
func NewMessage(messageID, conversationID, conversationTitle, text string, user interfaces.UserIdentity) *MessageCommand {
	return &MessageCommand{
		Kind:              KindMessage,
		Timestamp:         nowMillis(),
		MessageID:         messageID,
		IdempotencyKey:    messageID,
		ConversationID:    conversationID,
		ConversationTitle: conversationTitle,
		SenderID:          user.ID,
		SenderName:        user.Name,
		Text:              text,
	}
}

// NewPing builds a keepalive command stamped with the current millisecond epoch
func NewPing() *PingCommand {
	return &PingCommand{
		Kind:      KindPing,
		Timestamp: nowMillis(),
	}
}

// EncodeCommand serializes an outbound command to its wire representation.
// A marshalling failure is an EncodingFailure surfaced to the caller of the
// send operation; it never affects the connection.
func EncodeCommand(cmd interface{}) ([]byte, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to encode command: %w", err)
	}
	return data, nil
}

// DecodeEnvelope parses one inbound frame into a typed envelope. The decoder
// tolerates unexpected additional fields and missing optional fields. For an
// unrecognized type discriminator it performs a best-effort parse of the type
// field alone and returns ErrUnknownType so the caller can drop the frame.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse frame: %w", err)
	}

	if !recognizedTypes[probe.Type] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, probe.Type)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse %s envelope: %w", probe.Type, err)
	}
	return &env, nil
}

// nowMillis returns the current time as a millisecond epoch
func nowMillis() int64 {
	return time.Now().UnixMilli()
}
