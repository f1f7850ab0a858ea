// Package app implements Chat Mode for ChatWire. This file defines the
// ChatModel structure holding the visible transcript for one conversation,
// the composer input, and the connection status surfaced from the session
// event channel. The model never talks to the socket directly; everything it
// knows about the connection arrives as session events.
package app

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chatwire/chatwire/internal/interfaces"
)

// ChatModel represents the complete state and dependencies for Chat Mode
type ChatModel struct {
	// Injected dependencies
	profile         *interfaces.Profile
	session         interfaces.ChatSession
	contentRenderer interfaces.ContentRenderer
	conversations   interfaces.ConversationStore

	// The conversation currently on screen
	conversationID    string
	conversationTitle string

	// Visible transcript and composer state
	messages     []interfaces.ChatMessage
	composer     textinput.Model
	scrollOffset int
	autoScroll   bool

	// Connection state mirrored from session events
	connState   interfaces.ConnectionState
	stateDetail string

	// Terminal dimensions
	width  int
	height int

	errorMessage string
}

// NewChatModel creates a Chat Mode model bound to one conversation.
func NewChatModel(
	profile *interfaces.Profile,
	session interfaces.ChatSession,
	renderer interfaces.ContentRenderer,
	conversations interfaces.ConversationStore,
	conversationID, conversationTitle string,
) *ChatModel {
	composer := textinput.New()
	composer.Placeholder = "Type a message..."
	composer.CharLimit = 4000
	composer.Width = 60
	composer.Focus()

	return &ChatModel{
		profile:           profile,
		session:           session,
		contentRenderer:   renderer,
		conversations:     conversations,
		conversationID:    conversationID,
		conversationTitle: conversationTitle,
		composer:          composer,
		autoScroll:        true,
		connState:         session.State(),
	}
}

// Init implements the tea.Model interface. Opening a conversation drops any
// pending reconciliation entries from a previously open conversation and
// clears its unread counter.
func (m *ChatModel) Init() tea.Cmd {
	m.session.ClearPending()
	_ = m.conversations.MarkRead(m.conversationID)

	return tea.Batch(
		textinput.Blink,
		m.waitForSessionEvent(),
	)
}

// ReturnToMenuMsg signals the controller to switch back to Menu Mode.
// The session stays connected across the switch.
type ReturnToMenuMsg struct{}

// sessionEventMsg wraps one event drained from the session channel
type sessionEventMsg struct {
	event interfaces.Event
}

// waitForSessionEvent blocks on the session event channel and forwards the
// next event into the Bubble Tea loop. The handler re-arms it after every
// event so the channel is drained continuously.
func (m *ChatModel) waitForSessionEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.session.Events()
		if !ok {
			return nil
		}
		return sessionEventMsg{event: ev}
	}
}

// sendCurrentInput submits the composer content to the session. The user's
// message shows up in the transcript through the session event channel, not
// here, so sends and receives follow a single code path.
func (m *ChatModel) sendCurrentInput() tea.Cmd {
	text := strings.TrimSpace(m.composer.Value())
	if text == "" {
		return nil
	}

	if _, err := m.session.SendMessage(m.conversationID, m.conversationTitle, text); err != nil {
		m.errorMessage = err.Error()
		return nil
	}

	m.composer.Reset()
	m.errorMessage = ""
	return nil
}

// applyEvent folds one session event into the model state
func (m *ChatModel) applyEvent(ev interfaces.Event) {
	switch ev.Kind {
	case interfaces.EventConnectionState:
		m.connState = ev.State
		m.stateDetail = ev.Detail

	case interfaces.EventMessageAppended:
		if ev.Message == nil {
			return
		}
		m.appendMessage(*ev.Message)

	case interfaces.EventMessageStatus:
		for i := range m.messages {
			if m.messages[i].ID == ev.MessageID {
				m.messages[i].Status = ev.Status
				m.messages[i].StatusReason = ev.Reason
				break
			}
		}
	}
}

// appendMessage adds a chat entry to the transcript when it belongs to the
// open conversation, and updates the conversation list either way. Messages
// for other conversations only bump their unread counter.
func (m *ChatModel) appendMessage(msg interfaces.ChatMessage) {
	belongsHere := msg.ConversationID == "" || msg.ConversationID == m.conversationID

	if belongsHere {
		m.messages = append(m.messages, msg)
		if m.autoScroll {
			m.scrollOffset = 0
		}
	}

	if msg.Origin == interfaces.OriginError {
		// Inline error entries are transcript-only, not conversation activity
		return
	}

	targetID := msg.ConversationID
	title := ""
	if belongsHere {
		targetID = m.conversationID
		title = m.conversationTitle
	}
	if targetID == "" {
		return
	}

	at := msg.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	_ = m.conversations.RecordMessage(targetID, title, msg.Text, at, !belongsHere)
}
