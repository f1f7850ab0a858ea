// Package menu implements Menu Mode for ChatWire. This file defines the
// MenuModel structure containing the conversation list with unread badges,
// the live connection indicator, the quick connect input field, and focus
// management state. It is the screen shown before a conversation is opened.
package menu

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/chatwire/chatwire/internal/interfaces"
	"github.com/chatwire/chatwire/internal/ui/app"
)

// FocusState represents which part of the menu is currently focused.
type FocusState int

const (
	FocusList FocusState = iota
	FocusInput
)

// MenuModel represents the state of Menu Mode.
type MenuModel struct {
	// Injected dependencies
	configManager   interfaces.ConfigManager
	session         interfaces.ChatSession
	contentRenderer interfaces.ContentRenderer
	conversations   interfaces.ConversationStore

	profile *interfaces.Profile

	// UI State
	conversationList  []interfaces.Conversation
	selectedIndex     int
	quickConnectInput textinput.Model
	focusState        FocusState
	statusMessage     string
	err               error

	// Terminal dimensions
	width  int
	height int
}

// NewMenuModel creates a new instance of the Menu Mode model.
func NewMenuModel(
	config interfaces.ConfigManager,
	session interfaces.ChatSession,
	renderer interfaces.ContentRenderer,
	conversations interfaces.ConversationStore,
	profile *interfaces.Profile,
) *MenuModel {
	ti := textinput.New()
	ti.Placeholder = "localhost:8080"
	ti.CharLimit = 150
	ti.Width = 40

	return &MenuModel{
		configManager:     config,
		session:           session,
		contentRenderer:   renderer,
		conversations:     conversations,
		profile:           profile,
		quickConnectInput: ti,
		focusState:        FocusList,
	}
}

// Init is the first command that will be executed.
func (m *MenuModel) Init() tea.Cmd {
	return tea.Batch(
		m.reloadConversations(),
		tick(),
	)
}

// Helper commands and messages

// OpenConversationMsg is sent when a conversation was opened. It is handled
// by the parent controller to switch to Chat Mode.
type OpenConversationMsg struct {
	Model tea.Model
}

type (
	// conversationsReloadedMsg is sent when the conversation list is reloaded
	conversationsReloadedMsg struct {
		conversations []interfaces.Conversation
		err           error
	}

	// tickMsg drives periodic refreshes of the connection indicator and list
	tickMsg struct{}
)

// tick is a command to send a tickMsg every second.
func tick() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg {
		return tickMsg{}
	})
}

// reloadConversations is a command to fetch the latest conversation list.
func (m *MenuModel) reloadConversations() tea.Cmd {
	return func() tea.Msg {
		conversations, err := m.conversations.List()
		return conversationsReloadedMsg{conversations: conversations, err: err}
	}
}

// openConversation builds the Chat Mode model for one conversation and hands
// it to the controller.
func (m *MenuModel) openConversation(conv interfaces.Conversation) tea.Cmd {
	return func() tea.Msg {
		chatModel := app.NewChatModel(
			m.profile,
			m.session,
			m.contentRenderer,
			m.conversations,
			conv.ID,
			conv.Title,
		)
		return OpenConversationMsg{Model: chatModel}
	}
}

// newConversation creates a fresh conversation record and opens it.
func (m *MenuModel) newConversation() tea.Cmd {
	conv := interfaces.Conversation{
		ID:    uuid.NewString(),
		Title: fmt.Sprintf("Conversation %s", time.Now().Format("Jan 2 15:04")),
	}
	if err := m.conversations.Upsert(conv); err != nil {
		m.err = err
		return nil
	}
	return m.openConversation(conv)
}

// quickConnect reconnects the session to a host:port typed into the quick
// connect field, keeping the rest of the active profile.
func (m *MenuModel) quickConnect(target string) tea.Cmd {
	host := target
	port := m.profile.Port
	if i := strings.LastIndex(target, ":"); i >= 0 {
		host = target[:i]
		p, err := strconv.Atoi(target[i+1:])
		if err != nil {
			m.err = fmt.Errorf("invalid port in %q", target)
			return nil
		}
		port = p
	}

	override := *m.profile
	override.Name = "quick-connect"
	override.Host = host
	override.Port = port
	m.profile = &override

	if err := m.session.Connect(&override); err != nil {
		m.err = err
		return nil
	}
	m.statusMessage = "Connecting to " + target + "..."
	return nil
}
