// Package app provides the main application controller that orchestrates all
// components and manages the complete application lifecycle. It handles mode
// switching between Menu Mode and Chat Mode and coordinates communication
// between UI models and the session through dependency injection.
package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chatwire/chatwire/internal/interfaces"
	chatui "github.com/chatwire/chatwire/internal/ui/app"
	"github.com/chatwire/chatwire/internal/ui/menu"
)

// activeView determines which model is currently visible and receiving updates.
type activeView int

const (
	menuView activeView = iota
	chatView
)

// Controller is the main application model that manages state transitions
// between Menu Mode and Chat Mode. The session outlives both child models, so
// switching screens never drops the connection.
type Controller struct {
	// Child UI Models
	menuModel tea.Model
	chatModel tea.Model

	// The shared session, disconnected on quit
	session interfaces.ChatSession

	// Active View State
	currentView activeView

	// Terminal dimensions
	width  int
	height int

	err error
}

// NewController creates the main controller with all dependencies injected.
func NewController(
	configManager interfaces.ConfigManager,
	session interfaces.ChatSession,
	contentRenderer interfaces.ContentRenderer,
	conversations interfaces.ConversationStore,
	profile *interfaces.Profile,
) *Controller {
	menuModel := menu.NewMenuModel(
		configManager,
		session,
		contentRenderer,
		conversations,
		profile,
	)

	return &Controller{
		menuModel:   menuModel,
		session:     session,
		currentView: menuView,
	}
}

// Init initializes the main controller and its initial child model.
func (c *Controller) Init() tea.Cmd {
	return c.menuModel.Init()
}

// Update handles all messages and delegates them to the active child model.
// It also manages the transition between the menu and chat views.
func (c *Controller) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			c.session.Disconnect()
			return c, tea.Quit
		}

	case tea.WindowSizeMsg:
		c.width = msg.Width
		c.height = msg.Height
		// Propagate size to child models
		if c.menuModel != nil {
			c.menuModel, _ = c.menuModel.Update(msg)
		}
		if c.chatModel != nil {
			c.chatModel, _ = c.chatModel.Update(msg)
		}
		return c, nil

	case menu.OpenConversationMsg:
		// Switch from menu to chat
		c.chatModel = msg.Model
		c.currentView = chatView
		c.chatModel, cmd = c.chatModel.Update(tea.WindowSizeMsg{Width: c.width, Height: c.height})
		cmds = append(cmds, cmd, c.chatModel.Init())
		return c, tea.Batch(cmds...)

	case chatui.ReturnToMenuMsg:
		// Switch from chat back to menu; the session stays up
		c.chatModel = nil
		c.currentView = menuView
		cmds = append(cmds, c.menuModel.Init())
		return c, tea.Batch(cmds...)

	case error:
		c.err = msg
		return c, nil
	}

	// Delegate messages to the active model.
	switch c.currentView {
	case menuView:
		c.menuModel, cmd = c.menuModel.Update(msg)
		cmds = append(cmds, cmd)

	case chatView:
		if c.chatModel != nil {
			c.chatModel, cmd = c.chatModel.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return c, tea.Batch(cmds...)
}

// View renders the view of the currently active child model.
func (c *Controller) View() string {
	switch c.currentView {
	case menuView:
		return c.menuModel.View()
	case chatView:
		if c.chatModel != nil {
			return c.chatModel.View()
		}
		return ""
	default:
		return "Error: Unknown view state."
	}
}
