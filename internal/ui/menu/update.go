// Package menu implements user input processing and state management for
// Menu Mode. This file contains the Bubble Tea update function that processes
// keyboard input for numbered conversation selection, Tab navigation, Enter
// key for opening a conversation, and the quick connect field.
package menu

import (
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
)

// Update handles messages and updates the model state.
func (m *MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Clear error on any key press
		if m.err != nil {
			m.err = nil
		}

		switch m.focusState {
		case FocusList:
			cmd = m.handleListKeys(msg)
		case FocusInput:
			cmd = m.handleInputKeys(msg)
		}
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case conversationsReloadedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.conversationList = msg.conversations
			if m.selectedIndex >= len(m.conversationList) {
				m.selectedIndex = 0
			}
		}

	case tickMsg:
		// Refresh the list and the connection indicator, then re-queue
		cmds = append(cmds, m.reloadConversations(), tick())
	}

	// Update the text input if it's focused
	if m.focusState == FocusInput {
		m.quickConnectInput, cmd = m.quickConnectInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleListKeys processes key presses when the conversation list is focused.
func (m *MenuModel) handleListKeys(msg tea.KeyMsg) tea.Cmd {
	switch key := msg.String(); key {
	case "ctrl+c", "q":
		return tea.Quit

	case "up", "k":
		if m.selectedIndex > 0 {
			m.selectedIndex--
		}

	case "down", "j":
		if m.selectedIndex < len(m.conversationList)-1 {
			m.selectedIndex++
		}

	case "enter":
		if len(m.conversationList) > 0 && m.selectedIndex < len(m.conversationList) {
			return m.openConversation(m.conversationList[m.selectedIndex])
		}

	case "n":
		return m.newConversation()

	case "tab":
		m.focusState = FocusInput
		m.quickConnectInput.Focus()

	default:
		// Allow opening via number keys
		if i, err := strconv.Atoi(key); err == nil {
			if i >= 1 && i <= len(m.conversationList) {
				m.selectedIndex = i - 1
				return m.openConversation(m.conversationList[m.selectedIndex])
			}
		}
	}
	return nil
}

// handleInputKeys processes key presses when the quick connect input is focused.
func (m *MenuModel) handleInputKeys(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c":
		return tea.Quit

	case "enter":
		target := m.quickConnectInput.Value()
		if target != "" {
			return m.quickConnect(target)
		}

	case "tab", "shift+tab", "esc":
		m.focusState = FocusList
		m.quickConnectInput.Blur()
	}
	return nil
}
