// Package app implements user input processing and state management for Chat
// Mode. This file contains the Bubble Tea update function that routes session
// events into the transcript and processes keyboard input for composing,
// scrolling, and returning to Menu Mode.
package app

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles messages and updates the model state.
func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.errorMessage != "" {
			m.errorMessage = ""
		}
		if handled, keyCmd := m.handleKey(msg); handled {
			return m, keyCmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if msg.Width > 20 {
			m.composer.Width = msg.Width - 8
		}

	case sessionEventMsg:
		m.applyEvent(msg.event)
		// Re-arm the channel drain so the next event flows in
		cmds = append(cmds, m.waitForSessionEvent())
	}

	m.composer, cmd = m.composer.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey processes keyboard input. Returns handled=true when the key was
// consumed and must not reach the composer.
func (m *ChatModel) handleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return true, tea.Quit

	case "esc":
		return true, func() tea.Msg { return ReturnToMenuMsg{} }

	case "enter":
		return true, m.sendCurrentInput()

	case "pgup":
		m.autoScroll = false
		m.scrollOffset += m.transcriptHeight() / 2
		if max := len(m.messages); m.scrollOffset > max {
			m.scrollOffset = max
		}
		return true, nil

	case "pgdown":
		m.scrollOffset -= m.transcriptHeight() / 2
		if m.scrollOffset <= 0 {
			m.scrollOffset = 0
			m.autoScroll = true
		}
		return true, nil

	case "end":
		m.scrollOffset = 0
		m.autoScroll = true
		return true, nil
	}

	return false, nil
}
