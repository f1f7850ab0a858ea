// Package app implements the visual presentation for Chat Mode. This file
// renders the conversation header with the live connection indicator, the
// scrollable message transcript with per-message delivery markers, and the
// composer input using Lipgloss styling.
package app

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/chatwire/chatwire/internal/interfaces"
	"github.com/chatwire/chatwire/internal/ui/components"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	composerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#CBA6F7")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086"))

	errorBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8")).
			Bold(true)
)

// View renders the UI for the chat model.
func (m *ChatModel) View() string {
	var s strings.Builder

	s.WriteString(m.viewHeader())
	s.WriteString("\n\n")

	s.WriteString(m.viewTranscript())
	s.WriteString("\n")

	s.WriteString(composerStyle.Width(m.composerWidth()).Render(m.composer.View()))
	s.WriteString("\n")

	if m.errorMessage != "" {
		s.WriteString(errorBarStyle.Render("Error: " + m.errorMessage))
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render("[Enter] Send | [PgUp/PgDn] Scroll | [Esc] Conversations | [Ctrl+C] Quit"))

	return s.String()
}

// viewHeader renders the conversation title and the connection indicator
func (m *ChatModel) viewHeader() string {
	title := m.conversationTitle
	if title == "" {
		title = "Conversation"
	}

	indicator := components.RenderConnectionState(m.connState, m.stateDetail)

	bar := headerStyle.Render("ChatWire — " + title)
	return lipgloss.JoinHorizontal(lipgloss.Center, bar, "  ", indicator)
}

// viewTranscript renders the visible slice of the message transcript
func (m *ChatModel) viewTranscript() string {
	if len(m.messages) == 0 {
		return helpStyle.Render("No messages yet. Say hello!")
	}

	width := m.composerWidth()
	lines := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		rendered := m.contentRenderer.RenderMessage(msg, width)
		if msg.Origin == interfaces.OriginUser {
			rendered += " " + components.RenderMessageStatus(msg.Status, msg.StatusReason)
		}
		lines = append(lines, rendered)
	}

	transcript := strings.Split(strings.Join(lines, "\n\n"), "\n")

	// scrollOffset counts lines back from the bottom
	height := m.transcriptHeight()
	end := len(transcript) - m.scrollOffset
	if end > len(transcript) {
		end = len(transcript)
	}
	if end < 0 {
		end = 0
	}
	start := end - height
	if start < 0 {
		start = 0
	}

	return strings.Join(transcript[start:end], "\n")
}

// transcriptHeight reports the number of terminal rows available for messages
func (m *ChatModel) transcriptHeight() int {
	// Header, composer, help, and spacing take up the rest
	height := m.height - 8
	if height < 5 {
		height = 5
	}
	return height
}

// composerWidth reports the usable width for the composer and messages
func (m *ChatModel) composerWidth() int {
	width := m.width - 4
	if width < 20 {
		width = 60
	}
	return width
}
