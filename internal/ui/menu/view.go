// Package menu implements the visual presentation for Menu Mode. This file
// renders the conversation list with unread badges and last-message previews,
// the quick connect interface, and the live connection indicator using
// Lipgloss styling.
package menu

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/chatwire/chatwire/internal/ui/components"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#CBA6F7")).
			Padding(1, 2)

	focusedBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("#89B4FA")).
			Padding(1, 2)

	listItemStyle    = lipgloss.NewStyle().PaddingLeft(1)
	focusedItemStyle = lipgloss.NewStyle().
				PaddingLeft(1).
				Foreground(lipgloss.Color("#1e1e2e")).
				Background(lipgloss.Color("#FAB387"))

	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")).PaddingLeft(5)

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")).Padding(1, 0)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8")).
			Bold(true)
)

// View renders the UI for the menu model.
func (m *MenuModel) View() string {
	var s strings.Builder

	// Title bar with the connection indicator
	s.WriteString(titleStyle.Render("ChatWire"))
	s.WriteString("  ")
	s.WriteString(components.RenderConnectionState(m.session.State(), ""))
	s.WriteString("\n\n")

	// Conversation list
	s.WriteString(m.viewConversationList())
	s.WriteString("\n\n")

	// Quick connect
	s.WriteString(m.viewQuickConnect())
	s.WriteString("\n\n")

	// Footer / Help
	s.WriteString(helpStyle.Render("Commands: [Enter] Open | [N]ew conversation | [Tab] Navigate | [Q]uit"))

	if m.statusMessage != "" {
		s.WriteString("\n")
		s.WriteString(helpStyle.Render(m.statusMessage))
	}

	if m.err != nil {
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	}

	return s.String()
}

// viewConversationList renders the list of conversations.
func (m *MenuModel) viewConversationList() string {
	var listItems []string
	listTitle := "Conversations"

	if len(m.conversationList) == 0 {
		listItems = append(listItems, helpStyle.Render("No conversations yet. Press [N] to start one."))
	} else {
		for i, conv := range m.conversationList {
			itemStr := fmt.Sprintf("[%d] %s", i+1, conv.Title)
			if badge := components.RenderUnreadBadge(conv.UnreadCount); badge != "" {
				itemStr += " " + badge
			}
			if !conv.LastMessageTime.IsZero() {
				itemStr += helpStyle.Render("  " + conv.LastMessageTime.Format("Jan 2 15:04"))
			}

			if m.focusState == FocusList && i == m.selectedIndex {
				listItems = append(listItems, focusedItemStyle.Render(itemStr))
			} else {
				listItems = append(listItems, listItemStyle.Render(itemStr))
			}

			if conv.LastMessage != "" {
				listItems = append(listItems, previewStyle.Render(conv.LastMessage))
			}
		}
	}

	listContent := lipgloss.JoinVertical(lipgloss.Left, listItems...)

	style := boxStyle
	if m.focusState == FocusList {
		style = focusedBoxStyle
	}

	return style.Render(lipgloss.JoinVertical(lipgloss.Left, lipgloss.NewStyle().Bold(true).Render(listTitle), listContent))
}

// viewQuickConnect renders the quick connect input box.
func (m *MenuModel) viewQuickConnect() string {
	boxTitle := "Quick Connect"
	inputView := m.quickConnectInput.View()

	style := boxStyle
	if m.focusState == FocusInput {
		style = focusedBoxStyle
	}

	return style.Render(lipgloss.JoinVertical(lipgloss.Left, lipgloss.NewStyle().Bold(true).Render(boxTitle), "Host: "+inputView))
}
