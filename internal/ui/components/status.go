// Package components provides shared, reusable interface elements for
// ChatWire. This file implements the connection state indicator shown in the
// status bar and the per-message delivery markers rendered next to locally
// authored messages.
package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/chatwire/chatwire/internal/interfaces"
)

// connectionStyles maps connection states to their corresponding visual style.
var connectionStyles = map[interfaces.ConnectionState]lipgloss.Style{
	interfaces.StateDisconnected:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
	interfaces.StateConnecting:     lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
	interfaces.StateConnected:      lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
	interfaces.StateAuthenticating: lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
	interfaces.StateAuthenticated:  lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
	interfaces.StateError:          lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
}

// connectionIcons maps connection states to their corresponding icon.
var connectionIcons = map[interfaces.ConnectionState]string{
	interfaces.StateDisconnected:   "○",
	interfaces.StateConnecting:     "◌",
	interfaces.StateConnected:      "●",
	interfaces.StateAuthenticating: "◍",
	interfaces.StateAuthenticated:  "●",
	interfaces.StateError:          "✗",
}

// RenderConnectionState formats a connection state with an icon and color for
// the status bar. The optional detail is appended for error states.
func RenderConnectionState(state interfaces.ConnectionState, detail string) string {
	style, exists := connectionStyles[state]
	if !exists {
		style = lipgloss.NewStyle()
	}

	icon, exists := connectionIcons[state]
	if !exists {
		icon = "?"
	}

	label := state.String()
	if state == interfaces.StateError && detail != "" {
		label = fmt.Sprintf("%s: %s", label, detail)
	}

	return style.Render(fmt.Sprintf("%s %s", icon, label))
}

// statusMarkers maps message statuses to the marker shown next to a locally
// authored message in the chat transcript.
var statusMarkers = map[interfaces.MessageStatus]string{
	interfaces.StatusSending:      "…",
	interfaces.StatusSent:         "→",
	interfaces.StatusWaitingReply: "✓",
	interfaces.StatusDelivered:    "✓✓",
	interfaces.StatusErrored:      "✗",
}

var (
	markerOkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))
	markerDimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	markerErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))
)

// RenderMessageStatus formats the delivery marker for one message status.
// An errored message shows its failure reason when available.
func RenderMessageStatus(status interfaces.MessageStatus, reason string) string {
	marker, exists := statusMarkers[status]
	if !exists {
		marker = "?"
	}

	switch status {
	case interfaces.StatusErrored:
		if reason != "" {
			return markerErrStyle.Render(fmt.Sprintf("%s %s", marker, reason))
		}
		return markerErrStyle.Render(marker + " failed")
	case interfaces.StatusDelivered:
		return markerOkStyle.Render(marker)
	default:
		return markerDimStyle.Render(marker)
	}
}

// RenderUnreadBadge formats the unread counter shown next to a conversation
// in the menu list. Zero renders as an empty string.
func RenderUnreadBadge(count int) string {
	if count <= 0 {
		return ""
	}
	badge := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#1e1e2e")).
		Background(lipgloss.Color("#FAB387")).
		Padding(0, 1)
	return badge.Render(fmt.Sprintf("%d", count))
}
