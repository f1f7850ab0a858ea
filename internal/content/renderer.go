// Package content processes chat messages for terminal display. Replies may
// carry a markdown hint; fenced code blocks inside such messages are syntax
// highlighted with chroma, and everything is styled per message origin with
// lipgloss.
package content

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/quick"
	"github.com/charmbracelet/lipgloss"

	"github.com/chatwire/chatwire/internal/interfaces"
	"github.com/chatwire/chatwire/internal/logging"
)

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#89B4FA")).
			Bold(true)

	botStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6E3A1"))

	proactiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAB387")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8"))

	senderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CBA6F7")).
			Bold(true)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086"))

	codeBlockStyle = lipgloss.NewStyle().
			PaddingLeft(2)
)

// Renderer implements the ContentRenderer interface
type Renderer struct {
	logger *logging.Logger
	// chromaStyle selects the highlight palette for fenced code blocks
	chromaStyle string
}

// NewRenderer creates a message renderer with the default highlight style
func NewRenderer() (*Renderer, error) {
	return &Renderer{
		logger:      logging.GetGlobalLogger().WithComponent("content"),
		chromaStyle: "monokai",
	}, nil
}

// RenderMessage renders one chat entry for the message list, honoring the
// markdown hint on bot and proactive messages.
func (r *Renderer) RenderMessage(msg interfaces.ChatMessage, width int) string {
	if width < 20 {
		width = 20
	}

	header := r.renderHeader(msg)

	body := msg.Text
	if msg.UseMarkdown {
		body = r.renderMarkdown(body)
	}
	body = r.bodyStyle(msg.Origin).Width(width).Render(body)

	return header + "\n" + body
}

// renderHeader formats the sender line with a timestamp
func (r *Renderer) renderHeader(msg interfaces.ChatMessage) string {
	name := msg.SenderName
	if name == "" {
		switch msg.Origin {
		case interfaces.OriginUser:
			name = "You"
		case interfaces.OriginProactive:
			name = "Server"
		case interfaces.OriginError:
			name = "Error"
		default:
			name = "Assistant"
		}
	}

	stamp := timeStyle.Render(msg.Timestamp.Format("15:04"))
	return fmt.Sprintf("%s %s", senderStyle.Render(name), stamp)
}

// bodyStyle selects the lipgloss style for a message origin
func (r *Renderer) bodyStyle(origin interfaces.MessageOrigin) lipgloss.Style {
	switch origin {
	case interfaces.OriginUser:
		return userStyle
	case interfaces.OriginProactive:
		return proactiveStyle
	case interfaces.OriginError:
		return errorStyle
	default:
		return botStyle
	}
}

// renderMarkdown performs a lightweight markdown pass: fenced code blocks are
// syntax highlighted, the rest is passed through unchanged. Full markdown
// layout is not worth the complexity for chat-sized messages.
func (r *Renderer) renderMarkdown(text string) string {
	if !strings.Contains(text, "```") {
		return text
	}

	var out strings.Builder
	segments := strings.Split(text, "```")

	for i, segment := range segments {
		// Even segments are prose, odd segments are fenced code
		if i%2 == 0 {
			out.WriteString(segment)
			continue
		}

		lang := ""
		code := segment
		if idx := strings.IndexByte(segment, '\n'); idx >= 0 {
			lang = strings.TrimSpace(segment[:idx])
			code = segment[idx+1:]
		}

		out.WriteString(codeBlockStyle.Render(r.highlight(code, lang)))
	}

	return out.String()
}

// highlight runs chroma over one code block, falling back to the raw text
// when the lexer or formatter fails.
func (r *Renderer) highlight(code, lang string) string {
	if lang == "" {
		lang = "text"
	}

	var buf strings.Builder
	if err := quick.Highlight(&buf, code, lang, "terminal256", r.chromaStyle); err != nil {
		r.logger.Debug("Code highlight failed", "lang", lang, "error", err.Error())
		return code
	}
	return buf.String()
}
