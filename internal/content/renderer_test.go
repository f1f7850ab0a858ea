package content

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatwire/chatwire/internal/interfaces"
)

func testMessage(origin interfaces.MessageOrigin, text string) interfaces.ChatMessage {
	return interfaces.ChatMessage{
		ID:        "msg-1",
		Text:      text,
		Timestamp: time.Date(2026, 8, 31, 14, 30, 0, 0, time.UTC),
		Origin:    origin,
	}
}

func TestRenderMessageIncludesTextAndSender(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	msg := testMessage(interfaces.OriginUser, "hello world")
	out := renderer.RenderMessage(msg, 80)

	assert.Contains(t, out, "hello world")
	assert.Contains(t, out, "You")
	assert.Contains(t, out, "14:30")
}

func TestRenderMessageSenderFallbacks(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	assert.Contains(t, renderer.RenderMessage(testMessage(interfaces.OriginBot, "x"), 80), "Assistant")
	assert.Contains(t, renderer.RenderMessage(testMessage(interfaces.OriginProactive, "x"), 80), "Server")
	assert.Contains(t, renderer.RenderMessage(testMessage(interfaces.OriginError, "x"), 80), "Error")

	named := testMessage(interfaces.OriginBot, "x")
	named.SenderName = "Dispatch"
	assert.Contains(t, renderer.RenderMessage(named, 80), "Dispatch")
}

func TestRenderMarkdownHighlightsFencedCode(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	msg := testMessage(interfaces.OriginBot, "Look:\n```go\nfmt.Println(\"hi\")\n```\ndone")
	msg.UseMarkdown = true

	out := renderer.RenderMessage(msg, 80)
	assert.Contains(t, out, "Println")
	assert.Contains(t, out, "done")
}

func TestRenderMarkdownWithoutFences(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	msg := testMessage(interfaces.OriginBot, "plain prose, no code")
	msg.UseMarkdown = true

	out := renderer.RenderMessage(msg, 80)
	assert.Contains(t, out, "plain prose, no code")
}

func TestHighlightFallsBackOnUnknownLanguage(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	out := renderer.highlight("some opaque content", "")
	assert.True(t, strings.Contains(out, "opaque"))
}
