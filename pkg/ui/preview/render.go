// Package preview renders reply payloads for the terminal.
package preview

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pagebridge/pkg/messenger"
)

// Renderer formats inbound text and outbound payloads as chat bubbles.
type Renderer struct {
	theme theme
}

func NewRenderer() *Renderer {
	return &Renderer{theme: defaultTheme()}
}

// Inbound renders what the user typed.
func (r *Renderer) Inbound(senderID string, text string) string {
	title := r.theme.userTitle.Render(senderID)
	return lipgloss.JoinVertical(lipgloss.Left, title, r.theme.userBox.Render(text))
}

// Reply renders the payload that would be dispatched; nil means no reply.
func (r *Renderer) Reply(payload *messenger.OutboundPayload) string {
	if payload == nil {
		return r.theme.empty.Render("(no reply)")
	}

	title := r.theme.replyTitle.Render("page → " + payload.Recipient.ID)
	if !payload.IsButtonTemplate() {
		return lipgloss.JoinVertical(lipgloss.Left, title, r.theme.replyBox.Render(payload.Message.Text))
	}

	template := payload.Message.Attachment.Payload
	buttons := make([]string, 0, len(template.Buttons))
	for _, button := range template.Buttons {
		buttons = append(buttons, lipgloss.JoinVertical(lipgloss.Center,
			r.theme.button.Render(button.Title),
			r.theme.buttonMeta.Render(button.Payload),
		))
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		template.Text,
		lipgloss.JoinHorizontal(lipgloss.Top, buttons...),
	)
	return lipgloss.JoinVertical(lipgloss.Left, title, r.theme.replyBox.Render(body))
}

// Plain renders payload without styling, one line per element.
func Plain(payload *messenger.OutboundPayload) string {
	if payload == nil {
		return "(no reply)"
	}
	if !payload.IsButtonTemplate() {
		return payload.Message.Text
	}

	template := payload.Message.Attachment.Payload
	lines := []string{template.Text}
	for i, button := range template.Buttons {
		lines = append(lines, "  ["+string(rune('1'+i))+"] "+button.Title+" ("+button.Payload+")")
	}
	return strings.Join(lines, "\n")
}
