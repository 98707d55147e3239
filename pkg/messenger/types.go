package messenger

import (
	"encoding/json"
	"fmt"
)

// ObjectPage is the only batch discriminator the webhook accepts.
const ObjectPage = "page"

// InboundBatch is the raw webhook body delivered by the platform.
type InboundBatch struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// UnmarshalJSON accepts any JSON value for object so that a wrongly typed
// discriminator is reported as unsupported rather than as a decode failure.
func (b *InboundBatch) UnmarshalJSON(data []byte) error {
	var raw struct {
		Object json.RawMessage `json:"object"`
		Entry  []Entry         `json:"entry"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	b.Object = ""
	if len(raw.Object) > 0 && string(raw.Object) != "null" {
		if err := json.Unmarshal(raw.Object, &b.Object); err != nil {
			b.Object = string(raw.Object)
		}
	}
	b.Entry = raw.Entry

	return nil
}

// Entry groups messaging events for one page. Only the first event is consumed.
type Entry struct {
	ID        string           `json:"id,omitempty"`
	Time      int64            `json:"time,omitempty"`
	Messaging []MessagingEvent `json:"messaging"`

	decodeErr error
}

// UnmarshalJSON never fails: a badly shaped entry keeps its decode error so
// that only its own event is rejected.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type plain Entry
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		*e = Entry{decodeErr: fmt.Errorf("decode entry: %w", err)}
		return nil
	}

	*e = Entry(decoded)
	return nil
}

type MessagingEvent struct {
	Sender    *User     `json:"sender"`
	Recipient *User     `json:"recipient,omitempty"`
	Timestamp int64     `json:"timestamp,omitempty"`
	Message   *Message  `json:"message,omitempty"`
	Postback  *Postback `json:"postback,omitempty"`
}

type User struct {
	ID string `json:"id"`
}

type Message struct {
	MID        string      `json:"mid,omitempty"`
	Text       string      `json:"text,omitempty"`
	IsEcho     bool        `json:"is_echo,omitempty"`
	QuickReply *QuickReply `json:"quick_reply,omitempty"`
}

type QuickReply struct {
	Payload string `json:"payload"`
}

type Postback struct {
	Title   string `json:"title,omitempty"`
	Payload string `json:"payload"`
}

// OutboundPayload is the Send API request body for one recipient.
type OutboundPayload struct {
	Recipient     Recipient       `json:"recipient"`
	MessagingType string          `json:"messaging_type,omitempty"`
	Message       OutboundMessage `json:"message"`
}

type Recipient struct {
	ID string `json:"id"`
}

// OutboundMessage carries either Text or a template Attachment, never both.
type OutboundMessage struct {
	Text       string      `json:"text,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

type Attachment struct {
	Type    string          `json:"type"`
	Payload TemplatePayload `json:"payload"`
}

type TemplatePayload struct {
	TemplateType string   `json:"template_type"`
	Text         string   `json:"text"`
	Buttons      []Button `json:"buttons"`
}

type Button struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

const (
	MessagingTypeResponse = "RESPONSE"
	AttachmentTemplate    = "template"
	TemplateButton        = "button"
	ButtonPostback        = "postback"

	// MaxButtons is the platform limit for a button template.
	MaxButtons = 3
)

// NewTextPayload builds a plain-text reply for one recipient.
func NewTextPayload(recipientID string, text string) OutboundPayload {
	return OutboundPayload{
		Recipient:     Recipient{ID: recipientID},
		MessagingType: MessagingTypeResponse,
		Message:       OutboundMessage{Text: text},
	}
}

// NewButtonPayload builds a button template reply. Buttons beyond MaxButtons are dropped.
func NewButtonPayload(recipientID string, text string, buttons []Button) OutboundPayload {
	if len(buttons) > MaxButtons {
		buttons = buttons[:MaxButtons]
	}

	return OutboundPayload{
		Recipient:     Recipient{ID: recipientID},
		MessagingType: MessagingTypeResponse,
		Message: OutboundMessage{
			Attachment: &Attachment{
				Type: AttachmentTemplate,
				Payload: TemplatePayload{
					TemplateType: TemplateButton,
					Text:         text,
					Buttons:      append([]Button(nil), buttons...),
				},
			},
		},
	}
}

// IsButtonTemplate reports whether the payload renders as a button template.
func (p OutboundPayload) IsButtonTemplate() bool {
	return p.Message.Attachment != nil && p.Message.Attachment.Payload.TemplateType == TemplateButton
}
