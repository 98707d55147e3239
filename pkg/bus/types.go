package bus

// Kind tags what an inbound message carries.
type Kind string

const (
	KindText     Kind = "text"
	KindPostback Kind = "postback"
	KindNone     Kind = "none"
)

// InboundMessage is one platform event normalized for the conversation pipeline.
type InboundMessage struct {
	Channel  string            `json:"channel"`
	SenderID string            `json:"sender_id"`
	Kind     Kind              `json:"kind"`
	Content  string            `json:"content,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Actionable reports whether the message should be forwarded to the conversation backend.
func (m InboundMessage) Actionable() bool {
	return (m.Kind == KindText || m.Kind == KindPostback) && m.Content != ""
}
