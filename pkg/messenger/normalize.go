package messenger

import (
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"pagebridge/pkg/bus"
)

const ChannelName = "messenger"

var (
	ErrUnsupportedObject = errors.New("unsupported webhook object")
	ErrMalformedEvent    = errors.New("malformed messaging event")
)

// Normalize validates the batch discriminator and returns a lazy sequence with
// one normalized message per entry. A malformed entry yields an error wrapping
// ErrMalformedEvent for that position only.
func Normalize(batch InboundBatch) (iter.Seq2[bus.InboundMessage, error], error) {
	if batch.Object != ObjectPage {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedObject, batch.Object)
	}

	return func(yield func(bus.InboundMessage, error) bool) {
		for i, entry := range batch.Entry {
			msg, err := normalizeEntry(entry)
			if err != nil {
				err = fmt.Errorf("entry %d: %w", i, err)
			} else {
				msg.Metadata["entry_index"] = strconv.Itoa(i)
			}
			if !yield(msg, err) {
				return
			}
		}
	}, nil
}

func normalizeEntry(entry Entry) (bus.InboundMessage, error) {
	if entry.decodeErr != nil {
		return bus.InboundMessage{}, fmt.Errorf("%w: %v", ErrMalformedEvent, entry.decodeErr)
	}
	if len(entry.Messaging) == 0 {
		return bus.InboundMessage{}, fmt.Errorf("%w: messaging list is empty", ErrMalformedEvent)
	}

	event := entry.Messaging[0]
	if event.Sender == nil || strings.TrimSpace(event.Sender.ID) == "" {
		return bus.InboundMessage{}, fmt.Errorf("%w: sender id is missing", ErrMalformedEvent)
	}

	msg := bus.InboundMessage{
		Channel:  ChannelName,
		SenderID: strings.TrimSpace(event.Sender.ID),
		Kind:     bus.KindNone,
		Metadata: map[string]string{},
	}
	if entry.ID != "" {
		msg.Metadata["page_id"] = entry.ID
	}

	switch {
	case event.Message != nil:
		if event.Message.MID != "" {
			msg.Metadata["mid"] = event.Message.MID
		}
		if event.Message.IsEcho {
			return msg, nil
		}
		if qr := event.Message.QuickReply; qr != nil && strings.TrimSpace(qr.Payload) != "" {
			msg.Kind = bus.KindPostback
			msg.Content = qr.Payload
			return msg, nil
		}
		if strings.TrimSpace(event.Message.Text) != "" {
			msg.Kind = bus.KindText
			msg.Content = event.Message.Text
		}
	case event.Postback != nil:
		if strings.TrimSpace(event.Postback.Payload) != "" {
			msg.Kind = bus.KindPostback
			msg.Content = event.Postback.Payload
		}
	}

	return msg, nil
}
