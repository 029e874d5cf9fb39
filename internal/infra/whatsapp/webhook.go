package whatsapp

import (
	"encoding/json"
	"fmt"

	chatdomain "github.com/reformante/cotizador-whatsapp-go/internal/chat/domain"
)

// Payload is the body of a Cloud API webhook notification. Only the fields
// the bot reads are mapped.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups the changes of one business account.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change carries one notification.
type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

// Value holds inbound messages (and status updates, which are ignored).
type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Messages         []Message `json:"messages"`
}

// Message is one inbound customer message.
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	Timestamp string    `json:"timestamp"`
	Type      string    `json:"type"`
	Text      *TextPart `json:"text,omitempty"`
}

// TextPart is the body of a text message.
type TextPart struct {
	Body string `json:"body"`
}

// ParsePayload decodes a webhook body.
func ParsePayload(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	return &p, nil
}

// ExtractMessages flattens the payload into inbound messages in delivery
// order. Types the bot cannot act on (stickers, locations, reactions,
// status callbacks) are dropped.
func ExtractMessages(p *Payload) []chatdomain.InboundMessage {
	if p == nil {
		return nil
	}

	var out []chatdomain.InboundMessage
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			for _, m := range change.Value.Messages {
				if m.From == "" {
					continue
				}
				in := chatdomain.InboundMessage{CustomerID: m.From}

				switch m.Type {
				case "text":
					if m.Text == nil || m.Text.Body == "" {
						continue
					}
					in.Text = m.Text.Body
				case "image":
					in.Attachment = chatdomain.AttachmentImage
				case "audio", "voice":
					in.Attachment = chatdomain.AttachmentAudio
				default:
					continue
				}
				out = append(out, in)
			}
		}
	}
	return out
}
