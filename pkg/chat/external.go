package chat

import "time"

// ExternalChat is a chat thread as reported by the vendor gateway
type ExternalChat struct {
	ID                   string `json:"id"`
	Title                string `json:"title"`
	Phone                string `json:"phone"`
	IsGroup              bool   `json:"isGroup"`
	LastMessageTimestamp int64  `json:"lastMessageTimestamp"`
	UnreadCount          int    `json:"unreadCount"`
}

// ExternalMessage is a single vendor message pending import. Timestamp is
// unix seconds assigned by the vendor.
type ExternalMessage struct {
	ID        string `json:"id"`
	Body      string `json:"body"`
	Caption   string `json:"caption"`
	FromMe    bool   `json:"fromMe"`
	Ack       *int   `json:"ack"`
	Timestamp int64  `json:"timestamp"`
	MediaURL  string `json:"media,omitempty"`
}

// ContentText returns the message text, falling back to the media caption
func (m ExternalMessage) ContentText() string {
	if m.Body != "" {
		return m.Body
	}
	return m.Caption
}

// Direction maps the vendor fromMe flag onto a message direction
func (m ExternalMessage) Direction() string {
	if m.FromMe {
		return DirectionOutbound
	}
	return DirectionInbound
}

// InboundMessage is a channel-agnostic inbound message event passed between
// handlers over SNS
type InboundMessage struct {
	Platform   string     `json:"platform"`
	Sender     string     `json:"sender"`
	Recipient  string     `json:"recipient"`
	Body       string     `json:"body"`
	ExternalID string     `json:"external_id"`
	IsGroup    bool       `json:"is_group"`
	CreatedAt  *time.Time `json:"created_at"`
}

// ReplyMessage is an agent reply queued for delivery on its originating channel
type ReplyMessage struct {
	ConversationID uint   `json:"conversation_id"`
	MessageID      uint   `json:"message_id"`
	Recipient      string `json:"recipient"`
	Body           string `json:"body"`
}
