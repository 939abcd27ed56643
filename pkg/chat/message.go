package chat

import (
	"errors"
	"time"

	"github.com/jinzhu/gorm"
)

// Message directions
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Canonical delivery statuses
const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusFailed    = "failed"
)

// AgentSenderID is the reserved sender identity for automated agent replies
const AgentSenderID = "ai-agent"

// ErrMessageNotFound is returned when a requested message does not exist
var ErrMessageNotFound = errors.New("message not found")

// Message is a single message exchanged in a Conversation. Messages are
// immutable except for status; ExternalID is the vendor message id, unique
// within its conversation whenever present.
type Message struct {
	ID             uint      `gorm:"primary_key" json:"id"`
	ConversationID uint      `gorm:"index" json:"conversation_id"`
	Content        string    `json:"content"`
	Direction      string    `json:"direction"`
	Status         string    `json:"status"`
	ExternalID     *string   `json:"external_id"`
	SenderID       string    `json:"sender_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// StatusFromAck translates a vendor delivery-acknowledgement code to a
// canonical status. Unmapped codes default to sent; an absent code means the
// vendor has not acknowledged the message yet.
func StatusFromAck(ack *int) string {
	if ack == nil {
		return StatusPending
	}
	switch *ack {
	case -1:
		return StatusFailed
	case 0:
		return StatusPending
	case 1:
		return StatusSent
	case 2:
		return StatusDelivered
	case 3:
		return StatusRead
	default:
		return StatusSent
	}
}

var statusOrder = map[string]int{
	StatusPending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// CanTransition reports whether a message status change is allowed. Status
// only advances from pending through sent and delivered to read; failed is reachable from any
// non-terminal status.
func CanTransition(from, to string) bool {
	if to == StatusFailed {
		return from != StatusRead && from != StatusFailed
	}
	fromRank, fromOK := statusOrder[from]
	toRank, toOK := statusOrder[to]
	return fromOK && toOK && toRank > fromRank
}

// UpdateMessageStatusByExternalID advances the status of the message carrying
// a vendor id. Out-of-order or regressive acks are ignored rather than
// rejected, since vendors redeliver acknowledgements.
func UpdateMessageStatusByExternalID(db *gorm.DB, externalID, to string) error {
	var message Message
	err := db.Where("external_id = ?", externalID).First(&message).Error
	if gorm.IsRecordNotFoundError(err) {
		return ErrMessageNotFound
	}
	if err != nil {
		return err
	}
	if !CanTransition(message.Status, to) {
		return nil
	}
	return db.Model(&message).Update("status", to).Error
}
