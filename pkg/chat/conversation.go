package chat

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/jinzhu/gorm/dialects/postgres"
	"github.com/lib/pq"
)

// Platforms a conversation can live on
const (
	PlatformWhatsApp = "whatsapp"
	PlatformTelegram = "telegram"
	PlatformEmail    = "email"
	PlatformSlack    = "slack"
	PlatformAI       = "ai"
)

// ErrConversationNotFound is returned when a requested conversation does not exist
var ErrConversationNotFound = errors.New("conversation not found")

// Conversation is the struct for managing database access to conversation threads.
// ExternalID is the vendor-assigned chat id; (platform, external_id) is unique
// whenever it is present (partial unique index, see cmd/migrate).
type Conversation struct {
	gorm.Model
	Platform      string         `json:"platform"`
	Recipient     string         `json:"recipient"`
	ExternalID    *string        `json:"external_id"`
	IsGroup       bool           `json:"is_group"`
	LastMessage   string         `json:"last_message"`
	LastMessageAt *time.Time     `json:"last_message_at"`
	Metadata      postgres.Jsonb `json:"metadata"`
	OwnerUserID   string         `json:"owner_user_id"`
}

// GetConversation loads a conversation by primary key
func GetConversation(db *gorm.DB, id uint) (*Conversation, error) {
	var conversation Conversation
	err := db.First(&conversation, id).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// FindOrCreateConversation returns the canonical conversation for a
// (platform, externalID) pair, creating it on first contact. A concurrent
// insert losing the race on the unique index re-queries and adopts the
// winner's row instead of failing.
func FindOrCreateConversation(db *gorm.DB, platform string, externalID *string, recipient, ownerID string, isGroup bool) (*Conversation, bool, error) {
	var conversation Conversation
	if externalID != nil {
		err := db.Where("platform = ? AND external_id = ?", platform, *externalID).First(&conversation).Error
		if err == nil {
			return &conversation, false, nil
		}
		if !gorm.IsRecordNotFoundError(err) {
			return nil, false, err
		}
	}

	conversation = Conversation{
		Platform:    platform,
		Recipient:   recipient,
		ExternalID:  externalID,
		IsGroup:     isGroup,
		OwnerUserID: ownerID,
		Metadata:    postgres.Jsonb{RawMessage: json.RawMessage("{}")},
	}
	if err := db.Create(&conversation).Error; err != nil {
		if externalID != nil && IsUniqueViolation(err) {
			var winner Conversation
			if findErr := db.Where("platform = ? AND external_id = ?", platform, *externalID).First(&winner).Error; findErr != nil {
				return nil, false, findErr
			}
			return &winner, false, nil
		}
		return nil, false, err
	}
	return &conversation, true, nil
}

// IsUniqueViolation reports whether err is a postgres unique-constraint
// violation. Callers use it to tell a redelivered duplicate from a real
// storage failure.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
