package main

import (
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"

	"github.com/relaydesk/relaydesk/pkg/chat"
	"github.com/relaydesk/relaydesk/pkg/config"
)

// Partial unique indexes let multiple rows omit an external id while still
// rejecting duplicate channel ids
var indexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_platform_external
		ON conversations (platform, external_id) WHERE external_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_conversation_external
		ON messages (conversation_id, external_id) WHERE external_id IS NOT NULL`,
}

func handler(request events.CloudWatchEvent) error {
	cfg := config.Load()
	db, err := gorm.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.AutoMigrate(&chat.Conversation{}, &chat.Message{}).Error; err != nil {
		return err
	}
	for _, ddl := range indexes {
		if err := db.Exec(ddl).Error; err != nil {
			return err
		}
	}
	return nil
}

func main() {
	lambda.Start(handler)
}
