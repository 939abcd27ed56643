package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"

	"github.com/relaydesk/relaydesk/pkg/api"
	"github.com/relaydesk/relaydesk/pkg/chat"
	"github.com/relaydesk/relaydesk/pkg/config"
	"github.com/relaydesk/relaydesk/pkg/svc"
)

const fullImportLimit = 1000

type importRequest struct {
	ChatID         string `json:"chatId"`
	PhoneNumber    string `json:"phoneNumber"`
	UserID         string `json:"userId"`
	ConversationID *uint  `json:"conversationId"`
}

type importResponse struct {
	ConversationID   uint `json:"conversation_id"`
	TotalMessages    int  `json:"total_messages"`
	ImportedMessages int  `json:"imported_messages"`
	FailedMessages   int  `json:"failed_messages"`
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var body importRequest
	if err := json.Unmarshal([]byte(request.Body), &body); err != nil {
		return api.Error(http.StatusBadRequest, "invalid request body")
	}
	if body.ChatID == "" || body.PhoneNumber == "" || body.UserID == "" {
		return api.Error(http.StatusBadRequest, "chatId, phoneNumber and userId are required")
	}

	cfg := config.Load()
	db, err := gorm.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return api.Error(http.StatusInternalServerError, "database unavailable")
	}
	defer db.Close()

	gateway := svc.NewWhatsAppGateway(cfg.WhatsApp.BaseURL, cfg.WhatsApp.Token, cfg.WhatsApp.Number)

	conversation, err := resolveConversation(ctx, db, gateway, body)
	if err != nil {
		if errors.Is(err, chat.ErrConversationNotFound) {
			return api.Error(http.StatusBadRequest, "conversation not found")
		}
		return api.ErrorFrom(err)
	}

	messages, err := gateway.ListMessages(ctx, body.ChatID, fullImportLimit)
	if err != nil {
		return api.ErrorFrom(err)
	}

	result, err := chat.ImportMessages(ctx, db, conversation.ID, messages, chat.DefaultBatchSize)
	if err != nil {
		return api.ErrorFrom(err)
	}

	_, metaErr := chat.MergeConversationMetadata(db, conversation.ID, chat.Document{
		chat.KeyWhatsAppChat: body.ChatID,
		chat.KeyImported:     true,
		chat.KeyImportedAt:   time.Now().Format(time.RFC3339),
	})
	if metaErr != nil {
		log.Printf("recording import provenance for conversation %d: %v", conversation.ID, metaErr)
	}

	return api.JSON(http.StatusOK, importResponse{
		ConversationID:   conversation.ID,
		TotalMessages:    len(messages),
		ImportedMessages: result.Imported,
		FailedMessages:   result.Failed,
	})
}

// resolveConversation uses the caller-supplied conversation when given,
// otherwise finds or creates the canonical one for the vendor chat. Chat
// details come from the gateway's chat listing when available; group chats
// are otherwise recognized by the vendor's group-id suffix.
func resolveConversation(ctx context.Context, db *gorm.DB, gateway svc.WhatsAppClient, body importRequest) (*chat.Conversation, error) {
	if body.ConversationID != nil {
		return chat.GetConversation(db, *body.ConversationID)
	}

	recipient := body.PhoneNumber
	isGroup := strings.HasSuffix(body.ChatID, "@g.us")
	chats, err := gateway.ListChats(ctx, body.PhoneNumber)
	if err != nil {
		log.Printf("listing chats for %s: %v", body.PhoneNumber, err)
	} else {
		for _, external := range chats {
			if external.ID == body.ChatID {
				isGroup = external.IsGroup
				if external.Title != "" {
					recipient = external.Title
				}
				break
			}
		}
	}

	conversation, _, err := chat.FindOrCreateConversation(db, chat.PlatformWhatsApp, &body.ChatID, recipient, body.UserID, isGroup)
	return conversation, err
}

func main() {
	lambda.Start(handler)
}
