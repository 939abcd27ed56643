package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
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

const messageFetchLimit = 500

type importRequest struct {
	ConversationID    uint   `json:"conversationId"`
	WhatsAppAccountID string `json:"whatsappAccountId"`
}

type importResponse struct {
	MessageCount int                    `json:"messageCount"`
	Messages     []chat.ExternalMessage `json:"messages"`
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var body importRequest
	if err := json.Unmarshal([]byte(request.Body), &body); err != nil {
		return api.Error(http.StatusBadRequest, "invalid request body")
	}
	if body.ConversationID == 0 {
		return api.Error(http.StatusBadRequest, "conversationId is required")
	}

	cfg := config.Load()
	db, err := gorm.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return api.Error(http.StatusInternalServerError, "database unavailable")
	}
	defer db.Close()

	document, err := chat.GetConversationDocument(db, body.ConversationID)
	if err != nil {
		return api.ErrorFrom(err)
	}
	chatID := document.String(chat.KeyWhatsAppChat)
	if chatID == "" {
		return api.Error(http.StatusBadRequest, "conversation has no linked whatsapp chat")
	}

	gateway := svc.NewWhatsAppGateway(cfg.WhatsApp.BaseURL, cfg.WhatsApp.Token, cfg.WhatsApp.Number)
	messages, err := gateway.ListMessages(ctx, chatID, messageFetchLimit)
	if err != nil {
		return api.ErrorFrom(err)
	}

	result, err := chat.ImportMessages(ctx, db, body.ConversationID, messages, chat.DefaultBatchSize)
	if err != nil {
		return api.ErrorFrom(err)
	}

	_, metaErr := chat.MergeConversationMetadata(db, body.ConversationID, chat.Document{
		chat.KeyWhatsAppAccount: body.WhatsAppAccountID,
		chat.KeyImported:        true,
		chat.KeyImportedAt:      time.Now().Format(time.RFC3339),
	})
	if metaErr != nil {
		log.Printf("recording import provenance for conversation %d: %v", body.ConversationID, metaErr)
	}

	return api.JSON(http.StatusOK, importResponse{
		MessageCount: result.Imported,
		Messages:     messages,
	})
}

func main() {
	lambda.Start(handler)
}
