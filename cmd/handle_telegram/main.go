package main

import (
	"context"
	"encoding/json"
	"log"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"

	"github.com/relaydesk/relaydesk/pkg/agent"
	"github.com/relaydesk/relaydesk/pkg/chat"
	"github.com/relaydesk/relaydesk/pkg/config"
	"github.com/relaydesk/relaydesk/pkg/svc"
)

// handleUpdate persists an inbound Telegram message and sends the agent's
// reply straight back through the bot API
func handleUpdate(ctx context.Context, update tgbotapi.Update, db *gorm.DB, cfg *config.Config, bot *tgbotapi.BotAPI) error {
	if update.Message == nil || update.Message.Text == "" {
		return nil
	}
	incoming := update.Message
	chatID := strconv.FormatInt(incoming.Chat.ID, 10)

	recipient := incoming.Chat.Title
	if recipient == "" {
		recipient = incoming.Chat.UserName
	}
	conversation, _, err := chat.FindOrCreateConversation(
		db, chat.PlatformTelegram, &chatID, recipient, "", incoming.Chat.IsGroup(),
	)
	if err != nil {
		return err
	}

	senderID := chatID
	if incoming.From != nil {
		senderID = strconv.FormatInt(incoming.From.ID, 10)
	}
	externalID := strconv.Itoa(incoming.MessageID)
	record := chat.Message{
		ConversationID: conversation.ID,
		Content:        incoming.Text,
		Direction:      chat.DirectionInbound,
		Status:         chat.StatusDelivered,
		ExternalID:     &externalID,
		SenderID:       senderID,
	}
	if err := db.Create(&record).Error; err != nil {
		// Telegram redelivers webhooks on non-200 responses, so only the
		// duplicate hit on (conversation_id, external_id) is safe to ack
		if chat.IsUniqueViolation(err) {
			log.Printf("skipping redelivered telegram message %s: %v", externalID, err)
			return nil
		}
		return err
	}

	document := chat.ParseDocument(conversation.Metadata)
	if !document.Bool(chat.KeyIsAgent) {
		return nil
	}

	orchestrator := agent.New(db, svc.NewLLMClient(cfg.LLM))
	reply, err := orchestrator.ProcessMessage(ctx, conversation.ID, incoming.Text)
	if err != nil {
		return err
	}

	outgoing := tgbotapi.NewMessage(incoming.Chat.ID, reply.Content)
	if _, err := bot.Send(outgoing); err != nil {
		log.Printf("sending telegram reply for conversation %d: %v", conversation.ID, err)
		return err
	}
	return nil
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var update tgbotapi.Update
	if err := json.Unmarshal([]byte(request.Body), &update); err != nil {
		return events.APIGatewayProxyResponse{StatusCode: 400}, nil
	}

	cfg := config.Load()
	db, err := gorm.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: 500}, err
	}
	defer db.Close()

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: 500}, err
	}

	if err := handleUpdate(ctx, update, db, cfg, bot); err != nil {
		return events.APIGatewayProxyResponse{StatusCode: 500}, err
	}
	return events.APIGatewayProxyResponse{StatusCode: 200}, nil
}

func main() {
	lambda.Start(handler)
}
