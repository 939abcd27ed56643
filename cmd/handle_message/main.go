package main

import (
	"context"
	"encoding/json"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"

	"github.com/relaydesk/relaydesk/pkg/agent"
	"github.com/relaydesk/relaydesk/pkg/chat"
	"github.com/relaydesk/relaydesk/pkg/config"
	"github.com/relaydesk/relaydesk/pkg/svc"
)

// handleReceivedMessage persists an inbound channel message and, when the
// conversation has an enabled agent, generates and queues the reply.
func handleReceivedMessage(ctx context.Context, message chat.InboundMessage, db *gorm.DB, cfg *config.Config, snsClient svc.SNS) error {
	conversation, _, err := chat.FindOrCreateConversation(db, message.Platform, &message.Sender, message.Sender, "", message.IsGroup)
	if err != nil {
		return err
	}

	record := chat.Message{
		ConversationID: conversation.ID,
		Content:        message.Body,
		Direction:      chat.DirectionInbound,
		Status:         chat.StatusDelivered,
		SenderID:       message.Sender,
	}
	if message.ExternalID != "" {
		record.ExternalID = &message.ExternalID
	}
	if err := db.Create(&record).Error; err != nil {
		// Redelivered events hit the (conversation_id, external_id) constraint;
		// anything else surfaces so the record is retried
		if chat.IsUniqueViolation(err) {
			log.Printf("skipping redelivered message %s: %v", message.ExternalID, err)
			return nil
		}
		return err
	}

	document := chat.ParseDocument(conversation.Metadata)
	if !document.Bool(chat.KeyIsAgent) {
		return nil
	}

	orchestrator := agent.New(db, svc.NewLLMClient(cfg.LLM))
	reply, err := orchestrator.ProcessMessage(ctx, conversation.ID, message.Body)
	if err != nil {
		return err
	}

	replyJSON, err := json.Marshal(chat.ReplyMessage{
		ConversationID: conversation.ID,
		MessageID:      reply.ID,
		Recipient:      message.Sender,
		Body:           reply.Content,
	})
	if err != nil {
		return err
	}
	return snsClient.Publish(string(replyJSON), cfg.SNSTopicARN, svc.SendReplyFeed)
}

func handler(ctx context.Context, request events.SNSEvent) error {
	if len(request.Records) < 1 {
		return nil
	}
	snsRecord := request.Records[0].SNS

	feed, ok := snsRecord.MessageAttributes["feed"].(map[string]interface{})
	if !ok {
		log.Println("Feed not present in SNS message")
		return nil
	}
	if feed["Value"] != svc.ReceivedMessageFeed {
		log.Printf("No handler for feed %v", feed["Value"])
		return nil
	}

	var message chat.InboundMessage
	if err := json.Unmarshal([]byte(snsRecord.Message), &message); err != nil {
		return err
	}

	cfg := config.Load()
	db, err := gorm.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	return handleReceivedMessage(ctx, message, db, cfg, svc.NewSNSClient())
}

func main() {
	lambda.Start(handler)
}
