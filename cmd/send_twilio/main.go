package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/sfreiberg/gotwilio"

	"github.com/relaydesk/relaydesk/pkg/chat"
	"github.com/relaydesk/relaydesk/pkg/config"
	"github.com/relaydesk/relaydesk/pkg/svc"
)

func handler(request events.SNSEvent) error {
	if len(request.Records) < 1 {
		return nil
	}
	snsRecord := request.Records[0].SNS

	feed, ok := snsRecord.MessageAttributes["feed"].(map[string]interface{})
	if !ok {
		log.Println("Feed not present in SNS message")
		return nil
	}
	if feed["Value"] != svc.SendReplyFeed {
		log.Printf("No handler for feed %v", feed["Value"])
		return nil
	}

	var reply chat.ReplyMessage
	if err := json.Unmarshal([]byte(snsRecord.Message), &reply); err != nil {
		return err
	}

	cfg := config.Load()
	twilio := gotwilio.NewTwilioClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken)
	twilioChat := svc.NewTwilioChat(twilio, cfg.Twilio.From, reply.Recipient)

	// Returning the error requeues the record so delivery is retried
	response, exception, err := twilioChat.Send(reply.Body)
	if err != nil {
		log.Printf("sending reply for conversation %d: %v", reply.ConversationID, err)
		return err
	}
	if exception != nil {
		log.Printf("sending reply for conversation %d: %s", reply.ConversationID, exception.Message)
		return fmt.Errorf("twilio: %s", exception.Message)
	}

	// Stamp the stored reply with the vendor id so status callbacks can find it
	db, err := gorm.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Printf("recording vendor id for message %d: %v", reply.MessageID, err)
		return nil
	}
	defer db.Close()
	err = db.Model(&chat.Message{}).Where("id = ?", reply.MessageID).
		Update("external_id", response.Sid).Error
	if err != nil {
		log.Printf("recording vendor id for message %d: %v", reply.MessageID, err)
	}
	return nil
}

func main() {
	lambda.Start(handler)
}
