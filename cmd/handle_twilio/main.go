package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/sfreiberg/gotwilio"

	"github.com/relaydesk/relaydesk/pkg/chat"
	"github.com/relaydesk/relaydesk/pkg/config"
	"github.com/relaydesk/relaydesk/pkg/svc"
)

// Twilio delivery-status strings mapped to canonical message statuses
var twilioStatuses = map[string]string{
	"queued":      chat.StatusPending,
	"sent":        chat.StatusSent,
	"delivered":   chat.StatusDelivered,
	"read":        chat.StatusRead,
	"failed":      chat.StatusFailed,
	"undelivered": chat.StatusFailed,
}

func twimlResponse() events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		Body:       `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`,
		Headers:    map[string]string{"content-type": "text/xml"},
		StatusCode: 200,
	}
}

// verifySignature checks the webhook against the X-Twilio-Signature header
// computed over the public endpoint URL and the form values
func verifySignature(twilioChat *svc.TwilioChat, base string, request events.APIGatewayProxyRequest, values url.Values) error {
	signature := request.Headers["X-Twilio-Signature"]
	if signature == "" {
		signature = request.Headers["x-twilio-signature"]
	}
	valid, err := twilioChat.CheckSignature(base+request.Path, signature, values)
	if err != nil {
		return err
	}
	if !valid {
		return fmt.Errorf("twilio signature is not valid")
	}
	return nil
}

func handleStatusCallback(cfg *config.Config, values url.Values) error {
	status, ok := twilioStatuses[values.Get("MessageStatus")]
	if !ok {
		log.Printf("ignoring unknown twilio message status %q", values.Get("MessageStatus"))
		return nil
	}

	db, err := gorm.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	err = chat.UpdateMessageStatusByExternalID(db, values.Get("MessageSid"), status)
	if err == chat.ErrMessageNotFound {
		log.Printf("status callback for unknown message %s", values.Get("MessageSid"))
		return nil
	}
	return err
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	values, err := url.ParseQuery(request.Body)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	cfg := config.Load()
	client := gotwilio.NewTwilioClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken)
	twilioChat := svc.NewTwilioChat(client, cfg.Twilio.From, "")
	if err := verifySignature(twilioChat, cfg.Twilio.WebhookBase, request, values); err != nil {
		log.Println(err)
		return events.APIGatewayProxyResponse{}, err
	}

	// Status callbacks share the webhook URL with inbound messages
	if values.Get("MessageStatus") != "" {
		if err := handleStatusCallback(cfg, values); err != nil {
			return events.APIGatewayProxyResponse{}, err
		}
		return twimlResponse(), nil
	}

	var smsWebhook gotwilio.SMSWebhook
	if err := gotwilio.DecodeWebhook(values, &smsWebhook); err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	createdAt := time.Now()
	message := chat.InboundMessage{
		Platform:   chat.PlatformWhatsApp,
		Sender:     svc.StripWhatsAppAddr(smsWebhook.From),
		Recipient:  svc.StripWhatsAppAddr(smsWebhook.To),
		Body:       smsWebhook.Body,
		ExternalID: smsWebhook.MessageSid,
		CreatedAt:  &createdAt,
	}

	messageJSON, marshalErr := json.Marshal(message)
	if marshalErr != nil {
		return events.APIGatewayProxyResponse{}, marshalErr
	}
	log.Println(string(messageJSON))

	snsClient := svc.NewSNSClient()
	if err := snsClient.Publish(string(messageJSON), cfg.SNSTopicARN, svc.ReceivedMessageFeed); err != nil {
		return events.APIGatewayProxyResponse{}, fmt.Errorf("publishing inbound message: %w", err)
	}
	return twimlResponse(), nil
}

func main() {
	lambda.Start(handler)
}
