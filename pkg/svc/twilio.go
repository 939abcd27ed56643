package svc

import (
	"crypto/hmac"
	"net/url"
	"strings"
	"time"

	"github.com/sfreiberg/gotwilio"

	"github.com/relaydesk/relaydesk/pkg/chat"
)

// TwilioClient generalizes access to Twilio
type TwilioClient interface {
	SendWhatsApp(string, string, string, string, string) (*gotwilio.SmsResponse, *gotwilio.Exception, error)
	GenerateSignature(string, url.Values) ([]byte, error)
}

// TwilioChat delivers conversation messages over Twilio's WhatsApp channel
type TwilioChat struct {
	Client TwilioClient
	From   string // The Twilio-hosted WhatsApp number
	To     string // The end user's WhatsApp number
}

// NewTwilioChat is a constructor for Twilio chat structs
func NewTwilioChat(client TwilioClient, from, to string) *TwilioChat {
	return &TwilioChat{
		Client: client,
		From:   from,
		To:     to,
	}
}

// Send delivers a message body to the chat's recipient
func (c *TwilioChat) Send(body string) (*gotwilio.SmsResponse, *gotwilio.Exception, error) {
	return c.Client.SendWhatsApp(WhatsAppAddr(c.From), WhatsAppAddr(c.To), body, "", "")
}

// HandleWebhook converts an inbound Twilio WhatsApp webhook into a
// channel-agnostic inbound message event
func (c *TwilioChat) HandleWebhook(data gotwilio.SMSWebhook) chat.InboundMessage {
	createdAt := time.Now()
	return chat.InboundMessage{
		Platform:   chat.PlatformWhatsApp,
		Sender:     StripWhatsAppAddr(data.From),
		Recipient:  StripWhatsAppAddr(data.To),
		Body:       data.Body,
		ExternalID: data.MessageSid,
		CreatedAt:  &createdAt,
	}
}

// CheckSignature validates a Twilio webhook signature
func (c *TwilioChat) CheckSignature(url string, signature string, values url.Values) (bool, error) {
	expected, err := c.Client.GenerateSignature(url, values)
	if err != nil {
		return false, err
	}
	return hmac.Equal(expected, []byte(signature)), nil
}

// WhatsAppAddr prefixes a number for Twilio's WhatsApp channel
func WhatsAppAddr(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

// StripWhatsAppAddr removes the Twilio WhatsApp channel prefix
func StripWhatsAppAddr(addr string) string {
	return strings.TrimPrefix(addr, "whatsapp:")
}
