package svc

import (
	"net/url"
	"testing"

	"github.com/sfreiberg/gotwilio"

	"github.com/relaydesk/relaydesk/pkg/chat"
	"github.com/relaydesk/relaydesk/pkg/mocks"
)

func TestWhatsAppAddr(t *testing.T) {
	if WhatsAppAddr("+1234567890") != "whatsapp:+1234567890" {
		t.Errorf("Bare numbers should be prefixed")
	}
	if WhatsAppAddr("whatsapp:+1234567890") != "whatsapp:+1234567890" {
		t.Errorf("Prefixed numbers should pass through")
	}
	if StripWhatsAppAddr("whatsapp:+1234567890") != "+1234567890" {
		t.Errorf("Prefix should be stripped")
	}
}

func TestTwilioChatSend(t *testing.T) {
	client := new(mocks.TwilioClientMock)
	client.On("SendWhatsApp", "whatsapp:+1555", "whatsapp:+1234567890", "hello", "", "").
		Return(&gotwilio.SmsResponse{Sid: "SM1"}, nil, nil)

	twilioChat := NewTwilioChat(client, "+1555", "+1234567890")
	response, exception, err := twilioChat.Send("hello")
	if err != nil || exception != nil {
		t.Errorf("Unexpected failure: %v %v", exception, err)
	}
	if response.Sid != "SM1" {
		t.Errorf("Wrong response sid: %s", response.Sid)
	}
	client.AssertExpectations(t)
}

func TestTwilioChatHandleWebhook(t *testing.T) {
	twilioChat := NewTwilioChat(new(mocks.TwilioClientMock), "+1555", "+1234567890")
	message := twilioChat.HandleWebhook(gotwilio.SMSWebhook{
		From:       "whatsapp:+1234567890",
		To:         "whatsapp:+1555",
		Body:       "hi there",
		MessageSid: "SM2",
	})

	if message.Platform != chat.PlatformWhatsApp {
		t.Errorf("Wrong platform: %s", message.Platform)
	}
	if message.Sender != "+1234567890" || message.Recipient != "+1555" {
		t.Errorf("Channel prefixes not stripped: %+v", message)
	}
	if message.ExternalID != "SM2" || message.Body != "hi there" {
		t.Errorf("Webhook fields lost: %+v", message)
	}
	if message.CreatedAt == nil {
		t.Errorf("Inbound messages should be timestamped")
	}
}

func TestTwilioChatCheckSignature(t *testing.T) {
	client := new(mocks.TwilioClientMock)
	values := url.Values{"Body": []string{"hi"}}
	client.On("GenerateSignature", "https://example.com/webhook", values).
		Return([]byte("expected"), nil)

	twilioChat := NewTwilioChat(client, "+1555", "+1234567890")
	valid, err := twilioChat.CheckSignature("https://example.com/webhook", "expected", values)
	if err != nil || !valid {
		t.Errorf("Matching signature should validate: %v %v", valid, err)
	}

	valid, err = twilioChat.CheckSignature("https://example.com/webhook", "forged", values)
	if err != nil || valid {
		t.Errorf("Forged signature should be rejected")
	}
}
