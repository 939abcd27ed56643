package svc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWhatsAppGatewayListMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("Missing bearer credential: %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("X-Account-Number") != "+1555" {
			t.Errorf("Missing account number header")
		}
		if r.URL.Path != "/chats/123@c.us/messages" {
			t.Errorf("Wrong path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "500" {
			t.Errorf("Wrong limit: %s", r.URL.Query().Get("limit"))
		}
		w.Write([]byte(`[{"id": "m1", "body": "hey", "fromMe": false, "ack": 2, "timestamp": 100}]`))
	}))
	defer server.Close()

	gateway := NewWhatsAppGateway(server.URL, "secret", "+1555")
	messages, err := gateway.ListMessages(context.Background(), "123@c.us", 500)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(messages) != 1 || messages[0].ID != "m1" || messages[0].Body != "hey" {
		t.Errorf("Messages decoded incorrectly: %+v", messages)
	}
	if messages[0].Ack == nil || *messages[0].Ack != 2 {
		t.Errorf("Ack should decode as a present code")
	}
}

func TestWhatsAppGatewayListChats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("account") != "acct-1" {
			t.Errorf("Wrong account query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`[{"id": "123@g.us", "title": "Support", "isGroup": true}]`))
	}))
	defer server.Close()

	gateway := NewWhatsAppGateway(server.URL, "secret", "+1555")
	chats, err := gateway.ListChats(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(chats) != 1 || !chats[0].IsGroup || chats[0].Title != "Support" {
		t.Errorf("Chats decoded incorrectly: %+v", chats)
	}
}

func TestWhatsAppGatewaySendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/messages" {
			t.Errorf("Wrong request: %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"id": "sent-1"}`))
	}))
	defer server.Close()

	gateway := NewWhatsAppGateway(server.URL, "secret", "+1555")
	id, err := gateway.SendMessage(context.Background(), "+1234567890", "hello", false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if id != "sent-1" {
		t.Errorf("Wrong vendor id: %s", id)
	}
}

func TestWhatsAppGatewayErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	gateway := NewWhatsAppGateway(server.URL, "secret", "+1555")
	if _, err := gateway.ListChats(context.Background(), "acct-1"); !errors.Is(err, ErrVendor) {
		t.Errorf("Expected ErrVendor for non-success status, got %v", err)
	}
}

func TestWhatsAppGatewayMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	gateway := NewWhatsAppGateway(server.URL, "secret", "+1555")
	if _, err := gateway.ListMessages(context.Background(), "123@c.us", 10); !errors.Is(err, ErrVendor) {
		t.Errorf("Expected ErrVendor for malformed payload, got %v", err)
	}
}

func TestWhatsAppGatewayMissingSendID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	gateway := NewWhatsAppGateway(server.URL, "secret", "+1555")
	if _, err := gateway.SendMessage(context.Background(), "+1234567890", "hello", false); !errors.Is(err, ErrVendor) {
		t.Errorf("Expected ErrVendor when the vendor omits the message id, got %v", err)
	}
}
