package svc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/relaydesk/relaydesk/pkg/chat"
)

// ErrVendor marks upstream gateway failures: transport errors, non-success
// statuses and malformed payloads
var ErrVendor = errors.New("vendor gateway error")

// WhatsAppClient generalizes access to the vendor messaging gateway
type WhatsAppClient interface {
	ListChats(ctx context.Context, accountID string) ([]chat.ExternalChat, error)
	ListMessages(ctx context.Context, chatID string, limit int) ([]chat.ExternalMessage, error)
	SendMessage(ctx context.Context, destination, text string, isGroup bool) (string, error)
}

// WhatsAppGateway is an HTTP client for the vendor messaging API. Requests
// carry the per-account bearer credential and the originating-number header;
// every call has a bounded timeout.
type WhatsAppGateway struct {
	BaseURL string
	Token   string
	Number  string
	Client  *http.Client
}

// NewWhatsAppGateway is a constructor for vendor gateway clients
func NewWhatsAppGateway(baseURL, token, number string) *WhatsAppGateway {
	return &WhatsAppGateway{
		BaseURL: baseURL,
		Token:   token,
		Number:  number,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// ListChats returns the chat threads visible to an account
func (g *WhatsAppGateway) ListChats(ctx context.Context, accountID string) ([]chat.ExternalChat, error) {
	var chats []chat.ExternalChat
	path := "/chats?account=" + url.QueryEscape(accountID)
	if err := g.doJSON(ctx, http.MethodGet, path, nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// ListMessages returns up to limit messages of a chat, oldest first
func (g *WhatsAppGateway) ListMessages(ctx context.Context, chatID string, limit int) ([]chat.ExternalMessage, error) {
	var messages []chat.ExternalMessage
	path := fmt.Sprintf("/chats/%s/messages?limit=%s", url.PathEscape(chatID), strconv.Itoa(limit))
	if err := g.doJSON(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessage delivers a single text message and returns the vendor id
func (g *WhatsAppGateway) SendMessage(ctx context.Context, destination, text string, isGroup bool) (string, error) {
	payload := map[string]interface{}{
		"to":      destination,
		"text":    text,
		"isGroup": isGroup,
	}
	var response struct {
		ID string `json:"id"`
	}
	if err := g.doJSON(ctx, http.MethodPost, "/messages", payload, &response); err != nil {
		return "", err
	}
	if response.ID == "" {
		return "", fmt.Errorf("%w: send response missing message id", ErrVendor)
	}
	return response.ID, nil
}

func (g *WhatsAppGateway) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.Token)
	req.Header.Set("X-Account-Number", g.Number)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := g.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVendor, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s returned %d", ErrVendor, method, path, res.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decoding %s response: %v", ErrVendor, path, err)
		}
	}
	return nil
}
