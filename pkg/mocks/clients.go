package mocks

import (
	"context"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/mock"

	"github.com/relaydesk/relaydesk/pkg/chat"
)

// SNSMock is a mock for the SNS publisher
type SNSMock struct {
	mock.Mock
}

// Publish mocks publishing to a topic feed
func (m *SNSMock) Publish(message string, topicArn string, feed string) error {
	args := m.Called(message, topicArn, feed)
	return args.Error(0)
}

// WhatsAppClientMock is a mock for the vendor gateway client
type WhatsAppClientMock struct {
	mock.Mock
}

// ListChats mocks listing an account's chats
func (m *WhatsAppClientMock) ListChats(ctx context.Context, accountID string) ([]chat.ExternalChat, error) {
	args := m.Called(ctx, accountID)
	chats, _ := args.Get(0).([]chat.ExternalChat)
	return chats, args.Error(1)
}

// ListMessages mocks listing a chat's messages
func (m *WhatsAppClientMock) ListMessages(ctx context.Context, chatID string, limit int) ([]chat.ExternalMessage, error) {
	args := m.Called(ctx, chatID, limit)
	messages, _ := args.Get(0).([]chat.ExternalMessage)
	return messages, args.Error(1)
}

// SendMessage mocks sending a message through the gateway
func (m *WhatsAppClientMock) SendMessage(ctx context.Context, destination, text string, isGroup bool) (string, error) {
	args := m.Called(ctx, destination, text, isGroup)
	return args.String(0), args.Error(1)
}

// LLMClientMock is a mock for the completion collaborator
type LLMClientMock struct {
	mock.Mock
}

// CreateChatCompletion mocks a completion call
func (m *LLMClientMock) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	response, _ := args.Get(0).(openai.ChatCompletionResponse)
	return response, args.Error(1)
}
