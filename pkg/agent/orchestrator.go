package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"github.com/qmuntal/stateless"
	"github.com/sashabaranov/go-openai"

	"github.com/relaydesk/relaydesk/pkg/chat"
	"github.com/relaydesk/relaydesk/pkg/svc"
)

const (
	historyLimit      = 10
	completionTimeout = 20 * time.Second
)

// ErrAgentNotEnabled is returned for agent operations on a conversation with
// no enabled agent
var ErrAgentNotEnabled = errors.New("agent not enabled for conversation")

// Agent lifecycle states. The current state lives in the conversation's
// metadata document, not in process memory.
var (
	stateDisabled stateless.State = "disabled"
	stateEnabled  stateless.State = "enabled"
)

var (
	triggerEnable  stateless.Trigger = "enable"
	triggerUpdate  stateless.Trigger = "updateConfig"
	triggerDisable stateless.Trigger = "disable"
)

// lifecycle rebuilds the per-conversation agent state machine from the
// persisted enabled flag. Enabling is re-entrant (it replaces the agent);
// config updates and disabling require an enabled agent.
func lifecycle(enabled bool) *stateless.StateMachine {
	initial := stateDisabled
	if enabled {
		initial = stateEnabled
	}
	machine := stateless.NewStateMachine(initial)
	machine.Configure(stateDisabled).
		Permit(triggerEnable, stateEnabled)
	machine.Configure(stateEnabled).
		PermitReentry(triggerEnable).
		PermitReentry(triggerUpdate).
		Permit(triggerDisable, stateDisabled)
	return machine
}

// Orchestrator manages automated reply agents attached to conversations. The
// completion collaborator is injected so tests can substitute a fake.
type Orchestrator struct {
	db  *gorm.DB
	llm svc.LLMClient
}

// New is a constructor for Orchestrator structs
func New(db *gorm.DB, llm svc.LLMClient) *Orchestrator {
	return &Orchestrator{db: db, llm: llm}
}

// EnableResult is returned when an agent is enabled or reconfigured
type EnableResult struct {
	AgentID string           `json:"agentId"`
	Config  chat.AgentConfig `json:"config"`
}

// CreateAgent enables the agent on a conversation, merging the partial
// config over the defaults and assigning a fresh agent id
func (o *Orchestrator) CreateAgent(conversationID uint, patch chat.AgentConfigPatch) (*EnableResult, error) {
	document, err := chat.GetConversationDocument(o.db, conversationID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle(document.Bool(chat.KeyIsAgent)).Fire(triggerEnable); err != nil {
		return nil, err
	}

	cfg := patch.Apply(chat.DefaultAgentConfig)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	agentID := uuid.New().String()
	_, err = chat.MergeConversationMetadata(o.db, conversationID, chat.Document{
		chat.KeyIsAgent:     true,
		chat.KeyAgentID:     agentID,
		chat.KeyAgentConfig: cfg,
	})
	if err != nil {
		return nil, err
	}
	return &EnableResult{AgentID: agentID, Config: cfg}, nil
}

// UpdateConfig merges a partial config over the conversation's current agent
// config and persists the result
func (o *Orchestrator) UpdateConfig(conversationID uint, patch chat.AgentConfigPatch) (*EnableResult, error) {
	document, err := chat.GetConversationDocument(o.db, conversationID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle(document.Bool(chat.KeyIsAgent)).Fire(triggerUpdate); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAgentNotEnabled, err)
	}

	base := chat.DefaultAgentConfig
	if existing, ok := document.AgentConfig(); ok {
		base = existing
	}
	cfg := patch.Apply(base)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	_, err = chat.MergeConversationMetadata(o.db, conversationID, chat.Document{
		chat.KeyAgentConfig: cfg,
	})
	if err != nil {
		return nil, err
	}
	return &EnableResult{AgentID: document.String(chat.KeyAgentID), Config: cfg}, nil
}

// Disable turns the agent off. The stored config is kept so a later enable
// can start from the previous tuning.
func (o *Orchestrator) Disable(conversationID uint) error {
	document, err := chat.GetConversationDocument(o.db, conversationID)
	if err != nil {
		return err
	}
	if err := lifecycle(document.Bool(chat.KeyIsAgent)).Fire(triggerDisable); err != nil {
		return fmt.Errorf("%w: %v", ErrAgentNotEnabled, err)
	}
	_, err = chat.MergeConversationMetadata(o.db, conversationID, chat.Document{
		chat.KeyIsAgent: false,
		chat.KeyAgentID: "",
	})
	return err
}

// ProcessMessage generates an automated reply to userText and persists it on
// the conversation. Generation failures degrade to the fallback apology and
// never surface; a failure to persist the reply does.
func (o *Orchestrator) ProcessMessage(ctx context.Context, conversationID uint, userText string) (*chat.Message, error) {
	conversation, err := chat.GetConversation(o.db, conversationID)
	if err != nil {
		return nil, err
	}
	document := chat.ParseDocument(conversation.Metadata)
	cfg := chat.DefaultAgentConfig
	if existing, ok := document.AgentConfig(); ok {
		cfg = existing
	}

	messages, err := o.buildHistory(conversationID, cfg.SystemPrompt)
	if err != nil {
		return nil, err
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userText,
	})

	content := o.generateReply(ctx, cfg, messages, document.String(chat.KeyLanguage))

	reply := chat.Message{
		ConversationID: conversationID,
		Content:        content,
		Direction:      chat.DirectionInbound,
		Status:         chat.StatusDelivered,
		SenderID:       chat.AgentSenderID,
	}
	if err := o.db.Create(&reply).Error; err != nil {
		return nil, fmt.Errorf("saving agent reply: %w", err)
	}
	return &reply, nil
}

// buildHistory assembles the completion transcript: the configured system
// prompt, then the newest messages in chronological order. Messages authored
// by the reserved agent identity take the assistant role.
func (o *Orchestrator) buildHistory(conversationID uint, systemPrompt string) ([]openai.ChatCompletionMessage, error) {
	var recent []chat.Message
	err := o.db.Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(historyLimit).
		Find(&recent).Error
	if err != nil {
		return nil, err
	}

	history := make([]openai.ChatCompletionMessage, 0, len(recent)+2)
	history = append(history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for i := len(recent) - 1; i >= 0; i-- {
		role := openai.ChatMessageRoleUser
		if recent[i].SenderID == chat.AgentSenderID {
			role = openai.ChatMessageRoleAssistant
		}
		history = append(history, openai.ChatCompletionMessage{
			Role:    role,
			Content: recent[i].Content,
		})
	}
	return history, nil
}

// generateReply calls the completion collaborator and returns the reply
// text, substituting the fallback apology on any failure
func (o *Orchestrator) generateReply(ctx context.Context, cfg chat.AgentConfig, messages []openai.ChatCompletionMessage, language string) string {
	callCtx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	response, err := o.llm.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       cfg.Model,
		Messages:    messages,
		Temperature: float32(cfg.Temperature),
		MaxTokens:   cfg.MaxTokens,
	})
	switch {
	case err != nil:
		log.Printf("agent reply generation failed, sending fallback: %v", err)
	case len(response.Choices) == 0 || response.Choices[0].Message.Content == "":
		log.Printf("agent reply generation returned no content, sending fallback")
	default:
		return response.Choices[0].Message.Content
	}
	return FallbackMessage(language)
}
