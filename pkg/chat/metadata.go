package chat

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jinzhu/gorm"
	"github.com/jinzhu/gorm/dialects/postgres"
)

// Metadata keys recognized across the engine
const (
	KeyIsAgent         = "is_agent"
	KeyAgentID         = "agent_id"
	KeyAgentConfig     = "agent_config"
	KeyWhatsAppAccount = "whatsapp_account_id"
	KeyWhatsAppChat    = "whatsapp_chat_id"
	KeyImported        = "imported"
	KeyImportedAt      = "imported_at"
	KeyLanguage        = "language"
)

// ErrInvalidConfig is returned when an agent configuration fails validation
var ErrInvalidConfig = errors.New("invalid agent config")

// Document is the decoded metadata blob attached to a conversation
type Document map[string]interface{}

// ParseDocument normalizes a metadata blob into a Document. Older write
// paths stored the document serialized as a JSON string rather than an
// object, so parsing tries the structured form first and falls back to
// unwrapping a string. Anything unparseable is an empty document, never an
// error.
func ParseDocument(data postgres.Jsonb) Document {
	raw := data.RawMessage
	if len(raw) == 0 {
		return Document{}
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err == nil && doc != nil {
		return doc
	}
	var wrapped string
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		if err := json.Unmarshal([]byte(wrapped), &doc); err == nil && doc != nil {
			return doc
		}
	}
	return Document{}
}

// Merge shallow-merges patch into a copy of the document. On key conflicts
// the patch wins.
func (d Document) Merge(patch Document) Document {
	merged := make(Document, len(d)+len(patch))
	for key, value := range d {
		merged[key] = value
	}
	for key, value := range patch {
		merged[key] = value
	}
	return merged
}

// Jsonb serializes the document for storage
func (d Document) Jsonb() (postgres.Jsonb, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return postgres.Jsonb{}, err
	}
	return postgres.Jsonb{RawMessage: raw}, nil
}

// Bool reads a boolean key, false when absent or mistyped
func (d Document) Bool(key string) bool {
	value, _ := d[key].(bool)
	return value
}

// String reads a string key, empty when absent or mistyped
func (d Document) String(key string) string {
	value, _ := d[key].(string)
	return value
}

// AgentConfig decodes the agent_config key. The second return is false when
// the key is absent or does not decode.
func (d Document) AgentConfig() (AgentConfig, bool) {
	value, ok := d[KeyAgentConfig]
	if !ok {
		return AgentConfig{}, false
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return AgentConfig{}, false
	}
	var cfg AgentConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return AgentConfig{}, false
	}
	return cfg, true
}

// AgentConfig tunes the automated reply agent attached to a conversation
type AgentConfig struct {
	Model        string  `json:"model"`
	SystemPrompt string  `json:"systemPrompt"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"maxTokens"`
}

// DefaultAgentConfig is the config an agent starts from when enabled
var DefaultAgentConfig = AgentConfig{
	Model:        "gpt-4o-mini",
	SystemPrompt: "You are a helpful customer support assistant. Answer concisely and stay on topic.",
	Temperature:  0.7,
	MaxTokens:    500,
}

// Validate checks the config bounds
func (c AgentConfig) Validate() error {
	if c.Temperature < 0 || c.Temperature > 1 {
		return fmt.Errorf("%w: temperature must be within [0, 1]", ErrInvalidConfig)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: maxTokens must be positive", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model is required", ErrInvalidConfig)
	}
	return nil
}

// AgentConfigPatch is a partial agent config; nil fields keep the base value
type AgentConfigPatch struct {
	Model        *string  `json:"model"`
	SystemPrompt *string  `json:"systemPrompt"`
	Temperature  *float64 `json:"temperature"`
	MaxTokens    *int     `json:"maxTokens"`
}

// Apply merges the patch over a base config
func (p AgentConfigPatch) Apply(base AgentConfig) AgentConfig {
	merged := base
	if p.Model != nil {
		merged.Model = *p.Model
	}
	if p.SystemPrompt != nil {
		merged.SystemPrompt = *p.SystemPrompt
	}
	if p.Temperature != nil {
		merged.Temperature = *p.Temperature
	}
	if p.MaxTokens != nil {
		merged.MaxTokens = *p.MaxTokens
	}
	return merged
}

// GetConversationDocument loads and normalizes a conversation's metadata
func GetConversationDocument(db *gorm.DB, conversationID uint) (Document, error) {
	conversation, err := GetConversation(db, conversationID)
	if err != nil {
		return nil, err
	}
	return ParseDocument(conversation.Metadata), nil
}

// MergeConversationMetadata applies a read-merge-write of patch onto a
// conversation's metadata and returns the merged document. There is no
// compare-and-swap; concurrent writers race and the last one wins on
// conflicting keys.
func MergeConversationMetadata(db *gorm.DB, conversationID uint, patch Document) (Document, error) {
	conversation, err := GetConversation(db, conversationID)
	if err != nil {
		return nil, err
	}
	merged := ParseDocument(conversation.Metadata).Merge(patch)
	blob, err := merged.Jsonb()
	if err != nil {
		return nil, err
	}
	if err := db.Model(&Conversation{}).Where("id = ?", conversationID).Update("metadata", blob).Error; err != nil {
		return nil, err
	}
	return merged, nil
}
