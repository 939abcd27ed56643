package chat

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/jinzhu/gorm/dialects/postgres"
)

func TestParseDocument(t *testing.T) {
	structured := postgres.Jsonb{RawMessage: json.RawMessage(`{"is_agent": true, "language": "es"}`)}
	doc := ParseDocument(structured)
	if !doc.Bool(KeyIsAgent) || doc.String(KeyLanguage) != "es" {
		t.Errorf("Structured document not parsed: %v", doc)
	}

	wrapped := postgres.Jsonb{RawMessage: json.RawMessage(`"{\"is_agent\": true}"`)}
	doc = ParseDocument(wrapped)
	if !doc.Bool(KeyIsAgent) {
		t.Errorf("String-wrapped document not unwrapped: %v", doc)
	}

	for _, raw := range []string{"", "null", `"not json"`, "[1, 2]"} {
		doc = ParseDocument(postgres.Jsonb{RawMessage: json.RawMessage(raw)})
		if doc == nil || len(doc) != 0 {
			t.Errorf("Unparseable blob %q should yield an empty document, got %v", raw, doc)
		}
	}
}

func TestDocumentMerge(t *testing.T) {
	base := Document{KeyIsAgent: true, KeyLanguage: "en"}
	merged := base.Merge(Document{KeyLanguage: "es", KeyAgentID: "abc"})

	if merged.String(KeyLanguage) != "es" {
		t.Errorf("Patch value should win on conflicting keys")
	}
	if !merged.Bool(KeyIsAgent) || merged.String(KeyAgentID) != "abc" {
		t.Errorf("Merge lost keys: %v", merged)
	}
	if base.String(KeyLanguage) != "en" {
		t.Errorf("Merge should not mutate the receiver")
	}
}

func TestDocumentAgentConfig(t *testing.T) {
	doc := Document{}
	if _, ok := doc.AgentConfig(); ok {
		t.Errorf("Absent config should report missing")
	}

	doc[KeyAgentConfig] = map[string]interface{}{
		"model":        "gpt-4o",
		"systemPrompt": "Be terse.",
		"temperature":  0.2,
		"maxTokens":    float64(256),
	}
	cfg, ok := doc.AgentConfig()
	if !ok {
		t.Errorf("Stored config should decode")
	}
	if cfg.Model != "gpt-4o" || cfg.Temperature != 0.2 || cfg.MaxTokens != 256 {
		t.Errorf("Config decoded incorrectly: %+v", cfg)
	}
}

func TestAgentConfigPatchApply(t *testing.T) {
	model := "gpt-4o"
	temperature := 0.1
	patch := AgentConfigPatch{Model: &model, Temperature: &temperature}

	cfg := patch.Apply(DefaultAgentConfig)
	if cfg.Model != model || cfg.Temperature != temperature {
		t.Errorf("Patched fields not applied: %+v", cfg)
	}
	if cfg.SystemPrompt != DefaultAgentConfig.SystemPrompt || cfg.MaxTokens != DefaultAgentConfig.MaxTokens {
		t.Errorf("Unset fields should keep base values: %+v", cfg)
	}
}

func TestAgentConfigValidate(t *testing.T) {
	if err := DefaultAgentConfig.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}

	invalid := []AgentConfig{
		{Model: "gpt-4o", Temperature: 1.5, MaxTokens: 100},
		{Model: "gpt-4o", Temperature: -0.1, MaxTokens: 100},
		{Model: "gpt-4o", Temperature: 0.5, MaxTokens: 0},
		{Model: "", Temperature: 0.5, MaxTokens: 100},
	}
	for _, cfg := range invalid {
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig for %+v, got %v", cfg, err)
		}
	}
}
