package agent

import (
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// DefaultFallbackMessage is the canonical apology sent when reply generation
// fails. Non-English conversations get the localized variant.
const DefaultFallbackMessage = "I'm sorry, I'm having trouble responding right now. Please try again in a few minutes."

// LoadLocalizer builds a localizer for agent-facing canned replies
func LoadLocalizer(lang string) *i18n.Localizer {
	bundle := i18n.NewBundle(language.English)
	bundle.AddMessages(language.English, &i18n.Message{
		ID:    "agent-fallback",
		Other: DefaultFallbackMessage,
	}, &i18n.Message{
		ID:    "agent-disabled",
		Other: "The automated assistant is no longer active on this conversation.",
	})
	bundle.AddMessages(language.Spanish, &i18n.Message{
		ID:    "agent-fallback",
		Other: "Lo siento, ahora mismo no puedo responder. Inténtalo de nuevo en unos minutos.",
	}, &i18n.Message{
		ID:    "agent-disabled",
		Other: "El asistente automático ya no está activo en esta conversación.",
	})
	if lang != "" {
		return i18n.NewLocalizer(bundle, lang, "en")
	}
	return i18n.NewLocalizer(bundle, "en")
}

// FallbackMessage returns the apology for a conversation's language
func FallbackMessage(lang string) string {
	return LoadLocalizer(lang).MustLocalize(&i18n.LocalizeConfig{
		MessageID: "agent-fallback",
	})
}
