package agent

import (
	"strings"
	"testing"
)

func TestFallbackMessage(t *testing.T) {
	if FallbackMessage("") != DefaultFallbackMessage {
		t.Errorf("Empty language should use the English fallback")
	}
	if FallbackMessage("en") != DefaultFallbackMessage {
		t.Errorf("English fallback mismatch")
	}
	if !strings.HasPrefix(FallbackMessage("es"), "Lo siento") {
		t.Errorf("Spanish fallback not localized: %q", FallbackMessage("es"))
	}
	if FallbackMessage("fr") != DefaultFallbackMessage {
		t.Errorf("Unsupported languages should fall back to English")
	}
}
