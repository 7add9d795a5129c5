package llm

import "testing"

func TestNewKnownProviders(t *testing.T) {
	for _, provider := range []string{"claude", "openai", "kimi", "ollama", "groq", "mistral"} {
		client, err := New(Config{Provider: provider, APIKey: "test-key"})
		if err != nil {
			t.Errorf("New(%s) failed: %v", provider, err)
		}
		if client == nil {
			t.Errorf("New(%s) returned nil client", provider)
		}
	}
}

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New(Config{Provider: "carrier-pigeon"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestIsKnownProvider(t *testing.T) {
	for _, provider := range []string{"claude", "openai", "kimi", "ollama", "groq", "mistral", "deepseek"} {
		if !IsKnownProvider(provider) {
			t.Errorf("expected %q to be known", provider)
		}
	}
	for _, provider := range []string{"", "carrier-pigeon", "CLAUDE"} {
		if IsKnownProvider(provider) {
			t.Errorf("expected %q to be unknown", provider)
		}
	}
}
