package config

import (
	"testing"
)

func TestContextWindowExactMatch(t *testing.T) {
	if w := ContextWindow("gpt-4o-mini"); w != 128000 {
		t.Errorf("expected 128000, got %d", w)
	}
}

func TestContextWindowPrefixMatch(t *testing.T) {
	if w := ContextWindow("claude-3-5-haiku-20241022"); w != 200000 {
		t.Errorf("expected 200000 for prefix match, got %d", w)
	}

	// longest prefix wins
	if w := ContextWindow("kimi-k2.5:cloud"); w != 262144 {
		t.Errorf("expected 262144, got %d", w)
	}
}

func TestContextWindowUnknownModel(t *testing.T) {
	if w := ContextWindow("some-model-nobody-knows"); w != DefaultContextWindow {
		t.Errorf("expected default %d, got %d", DefaultContextWindow, w)
	}
}

func TestContextWindowEnvOverride(t *testing.T) {
	t.Setenv("CHORUS_CONTEXT_WINDOW", "4096")

	if w := ContextWindow("gpt-4o"); w != 4096 {
		t.Errorf("expected override 4096, got %d", w)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("CHORUS_ESSENCE", "")
	t.Setenv("CHORUS_MEMORY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.EssencePath != "essence" {
		t.Errorf("expected default essence path, got %q", cfg.EssencePath)
	}
	if cfg.MemoryPath != "chorus.db" {
		t.Errorf("expected default memory path, got %q", cfg.MemoryPath)
	}
	if cfg.LLM.Provider != "claude" {
		t.Errorf("expected claude default, got %q", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Errorf("expected api key from ANTHROPIC_API_KEY")
	}
	if cfg.Distiller.Provider != "claude" {
		t.Errorf("expected distiller to default to main provider, got %q", cfg.Distiller.Provider)
	}
}

func TestLoadMissingKey(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when OPENAI_API_KEY is missing")
	}
}

func TestLoadGenericProviderKey(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "groq")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.LLM.APIKey != "gsk-test" {
		t.Errorf("expected api key from GROQ_API_KEY, got %q", cfg.LLM.APIKey)
	}
}

func TestLoadGenericProviderKeyMissing(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "mistral")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("MISTRAL_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when MISTRAL_API_KEY is missing")
	}
}
