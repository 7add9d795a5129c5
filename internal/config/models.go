package config

import (
	"os"
	"strconv"
	"strings"
)

// DefaultContextWindow is used for models the registry doesn't know.
// Deliberately small so the assembler stays conservative.
const DefaultContextWindow = 8192

// modelContextWindows maps model IDs (and ID prefixes) to their context
// window size in tokens.
var modelContextWindows = map[string]int{
	"claude-sonnet-4-20250514": 200000,
	"claude-opus-4-5-20251101": 200000,
	"claude-3-5-haiku":         200000,
	"gpt-4o":                   128000,
	"gpt-4o-mini":              128000,
	"kimi-k2-0711-preview":     131072,
	"kimi-k2.5":                262144,
	"qwen2":                    32768,
	"llama3":                   8192,
	"mistral":                  32768,
}

// ContextWindow resolves the context window for a model. Exact match first,
// then longest known prefix, then the default. CHORUS_CONTEXT_WINDOW
// overrides everything.
func ContextWindow(model string) int {
	if override, err := strconv.Atoi(os.Getenv("CHORUS_CONTEXT_WINDOW")); err == nil && override > 0 {
		return override
	}

	if window, ok := modelContextWindows[model]; ok {
		return window
	}

	best := 0
	window := DefaultContextWindow
	for prefix, w := range modelContextWindows {
		if strings.HasPrefix(model, prefix) && len(prefix) > best {
			best = len(prefix)
			window = w
		}
	}

	return window
}
