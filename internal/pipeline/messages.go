package pipeline

import (
	"strings"

	"github.com/bowerhall/chorus/internal/llm"
	"github.com/bowerhall/chorus/internal/persona"
	"github.com/bowerhall/chorus/pkg/journalmem"
)

// reasonDirective is appended to the system prompt for the hidden reasoning
// call. Its output is never routed to the caller.
const reasonDirective = `Before answering, think through the exchange privately: what the user actually needs, which past decisions and instructions from your memory apply, and how this persona should respond. Write out that reasoning. It will never be shown to the user.`

// refineDirective asks for the final user-facing answer, seeded with the
// hidden reasoning as a prior assistant turn.
const refineDirective = `Using your private reasoning above, write the final reply to the user. Output only the reply itself.`

// buildSystem composes the system prompt: base instructions, the persona
// profile, then the assembled memory tiers.
func buildSystem(base string, prof persona.Profile, memoryDoc string) string {
	var b strings.Builder

	if base != "" {
		b.WriteString(base)
		b.WriteString("\n\n")
	}

	b.WriteString(prof.SystemFragment())

	if memoryDoc != "" {
		b.WriteString("\n\n# MEMORY\n\n")
		b.WriteString(memoryDoc)
	}

	return b.String()
}

// buildMessages renders the conversation history as literal turns followed by
// the new user query.
func buildMessages(history []journalmem.Turn, userMessage string) []llm.Message {
	var messages []llm.Message

	for _, t := range history {
		messages = append(messages, llm.Message{Role: "user", Content: t.UserMessage})
		messages = append(messages, llm.Message{Role: "assistant", Content: t.AssistantResponse})
	}

	messages = append(messages, llm.Message{Role: "user", Content: userMessage})
	return messages
}

// reasonRequest is the hidden-reasoning call: the full message list with the
// reasoning directive folded into the system prompt.
func reasonRequest(system string, messages []llm.Message) llm.Request {
	return llm.Request{
		System:      system + "\n\n" + reasonDirective,
		Messages:    messages,
		Temperature: 0.7,
	}
}

// respondRequest is the user-visible call: the same message list plus the
// hidden reasoning as an assistant turn and the refine instruction.
func respondRequest(system string, messages []llm.Message, reasoning string) llm.Request {
	seeded := make([]llm.Message, 0, len(messages)+2)
	seeded = append(seeded, messages...)
	seeded = append(seeded, llm.Message{Role: "assistant", Content: reasoning})
	seeded = append(seeded, llm.Message{Role: "user", Content: refineDirective})

	return llm.Request{
		System:      system,
		Messages:    seeded,
		Temperature: 0.7,
	}
}
