// Package pipeline runs one full conversational turn: assemble memory, reason
// privately, stream the reply, then distill the exchange back into the
// journal. The write-back is what makes the next turn's memory richer than
// this one's.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bowerhall/chorus/internal/assembler"
	"github.com/bowerhall/chorus/internal/llm"
	"github.com/bowerhall/chorus/internal/logger"
	"github.com/bowerhall/chorus/internal/persona"
	"github.com/bowerhall/chorus/pkg/journalmem"
)

// Store is the write side of the memory store used after a completed turn.
// journalmem.Store satisfies it.
type Store interface {
	InsertTurn(ctx context.Context, turn *journalmem.Turn) (int64, error)
	InsertEntry(ctx context.Context, entry *journalmem.Entry) (int64, error)
}

type Config struct {
	LLM       llm.LLM
	Distiller llm.LLM
	Store     Store
	Assembler *assembler.Assembler
	Profiles  *persona.Profiles
	// BaseSystem is the shared system-prompt preamble placed ahead of the
	// persona fragment.
	BaseSystem string
	// ContextWindow is the active model's window in tokens; the assembler
	// takes its budget from it.
	ContextWindow int
}

// Result reports what one turn produced. EntryID is zero when distillation
// failed; the raw turn is persisted regardless.
type Result struct {
	TurnID   int64
	EntryID  int64
	Response string
	Stats    assembler.Stats
}

type Pipeline struct {
	cfg Config
}

func New(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Run executes one turn end to end. The visible reply is streamed through
// onChunk; the returned Result carries the accumulated text. Nothing is
// persisted unless the stream completes: a generation failure or a
// cancellation leaves the store untouched. A distillation failure is
// non-fatal and costs only the journal entry.
func (p *Pipeline) Run(ctx context.Context, userID string, pers persona.Persona, message string, onChunk llm.ChunkFunc) (*Result, error) {
	if !persona.IsValid(pers) {
		return nil, fmt.Errorf("unknown persona: %s", pers)
	}
	prof, err := p.cfg.Profiles.Get(pers)
	if err != nil {
		return nil, err
	}

	callID := uuid.NewString()

	assembled := p.cfg.Assembler.Assemble(ctx, userID, string(pers), p.cfg.ContextWindow)
	logger.Debug("context assembled",
		"call_id", callID,
		"persona", pers,
		"budget", assembled.Stats.Budget,
		"tokens_used", assembled.Stats.TokensUsed,
		"history_turns", len(assembled.History))

	system := buildSystem(p.cfg.BaseSystem, prof, assembled.Text)
	messages := buildMessages(assembled.History, message)

	reasoning, err := p.cfg.LLM.Chat(ctx, reasonRequest(system, messages))
	if err != nil {
		return nil, fmt.Errorf("reasoning call: %w", err)
	}
	logger.Debug("reasoning complete", "call_id", callID, "chars", len(reasoning))

	response, err := p.cfg.LLM.ChatStream(ctx, respondRequest(system, messages, reasoning), onChunk)
	if err != nil {
		return nil, fmt.Errorf("response stream: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	turn := &journalmem.Turn{
		UserID:            userID,
		Persona:           string(pers),
		UserMessage:       message,
		AssistantResponse: response,
		Private:           pers.IsPrivate(),
	}
	turnID, err := p.cfg.Store.InsertTurn(ctx, turn)
	if err != nil {
		return nil, fmt.Errorf("persist turn: %w", err)
	}

	result := &Result{
		TurnID:   turnID,
		Response: response,
		Stats:    assembled.Stats,
	}

	distillation, err := p.distill(ctx, message, response)
	if err != nil {
		logger.Error("distillation failed, keeping raw turn only",
			"call_id", callID, "turn_id", turnID, "error", err)
		return result, nil
	}

	entry := &journalmem.Entry{
		TurnID:          &turnID,
		UserID:          userID,
		Persona:         string(pers),
		UserIntent:      distillation.UserIntentSummary,
		PersonaResponse: distillation.PersonaResponseSummary,
		DecisionArc:     distillation.DecisionArcSummary,
		Salience:        distillation.SalienceScore,
		Private:         pers.IsPrivate(),
	}
	entryID, err := p.cfg.Store.InsertEntry(ctx, entry)
	if err != nil {
		logger.Error("journal entry insert failed, keeping raw turn only",
			"call_id", callID, "turn_id", turnID, "error", err)
		return result, nil
	}

	result.EntryID = entryID
	logger.Debug("turn persisted",
		"call_id", callID, "turn_id", turnID, "entry_id", entryID,
		"salience", distillation.SalienceScore)
	return result, nil
}

func (p *Pipeline) distill(ctx context.Context, userMessage, response string) (*Distillation, error) {
	out, err := p.cfg.Distiller.Chat(ctx, llm.Request{
		System: "You compress conversations into journal records. Respond with JSON only.",
		Messages: []llm.Message{
			{Role: "user", Content: fmt.Sprintf(distillPrompt, userMessage, response)},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, err
	}
	return parseDistillation(out)
}
