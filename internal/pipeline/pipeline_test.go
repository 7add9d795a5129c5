package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bowerhall/chorus/internal/assembler"
	"github.com/bowerhall/chorus/internal/llm"
	"github.com/bowerhall/chorus/internal/persona"
	"github.com/bowerhall/chorus/pkg/journalmem"
)

type fakeLLM struct {
	chatOut   string
	chatErr   error
	chatCalls int
	lastChat  llm.Request

	streamChunks []string
	streamErr    error
	streamCalls  int
	lastStream   llm.Request
}

func (f *fakeLLM) Chat(ctx context.Context, req llm.Request) (string, error) {
	f.chatCalls++
	f.lastChat = req
	return f.chatOut, f.chatErr
}

func (f *fakeLLM) ChatStream(ctx context.Context, req llm.Request, onChunk llm.ChunkFunc) (string, error) {
	f.streamCalls++
	f.lastStream = req

	var b strings.Builder
	for _, chunk := range f.streamChunks {
		if err := onChunk(chunk); err != nil {
			return "", err
		}
		b.WriteString(chunk)
	}
	if f.streamErr != nil {
		return "", f.streamErr
	}
	return b.String(), nil
}

const goodDistillation = `{
	"user_intent_summary": "asked whether to take the new role",
	"persona_response_summary": "weighed growth against stability and leaned toward yes",
	"decision_arc_summary": "decided to accept the staff engineer offer at Meridian",
	"salience_score": 9
}`

type testRig struct {
	store     *journalmem.Store
	main      *fakeLLM
	distiller *fakeLLM
	pipeline  *Pipeline
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	store, err := journalmem.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	main := &fakeLLM{
		chatOut:      "The user has been circling this decision for weeks; anchor on the commitment.",
		streamChunks: []string{"Take ", "the ", "role."},
	}
	distiller := &fakeLLM{chatOut: goodDistillation}

	p := New(Config{
		LLM:           main,
		Distiller:     distiller,
		Store:         store,
		Assembler:     assembler.New(store),
		Profiles:      persona.DefaultProfiles(),
		BaseSystem:    "You are one voice of a personal journaling assistant.",
		ContextWindow: 8192,
	})

	return &testRig{store: store, main: main, distiller: distiller, pipeline: p}
}

func (r *testRig) counts(t *testing.T, pers string) (turns, entries int) {
	t.Helper()
	ctx := context.Background()

	ts, err := r.store.RecentTurns(ctx, "u1", pers, 50)
	if err != nil {
		t.Fatalf("count turns: %v", err)
	}
	es, err := r.store.RecentEntries(ctx, "u1", pers, 50)
	if err != nil {
		t.Fatalf("count entries: %v", err)
	}
	return len(ts), len(es)
}

func TestRunHappyPath(t *testing.T) {
	rig := newTestRig(t)

	var chunks []string
	result, err := rig.pipeline.Run(context.Background(), "u1", persona.Sage, "should I take the role?", func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Response != "Take the role." {
		t.Errorf("wrong response: %q", result.Response)
	}
	if strings.Join(chunks, "") != result.Response {
		t.Errorf("chunks %v do not accumulate to %q", chunks, result.Response)
	}
	if result.TurnID == 0 || result.EntryID == 0 {
		t.Errorf("expected turn and entry persisted, got turn=%d entry=%d", result.TurnID, result.EntryID)
	}

	turns, entries := rig.counts(t, "sage")
	if turns != 1 || entries != 1 {
		t.Fatalf("expected 1 turn and 1 entry, got %d/%d", turns, entries)
	}

	entry, err := rig.store.RecentEntries(context.Background(), "u1", "sage", 1)
	if err != nil || len(entry) != 1 {
		t.Fatalf("read entry back: %v", err)
	}
	if entry[0].Salience != 9 {
		t.Errorf("wrong salience: %d", entry[0].Salience)
	}
	if entry[0].TurnID == nil || *entry[0].TurnID != result.TurnID {
		t.Error("entry not linked to its turn")
	}
	if !strings.Contains(entry[0].DecisionArc, "Meridian") {
		t.Errorf("wrong decision arc: %q", entry[0].DecisionArc)
	}
}

func TestRunUnknownPersona(t *testing.T) {
	rig := newTestRig(t)

	_, err := rig.pipeline.Run(context.Background(), "u1", persona.Persona("zeus"), "hi", func(string) error { return nil })
	if err == nil {
		t.Fatal("expected error for unknown persona")
	}
	if rig.main.chatCalls != 0 || rig.main.streamCalls != 0 {
		t.Error("no generation call should happen for an unknown persona")
	}
}

func TestRunReasonFailureNothingPersisted(t *testing.T) {
	rig := newTestRig(t)
	rig.main.chatErr = errors.New("provider down")

	_, err := rig.pipeline.Run(context.Background(), "u1", persona.Sage, "hi", func(string) error { return nil })
	if err == nil {
		t.Fatal("expected error")
	}
	if turns, entries := rig.counts(t, "sage"); turns != 0 || entries != 0 {
		t.Errorf("expected nothing persisted, got %d/%d", turns, entries)
	}
	if rig.main.streamCalls != 0 {
		t.Error("response stream should not start after a reasoning failure")
	}
}

func TestRunStreamFailureNothingPersisted(t *testing.T) {
	rig := newTestRig(t)
	rig.main.streamErr = errors.New("connection reset mid-stream")

	var chunks []string
	_, err := rig.pipeline.Run(context.Background(), "u1", persona.Sage, "hi", func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(chunks) == 0 {
		t.Error("expected partial chunks before the failure")
	}
	if turns, entries := rig.counts(t, "sage"); turns != 0 || entries != 0 {
		t.Errorf("truncated stream must persist nothing, got %d/%d", turns, entries)
	}
	if rig.distiller.chatCalls != 0 {
		t.Error("distillation should not run after a failed stream")
	}
}

func TestRunCancellationPreventsPersist(t *testing.T) {
	rig := newTestRig(t)
	ctx, cancel := context.WithCancel(context.Background())

	// the caller abandons the stream after the first chunk; even if the
	// provider reports a clean finish, nothing may be persisted
	_, err := rig.pipeline.Run(ctx, "u1", persona.Sage, "hi", func(string) error {
		cancel()
		return nil
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if turns, entries := rig.counts(t, "sage"); turns != 0 || entries != 0 {
		t.Errorf("abandoned turn must persist nothing, got %d/%d", turns, entries)
	}
}

func TestRunDistillFailureKeepsRawTurn(t *testing.T) {
	rig := newTestRig(t)
	rig.distiller.chatOut = "sorry, I can't summarize that"

	result, err := rig.pipeline.Run(context.Background(), "u1", persona.Sage, "hi", func(string) error { return nil })
	if err != nil {
		t.Fatalf("distillation failure must not fail the turn: %v", err)
	}
	if result.TurnID == 0 {
		t.Error("raw turn should still be persisted")
	}
	if result.EntryID != 0 {
		t.Errorf("expected no journal entry, got id %d", result.EntryID)
	}

	if turns, entries := rig.counts(t, "sage"); turns != 1 || entries != 0 {
		t.Errorf("expected 1 turn and 0 entries, got %d/%d", turns, entries)
	}
}

func TestRunDistillerErrorKeepsRawTurn(t *testing.T) {
	rig := newTestRig(t)
	rig.distiller.chatErr = errors.New("distiller unavailable")

	result, err := rig.pipeline.Run(context.Background(), "u1", persona.Sage, "hi", func(string) error { return nil })
	if err != nil {
		t.Fatalf("distiller outage must not fail the turn: %v", err)
	}
	if result.EntryID != 0 {
		t.Error("expected no journal entry")
	}
	if turns, entries := rig.counts(t, "sage"); turns != 1 || entries != 0 {
		t.Errorf("expected 1 turn and 0 entries, got %d/%d", turns, entries)
	}
}

func TestRunHiddenReasoningNotStreamed(t *testing.T) {
	rig := newTestRig(t)

	var streamed strings.Builder
	result, err := rig.pipeline.Run(context.Background(), "u1", persona.Sage, "hi", func(chunk string) error {
		streamed.WriteString(chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(streamed.String(), "circling this decision") {
		t.Error("hidden reasoning leaked into the stream")
	}
	if strings.Contains(result.Response, "circling this decision") {
		t.Error("hidden reasoning leaked into the response")
	}

	// the respond call must be seeded with the reasoning as an assistant turn
	msgs := rig.main.lastStream.Messages
	found := false
	for _, m := range msgs {
		if m.Role == "assistant" && strings.Contains(m.Content, "circling this decision") {
			found = true
		}
	}
	if !found {
		t.Error("respond call missing the reasoning assistant turn")
	}
}

func TestRunFeedbackLoop(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	if _, err := rig.pipeline.Run(ctx, "u1", persona.Sage, "should I take the role?", func(string) error { return nil }); err != nil {
		t.Fatalf("first turn: %v", err)
	}

	if _, err := rig.pipeline.Run(ctx, "u1", persona.Sage, "what did we decide?", func(string) error { return nil }); err != nil {
		t.Fatalf("second turn: %v", err)
	}

	// the second turn's prompt must carry what the first turn wrote back
	if !strings.Contains(rig.main.lastChat.System, "Meridian") {
		t.Error("second turn's memory is missing the first turn's journal entry")
	}
	carried := false
	for _, m := range rig.main.lastChat.Messages {
		if m.Role == "user" && m.Content == "should I take the role?" {
			carried = true
		}
	}
	if !carried {
		t.Error("second turn's history is missing the first exchange")
	}
}

func TestRunPrivatePersonaEntriesStayPrivate(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	if _, err := rig.pipeline.Run(ctx, "u1", persona.Vesper, "something confidential", func(string) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// salience 9 would normally cross persona boundaries; private entries may not
	forSage, err := rig.store.HighSalienceEntries(ctx, "u1", "sage", 7, 20)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(forSage) != 0 {
		t.Errorf("private entry leaked to another persona: %d entries", len(forSage))
	}

	forVesper, err := rig.store.HighSalienceEntries(ctx, "u1", "vesper", 7, 20)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(forVesper) != 1 {
		t.Errorf("private entry should be visible to its own persona, got %d", len(forVesper))
	}
}
