package journalmem

import (
	"context"
	"database/sql"
	"time"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Store struct {
	db       *sql.DB
	embedder Embedder
}

// Turn is one raw exchange (a superjournal entry). Immutable once written.
type Turn struct {
	ID                int64
	UserID            string // empty while auth is unimplemented
	Persona           string
	UserMessage       string
	AssistantResponse string
	Starred           bool
	Private           bool
	CreatedAt         time.Time
}

// Entry is a compressed journal record distilled from a turn, a freestanding
// behavioral instruction, or an uploaded-file summary.
type Entry struct {
	ID               int64
	TurnID           *int64 // nil for freestanding instructions and file summaries
	UserID           string
	Persona          string
	UserIntent       string
	PersonaResponse  string
	DecisionArc      string
	Salience         int // 1..10
	Starred          bool
	IsInstruction    bool
	InstructionScope string // "global", a persona name, or empty
	Private          bool
	FileName         string
	FileType         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ScopeGlobal marks an instruction that applies to every persona.
const ScopeGlobal = "global"

const (
	MinSalience = 1
	MaxSalience = 10
)
