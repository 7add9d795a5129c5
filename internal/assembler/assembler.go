// Package assembler selects and packs layered memory into a token-budgeted
// context document for one turn. Tiers are queried in fixed priority order
// and packed greedily; a failing tier degrades to empty instead of aborting
// the others.
package assembler

import (
	"context"
	"strings"

	"github.com/bowerhall/chorus/internal/logger"
	"github.com/bowerhall/chorus/pkg/journalmem"
)

// Section headings are a stable contract with downstream consumers; do not
// rename them.
const (
	SectionWorkingMemory = "WORKING MEMORY" // reserved: tier 1 renders as conversation history, not a section
	SectionStarred       = "STARRED MESSAGES"
	SectionInstructions  = "BEHAVIORAL INSTRUCTIONS"
	SectionRecent        = "RECENT MEMORY"
	SectionArcs          = "DECISION ARCS"
	SectionFiles         = "UPLOADED FILES"
)

// Tier names used in statistics.
const (
	TierHistory      = "history"
	TierStarred      = "starred"
	TierInstructions = "instructions"
	TierRecent       = "recent"
	TierArcs         = "arcs"
	TierFiles        = "files"
)

const (
	recentTurnLimit   = 5
	recentEntryLimit  = 100
	highSalienceMin   = 7
	highSalienceLimit = 20
)

// Store is the read side of the memory store: one bounded, ordered query per
// tier. journalmem.Store satisfies it.
type Store interface {
	RecentTurns(ctx context.Context, userID, persona string, limit int) ([]journalmem.Turn, error)
	StarredEntries(ctx context.Context, userID, persona string) ([]journalmem.Entry, error)
	InstructionEntries(ctx context.Context, userID, persona string) ([]journalmem.Entry, error)
	RecentEntries(ctx context.Context, userID, persona string, limit int) ([]journalmem.Entry, error)
	HighSalienceEntries(ctx context.Context, userID, persona string, minSalience, limit int) ([]journalmem.Entry, error)
	FileSummaries(ctx context.Context, userID string) ([]journalmem.Entry, error)
}

type TierStats struct {
	Queried  int
	Included int
	Tokens   int
}

type Stats struct {
	Budget     int
	TokensUsed int
	Tiers      map[string]TierStats
}

// Context is the ephemeral result of one assembly. Never persisted.
type Context struct {
	// Text is the rendered, budget-gated document: one labeled section per
	// non-empty tier, in priority order.
	Text string
	// History is tier 1 in chronological order, rendered by the caller as
	// literal conversation turns rather than budgeted prose.
	History []journalmem.Turn
	Stats   Stats
}

type Assembler struct {
	store Store
}

func New(store Store) *Assembler {
	return &Assembler{store: store}
}

// Assemble queries all tiers for (user, persona) and packs them into a
// document bounded by 40% of the model's context window. An empty store and
// an empty userID are both valid; a tier read failure degrades that tier to
// empty.
func (a *Assembler) Assemble(ctx context.Context, userID, persona string, contextWindow int) *Context {
	budget := contextWindow * 2 / 5

	result := &Context{
		Stats: Stats{
			Budget: budget,
			Tiers:  make(map[string]TierStats),
		},
	}

	// tier 1: conversation history, bounded by item count, not the budget
	turns := tierTurns(TierHistory, func() ([]journalmem.Turn, error) {
		return a.store.RecentTurns(ctx, userID, persona, recentTurnLimit)
	})
	result.History = reverseTurns(turns)
	result.Stats.Tiers[TierHistory] = TierStats{Queried: len(turns), Included: len(turns)}

	remaining := budget
	var sections []string

	pack := func(tier, heading string, entries []journalmem.Entry, render func(journalmem.Entry) string, unconditional bool) {
		section, stat := packSection(heading, entries, render, &remaining, unconditional)
		result.Stats.Tiers[tier] = stat
		result.Stats.TokensUsed += stat.Tokens
		if section != "" {
			sections = append(sections, section)
		}
	}

	starred := tierEntries(TierStarred, func() ([]journalmem.Entry, error) {
		return a.store.StarredEntries(ctx, userID, persona)
	})
	pack(TierStarred, SectionStarred, starred, renderStarred, false)

	// instructions are never dropped, but their cost still charges the
	// shared budget ahead of the lower tiers
	instructions := tierEntries(TierInstructions, func() ([]journalmem.Entry, error) {
		return a.store.InstructionEntries(ctx, userID, persona)
	})
	pack(TierInstructions, SectionInstructions, instructions, renderInstruction, true)

	recent := tierEntries(TierRecent, func() ([]journalmem.Entry, error) {
		return a.store.RecentEntries(ctx, userID, persona, recentEntryLimit)
	})
	pack(TierRecent, SectionRecent, recent, renderRecent, false)

	arcs := tierEntries(TierArcs, func() ([]journalmem.Entry, error) {
		return a.store.HighSalienceEntries(ctx, userID, persona, highSalienceMin, highSalienceLimit)
	})
	pack(TierArcs, SectionArcs, arcs, renderArc, false)

	files := tierEntries(TierFiles, func() ([]journalmem.Entry, error) {
		return a.store.FileSummaries(ctx, userID)
	})
	pack(TierFiles, SectionFiles, files, renderFile, false)

	result.Text = strings.Join(sections, "\n")
	return result
}

// packSection greedily appends rendered entries while they fit the shared
// budget. A miss does not stop the scan: smaller later items from the same
// tier can still pack. Unconditional tiers include every item regardless of
// remaining budget but still charge it. Empty tiers produce no heading.
func packSection(heading string, entries []journalmem.Entry, render func(journalmem.Entry) string, remaining *int, unconditional bool) (string, TierStats) {
	stat := TierStats{Queried: len(entries)}
	headCost := EstimateTokens(heading + "\n")

	var lines []string
	for _, e := range entries {
		body := render(e)
		if body == "" {
			continue
		}

		line := "- " + body
		cost := EstimateTokens(line + "\n")

		need := cost
		if len(lines) == 0 {
			need += headCost
		}

		if !unconditional && need > *remaining {
			continue
		}

		if len(lines) == 0 {
			stat.Tokens += headCost
			*remaining -= headCost
		}
		lines = append(lines, line)
		stat.Tokens += cost
		stat.Included++
		*remaining -= cost
	}

	if *remaining < 0 {
		*remaining = 0
	}

	if len(lines) == 0 {
		return "", stat
	}

	return heading + "\n" + strings.Join(lines, "\n") + "\n", stat
}

// tierEntries isolates one tier's read failure: the error is logged and the
// tier contributes zero items instead of aborting assembly.
func tierEntries(tier string, query func() ([]journalmem.Entry, error)) []journalmem.Entry {
	entries, err := query()
	if err != nil {
		logger.Warn("tier query failed, treating as empty", "tier", tier, "error", err)
		return nil
	}
	return entries
}

func tierTurns(tier string, query func() ([]journalmem.Turn, error)) []journalmem.Turn {
	turns, err := query()
	if err != nil {
		logger.Warn("tier query failed, treating as empty", "tier", tier, "error", err)
		return nil
	}
	return turns
}

// reverseTurns flips a newest-first query result into chronological order
// for rendering as conversation history.
func reverseTurns(turns []journalmem.Turn) []journalmem.Turn {
	if len(turns) == 0 {
		return nil
	}
	out := make([]journalmem.Turn, len(turns))
	for i, t := range turns {
		out[len(turns)-1-i] = t
	}
	return out
}
