package journalmem

import (
	"context"
	"database/sql"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/ncruces"
)

const entryColumns = `id, superjournal_id, user_id, persona, user_intent, persona_response,
	decision_arc, salience, starred, is_instruction, instruction_scope, private,
	file_name, file_type, created_at, updated_at`

// InsertEntry writes one compressed journal entry and, when an embedder is
// configured, an embedding of its decision-arc summary. An embedding failure
// never fails the insert: the entry is durable either way and the vector can
// be backfilled later.
func (s *Store) InsertEntry(ctx context.Context, e *Entry) (int64, error) {
	if e.Salience < MinSalience || e.Salience > MaxSalience {
		return 0, fmt.Errorf("salience %d out of range [%d,%d]", e.Salience, MinSalience, MaxSalience)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO journal (superjournal_id, user_id, persona, user_intent, persona_response,
		     decision_arc, salience, starred, is_instruction, instruction_scope, private,
		     file_name, file_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TurnID, nullableText(e.UserID), e.Persona, e.UserIntent, e.PersonaResponse,
		e.DecisionArc, e.Salience, e.Starred, e.IsInstruction, nullableText(e.InstructionScope),
		e.Private, nullableText(e.FileName), nullableText(e.FileType),
	)
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	if s.embedder != nil && e.DecisionArc != "" {
		embedding, err := s.embedder.Embed(ctx, e.DecisionArc)
		if err == nil && len(embedding) > 0 {
			blob, err := sqlite_vec.SerializeFloat32(embedding)
			if err == nil {
				_, _ = tx.ExecContext(ctx,
					`INSERT INTO vec_journal (entry_id, embedding) VALUES (?, ?)`,
					id, blob,
				)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	e.ID = id
	return id, nil
}

// InsertInstruction writes a freestanding behavioral instruction with no
// source turn. Scope is ScopeGlobal or a persona name.
func (s *Store) InsertInstruction(ctx context.Context, userID, scope, text string) (int64, error) {
	e := &Entry{
		UserID:           userID,
		Persona:          scope,
		DecisionArc:      text,
		Salience:         MaxSalience,
		IsInstruction:    true,
		InstructionScope: scope,
	}
	if scope == ScopeGlobal {
		e.Persona = ""
	}
	return s.InsertEntry(ctx, e)
}

// InsertFileSummary writes an uploaded-file summary entry keyed by
// filename/file-type instead of a conversation.
func (s *Store) InsertFileSummary(ctx context.Context, userID, fileName, fileType, summary string, salience int) (int64, error) {
	e := &Entry{
		UserID:      userID,
		DecisionArc: summary,
		Salience:    salience,
		FileName:    fileName,
		FileType:    fileType,
	}
	return s.InsertEntry(ctx, e)
}

// StarredEntries returns the user's pinned entries ordered by salience.
// Private entries surface only for their owning persona.
func (s *Store) StarredEntries(ctx context.Context, userID, persona string) ([]Entry, error) {
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM journal
		 WHERE user_id IS ? AND starred = 1 AND is_instruction = 0 AND file_name IS NULL
		   AND (private = 0 OR persona = ?)
		 ORDER BY salience DESC, created_at DESC`,
		nullableText(userID), persona,
	)
}

// InstructionEntries returns behavioral instructions scoped globally or to
// this persona, oldest first so long-standing directives render first.
func (s *Store) InstructionEntries(ctx context.Context, userID, persona string) ([]Entry, error) {
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM journal
		 WHERE user_id IS ? AND is_instruction = 1
		   AND (instruction_scope = ? OR instruction_scope IS NULL OR instruction_scope = ?)
		   AND (private = 0 OR persona = ?)
		 ORDER BY created_at ASC, id ASC`,
		nullableText(userID), ScopeGlobal, persona, persona,
	)
}

// RecentEntries returns the newest compressed entries for (user, persona).
func (s *Store) RecentEntries(ctx context.Context, userID, persona string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM journal
		 WHERE user_id IS ? AND persona = ? AND is_instruction = 0 AND file_name IS NULL
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		nullableText(userID), persona, limit,
	)
}

// HighSalienceEntries returns the user's most salient decision arcs across
// personas, excluding other personas' private entries.
func (s *Store) HighSalienceEntries(ctx context.Context, userID, persona string, minSalience, limit int) ([]Entry, error) {
	if minSalience <= 0 {
		minSalience = 7
	}
	if limit <= 0 {
		limit = 20
	}
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM journal
		 WHERE user_id IS ? AND salience >= ? AND is_instruction = 0 AND file_name IS NULL
		   AND (private = 0 OR persona = ?)
		 ORDER BY salience DESC, created_at DESC
		 LIMIT ?`,
		nullableText(userID), minSalience, persona, limit,
	)
}

// FileSummaries returns uploaded-file summary entries, newest first.
func (s *Store) FileSummaries(ctx context.Context, userID string) ([]Entry, error) {
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM journal
		 WHERE user_id IS ? AND file_name IS NOT NULL
		 ORDER BY created_at DESC, id DESC`,
		nullableText(userID),
	)
}

func (s *Store) DeleteEntry(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vec_journal WHERE entry_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM journal WHERE id = ?`, id)
	return err
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}

	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (*Entry, error) {
	var e Entry
	var turnID sql.NullInt64
	var userID, scope, fileName, fileType sql.NullString

	err := rows.Scan(&e.ID, &turnID, &userID, &e.Persona, &e.UserIntent, &e.PersonaResponse,
		&e.DecisionArc, &e.Salience, &e.Starred, &e.IsInstruction, &scope, &e.Private,
		&fileName, &fileType, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if turnID.Valid {
		id := turnID.Int64
		e.TurnID = &id
	}
	e.UserID = userID.String
	e.InstructionScope = scope.String
	e.FileName = fileName.String
	e.FileType = fileType.String

	return &e, nil
}
