package journalmem

import (
	"context"
	"database/sql"
)

// InsertTurn writes one raw exchange. Returns the new turn ID.
func (s *Store) InsertTurn(ctx context.Context, t *Turn) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO superjournal (user_id, persona, user_message, assistant_response, starred, private)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		nullableText(t.UserID), t.Persona, t.UserMessage, t.AssistantResponse, t.Starred, t.Private,
	)
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	t.ID = id
	return id, nil
}

// RecentTurns returns the newest turns for (user, persona), newest first.
func (s *Store) RecentTurns(ctx context.Context, userID, persona string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, persona, user_message, assistant_response, starred, private, created_at
		 FROM superjournal
		 WHERE user_id IS ? AND persona = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		nullableText(userID), persona, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var userID sql.NullString
		if err := rows.Scan(&t.ID, &userID, &t.Persona, &t.UserMessage, &t.AssistantResponse, &t.Starred, &t.Private, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.UserID = userID.String
		turns = append(turns, t)
	}

	return turns, rows.Err()
}

// GetTurn fetches one turn by ID. Returns nil when the turn does not exist.
func (s *Store) GetTurn(ctx context.Context, id int64) (*Turn, error) {
	var t Turn
	var userID sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, persona, user_message, assistant_response, starred, private, created_at
		 FROM superjournal WHERE id = ?`, id,
	).Scan(&t.ID, &userID, &t.Persona, &t.UserMessage, &t.AssistantResponse, &t.Starred, &t.Private, &t.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	t.UserID = userID.String
	return &t, nil
}

// DeleteTurn removes a turn; journal entries derived from it cascade. The
// vec0 table sits outside the foreign-key graph, so the cascaded entries'
// vectors are removed explicitly in the same transaction.
func (s *Store) DeleteTurn(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM vec_journal
		 WHERE entry_id IN (SELECT id FROM journal WHERE superjournal_id = ?)`, id)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM superjournal WHERE id = ?`, id); err != nil {
		return err
	}

	return tx.Commit()
}
