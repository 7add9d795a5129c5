package journalmem

import (
	"context"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/ncruces"
)

// MissingEmbeddings returns entries that have a decision arc but no stored
// vector, oldest first. These are entries whose embedding failed at insert
// time.
func (s *Store) MissingEmbeddings(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM journal
		 WHERE decision_arc != ''
		   AND id NOT IN (SELECT entry_id FROM vec_journal)
		 ORDER BY created_at ASC, id ASC
		 LIMIT ?`,
		limit,
	)
}

// BackfillEmbeddings embeds entries whose vector write failed earlier.
// Returns the number of vectors written. Without an embedder it is a no-op.
func (s *Store) BackfillEmbeddings(ctx context.Context, limit int) (int, error) {
	if s.embedder == nil {
		return 0, nil
	}

	entries, err := s.MissingEmbeddings(ctx, limit)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, e := range entries {
		embedding, err := s.embedder.Embed(ctx, e.DecisionArc)
		if err != nil {
			// stop on the first failure; the embedder is likely down
			return written, fmt.Errorf("embed entry %d: %w", e.ID, err)
		}

		blob, err := sqlite_vec.SerializeFloat32(embedding)
		if err != nil {
			return written, err
		}

		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO vec_journal (entry_id, embedding) VALUES (?, ?)`,
			e.ID, blob,
		); err != nil {
			return written, err
		}
		written++
	}

	return written, nil
}
