package store

import (
	"context"
	"fmt"

	"github.com/perbu/dockhand/pkg/dockhand"
)

type goldenRow struct {
	ID            string `db:"id"`
	Question      string `db:"question"`
	Answer        string `db:"answer"`
	Module        string `db:"module"`
	Embedding     []byte `db:"embedding"`
	InteractionID string `db:"interaction_id"`
	CreatedAt     int64  `db:"created_at"`
}

// InsertGolden promotes an answer into the golden answer cache
func (s *Store) InsertGolden(ctx context.Context, g *dockhand.GoldenAnswer) error {
	if len(g.Embedding) == 0 {
		return fmt.Errorf("golden answer %s has no embedding", g.ID)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO golden_answers
		(id, question, answer, module, embedding, interaction_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Question, g.Answer, g.Module, encodeVector(g.Embedding), g.InteractionID, toNanos(g.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting golden answer: %w", err)
	}
	return nil
}

// DeleteGoldenByInteraction removes the golden answers promoted from an
// interaction and returns how many were removed
func (s *Store) DeleteGoldenByInteraction(ctx context.Context, interactionID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM golden_answers WHERE interaction_id = ?`, interactionID)
	if err != nil {
		return 0, fmt.Errorf("deleting golden answers: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting golden answers: %w", err)
	}
	return int(n), nil
}

// GoldenCandidates returns golden answers, restricted to module when given
func (s *Store) GoldenCandidates(ctx context.Context, module string) ([]dockhand.GoldenAnswer, error) {
	query := `SELECT id, question, answer, module, embedding, interaction_id, created_at FROM golden_answers`
	var args []any
	if module != "" {
		query += ` WHERE module = ?`
		args = append(args, module)
	}
	query += ` ORDER BY created_at, id`

	var rows []goldenRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("loading golden answers: %w", err)
	}

	out := make([]dockhand.GoldenAnswer, 0, len(rows))
	for _, r := range rows {
		vec, err := decodeVector(r.Embedding)
		if err != nil {
			return nil, fmt.Errorf("golden answer %s: %w", r.ID, err)
		}
		out = append(out, dockhand.GoldenAnswer{
			ID:            r.ID,
			Question:      r.Question,
			Answer:        r.Answer,
			Module:        r.Module,
			Embedding:     vec,
			InteractionID: r.InteractionID,
			CreatedAt:     fromNanos(r.CreatedAt),
		})
	}
	return out, nil
}
