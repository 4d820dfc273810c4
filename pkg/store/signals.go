package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/perbu/dockhand/pkg/dockhand"
)

type interactionRow struct {
	ID            string  `db:"id"`
	Question      string  `db:"question"`
	Answer        string  `db:"answer"`
	Module        string  `db:"module"`
	Embedding     []byte  `db:"embedding"`
	TopSimilarity float64 `db:"top_similarity"`
	NotFound      bool    `db:"not_found"`
	Rating        int     `db:"rating"`
	CreatedAt     int64   `db:"created_at"`
}

func (r interactionRow) toInteraction() (dockhand.Interaction, error) {
	vec, err := decodeVector(r.Embedding)
	if err != nil {
		return dockhand.Interaction{}, fmt.Errorf("interaction %s: %w", r.ID, err)
	}
	return dockhand.Interaction{
		ID:            r.ID,
		Question:      r.Question,
		Answer:        r.Answer,
		Module:        r.Module,
		Embedding:     vec,
		TopSimilarity: r.TopSimilarity,
		NotFound:      r.NotFound,
		Rating:        r.Rating,
		CreatedAt:     fromNanos(r.CreatedAt),
	}, nil
}

type feedbackRow struct {
	ID        string `db:"id"`
	Type      string `db:"type"`
	Category  string `db:"category"`
	Urgency   string `db:"urgency"`
	Message   string `db:"message"`
	Dismissed bool   `db:"dismissed"`
	Embedding []byte `db:"embedding"`
	CreatedAt int64  `db:"created_at"`
}

func (r feedbackRow) toFeedback() (dockhand.Feedback, error) {
	vec, err := decodeVector(r.Embedding)
	if err != nil {
		return dockhand.Feedback{}, fmt.Errorf("feedback %s: %w", r.ID, err)
	}
	return dockhand.Feedback{
		ID:        r.ID,
		Type:      r.Type,
		Category:  r.Category,
		Urgency:   r.Urgency,
		Message:   r.Message,
		Dismissed: r.Dismissed,
		Embedding: vec,
		CreatedAt: fromNanos(r.CreatedAt),
	}, nil
}

const interactionColumns = `id, question, answer, module, embedding, top_similarity, not_found, rating, created_at`

// InsertInteraction records an answered question
func (s *Store) InsertInteraction(ctx context.Context, in *dockhand.Interaction) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO interactions (`+interactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Question, in.Answer, in.Module, encodeVector(in.Embedding),
		in.TopSimilarity, boolInt(in.NotFound), in.Rating, toNanos(in.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting interaction: %w", err)
	}
	return nil
}

// GetInteraction loads one interaction
func (s *Store) GetInteraction(ctx context.Context, id string) (*dockhand.Interaction, error) {
	var row interactionRow
	err := s.db.GetContext(ctx, &row, `SELECT `+interactionColumns+` FROM interactions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("interaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading interaction: %w", err)
	}
	in, err := row.toInteraction()
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// SetInteractionRating stores -1, 0 or 1 for an interaction
func (s *Store) SetInteractionRating(ctx context.Context, id string, rating int) error {
	return s.updateOne(ctx, "interaction", id, `UPDATE interactions SET rating = ? WHERE id = ?`, rating, id)
}

// SetInteractionEmbedding back-fills the question embedding
func (s *Store) SetInteractionEmbedding(ctx context.Context, id string, vec []float32) error {
	return s.updateOne(ctx, "interaction", id, `UPDATE interactions SET embedding = ? WHERE id = ?`, encodeVector(vec), id)
}

// QuestionSignals returns interactions in [start, end] that went unanswered:
// negatively rated, flagged not found, or with a best retrieval similarity
// below lowSimilarity. Newest first.
func (s *Store) QuestionSignals(ctx context.Context, start, end time.Time, lowSimilarity float64) ([]dockhand.Interaction, error) {
	var rows []interactionRow
	err := s.db.SelectContext(ctx, &rows, `SELECT `+interactionColumns+` FROM interactions
		WHERE created_at >= ? AND created_at <= ?
			AND (rating < 0 OR not_found = 1 OR top_similarity < ?)
		ORDER BY created_at DESC, id`,
		toNanos(start), toNanos(end), lowSimilarity)
	if err != nil {
		return nil, fmt.Errorf("querying question signals: %w", err)
	}

	out := make([]dockhand.Interaction, 0, len(rows))
	for _, r := range rows {
		in, err := r.toInteraction()
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

const feedbackColumns = `id, type, category, urgency, message, dismissed, embedding, created_at`

// InsertFeedback records a feedback message
func (s *Store) InsertFeedback(ctx context.Context, fb *dockhand.Feedback) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO feedback (`+feedbackColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		fb.ID, fb.Type, fb.Category, fb.Urgency, fb.Message, boolInt(fb.Dismissed),
		encodeVector(fb.Embedding), toNanos(fb.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting feedback: %w", err)
	}
	return nil
}

// SetFeedbackEmbedding back-fills the message embedding
func (s *Store) SetFeedbackEmbedding(ctx context.Context, id string, vec []float32) error {
	return s.updateOne(ctx, "feedback", id, `UPDATE feedback SET embedding = ? WHERE id = ?`, encodeVector(vec), id)
}

// DismissFeedback hides a feedback item from future analysis
func (s *Store) DismissFeedback(ctx context.Context, id string) error {
	return s.updateOne(ctx, "feedback", id, `UPDATE feedback SET dismissed = 1 WHERE id = ?`, id)
}

// FeedbackSignals returns non-dismissed feedback in [start, end] that points
// at a knowledge gap: training/workflow/equipment category, any suggestion,
// or a complaint of normal or high urgency. Newest first.
func (s *Store) FeedbackSignals(ctx context.Context, start, end time.Time) ([]dockhand.Feedback, error) {
	var rows []feedbackRow
	err := s.db.SelectContext(ctx, &rows, `SELECT `+feedbackColumns+` FROM feedback
		WHERE created_at >= ? AND created_at <= ? AND dismissed = 0
			AND (category IN (?, ?, ?)
				OR type = ?
				OR (type = ? AND urgency IN (?, ?)))
		ORDER BY created_at DESC, id`,
		toNanos(start), toNanos(end),
		dockhand.CategoryTraining, dockhand.CategoryWorkflow, dockhand.CategoryEquipment,
		dockhand.FeedbackSuggestion,
		dockhand.FeedbackComplaint, dockhand.UrgencyNormal, dockhand.UrgencyHigh)
	if err != nil {
		return nil, fmt.Errorf("querying feedback signals: %w", err)
	}

	out := make([]dockhand.Feedback, 0, len(rows))
	for _, r := range rows {
		fb, err := r.toFeedback()
		if err != nil {
			return nil, err
		}
		out = append(out, fb)
	}
	return out, nil
}

func (s *Store) updateOne(ctx context.Context, kind, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating %s %s: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
