package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/perbu/dockhand/pkg/dockhand"
)

type runRow struct {
	ID           string        `db:"id"`
	PeriodStart  int64         `db:"period_start"`
	PeriodEnd    int64         `db:"period_end"`
	Status       string        `db:"status"`
	TotalSignals int           `db:"total_signals"`
	GapsFound    int           `db:"gaps_found"`
	Error        string        `db:"error"`
	StartedAt    int64         `db:"started_at"`
	FinishedAt   sql.NullInt64 `db:"finished_at"`
}

func (r runRow) toRun() *dockhand.AnalysisRun {
	run := &dockhand.AnalysisRun{
		ID:           r.ID,
		PeriodStart:  fromNanos(r.PeriodStart),
		PeriodEnd:    fromNanos(r.PeriodEnd),
		Status:       dockhand.RunStatus(r.Status),
		TotalSignals: r.TotalSignals,
		GapsFound:    r.GapsFound,
		Error:        r.Error,
		StartedAt:    fromNanos(r.StartedAt),
	}
	if r.FinishedAt.Valid {
		t := fromNanos(r.FinishedAt.Int64)
		run.FinishedAt = &t
	}
	return run
}

const runColumns = `id, period_start, period_end, status, total_signals, gaps_found, error, started_at, finished_at`

// CreateRun records the start of an analysis run
func (s *Store) CreateRun(ctx context.Context, run *dockhand.AnalysisRun) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO analysis_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, toNanos(run.PeriodStart), toNanos(run.PeriodEnd), string(run.Status),
		run.TotalSignals, run.GapsFound, run.Error, toNanos(run.StartedAt), nullNanos(run.FinishedAt))
	if err != nil {
		return fmt.Errorf("inserting analysis run: %w", err)
	}
	return nil
}

// FinishRun stores the final state of a run. Finished runs are immutable.
func (s *Store) FinishRun(ctx context.Context, run *dockhand.AnalysisRun) error {
	res, err := s.db.ExecContext(ctx, `UPDATE analysis_runs
		SET status = ?, total_signals = ?, gaps_found = ?, error = ?, finished_at = ?
		WHERE id = ? AND status = ?`,
		string(run.Status), run.TotalSignals, run.GapsFound, run.Error, nullNanos(run.FinishedAt),
		run.ID, string(dockhand.RunRunning))
	if err != nil {
		return fmt.Errorf("finishing analysis run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("analysis run %s not running: %w", run.ID, ErrNotFound)
	}
	return nil
}

// GetRun loads one analysis run
func (s *Store) GetRun(ctx context.Context, id string) (*dockhand.AnalysisRun, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, `SELECT `+runColumns+` FROM analysis_runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading analysis run: %w", err)
	}
	return row.toRun(), nil
}

// ListRuns returns the most recent runs first
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*dockhand.AnalysisRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []runRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+runColumns+` FROM analysis_runs
		ORDER BY started_at DESC LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("listing analysis runs: %w", err)
	}
	out := make([]*dockhand.AnalysisRun, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRun())
	}
	return out, nil
}

type gapRow struct {
	ID                  string         `db:"id"`
	RunID               string         `db:"run_id"`
	Title               string         `db:"title"`
	Description         string         `db:"description"`
	SampleSignals       string         `db:"sample_signals"`
	SignalCount         int            `db:"signal_count"`
	SuggestedModule     string         `db:"suggested_module"`
	Severity            string         `db:"severity"`
	Status              string         `db:"status"`
	SOPDraft            sql.NullString `db:"sop_draft"`
	SOPDraftGeneratedAt sql.NullInt64  `db:"sop_draft_generated_at"`
	ResolvedAt          sql.NullInt64  `db:"resolved_at"`
	CreatedAt           int64          `db:"created_at"`
}

func (r gapRow) toGap() (*dockhand.KnowledgeGap, error) {
	gap := &dockhand.KnowledgeGap{
		ID:              r.ID,
		RunID:           r.RunID,
		Title:           r.Title,
		Description:     r.Description,
		SignalCount:     r.SignalCount,
		SuggestedModule: r.SuggestedModule,
		Severity:        dockhand.Severity(r.Severity),
		Status:          dockhand.GapStatus(r.Status),
		CreatedAt:       fromNanos(r.CreatedAt),
	}
	if err := json.Unmarshal([]byte(r.SampleSignals), &gap.SampleSignals); err != nil {
		return nil, fmt.Errorf("gap %s sample signals: %w", r.ID, err)
	}
	if r.SOPDraft.Valid {
		draft := r.SOPDraft.String
		gap.SOPDraft = &draft
	}
	if r.SOPDraftGeneratedAt.Valid {
		t := fromNanos(r.SOPDraftGeneratedAt.Int64)
		gap.SOPDraftGeneratedAt = &t
	}
	if r.ResolvedAt.Valid {
		t := fromNanos(r.ResolvedAt.Int64)
		gap.ResolvedAt = &t
	}
	return gap, nil
}

const gapColumns = `id, run_id, title, description, sample_signals, signal_count, suggested_module,
	severity, status, sop_draft, sop_draft_generated_at, resolved_at, created_at`

// InsertGap persists a knowledge gap. Sample signals beyond the display
// bounds are dropped.
func (s *Store) InsertGap(ctx context.Context, gap *dockhand.KnowledgeGap) error {
	samples := gap.SampleSignals
	if len(samples.Questions) > dockhand.MaxSampleQuestions {
		samples.Questions = samples.Questions[:dockhand.MaxSampleQuestions]
	}
	if len(samples.Feedback) > dockhand.MaxSampleFeedback {
		samples.Feedback = samples.Feedback[:dockhand.MaxSampleFeedback]
	}
	if samples.Questions == nil {
		samples.Questions = []string{}
	}
	if samples.Feedback == nil {
		samples.Feedback = []string{}
	}
	sampleJSON, err := json.Marshal(samples)
	if err != nil {
		return fmt.Errorf("encoding sample signals: %w", err)
	}

	var draft sql.NullString
	if gap.SOPDraft != nil {
		draft = sql.NullString{String: *gap.SOPDraft, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO knowledge_gaps (`+gapColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		gap.ID, gap.RunID, gap.Title, gap.Description, string(sampleJSON), gap.SignalCount,
		gap.SuggestedModule, string(gap.Severity), string(gap.Status), draft,
		nullNanos(gap.SOPDraftGeneratedAt), nullNanos(gap.ResolvedAt), toNanos(gap.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting knowledge gap: %w", err)
	}
	return nil
}

// GetGap loads one knowledge gap
func (s *Store) GetGap(ctx context.Context, id string) (*dockhand.KnowledgeGap, error) {
	return getGap(ctx, s.db, id)
}

type getter interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

func getGap(ctx context.Context, q getter, id string) (*dockhand.KnowledgeGap, error) {
	var row gapRow
	err := q.GetContext(ctx, &row, `SELECT `+gapColumns+` FROM knowledge_gaps WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("knowledge gap %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading knowledge gap: %w", err)
	}
	return row.toGap()
}

// ListGaps returns gaps, optionally filtered by status, highest severity
// and largest first
func (s *Store) ListGaps(ctx context.Context, status dockhand.GapStatus) ([]*dockhand.KnowledgeGap, error) {
	query := `SELECT ` + gapColumns + ` FROM knowledge_gaps`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY CASE severity WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END,
		signal_count DESC, created_at DESC, id`

	var rows []gapRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing knowledge gaps: %w", err)
	}

	out := make([]*dockhand.KnowledgeGap, 0, len(rows))
	for _, r := range rows {
		gap, err := r.toGap()
		if err != nil {
			return nil, err
		}
		out = append(out, gap)
	}
	return out, nil
}

// UpdateGapStatus applies a lifecycle transition to one gap. An invalid
// transition returns dockhand.ErrInvalidTransition and changes nothing.
func (s *Store) UpdateGapStatus(ctx context.Context, id string, next dockhand.GapStatus, now time.Time) (*dockhand.KnowledgeGap, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	gap, err := getGap(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := gap.Transition(next, now); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE knowledge_gaps SET status = ?, resolved_at = ? WHERE id = ?`,
		string(gap.Status), nullNanos(gap.ResolvedAt), id); err != nil {
		return nil, fmt.Errorf("updating gap status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing gap status: %w", err)
	}
	return gap, nil
}

// SetGapSOPDraft stores a generated procedure draft for a gap
func (s *Store) SetGapSOPDraft(ctx context.Context, id, draft string, at time.Time) error {
	return s.updateOne(ctx, "knowledge gap", id,
		`UPDATE knowledge_gaps SET sop_draft = ?, sop_draft_generated_at = ? WHERE id = ?`,
		draft, toNanos(at), id)
}

func nullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toNanos(*t), Valid: true}
}
