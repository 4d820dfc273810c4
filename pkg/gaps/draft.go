package gaps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/perbu/dockhand/pkg/dockhand"
	"github.com/perbu/dockhand/pkg/generator"
)

// DraftStore is the contract the SOP drafter needs
type DraftStore interface {
	GetGap(ctx context.Context, id string) (*dockhand.KnowledgeGap, error)
	SetGapSOPDraft(ctx context.Context, id, draft string, at time.Time) error
}

// Drafter generates standard operating procedure drafts for gaps
type Drafter struct {
	store  DraftStore
	gen    generator.Generator
	logger *zap.Logger
	now    func() time.Time
}

// NewDrafter creates a drafter
func NewDrafter(store DraftStore, gen generator.Generator, logger *zap.Logger) *Drafter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Drafter{store: store, gen: gen, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Draft generates and stores an SOP draft for the gap, replacing any earlier one
func (d *Drafter) Draft(ctx context.Context, gapID string) (*dockhand.KnowledgeGap, error) {
	gap, err := d.store.GetGap(ctx, gapID)
	if err != nil {
		return nil, err
	}

	raw, err := d.gen.Generate(ctx, buildSOPPrompt(gap))
	if err != nil {
		return nil, fmt.Errorf("generating SOP draft: %w", err)
	}
	draft := generator.StripFences(raw)
	if draft == "" {
		return nil, errors.New("generator returned an empty SOP draft")
	}

	at := d.now()
	if err := d.store.SetGapSOPDraft(ctx, gapID, draft, at); err != nil {
		return nil, err
	}

	gap.SOPDraft = &draft
	gap.SOPDraftGeneratedAt = &at
	d.logger.Info("SOP draft generated", zap.String("gap_id", gapID), zap.Int("length", len(draft)))
	return gap, nil
}
