package assistant

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/perbu/dockhand/pkg/dockhand"
)

// ErrInvalidFeedback is returned for feedback that cannot be stored
var ErrInvalidFeedback = errors.New("invalid feedback")

var (
	feedbackTypes      = []string{dockhand.FeedbackSuggestion, dockhand.FeedbackComplaint, dockhand.FeedbackPraise, dockhand.FeedbackQuestion}
	feedbackCategories = []string{dockhand.CategoryTraining, dockhand.CategoryWorkflow, dockhand.CategoryEquipment, dockhand.CategorySafety, dockhand.CategoryOther}
	feedbackUrgencies  = []string{dockhand.UrgencyLow, dockhand.UrgencyNormal, dockhand.UrgencyHigh}
)

// FeedbackInput is a feedback message as submitted by staff
type FeedbackInput struct {
	Type     string `json:"type"`
	Category string `json:"category"`
	Urgency  string `json:"urgency"`
	Message  string `json:"message"`
}

// SubmitFeedback validates and stores a feedback message. Category defaults
// to other and urgency to normal. The embedding is computed later, when an
// analysis run first needs it.
func (a *Assistant) SubmitFeedback(ctx context.Context, input FeedbackInput) (*dockhand.Feedback, error) {
	fb := &dockhand.Feedback{
		ID:        a.newID(),
		Type:      strings.ToLower(strings.TrimSpace(input.Type)),
		Category:  strings.ToLower(strings.TrimSpace(input.Category)),
		Urgency:   strings.ToLower(strings.TrimSpace(input.Urgency)),
		Message:   strings.TrimSpace(input.Message),
		CreatedAt: a.now(),
	}
	if fb.Category == "" {
		fb.Category = dockhand.CategoryOther
	}
	if fb.Urgency == "" {
		fb.Urgency = dockhand.UrgencyNormal
	}

	switch {
	case fb.Message == "":
		return nil, fmt.Errorf("%w: message is empty", ErrInvalidFeedback)
	case !slices.Contains(feedbackTypes, fb.Type):
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidFeedback, fb.Type)
	case !slices.Contains(feedbackCategories, fb.Category):
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidFeedback, fb.Category)
	case !slices.Contains(feedbackUrgencies, fb.Urgency):
		return nil, fmt.Errorf("%w: unknown urgency %q", ErrInvalidFeedback, fb.Urgency)
	}

	if err := a.store.InsertFeedback(ctx, fb); err != nil {
		return nil, fmt.Errorf("storing feedback: %w", err)
	}
	a.logger.Info("feedback received",
		zap.String("feedback_id", fb.ID),
		zap.String("type", fb.Type),
		zap.String("category", fb.Category))
	return fb, nil
}
