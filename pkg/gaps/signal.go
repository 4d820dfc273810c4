// Package gaps mines unanswered questions and critical feedback for
// recurring knowledge gaps.
//
// An analysis run collects gap signals for a period, groups them with a
// greedy single-pass clusterer, scores each surviving cluster and asks the
// generator to title it. Questions are always clustered before feedback and
// each kind is processed in collector order; results depend on that order.
package gaps

import "github.com/perbu/dockhand/pkg/dockhand"

// SignalKind distinguishes the two sources of gap evidence
type SignalKind string

const (
	KindQuestion SignalKind = "question"
	KindFeedback SignalKind = "feedback"
)

// Signal is one piece of evidence for a possible knowledge gap
type Signal struct {
	Kind      SignalKind
	Text      string
	Embedding []float32
	SourceID  string

	ModuleHint   string // questions only
	CategoryHint string // feedback only

	// Severity inputs
	Urgency         string
	Complaint       bool
	NegativelyRated bool
}

// QuestionSignal builds a signal from an unanswered interaction
func QuestionSignal(in dockhand.Interaction) Signal {
	return Signal{
		Kind:            KindQuestion,
		Text:            in.Question,
		Embedding:       in.Embedding,
		SourceID:        in.ID,
		ModuleHint:      in.Module,
		NegativelyRated: in.NegativelyRated(),
	}
}

// FeedbackSignal builds a signal from a feedback item
func FeedbackSignal(fb dockhand.Feedback) Signal {
	return Signal{
		Kind:         KindFeedback,
		Text:         fb.Message,
		Embedding:    fb.Embedding,
		SourceID:     fb.ID,
		CategoryHint: fb.Category,
		Urgency:      fb.Urgency,
		Complaint:    fb.Type == dockhand.FeedbackComplaint,
	}
}

// KindPolicy holds the per-kind clustering and voting parameters
type KindPolicy struct {
	// JoinThreshold is the centroid similarity a signal must exceed to join a cluster
	JoinThreshold float64
	// ModuleWeight is the vote a signal casts for its module
	ModuleWeight float64
}

// SignalPolicy maps each signal kind to its parameters
type SignalPolicy map[SignalKind]KindPolicy

// DefaultPolicy joins questions above 0.80 and feedback above 0.75.
// A feedback item casts half a module vote.
var DefaultPolicy = SignalPolicy{
	KindQuestion: {JoinThreshold: 0.80, ModuleWeight: 1.0},
	KindFeedback: {JoinThreshold: 0.75, ModuleWeight: 0.5},
}

// CategoryModules maps feedback categories to training modules
var CategoryModules = map[string]string{
	dockhand.CategoryTraining:  "Training",
	dockhand.CategoryWorkflow:  "Operations",
	dockhand.CategoryEquipment: "Equipment",
	dockhand.CategorySafety:    "Safety",
}
