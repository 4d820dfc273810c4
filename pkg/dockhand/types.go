package dockhand

import "time"

// Chunk is a retrievable passage of procedure documentation with its embedding
type Chunk struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	DocTitle      string    `json:"doc_title"`
	SourceLocator string    `json:"source_locator"` // path#heading
	Path          string    `json:"path"`
	Module        string    `json:"module"`
	Embedding     []float32 `json:"-"`
}

// ScoredChunk pairs a chunk with its similarity to a query
type ScoredChunk struct {
	Chunk      Chunk   `json:"chunk"`
	Similarity float64 `json:"similarity"`
}

// Interaction is one answered (or unanswered) question
type Interaction struct {
	ID            string    `json:"id"`
	Question      string    `json:"question"`
	Answer        string    `json:"answer"`
	Module        string    `json:"module,omitempty"`
	Embedding     []float32 `json:"-"`
	TopSimilarity float64   `json:"top_similarity"`
	NotFound      bool      `json:"not_found"`
	Rating        int       `json:"rating"` // -1 negative, 0 unrated, 1 positive
	CreatedAt     time.Time `json:"created_at"`
}

// NegativelyRated reports whether the asker flagged the answer as unhelpful
func (i Interaction) NegativelyRated() bool {
	return i.Rating < 0
}

// Feedback types
const (
	FeedbackSuggestion = "suggestion"
	FeedbackComplaint  = "complaint"
	FeedbackPraise     = "praise"
	FeedbackQuestion   = "question"
)

// Feedback categories
const (
	CategoryTraining  = "training"
	CategoryWorkflow  = "workflow"
	CategoryEquipment = "equipment"
	CategorySafety    = "safety"
	CategoryOther     = "other"
)

// Feedback urgency levels
const (
	UrgencyLow    = "low"
	UrgencyNormal = "normal"
	UrgencyHigh   = "high"
)

// Feedback is a free-text message submitted by floor staff
type Feedback struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Category  string    `json:"category"`
	Urgency   string    `json:"urgency"`
	Message   string    `json:"message"`
	Dismissed bool      `json:"dismissed"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Severity is the urgency tier of a knowledge gap
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SampleSignals keeps a bounded sample of the texts behind a gap
type SampleSignals struct {
	Questions []string `json:"questions"`
	Feedback  []string `json:"feedback"`
}

// Bounds on SampleSignals, used for display and regeneration only
const (
	MaxSampleQuestions = 8
	MaxSampleFeedback  = 5
)

// KnowledgeGap is the supervisor-facing record of one recurring topic
type KnowledgeGap struct {
	ID                  string        `json:"id"`
	RunID               string        `json:"run_id"`
	Title               string        `json:"title"`
	Description         string        `json:"description"`
	SampleSignals       SampleSignals `json:"sample_signals"`
	SignalCount         int           `json:"signal_count"`
	SuggestedModule     string        `json:"suggested_module,omitempty"`
	Severity            Severity      `json:"severity"`
	Status              GapStatus     `json:"status"`
	SOPDraft            *string       `json:"sop_draft,omitempty"`
	SOPDraftGeneratedAt *time.Time    `json:"sop_draft_generated_at,omitempty"`
	ResolvedAt          *time.Time    `json:"resolved_at,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
}

// RunStatus is the state of an analysis run
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// AnalysisRun records one execution of gap analysis over a period
type AnalysisRun struct {
	ID           string     `json:"id"`
	PeriodStart  time.Time  `json:"period_start"`
	PeriodEnd    time.Time  `json:"period_end"`
	Status       RunStatus  `json:"status"`
	TotalSignals int        `json:"total_signals"`
	GapsFound    int        `json:"gaps_found"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// GoldenAnswer is a positively rated answer promoted for approximate reuse
type GoldenAnswer struct {
	ID            string    `json:"id"`
	Question      string    `json:"question"`
	Answer        string    `json:"answer"`
	Module        string    `json:"module,omitempty"`
	Embedding     []float32 `json:"-"`
	InteractionID string    `json:"interaction_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
