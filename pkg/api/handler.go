// Package api exposes dockhand over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/perbu/dockhand/pkg/assistant"
	"github.com/perbu/dockhand/pkg/dockhand"
	"github.com/perbu/dockhand/pkg/store"
)

// Generic messages returned in place of internal errors
const (
	msgAskFailed      = "Sorry, something went wrong while answering your question."
	msgAnalysisFailed = "analysis failed"
	msgInternal       = "internal error"
)

// Assistant is the question answering service
type Assistant interface {
	Ask(ctx context.Context, question, module string) (*assistant.Answer, error)
	Rate(ctx context.Context, interactionID string, positive bool) error
	SubmitFeedback(ctx context.Context, input assistant.FeedbackInput) (*dockhand.Feedback, error)
	StepContext(ctx context.Context, step assistant.Step) (*assistant.StepMaterial, error)
}

// Analyzer runs gap analysis for a period
type Analyzer interface {
	Run(ctx context.Context, start, end time.Time) (*dockhand.AnalysisRun, error)
}

// Drafter generates SOP drafts for gaps
type Drafter interface {
	Draft(ctx context.Context, gapID string) (*dockhand.KnowledgeGap, error)
}

// GapStore reads and administers gaps and runs
type GapStore interface {
	GetRun(ctx context.Context, id string) (*dockhand.AnalysisRun, error)
	ListRuns(ctx context.Context, limit int) ([]*dockhand.AnalysisRun, error)
	GetGap(ctx context.Context, id string) (*dockhand.KnowledgeGap, error)
	ListGaps(ctx context.Context, status dockhand.GapStatus) ([]*dockhand.KnowledgeGap, error)
	UpdateGapStatus(ctx context.Context, id string, next dockhand.GapStatus, now time.Time) (*dockhand.KnowledgeGap, error)
	DismissFeedback(ctx context.Context, id string) error
}

// Handler serves the dockhand HTTP API
type Handler struct {
	assistant Assistant
	analyzer  Analyzer
	drafter   Drafter
	gaps      GapStore
	lookback  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewHandler creates a handler. lookback is the default analysis period.
func NewHandler(a Assistant, analyzer Analyzer, drafter Drafter, gaps GapStore, lookback time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		assistant: a,
		analyzer:  analyzer,
		drafter:   drafter,
		gaps:      gaps,
		lookback:  lookback,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
	Module   string `json:"module"`
}

// Ask answers a question: POST /api/v1/ask
func (h *Handler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	ans, err := h.assistant.Ask(c.Request.Context(), req.Question, req.Module)
	if err != nil {
		if errors.Is(err, assistant.ErrEmptyQuestion) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
			return
		}
		h.logger.Error("answering question failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgAskFailed})
		return
	}

	c.JSON(http.StatusOK, ans)
}

type rateRequest struct {
	Positive *bool `json:"positive" binding:"required"`
}

// Rate records a rating for an interaction
func (h *Handler) Rate(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "positive is required"})
		return
	}

	id := c.Param("id")
	if err := h.assistant.Rate(c.Request.Context(), id, *req.Positive); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "interaction not found"})
			return
		}
		h.logger.Error("rating interaction failed", zap.String("interaction_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}

	c.Status(http.StatusNoContent)
}

// SubmitFeedback stores operator feedback and responds 201
func (h *Handler) SubmitFeedback(c *gin.Context) {
	var req assistant.FeedbackInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	fb, err := h.assistant.SubmitFeedback(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, assistant.ErrInvalidFeedback) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("storing feedback failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}

	c.JSON(http.StatusCreated, fb)
}

// DismissFeedback excludes a feedback item from later analysis runs
func (h *Handler) DismissFeedback(c *gin.Context) {
	id := c.Param("id")
	if err := h.gaps.DismissFeedback(c.Request.Context(), id); err != nil {
		h.respondStoreError(c, "feedback", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StepContext returns retrieved material for a training step
func (h *Handler) StepContext(c *gin.Context) {
	var req assistant.Step
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	mat, err := h.assistant.StepContext(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("training step retrieval failed", zap.String("title", req.Title), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}

	c.JSON(http.StatusOK, mat)
}

type analysisRequest struct {
	PeriodStart *time.Time `json:"period_start"`
	PeriodEnd   *time.Time `json:"period_end"`
}

// RunAnalysis runs gap analysis synchronously. The period defaults to the
// configured lookback ending now. The run is detached from the request
// context, so a client that disconnects does not abort it.
func (h *Handler) RunAnalysis(c *gin.Context) {
	var req analysisRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
	}

	end := h.now()
	if req.PeriodEnd != nil {
		end = req.PeriodEnd.UTC()
	}
	start := end.Add(-h.lookback)
	if req.PeriodStart != nil {
		start = req.PeriodStart.UTC()
	}
	if !start.Before(end) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period_start must be before period_end"})
		return
	}

	run, err := h.analyzer.Run(context.WithoutCancel(c.Request.Context()), start, end)
	if err != nil {
		resp := gin.H{"error": msgAnalysisFailed}
		if run != nil {
			resp["run_id"] = run.ID
		}
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	c.JSON(http.StatusCreated, run)
}

// ListRuns returns recent analysis runs, newest first
func (h *Handler) ListRuns(c *gin.Context) {
	limit := 20
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	runs, err := h.gaps.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("listing analysis runs failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgAnalysisFailed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun returns one analysis run
func (h *Handler) GetRun(c *gin.Context) {
	run, err := h.gaps.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "analysis run not found"})
			return
		}
		h.logger.Error("loading analysis run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgAnalysisFailed})
		return
	}
	c.JSON(http.StatusOK, run)
}

// ListGaps returns knowledge gaps, optionally filtered by ?status
func (h *Handler) ListGaps(c *gin.Context) {
	status := dockhand.GapStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	gaps, err := h.gaps.ListGaps(c.Request.Context(), status)
	if err != nil {
		h.logger.Error("listing gaps failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}
	c.JSON(http.StatusOK, gin.H{"gaps": gaps})
}

// GetGap returns one knowledge gap
func (h *Handler) GetGap(c *gin.Context) {
	gap, err := h.gaps.GetGap(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondStoreError(c, "gap", err)
		return
	}
	c.JSON(http.StatusOK, gap)
}

type statusRequest struct {
	Status dockhand.GapStatus `json:"status" binding:"required"`
}

// UpdateGapStatus moves a gap through its lifecycle
func (h *Handler) UpdateGapStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	gap, err := h.gaps.UpdateGapStatus(c.Request.Context(), c.Param("id"), req.Status, h.now())
	if err != nil {
		h.respondStoreError(c, "gap", err)
		return
	}
	c.JSON(http.StatusOK, gap)
}

// DraftSOP generates and stores a procedure draft for a gap
func (h *Handler) DraftSOP(c *gin.Context) {
	gap, err := h.drafter.Draft(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondStoreError(c, "gap", err)
		return
	}
	c.JSON(http.StatusOK, gap)
}

func (h *Handler) respondStoreError(c *gin.Context, entity string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": entity + " not found"})
	case errors.Is(err, dockhand.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.String("entity", entity), zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
	}
}
