package embedder

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/perbu/dockhand/pkg/metrics"
)

// Default retry policy for rate-limited calls
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 500 * time.Millisecond
)

// Retrying wraps an Embedder and retries rate-limited calls with exponential
// backoff (base delay × 2^attempt). Quota errors and other failures are
// returned immediately.
type Retrying struct {
	next       Embedder
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewRetrying wraps next. Non-positive values select the defaults.
func NewRetrying(next Embedder, maxRetries int, baseDelay time.Duration, logger *zap.Logger) *Retrying {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrying{
		next:       next,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
		sleep:      sleepContext,
	}
}

// Embed embeds a single text, retrying on rate limits
func (r *Retrying) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := r.do(ctx, "embed", func() error {
		var err error
		vec, err = r.next.Embed(ctx, text)
		return err
	})
	return vec, err
}

// EmbedBatch embeds texts in one call, retrying the whole batch on rate limits
func (r *Retrying) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32
	err := r.do(ctx, "embed_batch", func() error {
		var err error
		vecs, err = r.next.EmbedBatch(ctx, texts)
		return err
	})
	return vecs, err
}

// Dimension returns the wrapped embedder's dimension
func (r *Retrying) Dimension() int {
	return r.next.Dimension()
}

// ModelInfo returns the wrapped embedder's model information
func (r *Retrying) ModelInfo() string {
	return r.next.ModelInfo()
}

func (r *Retrying) do(ctx context.Context, op string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		if !errors.Is(err, ErrRateLimited) || attempt >= r.maxRetries {
			metrics.EmbeddingFailuresTotal.WithLabelValues(Class(err)).Inc()
			return err
		}

		delay := r.baseDelay << attempt
		metrics.EmbeddingRetriesTotal.Inc()
		r.logger.Warn("embedding rate limited, backing off",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay))

		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
