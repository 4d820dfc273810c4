// Package assistant answers procedure questions from retrieved document
// passages and records every exchange so unanswered topics can be mined
// later.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perbu/dockhand/pkg/dockhand"
	"github.com/perbu/dockhand/pkg/embedder"
	"github.com/perbu/dockhand/pkg/generator"
	"github.com/perbu/dockhand/pkg/golden"
	"github.com/perbu/dockhand/pkg/metrics"
)

// DefaultMaxQueries caps the number of search queries per question,
// the original question included
const DefaultMaxQueries = 4

// NotFoundAnswer is returned when no passage matches the question
const NotFoundAnswer = "I couldn't find this in the warehouse procedures. Please check with your supervisor."

// ErrEmptyQuestion is returned for a blank question
var ErrEmptyQuestion = errors.New("question is empty")

// Store is the persistence the assistant needs
type Store interface {
	InsertInteraction(ctx context.Context, in *dockhand.Interaction) error
	GetInteraction(ctx context.Context, id string) (*dockhand.Interaction, error)
	SetInteractionRating(ctx context.Context, id string, rating int) error
	InsertFeedback(ctx context.Context, fb *dockhand.Feedback) error
}

// Retriever returns merged search results for a set of queries
type Retriever interface {
	Retrieve(ctx context.Context, queries []string, module string) ([]dockhand.ScoredChunk, error)
}

// Cache is the golden answer cache
type Cache interface {
	Lookup(ctx context.Context, embedding []float32, module string) (*golden.Match, error)
	Promote(ctx context.Context, in *dockhand.Interaction) (*dockhand.GoldenAnswer, error)
	Withdraw(ctx context.Context, interactionID string) error
}

// Answer is the result of one question
type Answer struct {
	InteractionID string                 `json:"interaction_id"`
	Answer        string                 `json:"answer"`
	NotFound      bool                   `json:"not_found"`
	Cached        bool                   `json:"cached"`
	TopSimilarity float64                `json:"top_similarity"`
	Queries       []string               `json:"queries,omitempty"`
	Sources       []dockhand.ScoredChunk `json:"sources,omitempty"`
}

// Assistant runs the question answering path
type Assistant struct {
	store      Store
	emb        embedder.Embedder
	gen        generator.Generator
	retriever  Retriever
	cache      Cache
	maxQueries int
	logger     *zap.Logger

	now   func() time.Time
	newID func() string
}

// New creates an assistant. A non-positive maxQueries selects DefaultMaxQueries.
func New(store Store, emb embedder.Embedder, gen generator.Generator, retriever Retriever, cache Cache, maxQueries int, logger *zap.Logger) *Assistant {
	if maxQueries <= 0 {
		maxQueries = DefaultMaxQueries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{
		store:      store,
		emb:        emb,
		gen:        gen,
		retriever:  retriever,
		cache:      cache,
		maxQueries: maxQueries,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// Ask answers question, optionally restricted to one training module.
// The golden cache is consulted first; on a miss the question is expanded,
// passages are retrieved and the generator composes the answer. Every
// answered question is recorded as an interaction.
func (a *Assistant) Ask(ctx context.Context, question, module string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	ans, err := a.ask(ctx, question, module)
	if err != nil {
		metrics.QuestionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	switch {
	case ans.Cached:
		metrics.QuestionsTotal.WithLabelValues("cached").Inc()
	case ans.NotFound:
		metrics.QuestionsTotal.WithLabelValues("not_found").Inc()
	default:
		metrics.QuestionsTotal.WithLabelValues("answered").Inc()
	}
	return ans, nil
}

func (a *Assistant) ask(ctx context.Context, question, module string) (*Answer, error) {
	vec, err := a.emb.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	in := &dockhand.Interaction{
		ID:        a.newID(),
		Question:  question,
		Module:    module,
		Embedding: vec,
		CreatedAt: a.now(),
	}
	log := a.logger.With(zap.String("interaction_id", in.ID))

	if a.cache != nil {
		match, err := a.cache.Lookup(ctx, vec, module)
		if err != nil {
			log.Warn("golden cache lookup failed", zap.Error(err))
		} else if match != nil {
			in.Answer = match.Answer.Answer
			in.TopSimilarity = match.Similarity
			if err := a.store.InsertInteraction(ctx, in); err != nil {
				return nil, fmt.Errorf("recording interaction: %w", err)
			}
			log.Info("answered from golden cache", zap.String("golden_id", match.Answer.ID))
			return &Answer{
				InteractionID: in.ID,
				Answer:        in.Answer,
				Cached:        true,
				TopSimilarity: match.Similarity,
			}, nil
		}
	}

	queries := a.expand(ctx, question)
	chunks, err := a.retriever.Retrieve(ctx, queries, module)
	if err != nil {
		return nil, fmt.Errorf("retrieving passages: %w", err)
	}

	if len(chunks) == 0 {
		in.Answer = NotFoundAnswer
		in.NotFound = true
	} else {
		in.TopSimilarity = chunks[0].Similarity
		if err := a.compose(ctx, in, chunks); err != nil {
			return nil, err
		}
	}

	if err := a.store.InsertInteraction(ctx, in); err != nil {
		return nil, fmt.Errorf("recording interaction: %w", err)
	}

	log.Info("question answered",
		zap.Int("queries", len(queries)),
		zap.Int("sources", len(chunks)),
		zap.Float64("top_similarity", in.TopSimilarity),
		zap.Bool("not_found", in.NotFound))

	return &Answer{
		InteractionID: in.ID,
		Answer:        in.Answer,
		NotFound:      in.NotFound,
		TopSimilarity: in.TopSimilarity,
		Queries:       queries,
		Sources:       chunks,
	}, nil
}

type expansion struct {
	Queries []string `json:"queries"`
}

// expand asks the generator for paraphrases. The original question always
// comes first, and any failure leaves just the question.
func (a *Assistant) expand(ctx context.Context, question string) []string {
	raw, err := a.gen.Generate(ctx, buildExpansionPrompt(question, a.maxQueries-1))
	if err != nil {
		a.logger.Warn("query expansion failed, searching the question only", zap.Error(err))
		return []string{question}
	}

	res := generator.ParseJSON(raw, expansion{})
	if !res.Ok() {
		a.logger.Debug("malformed query expansion", zap.Error(res.Err))
	}
	return dedupeQueries(append([]string{question}, res.Value.Queries...), a.maxQueries)
}

type answerPayload struct {
	Answer   string `json:"answer"`
	NotFound bool   `json:"not_found"`
}

func (a *Assistant) compose(ctx context.Context, in *dockhand.Interaction, chunks []dockhand.ScoredChunk) error {
	raw, err := a.gen.Generate(ctx, buildAnswerPrompt(in.Question, chunks))
	if errors.Is(err, generator.ErrUnavailable) {
		in.Answer = extractiveAnswer(chunks[0])
		return nil
	}
	if err != nil {
		return fmt.Errorf("generating answer: %w", err)
	}

	res := generator.ParseJSON(raw, answerPayload{Answer: generator.StripFences(raw)})
	payload := res.Value
	if payload.Answer == "" {
		payload = answerPayload{Answer: NotFoundAnswer, NotFound: true}
	}

	in.Answer = payload.Answer
	in.NotFound = payload.NotFound || indicatesNotFound(payload.Answer)
	return nil
}

// Rate records a thumbs up or down. A positive rating promotes the answer
// into the golden cache unless it is already served from there; a negative
// one withdraws whatever was promoted from this interaction.
func (a *Assistant) Rate(ctx context.Context, interactionID string, positive bool) error {
	rating := -1
	if positive {
		rating = 1
	}
	if err := a.store.SetInteractionRating(ctx, interactionID, rating); err != nil {
		return err
	}
	if a.cache == nil {
		return nil
	}
	if !positive {
		if err := a.cache.Withdraw(ctx, interactionID); err != nil {
			return fmt.Errorf("withdrawing answer: %w", err)
		}
		return nil
	}

	in, err := a.store.GetInteraction(ctx, interactionID)
	if err != nil {
		return err
	}
	if in.NotFound || len(in.Embedding) == 0 {
		return nil
	}

	match, err := a.cache.Lookup(ctx, in.Embedding, in.Module)
	if err != nil {
		return fmt.Errorf("checking golden cache: %w", err)
	}
	if match != nil && match.Answer.Answer == in.Answer {
		return nil
	}

	if _, err := a.cache.Promote(ctx, in); err != nil {
		return fmt.Errorf("promoting answer: %w", err)
	}
	return nil
}

// extractiveAnswer quotes the best passage when no model is configured
func extractiveAnswer(best dockhand.ScoredChunk) string {
	return fmt.Sprintf("From %s (%s):\n\n%s", best.Chunk.DocTitle, best.Chunk.SourceLocator, best.Chunk.Text)
}

func indicatesNotFound(answer string) bool {
	lower := strings.ToLower(answer)
	return strings.Contains(lower, "couldn't find") ||
		strings.Contains(lower, "could not find") ||
		strings.Contains(lower, "not found in")
}

// dedupeQueries trims, drops blanks and case-insensitive duplicates, and
// keeps at most limit queries in their original order
func dedupeQueries(queries []string, limit int) []string {
	seen := make(map[string]bool, len(queries))
	out := make([]string, 0, limit)
	for _, q := range queries {
		q = strings.TrimSpace(q)
		key := strings.ToLower(q)
		if q == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
		if len(out) == limit {
			break
		}
	}
	return out
}
