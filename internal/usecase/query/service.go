// Package query answers questions over indexed documents with conversation
// memory and a primary/fallback completion chain.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KunalSewal/RAG-Chatbot/internal/domain"
	"github.com/KunalSewal/RAG-Chatbot/internal/metrics"
)

// Service orchestrates the question pipeline: embed, search, prompt,
// complete, remember.
type Service struct {
	embed         Embedder
	search        Searcher
	memory        MemoryStore
	completer     Completer
	primaryModel  string
	fallbackModel string
	topK          int
	logger        *zap.Logger
}

// New creates a query service.
func New(
	embed Embedder, search Searcher, memory MemoryStore, completer Completer,
	primaryModel, fallbackModel string, topK int, logger *zap.Logger,
) *Service {
	return &Service{
		embed:         embed,
		search:        search,
		memory:        memory,
		completer:     completer,
		primaryModel:  primaryModel,
		fallbackModel: fallbackModel,
		topK:          topK,
		logger:        logger,
	}
}

// Answer resolves a question within a conversation. An empty conversationID
// starts a new conversation; the minted ID is returned in the answer.
// topK <= 0 means the configured default. The question and answer are
// recorded in memory only on success.
func (s *Service) Answer(ctx context.Context, conversationID, question string, topK int) (domain.Answer, error) {
	id, msgs, sources, err := s.prepare(ctx, conversationID, question, topK)
	if err != nil {
		return domain.Answer{}, err
	}

	completion, err := s.completer.Complete(ctx, s.primaryModel, msgs)
	if err != nil {
		if s.fallbackModel == "" {
			return domain.Answer{}, fmt.Errorf("complete: %w", err)
		}

		metrics.CompletionFallbacksTotal.Inc()
		s.logger.Warn("Primary model failed, trying fallback",
			zap.String("primary_model", s.primaryModel),
			zap.String("fallback_model", s.fallbackModel),
			zap.Error(err))

		completion, err = s.completer.Complete(ctx, s.fallbackModel, msgs)
		if err != nil {
			return domain.Answer{}, fmt.Errorf("all models failed: %w", err)
		}
	}

	s.remember(id, question, completion.Content)

	s.logger.Info("Answer generated",
		zap.String("conversation_id", id),
		zap.String("model", completion.Model),
		zap.Int("sources", len(sources)))

	return domain.Answer{
		Text:           completion.Content,
		Model:          completion.Model,
		ConversationID: id,
		Sources:        sources,
	}, nil
}

// Stream is Answer with incremental delivery: fn receives each answer fragment
// in order. The fallback model is tried only if the primary fails before any
// fragment reached the client; once output has started the stream fails as-is.
func (s *Service) Stream(
	ctx context.Context, conversationID, question string, topK int, fn func(fragment string) error,
) (domain.Answer, error) {
	id, msgs, sources, err := s.prepare(ctx, conversationID, question, topK)
	if err != nil {
		return domain.Answer{}, err
	}

	emitted := false
	deliver := func(fragment string) error {
		emitted = true
		return fn(fragment)
	}

	completion, err := s.completer.CompleteStream(ctx, s.primaryModel, msgs, deliver)
	if err != nil {
		if emitted || s.fallbackModel == "" {
			return domain.Answer{}, fmt.Errorf("complete stream: %w", err)
		}

		metrics.CompletionFallbacksTotal.Inc()
		s.logger.Warn("Primary model failed before output, trying fallback",
			zap.String("primary_model", s.primaryModel),
			zap.String("fallback_model", s.fallbackModel),
			zap.Error(err))

		completion, err = s.completer.CompleteStream(ctx, s.fallbackModel, msgs, deliver)
		if err != nil {
			return domain.Answer{}, fmt.Errorf("all models failed: %w", err)
		}
	}

	s.remember(id, question, completion.Content)

	s.logger.Info("Answer streamed",
		zap.String("conversation_id", id),
		zap.String("model", completion.Model),
		zap.Int("sources", len(sources)))

	return domain.Answer{
		Text:           completion.Content,
		Model:          completion.Model,
		ConversationID: id,
		Sources:        sources,
	}, nil
}

// prepare runs the retrieval half of the pipeline and builds the prompt.
func (s *Service) prepare(
	ctx context.Context, conversationID, question string, topK int,
) (id string, msgs []domain.Message, sources []domain.Source, err error) {
	id = conversationID
	if id == "" {
		id = uuid.NewString()
	}
	if topK <= 0 {
		topK = s.topK
	}

	emb, err := s.embed.Embed(ctx, question)
	if err != nil {
		return "", nil, nil, fmt.Errorf("embed question: %w", err)
	}

	hits, err := s.search.Search(ctx, emb.Embedding, id, topK)
	if err != nil {
		return "", nil, nil, fmt.Errorf("search: %w", err)
	}

	msgs = buildMessages(s.memory.Get(id), hits, question)

	sources = make([]domain.Source, len(hits))
	for i, hit := range hits {
		sources[i] = domain.Source{
			Filename:   hit.Source,
			Preview:    domain.Preview(hit.Text),
			Similarity: hit.Similarity,
		}
	}

	return id, msgs, sources, nil
}

// remember records the exchange as one atomic user/assistant pair.
func (s *Service) remember(id, question, answer string) {
	now := time.Now()
	s.memory.Append(id,
		domain.Turn{Role: domain.RoleUser, Text: question, At: now},
		domain.Turn{Role: domain.RoleAssistant, Text: answer, At: now},
	)
}
