package query

import (
	"context"

	"github.com/KunalSewal/RAG-Chatbot/internal/domain"
)

// Embedder vectorizes the question text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Searcher finds the most similar records within one conversation.
type Searcher interface {
	Search(ctx context.Context, vector []float32, chatID string, topK int) ([]domain.SearchHit, error)
}

// MemoryStore keeps conversation history between requests.
type MemoryStore interface {
	Append(id string, turns ...domain.Turn)
	Get(id string) []domain.Turn
}

// Completer produces answers, whole or streamed.
type Completer interface {
	Complete(ctx context.Context, model string, msgs []domain.Message) (domain.Completion, error)
	CompleteStream(ctx context.Context, model string, msgs []domain.Message, fn func(fragment string) error) (domain.Completion, error)
}
