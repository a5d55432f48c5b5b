package ragchat

import (
	"context"

	"github.com/KunalSewal/RAG-Chatbot/internal/domain"
	domingest "github.com/KunalSewal/RAG-Chatbot/internal/domain/ingest"
	healthuc "github.com/KunalSewal/RAG-Chatbot/internal/usecase/health"
	ingestuc "github.com/KunalSewal/RAG-Chatbot/internal/usecase/ingest"
)

// --- public interface mocks ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockPublicCompleter struct {
	completeFn func(ctx context.Context, model string, msgs []Message) (Completion, error)
	streamFn   func(ctx context.Context, model string, msgs []Message, fn func(string) error) (Completion, error)
}

func (m *mockPublicCompleter) Complete(ctx context.Context, model string, msgs []Message) (Completion, error) {
	return m.completeFn(ctx, model, msgs)
}

func (m *mockPublicCompleter) CompleteStream(
	ctx context.Context, model string, msgs []Message, fn func(fragment string) error,
) (Completion, error) {
	return m.streamFn(ctx, model, msgs, fn)
}

// --- ingestUseCase mock ---

type mockIngestUC struct {
	ingestFn func(ctx context.Context, chatID string, files []ingestuc.File) domingest.Summary
	clearFn  func(ctx context.Context) error
}

func (m *mockIngestUC) Ingest(ctx context.Context, chatID string, files []ingestuc.File) domingest.Summary {
	return m.ingestFn(ctx, chatID, files)
}

func (m *mockIngestUC) Clear(ctx context.Context) error {
	return m.clearFn(ctx)
}

// --- queryUseCase mock ---

type mockQueryUC struct {
	answerFn func(ctx context.Context, conversationID, question string, topK int) (domain.Answer, error)
	streamFn func(ctx context.Context, conversationID, question string, topK int, fn func(string) error) (domain.Answer, error)
}

func (m *mockQueryUC) Answer(ctx context.Context, conversationID, question string, topK int) (domain.Answer, error) {
	return m.answerFn(ctx, conversationID, question, topK)
}

func (m *mockQueryUC) Stream(
	ctx context.Context, conversationID, question string, topK int, fn func(fragment string) error,
) (domain.Answer, error) {
	return m.streamFn(ctx, conversationID, question, topK, fn)
}

// --- conversationStore mock ---

type mockConversations struct {
	getFn    func(conversationID string) []domain.Turn
	deleteFn func(conversationID string) bool
}

func (m *mockConversations) Get(conversationID string) []domain.Turn {
	return m.getFn(conversationID)
}

func (m *mockConversations) Delete(conversationID string) bool {
	return m.deleteFn(conversationID)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	checkFn func(ctx context.Context) healthuc.Report
}

func (m *mockHealthUC) Check(ctx context.Context) healthuc.Report {
	return m.checkFn(ctx)
}
