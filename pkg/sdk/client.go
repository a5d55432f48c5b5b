package ragchat

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/KunalSewal/RAG-Chatbot/internal/domain"
	domingest "github.com/KunalSewal/RAG-Chatbot/internal/domain/ingest"
	"github.com/KunalSewal/RAG-Chatbot/internal/extract"
	"github.com/KunalSewal/RAG-Chatbot/internal/index"
	"github.com/KunalSewal/RAG-Chatbot/internal/memory"
	openaiT "github.com/KunalSewal/RAG-Chatbot/internal/transport/openai"
	healthuc "github.com/KunalSewal/RAG-Chatbot/internal/usecase/health"
	ingestuc "github.com/KunalSewal/RAG-Chatbot/internal/usecase/ingest"
	queryuc "github.com/KunalSewal/RAG-Chatbot/internal/usecase/query"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	defaultTopK         = 5
	defaultMaxTurns     = 10
	defaultCollection   = "documents"
)

// Internal interfaces so tests can substitute the services.
type ingestUseCase interface {
	Ingest(ctx context.Context, chatID string, files []ingestuc.File) domingest.Summary
	Clear(ctx context.Context) error
}

type queryUseCase interface {
	Answer(ctx context.Context, conversationID, question string, topK int) (domain.Answer, error)
	Stream(ctx context.Context, conversationID, question string, topK int, fn func(fragment string) error) (domain.Answer, error)
}

type conversationStore interface {
	Get(conversationID string) []domain.Turn
	Delete(conversationID string) bool
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the embedded ragchat entry point. It runs the full document
// pipeline in-process: no HTTP server, no Redis cache.
type Client struct {
	ingestSvc ingestUseCase
	querySvc  queryUseCase
	memory    conversationStore
	healthSvc healthUseCase
}

// New creates a Client. WithOpenAI plus WithModels is the minimal
// configuration; WithEmbedder and WithCompleter replace the OpenAI
// transports entirely.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		collection:   defaultCollection,
		chunkSize:    defaultChunkSize,
		chunkOverlap: defaultChunkOverlap,
		topK:         defaultTopK,
		maxTurns:     defaultMaxTurns,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	embedder, embChecker, err := createEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	completer, compChecker, err := createCompleter(cfg)
	if err != nil {
		return nil, err
	}

	idx, err := createIndex(cfg)
	if err != nil {
		return nil, err
	}

	conversations := memory.NewStore(cfg.maxTurns)

	ingestSvc := ingestuc.New(
		extract.New(), embedder, idx, idx,
		cfg.chunkSize, cfg.chunkOverlap, cfg.logger,
	)
	querySvc := queryuc.New(
		embedder, idx, conversations, completer,
		cfg.primaryModel, cfg.fallbackModel, cfg.topK, cfg.logger,
	)

	return &Client{
		ingestSvc: ingestSvc,
		querySvc:  querySvc,
		memory:    conversations,
		healthSvc: healthuc.New(idx, embChecker, compChecker),
	}, nil
}

func createEmbedder(cfg *clientConfig) (queryuc.Embedder, healthuc.EmbeddingChecker, error) {
	if cfg.embedder != nil {
		a := &embedderAdapter{inner: cfg.embedder}
		if hc, ok := cfg.embedder.(interface{ HealthCheck(context.Context) error }); ok {
			return a, hc, nil
		}
		return a, nil, nil
	}
	if cfg.apiKey == "" {
		return nil, nil, errors.New("ragchat: API key required (use WithOpenAI or WithEmbedder)")
	}
	if cfg.embeddingModel == "" {
		return nil, nil, errors.New("ragchat: embedding model required (use WithEmbeddingModel)")
	}
	e := openaiT.NewEmbedder(&openaiT.EmbedderConfig{
		APIKey:     cfg.apiKey,
		BaseURL:    cfg.baseURL,
		Model:      cfg.embeddingModel,
		Dimensions: cfg.embeddingDimensions,
		Logger:     cfg.logger,
	})
	return e, e, nil
}

func createCompleter(cfg *clientConfig) (queryuc.Completer, healthuc.CompletionChecker, error) {
	if cfg.primaryModel == "" {
		return nil, nil, errors.New("ragchat: primary model required (use WithModels)")
	}
	if cfg.completer != nil {
		a := &completerAdapter{inner: cfg.completer}
		if hc, ok := cfg.completer.(interface{ HealthCheck(context.Context) error }); ok {
			return a, hc, nil
		}
		return a, nil, nil
	}
	if cfg.apiKey == "" {
		return nil, nil, errors.New("ragchat: API key required (use WithOpenAI or WithCompleter)")
	}
	c := openaiT.NewCompleter(&openaiT.CompleterConfig{
		APIKey:      cfg.apiKey,
		BaseURL:     cfg.baseURL,
		Temperature: cfg.temperature,
		MaxTokens:   cfg.maxTokens,
		Logger:      cfg.logger,
	})
	return c, c, nil
}

func createIndex(cfg *clientConfig) (*index.Index, error) {
	if cfg.indexPath != "" {
		idx, err := index.NewPersistent(cfg.indexPath, cfg.collection, cfg.compress)
		if err != nil {
			return nil, fmt.Errorf("ragchat: open index at %q: %w", cfg.indexPath, err)
		}
		return idx, nil
	}
	idx, err := index.NewInMemory(cfg.collection)
	if err != nil {
		return nil, fmt.Errorf("ragchat: create index: %w", err)
	}
	return idx, nil
}

// Upload ingests files into the given conversation's document set.
// A bad file fails alone; the summary reports per-file outcomes.
func (c *Client) Upload(ctx context.Context, conversationID string, files []File) (UploadSummary, error) {
	if conversationID == "" {
		return UploadSummary{}, errors.New("ragchat: conversation ID required")
	}
	if len(files) == 0 {
		return UploadSummary{}, errors.New("ragchat: no files given")
	}

	in := make([]ingestuc.File, len(files))
	for i, f := range files {
		in[i] = ingestuc.File{Name: f.Name, Data: f.Data}
	}

	summary := c.ingestSvc.Ingest(ctx, conversationID, in)
	out := UploadSummary{
		FilesProcessed: summary.Processed(),
		FilesFailed:    summary.Failed(),
		ChunksCreated:  summary.ChunksCreated(),
		Results:        make([]UploadResult, len(summary.Results)),
	}
	for i, r := range summary.Results {
		out.Results[i] = UploadResult{
			Filename: r.Filename(),
			Chunks:   r.Chunks(),
			Err:      r.Err(),
		}
	}
	return out, nil
}

// ClearDocuments removes every indexed chunk across all conversations.
func (c *Client) ClearDocuments(ctx context.Context) error {
	return c.ingestSvc.Clear(ctx)
}

// Ask answers a question. An empty conversationID starts a new conversation;
// the minted ID comes back in the answer.
func (c *Client) Ask(ctx context.Context, conversationID, question string) (Answer, error) {
	ans, err := c.querySvc.Answer(ctx, conversationID, question, 0)
	if err != nil {
		return Answer{}, err
	}
	return toAnswer(ans), nil
}

// AskStream is Ask with incremental delivery: fn receives each answer
// fragment in order.
func (c *Client) AskStream(ctx context.Context, conversationID, question string, fn func(fragment string) error) (Answer, error) {
	ans, err := c.querySvc.Stream(ctx, conversationID, question, 0, fn)
	if err != nil {
		return Answer{}, err
	}
	return toAnswer(ans), nil
}

// History returns the conversation's turns in order. Unknown conversations
// yield an empty slice.
func (c *Client) History(conversationID string) []Turn {
	hist := c.memory.Get(conversationID)
	out := make([]Turn, len(hist))
	for i, t := range hist {
		out[i] = Turn{Role: string(t.Role), Content: t.Text, At: t.At}
	}
	return out
}

// DeleteConversation drops the conversation's memory. It reports whether the
// conversation existed.
func (c *Client) DeleteConversation(conversationID string) bool {
	return c.memory.Delete(conversationID)
}

// Health reports component health.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for name, result := range report.Checks {
		checks[name] = string(result)
	}
	return HealthStatus{Status: string(report.Status), Checks: checks}
}

func toAnswer(a domain.Answer) Answer {
	sources := make([]Source, len(a.Sources))
	for i, s := range a.Sources {
		sources[i] = Source{Filename: s.Filename, Preview: s.Preview, Similarity: s.Similarity}
	}
	return Answer{
		Text:           a.Text,
		Model:          a.Model,
		ConversationID: a.ConversationID,
		Sources:        sources,
	}
}

// embedderAdapter satisfies the internal embedding contract with a public
// Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// completerAdapter satisfies the internal completion contract with a public
// Completer.
type completerAdapter struct {
	inner Completer
}

func (a *completerAdapter) Complete(ctx context.Context, model string, msgs []domain.Message) (domain.Completion, error) {
	c, err := a.inner.Complete(ctx, model, toPublicMessages(msgs))
	if err != nil {
		return domain.Completion{}, err
	}
	return domain.Completion{Content: c.Content, Model: c.Model}, nil
}

func (a *completerAdapter) CompleteStream(ctx context.Context, model string, msgs []domain.Message, fn func(fragment string) error) (domain.Completion, error) {
	c, err := a.inner.CompleteStream(ctx, model, toPublicMessages(msgs), fn)
	if err != nil {
		return domain.Completion{}, err
	}
	return domain.Completion{Content: c.Content, Model: c.Model}, nil
}

func toPublicMessages(msgs []domain.Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}
