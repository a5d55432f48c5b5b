package query

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/KunalSewal/RAG-Chatbot/internal/domain"
	"github.com/KunalSewal/RAG-Chatbot/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

type mockEmbedder struct {
	vec []float32
	err error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

type mockSearcher struct {
	hits       []domain.SearchHit
	err        error
	lastChatID string
	lastTopK   int
}

func (m *mockSearcher) Search(_ context.Context, _ []float32, chatID string, topK int) ([]domain.SearchHit, error) {
	m.lastChatID = chatID
	m.lastTopK = topK
	if m.err != nil {
		return nil, m.err
	}
	return m.hits, nil
}

type mockMemory struct {
	appends    [][]domain.Turn
	histories  map[string][]domain.Turn
	lastGetID  string
	lastSaveID string
}

func newMockMemory() *mockMemory {
	return &mockMemory{histories: make(map[string][]domain.Turn)}
}

func (m *mockMemory) Append(id string, turns ...domain.Turn) {
	m.lastSaveID = id
	m.appends = append(m.appends, turns)
}

func (m *mockMemory) Get(id string) []domain.Turn {
	m.lastGetID = id
	return m.histories[id]
}

// mockCompleter scripts per-model outcomes and records the calls it receives.
type mockCompleter struct {
	responses map[string]string // model -> content
	errs      map[string]error  // model -> error
	fragments map[string][]string
	failAfter map[string]int // model -> fragments emitted before the stream dies
	calls     []string
	lastMsgs  []domain.Message
}

func newMockCompleter() *mockCompleter {
	return &mockCompleter{
		responses: make(map[string]string),
		errs:      make(map[string]error),
		fragments: make(map[string][]string),
		failAfter: make(map[string]int),
	}
}

func (m *mockCompleter) Complete(_ context.Context, model string, msgs []domain.Message) (domain.Completion, error) {
	m.calls = append(m.calls, model)
	m.lastMsgs = msgs
	if err := m.errs[model]; err != nil {
		return domain.Completion{}, err
	}
	return domain.Completion{Content: m.responses[model], Model: model}, nil
}

func (m *mockCompleter) CompleteStream(
	_ context.Context, model string, msgs []domain.Message, fn func(string) error,
) (domain.Completion, error) {
	m.calls = append(m.calls, model)
	m.lastMsgs = msgs

	frags := m.fragments[model]
	limit, dies := m.failAfter[model]

	var sb strings.Builder
	for i, f := range frags {
		if dies && i == limit {
			return domain.Completion{}, m.errs[model]
		}
		sb.WriteString(f)
		if err := fn(f); err != nil {
			return domain.Completion{}, err
		}
	}
	if dies && limit >= len(frags) {
		return domain.Completion{}, m.errs[model]
	}
	if err := m.errs[model]; err != nil && !dies {
		return domain.Completion{}, err
	}
	return domain.Completion{Content: sb.String(), Model: model}, nil
}

const (
	primary  = "primary-model"
	fallback = "fallback-model"
)

func newService(emb *mockEmbedder, search *mockSearcher, mem *mockMemory, comp *mockCompleter) *Service {
	return New(emb, search, mem, comp, primary, fallback, 5, zap.NewNop())
}

func TestService_Answer(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1, 0}}
	search := &mockSearcher{hits: []domain.SearchHit{
		{Record: domain.Record{Text: "Go was released in 2009.", Source: "go.md"}, Similarity: 0.92},
	}}
	mem := newMockMemory()
	comp := newMockCompleter()
	comp.responses[primary] = "In 2009."

	svc := newService(emb, search, mem, comp)

	ans, err := svc.Answer(context.Background(), "conv-1", "When was Go released?", 0)
	if err != nil {
		t.Fatalf("Answer() error: %v", err)
	}

	if ans.Text != "In 2009." {
		t.Errorf("answer text = %q", ans.Text)
	}
	if ans.Model != primary {
		t.Errorf("model = %q, want %q", ans.Model, primary)
	}
	if ans.ConversationID != "conv-1" {
		t.Errorf("conversation ID = %q", ans.ConversationID)
	}
	if search.lastChatID != "conv-1" || search.lastTopK != 5 {
		t.Errorf("search called with chatID=%q topK=%d", search.lastChatID, search.lastTopK)
	}

	if len(ans.Sources) != 1 {
		t.Fatalf("sources = %d, want 1", len(ans.Sources))
	}
	src := ans.Sources[0]
	if src.Filename != "go.md" || src.Similarity != 0.92 {
		t.Errorf("source = %+v", src)
	}
	if src.Preview != "Go was released in 2009." {
		t.Errorf("preview = %q", src.Preview)
	}

	if len(mem.appends) != 1 {
		t.Fatalf("memory appends = %d, want 1", len(mem.appends))
	}
	pair := mem.appends[0]
	if len(pair) != 2 {
		t.Fatalf("appended turns = %d, want 2", len(pair))
	}
	if pair[0].Role != domain.RoleUser || pair[0].Text != "When was Go released?" {
		t.Errorf("user turn = %+v", pair[0])
	}
	if pair[1].Role != domain.RoleAssistant || pair[1].Text != "In 2009." {
		t.Errorf("assistant turn = %+v", pair[1])
	}
}

func TestService_AnswerMintsConversationID(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1}}
	search := &mockSearcher{}
	mem := newMockMemory()
	comp := newMockCompleter()
	comp.responses[primary] = "hello"

	svc := newService(emb, search, mem, comp)

	ans, err := svc.Answer(context.Background(), "", "hi", 0)
	if err != nil {
		t.Fatalf("Answer() error: %v", err)
	}
	if ans.ConversationID == "" {
		t.Fatal("expected a minted conversation ID")
	}
	// The minted ID threads through retrieval and memory.
	if search.lastChatID != ans.ConversationID {
		t.Errorf("search chatID = %q, want %q", search.lastChatID, ans.ConversationID)
	}
	if mem.lastSaveID != ans.ConversationID {
		t.Errorf("memory save ID = %q, want %q", mem.lastSaveID, ans.ConversationID)
	}
}

func TestService_AnswerFallsBackOnPrimaryFailure(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1}}
	mem := newMockMemory()
	comp := newMockCompleter()
	comp.errs[primary] = errors.New("model overloaded")
	comp.responses[fallback] = "fallback answer"

	svc := newService(emb, &mockSearcher{}, mem, comp)

	ans, err := svc.Answer(context.Background(), "conv-1", "hi", 0)
	if err != nil {
		t.Fatalf("Answer() error: %v", err)
	}
	if ans.Model != fallback {
		t.Errorf("model = %q, want %q", ans.Model, fallback)
	}
	if ans.Text != "fallback answer" {
		t.Errorf("text = %q", ans.Text)
	}
	if len(comp.calls) != 2 || comp.calls[0] != primary || comp.calls[1] != fallback {
		t.Errorf("completer calls = %v", comp.calls)
	}
	if len(mem.appends) != 1 {
		t.Errorf("memory appends = %d, want exactly 1", len(mem.appends))
	}
}

func TestService_AnswerBothModelsFailNoMemory(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1}}
	mem := newMockMemory()
	comp := newMockCompleter()
	comp.errs[primary] = domain.ErrCompletionFailed
	comp.errs[fallback] = domain.ErrCompletionFailed

	svc := newService(emb, &mockSearcher{}, mem, comp)

	_, err := svc.Answer(context.Background(), "conv-1", "hi", 0)
	if !errors.Is(err, domain.ErrCompletionFailed) {
		t.Fatalf("error = %v, want ErrCompletionFailed", err)
	}
	if len(mem.appends) != 0 {
		t.Errorf("memory appends = %d, want 0 on failure", len(mem.appends))
	}
}

func TestService_AnswerEmbedErrorPropagates(t *testing.T) {
	emb := &mockEmbedder{err: domain.ErrModelUnavailable}
	comp := newMockCompleter()

	svc := newService(emb, &mockSearcher{}, newMockMemory(), comp)

	_, err := svc.Answer(context.Background(), "conv-1", "hi", 0)
	if !errors.Is(err, domain.ErrModelUnavailable) {
		t.Fatalf("error = %v, want ErrModelUnavailable", err)
	}
	if len(comp.calls) != 0 {
		t.Errorf("completer called %d times, want 0", len(comp.calls))
	}
}

func TestService_AnswerUsesHistory(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1}}
	mem := newMockMemory()
	mem.histories["conv-1"] = []domain.Turn{
		{Role: domain.RoleUser, Text: "earlier question"},
		{Role: domain.RoleAssistant, Text: "earlier answer"},
	}
	comp := newMockCompleter()
	comp.responses[primary] = "ok"

	svc := newService(emb, &mockSearcher{}, mem, comp)

	if _, err := svc.Answer(context.Background(), "conv-1", "follow-up", 0); err != nil {
		t.Fatalf("Answer() error: %v", err)
	}

	// system + 2 history turns + question
	if len(comp.lastMsgs) != 4 {
		t.Fatalf("prompt messages = %d, want 4", len(comp.lastMsgs))
	}
	if comp.lastMsgs[1].Content != "earlier question" || comp.lastMsgs[2].Content != "earlier answer" {
		t.Errorf("history not threaded into prompt: %+v", comp.lastMsgs[1:3])
	}
}

func TestService_AnswerTopKOverride(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1}}
	search := &mockSearcher{}
	comp := newMockCompleter()
	comp.responses[primary] = "ok"

	svc := newService(emb, search, newMockMemory(), comp)

	if _, err := svc.Answer(context.Background(), "conv-1", "hi", 3); err != nil {
		t.Fatalf("Answer() error: %v", err)
	}
	if search.lastTopK != 3 {
		t.Errorf("topK = %d, want 3", search.lastTopK)
	}
}

func TestService_Stream(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1}}
	mem := newMockMemory()
	comp := newMockCompleter()
	comp.fragments[primary] = []string{"The ", "answer."}

	svc := newService(emb, &mockSearcher{}, mem, comp)

	var got []string
	ans, err := svc.Stream(context.Background(), "conv-1", "hi", 0, func(f string) error {
		got = append(got, f)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}
	if strings.Join(got, "") != "The answer." {
		t.Errorf("fragments = %v", got)
	}
	if ans.Text != "The answer." {
		t.Errorf("accumulated text = %q", ans.Text)
	}
	if len(mem.appends) != 1 {
		t.Errorf("memory appends = %d, want 1", len(mem.appends))
	}
}

func TestService_StreamFallsBackBeforeFirstFragment(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1}}
	mem := newMockMemory()
	comp := newMockCompleter()
	comp.errs[primary] = errors.New("model down")
	comp.failAfter[primary] = 0 // dies before emitting anything
	comp.fragments[fallback] = []string{"saved"}

	svc := newService(emb, &mockSearcher{}, mem, comp)

	var got []string
	ans, err := svc.Stream(context.Background(), "conv-1", "hi", 0, func(f string) error {
		got = append(got, f)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}
	if ans.Model != fallback {
		t.Errorf("model = %q, want %q", ans.Model, fallback)
	}
	if strings.Join(got, "") != "saved" {
		t.Errorf("fragments = %v", got)
	}
}

func TestService_StreamNoFallbackAfterOutputStarted(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1}}
	mem := newMockMemory()
	comp := newMockCompleter()
	comp.errs[primary] = errors.New("connection reset")
	comp.fragments[primary] = []string{"partial "}
	comp.failAfter[primary] = 1 // dies after the first fragment
	comp.fragments[fallback] = []string{"never used"}

	svc := newService(emb, &mockSearcher{}, mem, comp)

	_, err := svc.Stream(context.Background(), "conv-1", "hi", 0, func(string) error { return nil })
	if err == nil {
		t.Fatal("expected error after mid-stream failure")
	}
	// The fallback must not run once output reached the client.
	if len(comp.calls) != 1 {
		t.Errorf("completer calls = %v, want only primary", comp.calls)
	}
	if len(mem.appends) != 0 {
		t.Errorf("memory appends = %d, want 0", len(mem.appends))
	}
}
