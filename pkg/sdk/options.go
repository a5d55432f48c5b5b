package ragchat

import (
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	apiKey  string
	baseURL string

	embeddingModel      string
	embeddingDimensions int
	primaryModel        string
	fallbackModel       string
	temperature         float32
	maxTokens           int

	indexPath  string
	collection string
	compress   bool

	chunkSize    int
	chunkOverlap int
	topK         int
	maxTurns     int

	embedder  Embedder
	completer Completer

	logger *zap.Logger
}

// WithOpenAI sets the credentials for the OpenAI-compatible API used for
// both embeddings and completions.
func WithOpenAI(apiKey, baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = apiKey
		c.baseURL = baseURL
	})
}

// WithEmbeddingModel sets the embedding model and its vector dimensions.
func WithEmbeddingModel(model string, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embeddingModel = model
		c.embeddingDimensions = dimensions
	})
}

// WithModels sets the completion models. fallback may be empty to disable
// the fallback chain.
func WithModels(primary, fallback string) Option {
	return optionFunc(func(c *clientConfig) {
		c.primaryModel = primary
		c.fallbackModel = fallback
	})
}

// WithCompletionTuning sets sampling temperature and the response token cap.
func WithCompletionTuning(temperature float32, maxTokens int) Option {
	return optionFunc(func(c *clientConfig) {
		c.temperature = temperature
		c.maxTokens = maxTokens
	})
}

// WithPersistentIndex stores the vector index on disk at path.
// Without it the index lives in memory and dies with the process.
func WithPersistentIndex(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexPath = path
	})
}

// WithIndexCompression gzips persisted index records. Only meaningful
// together with WithPersistentIndex.
func WithIndexCompression() Option {
	return optionFunc(func(c *clientConfig) {
		c.compress = true
	})
}

// WithCollection overrides the index collection name. Default: "documents".
func WithCollection(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.collection = name
	})
}

// WithChunking sets the text window length and overlap, in runes.
// Defaults: 1000 and 200.
func WithChunking(size, overlap int) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkSize = size
		c.chunkOverlap = overlap
	})
}

// WithTopK sets how many chunks retrieval returns per question. Default: 5.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithMaxTurns caps the conversation turns kept in memory. Default: 10.
func WithMaxTurns(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxTurns = n
	})
}

// WithEmbedder replaces the OpenAI-compatible embedding provider with a
// custom one.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithCompleter replaces the OpenAI-compatible completion provider with a
// custom one.
func WithCompleter(cp Completer) Option {
	return optionFunc(func(c *clientConfig) {
		c.completer = cp
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
