package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/KunalSewal/RAG-Chatbot/internal/domain"
	"github.com/KunalSewal/RAG-Chatbot/internal/metrics"
)

// Completer is a chat-completion provider using the OpenAI-compatible API.
// The model is chosen per call so the caller can run its fallback chain
// through one client.
type Completer struct {
	client      *openai.Client
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// CompleterConfig holds the completion provider settings.
type CompleterConfig struct {
	APIKey      string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	Logger      *zap.Logger
}

// NewCompleter creates an OpenAI-compatible chat-completion provider.
func NewCompleter(cfg *CompleterConfig) *Completer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Completer{
		client:      openai.NewClientWithConfig(clientCfg),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}
}

// Complete implements domain.Completer.
func (c *Completer) Complete(ctx context.Context, model string, msgs []domain.Message) (domain.Completion, error) {
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(model, msgs))

	duration := time.Since(start)

	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(model, "error").Inc()
		return domain.Completion{}, parseAPIError("completion", err, domain.ErrCompletionFailed)
	}

	if len(resp.Choices) == 0 {
		metrics.CompletionRequestsTotal.WithLabelValues(model, "error").Inc()
		return domain.Completion{}, fmt.Errorf("empty completion response: %w", domain.ErrCompletionFailed)
	}

	metrics.CompletionRequestsTotal.WithLabelValues(model, "success").Inc()
	metrics.CompletionRequestDuration.WithLabelValues(model).Observe(duration.Seconds())

	return domain.Completion{
		Content: resp.Choices[0].Message.Content,
		Model:   model,
	}, nil
}

// CompleteStream implements domain.StreamCompleter. fn is called once per
// content fragment in arrival order; an error from fn aborts the stream.
// The returned Completion carries the full accumulated text.
func (c *Completer) CompleteStream(
	ctx context.Context,
	model string,
	msgs []domain.Message,
	fn func(fragment string) error,
) (domain.Completion, error) {
	req := c.buildRequest(model, msgs)
	req.Stream = true

	start := time.Now()

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(model, "error").Inc()
		return domain.Completion{}, parseAPIError("completion", err, domain.ErrCompletionFailed)
	}
	defer stream.Close()

	var sb strings.Builder

	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			metrics.CompletionRequestsTotal.WithLabelValues(model, "error").Inc()
			if sb.Len() > 0 {
				// The stream died mid-answer: report how much was lost.
				c.logger.Warn("Completion stream interrupted",
					zap.String("model", model),
					zap.Int("received_chars", sb.Len()),
					zap.Error(recvErr))
			}
			return domain.Completion{}, fmt.Errorf("stream receive: %w: %w", recvErr, domain.ErrCompletionFailed)
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		fragment := chunk.Choices[0].Delta.Content
		if fragment == "" {
			continue
		}

		sb.WriteString(fragment)
		if err := fn(fragment); err != nil {
			return domain.Completion{}, fmt.Errorf("stream callback: %w", err)
		}
	}

	metrics.CompletionRequestsTotal.WithLabelValues(model, "success").Inc()
	metrics.CompletionRequestDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())

	return domain.Completion{
		Content: sb.String(),
		Model:   model,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (c *Completer) buildRequest(model string, msgs []domain.Message) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		messages[i] = openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
	}

	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
}
