package query

import (
	"fmt"
	"strings"

	"github.com/KunalSewal/RAG-Chatbot/internal/domain"
)

// groundedSystemPrompt instructs the model when retrieved context is present.
const groundedSystemPrompt = `You are a helpful AI assistant that answers questions based on the provided context.
Follow these guidelines:
1. Answer questions based primarily on the provided context
2. If the context doesn't contain enough information, say so clearly
3. Be concise but informative
4. Cite sources when possible
5. If asked about something not in the context, politely explain the limitation`

// generalSystemPrompt instructs the model when nothing was retrieved.
const generalSystemPrompt = `You are a helpful, friendly AI assistant. Answer questions clearly and concisely.`

// buildMessages assembles the completion request: system prompt, prior
// conversation turns in order, then the question. With retrieval hits the
// question is prefixed with the labeled source texts; without hits the model
// answers from general knowledge and no document content enters the prompt.
func buildMessages(history []domain.Turn, hits []domain.SearchHit, question string) []domain.Message {
	msgs := make([]domain.Message, 0, len(history)+2)

	if len(hits) == 0 {
		msgs = append(msgs, domain.Message{Role: domain.RoleSystem, Content: generalSystemPrompt})
	} else {
		msgs = append(msgs, domain.Message{Role: domain.RoleSystem, Content: groundedSystemPrompt})
	}

	for _, turn := range history {
		msgs = append(msgs, domain.Message{Role: turn.Role, Content: turn.Text})
	}

	if len(hits) == 0 {
		msgs = append(msgs, domain.Message{Role: domain.RoleUser, Content: question})
		return msgs
	}

	msgs = append(msgs, domain.Message{
		Role:    domain.RoleUser,
		Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", buildContext(hits), question),
	})
	return msgs
}

// buildContext renders the retrieved chunks as numbered, attributed sources.
func buildContext(hits []domain.SearchHit) string {
	parts := make([]string, len(hits))
	for i, hit := range hits {
		parts[i] = fmt.Sprintf("Source %d (%s):\n%s", i+1, hit.Source, hit.Text)
	}
	return strings.Join(parts, "\n\n")
}
