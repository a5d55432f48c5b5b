package domain

import "context"

// Role identifies the author of a chat message or conversation turn.
type Role string

// Chat roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a completion request.
type Message struct {
	Role    Role
	Content string
}

// Completion is the outcome of one completion call, attributed to the model that produced it.
type Completion struct {
	Content string
	Model   string
}

// Completer is the completion-service contract. Implementations must honor
// context cancellation on the underlying network call.
type Completer interface {
	Complete(ctx context.Context, model string, msgs []Message) (Completion, error)
}

// StreamCompleter produces the answer incrementally. The callback receives each
// text fragment in order; returning an error from it aborts the stream.
type StreamCompleter interface {
	CompleteStream(ctx context.Context, model string, msgs []Message, fn func(fragment string) error) (Completion, error)
}
