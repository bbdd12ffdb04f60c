package adapter

import "context"

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// TextGenerator is the port for one text-generation backend. Implementations
// own their transport, protocol shape and retry behavior; callers see a single
// blocking call that either yields text or a final error.
type TextGenerator interface {
	Complete(ctx context.Context, messages []Message, systemPrompt string) (string, error)
}

// NotifyFunc receives human-readable progress notices from a generator, e.g.
// "attempt 2/3 failed, retrying in 10s".
type NotifyFunc func(message string)
