package session

import (
	"context"
	"time"

	"github.com/osintlab/sleuth/internal/llm"
)

// Turn is one utterance in a conversation, either from the user or the assistant.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists conversation history keyed by session ID. History is
// caller-owned: agents receive it through QueryOptions and never touch
// the store themselves.
type Store interface {
	Append(ctx context.Context, sessionID string, turns ...Turn) error
	History(ctx context.Context, sessionID string) ([]Turn, error)
	Clear(ctx context.Context, sessionID string) error
}

// Messages converts stored turns into the message shape the language
// model consumes.
func Messages(turns []Turn) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, llm.Message{Role: t.Role, Content: t.Content})
	}
	return msgs
}
