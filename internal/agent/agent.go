// Package agent implements the natural-language front door: free-text
// instructions are interpreted by an LLM into structured batch task commands
// and applied through the task service.
package agent

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/taskloop/taskloop/internal/service"
)

// Agent errors.
var (
	// ErrUnavailable indicates that no LLM backend is configured.
	ErrUnavailable = errors.New("agent is not configured")

	// ErrInvalidReply indicates the model returned something that could not
	// be interpreted as a command.
	ErrInvalidReply = errors.New("agent returned an uninterpretable reply")
)

// Reply is the agent's answer to one chat message: a natural-language
// message plus the result of any batch operation it performed.
type Reply struct {
	Message string               `json:"message"`
	Action  string               `json:"action"`
	Result  *service.BatchResult `json:"result,omitempty"`
}

// Agent interprets a free-text instruction on behalf of a user.
type Agent interface {
	// Chat processes one message, possibly mutating the user's tasks.
	Chat(ctx context.Context, userID uuid.UUID, message string) (*Reply, error)
}

// NullAgent is the Agent used when no LLM backend is configured: every chat
// fails with ErrUnavailable so the API can return a clear 503.
type NullAgent struct{}

// Chat implements Agent.
func (NullAgent) Chat(ctx context.Context, userID uuid.UUID, message string) (*Reply, error) {
	return nil, ErrUnavailable
}
