package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskloop/taskloop/internal/service"
	"google.golang.org/genai"
)

// systemPrompt tells the model the command vocabulary. The model must answer
// with a single JSON object and nothing else.
const systemPrompt = `You are a task management assistant. Interpret the user's message and
respond with ONLY a JSON object, no prose, of the shape:

{
  "action": "create" | "update" | "complete" | "delete" | "none",
  "reply": "<short natural-language confirmation or answer for the user>",
  "create": [{"title": "...", "description": "...", "priority": "Critical|High|Medium|Low"}],
  "update": [{"task_id": "...", "title": "...", "description": "...", "priority": "..."}],
  "complete": [{"task_id": "...", "completed": true}],
  "delete": ["<task_id>"]
}

Only populate the list matching the action. Use "none" with a reply when the
message is a question or cannot be satisfied.`

// command is the model's structured answer.
type command struct {
	Action   string `json:"action"`
	Reply    string `json:"reply"`
	Create   []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Priority    string `json:"priority"`
	} `json:"create"`
	Update []struct {
		TaskID      string  `json:"task_id"`
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Priority    *string `json:"priority"`
	} `json:"update"`
	Complete []struct {
		TaskID    string `json:"task_id"`
		Completed bool   `json:"completed"`
	} `json:"complete"`
	Delete []string `json:"delete"`
}

// GeminiAgent implements Agent on Google's Gemini API.
type GeminiAgent struct {
	client     *genai.Client
	model      string
	tasks      *service.TaskService
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewGeminiAgent creates a Gemini-backed agent.
func NewGeminiAgent(ctx context.Context, apiKey, model string, tasks *service.TaskService, logger *slog.Logger) (*GeminiAgent, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrUnavailable)
	}
	if model == "" {
		return nil, fmt.Errorf("%w: missing model name", ErrUnavailable)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiAgent{
		client:     client,
		model:      model,
		tasks:      tasks,
		maxRetries: 3,
		retryDelay: 2 * time.Second,
		logger:     logger.With(slog.String("component", "gemini_agent")),
	}, nil
}

// Chat implements Agent.
func (a *GeminiAgent) Chat(ctx context.Context, userID uuid.UUID, message string) (*Reply, error) {
	cmd, err := a.interpret(ctx, message)
	if err != nil {
		return nil, err
	}

	reply := &Reply{Message: cmd.Reply, Action: cmd.Action}

	switch strings.ToLower(cmd.Action) {
	case "create":
		inputs := make([]service.CreateTaskInput, len(cmd.Create))
		for i, c := range cmd.Create {
			inputs[i] = service.CreateTaskInput{
				Title:       c.Title,
				Description: c.Description,
				Priority:    c.Priority,
			}
		}
		reply.Result, err = a.tasks.CreateTasksBatch(ctx, userID, inputs)
	case "update":
		items := make([]service.BatchUpdateItem, len(cmd.Update))
		for i, u := range cmd.Update {
			items[i] = service.BatchUpdateItem{
				TaskID: u.TaskID,
				Update: service.UpdateTaskInput{
					Title:       u.Title,
					Description: u.Description,
					Priority:    u.Priority,
				},
			}
		}
		reply.Result, err = a.tasks.UpdateTasksBatch(ctx, userID, items)
	case "complete":
		items := make([]service.BatchCompletionItem, len(cmd.Complete))
		for i, c := range cmd.Complete {
			items[i] = service.BatchCompletionItem{TaskID: c.TaskID, Completed: c.Completed}
		}
		reply.Result, err = a.tasks.CompleteTasksBatch(ctx, userID, items)
	case "delete":
		reply.Result, err = a.tasks.DeleteTasksBatch(ctx, userID, cmd.Delete)
	case "none", "":
		return reply, nil
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidReply, cmd.Action)
	}
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// interpret sends the message to Gemini and parses the command, retrying
// transient API failures with a flat delay. A well-formed API response that
// fails to parse is permanent.
func (a *GeminiAgent) interpret(ctx context.Context, message string) (*command, error) {
	prompt := systemPrompt + "\n\nUser message:\n" + message

	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(a.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(prompt), nil)
		if err != nil {
			lastErr = err
			a.logger.Warn("gemini call failed",
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()))
			continue
		}

		cmd, parseErr := parseCommand(resp.Text())
		if parseErr != nil {
			return nil, parseErr
		}
		return cmd, nil
	}
	return nil, fmt.Errorf("gemini call failed after %d attempts: %w", a.maxRetries+1, lastErr)
}

// parseCommand extracts the JSON command from the model's text, tolerating
// markdown code fences around the object.
func parseCommand(text string) (*command, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var cmd command
	if err := json.Unmarshal([]byte(text), &cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	return &cmd, nil
}
