package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/taskloop/taskloop/internal/agent"
	"github.com/taskloop/taskloop/internal/service"
)

// AgentHandler handles the assistant endpoints: structured batch operations
// and the free-text chat front door.
type AgentHandler struct {
	tasks     *service.TaskService
	assistant agent.Agent
	validator *validator.Validate
}

// NewAgentHandler creates a new AgentHandler with the given dependencies.
func NewAgentHandler(tasks *service.TaskService, assistant agent.Agent) *AgentHandler {
	return &AgentHandler{
		tasks:     tasks,
		assistant: assistant,
		validator: validator.New(),
	}
}

// Batch handles POST /agent/batch. The whole batch is validated before any
// write; a validation failure means nothing was applied.
func (h *AgentHandler) Batch(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req BatchRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	var (
		result *service.BatchResult
		err    error
	)
	switch req.Action {
	case "create":
		inputs := make([]service.CreateTaskInput, len(req.Create))
		for i, item := range req.Create {
			inputs[i] = item.toInput()
		}
		result, err = h.tasks.CreateTasksBatch(r.Context(), userID, inputs)
	case "update":
		items := make([]service.BatchUpdateItem, len(req.Update))
		for i, item := range req.Update {
			items[i] = service.BatchUpdateItem{
				TaskID: item.TaskID,
				Update: item.toInput(),
			}
		}
		result, err = h.tasks.UpdateTasksBatch(r.Context(), userID, items)
	case "complete":
		items := make([]service.BatchCompletionItem, len(req.Complete))
		for i, item := range req.Complete {
			items[i] = service.BatchCompletionItem{
				TaskID:    item.TaskID,
				Completed: item.Completed,
			}
		}
		result, err = h.tasks.CompleteTasksBatch(r.Context(), userID, items)
	case "delete":
		result, err = h.tasks.DeleteTasksBatch(r.Context(), userID, req.Delete)
	}
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	RespondWithJSON(w, r, status, result)
}

// Chat handles POST /agent/chat.
func (h *AgentHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req ChatRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	reply, err := h.assistant.Chat(r.Context(), userID, req.Message)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, reply)
}
