package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/taskloop/taskloop/internal/domain"
	"github.com/taskloop/taskloop/internal/service"
)

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	FirstName      string `json:"first_name" validate:"max=100"`
	LastName       string `json:"last_name" validate:"max=100"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=12,max=72"`
	RecoveryAnswer string `json:"recovery_answer" validate:"required"`
}

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RecoverRequest is the request body for password recovery.
type RecoverRequest struct {
	Email          string `json:"email" validate:"required,email"`
	RecoveryAnswer string `json:"recovery_answer" validate:"required"`
	NewPassword    string `json:"new_password" validate:"required,min=12,max=72"`
}

// AuthResponse is returned after successful registration or login.
type AuthResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Token  string    `json:"token"`
}

// CreateTaskRequest is the request body for task creation.
type CreateTaskRequest struct {
	Title        string                    `json:"title" validate:"required,max=255"`
	Description  string                    `json:"description"`
	Priority     string                    `json:"priority"`
	Timestamp    *time.Time                `json:"timestamp"`
	DueDate      *time.Time                `json:"due_date"`
	ReminderTime *time.Time                `json:"reminder_time"`
	Recurrence   *domain.RecurrencePattern `json:"recurrence_pattern"`
}

// toInput converts the request to a service input.
func (r CreateTaskRequest) toInput() service.CreateTaskInput {
	return service.CreateTaskInput{
		Title:        r.Title,
		Description:  r.Description,
		Priority:     r.Priority,
		Timestamp:    r.Timestamp,
		DueDate:      r.DueDate,
		ReminderTime: r.ReminderTime,
		Recurrence:   r.Recurrence,
	}
}

// UpdateTaskRequest is the request body for partial task updates. Absent
// fields are left unchanged.
type UpdateTaskRequest struct {
	Title        *string    `json:"title" validate:"omitempty,max=255"`
	Description  *string    `json:"description"`
	Priority     *string    `json:"priority"`
	Status       *bool      `json:"status"`
	Timestamp    *time.Time `json:"timestamp"`
	DueDate      *time.Time `json:"due_date"`
	ReminderTime *time.Time `json:"reminder_time"`
}

// toInput converts the request to a service input.
func (r UpdateTaskRequest) toInput() service.UpdateTaskInput {
	return service.UpdateTaskInput{
		Title:        r.Title,
		Description:  r.Description,
		Priority:     r.Priority,
		Status:       r.Status,
		Timestamp:    r.Timestamp,
		DueDate:      r.DueDate,
		ReminderTime: r.ReminderTime,
	}
}

// CompleteTaskRequest is the request body for the completion endpoint.
// Completed defaults to true when the body is empty.
type CompleteTaskRequest struct {
	Completed *bool `json:"completed"`
}

// TaskListResponse is one page of tasks plus pagination metadata.
type TaskListResponse struct {
	Items []*domain.Task `json:"items"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// BatchUpdateRequest pairs a task ID with a partial update.
type BatchUpdateRequest struct {
	TaskID string `json:"task_id" validate:"required"`
	UpdateTaskRequest
}

// BatchCompleteRequest pairs a task ID with a completion state.
type BatchCompleteRequest struct {
	TaskID    string `json:"task_id" validate:"required"`
	Completed bool   `json:"completed"`
}

// BatchRequest is the request body for /agent/batch: one action applied to a
// list of items, atomically validated.
type BatchRequest struct {
	Action   string                 `json:"action" validate:"required,oneof=create update complete delete"`
	Create   []CreateTaskRequest    `json:"create" validate:"omitempty,dive"`
	Update   []BatchUpdateRequest   `json:"update" validate:"omitempty,dive"`
	Complete []BatchCompleteRequest `json:"complete" validate:"omitempty,dive"`
	Delete   []string               `json:"delete"`
}

// ChatRequest is the request body for /agent/chat.
type ChatRequest struct {
	Message string `json:"message" validate:"required"`
}
