package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/taskloop/taskloop/internal/agent"
	"github.com/taskloop/taskloop/internal/domain"
	"github.com/taskloop/taskloop/internal/service"
	"github.com/taskloop/taskloop/internal/service/auth"
	"github.com/taskloop/taskloop/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{
			name:           "nil error",
			err:            nil,
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "authentication error",
			err:            auth.ErrInvalidToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrapped authentication error",
			err:            fmt.Errorf("failed to authenticate: %w", auth.ErrExpiredToken),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid credentials",
			err:            service.ErrInvalidCredentials,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "task not found",
			err:            service.ErrTaskNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "store-level task not found",
			err:            store.ErrTaskNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "email conflict",
			err:            service.ErrEmailExists,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "title validation",
			err:            domain.ErrTitleInvalidChars,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "status filter validation",
			err:            service.ErrInvalidStatusFilter,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "recurrence validation",
			err:            domain.ErrInvalidInterval,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "agent not configured",
			err:            agent.ErrUnavailable,
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "agent gibberish",
			err:            agent.ErrInvalidReply,
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:           "unknown error",
			err:            errors.New("database on fire"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expectedStatus, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Task not found", GetSafeErrorMessage(service.ErrTaskNotFound))
	assert.Equal(t, "Invalid email or password", GetSafeErrorMessage(service.ErrInvalidCredentials))
	assert.Equal(t, "Email already exists", GetSafeErrorMessage(service.ErrEmailExists))

	// Internal detail never leaks for unknown errors.
	msg := GetSafeErrorMessage(errors.New("pq: connection refused host=10.0.0.5"))
	assert.Equal(t, "An unexpected error occurred", msg)
	assert.NotContains(t, msg, "10.0.0.5")

	// Validation sentinels surface their own text.
	assert.Equal(t, domain.ErrTitleTooLong.Error(), GetSafeErrorMessage(domain.ErrTitleTooLong))
}
