package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/taskloop/taskloop/internal/domain"
	"github.com/taskloop/taskloop/internal/service/auth"
	"github.com/taskloop/taskloop/internal/store"
)

// RegisterInput carries the fields for account registration.
type RegisterInput struct {
	FirstName      string
	LastName       string
	Email          string
	Password       string
	RecoveryAnswer string
}

// UserService handles registration, authentication and password recovery.
type UserService struct {
	userStore store.UserStore
	hasher    auth.PasswordHasher
	logger    *slog.Logger
}

// NewUserService creates a UserService with the given dependencies.
func NewUserService(userStore store.UserStore, hasher auth.PasswordHasher, logger *slog.Logger) *UserService {
	return &UserService{
		userStore: userStore,
		hasher:    hasher,
		logger:    logger.With(slog.String("component", "user_service")),
	}
}

// Register creates a new account. The password and the normalized recovery
// answer are hashed before storage; the plaintext never leaves this method.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	user, err := domain.NewUser(input.FirstName, input.LastName, input.Email, input.Password)
	if err != nil {
		return nil, err
	}

	answer := domain.NormalizeRecoveryAnswer(input.RecoveryAnswer)
	if answer == "" {
		return nil, domain.ErrEmptyRecoveryAnswer
	}

	hashedPassword, err := s.hasher.Hash(user.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashedAnswer, err := s.hasher.Hash(answer)
	if err != nil {
		return nil, fmt.Errorf("failed to hash recovery answer: %w", err)
	}

	user.HashedPassword = hashedPassword
	user.RecoveryAnswerHash = hashedAnswer
	user.Password = ""

	if err := s.userStore.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.ID.String()))
	return user, nil
}

// Authenticate verifies an email/password pair and returns the user.
// A missing user and a wrong password both yield ErrInvalidCredentials so
// callers cannot probe which emails are registered.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

// ResetPassword sets a new password after verifying the recovery answer.
// A missing user and a wrong answer both yield ErrInvalidRecoveryAnswer.
func (s *UserService) ResetPassword(ctx context.Context, email, recoveryAnswer, newPassword string) error {
	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrInvalidRecoveryAnswer
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	answer := domain.NormalizeRecoveryAnswer(recoveryAnswer)
	if err := s.hasher.Compare(user.RecoveryAnswerHash, answer); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return ErrInvalidRecoveryAnswer
		}
		return fmt.Errorf("failed to verify recovery answer: %w", err)
	}

	// Reuse domain validation for the new password's length policy.
	user.Password = newPassword
	if err := user.Validate(); err != nil {
		return err
	}

	hashedPassword, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = hashedPassword
	user.Password = ""
	user.Touch()

	if err := s.userStore.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("password reset",
		slog.String("user_id", user.ID.String()))
	return nil
}
