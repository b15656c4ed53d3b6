package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNewUser(t *testing.T) {
	t.Parallel()

	user, err := NewUser(" Ada ", "Lovelace", " Ada@Example.COM ", "averylongpassword")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if user.Email != "ada@example.com" {
		t.Errorf("Expected normalized email, got %q", user.Email)
	}
	if user.FirstName != "Ada" || user.LastName != "Lovelace" {
		t.Errorf("Expected trimmed names, got %q %q", user.FirstName, user.LastName)
	}

	if _, err := NewUser("", "", "not-an-email", "averylongpassword"); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("Expected ErrInvalidEmail, got %v", err)
	}
	if _, err := NewUser("", "", "a@b.com", "short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("Expected ErrPasswordTooShort, got %v", err)
	}
	if _, err := NewUser("", "", "a@b.com", strings.Repeat("x", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("Expected ErrPasswordTooLong, got %v", err)
	}
}

func TestNormalizeRecoveryAnswer(t *testing.T) {
	t.Parallel()

	if got := NormalizeRecoveryAnswer("  Fluffy THE Cat "); got != "fluffy the cat" {
		t.Errorf("Expected normalized answer, got %q", got)
	}
}

func TestValidEmailFormat(t *testing.T) {
	t.Parallel()

	valid := []string{"a@b.co", "first.last@sub.domain.org"}
	invalid := []string{"", "plain", "@b.co", "a@", "a@nodot", "a@.com"}

	for _, email := range valid {
		if !validEmailFormat(email) {
			t.Errorf("Expected %q to be valid", email)
		}
	}
	for _, email := range invalid {
		if validEmailFormat(email) {
			t.Errorf("Expected %q to be invalid", email)
		}
	}
}
