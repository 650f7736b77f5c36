package service_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/formgate/formgate/internal/dto"
	"github.com/formgate/formgate/internal/service"
)

func newValidator(t *testing.T) *service.SubmissionValidator {
	t.Helper()
	return service.NewSubmissionValidator(validator.New(validator.WithRequiredStructEnabled()))
}

func TestValidateNormalizesInput(t *testing.T) {
	v := newValidator(t)

	result := v.Validate(dto.SubmissionRequest{
		Name:    "  Ada Lovelace  ",
		Email:   "  Ada@Example.COM ",
		Message: "I would like to hear back about your engine.",
	})

	require.True(t, result.Valid)
	require.Empty(t, result.Fields)
	require.Equal(t, "Ada Lovelace", result.Normalized.Name)
	require.Equal(t, "ada@example.com", result.Normalized.Email)
	require.Equal(t, service.DefaultSubject, result.Normalized.Subject)
}

func TestValidateStripsMarkupButKeepsText(t *testing.T) {
	v := newValidator(t)

	result := v.Validate(dto.SubmissionRequest{
		Name:    "Ada",
		Email:   "ada@example.com",
		Subject: "<script>alert(1)</script>Engine question",
		Message: "Hello, <b>this</b> is a perfectly normal message.",
	})

	require.True(t, result.Valid)
	require.Equal(t, "Engine question", result.Normalized.Subject)
	require.Equal(t, "Hello, this is a perfectly normal message.", result.Normalized.Message)
}

func TestValidateCollectsAllViolations(t *testing.T) {
	v := newValidator(t)

	result := v.Validate(dto.SubmissionRequest{
		Name:    "A",
		Email:   "not-an-email",
		Message: "short",
	})

	require.False(t, result.Valid)
	require.Len(t, result.Fields, 3)
	require.Contains(t, result.Fields, "name")
	require.Contains(t, result.Fields, "email")
	require.Contains(t, result.Fields, "message")
	require.Equal(t, "Email must be a valid email address", result.Fields["email"])
}

func TestValidateRequiredFields(t *testing.T) {
	v := newValidator(t)

	result := v.Validate(dto.SubmissionRequest{})

	require.False(t, result.Valid)
	require.Equal(t, "Name is required", result.Fields["name"])
	require.Equal(t, "Email is required", result.Fields["email"])
	require.Equal(t, "Message is required", result.Fields["message"])
}

func TestValidateWhitespaceOnlyMessageFailsAfterNormalization(t *testing.T) {
	v := newValidator(t)

	result := v.Validate(dto.SubmissionRequest{
		Name:    "Ada",
		Email:   "ada@example.com",
		Message: "               ",
	})

	require.False(t, result.Valid)
	require.Contains(t, result.Fields, "message")
}
