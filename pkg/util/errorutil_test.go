package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorPassthrough(t *testing.T) {
	original := NewForbidden("nope")
	mapped := ToDomainError(original)

	assert.Equal(t, "FORBIDDEN", mapped.Code)
	assert.Equal(t, http.StatusForbidden, mapped.HTTPStatus)
}

func TestToDomainErrorUnwrapsWrapped(t *testing.T) {
	wrapped := fmt.Errorf("lookup ticket: %w", NewNotFound("ticket", nil))
	mapped := ToDomainError(wrapped)

	assert.Equal(t, "NOT_FOUND", mapped.Code)
}

func TestToDomainErrorNoRows(t *testing.T) {
	mapped := ToDomainError(pgx.ErrNoRows)
	assert.Equal(t, "NOT_FOUND", mapped.Code)
	assert.Equal(t, http.StatusNotFound, mapped.HTTPStatus)
}

func TestToDomainErrorFiberError(t *testing.T) {
	mapped := ToDomainError(fiber.NewError(http.StatusBadRequest, "bad input"))

	assert.Equal(t, "VALIDATION_FAILED", mapped.Code)
	assert.Equal(t, http.StatusBadRequest, mapped.HTTPStatus)
	assert.Equal(t, "bad input", mapped.Message)
}

func TestToDomainErrorUnknownBecomesInternal(t *testing.T) {
	mapped := ToDomainError(errors.New("disk melted"))

	require.NotNil(t, mapped)
	assert.Equal(t, "INTERNAL_ERROR", mapped.Code)
	assert.Equal(t, http.StatusInternalServerError, mapped.HTTPStatus)
	// The raw cause stays wrapped, never surfaced in the message.
	assert.Equal(t, "internal server error", mapped.Message)
}

func TestToDomainErrorNil(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))
}
