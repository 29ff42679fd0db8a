package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromResponse_UsesPayloadMessage(t *testing.T) {
	body := []byte(`{"code":"INVALID_INPUT","message":"Title must be at least 3 characters","details":{"field":"title"}}`)

	err := FromResponse(http.StatusBadRequest, body)

	assert.Equal(t, "Title must be at least 3 characters", err.Message)
	assert.Equal(t, ErrCodeInvalidInput, err.Code)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.JSONEq(t, string(body), string(err.Payload))
	assert.Equal(t, KindValidation, err.Kind())
}

func TestFromResponse_FallsBackToErrorFieldAndStatusText(t *testing.T) {
	err := FromResponse(http.StatusForbidden, []byte(`{"error":"nope"}`))
	assert.Equal(t, "nope", err.Message)

	err = FromResponse(http.StatusBadGateway, []byte(`<html>`))
	assert.Equal(t, "Bad Gateway", err.Message)
	assert.Equal(t, KindServer, err.Kind())
	assert.Equal(t, ErrCodeInternalError, err.Code)

	err = FromResponse(599, nil)
	assert.Equal(t, DefaultMessage, err.Message)
}

func TestFromTransport_WrapsCause(t *testing.T) {
	err := FromTransport(context.DeadlineExceeded, true)

	assert.Equal(t, ErrCodeTimeout, err.Code)
	assert.Equal(t, KindNetwork, err.Kind())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClassification(t *testing.T) {
	unauthorized := FromResponse(http.StatusUnauthorized, nil)
	validation := FromResponse(http.StatusUnprocessableEntity, nil)
	server := FromResponse(http.StatusInternalServerError, nil)
	network := FromTransport(fmt.Errorf("dial tcp: connection refused"), false)

	assert.True(t, IsUnauthorized(fmt.Errorf("wrapped: %w", unauthorized)))
	assert.False(t, IsRetryable(unauthorized))
	assert.False(t, IsRetryable(validation))
	assert.True(t, IsRetryable(server))
	assert.True(t, IsRetryable(network))
	assert.False(t, IsRetryable(fmt.Errorf("plain")))
}

func TestAsAndMessage(t *testing.T) {
	wrapped := fmt.Errorf("failed to create task: %w", NewAPIError(ErrCodeConflict, "duplicate"))

	apiErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeConflict, apiErr.Code)
	assert.Equal(t, "duplicate", Message(wrapped))
	assert.Equal(t, "boom", Message(fmt.Errorf("boom")))
	assert.Empty(t, Message(nil))
}
