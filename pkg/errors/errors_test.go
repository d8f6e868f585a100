package errors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/agentstation/mastermap/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := pkgerrors.New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestNotFoundError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := &pkgerrors.NotFoundError{
			Resource: "object",
			ID:       "run/validation_resolutions.json",
		}
		assert.Equal(t, "object run/validation_resolutions.json not found", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))
	})

	t.Run("wrapped error", func(t *testing.T) {
		base := pkgerrors.NewNotFoundError("dataset", "sales")
		wrapped := pkgerrors.WrapIO("get", "sales.csv", base)
		assert.True(t, pkgerrors.IsNotFound(wrapped))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := pkgerrors.NewValidationError("identifier", "9.35E+17", "scientific notation")
		assert.Equal(t, "validation failed for field identifier: scientific notation", err.Error())
		assert.True(t, pkgerrors.IsValidationError(err))
	})

	t.Run("without field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{Message: "no canonical tables"}
		assert.Equal(t, "validation failed: no canonical tables", err.Error())
	})
}

func TestMismatchError(t *testing.T) {
	err := pkgerrors.NewMismatchError("sales", 3, "name", "Acme", "Acme Ltd")
	assert.Contains(t, err.Error(), "sales row 3")
	assert.Contains(t, err.Error(), `"Acme Ltd"`)
	assert.True(t, pkgerrors.IsMismatch(err))
	assert.False(t, pkgerrors.IsNotFound(err))
}

func TestIOError(t *testing.T) {
	base := errors.New("connection reset")
	err := pkgerrors.NewIOError("put", "run/report.json", base)
	assert.Equal(t, "IO error during put of run/report.json: connection reset", err.Error())
	assert.ErrorIs(t, err, base)
}

func TestWrapHelpers(t *testing.T) {
	assert.NoError(t, pkgerrors.WrapIO("get", "k", nil))
	assert.NoError(t, pkgerrors.WrapResource("load", "dataset", "d", nil))
	assert.NoError(t, pkgerrors.WrapParse("json", "f", nil))
	assert.NoError(t, pkgerrors.WrapCanceled("reconcile", nil))

	base := errors.New("boom")
	err := pkgerrors.WrapResource("persist", "dataset", "sales", base)
	require.Error(t, err)
	assert.Equal(t, "failed to persist dataset sales: boom", err.Error())
	assert.ErrorIs(t, err, base)

	err = pkgerrors.WrapParse("json", "resolutions.json", base)
	assert.Equal(t, "parse error in json file resolutions.json: boom", err.Error())

	var cfgErr *pkgerrors.ConfigError
	err = pkgerrors.NewConfigError("blob", "unknown backend", nil)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "configuration error in blob: unknown backend", err.Error())
}

func TestWebhookError(t *testing.T) {
	err := pkgerrors.NewWebhookError("http://flows/pause", 503, "down")
	assert.Equal(t, "webhook http://flows/pause returned status 503: down", err.Error())
	assert.ErrorIs(t, err, pkgerrors.ErrUnavailable)

	client := pkgerrors.NewWebhookError("http://flows/pause", 404, "")
	assert.Equal(t, "webhook http://flows/pause returned status 404", client.Error())
	assert.False(t, errors.Is(client, pkgerrors.ErrUnavailable))
}

func TestAlreadyExistsError(t *testing.T) {
	err := pkgerrors.NewAlreadyExistsError("resolutions", "ns/validation_resolutions.json")
	assert.Equal(t, "resolutions ns/validation_resolutions.json already exists", err.Error())
	assert.True(t, pkgerrors.IsAlreadyExists(err))
	assert.True(t, pkgerrors.IsAlreadyExists(fmt.Errorf("submit: %w", err)))
	assert.False(t, pkgerrors.IsNotFound(err))
}

func TestWrapCanceled(t *testing.T) {
	err := pkgerrors.WrapCanceled("reconcile", context.Canceled)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCanceled(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "reconcile: operation canceled: context canceled", err.Error())

	assert.False(t, pkgerrors.IsCanceled(errors.New("boom")))
}
