package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry_SucceedsFirstTry(t *testing.T) {
	calls := 0

	out, err := withRetry(context.Background(), func() (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RetriesRetryableFailure(t *testing.T) {
	calls := 0

	out, err := withRetry(context.Background(), func() (string, error) {
		calls++
		if calls < 3 {
			return "", domain.NewProviderError("openai", true, errors.New("rate limited"))
		}
		return "recovered", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_PermanentFailureStopsImmediately(t *testing.T) {
	calls := 0
	permErr := domain.NewProviderError("openai", false, errors.New("invalid request"))

	_, err := withRetry(context.Background(), func() (int, error) {
		calls++
		return 0, permErr
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, permErr)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0

	_, err := withRetry(context.Background(), func() (int, error) {
		calls++
		return 0, domain.NewProviderError("openai", true, errors.New("still down"))
	})

	require.Error(t, err)
	assert.Equal(t, providerMaxRetries+1, calls)
	assert.True(t, domain.IsRetryable(err))
}
