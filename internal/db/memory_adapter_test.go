package db

import (
	"context"
	"testing"

	"github.com/sipwell/sipwell-client/internal/apperrors"
	"github.com/sipwell/sipwell-client/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAdapterIsTokenRepository(t *testing.T) {
	_ = models.TokenRepository(NewMemoryAdapter())
}

func TestMemoryAdapterLifecycle(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	_, err := adapter.GetToken(ctx, models.AccessTokenKey)
	assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)

	require.NoError(t, adapter.SetTokenPair(ctx, "a1", "r1"))
	require.NoError(t, adapter.SetTokenPair(ctx, "a2", ""))
	access, err := adapter.GetToken(ctx, models.AccessTokenKey)
	require.NoError(t, err)
	refresh, err := adapter.GetToken(ctx, models.RefreshTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "a2", access)
	assert.Equal(t, "r1", refresh)

	require.NoError(t, adapter.RemoveTokens(ctx))
	_, err = adapter.GetToken(ctx, models.RefreshTokenKey)
	assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)
}

func TestMemoryAdapterRejectsEmptyAccessToken(t *testing.T) {
	adapter := NewMemoryAdapter()

	err := adapter.SetTokenPair(context.Background(), "", "r1")

	assert.ErrorIs(t, err, apperrors.ErrEmptyAccessToken)
}
