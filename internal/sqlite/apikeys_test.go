package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallgren/gatecheck/internal/host"
)

func TestAPIKeyResolve(t *testing.T) {
	db := NewTestDB(t)
	store := NewAPIKeyStore(db)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "hash-1", "org1", "widget key"))

	scope, err := store.ResolveScope(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, "org1", scope)

	_, err = store.ResolveScope(ctx, "hash-unknown")
	assert.ErrorIs(t, err, host.ErrNotFound)
}

func TestAPIKeyDuplicate(t *testing.T) {
	db := NewTestDB(t)
	store := NewAPIKeyStore(db)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "hash-1", "org1", ""))
	assert.Error(t, store.Insert(ctx, "hash-1", "org2", ""))
}
