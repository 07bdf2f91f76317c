package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStoreRoundTrip(t *testing.T) {
	db := NewTestDB(t)
	store := NewConfigStore(db)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	err := store.SetValue(ctx, "org1", "settings", payload{Name: "alpha", Count: 3})
	require.NoError(t, err)

	var got payload
	found, err := store.GetValue(ctx, "org1", "settings", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Name: "alpha", Count: 3}, got)
}

func TestConfigStoreMissingKey(t *testing.T) {
	db := NewTestDB(t)
	store := NewConfigStore(db)

	var got map[string]any
	found, err := store.GetValue(context.Background(), "org1", "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestConfigStoreOverwrite(t *testing.T) {
	db := NewTestDB(t)
	store := NewConfigStore(db)
	ctx := context.Background()

	require.NoError(t, store.SetValue(ctx, "org1", "selectedVersion", "v1"))
	require.NoError(t, store.SetValue(ctx, "org1", "selectedVersion", "v2"))

	var got string
	found, err := store.GetValue(ctx, "org1", "selectedVersion", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v2", got)
}

func TestConfigStoreScopeIsolation(t *testing.T) {
	db := NewTestDB(t)
	store := NewConfigStore(db)
	ctx := context.Background()

	require.NoError(t, store.SetValue(ctx, "org1", "roles", []string{"a"}))

	var got []string
	found, err := store.GetValue(ctx, "org2", "roles", &got)
	require.NoError(t, err)
	assert.False(t, found)
}
