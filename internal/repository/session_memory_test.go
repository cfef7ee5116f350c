package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemorySessionStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemorySessionStore(time.Hour)

	token, err := store.Load(ctx, "sid")
	require.NoError(t, err)
	require.Empty(t, token)

	require.NoError(t, store.Save(ctx, "sid", "tok-1"))
	require.NoError(t, store.Save(ctx, "sid", "tok-2"))
	token, err = store.Load(ctx, "sid")
	require.NoError(t, err)
	require.Equal(t, "tok-2", token)

	require.NoError(t, store.Delete(ctx, "sid"))
	token, err = store.Load(ctx, "sid")
	require.NoError(t, err)
	require.Empty(t, token)
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemorySessionStore(time.Minute)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, "sid", "tok"))
	now = now.Add(2 * time.Minute)

	token, err := store.Load(ctx, "sid")
	require.NoError(t, err)
	require.Empty(t, token)
}

func TestMemorySessionStoreCleanExpired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemorySessionStore(time.Minute)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, "old", "tok-1"))
	now = now.Add(30 * time.Second)
	require.NoError(t, store.Save(ctx, "fresh", "tok-2"))
	now = now.Add(45 * time.Second)

	removed, err := store.CleanExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	token, err := store.Load(ctx, "fresh")
	require.NoError(t, err)
	require.Equal(t, "tok-2", token)
}
