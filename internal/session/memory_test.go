package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSession struct {
	OrderNumber string
	Items       map[int64]int
}

func TestMemoryPutGetDelete(t *testing.T) {
	store := NewMemory[testSession](time.Minute)
	defer store.Close()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	want := testSession{OrderNumber: "A1042", Items: map[int64]int{1: 3}}
	require.NoError(t, store.Put(ctx, 42, want))

	got, ok, err := store.Get(ctx, 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	// sessions are per user
	_, ok, err = store.Get(ctx, 43)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Delete(ctx, 42))
	_, ok, err = store.Get(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	// deleting a missing session is not an error
	require.NoError(t, store.Delete(ctx, 42))
}

func TestMemoryExpiry(t *testing.T) {
	store := NewMemory[testSession](10 * time.Millisecond)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, 42, testSession{OrderNumber: "A1042"}))
	time.Sleep(25 * time.Millisecond)

	_, ok, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok, "expired session must not be returned")
}

func TestMemoryPutOverwritesAndResetsTTL(t *testing.T) {
	store := NewMemory[testSession](time.Minute)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, 42, testSession{OrderNumber: "A1"}))
	require.NoError(t, store.Put(ctx, 42, testSession{OrderNumber: "A2"}))

	got, ok, err := store.Get(ctx, 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A2", got.OrderNumber)
}
