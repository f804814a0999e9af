package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Put(t *testing.T) {
	root := t.TempDir()
	store, err := New(filepath.Join(root, "archive"))
	require.NoError(t, err)

	when := time.Date(2025, 6, 1, 12, 0, 0, 42, time.UTC)
	content := []byte("rules:\n  - pattern: '**'\n")

	require.NoError(t, store.Put(context.Background(), "alice@example.com/docs", when, content))

	entries, err := os.ReadDir(filepath.Join(root, "archive", "alice@example.com", "docs"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(root, "archive", "alice@example.com", "docs", entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestStore_PutDistinctVersions(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(context.Background(), "alice@example.com", base, []byte("v1")))
	require.NoError(t, store.Put(context.Background(), "alice@example.com", base.Add(time.Nanosecond), []byte("v2")))

	entries, err := os.ReadDir(filepath.Join(store.root, "alice@example.com"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestStore_CancelledContext(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = store.Put(ctx, "alice@example.com", time.Now(), []byte("v1"))
	assert.ErrorIs(t, err, context.Canceled)
}
