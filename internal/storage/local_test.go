package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreSaveOpenRemove(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	n, err := store.Save(ctx, "key1", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	r, err := store.Open(ctx, "key1")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "payload", string(data))

	require.NoError(t, store.Remove(ctx, "key1"))
	_, err = store.Open(ctx, "key1")
	assert.Error(t, err)
}

func TestLocalStoreRemoveMissingIsNoop(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, store.Remove(context.Background(), "absent"))
}

func TestLocalStoreRejectsUnsafeKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", "a/b", `a\b`, "..", "..secret"} {
		_, err := store.Save(ctx, key, strings.NewReader("x"))
		assert.Error(t, err, key)
		_, err = store.Open(ctx, key)
		assert.Error(t, err, key)
	}
}
