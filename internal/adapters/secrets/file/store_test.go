package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/xserver-renew/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRejectsInvalidKeys(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	testCases := []struct {
		name    string
		key     string
		wantErr string
	}{
		{name: "empty", key: "", wantErr: "secret reference has an empty key"},
		{name: "whitespace", key: "   ", wantErr: "secret reference has an empty key"},
		{name: "absolute", key: "/absolute/path", wantErr: "secret:///absolute/path: key must stay inside"},
		{name: "traversal", key: "../escape", wantErr: "secret://../escape: key must stay inside"},
		{name: "parent", key: "..", wantErr: "secret://..: key must stay inside"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.Put(context.Background(), tc.key, "value")
			require.ErrorIs(t, err, domain.ErrConfiguration)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestStoreRoundTripWithRestrictivePermissions(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "accounts/alice", "hunter2"))

	info, err := os.Stat(filepath.Join(root, "accounts", "alice"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	value, err := store.Get(ctx, "accounts/alice")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", value)

	require.NoError(t, store.Delete(ctx, "accounts/alice"))
	require.NoError(t, store.Delete(ctx, "accounts/alice"))

	_, err = store.Get(ctx, "accounts/alice")
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
	assert.Contains(t, err.Error(), "secret://accounts/alice")
}

func TestStorePutReplacesValueWithoutLeftovers(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "bob", "first"))
	require.NoError(t, store.Put(ctx, "bob", "second"))

	value, err := store.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "second", value)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bob", entries[0].Name())
}

func TestStoreGetTrimsTrailingNewline(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "telegram"), []byte("123:abc\r\n"), 0o600))

	value, err := NewStore(root).Get(context.Background(), "telegram")
	require.NoError(t, err)
	assert.Equal(t, "123:abc", value)
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStore(t.TempDir()).Get(ctx, "any")
	require.ErrorIs(t, err, context.Canceled)
}
