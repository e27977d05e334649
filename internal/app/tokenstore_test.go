package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "tokens")
	store, err := AuthConfig{Storage: TokenStorageTypeFile, File: path}.NewTokenStore()
	require.NoError(t, err)

	got, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.Write(ctx, "a,b"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err = store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a,b", got)

	require.NoError(t, store.Write(ctx, ""))
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnvStoreIsReadOnly(t *testing.T) {
	t.Setenv("TEST_JIMENG_TOKENS", " x,y ")
	store, err := AuthConfig{Storage: TokenStorageTypeEnv, EnvVar: "TEST_JIMENG_TOKENS"}.NewTokenStore()
	require.NoError(t, err)

	got, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x,y", got)
	assert.ErrorIs(t, store.Write(context.Background(), "z"), ErrReadOnlyStore)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()
	store, err := AuthConfig{Storage: TokenStorageTypeKeyring}.NewTokenStore()
	require.NoError(t, err)

	got, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.Write(ctx, "k1"))
	got, err = store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "k1", got)

	require.NoError(t, store.Write(ctx, ""))
	require.NoError(t, store.Write(ctx, ""))
}

func TestNoneStorage(t *testing.T) {
	store, err := AuthConfig{Storage: TokenStorageTypeNone}.NewTokenStore()
	require.NoError(t, err)
	assert.Nil(t, store)
}

type countingStore struct {
	value string
	reads int
}

func (s *countingStore) Read(context.Context) (string, error) {
	s.reads++
	return s.value, nil
}

func (s *countingStore) Write(_ context.Context, v string) error {
	s.value = v
	return nil
}

func TestStoreTokenSourceCachesUntilExpiry(t *testing.T) {
	store := &countingStore{value: "a,b"}
	now := time.Now()
	src := storeTokenSource{ctx: context.Background(), store: store, now: func() time.Time { return now }}

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "a,b", tok.AccessToken)
	assert.Equal(t, now.Add(tokenRefresh), tok.Expiry)

	cached := NewStoreTokenSource(context.Background(), store)
	for range 3 {
		tok, err = cached.Token()
		require.NoError(t, err)
	}
	assert.Equal(t, "a,b", tok.AccessToken)
	assert.Equal(t, 2, store.reads)
}
