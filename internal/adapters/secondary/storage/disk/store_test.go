package disk

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustfabric/trustfabric/internal/core/errors"
)

func TestStoreRoundTrip(t *testing.T) {
	store := New(t.TempDir())

	path := "accounts-ca.example.net/cert.pem"
	exists, err := store.Exists(path)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Read(path)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	require.NoError(t, store.Write(path, []byte("hello")))

	exists, err = store.Exists(path)
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := store.Read(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestStoreKeyFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}
	dir := t.TempDir()
	store := New(dir)

	require.NoError(t, store.Write("cn/key.pem", []byte("secret")))
	require.NoError(t, store.Write("cn/cert.pem", []byte("public")))

	keyInfo, err := os.Stat(filepath.Join(dir, "cn", "key.pem"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), keyInfo.Mode().Perm())

	certInfo, err := os.Stat(filepath.Join(dir, "cn", "cert.pem"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), certInfo.Mode().Perm())
}

func TestStoreConfinesPathsToRoot(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	for _, path := range []string{"", ".", ".."} {
		err := store.Write(path, []byte("x"))
		assert.ErrorIs(t, err, errors.ErrIO, "path %q", path)
	}

	// Traversal components are normalized away; the write lands inside the
	// root, never above it.
	require.NoError(t, store.Write("../outside/cert.pem", []byte("x")))
	_, err := os.Stat(filepath.Join(dir, "outside", "cert.pem"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "outside"))
	assert.True(t, os.IsNotExist(err))
}

// TestStoreRelativeRoot covers the default configuration, which roots the
// store at the current working directory.
func TestStoreRelativeRoot(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Chdir(t.TempDir()))
	store := New(".")

	path := "accounts-ca.example.net/cert.pem"
	require.NoError(t, store.Write(path, []byte("hello")))

	exists, err := store.Exists(path)
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := store.Read(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = os.Stat(filepath.Join(".", "accounts-ca.example.net", "cert.pem"))
	assert.NoError(t, err)
}

func TestStoreOverwrite(t *testing.T) {
	store := New(t.TempDir())

	require.NoError(t, store.Write("x/cert.pem", []byte("one")))
	require.NoError(t, store.Write("x/cert.pem", []byte("two")))
	data, err := store.Read("x/cert.pem")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)
}
