package filex

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSubDir_CreatesDirectory(t *testing.T) {
	tmp := t.TempDir()

	got, err := EnsureSubDir(tmp, "interim")
	require.NoError(t, err)

	want := filepath.Join(tmp, "interim")
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		perm := fi.Mode().Perm()
		require.Equal(t, os.FileMode(0o700), perm&0o700)
	}
}

func TestEnsureSubDir_Idempotent(t *testing.T) {
	tmp := t.TempDir()

	first, err := EnsureSubDir(tmp, "interim")
	require.NoError(t, err)

	second, err := EnsureSubDir(tmp, "interim")
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestEnsureSubDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "interim"), []byte("x"), 0o660))

	_, err := EnsureSubDir(tmp, "interim")
	require.Error(t, err, "should fail when a file exists with the same name")
}

func TestWriteFileAtomic_ReplacesContentAndLeavesNoTemp(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "clientsWhoCanUpload.txt")

	require.NoError(t, WriteFileAtomic(path, []byte("one"), 0o600))
	require.NoError(t, WriteFileAtomic(path, []byte("two"), 0o600))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFileAtomic_MissingDir(t *testing.T) {
	err := WriteFileAtomic(filepath.Join(t.TempDir(), "nope", "f.txt"), []byte("x"), 0o600)
	require.Error(t, err)
}

func TestReadLines_TrimsAndSkipsBlank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "banned.txt")
	require.NoError(t, os.WriteFile(path, []byte("  a  \n\n\tb\r\n   \nc"), 0o600))

	lines, err := ReadLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, lines)
}

func TestReadLines_Missing(t *testing.T) {
	_, err := ReadLines(filepath.Join(t.TempDir(), "absent"))
	require.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestRemoveIfExists_And_Size(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, RemoveIfExists(path))

	require.NoError(t, os.WriteFile(path, []byte("12345"), 0o600))
	assert.True(t, Exists(path))

	n, err := Size(path)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	require.NoError(t, RemoveIfExists(path))
	assert.False(t, Exists(path))

	n, err = Size(path)
	require.NoError(t, err)
	assert.Zero(t, n)
}
