package storage

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("2025_07/students.zip", []byte("zip-bytes"))
	require.NoError(t, err)

	file, size, err := store.Open(rel)
	require.NoError(t, err)
	defer file.Close()
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "zip-bytes", string(body))
	assert.EqualValues(t, 9, size)

	require.NoError(t, store.Delete(rel))
	require.NoError(t, store.Delete(rel))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../escape.zip", []byte("x"))
	assert.Error(t, err)
	_, _, err = store.Open("/etc/passwd")
	assert.Error(t, err)
}

func TestLocalStorageCleanup(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	_, err = store.Save("old.zip", []byte("x"))
	require.NoError(t, err)

	deleted, err := store.CleanupOlderThan(-1)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.zip"}, deleted)
}
