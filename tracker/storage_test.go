package tracker

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s, err := NewSQLiteStorage(db)
	require.NoError(t, err)
	return s
}

func TestSQLiteStorage_GetSet(t *testing.T) {
	s := openTestStorage(t)

	_, ok, err := s.GetItem("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetItem("k", "v1"))
	require.NoError(t, s.SetItem("k", "v2"))

	v, ok, err := s.GetItem("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v, "last write wins")
}

func TestSQLiteStorage_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.db")

	first, err := OpenSQLiteStorage(path)
	require.NoError(t, err)
	id := DeviceID(first)
	require.NoError(t, first.Close())

	second, err := OpenSQLiteStorage(path)
	require.NoError(t, err)
	defer second.Close()
	assert.Equal(t, id, DeviceID(second))
}

func TestDeviceID_CreatedOnceAndReused(t *testing.T) {
	storage := NewMemoryStorage()
	id := DeviceID(storage)
	require.NotEmpty(t, id)
	assert.Equal(t, id, DeviceID(storage))

	stored, ok, _ := storage.GetItem(BrowserIDKey)
	assert.True(t, ok)
	assert.Equal(t, id, stored)
}

type brokenStorage struct{}

func (brokenStorage) GetItem(string) (string, bool, error) { return "", false, errors.New("quota exceeded") }
func (brokenStorage) SetItem(string, string) error { return errors.New("quota exceeded") }

func TestDeviceID_StorageFailureFallsBack(t *testing.T) {
	a := DeviceID(brokenStorage{})
	b := DeviceID(brokenStorage{})
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b, "ephemeral identifiers are fresh each time")
	assert.NotEmpty(t, DeviceID(nil))
}
