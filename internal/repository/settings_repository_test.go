package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/cellwatch-backend-go/internal/database"
)

func newTestSettingsRepo(t *testing.T) *SettingsRepository {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrationManager(db).Run())
	return NewSettingsRepository(db)
}

func TestGetAbsentKey(t *testing.T) {
	repo := newTestSettingsRepo(t)

	_, ok, err := repo.Get(KeyThreshold)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetOverwrites(t *testing.T) {
	repo := newTestSettingsRepo(t)

	require.NoError(t, repo.Set(KeyThreshold, "2.5"))
	require.NoError(t, repo.Set(KeyThreshold, "5.0"))

	value, ok, err := repo.Get(KeyThreshold)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "5.0", value)
}

func TestDeleteAndPurge(t *testing.T) {
	repo := newTestSettingsRepo(t)

	require.NoError(t, repo.Set(KeyThreshold, "2.5"))
	require.NoError(t, repo.Set(KeySelectedUID, "a"))

	require.NoError(t, repo.Delete(KeyThreshold))
	require.NoError(t, repo.Delete(KeyThreshold))
	_, ok, err := repo.Get(KeyThreshold)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.PurgeAll())
	_, ok, err = repo.Get(KeySelectedUID)
	require.NoError(t, err)
	assert.False(t, ok)
}
