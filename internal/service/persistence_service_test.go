package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/cellwatch-backend-go/internal/database"
	"github.com/jengzang/cellwatch-backend-go/internal/models"
	"github.com/jengzang/cellwatch-backend-go/internal/repository"
)

func newTestSettingsRepo(t *testing.T) *repository.SettingsRepository {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrationManager(db).Run())
	return repository.NewSettingsRepository(db)
}

func newTestPersistence(t *testing.T) (*PersistenceService, *repository.SettingsRepository) {
	repo := newTestSettingsRepo(t)
	return NewPersistenceService(repo, 5*time.Minute, "2.5"), repo
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	svc, _ := newTestPersistence(t)

	in := models.ViewSnapshot{
		SelectedUID:       "a",
		DisplayOptions:    models.DisplayOptions{"uid": true, "area": false},
		Threshold:         "5.0",
		CurrentIndex:      3,
		TrajectoryVisible: true,
		Viewport:          &models.Viewport{Center: [2]float64{51.5, -0.1}, Zoom: 8},
	}
	require.NoError(t, svc.Snapshot(in))

	out := svc.Restore(models.RestoreFull)
	assert.Equal(t, "a", out.SelectedUID)
	assert.Equal(t, models.DisplayOptions{"uid": true, "area": false}, out.DisplayOptions)
	assert.Equal(t, "5.0", out.Threshold)
	assert.Equal(t, 3, out.CurrentIndex)
	assert.True(t, out.TrajectoryVisible)
	require.NotNil(t, out.Viewport)
	assert.Equal(t, [2]float64{51.5, -0.1}, out.Viewport.Center)
	assert.Equal(t, 8, out.Viewport.Zoom)
}

func TestSnapshotClearsStoredSelection(t *testing.T) {
	svc, repo := newTestPersistence(t)

	require.NoError(t, svc.Snapshot(models.ViewSnapshot{SelectedUID: "a", Threshold: "2.5"}))
	require.NoError(t, svc.Snapshot(models.ViewSnapshot{Threshold: "2.5"}))

	_, ok, err := repo.Get(repository.KeySelectedUID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClassifyDefaultsToViewportOnly(t *testing.T) {
	svc, _ := newTestPersistence(t)
	assert.Equal(t, models.RestoreViewportOnly, svc.Classify())
}

func TestClassifyFullAfterAutomaticReload(t *testing.T) {
	svc, repo := newTestPersistence(t)

	require.NoError(t, svc.MarkAutomaticReload())
	assert.Equal(t, models.RestoreFull, svc.Classify())

	// The marker is consumed on first classification
	_, ok, err := repo.Get(repository.KeyAutoReloadAt)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, models.RestoreViewportOnly, svc.Classify())
}

func TestClassifyStaleMarkerIsViewportOnly(t *testing.T) {
	svc, repo := newTestPersistence(t)

	stale := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	require.NoError(t, repo.Set(repository.KeyAutoReloadAt, stale))
	assert.Equal(t, models.RestoreViewportOnly, svc.Classify())
}

func TestClassifyUnparseableMarkerIsViewportOnly(t *testing.T) {
	svc, repo := newTestPersistence(t)

	require.NoError(t, repo.Set(repository.KeyAutoReloadAt, "not a time"))
	assert.Equal(t, models.RestoreViewportOnly, svc.Classify())
}

func TestClassifyStoreErrorFallsBackToViewportOnly(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.NewMigrationManager(db).Run())
	svc := NewPersistenceService(repository.NewSettingsRepository(db), 5*time.Minute, "2.5")

	db.Close()
	assert.Equal(t, models.RestoreViewportOnly, svc.Classify())
}

func TestClassifyResetWinsOverReloadMarker(t *testing.T) {
	svc, repo := newTestPersistence(t)

	require.NoError(t, svc.MarkAutomaticReload())
	require.NoError(t, svc.RequestReset())
	assert.Equal(t, models.RestoreNothing, svc.Classify())

	// Both markers are consumed together
	_, ok, err := repo.Get(repository.KeyResetRequested)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = repo.Get(repository.KeyAutoReloadAt)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRestoreViewportOnlyKeepsDefaults(t *testing.T) {
	svc, _ := newTestPersistence(t)

	require.NoError(t, svc.Snapshot(models.ViewSnapshot{
		SelectedUID:  "a",
		Threshold:    "5.0",
		CurrentIndex: 3,
		Viewport:     &models.Viewport{Center: [2]float64{51.5, -0.1}, Zoom: 8},
	}))

	out := svc.Restore(models.RestoreViewportOnly)
	assert.Empty(t, out.SelectedUID)
	assert.Equal(t, "2.5", out.Threshold)
	assert.Equal(t, -1, out.CurrentIndex)
	require.NotNil(t, out.Viewport)
	assert.Equal(t, 8, out.Viewport.Zoom)
}

func TestRestoreNothingPurgesStore(t *testing.T) {
	svc, repo := newTestPersistence(t)

	require.NoError(t, svc.Snapshot(models.ViewSnapshot{SelectedUID: "a", Threshold: "5.0"}))

	out := svc.Restore(models.RestoreNothing)
	assert.Empty(t, out.SelectedUID)
	assert.Equal(t, "2.5", out.Threshold)
	assert.Nil(t, out.Viewport)

	_, ok, err := repo.Get(repository.KeyThreshold)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRestoreTreatsMalformedValuesAsAbsent(t *testing.T) {
	svc, repo := newTestPersistence(t)

	require.NoError(t, repo.Set(repository.KeyDisplayOptions, "{broken"))
	require.NoError(t, repo.Set(repository.KeyCurrentIndex, "three"))
	require.NoError(t, repo.Set(repository.KeyViewport, "[]"))

	out := svc.Restore(models.RestoreFull)
	assert.Equal(t, models.DisplayOptions{}, out.DisplayOptions)
	assert.Equal(t, -1, out.CurrentIndex)
	assert.Nil(t, out.Viewport)
}
