package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jengzang/cellwatch-backend-go/internal/catalog"
	"github.com/jengzang/cellwatch-backend-go/internal/models"
)

// ViewerService wires the catalog, layer controller, playback and
// persistence together and owns the startup/rebuild lifecycle
type ViewerService struct {
	catalog     *catalog.Catalog
	controller  *LayerController
	playback    *PlaybackScheduler
	persistence *PersistenceService
	listings    catalog.ListingStore

	startupRetries int
	initialBackoff time.Duration

	mu       sync.Mutex
	viewport *models.Viewport
}

// NewViewerService creates the orchestrator
func NewViewerService(cat *catalog.Catalog, controller *LayerController, playback *PlaybackScheduler, persistence *PersistenceService, listings catalog.ListingStore) *ViewerService {
	return &ViewerService{
		catalog:        cat,
		controller:     controller,
		playback:       playback,
		persistence:    persistence,
		listings:       listings,
		startupRetries: 5,
		initialBackoff: time.Second,
	}
}

// Start performs the initial catalog load and state restore. The data
// source may come up after us, so the load is retried a bounded number of
// times with doubling backoff; exhausting the retries is the only fatal
// failure in the system.
func (s *ViewerService) Start(ctx context.Context) error {
	delay := s.initialBackoff
	var err error
	for attempt := 1; attempt <= s.startupRetries; attempt++ {
		if err = s.catalog.LoadAll(ctx); err == nil {
			break
		}
		if attempt == s.startupRetries {
			return fmt.Errorf("data source not ready after %d attempts: %w", s.startupRetries, err)
		}
		log.Printf("Catalog load attempt %d failed, retrying in %s: %v", attempt, delay, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	s.seedListing()
	s.restore(ctx)
	return nil
}

// Reload is the automatic-reload path, invoked by the watcher when new
// boundary files appear: snapshot, mark, rebuild from scratch, restore in
// full. Playback is stopped first; it is the non-graceful cancellation of
// everything else in flight.
func (s *ViewerService) Reload(ctx context.Context) {
	log.Printf("New data detected; rebuilding catalog")
	s.playback.Stop()

	if err := s.persistence.Snapshot(s.SnapshotState()); err != nil {
		log.Printf("Failed to snapshot view state: %v", err)
	}
	if err := s.persistence.MarkAutomaticReload(); err != nil {
		log.Printf("Failed to mark automatic reload: %v", err)
	}

	if err := s.catalog.LoadAll(ctx); err != nil {
		log.Printf("Catalog rebuild failed, keeping current steps: %v", err)
		return
	}

	s.seedListing()
	s.restore(ctx)
}

// Reset implements the reset-all-settings action: record the reset request,
// purge stored state, and reapply defaults
func (s *ViewerService) Reset(ctx context.Context) error {
	s.playback.Stop()
	if err := s.persistence.RequestReset(); err != nil {
		return err
	}

	mode := s.persistence.Classify()
	snap := s.persistence.Restore(mode)

	s.mu.Lock()
	s.viewport = nil
	s.mu.Unlock()

	s.controller.SetTimeSteps(s.catalog.Steps())
	s.controller.ApplySnapshot(ctx, snap)
	log.Printf("View state reset to defaults")
	return nil
}

// Ready reports whether index-based navigation is enabled; it stays false
// until the first catalog load completes
func (s *ViewerService) Ready() bool {
	return s.catalog.Loaded()
}

// SnapshotState merges the controller state with the reported map viewport
func (s *ViewerService) SnapshotState() models.ViewSnapshot {
	snap := s.controller.ViewSnapshot()
	s.mu.Lock()
	snap.Viewport = s.viewport
	s.mu.Unlock()
	return snap
}

// Persist writes the current ensemble to the settings store; handlers call
// it after every mutation so a crash restores recent state
func (s *ViewerService) Persist() {
	if err := s.persistence.Snapshot(s.SnapshotState()); err != nil {
		log.Printf("Failed to persist view state: %v", err)
	}
}

// SetViewport records the map viewport reported by the frontend
func (s *ViewerService) SetViewport(vp models.Viewport) {
	s.mu.Lock()
	s.viewport = &vp
	s.mu.Unlock()
	s.Persist()
}

// Viewport returns the last reported viewport, nil when none
func (s *ViewerService) Viewport() *models.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// seedListing commits the last directory listing as the watcher's diff
// baseline. Called only after a successful load, and with the listed rather
// than the loaded names, so failed rebuilds are retried on the next check
// while permanently broken files are not re-reported forever.
func (s *ViewerService) seedListing() {
	if err := s.listings.ReplaceFiles(s.catalog.Listing()); err != nil {
		log.Printf("Failed to seed file listing: %v", err)
	}
}

func (s *ViewerService) restore(ctx context.Context) {
	mode := s.persistence.Classify()
	snap := s.persistence.Restore(mode)
	log.Printf("Restoring view state: mode=%s index=%d", mode, snap.CurrentIndex)

	s.mu.Lock()
	s.viewport = snap.Viewport
	s.mu.Unlock()

	s.controller.SetTimeSteps(s.catalog.Steps())
	s.controller.ApplySnapshot(ctx, snap)
}
