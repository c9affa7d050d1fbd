package service

import (
	"fmt"
	"log"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/jengzang/cellwatch-backend-go/internal/models"
	"github.com/jengzang/cellwatch-backend-go/internal/repository"
)

// PersistenceService snapshots and restores the view-state ensemble around
// catalog rebuilds and process restarts. Restore behavior is classified once
// at startup: an automatic rebuild restores everything, a user-initiated
// restart keeps only the map viewport, and an explicit reset purges even
// that.
type PersistenceService struct {
	repo             *repository.SettingsRepository
	markerWindow     time.Duration
	defaultThreshold string
}

// NewPersistenceService creates a persistence gateway over the settings
// store
func NewPersistenceService(repo *repository.SettingsRepository, markerWindow time.Duration, defaultThreshold string) *PersistenceService {
	return &PersistenceService{
		repo:             repo,
		markerWindow:     markerWindow,
		defaultThreshold: defaultThreshold,
	}
}

// Snapshot writes the whole view-state ensemble to the store
func (s *PersistenceService) Snapshot(snap models.ViewSnapshot) error {
	if snap.SelectedUID == "" {
		if err := s.repo.Delete(repository.KeySelectedUID); err != nil {
			return err
		}
	} else if err := s.repo.Set(repository.KeySelectedUID, snap.SelectedUID); err != nil {
		return err
	}

	options, err := json.Marshal(snap.DisplayOptions)
	if err != nil {
		return fmt.Errorf("failed to encode display options: %w", err)
	}
	if err := s.repo.Set(repository.KeyDisplayOptions, string(options)); err != nil {
		return err
	}

	if err := s.repo.Set(repository.KeyThreshold, snap.Threshold); err != nil {
		return err
	}
	if err := s.repo.Set(repository.KeyCurrentIndex, strconv.Itoa(snap.CurrentIndex)); err != nil {
		return err
	}
	if err := s.repo.Set(repository.KeyTrajectoryVisible, strconv.FormatBool(snap.TrajectoryVisible)); err != nil {
		return err
	}

	if snap.Viewport != nil {
		viewport, err := json.Marshal(snap.Viewport)
		if err != nil {
			return fmt.Errorf("failed to encode viewport: %w", err)
		}
		if err := s.repo.Set(repository.KeyViewport, string(viewport)); err != nil {
			return err
		}
	}
	return nil
}

// MarkAutomaticReload records that the process itself is about to rebuild,
// so the next restore runs in full
func (s *PersistenceService) MarkAutomaticReload() error {
	return s.repo.Set(repository.KeyAutoReloadAt, time.Now().UTC().Format(time.RFC3339))
}

// RequestReset records that the user asked for a clean slate
func (s *PersistenceService) RequestReset() error {
	return s.repo.Set(repository.KeyResetRequested, "true")
}

// Classify decides, once, how much stored state the next restore applies.
// Both markers are consumed: classification happens exactly once per
// restart or rebuild.
func (s *PersistenceService) Classify() models.RestoreMode {
	if _, ok, err := s.repo.Get(repository.KeyResetRequested); err == nil && ok {
		if err := s.repo.Delete(repository.KeyResetRequested); err != nil {
			log.Printf("Failed to consume reset marker: %v", err)
		}
		if err := s.repo.Delete(repository.KeyAutoReloadAt); err != nil {
			log.Printf("Failed to consume reload marker: %v", err)
		}
		return models.RestoreNothing
	}

	raw, ok, err := s.repo.Get(repository.KeyAutoReloadAt)
	if err != nil || !ok {
		return models.RestoreViewportOnly
	}
	if err := s.repo.Delete(repository.KeyAutoReloadAt); err != nil {
		log.Printf("Failed to consume reload marker: %v", err)
	}

	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Unparseable marker is treated as absent
		return models.RestoreViewportOnly
	}
	if time.Since(at) > s.markerWindow {
		// A stale marker means the reload it announced never happened
		return models.RestoreViewportOnly
	}
	return models.RestoreFull
}

// Restore reads stored state back according to the mode. Malformed values
// are treated as absent and fall back to defaults. The default index of -1
// means "last available step".
func (s *PersistenceService) Restore(mode models.RestoreMode) models.ViewSnapshot {
	snap := models.ViewSnapshot{
		DisplayOptions: models.DisplayOptions{},
		Threshold:      s.defaultThreshold,
		CurrentIndex:   -1,
	}

	switch mode {
	case models.RestoreNothing:
		if err := s.repo.PurgeAll(); err != nil {
			log.Printf("Failed to purge settings: %v", err)
		}
		return snap

	case models.RestoreViewportOnly:
		snap.Viewport = s.readViewport()
		return snap

	default: // RestoreFull
		if uid, ok, err := s.repo.Get(repository.KeySelectedUID); err == nil && ok {
			snap.SelectedUID = uid
		}
		if raw, ok, err := s.repo.Get(repository.KeyDisplayOptions); err == nil && ok {
			var options models.DisplayOptions
			if err := json.Unmarshal([]byte(raw), &options); err == nil && options != nil {
				snap.DisplayOptions = options
			}
		}
		if v, ok, err := s.repo.Get(repository.KeyThreshold); err == nil && ok && v != "" {
			snap.Threshold = v
		}
		if raw, ok, err := s.repo.Get(repository.KeyCurrentIndex); err == nil && ok {
			if idx, err := strconv.Atoi(raw); err == nil {
				snap.CurrentIndex = idx
			}
		}
		if raw, ok, err := s.repo.Get(repository.KeyTrajectoryVisible); err == nil && ok {
			snap.TrajectoryVisible = raw == "true"
		}
		snap.Viewport = s.readViewport()
		return snap
	}
}

func (s *PersistenceService) readViewport() *models.Viewport {
	raw, ok, err := s.repo.Get(repository.KeyViewport)
	if err != nil || !ok {
		return nil
	}
	var vp models.Viewport
	if err := json.Unmarshal([]byte(raw), &vp); err != nil {
		return nil
	}
	return &vp
}
