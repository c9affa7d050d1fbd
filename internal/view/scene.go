package view

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jengzang/cellwatch-backend-go/internal/models"
	"github.com/jengzang/cellwatch-backend-go/internal/spatial"
)

// BoundaryState is one rendered boundary layer in the scene document
type BoundaryState struct {
	ID      LayerID         `json:"id"`
	Style   Style           `json:"style"`
	Feature *models.Feature `json:"feature"`
}

// ChartState is the evolution-chart part of the scene document
type ChartState struct {
	Visible bool                    `json:"visible"`
	UID     string                  `json:"uid,omitempty"`
	Points  []models.EvolutionPoint `json:"points,omitempty"`
}

// SceneDocument is the versioned render model the map frontend polls.
// A frontend that already holds the current revision skips redrawing.
type SceneDocument struct {
	Revision           string                    `json:"revision"`
	Boundaries         []BoundaryState           `json:"boundaries"`
	Markers            []Marker                  `json:"markers"`
	Trajectory         *models.FeatureCollection `json:"trajectory,omitempty"`
	TrajectoryLengthKm float64                   `json:"trajectoryLengthKm,omitempty"`
	Timestamp          string                    `json:"timestamp"`
	Progress           float64                   `json:"progress"`
	Chart              ChartState                `json:"chart"`
}

// MapScene is the production Surface and ChartView. Mutations accumulate in
// a draft; Commit copies the draft into the published document under a new
// revision, so a concurrent poll never observes a half-applied transition.
type MapScene struct {
	mu        sync.RWMutex
	draft     SceneDocument
	published SceneDocument
	nextLayer LayerID
}

// NewMapScene creates an empty scene
func NewMapScene() *MapScene {
	s := &MapScene{}
	s.published.Revision = uuid.NewString()
	return s
}

// RenderBoundaries replaces the draft boundary set
func (s *MapScene) RenderBoundaries(features []*models.Feature, style StyleFunc) []LayerID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]LayerID, len(features))
	s.draft.Boundaries = make([]BoundaryState, len(features))
	for i, f := range features {
		s.nextLayer++
		ids[i] = s.nextLayer
		s.draft.Boundaries[i] = BoundaryState{ID: s.nextLayer, Style: style(f), Feature: f}
	}
	return ids
}

// SetStyle restyles one draft boundary layer
func (s *MapScene) SetStyle(id LayerID, style Style) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.draft.Boundaries {
		if s.draft.Boundaries[i].ID == id {
			s.draft.Boundaries[i].Style = style
			return
		}
	}
}

// RenderTrajectory replaces the trajectory overlay and annotates its total
// great-circle length
func (s *MapScene) RenderTrajectory(fc *models.FeatureCollection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft.Trajectory = fc
	s.draft.TrajectoryLengthKm = trajectoryLengthKm(fc)
}

// ClearTrajectory removes the trajectory overlay
func (s *MapScene) ClearTrajectory() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft.Trajectory = nil
	s.draft.TrajectoryLengthKm = 0
}

// SetMarkers replaces the marker annotations
func (s *MapScene) SetMarkers(markers []Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft.Markers = markers
}

// SetTimestamp sets the displayed timestamp label
func (s *MapScene) SetTimestamp(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft.Timestamp = label
}

// SetProgress sets the progress fraction
func (s *MapScene) SetProgress(frac float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft.Progress = frac
}

// Clear unrenders boundaries and markers
func (s *MapScene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft.Boundaries = nil
	s.draft.Markers = nil
}

// Update shows the evolution chart for the given entity
func (s *MapScene) Update(uid string, points []models.EvolutionPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft.Chart = ChartState{Visible: true, UID: uid, Points: points}
}

// Hide hides the evolution chart
func (s *MapScene) Hide() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft.Chart = ChartState{}
}

// Commit publishes the draft under a fresh revision
func (s *MapScene) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.draft
	doc.Boundaries = append([]BoundaryState(nil), s.draft.Boundaries...)
	doc.Markers = append([]Marker(nil), s.draft.Markers...)
	doc.Chart.Points = append([]models.EvolutionPoint(nil), s.draft.Chart.Points...)
	doc.Revision = uuid.NewString()
	s.published = doc
}

// Snapshot returns the last committed scene document
func (s *MapScene) Snapshot() SceneDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.published
}

// Chart returns the committed chart state; the evolution endpoints read it
func (s *MapScene) Chart() ChartState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.published.Chart
}

func trajectoryLengthKm(fc *models.FeatureCollection) float64 {
	if fc == nil {
		return 0
	}

	var paths [][]spatial.Point
	for _, f := range fc.Features {
		ps, err := f.Geometry.Paths()
		if err != nil {
			continue
		}
		for _, p := range ps {
			pts := make([]spatial.Point, len(p))
			for i, pos := range p {
				pts[i] = spatial.Point{Lat: pos.Lat(), Lon: pos.Lon()}
			}
			paths = append(paths, pts)
		}
	}
	return spatial.PathsLengthKm(paths)
}
