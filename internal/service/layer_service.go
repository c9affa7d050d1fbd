package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/jengzang/cellwatch-backend-go/internal/catalog"
	"github.com/jengzang/cellwatch-backend-go/internal/models"
	"github.com/jengzang/cellwatch-backend-go/internal/spatial"
	"github.com/jengzang/cellwatch-backend-go/internal/view"
)

// TrajectoryLoader fetches the trajectory overlay for a step
type TrajectoryLoader interface {
	Trajectory(ctx context.Context, step *models.TimeStep) (*models.FeatureCollection, error)
}

// renderedLayer pairs a rendered feature with its surface layer id for the
// currently shown step
type renderedLayer struct {
	feature *models.Feature
	layer   view.LayerID
}

// LayerController owns the "current step + current selection + current
// filter" ensemble and is the only mutator of the rendering surface. Every
// operation holds the controller lock end to end, so a transition is atomic
// from any caller's point of view.
type LayerController struct {
	mu           sync.Mutex
	surface      view.Surface
	chart        view.ChartView
	evolution    *EvolutionService
	trajectories TrajectoryLoader

	steps    []*models.TimeStep
	rendered []renderedLayer

	selection         view.Selection
	filter            models.ThresholdFilter
	display           models.DisplayOptions
	trajectoryVisible bool
	currentIndex      int
}

// NewLayerController creates a controller in the idle state
func NewLayerController(surface view.Surface, chart view.ChartView, evolution *EvolutionService, trajectories TrajectoryLoader, defaultThreshold string) *LayerController {
	return &LayerController{
		surface:      surface,
		chart:        chart,
		evolution:    evolution,
		trajectories: trajectories,
		filter:       models.ThresholdFilter{Value: defaultThreshold},
		display:      models.DisplayOptions{},
		currentIndex: -1,
	}
}

// SetTimeSteps replaces the step sequence wholesale. The evolution cache is
// invalidated here because every cached series was computed against the old
// sequence. Nothing is rendered until the next ShowTimeStepAt.
func (c *LayerController) SetTimeSteps(steps []*models.TimeStep) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.steps = steps
	c.rendered = nil
	c.selection.ClearRendered()
	c.currentIndex = -1
	c.evolution.Invalidate()
}

// StepCount returns the number of loaded steps
func (c *LayerController) StepCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.steps)
}

// CurrentIndex returns the index of the step being shown, -1 when idle
func (c *LayerController) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentIndex
}

// Steps returns the current step sequence
func (c *LayerController) Steps() []*models.TimeStep {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*models.TimeStep, len(c.steps))
	copy(out, c.steps)
	return out
}

// ShowTimeStepAt swaps the rendered layer to step j. Out-of-range j is a
// silent no-op. The selected uid survives the swap even when the entity has
// no boundary in the new step.
func (c *LayerController) ShowTimeStepAt(ctx context.Context, j int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showLocked(ctx, j)
}

// AdvanceOneStep shows the next step, wrapping at the end. Driven by the
// playback scheduler.
func (c *LayerController) AdvanceOneStep(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.steps) == 0 {
		return
	}
	c.showLocked(ctx, (c.currentIndex+1)%len(c.steps))
}

func (c *LayerController) showLocked(ctx context.Context, j int) {
	if j < 0 || j >= len(c.steps) {
		return
	}
	step := c.steps[j]

	// The uid is captured before the per-step selection parts are
	// invalidated; it is what carries the selection across the swap
	priorUID := c.selection.UID

	c.surface.Clear()
	c.surface.ClearTrajectory()
	c.selection.ClearRendered()

	passing := step.FeaturesPassing(c.filter)
	ids := c.surface.RenderBoundaries(passing, func(f *models.Feature) view.Style {
		if priorUID != "" && f.UID() == priorUID {
			return view.StyleSelected
		}
		return view.StyleDefault
	})

	c.rendered = c.rendered[:0]
	for i, f := range passing {
		c.rendered = append(c.rendered, renderedLayer{feature: f, layer: ids[i]})
	}

	if priorUID != "" {
		if rl := c.findRenderedLocked(priorUID); rl != nil {
			c.selection.SetRendered(rl.feature, rl.layer)
			c.surface.SetStyle(rl.layer, view.StyleSelected)
			c.updateChartLocked()
		} else {
			// Entity absent at this time; keep the uid so it re-resolves
			// when the entity reappears
			c.chart.Hide()
		}
	}

	c.surface.SetTimestamp(catalog.DisplayTimestamp(step))
	c.refreshMarkersLocked()

	if c.trajectoryVisible {
		c.loadTrajectoryLocked(ctx, step)
	}

	c.currentIndex = j
	c.surface.SetProgress(progressFraction(j, len(c.steps)))
	c.surface.Commit()
}

// ClickFeature implements the click-to-select protocol for a click on the
// rendered feature with the given uid
func (c *LayerController) ClickFeature(uid string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rl := c.findRenderedLocked(uid)
	if rl == nil {
		return fmt.Errorf("no rendered boundary with uid %q", uid)
	}

	// Clicking the already-selected entity clears the selection fully
	if c.selection.UID == uid {
		c.selection.Clear()
		c.surface.SetStyle(rl.layer, view.StyleDefault)
		c.chart.Hide()
		c.refreshMarkersLocked()
		c.surface.Commit()
		return nil
	}

	// Reset every style first so no stale highlight survives a reselect
	if c.selection.Active() {
		for _, r := range c.rendered {
			c.surface.SetStyle(r.layer, view.StyleDefault)
		}
	}

	c.selection.SetRendered(rl.feature, rl.layer)
	c.surface.SetStyle(rl.layer, view.StyleSelected)
	c.updateChartLocked()

	// Convenience default: make the selected entity's id visible when no
	// label toggle is active yet
	if !c.display.AnyEnabled() {
		c.display["uid"] = true
	}

	c.refreshMarkersLocked()
	c.surface.Commit()
	return nil
}

// ClickBackground clears the selection, identical to re-clicking the
// selected feature
func (c *LayerController) ClickBackground() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.selection.Active() {
		return
	}
	if c.selection.Rendered() {
		c.surface.SetStyle(c.selection.Layer, view.StyleDefault)
	}
	c.selection.Clear()
	c.chart.Hide()
	c.refreshMarkersLocked()
	c.surface.Commit()
}

// SetThreshold switches the active filter value and re-renders the current
// step under it. Cached evolution series are computed per threshold and are
// dropped.
func (c *LayerController) SetThreshold(ctx context.Context, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.filter = models.ThresholdFilter{Value: value}
	c.evolution.Invalidate()
	if c.currentIndex >= 0 {
		c.showLocked(ctx, c.currentIndex)
	}
}

// SetDisplayOption flips one attribute-label toggle and recomputes markers
func (c *LayerController) SetDisplayOption(attribute string, enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.display[attribute] = enabled
	c.refreshMarkersLocked()
	c.surface.Commit()
}

// SetTrajectoryVisible toggles the trajectory overlay. A failed load
// disables the toggle again instead of leaving a half-rendered overlay.
func (c *LayerController) SetTrajectoryVisible(ctx context.Context, visible bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.trajectoryVisible = visible
	var err error
	if visible && c.currentIndex >= 0 {
		err = c.loadTrajectoryLocked(ctx, c.steps[c.currentIndex])
	}
	if !c.trajectoryVisible {
		c.surface.ClearTrajectory()
	}
	c.surface.Commit()
	return err
}

// ViewSnapshot captures the persistable parts of the controller state.
// The map viewport is owned elsewhere and merged in by the caller.
func (c *LayerController) ViewSnapshot() models.ViewSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return models.ViewSnapshot{
		SelectedUID:       c.selection.UID,
		DisplayOptions:    c.display.Clone(),
		Threshold:         c.filter.Value,
		CurrentIndex:      c.currentIndex,
		TrajectoryVisible: c.trajectoryVisible,
	}
}

// ApplySnapshot installs restored view state and renders the restored step.
// An index of -1 or out of range falls back to the last step.
func (c *LayerController) ApplySnapshot(ctx context.Context, snap models.ViewSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.filter = models.ThresholdFilter{Value: snap.Threshold}
	c.display = snap.DisplayOptions.Clone()
	c.trajectoryVisible = snap.TrajectoryVisible
	c.selection.Clear()
	c.selection.UID = snap.SelectedUID

	if len(c.steps) == 0 {
		return
	}
	j := snap.CurrentIndex
	if j < 0 || j >= len(c.steps) {
		j = len(c.steps) - 1
	}
	c.showLocked(ctx, j)
}

// Selection returns a copy of the selection state; used by handlers and tests
func (c *LayerController) Selection() view.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

// Threshold returns the active filter value
func (c *LayerController) Threshold() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter.Value
}

// DisplayOptions returns a copy of the label toggles
func (c *LayerController) DisplayOptions() models.DisplayOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display.Clone()
}

// TrajectoryVisible reports whether the overlay toggle is on
func (c *LayerController) TrajectoryVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trajectoryVisible
}

// EvolutionSeries returns the selected entity's attribute history, or nil
// when nothing is selected
func (c *LayerController) EvolutionSeries() (string, []models.EvolutionPoint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.selection.Active() {
		return "", nil
	}
	return c.selection.UID, c.evolution.Series(c.steps, c.selection.UID, c.filter)
}

// loadTrajectoryLocked renders the step's trajectory overlay, fetching and
// caching it on first use. On failure the toggle is disabled so the UI never
// shows a half-rendered overlay.
func (c *LayerController) loadTrajectoryLocked(ctx context.Context, step *models.TimeStep) error {
	fc, err := c.trajectories.Trajectory(ctx, step)
	if err != nil {
		log.Printf("Trajectory load failed for %s: %v", step.FileName, err)
		c.trajectoryVisible = false
		c.surface.ClearTrajectory()
		return err
	}
	c.surface.RenderTrajectory(fc)
	return nil
}

func (c *LayerController) findRenderedLocked(uid string) *renderedLayer {
	for i := range c.rendered {
		if c.rendered[i].feature.UID() == uid {
			return &c.rendered[i]
		}
	}
	return nil
}

func (c *LayerController) updateChartLocked() {
	points := c.evolution.Series(c.steps, c.selection.UID, c.filter)
	c.chart.Update(c.selection.UID, points)
}

// refreshMarkersLocked recomputes centroid labels for the rendered
// boundaries; when the selected entity is rendered only its boundary gets a
// marker
func (c *LayerController) refreshMarkersLocked() {
	targets := c.rendered
	if c.selection.Rendered() {
		targets = []renderedLayer{{feature: c.selection.Feature, layer: c.selection.Layer}}
	}

	var markers []view.Marker
	for _, r := range targets {
		label := markerLabel(r.feature, c.display)
		if label == "" {
			// No enabled attribute means no marker, not an empty one
			continue
		}
		ring, err := r.feature.Geometry.FirstRing()
		if err != nil {
			log.Printf("Skipping marker for uid %s: %v", r.feature.UID(), err)
			continue
		}
		pts := make([]spatial.Point, len(ring))
		for i, pos := range ring {
			pts[i] = spatial.Point{Lat: pos.Lat(), Lon: pos.Lon()}
		}
		centroid := spatial.RingCentroid(pts)
		markers = append(markers, view.Marker{
			Lat:   centroid.Lat,
			Lng:   centroid.Lon,
			Label: label,
		})
	}
	c.surface.SetMarkers(markers)
}

// markerLabel joins the enabled attributes present on the feature as
// "key: value" lines
func markerLabel(f *models.Feature, display models.DisplayOptions) string {
	keys := make([]string, 0, len(display))
	for k, on := range display {
		if on {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var lines []string
	for _, k := range keys {
		v, ok := f.Properties[k]
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", k, models.DisplayValue(v)))
	}
	return strings.Join(lines, "\n")
}

func progressFraction(j, n int) float64 {
	if n < 2 {
		return 0
	}
	return float64(j) / float64(n-1)
}
