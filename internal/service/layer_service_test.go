package service

import (
	"context"
	"fmt"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/cellwatch-backend-go/internal/models"
	"github.com/jengzang/cellwatch-backend-go/internal/view"
)

// fakeSurface records every surface mutation so tests can assert on the
// exact render state after a transition
type fakeSurface struct {
	styles     map[view.LayerID]view.Style
	features   map[view.LayerID]*models.Feature
	markers    []view.Marker
	trajectory *models.FeatureCollection
	timestamp  string
	progress   float64
	commits    int
	nextID     view.LayerID
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		styles:   make(map[view.LayerID]view.Style),
		features: make(map[view.LayerID]*models.Feature),
	}
}

func (s *fakeSurface) RenderBoundaries(features []*models.Feature, style view.StyleFunc) []view.LayerID {
	s.styles = make(map[view.LayerID]view.Style)
	s.features = make(map[view.LayerID]*models.Feature)
	ids := make([]view.LayerID, len(features))
	for i, f := range features {
		s.nextID++
		ids[i] = s.nextID
		s.styles[s.nextID] = style(f)
		s.features[s.nextID] = f
	}
	return ids
}

func (s *fakeSurface) SetStyle(id view.LayerID, st view.Style)       { s.styles[id] = st }
func (s *fakeSurface) RenderTrajectory(fc *models.FeatureCollection) { s.trajectory = fc }
func (s *fakeSurface) ClearTrajectory()                              { s.trajectory = nil }
func (s *fakeSurface) SetMarkers(markers []view.Marker)              { s.markers = markers }
func (s *fakeSurface) SetTimestamp(label string)                     { s.timestamp = label }
func (s *fakeSurface) SetProgress(frac float64)                      { s.progress = frac }
func (s *fakeSurface) Commit()                                       { s.commits++ }

func (s *fakeSurface) Clear() {
	s.styles = make(map[view.LayerID]view.Style)
	s.features = make(map[view.LayerID]*models.Feature)
	s.markers = nil
}

// styleOf returns the current style for the boundary with the given uid
func (s *fakeSurface) styleOf(t *testing.T, uid string) view.Style {
	t.Helper()
	for id, f := range s.features {
		if f.UID() == uid {
			return s.styles[id]
		}
	}
	t.Fatalf("no rendered boundary with uid %q", uid)
	return ""
}

type fakeChart struct {
	visible bool
	uid     string
	points  []models.EvolutionPoint
}

func (c *fakeChart) Update(uid string, points []models.EvolutionPoint) {
	c.visible = true
	c.uid = uid
	c.points = points
}

func (c *fakeChart) Hide() {
	c.visible = false
	c.uid = ""
	c.points = nil
}

type fakeTrajectories struct {
	fc    *models.FeatureCollection
	err   error
	calls int
}

func (f *fakeTrajectories) Trajectory(_ context.Context, _ *models.TimeStep) (*models.FeatureCollection, error) {
	f.calls++
	return f.fc, f.err
}

func cellFeature(uid, threshold string, extra map[string]interface{}) *models.Feature {
	props := map[string]interface{}{"uid": uid, "threshold": threshold}
	for k, v := range extra {
		props[k] = v
	}
	return &models.Feature{
		Type: "Feature",
		Geometry: models.Geometry{
			Type:        "Polygon",
			Coordinates: json.RawMessage(`[[[0,0],[2,0],[2,2],[0,2],[0,0]]]`),
		},
		Properties: props,
	}
}

func stepAt(i int, features ...*models.Feature) *models.TimeStep {
	name := fmt.Sprintf("cells_20240601_12%02d.geojson", i*15)
	return models.NewTimeStep(name, "", &models.FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	})
}

type controllerFixture struct {
	controller *LayerController
	surface    *fakeSurface
	chart      *fakeChart
	loader     *fakeTrajectories
}

func newControllerFixture(steps ...*models.TimeStep) *controllerFixture {
	f := &controllerFixture{
		surface: newFakeSurface(),
		chart:   &fakeChart{},
		loader:  &fakeTrajectories{},
	}
	f.controller = NewLayerController(f.surface, f.chart, NewEvolutionService(), f.loader, "2.5")
	f.controller.SetTimeSteps(steps)
	return f
}

func TestShowTimeStepRendersFilteredBoundaries(t *testing.T) {
	fix := newControllerFixture(stepAt(0,
		cellFeature("a", "2.5", nil),
		cellFeature("b", "5.0", nil),
	))

	fix.controller.ShowTimeStepAt(context.Background(), 0)

	require.Len(t, fix.surface.features, 1)
	assert.Equal(t, view.StyleDefault, fix.surface.styleOf(t, "a"))
	assert.Equal(t, "2024-06-01 12:00 UTC", fix.surface.timestamp)
	assert.Equal(t, 0, fix.controller.CurrentIndex())
	assert.Equal(t, 1, fix.surface.commits)
}

func TestShowTimeStepOutOfRangeIsNoOp(t *testing.T) {
	fix := newControllerFixture(stepAt(0, cellFeature("a", "2.5", nil)))

	fix.controller.ShowTimeStepAt(context.Background(), 5)
	fix.controller.ShowTimeStepAt(context.Background(), -1)

	assert.Equal(t, -1, fix.controller.CurrentIndex())
	assert.Zero(t, fix.surface.commits)
}

// Selecting an entity, navigating to a step where it is absent, then to one
// where it reappears: the uid survives throughout, the per-step parts and
// the chart drop while absent, and everything re-resolves on reappearance.
func TestSelectionSurvivesAbsentStep(t *testing.T) {
	fix := newControllerFixture(
		stepAt(0, cellFeature("a", "2.5", nil), cellFeature("b", "2.5", nil)),
		stepAt(1, cellFeature("b", "2.5", nil)),
		stepAt(2, cellFeature("a", "2.5", nil)),
	)
	ctx := context.Background()

	fix.controller.ShowTimeStepAt(ctx, 0)
	require.NoError(t, fix.controller.ClickFeature("a"))

	sel := fix.controller.Selection()
	assert.True(t, sel.Rendered())
	assert.True(t, sel.Valid())
	assert.True(t, fix.chart.visible)

	fix.controller.ShowTimeStepAt(ctx, 1)
	sel = fix.controller.Selection()
	assert.Equal(t, "a", sel.UID)
	assert.False(t, sel.Rendered())
	assert.True(t, sel.Valid())
	assert.False(t, fix.chart.visible)

	fix.controller.ShowTimeStepAt(ctx, 2)
	sel = fix.controller.Selection()
	assert.True(t, sel.Rendered())
	assert.True(t, sel.Valid())
	assert.Equal(t, view.StyleSelected, fix.surface.styleOf(t, "a"))
	assert.True(t, fix.chart.visible)
	// "a" exists at steps 0 and 2 only
	require.Len(t, fix.chart.points, 2)
	assert.Equal(t, 0, fix.chart.points[0].Index)
	assert.Equal(t, 2, fix.chart.points[1].Index)
}

func TestShowSameStepTwiceIsStable(t *testing.T) {
	fix := newControllerFixture(stepAt(0,
		cellFeature("a", "2.5", nil),
		cellFeature("b", "2.5", nil),
	))
	ctx := context.Background()

	fix.controller.ShowTimeStepAt(ctx, 0)
	require.NoError(t, fix.controller.ClickFeature("a"))
	fix.controller.ShowTimeStepAt(ctx, 0)

	sel := fix.controller.Selection()
	assert.True(t, sel.Valid())
	assert.True(t, sel.Rendered())
	assert.Len(t, fix.surface.features, 2)
	assert.Equal(t, view.StyleSelected, fix.surface.styleOf(t, "a"))
	assert.Equal(t, view.StyleDefault, fix.surface.styleOf(t, "b"))
}

func TestClickSelectsAndReclickClears(t *testing.T) {
	fix := newControllerFixture(stepAt(0,
		cellFeature("a", "2.5", map[string]interface{}{"area": 12.0}),
		cellFeature("b", "2.5", map[string]interface{}{"area": 7.0}),
	))
	ctx := context.Background()
	fix.controller.ShowTimeStepAt(ctx, 0)

	require.NoError(t, fix.controller.ClickFeature("a"))
	assert.Equal(t, view.StyleSelected, fix.surface.styleOf(t, "a"))
	assert.True(t, fix.chart.visible)
	// First selection with no toggle active enables the uid label
	assert.True(t, fix.controller.DisplayOptions()["uid"])
	// Only the selected boundary carries a marker
	require.Len(t, fix.surface.markers, 1)
	assert.Equal(t, "uid: a", fix.surface.markers[0].Label)

	require.NoError(t, fix.controller.ClickFeature("a"))
	sel := fix.controller.Selection()
	assert.False(t, sel.Active())
	assert.True(t, sel.Valid())
	assert.Equal(t, view.StyleDefault, fix.surface.styleOf(t, "a"))
	assert.False(t, fix.chart.visible)
	// With the selection gone, markers widen to every rendered boundary
	assert.Len(t, fix.surface.markers, 2)
}

func TestClickSwitchesSelection(t *testing.T) {
	fix := newControllerFixture(stepAt(0,
		cellFeature("a", "2.5", nil),
		cellFeature("b", "2.5", nil),
	))
	ctx := context.Background()
	fix.controller.ShowTimeStepAt(ctx, 0)

	require.NoError(t, fix.controller.ClickFeature("a"))
	require.NoError(t, fix.controller.ClickFeature("b"))

	assert.Equal(t, "b", fix.controller.Selection().UID)
	assert.Equal(t, view.StyleDefault, fix.surface.styleOf(t, "a"))
	assert.Equal(t, view.StyleSelected, fix.surface.styleOf(t, "b"))
	assert.Equal(t, "b", fix.chart.uid)
}

func TestClickUnknownUIDFails(t *testing.T) {
	fix := newControllerFixture(stepAt(0, cellFeature("a", "2.5", nil)))
	fix.controller.ShowTimeStepAt(context.Background(), 0)

	err := fix.controller.ClickFeature("ghost")
	assert.Error(t, err)
	assert.False(t, fix.controller.Selection().Active())
}

func TestClickBackgroundClearsSelection(t *testing.T) {
	fix := newControllerFixture(stepAt(0, cellFeature("a", "2.5", nil)))
	ctx := context.Background()
	fix.controller.ShowTimeStepAt(ctx, 0)
	require.NoError(t, fix.controller.ClickFeature("a"))

	fix.controller.ClickBackground()
	sel := fix.controller.Selection()
	assert.False(t, sel.Active())
	assert.True(t, sel.Valid())
	assert.False(t, fix.chart.visible)

	// A second background click with nothing selected changes nothing
	commits := fix.surface.commits
	fix.controller.ClickBackground()
	assert.Equal(t, commits, fix.surface.commits)
}

func TestSetThresholdReRendersCurrentStep(t *testing.T) {
	fix := newControllerFixture(stepAt(0,
		cellFeature("a", "2.5", nil),
		cellFeature("b", "5.0", nil),
	))
	ctx := context.Background()
	fix.controller.ShowTimeStepAt(ctx, 0)
	require.Len(t, fix.surface.features, 1)

	fix.controller.SetThreshold(ctx, "5.0")
	require.Len(t, fix.surface.features, 1)
	assert.Equal(t, view.StyleDefault, fix.surface.styleOf(t, "b"))
	assert.Equal(t, "5.0", fix.controller.Threshold())
}

func TestSetThresholdWhileSelectedEntityFiltersOut(t *testing.T) {
	fix := newControllerFixture(stepAt(0,
		cellFeature("a", "2.5", nil),
		cellFeature("b", "5.0", nil),
	))
	ctx := context.Background()
	fix.controller.ShowTimeStepAt(ctx, 0)
	require.NoError(t, fix.controller.ClickFeature("a"))

	fix.controller.SetThreshold(ctx, "5.0")
	sel := fix.controller.Selection()
	assert.Equal(t, "a", sel.UID)
	assert.False(t, sel.Rendered())
	assert.True(t, sel.Valid())
	assert.False(t, fix.chart.visible)
}

func TestAdvanceOneStepWraps(t *testing.T) {
	fix := newControllerFixture(
		stepAt(0, cellFeature("a", "2.5", nil)),
		stepAt(1, cellFeature("a", "2.5", nil)),
	)
	ctx := context.Background()

	fix.controller.AdvanceOneStep(ctx)
	assert.Equal(t, 0, fix.controller.CurrentIndex())
	fix.controller.AdvanceOneStep(ctx)
	assert.Equal(t, 1, fix.controller.CurrentIndex())
	fix.controller.AdvanceOneStep(ctx)
	assert.Equal(t, 0, fix.controller.CurrentIndex())
}

func TestProgressFraction(t *testing.T) {
	fix := newControllerFixture(
		stepAt(0, cellFeature("a", "2.5", nil)),
		stepAt(1, cellFeature("a", "2.5", nil)),
		stepAt(2, cellFeature("a", "2.5", nil)),
	)
	ctx := context.Background()

	fix.controller.ShowTimeStepAt(ctx, 1)
	assert.InDelta(t, 0.5, fix.surface.progress, 1e-9)
	fix.controller.ShowTimeStepAt(ctx, 2)
	assert.InDelta(t, 1.0, fix.surface.progress, 1e-9)
}

func TestTrajectoryToggleRendersOverlay(t *testing.T) {
	fix := newControllerFixture(stepAt(0, cellFeature("a", "2.5", nil)))
	fix.loader.fc = &models.FeatureCollection{Type: "FeatureCollection"}
	ctx := context.Background()
	fix.controller.ShowTimeStepAt(ctx, 0)

	require.NoError(t, fix.controller.SetTrajectoryVisible(ctx, true))
	assert.True(t, fix.controller.TrajectoryVisible())
	assert.Same(t, fix.loader.fc, fix.surface.trajectory)

	require.NoError(t, fix.controller.SetTrajectoryVisible(ctx, false))
	assert.Nil(t, fix.surface.trajectory)
}

func TestTrajectoryLoadFailureDisablesToggle(t *testing.T) {
	fix := newControllerFixture(stepAt(0, cellFeature("a", "2.5", nil)))
	fix.loader.err = fmt.Errorf("fetch failed")
	ctx := context.Background()
	fix.controller.ShowTimeStepAt(ctx, 0)

	err := fix.controller.SetTrajectoryVisible(ctx, true)
	assert.Error(t, err)
	assert.False(t, fix.controller.TrajectoryVisible())
	assert.Nil(t, fix.surface.trajectory)
}

func TestDisplayOptionTogglesMarkers(t *testing.T) {
	fix := newControllerFixture(stepAt(0,
		cellFeature("a", "2.5", map[string]interface{}{"area": 12.0}),
	))
	ctx := context.Background()
	fix.controller.ShowTimeStepAt(ctx, 0)
	assert.Empty(t, fix.surface.markers)

	fix.controller.SetDisplayOption("area", true)
	require.Len(t, fix.surface.markers, 1)
	assert.Equal(t, "area: 12", fix.surface.markers[0].Label)
	// Centroid of the 2x2 square ring
	assert.InDelta(t, 1.0, fix.surface.markers[0].Lat, 1e-9)
	assert.InDelta(t, 1.0, fix.surface.markers[0].Lng, 1e-9)

	fix.controller.SetDisplayOption("area", false)
	assert.Empty(t, fix.surface.markers)
}

func TestMarkerLabelJoinsEnabledAttributes(t *testing.T) {
	f := cellFeature("a", "2.5", map[string]interface{}{"area": 12.0, "speed": "fast"})
	display := models.DisplayOptions{"uid": true, "area": true, "missing": true, "speed": false}

	assert.Equal(t, "area: 12\nuid: a", markerLabel(f, display))
	assert.Equal(t, "", markerLabel(f, models.DisplayOptions{}))
}

func TestApplySnapshotRestoresState(t *testing.T) {
	fix := newControllerFixture(
		stepAt(0, cellFeature("a", "2.5", nil)),
		stepAt(1, cellFeature("a", "2.5", nil)),
	)
	ctx := context.Background()

	fix.controller.ApplySnapshot(ctx, models.ViewSnapshot{
		SelectedUID:    "a",
		DisplayOptions: models.DisplayOptions{"uid": true},
		Threshold:      "2.5",
		CurrentIndex:   0,
	})

	assert.Equal(t, 0, fix.controller.CurrentIndex())
	sel := fix.controller.Selection()
	assert.Equal(t, "a", sel.UID)
	assert.True(t, sel.Rendered())
	assert.True(t, fix.chart.visible)
}

func TestApplySnapshotOutOfRangeIndexFallsToLastStep(t *testing.T) {
	fix := newControllerFixture(
		stepAt(0, cellFeature("a", "2.5", nil)),
		stepAt(1, cellFeature("a", "2.5", nil)),
	)
	ctx := context.Background()

	fix.controller.ApplySnapshot(ctx, models.ViewSnapshot{Threshold: "2.5", CurrentIndex: 99})
	assert.Equal(t, 1, fix.controller.CurrentIndex())

	fix.controller.ApplySnapshot(ctx, models.ViewSnapshot{Threshold: "2.5", CurrentIndex: -1})
	assert.Equal(t, 1, fix.controller.CurrentIndex())
}
