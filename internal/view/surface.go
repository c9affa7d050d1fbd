package view

import "github.com/jengzang/cellwatch-backend-go/internal/models"

// LayerID identifies one rendered boundary layer on the surface. The zero
// value is never issued and means "no layer".
type LayerID int

// Style is the visual state of a rendered boundary
type Style string

// Boundary styles
const (
	StyleDefault  Style = "default"
	StyleSelected Style = "selected"
)

// StyleFunc chooses the style for a feature at render time
type StyleFunc func(f *models.Feature) Style

// Marker is a permanent label pinned at a boundary centroid
type Marker struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label"`
}

// Surface is the narrow rendering interface the layer controller drives.
// The production implementation materialises a scene document for the map
// frontend; tests substitute a recording fake. Mutations are batched: nothing
// a reader can observe changes until Commit.
type Surface interface {
	// RenderBoundaries replaces the rendered boundary set and returns one
	// layer id per feature, in input order
	RenderBoundaries(features []*models.Feature, style StyleFunc) []LayerID

	// SetStyle restyles a single rendered layer
	SetStyle(id LayerID, s Style)

	// RenderTrajectory replaces the trajectory overlay
	RenderTrajectory(fc *models.FeatureCollection)

	// ClearTrajectory removes the trajectory overlay
	ClearTrajectory()

	// SetMarkers replaces the derived marker annotations
	SetMarkers(markers []Marker)

	// SetTimestamp sets the displayed timestamp label
	SetTimestamp(label string)

	// SetProgress sets the progress-bar fraction in [0, 1]
	SetProgress(frac float64)

	// Clear unrenders boundaries and markers
	Clear()

	// Commit atomically publishes all mutations since the last Commit
	Commit()
}

// ChartView is the attribute-evolution chart the controller shows and hides
type ChartView interface {
	// Update replaces the charted series for the given entity and shows
	// the chart
	Update(uid string, points []models.EvolutionPoint)

	// Hide hides the chart and drops its series
	Hide()
}
