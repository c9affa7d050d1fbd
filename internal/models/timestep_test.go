package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stepWith(features ...*Feature) *TimeStep {
	return NewTimeStep("cells_20240601_1200.geojson", "http://example/cells_20240601_1200.geojson", &FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	})
}

func TestFeaturesPassing(t *testing.T) {
	a := polyFeature("A", "2.5")
	b := polyFeature("B", "5.0")
	c := polyFeature("A", "5.0") // same entity at a different contour level
	step := stepWith(a, b, c)

	got := step.FeaturesPassing(ThresholdFilter{Value: "5.0"})
	require.Len(t, got, 2)
	assert.Same(t, b, got[0])
	assert.Same(t, c, got[1])

	assert.Empty(t, step.FeaturesPassing(ThresholdFilter{Value: "9.9"}))
}

func TestFindUID(t *testing.T) {
	a := polyFeature("A", "2.5")
	step := stepWith(a, polyFeature("B", "2.5"))

	assert.Same(t, a, step.FindUID("A", ThresholdFilter{Value: "2.5"}))
	assert.Nil(t, step.FindUID("A", ThresholdFilter{Value: "5.0"}))
	assert.Nil(t, step.FindUID("Z", ThresholdFilter{Value: "2.5"}))
	assert.Nil(t, step.FindUID("", ThresholdFilter{Value: "2.5"}))
}

func TestTrajectoryCacheFirstWriteWins(t *testing.T) {
	step := stepWith()
	assert.Nil(t, step.CachedTrajectory())

	first := &FeatureCollection{Type: "FeatureCollection"}
	late := &FeatureCollection{Type: "FeatureCollection"}

	step.StoreTrajectory(first)
	// A stale in-flight fetch resolving later must not replace the cache
	step.StoreTrajectory(late)

	assert.Same(t, first, step.CachedTrajectory())
}
