package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCentroid(t *testing.T) {
	assert.Equal(t, Point{}, Centroid(nil))

	c := Centroid([]Point{{Lat: 0, Lon: 0}, {Lat: 2, Lon: 4}})
	assert.Equal(t, Point{Lat: 1, Lon: 2}, c)
}

func TestRingCentroidExcludesClosingVertex(t *testing.T) {
	// A GeoJSON ring repeats the first vertex; the duplicate must not
	// weight the mean
	ring := []Point{{0, 0}, {0, 2}, {2, 2}, {2, 0}, {0, 0}}
	c := RingCentroid(ring)
	assert.InDelta(t, 1.0, c.Lat, 1e-9)
	assert.InDelta(t, 1.0, c.Lon, 1e-9)

	// An open ring is averaged as-is
	open := []Point{{0, 0}, {0, 2}, {2, 2}, {2, 0}}
	assert.Equal(t, RingCentroid(open), c)
}

func TestBoundingBox(t *testing.T) {
	minLat, minLon, maxLat, maxLon := BoundingBox([]Point{{1, 5}, {-2, 9}, {4, 3}})
	assert.Equal(t, -2.0, minLat)
	assert.Equal(t, 3.0, minLon)
	assert.Equal(t, 4.0, maxLat)
	assert.Equal(t, 9.0, maxLon)
}

func TestHaversineDistance(t *testing.T) {
	// One degree of latitude is roughly 111 km
	d := HaversineDistance(0, 0, 1, 0)
	assert.InDelta(t, 111195, d, 200)

	assert.Equal(t, 0.0, HaversineDistance(50, 10, 50, 10))
}

func TestPathLength(t *testing.T) {
	assert.Equal(t, 0.0, PathLength([]Point{{0, 0}}))

	path := []Point{{0, 0}, {1, 0}, {2, 0}}
	assert.InDelta(t, 2*111195, PathLength(path), 400)
}

func TestPathsLengthKm(t *testing.T) {
	paths := [][]Point{
		{{0, 0}, {1, 0}},
		{{0, 0}, {1, 0}},
	}
	assert.InDelta(t, 2*111.195, PathsLengthKm(paths), 0.5)
}
