package spatial

import (
	"github.com/golang/geo/s2"
)

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
	EarthRadiusKm     = 6371.0    // Earth's mean radius in kilometers
)

// HaversineDistance calculates the great-circle distance between two points in meters
// using the Haversine formula
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// PathsLengthKm calculates the combined great-circle length of several
// coordinate paths in kilometers. Used to annotate the trajectory overlay.
func PathsLengthKm(paths [][]Point) float64 {
	var total float64
	for _, path := range paths {
		total += PathLength(path)
	}
	return total / 1000.0
}
