package models

import (
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// Geometry is a GeoJSON geometry. Coordinates stay raw until a caller asks
// for a concrete shape, so collections with mixed geometry types decode
// without up-front validation.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Position is a GeoJSON position: [lon, lat], optionally more ordinates.
type Position []float64

// Lon returns the longitude ordinate
func (p Position) Lon() float64 {
	if len(p) > 0 {
		return p[0]
	}
	return 0
}

// Lat returns the latitude ordinate
func (p Position) Lat() float64 {
	if len(p) > 1 {
		return p[1]
	}
	return 0
}

// FirstRing returns the outer ring of a Polygon, or the outer ring of the
// first sub-polygon of a MultiPolygon
func (g *Geometry) FirstRing() ([]Position, error) {
	switch g.Type {
	case "Polygon":
		var rings [][]Position
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("failed to decode polygon coordinates: %w", err)
		}
		if len(rings) == 0 {
			return nil, fmt.Errorf("polygon has no rings")
		}
		return rings[0], nil
	case "MultiPolygon":
		var polys [][][]Position
		if err := json.Unmarshal(g.Coordinates, &polys); err != nil {
			return nil, fmt.Errorf("failed to decode multipolygon coordinates: %w", err)
		}
		if len(polys) == 0 || len(polys[0]) == 0 {
			return nil, fmt.Errorf("multipolygon has no rings")
		}
		return polys[0][0], nil
	default:
		return nil, fmt.Errorf("geometry type %q has no rings", g.Type)
	}
}

// Paths returns the coordinate paths of a LineString or MultiLineString
func (g *Geometry) Paths() ([][]Position, error) {
	switch g.Type {
	case "LineString":
		var path []Position
		if err := json.Unmarshal(g.Coordinates, &path); err != nil {
			return nil, fmt.Errorf("failed to decode linestring coordinates: %w", err)
		}
		return [][]Position{path}, nil
	case "MultiLineString":
		var paths [][]Position
		if err := json.Unmarshal(g.Coordinates, &paths); err != nil {
			return nil, fmt.Errorf("failed to decode multilinestring coordinates: %w", err)
		}
		return paths, nil
	default:
		return nil, fmt.Errorf("geometry type %q has no paths", g.Type)
	}
}

// Feature is one tracked object's boundary at one point in time
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// UID returns the stable entity identity carried in the properties map,
// stringified. Empty string means the feature carries no identity.
func (f *Feature) UID() string {
	return stringProp(f.Properties, "uid")
}

// Threshold returns the parsed contour level of this feature instance
func (f *Feature) Threshold() (float64, bool) {
	v, ok := f.Properties["threshold"]
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// FeatureCollection is a standard GeoJSON feature collection. A top-level
// timestamp property is kept when present; some producers embed it.
type FeatureCollection struct {
	Type      string     `json:"type"`
	Features  []*Feature `json:"features"`
	Timestamp string     `json:"timestamp,omitempty"`
}

// DecodeFeatureCollection parses GeoJSON bytes with a minimal shape check
func DecodeFeatureCollection(data []byte) (*FeatureCollection, error) {
	var fc FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("not a FeatureCollection: type %q", fc.Type)
	}
	return &fc, nil
}

func stringProp(props map[string]interface{}, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	return DisplayValue(v)
}

// DisplayValue renders an arbitrary property value for labels and ids
func DisplayValue(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", s)
	}
}

// Numeric coerces a property value to float64 when it is a number or a
// numeric string
func Numeric(v interface{}) (float64, bool) {
	return toFloat(v)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
