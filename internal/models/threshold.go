package models

import "strconv"

// ThresholdFilter is the single active contour filter value, kept as the
// raw string the user picked. Features match by parsed-float equality, so
// "2.5" and "2.50" select the same contours.
type ThresholdFilter struct {
	Value string
}

// Passes reports whether the feature's threshold equals the filter value.
// A filter or feature value that fails to parse matches nothing. The check
// never mutates the feature.
func (t ThresholdFilter) Passes(f *Feature) bool {
	want, err := strconv.ParseFloat(t.Value, 64)
	if err != nil {
		return false
	}
	got, ok := f.Threshold()
	if !ok {
		return false
	}
	return got == want
}
