package models

import "sync"

// TimeStep is one loaded boundary snapshot corresponding to one input file.
// The trajectory overlay for the step is fetched lazily and cached here; the
// cache slot is keyed by step identity, so a stale fetch completing after the
// user navigated away just pre-populates the slot for later.
type TimeStep struct {
	FileName    string
	DownloadURL string
	Boundary    *FeatureCollection

	trajMu     sync.Mutex
	trajectory *FeatureCollection
}

// NewTimeStep creates a time step from a parsed boundary file
func NewTimeStep(fileName, downloadURL string, boundary *FeatureCollection) *TimeStep {
	return &TimeStep{
		FileName:    fileName,
		DownloadURL: downloadURL,
		Boundary:    boundary,
	}
}

// CachedTrajectory returns the cached trajectory collection, or nil if it
// has not been fetched yet
func (s *TimeStep) CachedTrajectory() *FeatureCollection {
	s.trajMu.Lock()
	defer s.trajMu.Unlock()
	return s.trajectory
}

// StoreTrajectory fills the trajectory cache slot. The first write wins so a
// superseded in-flight fetch cannot clobber an already-cached collection.
func (s *TimeStep) StoreTrajectory(fc *FeatureCollection) {
	s.trajMu.Lock()
	defer s.trajMu.Unlock()
	if s.trajectory == nil {
		s.trajectory = fc
	}
}

// FeaturesPassing returns the boundary features matching the filter, in
// file order
func (s *TimeStep) FeaturesPassing(filter ThresholdFilter) []*Feature {
	if s.Boundary == nil {
		return nil
	}
	var out []*Feature
	for _, f := range s.Boundary.Features {
		if filter.Passes(f) {
			out = append(out, f)
		}
	}
	return out
}

// FindUID returns the first boundary feature with the given uid that passes
// the filter, or nil
func (s *TimeStep) FindUID(uid string, filter ThresholdFilter) *Feature {
	if uid == "" || s.Boundary == nil {
		return nil
	}
	for _, f := range s.Boundary.Features {
		if f.UID() == uid && filter.Passes(f) {
			return f
		}
	}
	return nil
}
