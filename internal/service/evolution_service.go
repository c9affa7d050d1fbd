package service

import (
	"sync"

	"github.com/jengzang/cellwatch-backend-go/internal/catalog"
	"github.com/jengzang/cellwatch-backend-go/internal/models"
	"github.com/jengzang/cellwatch-backend-go/internal/stats"
)

// EvolutionService builds the chronological attribute series of a selected
// entity by scanning every loaded step. Series are memoized per uid; the
// cache is dropped whenever the step sequence is replaced or the threshold
// filter changes, since both invalidate every cached series at once.
type EvolutionService struct {
	mu    sync.Mutex
	cache map[string][]models.EvolutionPoint
}

// NewEvolutionService creates an empty collector
func NewEvolutionService() *EvolutionService {
	return &EvolutionService{
		cache: make(map[string][]models.EvolutionPoint),
	}
}

// Series returns the entity's attribute evolution across all steps where it
// has a boundary at the filtered threshold
func (s *EvolutionService) Series(steps []*models.TimeStep, uid string, filter models.ThresholdFilter) []models.EvolutionPoint {
	if uid == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if points, ok := s.cache[uid]; ok {
		return points
	}

	var points []models.EvolutionPoint
	for i, step := range steps {
		f := step.FindUID(uid, filter)
		if f == nil {
			continue
		}
		key, _ := catalog.TimestampKey(step.FileName)
		points = append(points, models.EvolutionPoint{
			Index:        i,
			FileName:     step.FileName,
			TimestampKey: key,
			Attributes:   f.Properties,
		})
	}

	s.cache[uid] = points
	return points
}

// Invalidate drops every cached series
func (s *EvolutionService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string][]models.EvolutionPoint)
}

// Summarize aggregates each numeric attribute across the series
func Summarize(points []models.EvolutionPoint) map[string]models.SeriesSummary {
	byAttr := make(map[string][]float64)
	for _, p := range points {
		for k, v := range p.Attributes {
			if k == "uid" {
				continue
			}
			if f, ok := models.Numeric(v); ok {
				byAttr[k] = append(byAttr[k], f)
			}
		}
	}

	out := make(map[string]models.SeriesSummary, len(byAttr))
	for k, values := range byAttr {
		out[k] = models.SeriesSummary{
			Count: len(values),
			Mean:  stats.Mean(values),
			Min:   stats.Min(values),
			Max:   stats.Max(values),
		}
	}
	return out
}
