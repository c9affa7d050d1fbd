package models

// Viewport is the persisted map view: center as [lat, lng] plus zoom level
type Viewport struct {
	Center [2]float64 `json:"center"`
	Zoom   int        `json:"zoom"`
}

// DisplayOptions maps attribute names to "show as persistent label" toggles
type DisplayOptions map[string]bool

// AnyEnabled reports whether at least one toggle is on
func (d DisplayOptions) AnyEnabled() bool {
	for _, on := range d {
		if on {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of the options map
func (d DisplayOptions) Clone() DisplayOptions {
	out := make(DisplayOptions, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// RestoreMode classifies, once at startup or rebuild, how much persisted
// view state should be applied
type RestoreMode int

const (
	// RestoreViewportOnly applies the stored map viewport and leaves the
	// rest at defaults; this is what a user-initiated restart gets
	RestoreViewportOnly RestoreMode = iota
	// RestoreFull reapplies the whole stored view state; used after an
	// automatic catalog rebuild
	RestoreFull
	// RestoreNothing purges stored state entirely, viewport included;
	// used when a reset was explicitly requested
	RestoreNothing
)

// String returns a readable name for logging
func (m RestoreMode) String() string {
	switch m {
	case RestoreFull:
		return "full"
	case RestoreNothing:
		return "nothing"
	default:
		return "viewport-only"
	}
}

// ViewSnapshot is the persisted ensemble of view preferences.
// CurrentIndex == -1 means "last available step".
type ViewSnapshot struct {
	SelectedUID       string         `json:"selectedUid,omitempty"`
	DisplayOptions    DisplayOptions `json:"displayOptions"`
	Threshold         string         `json:"threshold"`
	CurrentIndex      int            `json:"currentIndex"`
	TrajectoryVisible bool           `json:"trajectoryVisible"`
	Viewport          *Viewport      `json:"viewport,omitempty"`
}

// EvolutionPoint is one step of a selected entity's attribute history
type EvolutionPoint struct {
	Index        int                    `json:"index"`
	FileName     string                 `json:"fileName"`
	TimestampKey string                 `json:"timestampKey"`
	Attributes   map[string]interface{} `json:"attributes"`
}

// SeriesSummary aggregates one numeric attribute across an evolution series
type SeriesSummary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}
