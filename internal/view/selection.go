package view

import "github.com/jengzang/cellwatch-backend-go/internal/models"

// Selection holds at most one selected entity. UID is the durable part: it
// survives navigation to steps where the entity does not exist. Feature and
// Layer are only valid for the currently rendered step and are cleared on
// every layer swap.
//
// Invariant: Feature != nil implies Layer != 0 implies UID != "" and
// UID == Feature.UID(). The converse does not hold.
type Selection struct {
	UID     string
	Feature *models.Feature
	Layer   LayerID
}

// Active reports whether any entity is selected, rendered or not
func (s Selection) Active() bool {
	return s.UID != ""
}

// Rendered reports whether the selected entity has a boundary in the
// currently shown step
func (s Selection) Rendered() bool {
	return s.Feature != nil
}

// Clear drops the selection entirely
func (s *Selection) Clear() {
	s.UID = ""
	s.Feature = nil
	s.Layer = 0
}

// ClearRendered invalidates the per-step parts, keeping the identity
func (s *Selection) ClearRendered() {
	s.Feature = nil
	s.Layer = 0
}

// SetRendered binds the selection to a rendered feature. The uid is taken
// from the feature so the invariant holds by construction.
func (s *Selection) SetRendered(f *models.Feature, layer LayerID) {
	s.UID = f.UID()
	s.Feature = f
	s.Layer = layer
}

// Valid reports whether the invariant holds; used by tests
func (s Selection) Valid() bool {
	if s.Feature != nil {
		return s.Layer != 0 && s.UID != "" && s.UID == s.Feature.UID()
	}
	if s.Layer != 0 {
		return false
	}
	return true
}
