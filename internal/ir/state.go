package ir

// State is the committed record of every successfully applied resource.
// It is the sole source of truth future plans diff against.
type State struct {
	Version   int              `json:"version"`
	Serial    int              `json:"serial"`
	Lineage   string           `json:"lineage"`
	Resources []*ResourceState `json:"resources"`
}

// ResourceState is the last-successfully-applied form of one resource:
// the attribute set that was applied and the identifiers the provider
// assigned. It is created on first apply, overwritten on update, and
// removed on destroy.
type ResourceState struct {
	Type         string         `json:"type"`
	Name         string         `json:"name"`
	Provider     string         `json:"provider"`
	Attributes   map[string]any `json:"attributes"`        // as applied
	Identifiers  map[string]any `json:"identifiers"`       // provider-assigned outputs
	Dependencies []string       `json:"dependencies,omitempty"`
	Unready      bool           `json:"unready,omitempty"` // readiness gate has not resolved Ready
}

// Snapshot returns a deep copy of the committed state for inspection. The
// copy is detached: later commits never show through it.
func (s *State) Snapshot() *State {
	snap := &State{
		Version: s.Version,
		Serial:  s.Serial,
		Lineage: s.Lineage,
	}
	for _, res := range s.Resources {
		snap.Resources = append(snap.Resources, res.clone())
	}
	return snap
}

func (r *ResourceState) clone() *ResourceState {
	c := &ResourceState{
		Type:        r.Type,
		Name:        r.Name,
		Provider:    r.Provider,
		Attributes:  deepCopyValue(r.Attributes).(map[string]any),
		Identifiers: deepCopyValue(r.Identifiers).(map[string]any),
		Unready:     r.Unready,
	}
	if len(r.Dependencies) > 0 {
		c.Dependencies = append([]string{}, r.Dependencies...)
	}
	return c
}

// Resource returns the committed state for a logical name, or nil.
func (s *State) Resource(name string) *ResourceState {
	for _, res := range s.Resources {
		if res.Name == name {
			return res
		}
	}
	return nil
}
