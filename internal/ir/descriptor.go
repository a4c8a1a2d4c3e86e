package ir

import "time"

// Descriptor declares the desired state for one resource instance.
// Identity is the pair (Type, Name); Name is unique within a descriptor set.
type Descriptor struct {
	Type       string           `json:"type"`                // e.g. "aws:ec2.Network"
	Name       string           `json:"name"`
	Provider   string           `json:"provider"`
	DependsOn  []string         `json:"dependsOn,omitempty"` // logical names
	Attributes map[string]any   `json:"attributes"`
	Readiness  *ReadinessPolicy `json:"readiness,omitempty"`
}

// ReadinessMode selects how a resource signals that its effects are usable
// by dependents.
type ReadinessMode string

const (
	// ReadinessNone releases dependents as soon as the apply is committed.
	ReadinessNone ReadinessMode = ""

	// ReadinessFixedDelay releases dependents after a flat wait.
	ReadinessFixedDelay ReadinessMode = "delay"

	// ReadinessPollUntil polls a provider probe until it reports ready.
	ReadinessPollUntil ReadinessMode = "poll"
)

// ReadinessPolicy declares when a resource counts as ready, which may be
// later than the provider acknowledging the apply.
type ReadinessPolicy struct {
	Mode     ReadinessMode `json:"mode"`
	Delay    time.Duration `json:"delay,omitempty"`    // FixedDelay
	Interval time.Duration `json:"interval,omitempty"` // PollUntil
	Timeout  time.Duration `json:"timeout,omitempty"`  // PollUntil
}

// Clone returns a deep copy of the descriptor. Attribute values are copied
// structurally; Reference values are immutable and shared.
func (d *Descriptor) Clone() *Descriptor {
	clone := &Descriptor{
		Type:       d.Type,
		Name:       d.Name,
		Provider:   d.Provider,
		Attributes: deepCopyValue(d.Attributes).(map[string]any),
	}
	if len(d.DependsOn) > 0 {
		clone.DependsOn = append([]string{}, d.DependsOn...)
	}
	if d.Readiness != nil {
		r := *d.Readiness
		clone.Readiness = &r
	}
	return clone
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[k] = deepCopyValue(inner)
		}
		return m
	case []any:
		s := make([]any, len(val))
		for i, inner := range val {
			s[i] = deepCopyValue(inner)
		}
		return s
	default:
		return val
	}
}
