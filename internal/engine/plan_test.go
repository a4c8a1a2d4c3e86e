package engine

import (
	"testing"

	"github.com/strata-io/strata/internal/ir"
	"github.com/strata-io/strata/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	reg := provider.NewRegistry()
	require.NoError(t, reg.Load("null"))
	return NewEngine(reg)
}

func TestPlan_Create(t *testing.T) {
	eng := newTestEngine(t)

	descriptors := []*ir.Descriptor{
		{
			Type:     "null",
			Name:     "test1",
			Provider: "null",
			Attributes: map[string]any{
				"triggers": map[string]any{"a": "b"},
			},
		},
	}

	plan, err := eng.Plan(descriptors, &ir.State{Version: 1})
	require.NoError(t, err)

	require.Len(t, plan.Operations, 1)
	op := plan.Operations[0]
	assert.Equal(t, ir.OpCreate, op.Kind)
	assert.Equal(t, "test1", op.Name)
	assert.Nil(t, op.Prior)
	assert.Equal(t, 1, plan.Summary.Create)
	assert.NotEmpty(t, plan.Metadata.ID)
}

func TestPlan_NoOpWhenUnchanged(t *testing.T) {
	eng := newTestEngine(t)

	attrs := map[string]any{"triggers": map[string]any{"a": "b"}}
	descriptors := []*ir.Descriptor{
		{Type: "null", Name: "test1", Provider: "null", Attributes: attrs},
	}
	state := &ir.State{
		Version: 1,
		Resources: []*ir.ResourceState{
			{
				Type:        "null",
				Name:        "test1",
				Provider:    "null",
				Attributes:  attrs,
				Identifiers: map[string]any{"id": "null-test1"},
			},
		},
	}

	plan, err := eng.Plan(descriptors, state)
	require.NoError(t, err)

	assert.Empty(t, plan.Operations)
	assert.True(t, plan.Empty())
	assert.Equal(t, 1, plan.Summary.NoOp)
}

func TestPlan_UpdateOnAttributeChange(t *testing.T) {
	eng := newTestEngine(t)

	descriptors := []*ir.Descriptor{
		{
			Type:       "null",
			Name:       "test1",
			Provider:   "null",
			Attributes: map[string]any{"size": "large"},
		},
	}
	state := &ir.State{
		Version: 1,
		Resources: []*ir.ResourceState{
			{
				Type:       "null",
				Name:       "test1",
				Provider:   "null",
				Attributes: map[string]any{"size": "small"},
			},
		},
	}

	plan, err := eng.Plan(descriptors, state)
	require.NoError(t, err)

	require.Len(t, plan.Operations, 1)
	op := plan.Operations[0]
	assert.Equal(t, ir.OpUpdate, op.Kind)
	require.NotNil(t, op.Diff["size"])
	assert.Equal(t, "update", op.Diff["size"].Action)
	assert.Equal(t, "small", op.Diff["size"].Before)
	assert.Equal(t, "large", op.Diff["size"].After)
}

func TestPlan_ReferenceSurvivesStateRoundTrip(t *testing.T) {
	// A reference in desired attributes must compare equal to the same
	// reference after it went through durable state encoding, otherwise
	// an untouched stack would never converge to all-NoOp.
	eng := newTestEngine(t)

	descriptors := []*ir.Descriptor{
		{Type: "null", Name: "base", Provider: "null"},
		{
			Type:     "null",
			Name:     "top",
			Provider: "null",
			Attributes: map[string]any{
				"base_id": ir.Reference{Target: "base", Output: "id"},
			},
		},
	}
	state := &ir.State{
		Version: 1,
		Resources: []*ir.ResourceState{
			{Type: "null", Name: "base", Provider: "null"},
			{
				Type:     "null",
				Name:     "top",
				Provider: "null",
				// The wire form of the same reference, as a state file
				// parsed without rehydration would carry it.
				Attributes: map[string]any{
					"base_id": map[string]any{"$ref": "base.id"},
				},
			},
		},
	}

	plan, err := eng.Plan(descriptors, state)
	require.NoError(t, err)
	assert.Empty(t, plan.Operations)
	assert.Equal(t, 2, plan.Summary.NoOp)
}

func TestPlan_UnreadyCommittedResourcePlansProbe(t *testing.T) {
	eng := newTestEngine(t)

	attrs := map[string]any{"triggers": map[string]any{"a": "b"}}
	descriptors := []*ir.Descriptor{
		{
			Type:       "null",
			Name:       "gated",
			Provider:   "null",
			Attributes: attrs,
			Readiness:  &ir.ReadinessPolicy{Mode: ir.ReadinessPollUntil},
		},
	}
	state := &ir.State{
		Version: 1,
		Resources: []*ir.ResourceState{
			{
				Type:        "null",
				Name:        "gated",
				Provider:    "null",
				Attributes:  attrs,
				Identifiers: map[string]any{"id": "null-gated"},
				Unready:     true,
			},
		},
	}

	plan, err := eng.Plan(descriptors, state)
	require.NoError(t, err)

	require.Len(t, plan.Operations, 1)
	op := plan.Operations[0]
	assert.Equal(t, ir.OpProbe, op.Kind)
	assert.Equal(t, "gated", op.Name)
	require.NotNil(t, op.Prior)
	assert.Equal(t, 1, plan.Summary.Probe)
	assert.Equal(t, 0, plan.Summary.NoOp)

	// An unready resource whose declaration no longer carries a gate has
	// nothing left to verify.
	descriptors[0].Readiness = nil
	plan, err = eng.Plan(descriptors, state)
	require.NoError(t, err)
	assert.Empty(t, plan.Operations)
	assert.Equal(t, 1, plan.Summary.NoOp)
}

func TestPlan_DestroyUndeclared(t *testing.T) {
	eng := newTestEngine(t)

	state := &ir.State{
		Version: 1,
		Resources: []*ir.ResourceState{
			{Type: "null", Name: "gone", Provider: "null", Identifiers: map[string]any{"id": "null-gone"}},
		},
	}

	plan, err := eng.Plan(nil, state)
	require.NoError(t, err)

	require.Len(t, plan.Operations, 1)
	assert.Equal(t, ir.OpDestroy, plan.Operations[0].Kind)
	assert.Equal(t, "gone", plan.Operations[0].Name)
	assert.Equal(t, 1, plan.Summary.Destroy)
}

func TestPlan_DestroyOrderReversesDependencies(t *testing.T) {
	eng := newTestEngine(t)

	// b was created depending on a; its destroy must come first.
	state := &ir.State{
		Version: 1,
		Resources: []*ir.ResourceState{
			{Type: "null", Name: "a", Provider: "null"},
			{Type: "null", Name: "b", Provider: "null", Dependencies: []string{"a"}},
		},
	}

	plan, err := eng.Plan(nil, state)
	require.NoError(t, err)
	require.Len(t, plan.Operations, 2)

	assert.Equal(t, "b", plan.Operations[0].Name)
	assert.Equal(t, "a", plan.Operations[1].Name)
	// a's destroy is gated on b's destroy.
	assert.Equal(t, []string{"b"}, plan.Operations[1].DependsOn)
}

func TestPlan_MixedCreateAndDestroy(t *testing.T) {
	eng := newTestEngine(t)

	descriptors := []*ir.Descriptor{
		{Type: "null", Name: "fresh", Provider: "null"},
	}
	state := &ir.State{
		Version: 1,
		Resources: []*ir.ResourceState{
			{Type: "null", Name: "stale", Provider: "null"},
		},
	}

	plan, err := eng.Plan(descriptors, state)
	require.NoError(t, err)

	require.Len(t, plan.Operations, 2)
	assert.Equal(t, ir.OpCreate, plan.Operations[0].Kind)
	assert.Equal(t, ir.OpDestroy, plan.Operations[1].Kind)
	assert.Equal(t, 1, plan.Summary.Create)
	assert.Equal(t, 1, plan.Summary.Destroy)
}

func TestPlan_CorruptStateCycle(t *testing.T) {
	eng := newTestEngine(t)

	state := &ir.State{
		Version: 1,
		Resources: []*ir.ResourceState{
			{Type: "null", Name: "a", Provider: "null", Dependencies: []string{"b"}},
			{Type: "null", Name: "b", Provider: "null", Dependencies: []string{"a"}},
		},
	}

	_, err := eng.Plan(nil, state)
	var cycleErr *CycleDetectedError
	require.ErrorAs(t, err, &cycleErr)
}

func TestPlan_PlanIsIdempotentInput(t *testing.T) {
	// Planning twice against the same inputs yields the same operations.
	eng := newTestEngine(t)

	descriptors := []*ir.Descriptor{
		{Type: "null", Name: "a", Provider: "null"},
		{Type: "null", Name: "b", Provider: "null", DependsOn: []string{"a"}},
	}
	state := &ir.State{Version: 1}

	first, err := eng.Plan(descriptors, state)
	require.NoError(t, err)
	second, err := eng.Plan(descriptors, state)
	require.NoError(t, err)

	require.Len(t, second.Operations, len(first.Operations))
	for i := range first.Operations {
		assert.Equal(t, first.Operations[i].Name, second.Operations[i].Name)
		assert.Equal(t, first.Operations[i].Kind, second.Operations[i].Kind)
	}
}
