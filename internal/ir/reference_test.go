package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReference_JSONRoundTrip(t *testing.T) {
	ref := Reference{Target: "network", Output: "id"}

	raw, err := json.Marshal(ref)
	require.NoError(t, err)
	assert.JSONEq(t, `{"$ref": "network.id"}`, string(raw))

	var back Reference
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, ref, back)
}

func TestReference_String(t *testing.T) {
	ref := Reference{Target: "cluster", Output: "endpoint"}
	assert.Equal(t, "resource.cluster.endpoint", ref.String())
}

func TestRehydrateReferences(t *testing.T) {
	// The shape a JSON state load produces.
	loaded := map[string]any{
		"network_id": map[string]any{"$ref": "network.id"},
		"nested": map[string]any{
			"items": []any{map[string]any{"$ref": "base.arn"}, "plain"},
		},
		"not_a_ref": map[string]any{"$ref": "network.id", "extra": true},
		"plain":     "10.0.0.0/16",
	}

	out := RehydrateReferences(loaded).(map[string]any)

	assert.Equal(t, Reference{Target: "network", Output: "id"}, out["network_id"])
	nested := out["nested"].(map[string]any)["items"].([]any)
	assert.Equal(t, Reference{Target: "base", Output: "arn"}, nested[0])
	assert.Equal(t, "plain", nested[1])
	// A map with extra keys is user data, not a reference.
	assert.IsType(t, map[string]any{}, out["not_a_ref"])
	assert.Equal(t, "10.0.0.0/16", out["plain"])
}

func TestExtractReferences(t *testing.T) {
	attrs := map[string]any{
		"a": Reference{Target: "x", Output: "id"},
		"b": map[string]any{
			"c": []any{Reference{Target: "y", Output: "arn"}},
		},
		"d": "resource.z.id", // plain string, never a reference
	}

	refs := ExtractReferences(attrs)
	require.Len(t, refs, 2)

	targets := map[string]bool{}
	for _, r := range refs {
		targets[r.Target] = true
	}
	assert.True(t, targets["x"])
	assert.True(t, targets["y"])
	assert.False(t, targets["z"])
}

func TestDescriptor_CloneIsDeep(t *testing.T) {
	d := &Descriptor{
		Type: "null", Name: "a",
		Attributes: map[string]any{
			"nested": map[string]any{"k": "v"},
		},
		Readiness: &ReadinessPolicy{Mode: ReadinessFixedDelay},
	}

	c := d.Clone()
	c.Attributes["nested"].(map[string]any)["k"] = "changed"
	c.Readiness.Mode = ReadinessPollUntil

	assert.Equal(t, "v", d.Attributes["nested"].(map[string]any)["k"])
	assert.Equal(t, ReadinessFixedDelay, d.Readiness.Mode)
}
