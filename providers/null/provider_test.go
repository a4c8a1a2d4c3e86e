package null

import (
	"context"
	"testing"

	"github.com/strata-io/strata/pkg/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_Apply(t *testing.T) {
	p := New()
	ctx := context.Background()

	resp, err := p.Apply(ctx, &provider.ApplyRequest{
		Type: "null",
		Name: "test",
		Desired: map[string]any{
			"triggers": map[string]any{"foo": "bar"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "null-test", resp.Identifiers["id"])
}

func TestProvider_Apply_RequiresName(t *testing.T) {
	p := New()

	_, err := p.Apply(context.Background(), &provider.ApplyRequest{Type: "null"})
	assert.Error(t, err)
}

func TestProvider_Destroy(t *testing.T) {
	p := New()

	err := p.Destroy(context.Background(), &provider.DestroyRequest{
		Type:        "null",
		Name:        "test",
		Identifiers: map[string]any{"id": "null-test"},
	})
	assert.NoError(t, err)
}

func TestProvider_Probe(t *testing.T) {
	p := New()

	ready, err := p.Probe(context.Background(), "null", map[string]any{"id": "null-test"})
	require.NoError(t, err)
	assert.True(t, ready)
}
