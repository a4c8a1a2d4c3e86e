package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/strata-io/strata/internal/ir"
	"github.com/strata-io/strata/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclarationFile(t *testing.T) {
	assert.Equal(t, "stack.hcl", declarationFile(nil))
	assert.Equal(t, "custom.hcl", declarationFile([]string{"custom.hcl"}))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"nil", nil, "null"},
		{"string", "10.0.0.0/16", `"10.0.0.0/16"`},
		{"number", int64(3), "3"},
		{"bool", true, "true"},
		{"reference", ir.Reference{Target: "network", Output: "id"}, "resource.network.id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatValue(tt.input))
		})
	}
}

func TestLoadStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stack.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
resource "null" "a" {}
resource "null" "b" {
  depends_on = ["a"]
}
`), 0644))

	s, err := loadStore(path)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestLoadStore_DuplicateAcrossTypes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stack.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
resource "null" "a" {}
resource "aws:sqs.Queue" "a" {}
`), 0644))

	_, err := loadStore(path)
	assert.Error(t, err)
}

func TestLoadRequiredProviders(t *testing.T) {
	registry := provider.NewRegistry()

	err := loadRequiredProviders(registry, []*ir.Descriptor{
		{Type: "null", Name: "a", Provider: "null"},
		{Type: "null", Name: "b", Provider: "null"},
	})
	require.NoError(t, err)

	_, err = registry.Get("null")
	assert.NoError(t, err)
}

func TestLoadStateProviders_UnknownProvider(t *testing.T) {
	registry := provider.NewRegistry()

	err := loadStateProviders(registry, &ir.State{
		Resources: []*ir.ResourceState{
			{Type: "x", Name: "a", Provider: "imaginary"},
		},
	})
	assert.Error(t, err)
}
