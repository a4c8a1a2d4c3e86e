package store

import (
	"testing"

	"github.com/strata-io/strata/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutAndGet(t *testing.T) {
	s := New()

	require.NoError(t, s.Put(&ir.Descriptor{Type: "null", Name: "a", Provider: "null"}))

	got := s.Get("a")
	require.NotNil(t, got)
	assert.Equal(t, "null", got.Type)
	assert.Nil(t, s.Get("missing"))
	assert.Equal(t, 1, s.Len())
}

func TestStore_RejectsEmptyName(t *testing.T) {
	s := New()
	assert.Error(t, s.Put(&ir.Descriptor{Type: "null"}))
}

func TestStore_DeclarationOrderPreserved(t *testing.T) {
	s := New()

	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, s.Put(&ir.Descriptor{Type: "null", Name: name}))
	}

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Name)
	assert.Equal(t, "a", all[1].Name)
	assert.Equal(t, "b", all[2].Name)
}

func TestStore_ReplaceSameTypeKeepsPosition(t *testing.T) {
	s := New()

	require.NoError(t, s.Put(&ir.Descriptor{Type: "null", Name: "a"}))
	require.NoError(t, s.Put(&ir.Descriptor{Type: "null", Name: "b"}))
	require.NoError(t, s.Put(&ir.Descriptor{
		Type: "null", Name: "a",
		Attributes: map[string]any{"v": int64(2)},
	}))

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)
	assert.Equal(t, int64(2), all[0].Attributes["v"])
}

func TestStore_ConflictingTypeIsError(t *testing.T) {
	s := New()

	require.NoError(t, s.Put(&ir.Descriptor{Type: "aws:ec2.Network", Name: "a"}))
	err := s.Put(&ir.Descriptor{Type: "aws:sqs.Queue", Name: "a"})

	var dupErr *DuplicateDeclarationError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "a", dupErr.Name)
	assert.Equal(t, "aws:ec2.Network", dupErr.ExistingType)
	assert.Equal(t, "aws:sqs.Queue", dupErr.NewType)
}

func TestStore_PutClonesDescriptor(t *testing.T) {
	s := New()

	d := &ir.Descriptor{
		Type: "null", Name: "a",
		Attributes: map[string]any{"k": "v"},
	}
	require.NoError(t, s.Put(d))

	// Mutating the caller's descriptor must not leak into the store.
	d.Attributes["k"] = "changed"
	assert.Equal(t, "v", s.Get("a").Attributes["k"])
}
