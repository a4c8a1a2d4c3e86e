package load

import (
	"testing"
	"time"

	"github.com/strata-io/strata/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_BasicResource(t *testing.T) {
	src := `
resource "aws:ec2.Network" "network" {
  attributes {
    cidr_block = "10.0.0.0/16"
    az_count   = 3
    public     = true

    tags = {
      Name = "platform"
    }
  }
}
`
	descriptors, err := Parse([]byte(src), "test.hcl")
	require.NoError(t, err)
	require.Len(t, descriptors, 1)

	d := descriptors[0]
	assert.Equal(t, "aws:ec2.Network", d.Type)
	assert.Equal(t, "network", d.Name)
	assert.Equal(t, "aws", d.Provider, "provider defaults to the type namespace")
	assert.Equal(t, "10.0.0.0/16", d.Attributes["cidr_block"])
	assert.Equal(t, int64(3), d.Attributes["az_count"])
	assert.Equal(t, true, d.Attributes["public"])
	assert.Equal(t, map[string]any{"Name": "platform"}, d.Attributes["tags"])
	assert.Nil(t, d.Readiness)
}

func TestParse_ExplicitProviderAndDependsOn(t *testing.T) {
	src := `
resource "null" "a" {}

resource "custom.Thing" "b" {
  provider   = "null"
  depends_on = ["a"]
}
`
	descriptors, err := Parse([]byte(src), "test.hcl")
	require.NoError(t, err)
	require.Len(t, descriptors, 2)

	assert.Equal(t, "null", descriptors[1].Provider)
	assert.Equal(t, []string{"a"}, descriptors[1].DependsOn)
}

func TestParse_ReferenceExpressions(t *testing.T) {
	src := `
resource "null" "base" {}

resource "null" "top" {
  attributes {
    base_id = resource.base.id
    nested = {
      arn = resource.base.arn
    }
    list = [resource.base.id, "plain"]
  }
}
`
	descriptors, err := Parse([]byte(src), "test.hcl")
	require.NoError(t, err)

	attrs := descriptors[1].Attributes
	assert.Equal(t, ir.Reference{Target: "base", Output: "id"}, attrs["base_id"])

	nested := attrs["nested"].(map[string]any)
	assert.Equal(t, ir.Reference{Target: "base", Output: "arn"}, nested["arn"])

	list := attrs["list"].([]any)
	assert.Equal(t, ir.Reference{Target: "base", Output: "id"}, list[0])
	assert.Equal(t, "plain", list[1])
}

func TestParse_ReferenceInsideExpressionRejected(t *testing.T) {
	src := `
resource "null" "base" {}

resource "null" "top" {
  attributes {
    combined = "prefix-${resource.base.id}"
  }
}
`
	_, err := Parse([]byte(src), "test.hcl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must stand alone")
}

func TestParse_ReadinessBlock(t *testing.T) {
	src := `
resource "null" "polled" {
  readiness {
    mode     = "poll"
    interval = "5s"
    timeout  = "120s"
  }
}

resource "null" "delayed" {
  readiness {
    mode  = "delay"
    delay = "30s"
  }
}
`
	descriptors, err := Parse([]byte(src), "test.hcl")
	require.NoError(t, err)

	polled := descriptors[0].Readiness
	require.NotNil(t, polled)
	assert.Equal(t, ir.ReadinessPollUntil, polled.Mode)
	assert.Equal(t, 5*time.Second, polled.Interval)
	assert.Equal(t, 120*time.Second, polled.Timeout)

	delayed := descriptors[1].Readiness
	require.NotNil(t, delayed)
	assert.Equal(t, ir.ReadinessFixedDelay, delayed.Mode)
	assert.Equal(t, 30*time.Second, delayed.Delay)
}

func TestParse_ReadinessErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"missing mode", `resource "null" "a" { readiness { delay = "5s" } }`},
		{"bad mode", `resource "null" "a" { readiness { mode = "eventually" } }`},
		{"bad duration", `resource "null" "a" { readiness { mode = "delay" delay = "fast" } }`},
		{"unknown setting", `resource "null" "a" { readiness { mode = "poll" retries = "3" } }`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.src), "test.hcl")
			assert.Error(t, err)
		})
	}
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parse([]byte(`resource "null" {`), "broken.hcl")
	assert.Error(t, err)
}

func TestParse_DeclarationOrder(t *testing.T) {
	src := `
resource "null" "z" {}
resource "null" "a" {}
resource "null" "m" {}
`
	descriptors, err := Parse([]byte(src), "test.hcl")
	require.NoError(t, err)

	names := []string{}
	for _, d := range descriptors {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"z", "a", "m"}, names)
}
