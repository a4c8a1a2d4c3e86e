// Package load parses declaration files into resource descriptors. The format
// is HCL; the provisioning core itself never sees this package, only the
// descriptor set it produces.
package load

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/strata-io/strata/internal/ir"
	"github.com/zclconf/go-cty/cty"
)

var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "resource", LabelNames: []string{"type", "name"}},
	},
}

var resourceSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "provider"},
		{Name: "depends_on"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "attributes"},
		{Type: "readiness"},
	},
}

// File parses a declaration file into descriptors, in declaration order.
func File(path string) ([]*ir.Descriptor, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(src, path)
}

// Parse parses declaration source into descriptors, in declaration order.
func Parse(src []byte, filename string) ([]*ir.Descriptor, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, diags)
	}

	content, diags := file.Body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid declarations in %s: %w", filename, diags)
	}

	var descriptors []*ir.Descriptor
	for _, block := range content.Blocks {
		d, err := decodeResource(block)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

func decodeResource(block *hcl.Block) (*ir.Descriptor, error) {
	typ, name := block.Labels[0], block.Labels[1]

	content, diags := block.Body.Content(resourceSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid resource %q: %w", name, diags)
	}

	d := &ir.Descriptor{
		Type:       typ,
		Name:       name,
		Provider:   defaultProvider(typ),
		Attributes: map[string]any{},
	}

	if attr, ok := content.Attributes["provider"]; ok {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() || val.Type() != cty.String {
			return nil, fmt.Errorf("resource %q: provider must be a string", name)
		}
		d.Provider = val.AsString()
	}

	if attr, ok := content.Attributes["depends_on"]; ok {
		deps, err := decodeDependsOn(attr.Expr)
		if err != nil {
			return nil, fmt.Errorf("resource %q: %w", name, err)
		}
		d.DependsOn = deps
	}

	for _, inner := range content.Blocks {
		switch inner.Type {
		case "attributes":
			attrs, err := decodeAttributes(inner.Body)
			if err != nil {
				return nil, fmt.Errorf("resource %q: %w", name, err)
			}
			d.Attributes = attrs
		case "readiness":
			policy, err := decodeReadiness(inner.Body)
			if err != nil {
				return nil, fmt.Errorf("resource %q: %w", name, err)
			}
			d.Readiness = policy
		}
	}

	return d, nil
}

// defaultProvider derives the provider from the type's namespace prefix:
// "aws:ec2.Network" -> "aws", "null" -> "null".
func defaultProvider(typ string) string {
	if prefix, _, found := strings.Cut(typ, ":"); found {
		return prefix
	}
	return typ
}

func decodeDependsOn(expr hcl.Expression) ([]string, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("depends_on must be a list of resource names: %w", diags)
	}
	if !val.CanIterateElements() {
		return nil, fmt.Errorf("depends_on must be a list of resource names")
	}
	var deps []string
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		if elem.Type() != cty.String {
			return nil, fmt.Errorf("depends_on entries must be strings")
		}
		deps = append(deps, elem.AsString())
	}
	return deps, nil
}

// decodeAttributes evaluates each attribute expression. An expression that is
// exactly a resource.<name>.<output> traversal becomes a structured Reference,
// including inside list and object constructors; everything else must be a
// constant. Mixing a reference into a larger expression is rejected so that
// every dependency stays visible to the graph.
func decodeAttributes(body hcl.Body) (map[string]any, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid attributes: %w", diags)
	}

	out := make(map[string]any, len(attrs))
	for name, attr := range attrs {
		val, err := decodeExpr(attr.Expr)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		out[name] = val
	}
	return out, nil
}

func decodeExpr(expr hcl.Expression) (any, error) {
	if ref, ok := referenceFromExpr(expr); ok {
		return ref, nil
	}

	switch e := expr.(type) {
	case *hclsyntax.TupleConsExpr:
		out := make([]any, 0, len(e.Exprs))
		for _, item := range e.Exprs {
			v, err := decodeExpr(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case *hclsyntax.ObjectConsExpr:
		out := make(map[string]any, len(e.Items))
		for _, item := range e.Items {
			keyVal, diags := item.KeyExpr.Value(nil)
			if diags.HasErrors() || keyVal.Type() != cty.String {
				return nil, fmt.Errorf("object keys must be constant strings")
			}
			v, err := decodeExpr(item.ValueExpr)
			if err != nil {
				return nil, err
			}
			out[keyVal.AsString()] = v
		}
		return out, nil
	}

	if usesResourceScope(expr) {
		return nil, fmt.Errorf("resource references must stand alone (resource.<name>.<output>)")
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w", diags)
	}
	return ctyToGo(val)
}

// referenceFromExpr recognizes an expression that is exactly a
// resource.<name>.<output> traversal.
func referenceFromExpr(expr hcl.Expression) (ir.Reference, bool) {
	scope, ok := expr.(*hclsyntax.ScopeTraversalExpr)
	if !ok {
		return ir.Reference{}, false
	}
	traversal := scope.Traversal
	if len(traversal) != 3 || traversal.RootName() != "resource" {
		return ir.Reference{}, false
	}
	nameAttr, nameOk := traversal[1].(hcl.TraverseAttr)
	outputAttr, outputOk := traversal[2].(hcl.TraverseAttr)
	if !nameOk || !outputOk {
		return ir.Reference{}, false
	}
	return ir.Reference{Target: nameAttr.Name, Output: outputAttr.Name}, true
}

func usesResourceScope(expr hcl.Expression) bool {
	for _, traversal := range expr.Variables() {
		if traversal.RootName() == "resource" {
			return true
		}
	}
	return false
}

func decodeReadiness(body hcl.Body) (*ir.ReadinessPolicy, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid readiness block: %w", diags)
	}

	policy := &ir.ReadinessPolicy{}
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() || val.Type() != cty.String {
			return nil, fmt.Errorf("readiness %q must be a string", name)
		}
		raw := val.AsString()

		switch name {
		case "mode":
			switch raw {
			case "delay":
				policy.Mode = ir.ReadinessFixedDelay
			case "poll":
				policy.Mode = ir.ReadinessPollUntil
			default:
				return nil, fmt.Errorf("readiness mode must be \"delay\" or \"poll\", got %q", raw)
			}
		case "delay", "interval", "timeout":
			dur, err := time.ParseDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("readiness %s: %w", name, err)
			}
			switch name {
			case "delay":
				policy.Delay = dur
			case "interval":
				policy.Interval = dur
			case "timeout":
				policy.Timeout = dur
			}
		default:
			return nil, fmt.Errorf("unknown readiness setting %q", name)
		}
	}

	if policy.Mode == ir.ReadinessNone {
		return nil, fmt.Errorf("readiness block requires a mode")
	}
	return policy, nil
}

func ctyToGo(val cty.Value) (any, error) {
	if val.IsNull() {
		return nil, nil
	}
	t := val.Type()
	switch {
	case t == cty.String:
		return val.AsString(), nil
	case t == cty.Bool:
		return val.True(), nil
	case t == cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int64()
			return i, nil
		}
		f, _ := bf.Float64()
		return f, nil
	case t.IsTupleType() || t.IsListType() || t.IsSetType():
		var out []any
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			goVal, err := ctyToGo(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, goVal)
		}
		return out, nil
	case t.IsObjectType() || t.IsMapType():
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, elem := it.Element()
			goVal, err := ctyToGo(elem)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = goVal
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", t.FriendlyName())
	}
}
