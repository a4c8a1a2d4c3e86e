package engine

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/strata-io/strata/internal/ir"
	"github.com/strata-io/strata/internal/logging"
	"github.com/strata-io/strata/internal/provider"
)

// Engine orchestrates the lifecycle of declared resources: it plans changes
// against committed state and executes them in dependency order.
type Engine struct {
	registry    *provider.Registry
	Parallelism int          // max concurrent operations, defaults to defaultParallelism
	Retry       *RetryPolicy // nil means DefaultRetryPolicy
}

func NewEngine(registry *provider.Registry) *Engine {
	return &Engine{
		registry: registry,
	}
}

// Plan diffs the descriptor set against committed state and produces an
// ordered operation sequence. Create/Update operations follow the topological
// order of the dependency graph; Destroy operations for undeclared resources
// follow reverse dependency order. Declaration errors (duplicate names are
// caught by the store, cycles and unresolved references here) surface before
// any provider is contacted.
func (e *Engine) Plan(descriptors []*ir.Descriptor, state *ir.State) (*ir.Plan, error) {
	logging.Debug("creating plan", "declared", len(descriptors), "committed", len(state.Resources))

	graph, err := BuildGraph(descriptors)
	if err != nil {
		return nil, err
	}

	plan := &ir.Plan{
		Metadata: &ir.PlanMetadata{
			ID:        uuid.New().String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
		Summary: &ir.PlanSummary{},
	}

	declared := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		declared[d.Name] = true
	}

	// Creates and updates, in topological order.
	for _, name := range graph.TopoOrder() {
		desired := graph.Descriptor(name)
		prior := state.Resource(name)

		switch {
		case prior == nil:
			plan.Operations = append(plan.Operations, &ir.Operation{
				Name:      name,
				Kind:      ir.OpCreate,
				Desired:   desired,
				DependsOn: graph.Dependencies(name),
				Diff:      buildCreateDiff(desired.Attributes),
			})
			plan.Summary.Create++

		case attributesEqual(desired.Attributes, prior.Attributes):
			// A committed resource whose readiness gate never resolved Ready
			// must be re-gated before anything new depends on it.
			if prior.Unready && gated(desired) {
				plan.Operations = append(plan.Operations, &ir.Operation{
					Name:      name,
					Kind:      ir.OpProbe,
					Desired:   desired,
					Prior:     prior,
					DependsOn: graph.Dependencies(name),
				})
				plan.Summary.Probe++
			} else {
				plan.Summary.NoOp++
			}

		default:
			plan.Operations = append(plan.Operations, &ir.Operation{
				Name:      name,
				Kind:      ir.OpUpdate,
				Desired:   desired,
				Prior:     prior,
				DependsOn: graph.Dependencies(name),
				Diff:      buildAttributeDiff(prior.Attributes, desired.Attributes),
			})
			plan.Summary.Update++
		}
	}

	// Destroys: committed resources no longer declared, in reverse dependency
	// order so a resource outlives everything that depended on it.
	destroyOps, err := e.planDestroys(state, declared)
	if err != nil {
		return nil, err
	}
	for _, op := range destroyOps {
		if declared[op.Name] {
			return nil, &InvalidTransitionError{Name: op.Name}
		}
		plan.Operations = append(plan.Operations, op)
		plan.Summary.Destroy++
	}

	return plan, nil
}

// planDestroys orders the removal of undeclared resources. Dependency edges
// come from the committed state, since the descriptors are gone. A destroy
// operation "depends on" the destroy of everything that depended on the
// resource, inverting the creation direction.
func (e *Engine) planDestroys(state *ir.State, declared map[string]bool) ([]*ir.Operation, error) {
	var doomed []*ir.ResourceState
	doomedSet := make(map[string]bool)
	for _, res := range state.Resources {
		if !declared[res.Name] {
			doomed = append(doomed, res)
			doomedSet[res.Name] = true
		}
	}
	if len(doomed) == 0 {
		return nil, nil
	}

	// dependents[b] = destroys that must complete before b's destroy starts.
	dependents := make(map[string][]string, len(doomed))
	for _, res := range doomed {
		for _, dep := range res.Dependencies {
			if doomedSet[dep] {
				dependents[dep] = append(dependents[dep], res.Name)
			}
		}
	}

	// Reverse topological order via repeated extraction of resources whose
	// doomed dependents are all already ordered.
	ordered := make([]*ir.Operation, 0, len(doomed))
	placed := make(map[string]bool, len(doomed))
	for len(ordered) < len(doomed) {
		progress := false
		for _, res := range doomed {
			if placed[res.Name] {
				continue
			}
			blocked := false
			for _, dependent := range dependents[res.Name] {
				if !placed[dependent] {
					blocked = true
					break
				}
			}
			if blocked {
				continue
			}
			ordered = append(ordered, &ir.Operation{
				Name:      res.Name,
				Kind:      ir.OpDestroy,
				Prior:     res,
				DependsOn: dependents[res.Name],
				Diff:      buildDestroyDiff(res.Attributes),
			})
			placed[res.Name] = true
			progress = true
		}
		if !progress {
			// Committed dependencies form a cycle; state is corrupt.
			var stuck []string
			for _, res := range doomed {
				if !placed[res.Name] {
					stuck = append(stuck, res.Name)
				}
			}
			return nil, &CycleDetectedError{Path: stuck}
		}
	}

	return ordered, nil
}

// attributesEqual compares two attribute maps structurally. Both sides are
// canonicalized through JSON so that references loaded from durable state
// compare equal to their in-memory form.
// gated reports whether the descriptor declares a readiness gate.
func gated(d *ir.Descriptor) bool {
	return d.Readiness != nil && d.Readiness.Mode != ir.ReadinessNone
}

func attributesEqual(a, b map[string]any) bool {
	return reflect.DeepEqual(canonicalValue(a), canonicalValue(b))
}

func canonicalValue(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return out
}

// buildAttributeDiff compares prior and desired attributes and returns a diff map.
func buildAttributeDiff(prior, desired map[string]any) map[string]*ir.AttributeDiff {
	diff := make(map[string]*ir.AttributeDiff)

	allKeys := make(map[string]bool)
	for k := range prior {
		allKeys[k] = true
	}
	for k := range desired {
		allKeys[k] = true
	}

	for k := range allKeys {
		priorVal, inPrior := prior[k]
		desiredVal, inDesired := desired[k]

		switch {
		case !inPrior:
			diff[k] = &ir.AttributeDiff{After: desiredVal, Action: "create"}
		case !inDesired:
			diff[k] = &ir.AttributeDiff{Before: priorVal, Action: "delete"}
		case !reflect.DeepEqual(canonicalValue(priorVal), canonicalValue(desiredVal)):
			diff[k] = &ir.AttributeDiff{Before: priorVal, After: desiredVal, Action: "update"}
		}
	}

	return diff
}

func buildCreateDiff(attrs map[string]any) map[string]*ir.AttributeDiff {
	diff := make(map[string]*ir.AttributeDiff)
	for k, v := range attrs {
		diff[k] = &ir.AttributeDiff{After: v, Action: "create"}
	}
	return diff
}

func buildDestroyDiff(attrs map[string]any) map[string]*ir.AttributeDiff {
	diff := make(map[string]*ir.AttributeDiff)
	for k, v := range attrs {
		diff[k] = &ir.AttributeDiff{Before: v, Action: "delete"}
	}
	return diff
}
