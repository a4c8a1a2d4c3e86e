package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/strata-io/strata/internal/ir"
	"github.com/strata-io/strata/internal/logging"
	"github.com/strata-io/strata/pkg/provider"
)

const defaultParallelism = 10

// Recorder persists per-resource outcomes. Implementations must make the
// write durable before returning: the executor will not release dependents
// until the commit call comes back.
type Recorder interface {
	CommitApply(ctx context.Context, res *ir.ResourceState) error
	CommitDestroy(ctx context.Context, name string) error
}

// ApplyEvent represents a progress event during execution.
type ApplyEvent struct {
	Name     string
	Kind     ir.OpKind
	Status   string // "started", "completed", "failed", "skipped"
	Duration time.Duration
	Error    error
}

// ApplyCallback is called for each apply event if set.
type ApplyCallback func(event ApplyEvent)

// Execute applies a plan against the given state. Operations run in waves:
// anything whose dependencies are applied and ready may run, up to the
// parallelism bound; a chain stays strictly sequential. A terminal failure
// skips every operation depending on it while independent branches continue.
// Completed operations stay committed regardless of later failures; the pass
// is re-run, not rolled back.
//
// Cancelling ctx stops new operations from starting but lets in-flight
// provider calls run to completion, so nothing is abandoned half-applied.
func (e *Engine) Execute(ctx context.Context, plan *ir.Plan, state *ir.State, recorder Recorder) (*ir.PassResult, error) {
	return e.ExecuteWithCallback(ctx, plan, state, recorder, nil)
}

// ExecuteWithCallback executes a plan with progress event callbacks.
func (e *Engine) ExecuteWithCallback(ctx context.Context, plan *ir.Plan, state *ir.State, recorder Recorder, callback ApplyCallback) (*ir.PassResult, error) {
	result := &ir.PassResult{
		ID:     uuid.New().String(),
		Status: ir.PassSucceeded,
	}

	run := &execution{
		engine:   e,
		state:    state,
		recorder: recorder,
		callback: callback,
		result:   result,
	}

	// Creates and updates first, then destroys: the plan already orders each
	// group internally, and a destroyed resource can never be a dependency of
	// a surviving one.
	var applies, destroys []*ir.Operation
	for _, op := range plan.Operations {
		if op.Kind == ir.OpDestroy {
			destroys = append(destroys, op)
		} else {
			applies = append(applies, op)
		}
	}

	run.runWave(ctx, applies)
	run.runWave(ctx, destroys)

	state.Serial++

	// Cancellation only changes the pass status when it actually stopped
	// something; a cancel that lands after the last operation finished
	// leaves a clean pass.
	if run.cancelled {
		result.Status = ir.PassCancelled
	} else {
		for _, rec := range result.Records {
			if rec.Status != ir.StatusSucceeded {
				result.Status = ir.PassFailed
				break
			}
		}
	}

	result.State = state.Snapshot()
	return result, nil
}

// execution holds the shared bookkeeping for one pass.
type execution struct {
	engine   *Engine
	state    *ir.State
	recorder Recorder
	callback ApplyCallback
	result   *ir.PassResult

	stateMu   sync.Mutex // guards state, result.Records, and cancelled
	cancelled bool       // cancellation skipped at least one operation
}

func (x *execution) markCancelled() {
	x.stateMu.Lock()
	x.cancelled = true
	x.stateMu.Unlock()
}

func (x *execution) emit(event ApplyEvent) {
	if x.callback != nil {
		x.callback(event)
	}
}

func (x *execution) appendRecord(rec *ir.ExecutionRecord) {
	x.stateMu.Lock()
	x.result.Records = append(x.result.Records, rec)
	x.stateMu.Unlock()
}

// runWave executes one group of operations with dependency tracking. Within
// the group, an operation becomes eligible once every dependency that is also
// in the group has completed and become ready; dependencies outside the group
// were NoOps and count as already satisfied.
func (x *execution) runWave(ctx context.Context, ops []*ir.Operation) {
	if len(ops) == 0 {
		return
	}

	inGroup := make(map[string]bool, len(ops))
	for _, op := range ops {
		inGroup[op.Name] = true
	}

	parallelism := x.engine.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	sem := make(chan struct{}, parallelism)

	completed := make(map[string]bool)
	failed := make(map[string]bool)
	mu := sync.Mutex{}
	cond := sync.NewCond(&mu)

	var wg sync.WaitGroup
	for _, op := range ops {
		wg.Add(1)
		go func(op *ir.Operation) {
			defer wg.Done()

			// Wait for in-group dependencies to resolve.
			mu.Lock()
			for {
				allReady := true
				failedDep := ""
				for _, dep := range op.DependsOn {
					if !inGroup[dep] {
						continue
					}
					if failed[dep] {
						failedDep = dep
						break
					}
					if !completed[dep] {
						allReady = false
						break
					}
				}
				if failedDep != "" {
					failed[op.Name] = true
					mu.Unlock()
					x.skip(op, &DependencyFailedError{Name: op.Name, Dep: failedDep})
					cond.Broadcast()
					return
				}
				if allReady {
					break
				}
				cond.Wait()
			}
			mu.Unlock()

			// A cancelled pass issues no new operations, including ones
			// already queued behind the parallelism bound.
			skipCancelled := func(err error) {
				mu.Lock()
				failed[op.Name] = true
				mu.Unlock()
				x.markCancelled()
				x.skip(op, fmt.Errorf("pass cancelled: %w", err))
				cond.Broadcast()
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				skipCancelled(ctx.Err())
				return
			}
			if err := ctx.Err(); err != nil {
				<-sem
				skipCancelled(err)
				return
			}
			rec := x.runOperation(ctx, op)
			<-sem

			x.appendRecord(rec)

			mu.Lock()
			if rec.Status == ir.StatusSucceeded {
				completed[op.Name] = true
			} else {
				failed[op.Name] = true
			}
			mu.Unlock()
			cond.Broadcast()
		}(op)
	}
	wg.Wait()
}

func (x *execution) skip(op *ir.Operation, err error) {
	now := time.Now()
	x.appendRecord(&ir.ExecutionRecord{
		Name:        op.Name,
		Kind:        op.Kind,
		Status:      ir.StatusSkipped,
		StartedAt:   now,
		CompletedAt: now,
		Err:         err,
	})
	x.emit(ApplyEvent{Name: op.Name, Kind: op.Kind, Status: "skipped", Error: err})
}

// runOperation performs one operation end to end: provider call with retries,
// durable state commit, then the readiness gate. The commit always precedes
// the gate and the gate always precedes dependent release, so a crash between
// provider effects and commit can at worst re-issue an idempotent apply.
func (x *execution) runOperation(ctx context.Context, op *ir.Operation) *ir.ExecutionRecord {
	start := time.Now()
	rec := &ir.ExecutionRecord{
		Name:      op.Name,
		Kind:      op.Kind,
		StartedAt: start,
	}
	finish := func(status ir.OpStatus, err error) *ir.ExecutionRecord {
		rec.Status = status
		rec.Err = err
		rec.CompletedAt = time.Now()
		rec.Duration = rec.CompletedAt.Sub(start)
		eventStatus := "completed"
		if status != ir.StatusSucceeded {
			eventStatus = "failed"
		}
		x.emit(ApplyEvent{Name: op.Name, Kind: op.Kind, Status: eventStatus, Duration: rec.Duration, Error: err})
		return rec
	}

	x.emit(ApplyEvent{Name: op.Name, Kind: op.Kind, Status: "started"})
	logging.Debug("executing operation", "name", op.Name, "kind", op.Kind)

	// In-flight operations are allowed to outlive pass cancellation; only the
	// per-operation timeout bounds the provider call.
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultTimeout)
	defer cancel()

	switch op.Kind {
	case ir.OpCreate, ir.OpUpdate:
		provName := op.Desired.Provider
		prov, err := x.engine.registry.Get(provName)
		if err != nil {
			return finish(ir.StatusFailed, &OperationError{Name: op.Name, Kind: string(op.Kind), Err: err})
		}

		x.stateMu.Lock()
		resolved, err := ResolveReferences(op.Desired.Attributes, x.state)
		x.stateMu.Unlock()
		if err != nil {
			return finish(ir.StatusFailed, &OperationError{Name: op.Name, Kind: string(op.Kind), Err: err})
		}

		var prior map[string]any
		if op.Prior != nil {
			prior = op.Prior.Identifiers
		}

		var resp *provider.ApplyResponse
		err = RetryWithBackoff(opCtx, x.engine.Retry, func() error {
			var applyErr error
			resp, applyErr = prov.Apply(opCtx, &provider.ApplyRequest{
				Type:    op.Desired.Type,
				Name:    op.Desired.Name,
				Desired: resolved,
				Prior:   prior,
			})
			return applyErr
		}, IsTransientError)
		if err != nil {
			return finish(ir.StatusFailed, &OperationError{Name: op.Name, Kind: string(op.Kind), Err: err})
		}

		// A gated resource is committed unready first; the marker is cleared,
		// durably, only once the gate resolves Ready. If the gate times out
		// (or the pass dies mid-gate) the next plan re-gates it before
		// releasing any new dependent.
		newRes := &ir.ResourceState{
			Type:         op.Desired.Type,
			Name:         op.Desired.Name,
			Provider:     provName,
			Attributes:   op.Desired.Attributes,
			Identifiers:  resp.Identifiers,
			Dependencies: op.DependsOn,
			Unready:      gated(op.Desired),
		}
		if err := x.commitApply(opCtx, newRes); err != nil {
			return finish(ir.StatusFailed, &OperationError{Name: op.Name, Kind: string(op.Kind), Err: err})
		}

		// Readiness gate: dependents are released only after this resolves.
		outcome, err := AwaitReady(ctx, newRes, op.Desired.Readiness, x.engine.registry.Prober(provName))
		if outcome != nil {
			rec.ReadinessWaited = outcome.Waited
			rec.LastProbe = outcome.LastProbe
		}
		if err != nil {
			if _, ok := err.(*ReadinessTimeoutError); ok {
				return finish(ir.StatusTimedOut, err)
			}
			return finish(ir.StatusFailed, err)
		}

		if newRes.Unready {
			if err := x.markReady(opCtx, op.Name); err != nil {
				return finish(ir.StatusFailed, &OperationError{Name: op.Name, Kind: string(op.Kind), Err: err})
			}
		}
		return finish(ir.StatusSucceeded, nil)

	case ir.OpProbe:
		outcome, err := AwaitReady(ctx, op.Prior, op.Desired.Readiness, x.engine.registry.Prober(op.Prior.Provider))
		if outcome != nil {
			rec.ReadinessWaited = outcome.Waited
			rec.LastProbe = outcome.LastProbe
		}
		if err != nil {
			if _, ok := err.(*ReadinessTimeoutError); ok {
				return finish(ir.StatusTimedOut, err)
			}
			return finish(ir.StatusFailed, err)
		}
		if err := x.markReady(opCtx, op.Name); err != nil {
			return finish(ir.StatusFailed, &OperationError{Name: op.Name, Kind: string(op.Kind), Err: err})
		}
		return finish(ir.StatusSucceeded, nil)

	case ir.OpDestroy:
		prov, err := x.engine.registry.Get(op.Prior.Provider)
		if err != nil {
			return finish(ir.StatusFailed, &OperationError{Name: op.Name, Kind: string(op.Kind), Err: err})
		}

		err = RetryWithBackoff(opCtx, x.engine.Retry, func() error {
			return prov.Destroy(opCtx, &provider.DestroyRequest{
				Type:        op.Prior.Type,
				Name:        op.Prior.Name,
				Identifiers: op.Prior.Identifiers,
			})
		}, IsTransientError)
		if err != nil {
			return finish(ir.StatusFailed, &OperationError{Name: op.Name, Kind: string(op.Kind), Err: err})
		}

		if err := x.commitDestroy(opCtx, op.Name); err != nil {
			return finish(ir.StatusFailed, &OperationError{Name: op.Name, Kind: string(op.Kind), Err: err})
		}

		return finish(ir.StatusSucceeded, nil)
	}

	return finish(ir.StatusFailed, fmt.Errorf("unsupported operation kind %s", op.Kind))
}

// commitApply upserts the resource into in-memory state and makes it durable.
func (x *execution) commitApply(ctx context.Context, res *ir.ResourceState) error {
	x.stateMu.Lock()
	defer x.stateMu.Unlock()

	replaced := false
	for i, existing := range x.state.Resources {
		if existing.Name == res.Name {
			x.state.Resources[i] = res
			replaced = true
			break
		}
	}
	if !replaced {
		x.state.Resources = append(x.state.Resources, res)
	}

	if x.recorder != nil {
		if err := x.recorder.CommitApply(ctx, res); err != nil {
			return fmt.Errorf("state commit failed: %w", err)
		}
	}
	return nil
}

// markReady durably clears the unready marker once the readiness gate has
// resolved Ready.
func (x *execution) markReady(ctx context.Context, name string) error {
	x.stateMu.Lock()
	defer x.stateMu.Unlock()

	res := x.state.Resource(name)
	if res == nil {
		return nil
	}
	res.Unready = false

	if x.recorder != nil {
		if err := x.recorder.CommitApply(ctx, res); err != nil {
			return fmt.Errorf("state commit failed: %w", err)
		}
	}
	return nil
}

// commitDestroy removes the resource from in-memory state and makes the
// removal durable. No residual identifiers survive a successful destroy.
func (x *execution) commitDestroy(ctx context.Context, name string) error {
	x.stateMu.Lock()
	defer x.stateMu.Unlock()

	for i, existing := range x.state.Resources {
		if existing.Name == name {
			x.state.Resources = append(x.state.Resources[:i], x.state.Resources[i+1:]...)
			break
		}
	}

	if x.recorder != nil {
		if err := x.recorder.CommitDestroy(ctx, name); err != nil {
			return fmt.Errorf("state commit failed: %w", err)
		}
	}
	return nil
}

// ResolveReferences substitutes Reference values with the committed
// identifiers of their targets. The graph guarantees targets are applied
// before their dependents resolve, so a missing output is a provider
// contract violation, not a scheduling race.
func ResolveReferences(val map[string]any, state *ir.State) (map[string]any, error) {
	out, err := resolveValue(val, state)
	if err != nil {
		return nil, err
	}
	return out.(map[string]any), nil
}

func resolveValue(val any, state *ir.State) (any, error) {
	switch v := val.(type) {
	case ir.Reference:
		res := state.Resource(v.Target)
		if res == nil {
			return nil, fmt.Errorf("reference %s: resource not in state", v)
		}
		if out, ok := res.Identifiers[v.Output]; ok {
			return out, nil
		}
		if out, ok := res.Attributes[v.Output]; ok {
			return out, nil
		}
		return nil, fmt.Errorf("reference %s: output %q not present", v, v.Output)
	case map[string]any:
		resolved := make(map[string]any, len(v))
		for k, inner := range v {
			r, err := resolveValue(inner, state)
			if err != nil {
				return nil, err
			}
			resolved[k] = r
		}
		return resolved, nil
	case []any:
		resolved := make([]any, len(v))
		for i, inner := range v {
			r, err := resolveValue(inner, state)
			if err != nil {
				return nil, err
			}
			resolved[i] = r
		}
		return resolved, nil
	default:
		return v, nil
	}
}
