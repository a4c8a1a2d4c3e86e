package engine

import (
	"fmt"
	"strings"
	"time"
)

// CycleDetectedError reports a dependency cycle in the declared resource set.
// Path names the cycle, closed back to its first element.
type CycleDetectedError struct {
	Path []string
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Path, " -> "))
}

// UnresolvedReferenceError reports a dependency on a logical name that does
// not exist in the descriptor set.
type UnresolvedReferenceError struct {
	From string
	To   string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("resource %q depends on %q, which is not declared", e.From, e.To)
}

// InvalidTransitionError reports an internal-consistency fault: a single
// resource was planned for both creation and destruction in one pass.
type InvalidTransitionError struct {
	Name string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("resource %q planned for simultaneous create and destroy", e.Name)
}

// OperationError is the terminal failure of one resource's operation after
// retries are exhausted or a non-retryable provider error occurred.
type OperationError struct {
	Name string
	Kind string
	Err  error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", strings.ToLower(e.Kind), e.Name, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// ReadinessTimeoutError is a distinguished operation failure: the resource
// applied but its readiness gate expired before the probe reported ready.
// LastProbe carries the final observation to aid diagnosis.
type ReadinessTimeoutError struct {
	Name      string
	Timeout   time.Duration
	LastProbe bool
}

func (e *ReadinessTimeoutError) Error() string {
	return fmt.Sprintf("resource %s not ready after %s (last probe: %t)", e.Name, e.Timeout, e.LastProbe)
}

// DependencyFailedError marks an operation skipped because something it
// depends on failed in the same pass.
type DependencyFailedError struct {
	Name string
	Dep  string
}

func (e *DependencyFailedError) Error() string {
	return fmt.Sprintf("resource %s skipped: dependency %s failed", e.Name, e.Dep)
}
