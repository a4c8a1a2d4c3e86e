package ir

import "time"

// OpKind is the kind of change an operation performs.
type OpKind string

const (
	OpCreate  OpKind = "CREATE"
	OpUpdate  OpKind = "UPDATE"
	OpDestroy OpKind = "DESTROY"
	OpProbe   OpKind = "PROBE" // re-run the readiness gate of a committed resource
	OpNoOp    OpKind = "NOOP"
)

// Plan is an ordered sequence of operations. Create/Update operations appear
// in topological order; Destroy operations appear in reverse dependency order.
type Plan struct {
	Metadata   *PlanMetadata `json:"metadata"`
	Operations []*Operation  `json:"operations"`
	Summary    *PlanSummary  `json:"summary"`
}

type PlanMetadata struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
}

// Operation is one planned change for one resource.
type Operation struct {
	Name      string                    `json:"name"`              // logical name
	Kind      OpKind                    `json:"kind"`
	Desired   *Descriptor               `json:"desired,omitempty"` // nil for DESTROY
	Prior     *ResourceState            `json:"prior,omitempty"`   // nil for CREATE
	DependsOn []string                  `json:"dependsOn,omitempty"`
	Diff      map[string]*AttributeDiff `json:"diff,omitempty"`
}

// AttributeDiff records the before/after of one attribute.
type AttributeDiff struct {
	Before any    `json:"before,omitempty"`
	After  any    `json:"after,omitempty"`
	Action string `json:"action"` // "create", "update", "delete"
}

type PlanSummary struct {
	Create  int `json:"create"`
	Update  int `json:"update"`
	Destroy int `json:"destroy"`
	Probe   int `json:"probe"`
	NoOp    int `json:"noop"`
}

// Empty reports whether the plan contains no changes.
func (p *Plan) Empty() bool {
	return len(p.Operations) == 0
}

// OpStatus is the terminal status of one executed operation.
type OpStatus string

const (
	StatusSucceeded OpStatus = "succeeded"
	StatusFailed    OpStatus = "failed"
	StatusTimedOut  OpStatus = "timed_out" // readiness gate expired
	StatusSkipped   OpStatus = "skipped"   // a dependency failed
)

// ExecutionRecord is the per-operation outcome of one pass.
type ExecutionRecord struct {
	Name        string        `json:"name"`
	Kind        OpKind        `json:"kind"`
	Status      OpStatus      `json:"status"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt time.Time     `json:"completedAt"`
	Duration    time.Duration `json:"duration"`
	Err         error         `json:"-"`

	// Readiness outcome, populated for resources with a readiness policy.
	ReadinessWaited time.Duration `json:"readinessWaited,omitempty"`
	LastProbe       *bool         `json:"lastProbe,omitempty"`
}

// PassStatus is the aggregate outcome of one reconciliation pass.
type PassStatus string

const (
	PassSucceeded PassStatus = "succeeded"
	PassFailed    PassStatus = "failed"
	PassCancelled PassStatus = "cancelled"
)

// PassResult aggregates the execution records of one pass.
type PassResult struct {
	ID      string             `json:"id"`
	Status  PassStatus         `json:"status"`
	Records []*ExecutionRecord `json:"records"`

	// State is a snapshot of committed state as of the end of the pass,
	// for inspection and audit. Detached from the live state.
	State *State `json:"state,omitempty"`
}

// Record returns the execution record for a logical name, or nil.
func (r *PassResult) Record(name string) *ExecutionRecord {
	for _, rec := range r.Records {
		if rec.Name == name {
			return rec
		}
	}
	return nil
}
