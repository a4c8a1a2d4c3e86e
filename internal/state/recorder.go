package state

import (
	"context"
	"sync"

	"github.com/strata-io/strata/internal/ir"
)

// Recorder persists committed state through a backend after each successful
// operation. The executor holds the same *ir.State and has already applied
// the in-memory mutation when it calls commit; the recorder's job is to make
// that mutation durable before the executor releases dependents.
type Recorder struct {
	mu      sync.Mutex
	backend Backend
	state   *ir.State
}

func NewRecorder(backend Backend, state *ir.State) *Recorder {
	return &Recorder{backend: backend, state: state}
}

// CommitApply durably records a successful apply.
func (r *Recorder) CommitApply(ctx context.Context, res *ir.ResourceState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.Write(ctx, r.state)
}

// CommitDestroy durably records a successful destroy; no residual record of
// the resource survives.
func (r *Recorder) CommitDestroy(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.Write(ctx, r.state)
}
