package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/strata-io/strata/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedProber struct {
	mu      sync.Mutex
	results []bool
	errs    []error
	calls   int
}

func (p *scriptedProber) Probe(ctx context.Context, typ string, identifiers map[string]any) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return false, p.errs[i]
	}
	if i < len(p.results) {
		return p.results[i], nil
	}
	return true, nil
}

func testResource() *ir.ResourceState {
	return &ir.ResourceState{
		Type:        "fake",
		Name:        "res",
		Identifiers: map[string]any{"id": "fake-res"},
	}
}

func TestAwaitReady_NilPolicy(t *testing.T) {
	outcome, err := AwaitReady(context.Background(), testResource(), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, outcome.Waited)
	assert.Nil(t, outcome.LastProbe)
}

func TestAwaitReady_FixedDelay(t *testing.T) {
	policy := &ir.ReadinessPolicy{Mode: ir.ReadinessFixedDelay, Delay: 20 * time.Millisecond}

	start := time.Now()
	outcome, err := AwaitReady(context.Background(), testResource(), policy, nil)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.GreaterOrEqual(t, outcome.Waited, 20*time.Millisecond)
	assert.Nil(t, outcome.LastProbe)
}

func TestAwaitReady_FixedDelayCancelled(t *testing.T) {
	policy := &ir.ReadinessPolicy{Mode: ir.ReadinessFixedDelay, Delay: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := AwaitReady(ctx, testResource(), policy, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAwaitReady_PollUntilReady(t *testing.T) {
	prober := &scriptedProber{results: []bool{false, false, true}}
	policy := &ir.ReadinessPolicy{
		Mode:     ir.ReadinessPollUntil,
		Interval: 5 * time.Millisecond,
		Timeout:  time.Second,
	}

	outcome, err := AwaitReady(context.Background(), testResource(), policy, prober)
	require.NoError(t, err)

	assert.Equal(t, 3, prober.calls)
	require.NotNil(t, outcome.LastProbe)
	assert.True(t, *outcome.LastProbe)
}

func TestAwaitReady_PollTimeout(t *testing.T) {
	prober := &scriptedProber{results: []bool{false, false, false, false, false, false, false, false, false, false}}
	policy := &ir.ReadinessPolicy{
		Mode:     ir.ReadinessPollUntil,
		Interval: 5 * time.Millisecond,
		Timeout:  25 * time.Millisecond,
	}

	outcome, err := AwaitReady(context.Background(), testResource(), policy, prober)
	require.Error(t, err)

	var timeoutErr *ReadinessTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "res", timeoutErr.Name)
	assert.Equal(t, 25*time.Millisecond, timeoutErr.Timeout)
	assert.False(t, timeoutErr.LastProbe)

	require.NotNil(t, outcome.LastProbe)
	assert.False(t, *outcome.LastProbe)
}

func TestAwaitReady_ProbeErrorsAreRetriedNotFatal(t *testing.T) {
	prober := &scriptedProber{
		results: []bool{false, false, true},
		errs:    []error{errors.New("transient describe failure"), nil, nil},
	}
	policy := &ir.ReadinessPolicy{
		Mode:     ir.ReadinessPollUntil,
		Interval: 5 * time.Millisecond,
		Timeout:  time.Second,
	}

	_, err := AwaitReady(context.Background(), testResource(), policy, prober)
	require.NoError(t, err)
	assert.Equal(t, 3, prober.calls)
}

func TestAwaitReady_PollCancelledBeforeTimeout(t *testing.T) {
	prober := &scriptedProber{results: []bool{false, false, false, false, false}}
	policy := &ir.ReadinessPolicy{
		Mode:     ir.ReadinessPollUntil,
		Interval: 5 * time.Millisecond,
		Timeout:  time.Minute,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(15 * time.Millisecond)
		cancel()
	}()

	_, err := AwaitReady(ctx, testResource(), policy, prober)
	assert.ErrorIs(t, err, context.Canceled)
}
