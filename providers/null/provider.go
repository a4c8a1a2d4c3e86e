package null

import (
	"context"
	"fmt"

	"github.com/strata-io/strata/pkg/provider"
)

// Provider manages resources that exist only in state. Useful for wiring
// dependency ordering into a stack without touching a real backend, and as
// the reference implementation of the provider contract.
type Provider struct{}

func New() *Provider {
	return &Provider{}
}

func (p *Provider) Apply(ctx context.Context, req *provider.ApplyRequest) (*provider.ApplyResponse, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("null provider requires a resource name")
	}
	return &provider.ApplyResponse{
		Identifiers: map[string]any{
			"id": fmt.Sprintf("null-%s", req.Name),
		},
	}, nil
}

func (p *Provider) Destroy(ctx context.Context, req *provider.DestroyRequest) error {
	// Nothing to tear down; the resource only ever lived in state.
	return nil
}

// Probe reports null resources as ready immediately.
func (p *Provider) Probe(ctx context.Context, typ string, identifiers map[string]any) (bool, error) {
	return true, nil
}
