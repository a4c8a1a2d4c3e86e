// Package provider defines the contract between the provisioning core and
// concrete resource providers. Providers are opaque collaborators: the core
// never inspects attribute semantics, it only moves them across this boundary.
package provider

import "context"

// ApplyRequest asks a provider to create or update one resource.
type ApplyRequest struct {
	Type    string
	Name    string
	Desired map[string]any // desired attributes, references already resolved
	Prior   map[string]any // provider-assigned identifiers from the last apply, nil on create
}

// ApplyResponse carries the provider-assigned identifiers after a successful
// apply. Identifiers are what dependents reference and what destroy needs.
type ApplyResponse struct {
	Identifiers map[string]any
}

// DestroyRequest asks a provider to destroy one resource.
type DestroyRequest struct {
	Type        string
	Name        string
	Identifiers map[string]any
}

// Interface is the operation surface every provider implements. Apply and
// Destroy must be idempotent or safe to retry: the core retries transient
// failures and may re-issue an operation on a later pass.
type Interface interface {
	Apply(ctx context.Context, req *ApplyRequest) (*ApplyResponse, error)
	Destroy(ctx context.Context, req *DestroyRequest) error
}

// Prober is implemented by providers whose resources have effects that become
// usable later than the apply acknowledgment. Probe must be side-effect-free
// and safe to call repeatedly.
type Prober interface {
	Probe(ctx context.Context, typ string, identifiers map[string]any) (bool, error)
}
