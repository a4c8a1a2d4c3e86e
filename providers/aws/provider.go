// Package aws implements the provider contract against AWS service APIs.
// Resource types are namespaced "aws:<service>.<Kind>" and dispatch to one
// handler file per service.
package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/strata-io/strata/pkg/provider"
)

type Provider struct {
	mu                sync.Mutex
	ec2Client         *ec2.Client
	eksClient         *eks.Client
	iamClient         *iam.Client
	sqsClient         *sqs.Client
	autoscalingClient *autoscaling.Client
}

func New() *Provider {
	return &Provider{}
}

// ensureClients initializes the service clients once, lazily. Region and
// credentials come from the standard AWS environment and shared config.
func (p *Provider) ensureClients(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ec2Client != nil {
		return nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("unable to load SDK config: %w", err)
	}

	p.ec2Client = ec2.NewFromConfig(cfg)
	p.eksClient = eks.NewFromConfig(cfg)
	p.iamClient = iam.NewFromConfig(cfg)
	p.sqsClient = sqs.NewFromConfig(cfg)
	p.autoscalingClient = autoscaling.NewFromConfig(cfg)

	return nil
}

func (p *Provider) Apply(ctx context.Context, req *provider.ApplyRequest) (*provider.ApplyResponse, error) {
	if err := p.ensureClients(ctx); err != nil {
		return nil, err
	}

	switch req.Type {
	case "aws:ec2.Network":
		return p.applyNetwork(ctx, req)
	case "aws:ec2.Subnet":
		return p.applySubnet(ctx, req)
	case "aws:eks.Cluster":
		return p.applyCluster(ctx, req)
	case "aws:eks.NodeGroup":
		return p.applyNodeGroup(ctx, req)
	case "aws:iam.Role":
		return p.applyRole(ctx, req)
	case "aws:iam.RoleBinding":
		return p.applyRoleBinding(ctx, req)
	case "aws:sqs.Queue":
		return p.applyQueue(ctx, req)
	case "aws:autoscaling.Group":
		return p.applyAutoscalerGroup(ctx, req)
	}

	return nil, fmt.Errorf("unknown resource type: %s", req.Type)
}

func (p *Provider) Destroy(ctx context.Context, req *provider.DestroyRequest) error {
	if err := p.ensureClients(ctx); err != nil {
		return err
	}

	switch req.Type {
	case "aws:ec2.Network":
		return p.destroyNetwork(ctx, req)
	case "aws:ec2.Subnet":
		return p.destroySubnet(ctx, req)
	case "aws:eks.Cluster":
		return p.destroyCluster(ctx, req)
	case "aws:eks.NodeGroup":
		return p.destroyNodeGroup(ctx, req)
	case "aws:iam.Role":
		return p.destroyRole(ctx, req)
	case "aws:iam.RoleBinding":
		return p.destroyRoleBinding(ctx, req)
	case "aws:sqs.Queue":
		return p.destroyQueue(ctx, req)
	case "aws:autoscaling.Group":
		return p.destroyAutoscalerGroup(ctx, req)
	}

	return fmt.Errorf("unknown resource type: %s", req.Type)
}

// Probe reports whether a resource has finished converging. Types without a
// meaningful readiness signal report ready as soon as they exist.
func (p *Provider) Probe(ctx context.Context, typ string, identifiers map[string]any) (bool, error) {
	if err := p.ensureClients(ctx); err != nil {
		return false, err
	}

	switch typ {
	case "aws:ec2.Network":
		return p.probeNetwork(ctx, identifiers)
	case "aws:eks.Cluster":
		return p.probeCluster(ctx, identifiers)
	case "aws:eks.NodeGroup":
		return p.probeNodeGroup(ctx, identifiers)
	case "aws:autoscaling.Group":
		return p.probeAutoscalerGroup(ctx, identifiers)
	}

	return true, nil
}

// decode maps loosely-typed attributes onto a handler's config struct via a
// JSON round trip.
func decode(attrs map[string]any, into any) error {
	raw, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("failed to encode attributes: %w", err)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("failed to decode attributes: %w", err)
	}
	return nil
}

// stringID pulls a required string identifier out of committed state.
func stringID(identifiers map[string]any, key string) (string, error) {
	v, ok := identifiers[key]
	if !ok {
		return "", fmt.Errorf("missing identifier %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("identifier %q is not a string", key)
	}
	return s, nil
}
