package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/iam"

	"github.com/strata-io/strata/pkg/provider"
)

type RoleConfig struct {
	RoleName         string `json:"role_name"`
	AssumePolicyJSON string `json:"assume_policy_json"`
	Description      string `json:"description"`
}

type RoleBindingConfig struct {
	RoleName  string `json:"role_name"`
	PolicyArn string `json:"policy_arn"`
}

func (p *Provider) applyRole(ctx context.Context, req *provider.ApplyRequest) (*provider.ApplyResponse, error) {
	var desired RoleConfig
	if err := decode(req.Desired, &desired); err != nil {
		return nil, err
	}
	if desired.RoleName == "" {
		desired.RoleName = req.Name
	}

	if req.Prior != nil {
		name, err := stringID(req.Prior, "name")
		if err != nil {
			return nil, err
		}
		if desired.AssumePolicyJSON != "" {
			_, err := p.iamClient.UpdateAssumeRolePolicy(ctx, &iam.UpdateAssumeRolePolicyInput{
				RoleName:       &name,
				PolicyDocument: &desired.AssumePolicyJSON,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to update assume role policy: %w", err)
			}
		}
		return &provider.ApplyResponse{Identifiers: req.Prior}, nil
	}

	input := &iam.CreateRoleInput{
		RoleName:                 &desired.RoleName,
		AssumeRolePolicyDocument: &desired.AssumePolicyJSON,
	}
	if desired.Description != "" {
		input.Description = &desired.Description
	}

	resp, err := p.iamClient.CreateRole(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	return &provider.ApplyResponse{
		Identifiers: map[string]any{
			"name": *resp.Role.RoleName,
			"arn":  *resp.Role.Arn,
		},
	}, nil
}

func (p *Provider) destroyRole(ctx context.Context, req *provider.DestroyRequest) error {
	name, err := stringID(req.Identifiers, "name")
	if err != nil {
		return err
	}
	if _, err := p.iamClient.DeleteRole(ctx, &iam.DeleteRoleInput{RoleName: &name}); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	return nil
}

// A role binding attaches a managed policy to a role. Its identity is the
// (role, policy) pair, so updates are modeled as detach-and-attach.
func (p *Provider) applyRoleBinding(ctx context.Context, req *provider.ApplyRequest) (*provider.ApplyResponse, error) {
	var desired RoleBindingConfig
	if err := decode(req.Desired, &desired); err != nil {
		return nil, err
	}

	if req.Prior != nil {
		priorRole, err := stringID(req.Prior, "role_name")
		if err != nil {
			return nil, err
		}
		priorPolicy, err := stringID(req.Prior, "policy_arn")
		if err != nil {
			return nil, err
		}
		if priorRole != desired.RoleName || priorPolicy != desired.PolicyArn {
			_, err := p.iamClient.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
				RoleName:  &priorRole,
				PolicyArn: &priorPolicy,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to detach role policy: %w", err)
			}
		}
	}

	_, err := p.iamClient.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  &desired.RoleName,
		PolicyArn: &desired.PolicyArn,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to attach role policy: %w", err)
	}

	return &provider.ApplyResponse{
		Identifiers: map[string]any{
			"role_name":  desired.RoleName,
			"policy_arn": desired.PolicyArn,
		},
	}, nil
}

func (p *Provider) destroyRoleBinding(ctx context.Context, req *provider.DestroyRequest) error {
	roleName, err := stringID(req.Identifiers, "role_name")
	if err != nil {
		return err
	}
	policyArn, err := stringID(req.Identifiers, "policy_arn")
	if err != nil {
		return err
	}
	_, err = p.iamClient.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
		RoleName:  &roleName,
		PolicyArn: &policyArn,
	})
	if err != nil {
		return fmt.Errorf("failed to detach role policy: %w", err)
	}
	return nil
}
