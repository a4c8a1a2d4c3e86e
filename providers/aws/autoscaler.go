package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	astypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"

	"github.com/strata-io/strata/pkg/provider"
)

type AutoscalerGroupConfig struct {
	GroupName        string   `json:"group_name"`
	LaunchTemplateID string   `json:"launch_template_id"`
	SubnetIDs        []string `json:"subnet_ids"`
	MinSize          int32    `json:"min_size"`
	MaxSize          int32    `json:"max_size"`
	DesiredCapacity  *int32   `json:"desired_capacity"`
}

func (p *Provider) applyAutoscalerGroup(ctx context.Context, req *provider.ApplyRequest) (*provider.ApplyResponse, error) {
	var desired AutoscalerGroupConfig
	if err := decode(req.Desired, &desired); err != nil {
		return nil, err
	}
	if desired.GroupName == "" {
		desired.GroupName = req.Name
	}

	if req.Prior != nil {
		name, err := stringID(req.Prior, "name")
		if err != nil {
			return nil, err
		}
		input := &autoscaling.UpdateAutoScalingGroupInput{
			AutoScalingGroupName: &name,
			MinSize:              &desired.MinSize,
			MaxSize:              &desired.MaxSize,
		}
		if desired.DesiredCapacity != nil {
			input.DesiredCapacity = desired.DesiredCapacity
		}
		if _, err := p.autoscalingClient.UpdateAutoScalingGroup(ctx, input); err != nil {
			return nil, fmt.Errorf("failed to update autoscaling group: %w", err)
		}
		return &provider.ApplyResponse{Identifiers: req.Prior}, nil
	}

	input := &autoscaling.CreateAutoScalingGroupInput{
		AutoScalingGroupName: &desired.GroupName,
		MinSize:              &desired.MinSize,
		MaxSize:              &desired.MaxSize,
	}
	if desired.DesiredCapacity != nil {
		input.DesiredCapacity = desired.DesiredCapacity
	}
	if desired.LaunchTemplateID != "" {
		latest := "$Latest"
		input.LaunchTemplate = &astypes.LaunchTemplateSpecification{
			LaunchTemplateId: &desired.LaunchTemplateID,
			Version:          &latest,
		}
	}
	if len(desired.SubnetIDs) > 0 {
		ids := strings.Join(desired.SubnetIDs, ",")
		input.VPCZoneIdentifier = &ids
	}

	if _, err := p.autoscalingClient.CreateAutoScalingGroup(ctx, input); err != nil {
		return nil, fmt.Errorf("failed to create autoscaling group: %w", err)
	}

	return &provider.ApplyResponse{
		Identifiers: map[string]any{
			"name": desired.GroupName,
		},
	}, nil
}

func (p *Provider) destroyAutoscalerGroup(ctx context.Context, req *provider.DestroyRequest) error {
	name, err := stringID(req.Identifiers, "name")
	if err != nil {
		return err
	}
	force := true
	_, err = p.autoscalingClient.DeleteAutoScalingGroup(ctx, &autoscaling.DeleteAutoScalingGroupInput{
		AutoScalingGroupName: &name,
		ForceDelete:          &force,
	})
	if err != nil {
		return fmt.Errorf("failed to delete autoscaling group: %w", err)
	}
	return nil
}

// probeAutoscalerGroup reports ready once the group has at least MinSize
// instances in service.
func (p *Provider) probeAutoscalerGroup(ctx context.Context, identifiers map[string]any) (bool, error) {
	name, err := stringID(identifiers, "name")
	if err != nil {
		return false, err
	}
	resp, err := p.autoscalingClient.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
		AutoScalingGroupNames: []string{name},
	})
	if err != nil {
		return false, fmt.Errorf("failed to describe autoscaling group: %w", err)
	}
	if len(resp.AutoScalingGroups) == 0 {
		return false, nil
	}

	group := resp.AutoScalingGroups[0]
	inService := 0
	for _, inst := range group.Instances {
		if inst.LifecycleState == astypes.LifecycleStateInService {
			inService++
		}
	}
	return group.MinSize != nil && int32(inService) >= *group.MinSize, nil
}
