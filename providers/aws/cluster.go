package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/eks/types"

	"github.com/strata-io/strata/pkg/provider"
)

type ClusterConfig struct {
	ClusterName      string            `json:"cluster_name"`
	RoleArn          string            `json:"role_arn"`
	Version          string            `json:"version"`
	SubnetIDs        []string          `json:"subnet_ids"`
	SecurityGroupIDs []string          `json:"security_group_ids"`
	Tags             map[string]string `json:"tags"`
}

type NodeGroupConfig struct {
	NodeGroupName string            `json:"node_group_name"`
	ClusterName   string            `json:"cluster_name"`
	NodeRoleArn   string            `json:"node_role_arn"`
	SubnetIDs     []string          `json:"subnet_ids"`
	InstanceTypes []string          `json:"instance_types"`
	DesiredSize   int32             `json:"desired_size"`
	MinSize       int32             `json:"min_size"`
	MaxSize       int32             `json:"max_size"`
	Labels        map[string]string `json:"labels"`
	Tags          map[string]string `json:"tags"`
}

func (p *Provider) applyCluster(ctx context.Context, req *provider.ApplyRequest) (*provider.ApplyResponse, error) {
	var desired ClusterConfig
	if err := decode(req.Desired, &desired); err != nil {
		return nil, err
	}
	if desired.ClusterName == "" {
		desired.ClusterName = req.Name
	}

	if req.Prior != nil {
		name, err := stringID(req.Prior, "name")
		if err != nil {
			return nil, err
		}
		if desired.Version != "" {
			_, err := p.eksClient.UpdateClusterVersion(ctx, &eks.UpdateClusterVersionInput{
				Name:    &name,
				Version: &desired.Version,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to update EKS cluster version: %w", err)
			}
		}
		return &provider.ApplyResponse{Identifiers: req.Prior}, nil
	}

	input := &eks.CreateClusterInput{
		Name:    &desired.ClusterName,
		RoleArn: &desired.RoleArn,
		ResourcesVpcConfig: &types.VpcConfigRequest{
			SubnetIds:        desired.SubnetIDs,
			SecurityGroupIds: desired.SecurityGroupIDs,
		},
		Tags: desired.Tags,
	}
	if desired.Version != "" {
		input.Version = &desired.Version
	}

	resp, err := p.eksClient.CreateCluster(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create EKS cluster: %w", err)
	}

	identifiers := map[string]any{
		"name": *resp.Cluster.Name,
		"arn":  *resp.Cluster.Arn,
	}
	if resp.Cluster.Endpoint != nil {
		identifiers["endpoint"] = *resp.Cluster.Endpoint
	}

	return &provider.ApplyResponse{Identifiers: identifiers}, nil
}

func (p *Provider) destroyCluster(ctx context.Context, req *provider.DestroyRequest) error {
	name, err := stringID(req.Identifiers, "name")
	if err != nil {
		return err
	}
	if _, err := p.eksClient.DeleteCluster(ctx, &eks.DeleteClusterInput{Name: &name}); err != nil {
		return fmt.Errorf("failed to delete EKS cluster: %w", err)
	}
	return nil
}

func (p *Provider) probeCluster(ctx context.Context, identifiers map[string]any) (bool, error) {
	name, err := stringID(identifiers, "name")
	if err != nil {
		return false, err
	}
	resp, err := p.eksClient.DescribeCluster(ctx, &eks.DescribeClusterInput{Name: &name})
	if err != nil {
		return false, fmt.Errorf("failed to describe EKS cluster: %w", err)
	}
	switch resp.Cluster.Status {
	case types.ClusterStatusActive:
		return true, nil
	case types.ClusterStatusFailed:
		return false, fmt.Errorf("EKS cluster %s entered FAILED status", name)
	default:
		return false, nil
	}
}

func (p *Provider) applyNodeGroup(ctx context.Context, req *provider.ApplyRequest) (*provider.ApplyResponse, error) {
	var desired NodeGroupConfig
	if err := decode(req.Desired, &desired); err != nil {
		return nil, err
	}
	if desired.NodeGroupName == "" {
		desired.NodeGroupName = req.Name
	}

	if req.Prior != nil {
		clusterName, err := stringID(req.Prior, "cluster_name")
		if err != nil {
			return nil, err
		}
		name, err := stringID(req.Prior, "name")
		if err != nil {
			return nil, err
		}
		_, err = p.eksClient.UpdateNodegroupConfig(ctx, &eks.UpdateNodegroupConfigInput{
			ClusterName:   &clusterName,
			NodegroupName: &name,
			ScalingConfig: &types.NodegroupScalingConfig{
				DesiredSize: &desired.DesiredSize,
				MinSize:     &desired.MinSize,
				MaxSize:     &desired.MaxSize,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to update node group: %w", err)
		}
		return &provider.ApplyResponse{Identifiers: req.Prior}, nil
	}

	input := &eks.CreateNodegroupInput{
		ClusterName:   &desired.ClusterName,
		NodegroupName: &desired.NodeGroupName,
		NodeRole:      &desired.NodeRoleArn,
		Subnets:       desired.SubnetIDs,
		InstanceTypes: desired.InstanceTypes,
		ScalingConfig: &types.NodegroupScalingConfig{
			DesiredSize: &desired.DesiredSize,
			MinSize:     &desired.MinSize,
			MaxSize:     &desired.MaxSize,
		},
		Labels: desired.Labels,
		Tags:   desired.Tags,
	}

	resp, err := p.eksClient.CreateNodegroup(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create node group: %w", err)
	}

	return &provider.ApplyResponse{
		Identifiers: map[string]any{
			"name":         *resp.Nodegroup.NodegroupName,
			"cluster_name": *resp.Nodegroup.ClusterName,
			"arn":          *resp.Nodegroup.NodegroupArn,
		},
	}, nil
}

func (p *Provider) destroyNodeGroup(ctx context.Context, req *provider.DestroyRequest) error {
	clusterName, err := stringID(req.Identifiers, "cluster_name")
	if err != nil {
		return err
	}
	name, err := stringID(req.Identifiers, "name")
	if err != nil {
		return err
	}
	_, err = p.eksClient.DeleteNodegroup(ctx, &eks.DeleteNodegroupInput{
		ClusterName:   &clusterName,
		NodegroupName: &name,
	})
	if err != nil {
		return fmt.Errorf("failed to delete node group: %w", err)
	}
	return nil
}

func (p *Provider) probeNodeGroup(ctx context.Context, identifiers map[string]any) (bool, error) {
	clusterName, err := stringID(identifiers, "cluster_name")
	if err != nil {
		return false, err
	}
	name, err := stringID(identifiers, "name")
	if err != nil {
		return false, err
	}
	resp, err := p.eksClient.DescribeNodegroup(ctx, &eks.DescribeNodegroupInput{
		ClusterName:   &clusterName,
		NodegroupName: &name,
	})
	if err != nil {
		return false, fmt.Errorf("failed to describe node group: %w", err)
	}
	switch resp.Nodegroup.Status {
	case types.NodegroupStatusActive:
		return true, nil
	case types.NodegroupStatusCreateFailed, types.NodegroupStatusDegraded:
		return false, fmt.Errorf("node group %s entered %s status", name, resp.Nodegroup.Status)
	default:
		return false, nil
	}
}
