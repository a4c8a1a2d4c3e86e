package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/strata-io/strata/pkg/provider"
)

type NetworkConfig struct {
	CidrBlock string            `json:"cidr_block"`
	Tags      map[string]string `json:"tags"`
}

type SubnetConfig struct {
	NetworkID        string            `json:"network_id"`
	CidrBlock        string            `json:"cidr_block"`
	AvailabilityZone string            `json:"availability_zone"`
	Tags             map[string]string `json:"tags"`
}

func (p *Provider) applyNetwork(ctx context.Context, req *provider.ApplyRequest) (*provider.ApplyResponse, error) {
	var desired NetworkConfig
	if err := decode(req.Desired, &desired); err != nil {
		return nil, err
	}

	if req.Prior != nil {
		// VPC attributes are immutable here; the only update is re-tagging.
		id, err := stringID(req.Prior, "id")
		if err != nil {
			return nil, err
		}
		if err := p.tagResource(ctx, id, desired.Tags); err != nil {
			return nil, err
		}
		return &provider.ApplyResponse{Identifiers: req.Prior}, nil
	}

	resp, err := p.ec2Client.CreateVpc(ctx, &ec2.CreateVpcInput{
		CidrBlock: &desired.CidrBlock,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create VPC: %w", err)
	}

	if err := p.tagResource(ctx, *resp.Vpc.VpcId, desired.Tags); err != nil {
		return nil, err
	}

	return &provider.ApplyResponse{
		Identifiers: map[string]any{
			"id":         *resp.Vpc.VpcId,
			"cidr_block": *resp.Vpc.CidrBlock,
		},
	}, nil
}

func (p *Provider) destroyNetwork(ctx context.Context, req *provider.DestroyRequest) error {
	id, err := stringID(req.Identifiers, "id")
	if err != nil {
		return err
	}
	if _, err := p.ec2Client.DeleteVpc(ctx, &ec2.DeleteVpcInput{VpcId: &id}); err != nil {
		return fmt.Errorf("failed to delete VPC: %w", err)
	}
	return nil
}

func (p *Provider) probeNetwork(ctx context.Context, identifiers map[string]any) (bool, error) {
	id, err := stringID(identifiers, "id")
	if err != nil {
		return false, err
	}
	resp, err := p.ec2Client.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
		VpcIds: []string{id},
	})
	if err != nil {
		return false, fmt.Errorf("failed to describe VPC: %w", err)
	}
	if len(resp.Vpcs) == 0 {
		return false, nil
	}
	return resp.Vpcs[0].State == types.VpcStateAvailable, nil
}

func (p *Provider) applySubnet(ctx context.Context, req *provider.ApplyRequest) (*provider.ApplyResponse, error) {
	var desired SubnetConfig
	if err := decode(req.Desired, &desired); err != nil {
		return nil, err
	}

	if req.Prior != nil {
		id, err := stringID(req.Prior, "id")
		if err != nil {
			return nil, err
		}
		if err := p.tagResource(ctx, id, desired.Tags); err != nil {
			return nil, err
		}
		return &provider.ApplyResponse{Identifiers: req.Prior}, nil
	}

	input := &ec2.CreateSubnetInput{
		VpcId:     &desired.NetworkID,
		CidrBlock: &desired.CidrBlock,
	}
	if desired.AvailabilityZone != "" {
		input.AvailabilityZone = &desired.AvailabilityZone
	}

	resp, err := p.ec2Client.CreateSubnet(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create subnet: %w", err)
	}

	if err := p.tagResource(ctx, *resp.Subnet.SubnetId, desired.Tags); err != nil {
		return nil, err
	}

	return &provider.ApplyResponse{
		Identifiers: map[string]any{
			"id":         *resp.Subnet.SubnetId,
			"network_id": *resp.Subnet.VpcId,
		},
	}, nil
}

func (p *Provider) destroySubnet(ctx context.Context, req *provider.DestroyRequest) error {
	id, err := stringID(req.Identifiers, "id")
	if err != nil {
		return err
	}
	if _, err := p.ec2Client.DeleteSubnet(ctx, &ec2.DeleteSubnetInput{SubnetId: &id}); err != nil {
		return fmt.Errorf("failed to delete subnet: %w", err)
	}
	return nil
}

func (p *Provider) tagResource(ctx context.Context, id string, tags map[string]string) error {
	if len(tags) == 0 {
		return nil
	}
	var ec2Tags []types.Tag
	for k, v := range tags {
		k, v := k, v
		ec2Tags = append(ec2Tags, types.Tag{Key: &k, Value: &v})
	}
	if _, err := p.ec2Client.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: []string{id},
		Tags:      ec2Tags,
	}); err != nil {
		return fmt.Errorf("failed to tag %s: %w", id, err)
	}
	return nil
}
