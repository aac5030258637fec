package vpc

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

type VPCAPI interface {
	DescribeSubnets(ctx context.Context, params *awsec2.DescribeSubnetsInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeSubnetsOutput, error)
	DescribeNatGateways(ctx context.Context, params *awsec2.DescribeNatGatewaysInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeNatGatewaysOutput, error)
}

type Client struct {
	api VPCAPI
}

func NewClient(api VPCAPI) *Client {
	return &Client{api: api}
}

func nameFromTags(tags []types.Tag) string {
	for _, tag := range tags {
		if aws.ToString(tag.Key) == "Name" {
			return aws.ToString(tag.Value)
		}
	}
	return ""
}

func vpcFilter(vpcID string) []types.Filter {
	return []types.Filter{
		{Name: aws.String("vpc-id"), Values: []string{vpcID}},
	}
}

func (c *Client) ListSubnets(ctx context.Context, vpcID string) ([]SubnetInfo, error) {
	var subnets []SubnetInfo
	var nextToken *string

	for {
		out, err := c.api.DescribeSubnets(ctx, &awsec2.DescribeSubnetsInput{
			Filters:   vpcFilter(vpcID),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeSubnets(%s): %w", vpcID, err)
		}

		for _, s := range out.Subnets {
			subnets = append(subnets, SubnetInfo{
				SubnetID:     aws.ToString(s.SubnetId),
				Name:         nameFromTags(s.Tags),
				CIDR:         aws.ToString(s.CidrBlock),
				AZ:           aws.ToString(s.AvailabilityZone),
				Public:       aws.ToBool(s.MapPublicIpOnLaunch),
				AvailableIPs: int(aws.ToInt32(s.AvailableIpAddressCount)),
			})
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return subnets, nil
}

// ListNATGateways returns the VPC's NAT gateways that are not deleted or
// being deleted.
func (c *Client) ListNATGateways(ctx context.Context, vpcID string) ([]NATGatewayInfo, error) {
	var nats []NATGatewayInfo
	var nextToken *string

	for {
		out, err := c.api.DescribeNatGateways(ctx, &awsec2.DescribeNatGatewaysInput{
			Filter:    vpcFilter(vpcID),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeNatGateways(%s): %w", vpcID, err)
		}

		for _, n := range out.NatGateways {
			if n.State == types.NatGatewayStateDeleted || n.State == types.NatGatewayStateDeleting {
				continue
			}
			var eip string
			for _, addr := range n.NatGatewayAddresses {
				if addr.PublicIp != nil {
					eip = aws.ToString(addr.PublicIp)
					break
				}
			}
			nats = append(nats, NATGatewayInfo{
				GatewayID: aws.ToString(n.NatGatewayId),
				Name:      nameFromTags(n.Tags),
				State:     string(n.State),
				SubnetID:  aws.ToString(n.SubnetId),
				ElasticIP: eip,
			})
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return nats, nil
}

// AvailabilityZones returns the distinct zones of subnets in first-seen order.
func AvailabilityZones(subnets []SubnetInfo) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range subnets {
		if s.AZ != "" && !seen[s.AZ] {
			seen[s.AZ] = true
			out = append(out, s.AZ)
		}
	}
	return out
}
