package eks

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awseks "github.com/aws/aws-sdk-go-v2/service/eks"
)

type EKSAPI interface {
	DescribeCluster(ctx context.Context, params *awseks.DescribeClusterInput, optFns ...func(*awseks.Options)) (*awseks.DescribeClusterOutput, error)
	ListNodegroups(ctx context.Context, params *awseks.ListNodegroupsInput, optFns ...func(*awseks.Options)) (*awseks.ListNodegroupsOutput, error)
	DescribeNodegroup(ctx context.Context, params *awseks.DescribeNodegroupInput, optFns ...func(*awseks.Options)) (*awseks.DescribeNodegroupOutput, error)
}

type Client struct {
	api EKSAPI
}

func NewClient(api EKSAPI) *Client {
	return &Client{api: api}
}

func (c *Client) DescribeCluster(ctx context.Context, name string) (Cluster, error) {
	out, err := c.api.DescribeCluster(ctx, &awseks.DescribeClusterInput{
		Name: aws.String(name),
	})
	if err != nil {
		return Cluster{}, fmt.Errorf("DescribeCluster(%s): %w", name, err)
	}

	cl := out.Cluster
	if cl == nil {
		return Cluster{}, fmt.Errorf("DescribeCluster(%s): empty response", name)
	}

	var createdAt time.Time
	if cl.CreatedAt != nil {
		createdAt = *cl.CreatedAt
	}

	var certAuthority string
	if cl.CertificateAuthority != nil {
		certAuthority = aws.ToString(cl.CertificateAuthority.Data)
	}

	var vpcID string
	var subnets []string
	var endpointPublic, endpointPrivate bool
	if cl.ResourcesVpcConfig != nil {
		vpcID = aws.ToString(cl.ResourcesVpcConfig.VpcId)
		subnets = cl.ResourcesVpcConfig.SubnetIds
		endpointPublic = cl.ResourcesVpcConfig.EndpointPublicAccess
		endpointPrivate = cl.ResourcesVpcConfig.EndpointPrivateAccess
	}

	return Cluster{
		Name:            aws.ToString(cl.Name),
		ARN:             aws.ToString(cl.Arn),
		Status:          string(cl.Status),
		Version:         aws.ToString(cl.Version),
		Endpoint:        aws.ToString(cl.Endpoint),
		EndpointPublic:  endpointPublic,
		EndpointPrivate: endpointPrivate,
		VPCID:           vpcID,
		SubnetIDs:       subnets,
		RoleARN:         aws.ToString(cl.RoleArn),
		CertAuthority:   certAuthority,
		CreatedAt:       createdAt,
	}, nil
}

func (c *Client) ListNodeGroups(ctx context.Context, clusterName string) ([]NodeGroup, error) {
	var names []string
	var nextToken *string

	for {
		out, err := c.api.ListNodegroups(ctx, &awseks.ListNodegroupsInput{
			ClusterName: aws.String(clusterName),
			NextToken:   nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("ListNodegroups(%s): %w", clusterName, err)
		}

		names = append(names, out.Nodegroups...)

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	var nodeGroups []NodeGroup
	for _, name := range names {
		out, err := c.api.DescribeNodegroup(ctx, &awseks.DescribeNodegroupInput{
			ClusterName:   aws.String(clusterName),
			NodegroupName: aws.String(name),
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeNodegroup(%s/%s): %w", clusterName, name, err)
		}

		ng := out.Nodegroup
		if ng == nil {
			continue
		}

		var minSize, maxSize, desiredSize int
		if ng.ScalingConfig != nil {
			if ng.ScalingConfig.MinSize != nil {
				minSize = int(*ng.ScalingConfig.MinSize)
			}
			if ng.ScalingConfig.MaxSize != nil {
				maxSize = int(*ng.ScalingConfig.MaxSize)
			}
			if ng.ScalingConfig.DesiredSize != nil {
				desiredSize = int(*ng.ScalingConfig.DesiredSize)
			}
		}

		var diskSize int
		if ng.DiskSize != nil {
			diskSize = int(*ng.DiskSize)
		}

		nodeGroups = append(nodeGroups, NodeGroup{
			Name:          aws.ToString(ng.NodegroupName),
			ARN:           aws.ToString(ng.NodegroupArn),
			Status:        string(ng.Status),
			CapacityType:  string(ng.CapacityType),
			InstanceTypes: ng.InstanceTypes,
			DiskSize:      diskSize,
			MinSize:       minSize,
			MaxSize:       maxSize,
			DesiredSize:   desiredSize,
			NodeRoleARN:   aws.ToString(ng.NodeRole),
			Subnets:       ng.Subnets,
		})
	}

	return nodeGroups, nil
}
