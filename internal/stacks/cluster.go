package stacks

import (
	"tasnim.dev/workshop-infra/internal/cfn"
	"tasnim.dev/workshop-infra/internal/config"
)

// ClusterRef is a handle on a declared cluster that other stacks take to order
// themselves after it. It exposes nothing about the cluster's declaration.
type ClusterRef struct {
	stack     *Stack
	logicalID string
}

// Valid reports whether the reference points at a declared cluster.
func (r ClusterRef) Valid() bool {
	return r.stack != nil && r.logicalID != ""
}

type cluster struct {
	ID        string
	RoleID    string
	NodeGroup string
	NodeRole  string
}

// declareCluster adds the control-plane role, the EKS cluster with no default
// capacity, and a single managed node group in the private subnets.
func declareCluster(t *cfn.Template, cfg *config.Config, nw Network) cluster {
	c := cluster{
		ID:        LogicalCluster,
		RoleID:    LogicalClusterRole,
		NodeGroup: LogicalNodeGroup,
		NodeRole:  LogicalNodeGroup + "NodeGroupRole",
	}

	declareRole(t, c.RoleID, eksServicePrincipal, clusterRolePolicies)

	subnetRefs := make([]any, 0, len(nw.Subnets()))
	for _, s := range nw.Subnets() {
		subnetRefs = append(subnetRefs, cfn.Ref(s))
	}

	t.Add(c.ID, "AWS::EKS::Cluster", map[string]any{
		"Name":    cfg.ClusterName,
		"Version": cfg.KubernetesVersion,
		"RoleArn": cfn.GetAtt{LogicalID: c.RoleID, Attribute: "Arn"},
		"ResourcesVpcConfig": map[string]any{
			"SubnetIds":             subnetRefs,
			"EndpointPublicAccess":  true,
			"EndpointPrivateAccess": true,
		},
	})

	declareRole(t, c.NodeRole, ec2ServicePrincipal, nodeRolePolicies)

	privateRefs := make([]any, 0, len(nw.PrivateSubnets))
	for _, s := range nw.PrivateSubnets {
		privateRefs = append(privateRefs, cfn.Ref(s))
	}

	t.Add(c.NodeGroup, "AWS::EKS::Nodegroup", map[string]any{
		"ClusterName":   cfn.Ref(c.ID),
		"NodeRole":      cfn.GetAtt{LogicalID: c.NodeRole, Attribute: "Arn"},
		"Subnets":       privateRefs,
		"InstanceTypes": []any{cfg.Nodes.InstanceType},
		"DiskSize":      cfg.Nodes.DiskSize,
		"ScalingConfig": map[string]any{
			"MinSize":     cfg.Nodes.MinSize,
			"MaxSize":     cfg.Nodes.MaxSize,
			"DesiredSize": cfg.Nodes.MinSize,
		},
		"CapacityType": "ON_DEMAND",
	})

	return c
}
