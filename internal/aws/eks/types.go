package eks

import "time"

type Cluster struct {
	Name            string
	ARN             string
	Status          string
	Version         string
	Endpoint        string
	EndpointPublic  bool
	EndpointPrivate bool
	VPCID           string
	SubnetIDs       []string
	RoleARN         string
	CertAuthority   string // base64-encoded CA for K8s API
	CreatedAt       time.Time
}

type NodeGroup struct {
	Name          string
	ARN           string
	Status        string
	CapacityType  string
	InstanceTypes []string
	DiskSize      int
	MinSize       int
	MaxSize       int
	DesiredSize   int
	NodeRoleARN   string
	Subnets       []string
}

// NodeReadiness counts the cluster's registered nodes.
type NodeReadiness struct {
	Total int
	Ready int
}
