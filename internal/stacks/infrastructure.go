package stacks

import (
	"context"
	"fmt"

	"tasnim.dev/workshop-infra/internal/cfn"
	"tasnim.dev/workshop-infra/internal/config"
)

// Stack names.
const (
	InfrastructureStackName = "CoderInfrastructureStack"
	OperatorStackName       = "CoderDeploymentStack"
)

// Logical IDs of the infrastructure stack's main resources.
const (
	LogicalVPC           = "CoderVPC"
	LogicalClusterRole   = "ClusterRole"
	LogicalCluster       = "CoderCluster"
	LogicalNodeGroup     = "CoderNodeGroup"
	LogicalWorkspaceRole = "EC2WorkspaceRole"
	LogicalUserPool      = "CoderUserPool"
	LogicalAppClient     = "CoderClient"
	LogicalCertificate   = "CoderCertificate"
)

// Output names of the infrastructure stack.
const (
	OutputClusterName      = "ClusterName"
	OutputUserPoolID       = "UserPoolId"
	OutputAppClientID      = "AppClientId"
	OutputWorkspaceRoleArn = "EC2WorkspaceRoleArn"
)

// Infrastructure is the built network and identity stack.
type Infrastructure struct {
	Stack   *Stack
	Network Network
	Cluster ClusterRef

	// Certificate is the logical ID of the certificate, empty when disabled.
	Certificate string
}

// BuildInfrastructure declares the network, cluster, node group, IAM roles,
// identity pool, app client and the optional certificate. zones is consulted
// only when cfg.CreateCertificate is set.
func BuildInfrastructure(ctx context.Context, app *App, cfg *config.Config, zones ZoneLookup) (*Infrastructure, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s, err := app.NewStack(InfrastructureStackName, "Network, EKS cluster and identity provider for the Coder workshop")
	if err != nil {
		return nil, err
	}
	t := s.Template

	nw, err := declareNetwork(t, LogicalVPC, cfg.Network, cfg.ClusterName)
	if err != nil {
		return nil, fmt.Errorf("declaring network: %w", err)
	}

	c := declareCluster(t, cfg, nw)

	declareRole(t, LogicalWorkspaceRole, podIdentityServicePrincipal, cfg.WorkspacePolicies)

	pool, client := declareIdentity(t, cfg)

	infra := &Infrastructure{
		Stack:   s,
		Network: nw,
		Cluster: ClusterRef{stack: s, logicalID: c.ID},
	}

	if cfg.CreateCertificate {
		cert, err := declareCertificate(ctx, t, cfg.DomainName, zones)
		if err != nil {
			return nil, err
		}
		infra.Certificate = cert
	}

	t.AddOutput(OutputClusterName, cfn.Output{Value: cfn.Ref(c.ID)})
	t.AddOutput(OutputUserPoolID, cfn.Output{Value: cfn.Ref(pool)})
	t.AddOutput(OutputAppClientID, cfn.Output{Value: cfn.Ref(client)})
	t.AddOutput(OutputWorkspaceRoleArn, cfn.Output{Value: cfn.GetAtt{LogicalID: LogicalWorkspaceRole, Attribute: "Arn"}})

	return infra, nil
}
