package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfn "github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	awseks "github.com/aws/aws-sdk-go-v2/service/eks"
	awsiam "github.com/aws/aws-sdk-go-v2/service/iam"
	awsr53 "github.com/aws/aws-sdk-go-v2/service/route53"

	"tasnim.dev/workshop-infra/internal/aws/cloudformation"
	"tasnim.dev/workshop-infra/internal/aws/cognito"
	"tasnim.dev/workshop-infra/internal/aws/eks"
	"tasnim.dev/workshop-infra/internal/aws/iam"
	"tasnim.dev/workshop-infra/internal/aws/route53"
	"tasnim.dev/workshop-infra/internal/aws/vpc"
)

// Clients bundles the service clients the CLI uses against one account and
// region.
type Clients struct {
	Config    aws.Config
	AccountID string
	Region    string

	CloudFormation *cloudformation.Client
	Route53        *route53.Client
	EKS            *eks.Client
	IAM            *iam.Client
	VPC            *vpc.Client
	Cognito        *cognito.Client
}

func NewClients(ctx context.Context, profile, region string) (*Clients, error) {
	cfg, err := LoadConfig(ctx, profile, region)
	if err != nil {
		return nil, err
	}

	return &Clients{
		Config:         cfg,
		AccountID:      GetAccountID(ctx, cfg),
		Region:         cfg.Region,
		CloudFormation: cloudformation.NewClient(awscfn.NewFromConfig(cfg)),
		Route53:        route53.NewClient(awsr53.NewFromConfig(cfg)),
		EKS:            eks.NewClient(awseks.NewFromConfig(cfg)),
		IAM:            iam.NewClient(awsiam.NewFromConfig(cfg)),
		VPC:            vpc.NewClient(ec2.NewFromConfig(cfg)),
		Cognito:        cognito.NewClient(cognitoidentityprovider.NewFromConfig(cfg)),
	}, nil
}

// KubernetesClient connects to the cluster's API server using a token signed
// with the same credentials.
func (c *Clients) KubernetesClient(cluster eks.Cluster) (*eks.K8sClient, error) {
	return eks.NewK8sClient(cluster, eks.NewTokenProvider(c.Config, cluster.Name))
}
