package stacks

import "tasnim.dev/workshop-infra/internal/cfn"

const (
	eksServicePrincipal         = "eks.amazonaws.com"
	podIdentityServicePrincipal = "eks-pod-identity.amazonaws.com"
	ec2ServicePrincipal         = "ec2.amazonaws.com"
)

var clusterRolePolicies = []string{"AmazonEKSClusterPolicy"}

var nodeRolePolicies = []string{
	"AmazonEKSWorkerNodePolicy",
	"AmazonEKS_CNI_Policy",
	"AmazonEC2ContainerRegistryReadOnly",
}

// ManagedPolicyArn resolves an AWS managed policy name in the stack's partition.
func ManagedPolicyArn(name string) cfn.Sub {
	return cfn.Sub("arn:${AWS::Partition}:iam::aws:policy/" + name)
}

func assumeRolePolicy(servicePrincipal string) map[string]any {
	return map[string]any{
		"Version": "2012-10-17",
		"Statement": []any{
			map[string]any{
				"Effect":    "Allow",
				"Principal": map[string]any{"Service": servicePrincipal},
				"Action":    "sts:AssumeRole",
			},
		},
	}
}

// declareRole adds an IAM role trusted by servicePrincipal with the given AWS
// managed policies attached.
func declareRole(t *cfn.Template, id, servicePrincipal string, managedPolicies []string) string {
	arns := make([]any, 0, len(managedPolicies))
	for _, p := range managedPolicies {
		arns = append(arns, ManagedPolicyArn(p))
	}
	t.Add(id, "AWS::IAM::Role", map[string]any{
		"AssumeRolePolicyDocument": assumeRolePolicy(servicePrincipal),
		"ManagedPolicyArns":        arns,
	})
	return id
}
