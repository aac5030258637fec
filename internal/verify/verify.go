// Package verify compares deployed resources against the configuration the
// stacks were built from.
package verify

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"tasnim.dev/workshop-infra/internal/aws/cloudformation"
	"tasnim.dev/workshop-infra/internal/aws/cognito"
	"tasnim.dev/workshop-infra/internal/aws/eks"
	"tasnim.dev/workshop-infra/internal/aws/iam"
	"tasnim.dev/workshop-infra/internal/aws/vpc"
	"tasnim.dev/workshop-infra/internal/config"
	"tasnim.dev/workshop-infra/internal/stacks"
	"tasnim.dev/workshop-infra/internal/utils"
)

type Status string

const (
	Pass Status = "pass"
	Fail Status = "fail"
	Skip Status = "skip"
)

type Check struct {
	Name   string
	Status Status
	Detail string
}

type Report struct {
	Stack  string
	Checks []Check
}

// Failed reports whether any check failed.
func (r Report) Failed() bool {
	for _, c := range r.Checks {
		if c.Status == Fail {
			return true
		}
	}
	return false
}

func (r *Report) add(name string, status Status, format string, args ...any) {
	r.Checks = append(r.Checks, Check{Name: name, Status: status, Detail: fmt.Sprintf(format, args...)})
}

func (r *Report) check(name string, problems []string, ok string) {
	if len(problems) > 0 {
		r.add(name, Fail, "%s", strings.Join(problems, "; "))
		return
	}
	r.add(name, Pass, "%s", ok)
}

type StackReader interface {
	Outputs(ctx context.Context, name string) ([]cloudformation.Output, error)
	Resources(ctx context.Context, name string) (map[string]string, error)
}

type ClusterReader interface {
	DescribeCluster(ctx context.Context, name string) (eks.Cluster, error)
	ListNodeGroups(ctx context.Context, clusterName string) ([]eks.NodeGroup, error)
}

type RoleReader interface {
	GetRole(ctx context.Context, roleName string) (iam.Role, error)
	ListAttachedRolePolicies(ctx context.Context, roleName string) ([]iam.AttachedPolicy, error)
}

type NetworkReader interface {
	ListSubnets(ctx context.Context, vpcID string) ([]vpc.SubnetInfo, error)
	ListNATGateways(ctx context.Context, vpcID string) ([]vpc.NATGatewayInfo, error)
}

type IdentityReader interface {
	DescribeUserPool(ctx context.Context, poolID string) (cognito.UserPool, error)
	DescribeAppClient(ctx context.Context, poolID, clientID string) (cognito.AppClient, error)
}

type NodeCounter interface {
	NodeReadiness(ctx context.Context, nodeGroup string) (eks.NodeReadiness, error)
}

// Verifier runs the checks. Nodes is optional; when nil the node readiness
// check is skipped.
type Verifier struct {
	Config   *config.Config
	Stacks   StackReader
	Clusters ClusterReader
	Roles    RoleReader
	Network  NetworkReader
	Identity IdentityReader
	Nodes    func(eks.Cluster) (NodeCounter, error)
}

// Run checks the infrastructure stack. Only a failure to read the stack
// itself is returned as an error; everything else becomes a failed check.
func (v *Verifier) Run(ctx context.Context) (Report, error) {
	cfg := v.Config
	report := Report{Stack: stacks.InfrastructureStackName}

	outputs, err := v.Stacks.Outputs(ctx, stacks.InfrastructureStackName)
	if err != nil {
		return report, err
	}
	out := make(map[string]string, len(outputs))
	for _, o := range outputs {
		out[o.Key] = o.Value
	}
	v.checkOutputs(&report, out)

	resources, err := v.Stacks.Resources(ctx, stacks.InfrastructureStackName)
	if err != nil {
		return report, err
	}

	clusterName := out[stacks.OutputClusterName]
	if clusterName == "" {
		clusterName = cfg.ClusterName
	}
	cluster, clusterErr := v.Clusters.DescribeCluster(ctx, clusterName)
	v.checkCluster(&report, cluster, clusterErr)
	groups := v.checkNodeGroups(ctx, &report, clusterName)

	v.checkNetwork(ctx, &report, resources[stacks.LogicalVPC])
	v.checkWorkspaceRole(ctx, &report, out[stacks.OutputWorkspaceRoleArn])
	v.checkIdentity(ctx, &report, out[stacks.OutputUserPoolID], out[stacks.OutputAppClientID])
	v.checkCertificate(&report, resources)

	switch {
	case v.Nodes == nil:
	case clusterErr != nil || cluster.Status != "ACTIVE":
		report.add("nodes", Skip, "cluster is not active")
	default:
		v.checkNodes(ctx, &report, cluster, groups)
	}

	return report, nil
}

func (v *Verifier) checkOutputs(r *Report, out map[string]string) {
	var missing []string
	for _, k := range []string{stacks.OutputClusterName, stacks.OutputUserPoolID, stacks.OutputAppClientID, stacks.OutputWorkspaceRoleArn} {
		if out[k] == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		r.add("outputs", Fail, "missing %s", strings.Join(missing, ", "))
		return
	}
	r.add("outputs", Pass, "%d outputs", len(out))
}

func (v *Verifier) checkCluster(r *Report, cl eks.Cluster, err error) {
	if err != nil {
		r.add("cluster", Fail, "%v", err)
		return
	}
	var problems []string
	if cl.Status != "ACTIVE" {
		problems = append(problems, "status "+cl.Status)
	}
	if cl.Version != v.Config.KubernetesVersion {
		problems = append(problems, fmt.Sprintf("version %s, want %s", cl.Version, v.Config.KubernetesVersion))
	}
	r.check("cluster", problems, fmt.Sprintf("%s %s on Kubernetes %s", cl.Name, cl.Status, cl.Version))
}

func (v *Verifier) checkNodeGroups(ctx context.Context, r *Report, clusterName string) []eks.NodeGroup {
	groups, err := v.Clusters.ListNodeGroups(ctx, clusterName)
	if err != nil {
		r.add("node group", Fail, "%v", err)
		return nil
	}
	if len(groups) != 1 {
		r.add("node group", Fail, "%d node groups, want 1", len(groups))
		return groups
	}

	ng := groups[0]
	nodes := v.Config.Nodes
	var problems []string
	if ng.Status != "ACTIVE" {
		problems = append(problems, "status "+ng.Status)
	}
	if ng.MinSize != nodes.MinSize || ng.MaxSize != nodes.MaxSize {
		problems = append(problems, fmt.Sprintf("scaling %d-%d, want %d-%d", ng.MinSize, ng.MaxSize, nodes.MinSize, nodes.MaxSize))
	}
	if !slices.Contains(ng.InstanceTypes, nodes.InstanceType) {
		problems = append(problems, fmt.Sprintf("instance types %v, want %s", ng.InstanceTypes, nodes.InstanceType))
	}
	r.check("node group", problems, fmt.Sprintf("%s %d-%d x %s", ng.Name, ng.MinSize, ng.MaxSize, strings.Join(ng.InstanceTypes, ",")))
	return groups
}

func (v *Verifier) checkNetwork(ctx context.Context, r *Report, vpcID string) {
	if vpcID == "" {
		r.add("network", Fail, "stack has no %s resource", stacks.LogicalVPC)
		return
	}
	subnets, err := v.Network.ListSubnets(ctx, vpcID)
	if err != nil {
		r.add("network", Fail, "%v", err)
		return
	}
	nats, err := v.Network.ListNATGateways(ctx, vpcID)
	if err != nil {
		r.add("network", Fail, "%v", err)
		return
	}

	nw := v.Config.Network
	public := 0
	for _, s := range subnets {
		if s.Public {
			public++
		}
	}
	azs := vpc.AvailabilityZones(subnets)

	var problems []string
	if len(subnets) != 2*nw.MaxAZs {
		problems = append(problems, fmt.Sprintf("%d subnets, want %d", len(subnets), 2*nw.MaxAZs))
	}
	if public != nw.MaxAZs {
		problems = append(problems, fmt.Sprintf("%d public subnets, want %d", public, nw.MaxAZs))
	}
	if len(azs) != nw.MaxAZs {
		problems = append(problems, fmt.Sprintf("%d availability zones, want %d", len(azs), nw.MaxAZs))
	}
	if len(nats) != nw.NATGateways {
		problems = append(problems, fmt.Sprintf("%d NAT gateways, want %d", len(nats), nw.NATGateways))
	}
	r.check("network", problems, fmt.Sprintf("%s: %d subnets in %s, %d NAT", vpcID, len(subnets), strings.Join(azs, ","), len(nats)))
}

func (v *Verifier) checkWorkspaceRole(ctx context.Context, r *Report, roleARN string) {
	if roleARN == "" {
		r.add("workspace role", Fail, "no role ARN output")
		return
	}
	name := utils.ShortName(roleARN)

	role, err := v.Roles.GetRole(ctx, name)
	if err != nil {
		r.add("workspace role", Fail, "%v", err)
		return
	}
	attached, err := v.Roles.ListAttachedRolePolicies(ctx, name)
	if err != nil {
		r.add("workspace role", Fail, "%v", err)
		return
	}

	got := make([]string, 0, len(attached))
	for _, p := range attached {
		got = append(got, p.Name)
	}
	want := append([]string(nil), v.Config.WorkspacePolicies...)
	sort.Strings(got)
	sort.Strings(want)

	var problems []string
	if !slices.Equal(got, want) {
		problems = append(problems, fmt.Sprintf("policies %v, want %v", got, want))
	}
	if !slices.Contains(role.TrustedServices, "eks-pod-identity.amazonaws.com") {
		problems = append(problems, fmt.Sprintf("trusted by %v", role.TrustedServices))
	}
	r.check("workspace role", problems, fmt.Sprintf("%s with %s", role.Name, strings.Join(got, ", ")))
}

func (v *Verifier) checkIdentity(ctx context.Context, r *Report, poolID, clientID string) {
	if poolID == "" || clientID == "" {
		r.add("user pool", Fail, "no user pool outputs")
		return
	}

	pool, err := v.Identity.DescribeUserPool(ctx, poolID)
	if err != nil {
		r.add("user pool", Fail, "%v", err)
	} else {
		pp := pool.PasswordPolicy
		var problems []string
		if !pool.SelfSignUp {
			problems = append(problems, "self sign-up disabled")
		}
		if !slices.Contains(pool.AutoVerifiedAttributes, "email") {
			problems = append(problems, "email not auto-verified")
		}
		if pp.MinimumLength < v.Config.Identity.MinPasswordLength {
			problems = append(problems, fmt.Sprintf("password length %d, want at least %d", pp.MinimumLength, v.Config.Identity.MinPasswordLength))
		}
		if !pp.RequireLowercase || !pp.RequireUppercase || !pp.RequireNumbers || !pp.RequireSymbols {
			problems = append(problems, "password policy does not require all character classes")
		}
		r.check("user pool", problems, fmt.Sprintf("%s, passwords >= %d", pool.Name, pp.MinimumLength))
	}

	client, err := v.Identity.DescribeAppClient(ctx, poolID, clientID)
	if err != nil {
		r.add("app client", Fail, "%v", err)
		return
	}
	var problems []string
	if !slices.Equal(client.CallbackURLs, []string{v.Config.CallbackURL()}) {
		problems = append(problems, fmt.Sprintf("callback URLs %v", client.CallbackURLs))
	}
	if !slices.Equal(client.LogoutURLs, []string{v.Config.LogoutURL()}) {
		problems = append(problems, fmt.Sprintf("logout URLs %v", client.LogoutURLs))
	}
	if !slices.Contains(client.OAuthFlows, "code") {
		problems = append(problems, "authorization code flow disabled")
	}
	r.check("app client", problems, v.Config.CallbackURL())
}

func (v *Verifier) checkCertificate(r *Report, resources map[string]string) {
	arn, declared := resources[stacks.LogicalCertificate]
	switch {
	case !v.Config.CreateCertificate && !declared:
		r.add("certificate", Skip, "disabled")
	case !v.Config.CreateCertificate:
		r.add("certificate", Fail, "stack has a certificate but create_certificate is off")
	case !declared || arn == "":
		r.add("certificate", Fail, "no certificate for %s", v.Config.DomainName)
	default:
		r.add("certificate", Pass, "%s", arn)
	}
}

func (v *Verifier) checkNodes(ctx context.Context, r *Report, cl eks.Cluster, groups []eks.NodeGroup) {
	counter, err := v.Nodes(cl)
	if err != nil {
		r.add("nodes", Fail, "%v", err)
		return
	}
	group := ""
	if len(groups) == 1 {
		group = groups[0].Name
	}
	nr, err := counter.NodeReadiness(ctx, group)
	if err != nil {
		r.add("nodes", Fail, "%v", err)
		return
	}
	if nr.Ready < v.Config.Nodes.MinSize {
		r.add("nodes", Fail, "%d/%d ready, want at least %d", nr.Ready, nr.Total, v.Config.Nodes.MinSize)
		return
	}
	r.add("nodes", Pass, "%d/%d ready", nr.Ready, nr.Total)
}
