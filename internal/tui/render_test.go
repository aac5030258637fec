package tui

import (
	"strings"
	"testing"
	"time"

	"tasnim.dev/workshop-infra/internal/aws/cloudformation"
	"tasnim.dev/workshop-infra/internal/verify"
)

func TestRenderOutputs(t *testing.T) {
	s := cloudformation.Stack{
		Name:      "CoderDeploymentStack",
		Status:    "CREATE_COMPLETE",
		UpdatedAt: time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC),
		Outputs: []cloudformation.Output{
			{Key: "CreateDbSecretCommand", Value: "kubectl create secret generic coder-db-url -n coder"},
			{Key: "InstallCoderCommand", Value: "helm repo add coder-v2 https://helm.coder.com/v2\nhelm install coder coder-v2/coder"},
		},
	}

	out := RenderOutputs(s)
	for _, want := range []string{
		"CoderDeploymentStack",
		"CREATE_COMPLETE",
		"2026-03-01 12:00:05",
		"kubectl create secret generic coder-db-url -n coder",
		"helm repo add coder-v2 https://helm.coder.com/v2",
		"helm install coder coder-v2/coder",
		"╭",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("outputs should contain %q\n%s", want, out)
		}
	}
}

func TestRenderOutputs_Empty(t *testing.T) {
	out := RenderOutputs(cloudformation.Stack{Name: "CoderInfrastructureStack", Status: "CREATE_IN_PROGRESS"})
	if !strings.Contains(out, "none") {
		t.Error("stack without outputs should say none")
	}
	if !strings.Contains(out, "—") {
		t.Error("zero update time should render a dash")
	}
}

func TestRenderReport(t *testing.T) {
	r := verify.Report{
		Stack: "CoderInfrastructureStack",
		Checks: []verify.Check{
			{Name: "cluster", Status: verify.Pass, Detail: "ACTIVE, version 1.31"},
			{Name: "network", Status: verify.Fail, Detail: "expected 2 NAT gateways, found 1"},
			{Name: "certificate", Status: verify.Skip, Detail: "not requested"},
		},
	}

	out := RenderReport(r)
	for _, want := range []string{
		"Verify CoderInfrastructureStack",
		"ACTIVE, version 1.31",
		"expected 2 NAT gateways, found 1",
		"1 passed, 1 failed, 1 skipped",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report should contain %q\n%s", want, out)
		}
	}
}
