package deploy

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasnim.dev/workshop-infra/internal/aws/cloudformation"
	"tasnim.dev/workshop-infra/internal/cfn"
	"tasnim.dev/workshop-infra/internal/stacks"
)

type fakeClient struct {
	changed  map[string]bool
	failWait map[string]error
	missing  map[string]bool
	events   map[string][]cloudformation.Event
	calls    []string
}

func (f *fakeClient) Deploy(ctx context.Context, name, body string) (cloudformation.DeployResult, error) {
	f.calls = append(f.calls, "deploy "+name)
	return cloudformation.DeployResult{Changed: f.changed[name]}, nil
}

func (f *fakeClient) Wait(ctx context.Context, name string, since time.Time, onEvent func(cloudformation.Event)) (cloudformation.Stack, error) {
	f.calls = append(f.calls, "wait "+name)
	for _, e := range f.events[name] {
		onEvent(e)
	}
	if err := f.failWait[name]; err != nil {
		return cloudformation.Stack{Status: "ROLLBACK_COMPLETE"}, err
	}
	return cloudformation.Stack{Status: "CREATE_COMPLETE"}, nil
}

func (f *fakeClient) Delete(ctx context.Context, name string) error {
	f.calls = append(f.calls, "delete "+name)
	if f.missing[name] {
		return cloudformation.ErrStackNotFound
	}
	return nil
}

func synth(names ...string) []stacks.SynthesizedStack {
	var out []stacks.SynthesizedStack
	for _, n := range names {
		t := cfn.NewTemplate(n)
		t.Add("H", "AWS::CloudFormation::WaitConditionHandle", nil)
		out = append(out, stacks.SynthesizedStack{Name: n, Template: t})
	}
	return out
}

type recorder struct{ got []Progress }

func (r *recorder) report(p Progress) { r.got = append(r.got, p) }

func (r *recorder) phases(stack string) []Phase {
	var out []Phase
	for _, p := range r.got {
		if p.Stack == stack && p.Event == nil {
			out = append(out, p.Phase)
		}
	}
	return out
}

func TestDeploy_OrdersAndStreams(t *testing.T) {
	client := &fakeClient{
		changed: map[string]bool{"Infra": true},
		events: map[string][]cloudformation.Event{
			"Infra": {
				{ID: "1", LogicalID: "CoderVPC", Status: "CREATE_COMPLETE"},
				{ID: "2", LogicalID: "Infra", Status: "CREATE_COMPLETE"},
			},
		},
	}
	rec := &recorder{}

	err := NewRunner(client).Deploy(context.Background(), synth("Infra", "Operator"), rec.report)
	require.NoError(t, err)

	assert.Equal(t, []string{"deploy Infra", "wait Infra", "deploy Operator"}, client.calls)
	assert.Equal(t, []Phase{Queued, Deploying, Done}, rec.phases("Infra"))
	assert.Equal(t, []Phase{Queued, Deploying, Unchanged}, rec.phases("Operator"))

	var stackStatus []string
	for _, p := range rec.got {
		if p.Event != nil && p.Status != "" {
			stackStatus = append(stackStatus, p.Status)
		}
	}
	assert.Equal(t, []string{"CREATE_COMPLETE"}, stackStatus)
}

func TestDeploy_StopsOnFailure(t *testing.T) {
	boom := errors.New("rolled back")
	client := &fakeClient{
		changed:  map[string]bool{"Infra": true, "Operator": true},
		failWait: map[string]error{"Infra": boom},
	}
	rec := &recorder{}

	err := NewRunner(client).Deploy(context.Background(), synth("Infra", "Operator"), rec.report)
	assert.ErrorIs(t, err, boom)
	assert.NotContains(t, client.calls, "deploy Operator")
	assert.Equal(t, []Phase{Queued, Skipped}, rec.phases("Operator"))

	last := rec.got[len(rec.got)-2]
	assert.Equal(t, Failed, last.Phase)
	assert.Equal(t, "ROLLBACK_COMPLETE", last.Status)
}

func TestDestroy_ReverseOrder(t *testing.T) {
	client := &fakeClient{missing: map[string]bool{"Operator": true}}
	rec := &recorder{}

	err := NewRunner(client).Destroy(context.Background(), synth("Infra", "Operator"), rec.report)
	require.NoError(t, err)

	assert.Equal(t, []string{"delete Operator", "delete Infra", "wait Infra"}, client.calls)
	assert.Equal(t, []Phase{Queued, Absent}, rec.phases("Operator"))
	assert.Equal(t, []Phase{Queued, Deleting, Done}, rec.phases("Infra"))
}

func TestDestroy_StopsOnFailure(t *testing.T) {
	client := &fakeClient{failWait: map[string]error{"Operator": cloudformation.ErrStackFailed}}
	rec := &recorder{}

	err := NewRunner(client).Destroy(context.Background(), synth("Infra", "Operator"), rec.report)
	assert.ErrorIs(t, err, cloudformation.ErrStackFailed)
	assert.NotContains(t, client.calls, "delete Infra")
	assert.Equal(t, []Phase{Queued, Skipped}, rec.phases("Infra"))
}

func TestTemplateBody_Compact(t *testing.T) {
	body, err := TemplateBody(synth("Infra")[0])
	require.NoError(t, err)
	assert.False(t, strings.Contains(body, "\n"))
	assert.Contains(t, body, `"AWSTemplateFormatVersion":"2010-09-09"`)
}

func TestTemplateBody_TooLarge(t *testing.T) {
	s := synth("Big")[0]
	s.Template.Description = strings.Repeat("x", maxTemplateBody)

	_, err := TemplateBody(s)
	assert.ErrorIs(t, err, ErrTemplateTooLarge)
}
