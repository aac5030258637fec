// Package deploy applies synthesized stacks through CloudFormation in
// dependency order and reports progress as it goes.
package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tasnim.dev/workshop-infra/internal/aws/cloudformation"
	"tasnim.dev/workshop-infra/internal/stacks"
)

// CloudFormation rejects inline template bodies above this size.
const maxTemplateBody = 51200

var ErrTemplateTooLarge = errors.New("template exceeds the inline body limit")

type Phase string

const (
	Queued    Phase = "QUEUED"
	Deploying Phase = "DEPLOYING"
	Deleting  Phase = "DELETING"
	Done      Phase = "DONE"
	Unchanged Phase = "UNCHANGED"
	Absent    Phase = "ABSENT"
	Failed    Phase = "FAILED"
	Skipped   Phase = "SKIPPED"
)

// Progress is one update about a stack. Event is set for resource events
// streamed while waiting.
type Progress struct {
	Stack  string
	Phase  Phase
	Status string
	Event  *cloudformation.Event
	Err    error
}

type StackClient interface {
	Deploy(ctx context.Context, name, templateBody string) (cloudformation.DeployResult, error)
	Wait(ctx context.Context, name string, since time.Time, onEvent func(cloudformation.Event)) (cloudformation.Stack, error)
	Delete(ctx context.Context, name string) error
}

type Runner struct {
	Client StackClient
	Now    func() time.Time
}

func NewRunner(client StackClient) *Runner {
	return &Runner{Client: client, Now: time.Now}
}

// TemplateBody renders the compact JSON sent to CloudFormation.
func TemplateBody(s stacks.SynthesizedStack) (string, error) {
	body, err := json.Marshal(s.Template)
	if err != nil {
		return "", fmt.Errorf("stack %s: %w", s.Name, err)
	}
	if len(body) > maxTemplateBody {
		return "", fmt.Errorf("%w: %s is %d bytes", ErrTemplateTooLarge, s.Name, len(body))
	}
	return string(body), nil
}

// Deploy applies stacks in the given order, which must be dependencies
// first. The first failure stops the run and marks the rest skipped.
func (r *Runner) Deploy(ctx context.Context, synthesized []stacks.SynthesizedStack, report func(Progress)) error {
	for _, s := range synthesized {
		report(Progress{Stack: s.Name, Phase: Queued})
	}

	for i, s := range synthesized {
		if err := r.deployOne(ctx, s, report); err != nil {
			for _, rest := range synthesized[i+1:] {
				report(Progress{Stack: rest.Name, Phase: Skipped})
			}
			return err
		}
	}
	return nil
}

func (r *Runner) deployOne(ctx context.Context, s stacks.SynthesizedStack, report func(Progress)) error {
	fail := func(err error) error {
		report(Progress{Stack: s.Name, Phase: Failed, Err: err})
		return err
	}

	body, err := TemplateBody(s)
	if err != nil {
		return fail(err)
	}

	since := r.Now()
	report(Progress{Stack: s.Name, Phase: Deploying})

	res, err := r.Client.Deploy(ctx, s.Name, body)
	if err != nil {
		return fail(err)
	}
	if !res.Changed {
		report(Progress{Stack: s.Name, Phase: Unchanged})
		return nil
	}

	final, err := r.Client.Wait(ctx, s.Name, since, r.forward(s.Name, Deploying, report))
	if err != nil {
		report(Progress{Stack: s.Name, Phase: Failed, Status: final.Status, Err: err})
		return err
	}
	report(Progress{Stack: s.Name, Phase: Done, Status: final.Status})
	return nil
}

// Destroy deletes stacks in reverse order so dependents go first. Stacks
// that do not exist are reported Absent.
func (r *Runner) Destroy(ctx context.Context, synthesized []stacks.SynthesizedStack, report func(Progress)) error {
	for i := len(synthesized) - 1; i >= 0; i-- {
		report(Progress{Stack: synthesized[i].Name, Phase: Queued})
	}

	for i := len(synthesized) - 1; i >= 0; i-- {
		name := synthesized[i].Name
		since := r.Now()

		err := r.Client.Delete(ctx, name)
		if errors.Is(err, cloudformation.ErrStackNotFound) {
			report(Progress{Stack: name, Phase: Absent})
			continue
		}
		if err == nil {
			report(Progress{Stack: name, Phase: Deleting})
			var final cloudformation.Stack
			final, err = r.Client.Wait(ctx, name, since, r.forward(name, Deleting, report))
			if err == nil {
				report(Progress{Stack: name, Phase: Done, Status: final.Status})
				continue
			}
		}

		report(Progress{Stack: name, Phase: Failed, Err: err})
		for j := i - 1; j >= 0; j-- {
			report(Progress{Stack: synthesized[j].Name, Phase: Skipped})
		}
		return err
	}
	return nil
}

// forward turns resource events into progress. Events on the stack itself
// also carry the stack status.
func (r *Runner) forward(stack string, phase Phase, report func(Progress)) func(cloudformation.Event) {
	return func(e cloudformation.Event) {
		p := Progress{Stack: stack, Phase: phase, Event: &e}
		if e.LogicalID == stack {
			p.Status = e.Status
		}
		report(p)
	}
}
