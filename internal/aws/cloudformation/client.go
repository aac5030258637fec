package cloudformation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfn "github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
)

const defaultPollInterval = 5 * time.Second

type CloudFormationAPI interface {
	CreateStack(ctx context.Context, params *awscfn.CreateStackInput, optFns ...func(*awscfn.Options)) (*awscfn.CreateStackOutput, error)
	UpdateStack(ctx context.Context, params *awscfn.UpdateStackInput, optFns ...func(*awscfn.Options)) (*awscfn.UpdateStackOutput, error)
	DeleteStack(ctx context.Context, params *awscfn.DeleteStackInput, optFns ...func(*awscfn.Options)) (*awscfn.DeleteStackOutput, error)
	DescribeStacks(ctx context.Context, params *awscfn.DescribeStacksInput, optFns ...func(*awscfn.Options)) (*awscfn.DescribeStacksOutput, error)
	DescribeStackEvents(ctx context.Context, params *awscfn.DescribeStackEventsInput, optFns ...func(*awscfn.Options)) (*awscfn.DescribeStackEventsOutput, error)
	DescribeStackResources(ctx context.Context, params *awscfn.DescribeStackResourcesInput, optFns ...func(*awscfn.Options)) (*awscfn.DescribeStackResourcesOutput, error)
}

type Client struct {
	api          CloudFormationAPI
	pollInterval time.Duration
}

func NewClient(api CloudFormationAPI) *Client {
	return &Client{api: api, pollInterval: defaultPollInterval}
}

var capabilities = []cfntypes.Capability{
	cfntypes.CapabilityCapabilityIam,
	cfntypes.CapabilityCapabilityNamedIam,
}

// DescribeStack returns ErrStackNotFound when no stack has the name.
func (c *Client) DescribeStack(ctx context.Context, name string) (Stack, error) {
	out, err := c.api.DescribeStacks(ctx, &awscfn.DescribeStacksInput{
		StackName: aws.String(name),
	})
	if err != nil {
		if isNotFound(err) {
			return Stack{}, fmt.Errorf("%w: %s", ErrStackNotFound, name)
		}
		return Stack{}, fmt.Errorf("DescribeStacks(%s): %w", name, err)
	}
	if len(out.Stacks) == 0 {
		return Stack{}, fmt.Errorf("%w: %s", ErrStackNotFound, name)
	}

	s := out.Stacks[0]

	var updatedAt time.Time
	switch {
	case s.LastUpdatedTime != nil:
		updatedAt = *s.LastUpdatedTime
	case s.CreationTime != nil:
		updatedAt = *s.CreationTime
	}

	outputs := make([]Output, 0, len(s.Outputs))
	for _, o := range s.Outputs {
		outputs = append(outputs, Output{
			Key:         aws.ToString(o.OutputKey),
			Value:       aws.ToString(o.OutputValue),
			Description: aws.ToString(o.Description),
		})
	}

	return Stack{
		Name:         aws.ToString(s.StackName),
		ID:           aws.ToString(s.StackId),
		Status:       string(s.StackStatus),
		StatusReason: aws.ToString(s.StackStatusReason),
		Outputs:      outputs,
		UpdatedAt:    updatedAt,
	}, nil
}

// Deploy creates the stack or updates it in place. It returns once
// CloudFormation accepted the request; use Wait to follow it.
func (c *Client) Deploy(ctx context.Context, name, templateBody string) (DeployResult, error) {
	existing, err := c.DescribeStack(ctx, name)
	switch {
	case errors.Is(err, ErrStackNotFound):
		out, err := c.api.CreateStack(ctx, &awscfn.CreateStackInput{
			StackName:    aws.String(name),
			TemplateBody: aws.String(templateBody),
			Capabilities: capabilities,
		})
		if err != nil {
			return DeployResult{}, fmt.Errorf("CreateStack(%s): %w", name, err)
		}
		return DeployResult{StackID: aws.ToString(out.StackId), Created: true, Changed: true}, nil
	case err != nil:
		return DeployResult{}, err
	}

	if existing.Status == string(cfntypes.StackStatusRollbackComplete) {
		return DeployResult{}, fmt.Errorf("%w: %s is %s, destroy it first", ErrStackNotUpdatable, name, existing.Status)
	}
	if InProgress(existing.Status) {
		return DeployResult{}, fmt.Errorf("%w: %s is %s", ErrStackNotUpdatable, name, existing.Status)
	}

	out, err := c.api.UpdateStack(ctx, &awscfn.UpdateStackInput{
		StackName:    aws.String(name),
		TemplateBody: aws.String(templateBody),
		Capabilities: capabilities,
	})
	if err != nil {
		if isNoUpdates(err) {
			return DeployResult{StackID: existing.ID}, nil
		}
		return DeployResult{}, fmt.Errorf("UpdateStack(%s): %w", name, err)
	}
	return DeployResult{StackID: aws.ToString(out.StackId), Changed: true}, nil
}

// Delete requests deletion. A missing stack yields ErrStackNotFound.
func (c *Client) Delete(ctx context.Context, name string) error {
	if _, err := c.DescribeStack(ctx, name); err != nil {
		return err
	}
	if _, err := c.api.DeleteStack(ctx, &awscfn.DeleteStackInput{
		StackName: aws.String(name),
	}); err != nil {
		return fmt.Errorf("DeleteStack(%s): %w", name, err)
	}
	return nil
}

// Outputs returns the stack outputs in the order CloudFormation reports them.
func (c *Client) Outputs(ctx context.Context, name string) ([]Output, error) {
	s, err := c.DescribeStack(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.Outputs, nil
}

// Resources maps logical IDs to physical IDs.
func (c *Client) Resources(ctx context.Context, name string) (map[string]string, error) {
	out, err := c.api.DescribeStackResources(ctx, &awscfn.DescribeStackResourcesInput{
		StackName: aws.String(name),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrStackNotFound, name)
		}
		return nil, fmt.Errorf("DescribeStackResources(%s): %w", name, err)
	}

	resources := make(map[string]string, len(out.StackResources))
	for _, r := range out.StackResources {
		resources[aws.ToString(r.LogicalResourceId)] = aws.ToString(r.PhysicalResourceId)
	}
	return resources, nil
}

// Events returns events newer than since that are not in seen, oldest first,
// and marks them seen.
func (c *Client) Events(ctx context.Context, name string, since time.Time, seen map[string]bool) ([]Event, error) {
	var newest []Event
	var nextToken *string

pages:
	for {
		out, err := c.api.DescribeStackEvents(ctx, &awscfn.DescribeStackEventsInput{
			StackName: aws.String(name),
			NextToken: nextToken,
		})
		if err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("DescribeStackEvents(%s): %w", name, err)
		}

		for _, e := range out.StackEvents {
			id := aws.ToString(e.EventId)
			ts := aws.ToTime(e.Timestamp)
			if seen[id] || ts.Before(since) {
				break pages
			}
			newest = append(newest, Event{
				ID:           id,
				LogicalID:    aws.ToString(e.LogicalResourceId),
				ResourceType: aws.ToString(e.ResourceType),
				Status:       string(e.ResourceStatus),
				Reason:       aws.ToString(e.ResourceStatusReason),
				Timestamp:    ts,
			})
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	events := make([]Event, 0, len(newest))
	for i := len(newest) - 1; i >= 0; i-- {
		seen[newest[i].ID] = true
		events = append(events, newest[i])
	}
	return events, nil
}

// Wait polls until the stack leaves its in-progress state, passing new
// events to onEvent as they appear. A stack that disappears counts as
// DELETE_COMPLETE. Terminal failure states return ErrStackFailed.
func (c *Client) Wait(ctx context.Context, name string, since time.Time, onEvent func(Event)) (Stack, error) {
	seen := make(map[string]bool)

	for {
		events, err := c.Events(ctx, name, since, seen)
		if err != nil {
			return Stack{}, err
		}
		if onEvent != nil {
			for _, e := range events {
				onEvent(e)
			}
		}

		s, err := c.DescribeStack(ctx, name)
		if errors.Is(err, ErrStackNotFound) {
			return Stack{Name: name, Status: string(cfntypes.StackStatusDeleteComplete)}, nil
		}
		if err != nil {
			return Stack{}, err
		}

		if !InProgress(s.Status) {
			if Failed(s.Status) {
				return s, fmt.Errorf("%w: %s is %s: %s", ErrStackFailed, name, s.Status, s.StatusReason)
			}
			return s, nil
		}

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return s, ctx.Err()
		case <-timer.C:
		}
	}
}
