package cloudformation

import "time"

type Stack struct {
	Name         string
	ID           string
	Status       string
	StatusReason string
	Outputs      []Output
	UpdatedAt    time.Time
}

type Output struct {
	Key         string
	Value       string
	Description string
}

type Event struct {
	ID           string
	LogicalID    string
	ResourceType string
	Status       string
	Reason       string
	Timestamp    time.Time
}

// DeployResult describes what Deploy asked CloudFormation to do.
type DeployResult struct {
	StackID string
	Created bool

	// Changed is false when the template matched the deployed stack.
	Changed bool
}
