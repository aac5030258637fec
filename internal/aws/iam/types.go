package iam

import "time"

type Role struct {
	Name      string
	RoleID    string
	ARN       string
	CreatedAt time.Time

	// TrustedServices lists the service principals allowed to assume the role.
	TrustedServices []string
}

type AttachedPolicy struct {
	Name string
	ARN  string
}
