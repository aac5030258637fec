package iam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsiam "github.com/aws/aws-sdk-go-v2/service/iam"
)

type IAMAPI interface {
	GetRole(ctx context.Context, params *awsiam.GetRoleInput, optFns ...func(*awsiam.Options)) (*awsiam.GetRoleOutput, error)
	ListAttachedRolePolicies(ctx context.Context, params *awsiam.ListAttachedRolePoliciesInput, optFns ...func(*awsiam.Options)) (*awsiam.ListAttachedRolePoliciesOutput, error)
}

type Client struct {
	api IAMAPI
}

func NewClient(api IAMAPI) *Client {
	return &Client{api: api}
}

func (c *Client) GetRole(ctx context.Context, roleName string) (Role, error) {
	out, err := c.api.GetRole(ctx, &awsiam.GetRoleInput{
		RoleName: aws.String(roleName),
	})
	if err != nil {
		return Role{}, fmt.Errorf("GetRole(%s): %w", roleName, err)
	}

	r := out.Role
	if r == nil {
		return Role{}, fmt.Errorf("GetRole(%s): empty response", roleName)
	}

	var createdAt time.Time
	if r.CreateDate != nil {
		createdAt = *r.CreateDate
	}

	trusted, err := trustedServices(aws.ToString(r.AssumeRolePolicyDocument))
	if err != nil {
		return Role{}, fmt.Errorf("GetRole(%s): %w", roleName, err)
	}

	return Role{
		Name:            aws.ToString(r.RoleName),
		RoleID:          aws.ToString(r.RoleId),
		ARN:             aws.ToString(r.Arn),
		CreatedAt:       createdAt,
		TrustedServices: trusted,
	}, nil
}

func (c *Client) ListAttachedRolePolicies(ctx context.Context, roleName string) ([]AttachedPolicy, error) {
	var policies []AttachedPolicy
	var marker *string

	for {
		out, err := c.api.ListAttachedRolePolicies(ctx, &awsiam.ListAttachedRolePoliciesInput{
			RoleName: aws.String(roleName),
			Marker:   marker,
		})
		if err != nil {
			return nil, fmt.Errorf("ListAttachedRolePolicies(%s): %w", roleName, err)
		}

		for _, p := range out.AttachedPolicies {
			policies = append(policies, AttachedPolicy{
				Name: aws.ToString(p.PolicyName),
				ARN:  aws.ToString(p.PolicyArn),
			})
		}

		if !out.IsTruncated {
			break
		}
		marker = out.Marker
	}

	return policies, nil
}

type trustPolicy struct {
	Statement []struct {
		Effect    string `json:"Effect"`
		Principal struct {
			Service stringOrList `json:"Service"`
		} `json:"Principal"`
	} `json:"Statement"`
}

// stringOrList decodes a policy field that is either a string or a list.
type stringOrList []string

func (s *stringOrList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = []string{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// trustedServices returns the sorted service principals with Allow in a
// URL-encoded trust policy.
func trustedServices(doc string) ([]string, error) {
	if doc == "" {
		return nil, nil
	}
	if decoded, err := url.QueryUnescape(doc); err == nil {
		doc = decoded
	}

	var p trustPolicy
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fmt.Errorf("parsing trust policy: %w", err)
	}

	seen := make(map[string]bool)
	var out []string
	for _, st := range p.Statement {
		if st.Effect != "Allow" {
			continue
		}
		for _, svc := range st.Principal.Service {
			if !seen[svc] {
				seen[svc] = true
				out = append(out, svc)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}
