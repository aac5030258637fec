package cognito

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscognito "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
)

type CognitoAPI interface {
	DescribeUserPool(ctx context.Context, params *awscognito.DescribeUserPoolInput, optFns ...func(*awscognito.Options)) (*awscognito.DescribeUserPoolOutput, error)
	DescribeUserPoolClient(ctx context.Context, params *awscognito.DescribeUserPoolClientInput, optFns ...func(*awscognito.Options)) (*awscognito.DescribeUserPoolClientOutput, error)
}

type Client struct {
	api CognitoAPI
}

func NewClient(api CognitoAPI) *Client {
	return &Client{api: api}
}

func (c *Client) DescribeUserPool(ctx context.Context, poolID string) (UserPool, error) {
	out, err := c.api.DescribeUserPool(ctx, &awscognito.DescribeUserPoolInput{
		UserPoolId: aws.String(poolID),
	})
	if err != nil {
		return UserPool{}, fmt.Errorf("DescribeUserPool(%s): %w", poolID, err)
	}

	p := out.UserPool
	if p == nil {
		return UserPool{}, fmt.Errorf("DescribeUserPool(%s): empty response", poolID)
	}

	pool := UserPool{
		ID:         aws.ToString(p.Id),
		Name:       aws.ToString(p.Name),
		SelfSignUp: true,
	}
	if p.AdminCreateUserConfig != nil {
		pool.SelfSignUp = !p.AdminCreateUserConfig.AllowAdminCreateUserOnly
	}
	for _, a := range p.AutoVerifiedAttributes {
		pool.AutoVerifiedAttributes = append(pool.AutoVerifiedAttributes, string(a))
	}
	if p.Policies != nil && p.Policies.PasswordPolicy != nil {
		pp := p.Policies.PasswordPolicy
		pool.PasswordPolicy = PasswordPolicy{
			MinimumLength:    int(aws.ToInt32(pp.MinimumLength)),
			RequireLowercase: pp.RequireLowercase,
			RequireUppercase: pp.RequireUppercase,
			RequireNumbers:   pp.RequireNumbers,
			RequireSymbols:   pp.RequireSymbols,
		}
	}
	return pool, nil
}

func (c *Client) DescribeAppClient(ctx context.Context, poolID, clientID string) (AppClient, error) {
	out, err := c.api.DescribeUserPoolClient(ctx, &awscognito.DescribeUserPoolClientInput{
		UserPoolId: aws.String(poolID),
		ClientId:   aws.String(clientID),
	})
	if err != nil {
		return AppClient{}, fmt.Errorf("DescribeUserPoolClient(%s/%s): %w", poolID, clientID, err)
	}

	uc := out.UserPoolClient
	if uc == nil {
		return AppClient{}, fmt.Errorf("DescribeUserPoolClient(%s/%s): empty response", poolID, clientID)
	}

	client := AppClient{
		ID:                aws.ToString(uc.ClientId),
		Name:              aws.ToString(uc.ClientName),
		HasSecret:         aws.ToString(uc.ClientSecret) != "",
		OAuthScopes:       uc.AllowedOAuthScopes,
		CallbackURLs:      uc.CallbackURLs,
		LogoutURLs:        uc.LogoutURLs,
		IdentityProviders: uc.SupportedIdentityProviders,
	}
	for _, f := range uc.AllowedOAuthFlows {
		client.OAuthFlows = append(client.OAuthFlows, string(f))
	}
	return client, nil
}
