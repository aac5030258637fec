package cognito

import (
	"context"
	"errors"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awscognito "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cogtypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCognitoAPI struct {
	describeUserPoolFunc       func(ctx context.Context, params *awscognito.DescribeUserPoolInput, optFns ...func(*awscognito.Options)) (*awscognito.DescribeUserPoolOutput, error)
	describeUserPoolClientFunc func(ctx context.Context, params *awscognito.DescribeUserPoolClientInput, optFns ...func(*awscognito.Options)) (*awscognito.DescribeUserPoolClientOutput, error)
}

func (m *mockCognitoAPI) DescribeUserPool(ctx context.Context, params *awscognito.DescribeUserPoolInput, optFns ...func(*awscognito.Options)) (*awscognito.DescribeUserPoolOutput, error) {
	return m.describeUserPoolFunc(ctx, params, optFns...)
}

func (m *mockCognitoAPI) DescribeUserPoolClient(ctx context.Context, params *awscognito.DescribeUserPoolClientInput, optFns ...func(*awscognito.Options)) (*awscognito.DescribeUserPoolClientOutput, error) {
	return m.describeUserPoolClientFunc(ctx, params, optFns...)
}

func TestDescribeUserPool(t *testing.T) {
	mock := &mockCognitoAPI{
		describeUserPoolFunc: func(ctx context.Context, params *awscognito.DescribeUserPoolInput, optFns ...func(*awscognito.Options)) (*awscognito.DescribeUserPoolOutput, error) {
			assert.Equal(t, "us-east-1_abc", awssdk.ToString(params.UserPoolId))
			return &awscognito.DescribeUserPoolOutput{
				UserPool: &cogtypes.UserPoolType{
					Id:                     awssdk.String("us-east-1_abc"),
					Name:                   awssdk.String("coder-workshop-users"),
					AdminCreateUserConfig:  &cogtypes.AdminCreateUserConfigType{AllowAdminCreateUserOnly: false},
					AutoVerifiedAttributes: []cogtypes.VerifiedAttributeType{cogtypes.VerifiedAttributeTypeEmail},
					Policies: &cogtypes.UserPoolPolicyType{
						PasswordPolicy: &cogtypes.PasswordPolicyType{
							MinimumLength:    awssdk.Int32(8),
							RequireLowercase: true,
							RequireUppercase: true,
							RequireNumbers:   true,
							RequireSymbols:   true,
						},
					},
				},
			}, nil
		},
	}

	pool, err := NewClient(mock).DescribeUserPool(context.Background(), "us-east-1_abc")
	require.NoError(t, err)
	assert.True(t, pool.SelfSignUp)
	assert.Equal(t, []string{"email"}, pool.AutoVerifiedAttributes)
	assert.Equal(t, PasswordPolicy{
		MinimumLength:    8,
		RequireLowercase: true,
		RequireUppercase: true,
		RequireNumbers:   true,
		RequireSymbols:   true,
	}, pool.PasswordPolicy)
}

func TestDescribeAppClient(t *testing.T) {
	mock := &mockCognitoAPI{
		describeUserPoolClientFunc: func(ctx context.Context, params *awscognito.DescribeUserPoolClientInput, optFns ...func(*awscognito.Options)) (*awscognito.DescribeUserPoolClientOutput, error) {
			assert.Equal(t, "client-1", awssdk.ToString(params.ClientId))
			return &awscognito.DescribeUserPoolClientOutput{
				UserPoolClient: &cogtypes.UserPoolClientType{
					ClientId:                   awssdk.String("client-1"),
					ClientSecret:               awssdk.String("s3cret"),
					AllowedOAuthFlows:          []cogtypes.OAuthFlowType{cogtypes.OAuthFlowTypeCode, cogtypes.OAuthFlowTypeImplicit},
					AllowedOAuthScopes:         []string{"email", "openid", "profile"},
					CallbackURLs:               []string{"https://demo.example.org/api/v2/users/oidc/callback"},
					LogoutURLs:                 []string{"https://demo.example.org/api/v2/users/oidc/logout"},
					SupportedIdentityProviders: []string{"COGNITO"},
				},
			}, nil
		},
	}

	client, err := NewClient(mock).DescribeAppClient(context.Background(), "us-east-1_abc", "client-1")
	require.NoError(t, err)
	assert.True(t, client.HasSecret)
	assert.Equal(t, []string{"code", "implicit"}, client.OAuthFlows)
	assert.Equal(t, []string{"https://demo.example.org/api/v2/users/oidc/callback"}, client.CallbackURLs)
	assert.Equal(t, []string{"https://demo.example.org/api/v2/users/oidc/logout"}, client.LogoutURLs)
}

func TestDescribeAppClient_Error(t *testing.T) {
	mock := &mockCognitoAPI{
		describeUserPoolClientFunc: func(ctx context.Context, params *awscognito.DescribeUserPoolClientInput, optFns ...func(*awscognito.Options)) (*awscognito.DescribeUserPoolClientOutput, error) {
			return nil, errors.New("ResourceNotFoundException")
		},
	}

	_, err := NewClient(mock).DescribeAppClient(context.Background(), "p", "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DescribeUserPoolClient(p/c)")
}
