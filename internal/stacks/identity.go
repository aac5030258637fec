package stacks

import (
	"tasnim.dev/workshop-infra/internal/cfn"
	"tasnim.dev/workshop-infra/internal/config"
)

// OAuth settings of the workspace app client.
var (
	oauthFlows  = []any{"code", "implicit"}
	oauthScopes = []any{"email", "openid", "profile"}
)

// declareIdentity adds a self-service user pool keyed on a verified email
// address and one OAuth app client whose redirect URLs point at the domain.
func declareIdentity(t *cfn.Template, cfg *config.Config) (pool, client string) {
	pool, client = LogicalUserPool, LogicalAppClient

	t.Add(pool, "AWS::Cognito::UserPool", map[string]any{
		"UserPoolName": cfg.Identity.UserPoolName,
		"AdminCreateUserConfig": map[string]any{
			"AllowAdminCreateUserOnly": false,
		},
		"AutoVerifiedAttributes": []any{"email"},
		"Schema": []any{
			map[string]any{"Name": "email", "Required": true, "Mutable": true},
		},
		"Policies": map[string]any{
			"PasswordPolicy": map[string]any{
				"MinimumLength":    cfg.Identity.MinPasswordLength,
				"RequireLowercase": true,
				"RequireUppercase": true,
				"RequireNumbers":   true,
				"RequireSymbols":   true,
			},
		},
		"AccountRecoverySetting": map[string]any{
			"RecoveryMechanisms": []any{
				map[string]any{"Name": "verified_phone_number", "Priority": 1},
				map[string]any{"Name": "verified_email", "Priority": 2},
			},
		},
		"VerificationMessageTemplate": map[string]any{
			"DefaultEmailOption": "CONFIRM_WITH_CODE",
		},
	})

	t.Add(client, "AWS::Cognito::UserPoolClient", map[string]any{
		"UserPoolId":                      cfn.Ref(pool),
		"GenerateSecret":                  true,
		"AllowedOAuthFlowsUserPoolClient": true,
		"AllowedOAuthFlows":               oauthFlows,
		"AllowedOAuthScopes":              oauthScopes,
		"CallbackURLs":                    []any{cfg.CallbackURL()},
		"LogoutURLs":                      []any{cfg.LogoutURL()},
		"SupportedIdentityProviders":      []any{"COGNITO"},
	})

	return pool, client
}
