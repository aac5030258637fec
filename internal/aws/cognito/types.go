package cognito

type PasswordPolicy struct {
	MinimumLength    int
	RequireLowercase bool
	RequireUppercase bool
	RequireNumbers   bool
	RequireSymbols   bool
}

type UserPool struct {
	ID                     string
	Name                   string
	SelfSignUp             bool
	AutoVerifiedAttributes []string
	PasswordPolicy         PasswordPolicy
}

type AppClient struct {
	ID              string
	Name            string
	HasSecret       bool
	OAuthFlows      []string
	OAuthScopes     []string
	CallbackURLs    []string
	LogoutURLs      []string
	IdentityProviders []string
}
