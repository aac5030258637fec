package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(path, []byte("domain_name: demo.example.org\nnodes:\n  max_size: 6\noperator:\n  coder_version: 2.20.1\n"), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo.example.org", cfg.DomainName)
	assert.Equal(t, 6, cfg.Nodes.MaxSize)
	assert.Equal(t, 2, cfg.Nodes.MinSize, "unset fields keep defaults")
	assert.Equal(t, "2.20.1", cfg.Operator.CoderVersion)
	assert.Equal(t, "coder", cfg.Operator.DatabaseUser)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nodes: [1, 2"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "workshop.example.com", cfg.DomainName)
	assert.False(t, cfg.CreateCertificate)
	assert.LessOrEqual(t, cfg.Nodes.MinSize, cfg.Nodes.MaxSize)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("AWS_REGION", "eu-central-1")
	t.Setenv("DOMAIN_NAME", "demo.example.org")
	t.Setenv("CREATE_CERTIFICATE", "TRUE")

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, "eu-central-1", cfg.Region)
	assert.Equal(t, "demo.example.org", cfg.DomainName)
	assert.True(t, cfg.CreateCertificate)
}

func TestApplyEnv_CertificateFlagOnlyTrue(t *testing.T) {
	for _, v := range []string{"false", "1", "yes", ""} {
		t.Setenv("CREATE_CERTIFICATE", v)
		cfg := Default()
		cfg.CreateCertificate = true
		cfg.ApplyEnv()
		assert.False(t, cfg.CreateCertificate, "CREATE_CERTIFICATE=%q", v)
	}
}

func TestMerge_CLIFlagsTakePrecedence(t *testing.T) {
	cfg := &Config{Profile: "config-profile", Region: "us-east-1"}

	cfg.Merge("cli-profile", "ap-south-1")
	assert.Equal(t, "cli-profile", cfg.Profile)
	assert.Equal(t, "ap-south-1", cfg.Region)

	cfg.Merge("", "")
	assert.Equal(t, "cli-profile", cfg.Profile)
	assert.Equal(t, "ap-south-1", cfg.Region)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"single label domain", func(c *Config) { c.DomainName = "localhost" }},
		{"min above max", func(c *Config) { c.Nodes.MinSize = 5 }},
		{"short password", func(c *Config) { c.Identity.MinPasswordLength = 6 }},
		{"bad cidr", func(c *Config) { c.Network.CIDR = "10.0.0.0/33" }},
		{"cidr too small", func(c *Config) { c.Network.CIDR = "10.0.0.0/23" }},
		{"cidr host bits", func(c *Config) { c.Network.CIDR = "10.0.1.0/16" }},
		{"nat above azs", func(c *Config) { c.Network.NATGateways = 3 }},
		{"no instance type", func(c *Config) { c.Nodes.InstanceType = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParentDomain(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"workshop.example.com", "example.com"},
		{"demo.example.org", "example.org"},
		{"a.b.c.d", "b.c.d"},
		{"workshop.example.com.", "example.com"},
	}

	for _, tt := range tests {
		got, err := ParentDomain(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestParentDomain_Invalid(t *testing.T) {
	for _, input := range []string{"localhost", "", ".example.com", "workshop.", "workshop..com"} {
		_, err := ParentDomain(input)
		assert.ErrorIs(t, err, ErrInvalidDomain, "input %q", input)
	}
}

func TestOIDCURLs(t *testing.T) {
	cfg := Default()
	cfg.DomainName = "demo.example.org"
	assert.Equal(t, "https://demo.example.org/api/v2/users/oidc/callback", cfg.CallbackURL())
	assert.Equal(t, "https://demo.example.org/api/v2/users/oidc/logout", cfg.LogoutURL())
}

func TestValidate_NormalizesDomain(t *testing.T) {
	cfg := Default()
	cfg.DomainName = " Demo.Example.org. "
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "demo.example.org", cfg.DomainName)
	assert.Equal(t, "https://demo.example.org/api/v2/users/oidc/callback", cfg.CallbackURL())
	assert.Equal(t, "https://demo.example.org/api/v2/users/oidc/logout", cfg.LogoutURL())
}

func TestBroadWorkspacePolicies(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []string{"AmazonEC2FullAccess"}, cfg.BroadWorkspacePolicies())

	cfg.WorkspacePolicies = []string{"AmazonEC2ReadOnlyAccess"}
	assert.Empty(t, cfg.BroadWorkspacePolicies())
}
