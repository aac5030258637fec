package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidConfig is returned by Validate for out-of-range or missing values.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidDomain is returned when a domain name has no parent zone.
	ErrInvalidDomain = errors.New("invalid domain name")
)

// Managed policies that grant account-wide write access. Attaching them to the
// workspace role needs an explicit acknowledgement in the config file.
var broadPolicies = map[string]bool{
	"AmazonEC2FullAccess": true,
	"AdministratorAccess": true,
	"PowerUserAccess":     true,
	"IAMFullAccess":       true,
}

// Config holds the parameters of both stacks. Zero values are replaced by
// Default() values when loaded through Load.
type Config struct {
	ClusterName       string `yaml:"cluster_name"`
	Region            string `yaml:"region"`
	Profile           string `yaml:"profile"`
	DomainName        string `yaml:"domain_name"`
	CreateCertificate bool   `yaml:"create_certificate"`
	KubernetesVersion string `yaml:"kubernetes_version"`

	Network  NetworkConfig  `yaml:"network"`
	Nodes    NodeConfig     `yaml:"nodes"`
	Identity IdentityConfig `yaml:"identity"`
	Operator OperatorConfig `yaml:"operator"`

	WorkspacePolicies        []string `yaml:"workspace_policies"`
	AcknowledgeBroadPolicies bool     `yaml:"acknowledge_broad_policies"`
}

type NetworkConfig struct {
	CIDR        string `yaml:"cidr"`
	MaxAZs      int    `yaml:"max_azs"`
	NATGateways int    `yaml:"nat_gateways"`
	SubnetMask  int    `yaml:"subnet_mask"`
}

type NodeConfig struct {
	InstanceType string `yaml:"instance_type"`
	MinSize      int    `yaml:"min_size"`
	MaxSize      int    `yaml:"max_size"`
	DiskSize     int    `yaml:"disk_size"`
}

type IdentityConfig struct {
	UserPoolName      string `yaml:"user_pool_name"`
	MinPasswordLength int    `yaml:"min_password_length"`
}

// OperatorConfig carries the literals rendered into the operator commands.
// Defaults reproduce the workshop setup, including its demo credentials.
type OperatorConfig struct {
	Namespace          string `yaml:"namespace"`
	PostgresRepoURL    string `yaml:"postgres_repo_url"`
	PostgresRelease    string `yaml:"postgres_release"`
	DatabaseUser       string `yaml:"database_user"`
	DatabasePassword   string `yaml:"database_password"`
	DatabaseName       string `yaml:"database_name"`
	PersistenceSize    string `yaml:"persistence_size"`
	DatabaseSecretName string `yaml:"database_secret_name"`
	CoderRepoURL       string `yaml:"coder_repo_url"`
	CoderVersion       string `yaml:"coder_version"`
	CoderValuesFile    string `yaml:"coder_values_file"`
}

// Default returns the workshop defaults.
func Default() *Config {
	return &Config{
		ClusterName:       "coder-workshop-cluster",
		Region:            "us-east-1",
		DomainName:        "workshop.example.com",
		KubernetesVersion: "1.31",
		Network: NetworkConfig{
			CIDR:        "10.0.0.0/16",
			MaxAZs:      2,
			NATGateways: 1,
			SubnetMask:  24,
		},
		Nodes: NodeConfig{
			InstanceType: "t3.large",
			MinSize:      2,
			MaxSize:      4,
			DiskSize:     50,
		},
		Identity: IdentityConfig{
			UserPoolName:      "coder-workshop-users",
			MinPasswordLength: 8,
		},
		Operator: OperatorConfig{
			Namespace:          "coder",
			PostgresRepoURL:    "https://charts.bitnami.com/bitnami",
			PostgresRelease:    "coder-db",
			DatabaseUser:       "coder",
			DatabasePassword:   "coder",
			DatabaseName:       "coder",
			PersistenceSize:    "10Gi",
			DatabaseSecretName: "coder-db-url",
			CoderRepoURL:       "https://helm.coder.com/v2",
			CoderVersion:       "2.19.0",
			CoderValuesFile:    "coder-core-values-v2.yaml",
		},
		WorkspacePolicies: []string{"AmazonEC2FullAccess", "IAMReadOnlyAccess"},
	}
}

// DefaultPath returns ~/.config/workshop-infra/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "workshop-infra", "config.yaml")
}

// Load reads the config file at path on top of Default(). An empty path means
// DefaultPath(), which may be absent. An explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays AWS_REGION, DOMAIN_NAME and CREATE_CERTIFICATE.
func (c *Config) ApplyEnv() {
	v := viper.New()
	v.AllowEmptyEnv(true)
	_ = v.BindEnv("region", "AWS_REGION")
	_ = v.BindEnv("domain_name", "DOMAIN_NAME")
	_ = v.BindEnv("create_certificate", "CREATE_CERTIFICATE")

	if r := v.GetString("region"); r != "" {
		c.Region = r
	}
	if d := v.GetString("domain_name"); d != "" {
		c.DomainName = d
	}
	if v.IsSet("create_certificate") {
		c.CreateCertificate = strings.EqualFold(strings.TrimSpace(v.GetString("create_certificate")), "true")
	}
}

// Merge applies CLI flag overrides. Flags take precedence over config and env.
func (c *Config) Merge(profile, region string) {
	if profile != "" {
		c.Profile = profile
	}
	if region != "" {
		c.Region = region
	}
}

// Validate normalizes DomainName and checks the invariants the stack builders
// rely on.
func (c *Config) Validate() error {
	c.DomainName = NormalizeDomain(c.DomainName)

	var (
		problems []string
		causes   []error
	)

	if c.ClusterName == "" {
		problems = append(problems, "cluster_name is required")
	}
	if c.Region == "" {
		problems = append(problems, "region is required")
	}
	if c.KubernetesVersion == "" {
		problems = append(problems, "kubernetes_version is required")
	}
	if _, err := ParentDomain(c.DomainName); err != nil {
		problems = append(problems, err.Error())
		causes = append(causes, err)
	}

	prefix, err := netip.ParsePrefix(c.Network.CIDR)
	switch {
	case err != nil:
		problems = append(problems, fmt.Sprintf("network.cidr %q: %v", c.Network.CIDR, err))
	case !prefix.Addr().Is4():
		problems = append(problems, "network.cidr must be IPv4")
	case prefix != prefix.Masked():
		problems = append(problems, fmt.Sprintf("network.cidr %s has host bits set (did you mean %s?)", c.Network.CIDR, prefix.Masked()))
	case c.Network.SubnetMask <= prefix.Bits() || c.Network.SubnetMask > 28:
		problems = append(problems, fmt.Sprintf("network.subnet_mask %d must be in (%d, 28]", c.Network.SubnetMask, prefix.Bits()))
	case 2*c.Network.MaxAZs > 1<<(c.Network.SubnetMask-prefix.Bits()):
		problems = append(problems, fmt.Sprintf("network.cidr %s cannot hold %d /%d subnets", c.Network.CIDR, 2*c.Network.MaxAZs, c.Network.SubnetMask))
	}
	if c.Network.MaxAZs < 1 {
		problems = append(problems, "network.max_azs must be at least 1")
	}
	if c.Network.NATGateways < 1 || c.Network.NATGateways > c.Network.MaxAZs {
		problems = append(problems, fmt.Sprintf("network.nat_gateways must be between 1 and %d", c.Network.MaxAZs))
	}

	if c.Nodes.InstanceType == "" {
		problems = append(problems, "nodes.instance_type is required")
	}
	if c.Nodes.MinSize < 1 {
		problems = append(problems, "nodes.min_size must be at least 1")
	}
	if c.Nodes.MinSize > c.Nodes.MaxSize {
		problems = append(problems, fmt.Sprintf("nodes.min_size %d exceeds nodes.max_size %d", c.Nodes.MinSize, c.Nodes.MaxSize))
	}
	if c.Nodes.DiskSize < 1 {
		problems = append(problems, "nodes.disk_size must be positive")
	}

	if c.Identity.UserPoolName == "" {
		problems = append(problems, "identity.user_pool_name is required")
	}
	if c.Identity.MinPasswordLength < 8 {
		problems = append(problems, "identity.min_password_length must be at least 8")
	}

	if len(problems) > 0 {
		return &validationError{problems: problems, causes: causes}
	}
	return nil
}

// validationError matches ErrInvalidConfig and any underlying cause.
type validationError struct {
	problems []string
	causes   []error
}

func (e *validationError) Error() string {
	return ErrInvalidConfig.Error() + ": " + strings.Join(e.problems, "; ")
}

func (e *validationError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.causes...)
}

// BroadWorkspacePolicies returns the configured workspace policies that grant
// account-wide write access.
func (c *Config) BroadWorkspacePolicies() []string {
	var out []string
	for _, p := range c.WorkspacePolicies {
		if broadPolicies[p] {
			out = append(out, p)
		}
	}
	return out
}

// CallbackURL is the OIDC callback registered on the app client.
func (c *Config) CallbackURL() string {
	return fmt.Sprintf("https://%s/api/v2/users/oidc/callback", c.DomainName)
}

// LogoutURL is the OIDC logout URL registered on the app client.
func (c *Config) LogoutURL() string {
	return fmt.Sprintf("https://%s/api/v2/users/oidc/logout", c.DomainName)
}

// NormalizeDomain lowercases domain and drops surrounding space and the
// trailing root dot.
func NormalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
}

// ParentDomain returns everything after the first dot of domain.
// "workshop.example.com" yields "example.com".
func ParentDomain(domain string) (string, error) {
	domain = NormalizeDomain(domain)
	label, parent, ok := strings.Cut(domain, ".")
	if !ok || label == "" || parent == "" || strings.HasPrefix(parent, ".") {
		return "", fmt.Errorf("%w: %q has no parent domain", ErrInvalidDomain, domain)
	}
	return parent, nil
}
