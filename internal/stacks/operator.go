package stacks

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"tasnim.dev/workshop-infra/internal/cfn"
	"tasnim.dev/workshop-infra/internal/config"
)

// Output names of the operator stack.
const (
	OutputInstallPostgres = "InstallPostgresCommand"
	OutputCreateDbSecret  = "CreateDbSecretCommand"
	OutputInstallCoder    = "InstallCoderCommand"
)

const (
	postgresRepoName = "bitnami"
	coderRepoName    = "coder-v2"
	coderRelease     = "coder"

	// CloudFormation rejects templates without resources.
	placeholderID = "OperatorPlaceholder"
)

// ErrInvalidClusterRef is returned by BuildOperator for a zero ClusterRef.
var ErrInvalidClusterRef = errors.New("invalid cluster reference")

// BuildOperator declares a stack whose only payload is the helm and kubectl
// commands an operator runs against the cluster. The cluster reference orders
// this stack after the infrastructure stack and is not otherwise read.
func BuildOperator(app *App, cluster ClusterRef, op config.OperatorConfig) (*Stack, error) {
	if !cluster.Valid() {
		return nil, ErrInvalidClusterRef
	}

	s, err := app.NewStack(OperatorStackName, "Operator commands for installing Coder on the workshop cluster")
	if err != nil {
		return nil, err
	}
	if err := app.AddDependency(s, cluster.stack); err != nil {
		return nil, err
	}

	t := s.Template
	t.Add(placeholderID, "AWS::CloudFormation::WaitConditionHandle", nil)

	t.AddOutput(OutputInstallPostgres, cfn.Output{
		Value:       InstallPostgresCommand(op),
		Description: "Install PostgreSQL for Coder",
	})
	t.AddOutput(OutputCreateDbSecret, cfn.Output{
		Value:       CreateDbSecretCommand(op),
		Description: "Create the database URL secret",
	})
	t.AddOutput(OutputInstallCoder, cfn.Output{
		Value:       InstallCoderCommand(op),
		Description: "Install Coder",
	})
	return s, nil
}

// continued joins command lines with shell line continuations.
func continued(indent string, lines ...string) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteString(" \\\n")
			b.WriteString(indent)
		}
		b.WriteString(l)
	}
	return b.String()
}

// shellQuote returns s as one shell word. Plain words pass through, words
// without double-quote specials are double-quoted, anything else is
// single-quoted.
func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, func(r rune) bool { return !plainShellRune(r) }) < 0 {
		return s
	}
	if !strings.ContainsAny(s, "$`\\\"!'") {
		return `"` + s + `"`
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func plainShellRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("-_./:=@%+,", r)
}

// helmSet renders a --set flag. Backslashes and commas in the value are
// escaped so helm reads it as a single value.
func helmSet(key, value string) string {
	value = strings.NewReplacer(`\`, `\\`, ",", `\,`).Replace(value)
	return "--set " + shellQuote(key+"="+value)
}

// InstallPostgresCommand creates the namespace and installs the PostgreSQL
// chart with the configured credentials.
func InstallPostgresCommand(op config.OperatorConfig) string {
	return strings.Join([]string{
		"kubectl create namespace " + shellQuote(op.Namespace),
		fmt.Sprintf("helm repo add %s %s", postgresRepoName, shellQuote(op.PostgresRepoURL)),
		continued("    ",
			fmt.Sprintf("helm install %s %s/postgresql", shellQuote(op.PostgresRelease), postgresRepoName),
			"--namespace "+shellQuote(op.Namespace),
			helmSet("auth.username", op.DatabaseUser),
			helmSet("auth.password", op.DatabasePassword),
			helmSet("auth.database", op.DatabaseName),
			helmSet("persistence.size", op.PersistenceSize),
		),
	}, "\n")
}

// DatabaseURL is the in-cluster connection string of the PostgreSQL release.
func DatabaseURL(op config.OperatorConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(op.DatabaseUser, op.DatabasePassword),
		Host:     fmt.Sprintf("%s-postgresql.%s.svc.cluster.local:5432", op.PostgresRelease, op.Namespace),
		Path:     "/" + op.DatabaseName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// CreateDbSecretCommand stores DatabaseURL in the secret Coder reads.
func CreateDbSecretCommand(op config.OperatorConfig) string {
	return continued("  ",
		fmt.Sprintf("kubectl create secret generic %s -n %s", shellQuote(op.DatabaseSecretName), shellQuote(op.Namespace)),
		"--from-literal=url="+shellQuote(DatabaseURL(op)),
	)
}

// InstallCoderCommand adds the Coder chart repository and installs the
// pinned chart version with the values file.
func InstallCoderCommand(op config.OperatorConfig) string {
	return strings.Join([]string{
		fmt.Sprintf("helm repo add %s %s", coderRepoName, shellQuote(op.CoderRepoURL)),
		continued("    ",
			fmt.Sprintf("helm install %s %s/coder", coderRelease, coderRepoName),
			"--namespace "+shellQuote(op.Namespace),
			"--values "+shellQuote(op.CoderValuesFile),
			"--version "+shellQuote(op.CoderVersion),
		),
	}, "\n")
}
