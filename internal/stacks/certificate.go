package stacks

import (
	"context"
	"errors"
	"fmt"

	"tasnim.dev/workshop-infra/internal/cfn"
	"tasnim.dev/workshop-infra/internal/config"
)

// ErrHostedZoneNotFound is returned when no public hosted zone exists for the
// parent domain of the certificate.
var ErrHostedZoneNotFound = errors.New("hosted zone not found")

// HostedZone is the result of a hosted zone lookup.
type HostedZone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ZoneLookup resolves the public hosted zone for a domain name at synth time.
type ZoneLookup interface {
	LookupHostedZone(ctx context.Context, domain string) (HostedZone, error)
}

// declareCertificate looks up the zone of the domain's parent and adds a
// DNS-validated certificate for the full domain.
func declareCertificate(ctx context.Context, t *cfn.Template, domain string, zones ZoneLookup) (string, error) {
	parent, err := config.ParentDomain(domain)
	if err != nil {
		return "", err
	}
	if zones == nil {
		return "", fmt.Errorf("looking up hosted zone %s: no lookup configured", parent)
	}

	zone, err := zones.LookupHostedZone(ctx, parent)
	if err != nil {
		return "", fmt.Errorf("looking up hosted zone %s: %w", parent, err)
	}
	if zone.ID == "" {
		return "", fmt.Errorf("%w: %s", ErrHostedZoneNotFound, parent)
	}

	t.Add(LogicalCertificate, "AWS::CertificateManager::Certificate", map[string]any{
		"DomainName":       domain,
		"ValidationMethod": "DNS",
		"DomainValidationOptions": []any{
			map[string]any{"DomainName": domain, "HostedZoneId": zone.ID},
		},
		"Tags": []any{cfn.Tag("Name", cfn.Sub("${AWS::StackName}/"+LogicalCertificate))},
	})
	return LogicalCertificate, nil
}
