package route53

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsr53 "github.com/aws/aws-sdk-go-v2/service/route53"

	"tasnim.dev/workshop-infra/internal/stacks"
)

type Route53API interface {
	ListHostedZonesByName(ctx context.Context, params *awsr53.ListHostedZonesByNameInput, optFns ...func(*awsr53.Options)) (*awsr53.ListHostedZonesByNameOutput, error)
}

type Client struct {
	api Route53API
}

func NewClient(api Route53API) *Client {
	return &Client{api: api}
}

// LookupHostedZone returns the public hosted zone named exactly domain.
// Private zones with the same name are skipped.
func (c *Client) LookupHostedZone(ctx context.Context, domain string) (stacks.HostedZone, error) {
	want := strings.TrimSuffix(strings.ToLower(domain), ".") + "."

	input := &awsr53.ListHostedZonesByNameInput{DNSName: aws.String(want)}
	for {
		out, err := c.api.ListHostedZonesByName(ctx, input)
		if err != nil {
			return stacks.HostedZone{}, fmt.Errorf("ListHostedZonesByName(%s): %w", domain, err)
		}

		for _, z := range out.HostedZones {
			name := strings.ToLower(aws.ToString(z.Name))
			if name != want {
				// Zones are sorted by name starting at DNSName; nothing
				// further can match.
				return stacks.HostedZone{}, fmt.Errorf("%w: %s", stacks.ErrHostedZoneNotFound, domain)
			}
			if z.Config != nil && z.Config.PrivateZone {
				continue
			}
			return stacks.HostedZone{
				ID:   strings.TrimPrefix(aws.ToString(z.Id), "/hostedzone/"),
				Name: aws.ToString(z.Name),
			}, nil
		}

		if !out.IsTruncated {
			break
		}
		input = &awsr53.ListHostedZonesByNameInput{
			DNSName:      out.NextDNSName,
			HostedZoneId: out.NextHostedZoneId,
		}
	}

	return stacks.HostedZone{}, fmt.Errorf("%w: %s", stacks.ErrHostedZoneNotFound, domain)
}
