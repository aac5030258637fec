package route53

import (
	"context"
	"errors"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsr53 "github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasnim.dev/workshop-infra/internal/stacks"
)

type mockRoute53API struct {
	listHostedZonesByNameFunc func(ctx context.Context, params *awsr53.ListHostedZonesByNameInput, optFns ...func(*awsr53.Options)) (*awsr53.ListHostedZonesByNameOutput, error)
}

func (m *mockRoute53API) ListHostedZonesByName(ctx context.Context, params *awsr53.ListHostedZonesByNameInput, optFns ...func(*awsr53.Options)) (*awsr53.ListHostedZonesByNameOutput, error) {
	return m.listHostedZonesByNameFunc(ctx, params, optFns...)
}

func zone(id, name string, private bool) r53types.HostedZone {
	return r53types.HostedZone{
		Id:     awssdk.String("/hostedzone/" + id),
		Name:   awssdk.String(name),
		Config: &r53types.HostedZoneConfig{PrivateZone: private},
	}
}

func TestLookupHostedZone(t *testing.T) {
	mock := &mockRoute53API{
		listHostedZonesByNameFunc: func(ctx context.Context, params *awsr53.ListHostedZonesByNameInput, optFns ...func(*awsr53.Options)) (*awsr53.ListHostedZonesByNameOutput, error) {
			assert.Equal(t, "example.org.", awssdk.ToString(params.DNSName))
			return &awsr53.ListHostedZonesByNameOutput{
				HostedZones: []r53types.HostedZone{
					zone("ZPRIVATE", "example.org.", true),
					zone("ZPUBLIC", "example.org.", false),
					zone("ZOTHER", "examples.org.", false),
				},
			}, nil
		},
	}

	got, err := NewClient(mock).LookupHostedZone(context.Background(), "example.org")
	require.NoError(t, err)
	assert.Equal(t, stacks.HostedZone{ID: "ZPUBLIC", Name: "example.org."}, got)
}

func TestLookupHostedZone_NotFound(t *testing.T) {
	mock := &mockRoute53API{
		listHostedZonesByNameFunc: func(ctx context.Context, params *awsr53.ListHostedZonesByNameInput, optFns ...func(*awsr53.Options)) (*awsr53.ListHostedZonesByNameOutput, error) {
			return &awsr53.ListHostedZonesByNameOutput{
				HostedZones: []r53types.HostedZone{zone("ZOTHER", "other.org.", false)},
			}, nil
		},
	}

	_, err := NewClient(mock).LookupHostedZone(context.Background(), "example.org")
	assert.ErrorIs(t, err, stacks.ErrHostedZoneNotFound)
}

func TestLookupHostedZone_OnlyPrivate(t *testing.T) {
	mock := &mockRoute53API{
		listHostedZonesByNameFunc: func(ctx context.Context, params *awsr53.ListHostedZonesByNameInput, optFns ...func(*awsr53.Options)) (*awsr53.ListHostedZonesByNameOutput, error) {
			return &awsr53.ListHostedZonesByNameOutput{
				HostedZones: []r53types.HostedZone{zone("ZPRIVATE", "example.org.", true)},
			}, nil
		},
	}

	_, err := NewClient(mock).LookupHostedZone(context.Background(), "example.org.")
	assert.ErrorIs(t, err, stacks.ErrHostedZoneNotFound)
}

func TestLookupHostedZone_FollowsPages(t *testing.T) {
	calls := 0
	mock := &mockRoute53API{
		listHostedZonesByNameFunc: func(ctx context.Context, params *awsr53.ListHostedZonesByNameInput, optFns ...func(*awsr53.Options)) (*awsr53.ListHostedZonesByNameOutput, error) {
			calls++
			if calls == 1 {
				return &awsr53.ListHostedZonesByNameOutput{
					HostedZones:      []r53types.HostedZone{zone("ZPRIVATE", "example.org.", true)},
					IsTruncated:      true,
					NextDNSName:      awssdk.String("example.org."),
					NextHostedZoneId: awssdk.String("ZPUBLIC"),
				}, nil
			}
			assert.Equal(t, "ZPUBLIC", awssdk.ToString(params.HostedZoneId))
			return &awsr53.ListHostedZonesByNameOutput{
				HostedZones: []r53types.HostedZone{zone("ZPUBLIC", "example.org.", false)},
			}, nil
		},
	}

	got, err := NewClient(mock).LookupHostedZone(context.Background(), "example.org")
	require.NoError(t, err)
	assert.Equal(t, "ZPUBLIC", got.ID)
	assert.Equal(t, 2, calls)
}

func TestLookupHostedZone_APIError(t *testing.T) {
	mock := &mockRoute53API{
		listHostedZonesByNameFunc: func(ctx context.Context, params *awsr53.ListHostedZonesByNameInput, optFns ...func(*awsr53.Options)) (*awsr53.ListHostedZonesByNameOutput, error) {
			return nil, errors.New("AccessDenied")
		},
	}

	_, err := NewClient(mock).LookupHostedZone(context.Background(), "example.org")
	require.Error(t, err)
	assert.NotErrorIs(t, err, stacks.ErrHostedZoneNotFound)
}
