package lookupcache

import (
	"context"
	"encoding/json"
	"fmt"

	"tasnim.dev/workshop-infra/internal/stacks"
)

// ZoneKey is the cache key of a hosted zone lookup.
func ZoneKey(account, region, domain string) string {
	return fmt.Sprintf("hosted-zone:account=%s:domainName=%s:region=%s", account, domain, region)
}

// CachedZoneLookup answers hosted zone lookups from the store and falls back to
// Lookup on a miss. Only successful lookups are stored. Without an Account the
// store is bypassed, since the key could not tell accounts apart.
type CachedZoneLookup struct {
	Store   *Store
	Lookup  stacks.ZoneLookup
	Account string
	Region  string
}

func (c *CachedZoneLookup) LookupHostedZone(ctx context.Context, domain string) (stacks.HostedZone, error) {
	if c.Account == "" {
		return c.Lookup.LookupHostedZone(ctx, domain)
	}
	key := ZoneKey(c.Account, c.Region, domain)

	raw, found, err := c.Store.Get(ctx, key)
	if err != nil {
		return stacks.HostedZone{}, err
	}
	if found {
		var zone stacks.HostedZone
		if err := json.Unmarshal([]byte(raw), &zone); err == nil && zone.ID != "" {
			return zone, nil
		}
	}

	zone, err := c.Lookup.LookupHostedZone(ctx, domain)
	if err != nil {
		return stacks.HostedZone{}, err
	}

	data, err := json.Marshal(zone)
	if err != nil {
		return stacks.HostedZone{}, err
	}
	if err := c.Store.Put(ctx, key, string(data)); err != nil {
		return stacks.HostedZone{}, err
	}
	return zone, nil
}
