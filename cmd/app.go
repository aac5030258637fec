package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	awsclient "tasnim.dev/workshop-infra/internal/aws"
	"tasnim.dev/workshop-infra/internal/lookupcache"
	"tasnim.dev/workshop-infra/internal/stacks"
)

// synthesize builds both stacks. clients may be nil, in which case one is
// created only if the certificate needs a hosted zone lookup.
func (s *session) synthesize(ctx context.Context, clients *awsclient.Clients, useCache bool) ([]stacks.SynthesizedStack, stacks.Environment, error) {
	env := stacks.Environment{Region: s.cfg.Region}
	if clients != nil {
		env.Account = clients.AccountID
	}

	if broad := s.cfg.BroadWorkspacePolicies(); len(broad) > 0 && !s.cfg.AcknowledgeBroadPolicies {
		s.log.Warn("workspace role grants account-wide write access; set acknowledge_broad_policies to silence",
			zap.Strings("policies", broad))
	}

	var zones stacks.ZoneLookup
	if s.cfg.CreateCertificate {
		if clients == nil {
			var err error
			if clients, err = s.clients(ctx); err != nil {
				return nil, env, err
			}
			env.Account = clients.AccountID
		}
		zones = clients.Route53

		if useCache && clients.AccountID == "" {
			s.log.Warn("account unknown, hosted zone lookup will not be cached")
		}
		if useCache {
			store, err := lookupcache.Open(lookupcache.DefaultPath)
			if err != nil {
				return nil, env, fmt.Errorf("opening lookup cache: %w", err)
			}
			defer store.Close()
			zones = &lookupcache.CachedZoneLookup{
				Store:   store,
				Lookup:  clients.Route53,
				Account: clients.AccountID,
				Region:  clients.Region,
			}
		}
	}

	app := stacks.NewApp()
	infra, err := stacks.BuildInfrastructure(ctx, app, s.cfg, zones)
	if err != nil {
		return nil, env, err
	}
	if _, err := stacks.BuildOperator(app, infra.Cluster, s.cfg.Operator); err != nil {
		return nil, env, err
	}

	synthesized, err := app.Synth()
	if err != nil {
		return nil, env, err
	}
	for _, st := range synthesized {
		s.log.Debug("synthesized stack",
			zap.String("stack", st.Name),
			zap.Int("resources", len(st.Template.LogicalIDs())),
			zap.Strings("depends_on", st.DependsOn),
		)
	}
	return synthesized, env, nil
}

func findStack(synthesized []stacks.SynthesizedStack, name string) (stacks.SynthesizedStack, error) {
	for _, st := range synthesized {
		if st.Name == name {
			return st, nil
		}
	}
	return stacks.SynthesizedStack{}, fmt.Errorf("%w: %s", stacks.ErrUnknownStack, name)
}
