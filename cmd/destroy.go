package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tasnim.dev/workshop-infra/internal/deploy"
)

var errNotConfirmed = errors.New("refusing to destroy without --yes")

func newDestroyCmd(opts *globalOptions) *cobra.Command {
	var (
		yes   bool
		noTUI bool
	)

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete both stacks, dependents first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errNotConfirmed
			}

			s, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			ctx := cmd.Context()
			clients, err := s.clients(ctx)
			if err != nil {
				return err
			}
			// Deletion only needs names and order; skip the zone lookup.
			s.cfg.CreateCertificate = false
			synthesized, _, err := s.synthesize(ctx, clients, false)
			if err != nil {
				return err
			}

			runner := deploy.NewRunner(clients.CloudFormation)
			run := func(ctx context.Context, report func(deploy.Progress)) error {
				return runner.Destroy(ctx, synthesized, report)
			}
			if err := s.execute(ctx, clients, "destroy", !noTUI, run); err != nil {
				return err
			}
			s.log.Info("stacks deleted", zap.Int("count", len(synthesized)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion of all workshop resources")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "log progress instead of showing the interactive view")

	return cmd
}
