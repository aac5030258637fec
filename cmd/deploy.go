package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	awsclient "tasnim.dev/workshop-infra/internal/aws"
	"tasnim.dev/workshop-infra/internal/aws/cloudformation"
	"tasnim.dev/workshop-infra/internal/deploy"
	"tasnim.dev/workshop-infra/internal/stacks"
	"tasnim.dev/workshop-infra/internal/tui"
	"tasnim.dev/workshop-infra/internal/utils"
)

func newDeployCmd(opts *globalOptions) *cobra.Command {
	var (
		noTUI   bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create or update both stacks and print the operator commands",
		RunE: func(cmd *cobra.Command, args []string) error {
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
			synthesized, _, err := s.synthesize(ctx, clients, !noCache)
			if err != nil {
				return err
			}

			runner := deploy.NewRunner(clients.CloudFormation)
			run := func(ctx context.Context, report func(deploy.Progress)) error {
				return runner.Deploy(ctx, synthesized, report)
			}
			if err := s.execute(ctx, clients, "deploy", !noTUI, run); err != nil {
				return err
			}

			return printOutputs(ctx, cmd, s, clients, synthesized)
		},
	}

	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "log progress instead of showing the interactive view")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "skip the hosted zone lookup cache")

	return cmd
}

// execute runs a deploy or destroy through the TUI on a terminal and through
// the logger otherwise.
func (s *session) execute(ctx context.Context, clients *awsclient.Clients, action string, allowTUI bool, run runFunc) error {
	if allowTUI && interactive() {
		return runWithTUI(ctx, tui.Header{
			Action:    action,
			Profile:   s.cfg.Profile,
			Region:    clients.Region,
			AccountID: clients.AccountID,
		}, run)
	}
	s.log.Info("starting "+action, zap.String("account", clients.AccountID), zap.String("region", clients.Region))
	return run(ctx, logProgress(s.log))
}

func printOutputs(ctx context.Context, cmd *cobra.Command, s *session, clients *awsclient.Clients, synthesized []stacks.SynthesizedStack) error {
	out := cmd.OutOrStdout()
	for _, st := range synthesized {
		deployed, err := clients.CloudFormation.DescribeStack(ctx, st.Name)
		if errors.Is(err, cloudformation.ErrStackNotFound) {
			s.log.Warn("stack not deployed", zap.String("stack", st.Name))
			continue
		}
		if err != nil {
			return err
		}
		s.log.Debug("stack described", zap.String("stack", utils.SecondToLast(deployed.ID)), zap.String("id", deployed.ID))
		fmt.Fprintln(out, tui.RenderOutputs(deployed))
	}
	return nil
}
