package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tasnim.dev/workshop-infra/internal/aws/cloudformation"
	"tasnim.dev/workshop-infra/internal/stacks"
	"tasnim.dev/workshop-infra/internal/tui"
)

func newOutputsCmd(opts *globalOptions) *cobra.Command {
	var (
		stackName string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "outputs",
		Short: "Show the outputs of the deployed stacks",
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

			names := []string{stacks.InfrastructureStackName, stacks.OperatorStackName}
			if stackName != "" {
				names = []string{stackName}
			}

			all := make(map[string]map[string]string, len(names))
			out := cmd.OutOrStdout()
			for _, name := range names {
				st, err := clients.CloudFormation.DescribeStack(ctx, name)
				if errors.Is(err, cloudformation.ErrStackNotFound) {
					s.log.Warn("stack not deployed", zap.String("stack", name))
					continue
				}
				if err != nil {
					return err
				}

				if asJSON {
					values := make(map[string]string, len(st.Outputs))
					for _, o := range st.Outputs {
						values[o.Key] = o.Value
					}
					all[name] = values
					continue
				}
				fmt.Fprintln(out, tui.RenderOutputs(st))
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(all)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&stackName, "stack", "s", "", "show only this stack")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print outputs as JSON keyed by stack")

	return cmd
}
