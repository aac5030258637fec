package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tasnim.dev/workshop-infra/internal/aws/eks"
	"tasnim.dev/workshop-infra/internal/tui"
	"tasnim.dev/workshop-infra/internal/verify"
)

var errVerifyFailed = errors.New("verification failed")

func newStatusCmd(opts *globalOptions) *cobra.Command {
	var nodes bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the deployed infrastructure against the config",
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

			v := &verify.Verifier{
				Config:   s.cfg,
				Stacks:   clients.CloudFormation,
				Clusters: clients.EKS,
				Roles:    clients.IAM,
				Network:  clients.VPC,
				Identity: clients.Cognito,
			}
			if nodes {
				v.Nodes = func(cluster eks.Cluster) (verify.NodeCounter, error) {
					k8s, err := clients.KubernetesClient(cluster)
					if err != nil {
						return nil, err
					}
					return k8s, nil
				}
			}

			report, err := v.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderReport(report))
			if report.Failed() {
				return errVerifyFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&nodes, "nodes", false, "also check node readiness through the Kubernetes API")

	return cmd
}
