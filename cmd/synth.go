package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tasnim.dev/workshop-infra/internal/stacks"
)

func newSynthCmd(opts *globalOptions) *cobra.Command {
	var (
		outDir    string
		stackName string
		format    string
		noCache   bool
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Render the CloudFormation templates",
		Long: "Render both stacks into a cloud assembly directory, or print one template\n" +
			"with --stack. AWS is only contacted when a certificate is requested.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unknown format %q (json or yaml)", format)
			}

			s, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			synthesized, env, err := s.synthesize(cmd.Context(), nil, !noCache)
			if err != nil {
				return err
			}

			if stackName != "" {
				st, err := findStack(synthesized, stackName)
				if err != nil {
					return err
				}
				render := st.Template.JSON
				if format == "yaml" {
					render = st.Template.YAML
				}
				body, err := render()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(body)
				return err
			}

			if err := stacks.WriteAssembly(outDir, env, synthesized); err != nil {
				return err
			}
			names := make([]string, 0, len(synthesized))
			for _, st := range synthesized {
				names = append(names, st.Name)
			}
			s.log.Info("wrote cloud assembly",
				zap.String("dir", outDir),
				zap.Strings("stacks", names),
				zap.String("environment", env.String()),
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "cdk.out", "assembly output directory")
	cmd.Flags().StringVarP(&stackName, "stack", "s", "", "print only this stack's template to stdout")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "template format for --stack (json or yaml)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "skip the hosted zone lookup cache")

	return cmd
}
