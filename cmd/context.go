package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tasnim.dev/workshop-infra/internal/lookupcache"
	"tasnim.dev/workshop-infra/internal/logging"
	"tasnim.dev/workshop-infra/internal/tui/theme"
	"tasnim.dev/workshop-infra/internal/utils"
)

func newContextCmd(opts *globalOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "context",
		Short: "Inspect or clear cached lookups",
	}
	cmd.PersistentFlags().StringVar(&path, "cache", lookupcache.DefaultPath, "lookup cache database")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cached lookups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := lookupcache.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, theme.MutedStyle.Render("no cached lookups in "+store.Path()))
				return nil
			}
			for _, e := range entries {
				fmt.Fprintln(out, theme.SectionStyle.Render(e.Key))
				fmt.Fprintln(out, utils.Indent(e.Value, "  "))
				fmt.Fprintln(out, theme.MutedStyle.Render("  cached "+utils.TimeOrDash(e.UpdatedAt, utils.DateTimeSec)))
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear [key]",
		Short: "Remove one cached lookup, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.New(opts.logLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			store, err := lookupcache.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				removed, err := store.Delete(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("no cached lookup %q", args[0])
				}
				log.Info("removed cached lookup", zap.String("key", args[0]))
				return nil
			}

			n, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			log.Info("cleared lookup cache", zap.Int64("removed", n), zap.String("path", store.Path()))
			return nil
		},
	}

	cmd.AddCommand(listCmd, clearCmd)
	return cmd
}
