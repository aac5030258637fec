package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"k8s.io/klog/v2"

	awsclient "tasnim.dev/workshop-infra/internal/aws"
	"tasnim.dev/workshop-infra/internal/config"
	"tasnim.dev/workshop-infra/internal/logging"
)

type globalOptions struct {
	configPath string
	profile    string
	region     string
	logLevel   string
}

// NewRootCmd returns the workshop-infra command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "workshop-infra",
		Short:         "Provision the AWS infrastructure for a Coder workshop",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Suppress klog stderr output from k8s client-go to prevent TUI corruption.
			klog.SetOutput(io.Discard)
			klog.LogToStderr(false)
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&opts.configPath, "config", "c", "", "config file (default ~/.config/workshop-infra/config.yaml)")
	f.StringVarP(&opts.profile, "profile", "p", "", "AWS profile to use")
	f.StringVarP(&opts.region, "region", "r", "", "AWS region to use")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newSynthCmd(opts),
		newDeployCmd(opts),
		newDestroyCmd(opts),
		newOutputsCmd(opts),
		newStatusCmd(opts),
		newContextCmd(opts),
	)
	return root
}

// session carries the resolved config and logger of one invocation.
type session struct {
	cfg *config.Config
	log *zap.Logger
}

// load resolves config in order: file, environment, flags.
func (o *globalOptions) load(cmd *cobra.Command) (*session, error) {
	log, err := logging.New(o.logLevel, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg.ApplyEnv()
	cfg.Merge(o.profile, o.region)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debug("config resolved",
		zap.String("cluster", cfg.ClusterName),
		zap.String("region", cfg.Region),
		zap.String("profile", cfg.Profile),
		zap.String("domain", cfg.DomainName),
		zap.Bool("certificate", cfg.CreateCertificate),
	)
	return &session{cfg: cfg, log: log}, nil
}

func (s *session) clients(ctx context.Context) (*awsclient.Clients, error) {
	clients, err := awsclient.NewClients(ctx, s.cfg.Profile, s.cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("initializing AWS client: %w", err)
	}
	s.log.Debug("aws session", zap.String("account", clients.AccountID), zap.String("region", clients.Region))
	return clients, nil
}

func (s *session) close() {
	_ = s.log.Sync()
}
