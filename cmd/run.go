package cmd

import (
	"context"
	"os"

	tea "charm.land/bubbletea/v2"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"tasnim.dev/workshop-infra/internal/deploy"
	"tasnim.dev/workshop-infra/internal/tui"
)

type runFunc func(ctx context.Context, report func(deploy.Progress)) error

// interactive reports whether stdout is a terminal the TUI can own.
func interactive() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// runWithTUI streams progress into the bubbletea model while run executes in
// the background. Quitting the model cancels run.
func runWithTUI(ctx context.Context, header tui.Header, run runFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan deploy.Progress, 64)
	errc := make(chan error, 1)
	go func() {
		defer close(updates)
		errc <- run(ctx, func(p deploy.Progress) {
			select {
			case updates <- p:
			case <-ctx.Done():
			}
		})
	}()

	model := tui.NewModel(header, updates, cancel)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		cancel()
		<-errc
		return err
	}
	return <-errc
}

// logProgress writes progress as structured log lines.
func logProgress(log *zap.Logger) func(deploy.Progress) {
	return func(p deploy.Progress) {
		if e := p.Event; e != nil {
			fields := []zap.Field{
				zap.String("stack", p.Stack),
				zap.String("resource", e.LogicalID),
				zap.String("type", e.ResourceType),
				zap.String("status", e.Status),
			}
			if e.Reason != "" {
				fields = append(fields, zap.String("reason", e.Reason))
			}
			log.Info("stack event", fields...)
			return
		}

		fields := []zap.Field{zap.String("stack", p.Stack), zap.String("phase", string(p.Phase))}
		if p.Status != "" {
			fields = append(fields, zap.String("status", p.Status))
		}
		if p.Err != nil {
			log.Error("stack failed", append(fields, zap.Error(p.Err))...)
			return
		}
		log.Info("stack", fields...)
	}
}
