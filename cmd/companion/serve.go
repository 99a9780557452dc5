package main

import (
	"context"
	"time"

	"github.com/printbridge/companion/internal/infrastructure/config"
	"github.com/printbridge/companion/internal/interfaces/protocol"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the companion until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			var launch *protocol.LaunchRequest
			if session != "" {
				launch = &protocol.LaunchRequest{Action: protocol.ActionOpen, Session: session}
			}
			return runServe(cmd.Context(), cfg, launch)
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "show the working surface for this session once started")
	return cmd
}

// runServe starts the companion and blocks until ctx is cancelled or the
// listener dies. A launch request shows the surface right after startup; an
// empty session in it shows the most recent job.
func runServe(ctx context.Context, cfg *config.Config, launch *protocol.LaunchRequest) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	log := a.logger
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		a.shutdown(shutdownCtx)
	}()

	if err := a.start(ctx); err != nil {
		return err
	}

	if launch != nil {
		go func() {
			shown, err := a.orch.RequestSurface(ctx, launch.Session)
			if err != nil {
				log.Warn("Failed to show surface at startup", zap.String("session", launch.Session), zap.Error(err))
				return
			}
			log.Info("Surface shown at startup", zap.String("session", shown))
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("Shutting down companion...")
	case <-a.server.Done():
		log.Warn("Listener stopped; shutting down")
	}
	return nil
}
