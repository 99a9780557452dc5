package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/printbridge/companion/internal/infrastructure/config"
	"github.com/printbridge/companion/internal/interfaces/http/dto"
	"github.com/printbridge/companion/internal/interfaces/http/server"
	"github.com/printbridge/companion/internal/interfaces/protocol"
	"github.com/spf13/cobra"
)

const forwardTimeout = 30 * time.Second

func newOpenCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open <launch-url>",
		Short: "Show the working surface for a launch URL",
		Long: `open parses a launch URL such as printbridge://print?session=<id>.
When a companion is already running the request is forwarded to it and open
exits; otherwise the companion is started in this process.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return runOpen(cmd.Context(), cfg, args[0])
		},
	}
}

func runOpen(ctx context.Context, cfg *config.Config, raw string) error {
	launch, err := protocol.Parse(raw, cfg.App.Scheme)
	if err != nil {
		return err
	}

	if base, ok := server.FindRunning(ctx, cfg.HTTP, nil); ok {
		return forwardSurfaceRequest(ctx, base, launch.Session)
	}
	return runServe(ctx, cfg, launch)
}

// forwardSurfaceRequest asks the running instance to show session
func forwardSurfaceRequest(ctx context.Context, base, session string) error {
	target := base + "/surface"
	if session != "" {
		target += "?session=" + url.QueryEscape(session)
	}

	ctx, cancel := context.WithTimeout(ctx, forwardTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach running companion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body dto.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
			return fmt.Errorf("running companion refused the request: %s", body.Error)
		}
		return fmt.Errorf("running companion answered %s", resp.Status)
	}
	return nil
}
