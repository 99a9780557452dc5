package main

import (
	"fmt"

	"github.com/printbridge/companion/internal/buildinfo"
	"github.com/printbridge/companion/internal/infrastructure/config"
	"github.com/printbridge/companion/internal/interfaces/protocol"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	logLevel string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "companion [launch-url]",
		Short: "Local print companion for web pages",
		Long: `companion accepts print jobs from web pages on a loopback port, shows them
in a working surface window and renders them to fixed-size PDFs.

Run without arguments it serves until interrupted. When the OS hands it a
launch URL (printbridge://print?session=<id>) it behaves like "open".`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		Args:         cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if !protocol.IsLaunchURL(args[0], cfg.App.Scheme) {
					return fmt.Errorf("unexpected argument %q", args[0])
				}
				return runOpen(cmd.Context(), cfg, args[0])
			}
			return runServe(cmd.Context(), cfg, nil)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	root.AddCommand(newServeCommand(opts))
	root.AddCommand(newOpenCommand(opts))
	root.AddCommand(newVersionCommand())

	return root
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	return cfg, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", buildinfo.Name, buildinfo.String())
		},
	}
}
