package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"macstat/internal/config"
)

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration as TOML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := a.setup()
				if err != nil {
					return err
				}
				return config.Encode(a.stdout, cfg)
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write the default configuration unless a file exists",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path := a.resolvedConfigPath()
				_, created, err := config.LoadOrCreate(path)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(a.stdout, "Wrote default configuration to %s\n", path)
				} else {
					fmt.Fprintf(a.stdout, "Configuration already exists at %s\n", path)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file path",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				path := a.resolvedConfigPath()
				if _, err := os.Stat(path); err != nil {
					fmt.Fprintf(a.stdout, "%s (not created)\n", path)
					return
				}
				fmt.Fprintln(a.stdout, path)
			},
		},
	)
	return cmd
}

func (a *app) resolvedConfigPath() string {
	if a.configPath != "" {
		return a.configPath
	}
	return config.ConfigPath()
}
