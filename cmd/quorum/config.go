package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/KilimcininKorOglu/quorum/internal/config"
)

func newConfigCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "validate",
			Short: "Validate a configuration file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if global.configFile == "" {
					return errors.New("--config is required")
				}
				cfg, err := global.loadConfig()
				if err != nil {
					return err
				}
				if err := validate(cfg); err != nil {
					return err
				}
				printf(cmd, "Configuration is valid: %s\n", global.configFile)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := global.loadConfig()
				if err != nil {
					return err
				}
				data, err := config.Marshal(cfg)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			},
		},
	)
	return cmd
}
