package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/gridstorm/internal/input/keymap"
	"github.com/dshills/gridstorm/internal/plugin/lua"
)

func newKeysCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List the effective key bindings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			km, err := keymap.FromMap("default", cfg.Keymap)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, b := range km.Bindings() {
				fmt.Fprintf(tw, "%s\t%s\n", b.Keys, b.Target)
			}
			return tw.Flush()
		},
	}
}

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and script plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if cfg.Plugins.Dir != "" {
				manifests, err := lua.Discover(cfg.Plugins.Dir)
				for _, m := range manifests {
					fmt.Fprintf(cmd.OutOrStdout(), "plugin %s %s\n", m.Name, m.Version)
				}
				if err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration ok")
			return nil
		},
	}
}
