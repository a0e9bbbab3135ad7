package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-gaze/internal/config"
)

func newConfigCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration, or write it to the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return showConfig(cmd.OutOrStdout(), cfg, flagConfig, write)
		},
	}

	cmd.Flags().BoolVar(&write, "write", false, "Save the effective configuration to --config")
	return cmd
}

// showConfig validates cfg and prints it. With write set it is saved to
// path instead, so env overrides can be turned into a file.
func showConfig(w io.Writer, cfg config.Config, path string, write bool) error {
	if _, err := cfg.Gaze(); err != nil {
		return err
	}
	if write {
		if err := config.Save(path, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Fprintf(w, "Wrote %s\n", path)
		return nil
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}
