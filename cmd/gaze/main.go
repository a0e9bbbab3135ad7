// gaze runs the dwell-to-select gaze server and its companion tools.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-gaze/internal/config"
	"github.com/teslashibe/go-gaze/internal/log"
)

var (
	flagConfig   string
	flagLogLevel string
	flagServer   string
)

func main() {
	root := &cobra.Command{
		Use:   "gaze",
		Short: "Dwell-to-select gaze pipeline server",
		Long: `gaze turns a stream of noisy gaze estimates from a browser provider into
deliberate target selections: smoothing, head-motion compensation, dwell
acquisition and the 9-point calibration sequence.

Settings are read from ~/.gaze/config.json, then GAZE_* environment
variables, then flags.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Init(flagLogLevel)
		},
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", config.Path(), "Config file")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", envOr("GAZE_LOG_LEVEL", config.DefaultLogLevel), "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&flagServer, "server", config.ServerURL(config.DefaultServerURL), "Gaze server URL for client commands")

	root.AddCommand(newServeCmd(), newReplayCmd(), newMonitorCmd(), newStatusCmd(), newConfigCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and environment overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadFile(flagConfig)
	if err != nil {
		return cfg, err
	}
	config.ApplyEnv(&cfg)
	return cfg, nil
}

// wsURL maps the server's http(s) base URL to a ws(s) URL for path.
func wsURL(server, path string) string {
	u := strings.TrimRight(server, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + path
}

func apiURL(path string) string {
	return strings.TrimRight(flagServer, "/") + path
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
