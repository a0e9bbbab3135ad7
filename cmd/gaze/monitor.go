package main

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/internal/monitor"
	"github.com/teslashibe/go-gaze/pkg/gaze"
)

func newMonitorCmd() *cobra.Command {
	var kinds []string

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Live terminal view of a server's event stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			// the TUI owns the terminal; keep logs off it
			log.InitWriter(io.Discard, flagLogLevel)

			p := tea.NewProgram(monitor.New(flagServer), tea.WithAltScreen())

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			subscribed := make([]gaze.EventKind, len(kinds))
			for i, k := range kinds {
				subscribed[i] = gaze.EventKind(k)
			}
			go monitor.Stream(ctx, wsURL(flagServer, "/ws/events"), subscribed, p.Send)

			_, err := p.Run()
			return err
		},
	}

	cmd.Flags().StringSliceVar(&kinds, "kinds", nil, "Only stream these event kinds, e.g. activated,calibration_progress")
	return cmd
}
