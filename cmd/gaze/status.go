package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-gaze/internal/httpc"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/web"
)

func newStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a running server's session and calibration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var st web.StatusResponse
			if err := httpc.GetJSON(ctx, apiURL("/api/status"), &st); err != nil {
				return fmt.Errorf("get status: %w", err)
			}
			var calib gaze.CalibrationProgress
			if err := httpc.GetJSON(ctx, apiURL("/api/calibration"), &calib); err != nil {
				return fmt.Errorf("get calibration: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"status": st, "calibration": calib})
			}

			s := st.Session
			fmt.Printf("Server:       %s\n", flagServer)
			fmt.Printf("Session:      %s (active=%v ready=%v)\n", orNone(st.SessionID), s.Active, s.Ready)
			fmt.Printf("Face:         %v  stable=%v\n", s.FaceDetected, s.Stable)
			if s.DwellTarget != "" {
				fmt.Printf("Dwell:        %s %.0f%%\n", s.DwellTarget, s.DwellProgress*100)
			}
			if calib.Complete {
				fmt.Printf("Calibration:  complete (%d points)\n", calib.TotalPoints)
			} else {
				fmt.Printf("Calibration:  point %d/%d, cycle %d/%d\n",
					calib.CurrentIndex+1, calib.TotalPoints, calib.CurrentCycle, calib.TotalCycles)
			}
			if p := st.Provider; p != nil {
				fmt.Printf("Provider:     connected=%v ready=%v predictions=%d\n", p.Connected, p.Ready, p.Predictions)
			}
			fmt.Printf("Observers:    %d\n", st.Observers)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON")
	return cmd
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
