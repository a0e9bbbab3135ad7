package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-gaze/internal/httpc"
	"github.com/teslashibe/go-gaze/internal/replay"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/protocol"
)

func newReplayCmd() *cobra.Command {
	var (
		trace    string
		record   string
		fixation string
		jitter   float64
		duration time.Duration
		speed    float64
		screen   string
		targets  []string
		activate bool
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Stream a recorded or synthetic gaze trace to a running server",
		Example: `  gaze replay --fixation 500,500 --target next:400,400,200,200 --activate
  gaze replay --trace session.jsonl --speed 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			frames, err := loadFrames(trace, fixation, jitter, duration)
			if err != nil {
				return err
			}
			if record != "" {
				f, err := os.Create(record)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := replay.WriteTrace(f, frames); err != nil {
					return fmt.Errorf("write trace: %w", err)
				}
			}

			w, h, err := parseSize(screen)
			if err != nil {
				return err
			}
			tds := make([]protocol.TargetData, 0, len(targets))
			for _, spec := range targets {
				td, err := parseTarget(spec)
				if err != nil {
					return err
				}
				tds = append(tds, td)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			client, err := replay.Dial(ctx, wsURL(flagServer, "/ws/provider"), nil)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Announce(w, h, tds); err != nil {
				return err
			}
			if activate {
				if err := activateSession(ctx); err != nil {
					return err
				}
			}

			if err := client.Play(ctx, frames, speed); err != nil {
				return err
			}

			// let the server's last responses arrive
			time.Sleep(200 * time.Millisecond)
			st := client.Stats()
			fmt.Printf("sent %d messages, received %d train, %d refresh, %d activations\n",
				st.Sent, st.Train, st.Refresh, st.Activated)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&trace, "trace", "", "JSONL trace file to replay")
	f.StringVar(&record, "record", "", "Also write the frames to this JSONL file")
	f.StringVar(&fixation, "fixation", "", "Synthesize a fixation at x,y instead of reading a trace")
	f.Float64Var(&jitter, "jitter", 20, "Fixation jitter radius (px)")
	f.DurationVar(&duration, "duration", 3*time.Second, "Fixation length")
	f.Float64Var(&speed, "speed", 1, "Playback speed; 0 sends as fast as possible")
	f.StringVar(&screen, "screen", "1920x1080", "Screen size WxH")
	f.StringArrayVar(&targets, "target", nil, "Target id:x,y,w,h (repeatable)")
	f.BoolVar(&activate, "activate", false, "Activate the session before playing")

	return cmd
}

func loadFrames(trace, fixation string, jitter float64, duration time.Duration) ([]replay.Frame, error) {
	switch {
	case trace != "" && fixation != "":
		return nil, fmt.Errorf("--trace and --fixation are mutually exclusive")
	case trace != "":
		f, err := os.Open(trace)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return replay.ReadTrace(f)
	case fixation != "":
		xy, err := parseFloats(fixation, 2)
		if err != nil {
			return nil, fmt.Errorf("--fixation: %w", err)
		}
		fx := replay.DefaultFixation(gaze.Point{X: xy[0], Y: xy[1]})
		fx.Jitter = jitter
		fx.Duration = duration
		return fx.Frames(), nil
	default:
		return nil, fmt.Errorf("one of --trace or --fixation is required")
	}
}

func activateSession(ctx context.Context) error {
	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := httpc.PostJSON(ctx, apiURL("/api/session/activate"), nil, &resp); err != nil {
		return fmt.Errorf("activate session: %w", err)
	}
	fmt.Printf("session %s active\n", resp.SessionID)
	return nil
}

func parseSize(s string) (float64, float64, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid screen size %q, want WxH", s)
	}
	fw, err1 := strconv.ParseFloat(w, 64)
	fh, err2 := strconv.ParseFloat(h, 64)
	if err1 != nil || err2 != nil || fw <= 0 || fh <= 0 {
		return 0, 0, fmt.Errorf("invalid screen size %q, want WxH", s)
	}
	return fw, fh, nil
}

func parseTarget(s string) (protocol.TargetData, error) {
	id, rect, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return protocol.TargetData{}, fmt.Errorf("invalid target %q, want id:x,y,w,h", s)
	}
	v, err := parseFloats(rect, 4)
	if err != nil {
		return protocol.TargetData{}, fmt.Errorf("target %s: %w", id, err)
	}
	return protocol.TargetData{
		ID:      id,
		Rect:    gaze.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]},
		Visible: true,
		Enabled: true,
	}, nil
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma-separated numbers, got %q", n, s)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
