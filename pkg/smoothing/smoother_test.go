package smoothing

import (
	"math"
	"testing"
	"time"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func rawConfig() gaze.Config {
	cfg := gaze.DefaultConfig()
	cfg.ExtraSmoothing = false
	return cfg
}

func TestSmoother_NoOutputBelowMinSamples(t *testing.T) {
	s := New(gaze.DefaultConfig())

	for i := 0; i < 9; i++ {
		if _, ok := s.Push(gaze.Point{X: 500, Y: 500}, t0.Add(time.Duration(i)*30*time.Millisecond)); ok {
			t.Fatalf("Expected no stabilized point with %d samples", i+1)
		}
	}

	if _, ok := s.Push(gaze.Point{X: 500, Y: 500}, t0.Add(270*time.Millisecond)); !ok {
		t.Error("Expected a stabilized point at MinSamples")
	}
}

func TestSmoother_StableAroundFixation(t *testing.T) {
	s := New(gaze.DefaultConfig())

	for i := 0; i < 40; i++ {
		angle := float64(i) * 37 * math.Pi / 180
		p := gaze.Point{X: 500 + 45*math.Cos(angle), Y: 500 + 45*math.Sin(angle)}

		sp, ok := s.Push(p, t0.Add(time.Duration(i)*33*time.Millisecond))
		if i < 9 {
			continue
		}
		if !ok {
			t.Fatalf("tick %d: expected stabilized point", i)
		}
		if !s.IsStable(sp) {
			t.Errorf("tick %d: expected stable, dispersion=(%.1f, %.1f)", i, sp.DispersionX, sp.DispersionY)
		}
		if sp.DispersionX >= 50 || sp.DispersionY >= 50 {
			t.Errorf("tick %d: dispersion above tolerance: (%.1f, %.1f)", i, sp.DispersionX, sp.DispersionY)
		}
	}
}

func TestSmoother_UnstableWhenScattered(t *testing.T) {
	s := New(rawConfig())

	var sp gaze.StabilizedPoint
	var ok bool
	for i := 0; i < 12; i++ {
		x := 100.0
		if i%2 == 0 {
			x = 900
		}
		sp, ok = s.Push(gaze.Point{X: x, Y: 400}, t0.Add(time.Duration(i)*30*time.Millisecond))
	}
	if !ok {
		t.Fatal("Expected stabilized point")
	}
	if s.IsStable(sp) {
		t.Errorf("Expected unstable gaze, dispersionX=%.1f", sp.DispersionX)
	}
}

func TestSmoother_WeightedMovingAverage(t *testing.T) {
	cfg := rawConfig()
	cfg.MinSamples = 3
	cfg.WindowSize = 3
	s := New(cfg)

	s.Push(gaze.Point{X: 0}, t0)
	s.Push(gaze.Point{X: 3}, t0.Add(10*time.Millisecond))
	sp, ok := s.Push(gaze.Point{X: 6}, t0.Add(20*time.Millisecond))
	if !ok {
		t.Fatal("Expected stabilized point")
	}

	// (0*1 + 3*2 + 6*3) / 6
	if math.Abs(sp.X-4) > 1e-9 {
		t.Errorf("Expected weighted mean 4, got %v", sp.X)
	}
	// population deviation about 4: sqrt((16+1+4)/3)
	if math.Abs(sp.DispersionX-math.Sqrt(7)) > 1e-9 {
		t.Errorf("Expected dispersion sqrt(7), got %v", sp.DispersionX)
	}
	if sp.DispersionY != 0 {
		t.Errorf("Expected zero Y dispersion, got %v", sp.DispersionY)
	}
}

func TestSmoother_UsesMostRecentWindow(t *testing.T) {
	cfg := rawConfig()
	cfg.MinSamples = 2
	cfg.WindowSize = 2
	s := New(cfg)

	s.Push(gaze.Point{X: 100}, t0)
	s.Push(gaze.Point{X: 0}, t0.Add(10*time.Millisecond))
	sp, _ := s.Push(gaze.Point{X: 10}, t0.Add(20*time.Millisecond))

	want := 20.0 / 3
	if math.Abs(sp.X-want) > 1e-9 {
		t.Errorf("Expected %v, got %v", want, sp.X)
	}
}

func TestSmoother_ExpiresOldSamples(t *testing.T) {
	cfg := rawConfig()
	cfg.MinSamples = 2
	s := New(cfg)

	s.Push(gaze.Point{X: 1, Y: 1}, t0)
	if _, ok := s.Push(gaze.Point{X: 1, Y: 1}, t0.Add(1500*time.Millisecond)); ok {
		t.Error("sample exactly at the horizon should have expired")
	}
	if s.Buffered() != 1 {
		t.Errorf("Expected 1 buffered sample, got %d", s.Buffered())
	}

	if _, ok := s.Push(gaze.Point{X: 1, Y: 1}, t0.Add(1600*time.Millisecond)); !ok {
		t.Error("Expected stabilized point from two recent samples")
	}
}

func TestSmoother_ExponentialSmoothing(t *testing.T) {
	s := New(gaze.DefaultConfig())

	if p := s.Smooth(gaze.Point{X: 0, Y: 0}); p.X != 0 {
		t.Errorf("first point should pass through, got %+v", p)
	}
	if p := s.Smooth(gaze.Point{X: 100, Y: 0}); math.Abs(p.X-30) > 1e-9 {
		t.Errorf("Expected 30, got %v", p.X)
	}
	if p := s.Smooth(gaze.Point{X: 100, Y: 0}); math.Abs(p.X-51) > 1e-9 {
		t.Errorf("Expected 51, got %v", p.X)
	}
}

func TestSmoother_AddSkipsExponentialStage(t *testing.T) {
	cfg := gaze.DefaultConfig()
	cfg.MinSamples = 1
	cfg.WindowSize = 1
	s := New(cfg)

	s.Smooth(gaze.Point{X: 0, Y: 0})
	sp, ok := s.Add(gaze.Point{X: 100, Y: 40}, t0)
	if !ok {
		t.Fatal("Expected output with MinSamples=1")
	}
	if sp.X != 100 || sp.Y != 40 {
		t.Errorf("Expected the point buffered as given, got (%v, %v)", sp.X, sp.Y)
	}

	// The EMA memory is untouched by Add
	if p := s.Smooth(gaze.Point{X: 100, Y: 0}); math.Abs(p.X-30) > 1e-9 {
		t.Errorf("Expected EMA from the last smoothed point, got %v", p.X)
	}
}

func TestSmoother_Reset(t *testing.T) {
	s := New(gaze.DefaultConfig())
	for i := 0; i < 12; i++ {
		s.Push(gaze.Point{X: 200, Y: 200}, t0.Add(time.Duration(i)*20*time.Millisecond))
	}

	s.Reset()

	if s.Buffered() != 0 {
		t.Errorf("Expected empty window after reset, got %d", s.Buffered())
	}
	if p := s.Smooth(gaze.Point{X: 800, Y: 10}); p.X != 800 || p.Y != 10 {
		t.Errorf("EMA memory should be cleared, got %+v", p)
	}
}
