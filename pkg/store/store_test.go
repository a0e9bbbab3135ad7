package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "gaze.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_AppliesMigrations(t *testing.T) {
	s := openTemp(t)

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Re-running is a no-op
	require.NoError(t, s.MigrateUp())
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	s.Publish(gaze.Event{Kind: gaze.EventActivated, Time: t0, TargetID: "next"})
	got, err := s.RecentActivations(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMigrateDown(t *testing.T) {
	s := openTemp(t)

	require.NoError(t, s.MigrateDown())
	version, _, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	err = s.Record(context.Background(), gaze.Event{Kind: gaze.EventReferenceSet, Time: t0})
	assert.Error(t, err, "reference_events table should be gone")
}

func TestRecord_Activations(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	s.Publish(gaze.Event{
		Kind:      gaze.EventActivated,
		Time:      t0,
		SessionID: "s1",
		TargetID:  "next",
		Elapsed:   2013 * time.Millisecond,
		Point:     &gaze.Point{X: 500, Y: 480},
	})
	s.Publish(gaze.Event{
		Kind:      gaze.EventActivated,
		Time:      t0.Add(time.Minute),
		SessionID: "s1",
		TargetID:  "back",
		Elapsed:   2 * time.Second,
		Error:     "handler failed",
	})
	// Not journaled
	s.Publish(gaze.Event{Kind: gaze.EventDwellProgress, Time: t0, TargetID: "next"})

	got, err := s.RecentActivations(ctx, 0)
	require.NoError(t, err)

	want := []Activation{
		{ID: 2, SessionID: "s1", TargetID: "back", Elapsed: 2 * time.Second, Error: "handler failed", ActivatedAt: t0.Add(time.Minute)},
		{ID: 1, SessionID: "s1", TargetID: "next", Point: &gaze.Point{X: 500, Y: 480}, Elapsed: 2013 * time.Millisecond, ActivatedAt: t0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RecentActivations mismatch (-want +got):\n%s", diff)
	}

	limited, err := s.RecentActivations(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "back", limited[0].TargetID)
}

func TestRecord_SessionsAndSamples(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	s.Publish(gaze.Event{Kind: gaze.EventSessionActive, Time: t0, SessionID: "s1"})
	for i := 0; i < 3; i++ {
		s.Publish(gaze.Event{
			Kind:      gaze.EventCalibrationSample,
			Time:      t0.Add(time.Duration(i) * 200 * time.Millisecond),
			SessionID: "s1",
			Point:     &gaze.Point{X: 100, Y: 50},
			Sample:    gaze.SampleMove,
		})
	}
	s.Publish(gaze.Event{Kind: gaze.EventActivated, Time: t0.Add(time.Minute), SessionID: "s1", TargetID: "next"})
	s.Publish(gaze.Event{Kind: gaze.EventSessionInactive, Time: t0.Add(2 * time.Minute), SessionID: "s1"})
	s.Publish(gaze.Event{Kind: gaze.EventSessionActive, Time: t0.Add(3 * time.Minute), SessionID: "s2"})

	samples, err := s.CalibrationSamples(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, gaze.SampleMove, samples[0].Kind)
	assert.Equal(t, t0.Add(400*time.Millisecond), samples[2].RecordedAt)

	sessions, err := s.Sessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, "s2", sessions[0].ID)
	assert.Nil(t, sessions[0].EndedAt)

	assert.Equal(t, "s1", sessions[1].ID)
	require.NotNil(t, sessions[1].EndedAt)
	assert.Equal(t, t0.Add(2*time.Minute), *sessions[1].EndedAt)
	assert.Equal(t, 1, sessions[1].Activations)
	assert.Equal(t, 3, sessions[1].Samples)
}

func TestRecord_SampleWithoutPoint(t *testing.T) {
	s := openTemp(t)
	err := s.Record(context.Background(), gaze.Event{Kind: gaze.EventCalibrationSample, Time: t0})
	assert.Error(t, err)
}
