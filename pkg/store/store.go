// Package store journals pipeline events to SQLite: sessions, calibration
// samples, target activations and nose reference changes. The store is an
// observer; the pipeline never reads from it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// writeTimeout bounds a single journal write made from Publish.
const writeTimeout = 2 * time.Second

// Store is a SQLite event journal. It implements gaze.Sink.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Activation is one journaled target activation.
type Activation struct {
	ID          int64         `json:"id"`
	SessionID   string        `json:"session_id"`
	TargetID    string        `json:"target_id"`
	Point       *gaze.Point   `json:"point,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
	Error       string        `json:"error,omitempty"`
	ActivatedAt time.Time     `json:"activated_at"`
}

// CalibrationSample is one journaled training sample.
type CalibrationSample struct {
	SessionID  string          `json:"session_id"`
	X          float64         `json:"x"`
	Y          float64         `json:"y"`
	Kind       gaze.SampleKind `json:"kind"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// Session is one journaled activation period.
type Session struct {
	ID          string     `json:"id"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	Activations int        `json:"activations"`
	Samples     int        `json:"samples"`
}

// Open opens (or creates) the journal at path and applies migrations.
// Use ":memory:" for a throwaway journal.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serialises
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000; PRAGMA foreign_keys=ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	s := &Store{db: db, logger: log.With("component", "store")}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Publish journals e. Kinds without a table are ignored; write failures
// are logged and never reach the pipeline.
func (s *Store) Publish(e gaze.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.Record(ctx, e); err != nil {
		s.logger.Warn("journal write failed", "kind", e.Kind, "error", err)
	}
}

// Record journals e.
func (s *Store) Record(ctx context.Context, e gaze.Event) error {
	ts := e.Time.UnixMilli()

	var err error
	switch e.Kind {
	case gaze.EventSessionActive:
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO sessions (id, started_at) VALUES (?, ?)
			 ON CONFLICT(id) DO UPDATE SET started_at = excluded.started_at, ended_at = NULL`,
			e.SessionID, ts)

	case gaze.EventSessionInactive:
		_, err = s.db.ExecContext(ctx,
			`UPDATE sessions SET ended_at = ? WHERE id = ?`, ts, e.SessionID)

	case gaze.EventCalibrationSample:
		if e.Point == nil {
			return fmt.Errorf("calibration sample without point")
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO calibration_samples (session_id, x, y, kind, recorded_at) VALUES (?, ?, ?, ?, ?)`,
			e.SessionID, e.Point.X, e.Point.Y, string(e.Sample), ts)

	case gaze.EventActivated:
		var x, y sql.NullFloat64
		if e.Point != nil {
			x = sql.NullFloat64{Float64: e.Point.X, Valid: true}
			y = sql.NullFloat64{Float64: e.Point.Y, Valid: true}
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO activations (session_id, target_id, x, y, elapsed_ms, error, activated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.SessionID, e.TargetID, x, y, e.Elapsed.Milliseconds(), e.Error, ts)

	case gaze.EventReferenceSet, gaze.EventReferenceReset:
		var x, y sql.NullFloat64
		if e.Point != nil {
			x = sql.NullFloat64{Float64: e.Point.X, Valid: true}
			y = sql.NullFloat64{Float64: e.Point.Y, Valid: true}
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO reference_events (session_id, kind, x, y, occurred_at) VALUES (?, ?, ?, ?, ?)`,
			e.SessionID, string(e.Kind), x, y, ts)

	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("record %s: %w", e.Kind, err)
	}
	return nil
}

// RecentActivations returns up to limit activations, newest first.
func (s *Store) RecentActivations(ctx context.Context, limit int) ([]Activation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, target_id, x, y, elapsed_ms, error, activated_at
		 FROM activations ORDER BY activated_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query activations: %w", err)
	}
	defer rows.Close()

	var out []Activation
	for rows.Next() {
		var (
			a         Activation
			x, y      sql.NullFloat64
			elapsedMs int64
			at        int64
		)
		if err := rows.Scan(&a.ID, &a.SessionID, &a.TargetID, &x, &y, &elapsedMs, &a.Error, &at); err != nil {
			return nil, fmt.Errorf("scan activation: %w", err)
		}
		if x.Valid && y.Valid {
			a.Point = &gaze.Point{X: x.Float64, Y: y.Float64}
		}
		a.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		a.ActivatedAt = time.UnixMilli(at).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// CalibrationSamples returns the samples journaled for a session, oldest
// first.
func (s *Store) CalibrationSamples(ctx context.Context, sessionID string) ([]CalibrationSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, x, y, kind, recorded_at FROM calibration_samples
		 WHERE session_id = ? ORDER BY recorded_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []CalibrationSample
	for rows.Next() {
		var (
			c    CalibrationSample
			kind string
			at   int64
		)
		if err := rows.Scan(&c.SessionID, &c.X, &c.Y, &kind, &at); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		c.Kind = gaze.SampleKind(kind)
		c.RecordedAt = time.UnixMilli(at).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// Sessions returns up to limit sessions, newest first, with activation and
// sample counts.
func (s *Store) Sessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.started_at, s.ended_at,
		       (SELECT COUNT(*) FROM activations a WHERE a.session_id = s.id),
		       (SELECT COUNT(*) FROM calibration_samples c WHERE c.session_id = s.id)
		FROM sessions s ORDER BY s.started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			ss      Session
			started int64
			ended   sql.NullInt64
		)
		if err := rows.Scan(&ss.ID, &started, &ended, &ss.Activations, &ss.Samples); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		ss.StartedAt = time.UnixMilli(started).UTC()
		if ended.Valid {
			t := time.UnixMilli(ended.Int64).UTC()
			ss.EndedAt = &t
		}
		out = append(out, ss)
	}
	return out, rows.Err()
}
