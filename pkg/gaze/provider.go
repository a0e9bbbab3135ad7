package gaze

// AnchorSource reports the current facial anchor (nose-region centroid).
// ok is false when no face is detected on this tick.
type AnchorSource interface {
	Anchor() (p Point, ok bool)
}

// Trainer receives calibration samples: the screen position the user was
// looking at, tagged by how it was captured.
type Trainer interface {
	Record(x, y float64, kind SampleKind) error
}

// Provider is the external gaze-data provider. Predictions are pushed into
// the session; everything else is pulled through this interface.
type Provider interface {
	AnchorSource
	Trainer

	// Available reports whether the provider is loaded and reachable.
	Available() bool

	// Refresh re-applies provider-side filtering. It is called on the
	// recalibration interval.
	Refresh() error
}

// Sink receives pipeline events.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Publish calls f(e).
func (f SinkFunc) Publish(e Event) { f(e) }

// MultiSink fans events out to several sinks in order. Nil sinks are skipped.
type MultiSink []Sink

// Publish forwards e to every sink.
func (m MultiSink) Publish(e Event) {
	for _, s := range m {
		if s != nil {
			s.Publish(e)
		}
	}
}

// Discard is a Sink that drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// WithAnchor returns p with its anchor source replaced by a. The provider's
// own anchor is ignored so that the reference never mixes coordinate spaces.
func WithAnchor(p Provider, a AnchorSource) Provider {
	if a == nil {
		return p
	}
	return anchoredProvider{Provider: p, anchor: a}
}

type anchoredProvider struct {
	Provider
	anchor AnchorSource
}

func (ap anchoredProvider) Anchor() (Point, bool) {
	return ap.anchor.Anchor()
}
