// Package hub provides a thread-safe websocket broadcast hub for pipeline
// events, using the channel-based fan-out pattern.
package hub

import "github.com/teslashibe/go-gaze/pkg/gaze"

// Message is an encoded frame queued for observers. Kind is set for event
// frames so subscriptions can filter them; other frames reach everyone.
type Message struct {
	Kind gaze.EventKind
	Data []byte
}

// subscription is the set of event kinds a client asked for. A nil set
// receives everything.
type subscription map[gaze.EventKind]bool

func newSubscription(kinds []gaze.EventKind) subscription {
	if len(kinds) == 0 {
		return nil
	}
	s := make(subscription, len(kinds))
	for _, k := range kinds {
		s[k] = true
	}
	return s
}

func (s subscription) wants(m Message) bool {
	return s == nil || m.Kind == "" || s[m.Kind]
}
