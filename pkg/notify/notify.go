// Package notify publishes selected pipeline events to an MQTT broker so
// home-automation and assistive-device controllers can react to
// activations without holding a WebSocket open.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// DefaultKinds are the events forwarded when Config.Kinds is empty.
var DefaultKinds = []gaze.EventKind{
	gaze.EventActivated,
	gaze.EventCalibrationComplete,
	gaze.EventSessionActive,
	gaze.EventSessionInactive,
	gaze.EventReferenceSet,
	gaze.EventReferenceReset,
}

// Config configures the MQTT publisher.
type Config struct {
	Broker      string // e.g. tcp://localhost:1883
	ClientID    string
	TopicPrefix string // topics are <prefix>/<kind>
	QoS         byte
	Kinds       []gaze.EventKind
	Timeout     time.Duration // per-publish wait
}

// DefaultConfig returns a publisher config for a local broker.
func DefaultConfig() Config {
	return Config{
		Broker:      "tcp://localhost:1883",
		ClientID:    "go-gaze",
		TopicPrefix: "gaze",
		Kinds:       DefaultKinds,
		Timeout:     time.Second,
	}
}

// Publisher forwards events to MQTT. It implements gaze.Sink.
type Publisher struct {
	client mqtt.Client
	cfg    Config
	kinds  map[gaze.EventKind]bool
	logger *slog.Logger
}

// Dial connects to the broker and returns a publisher.
func Dial(cfg Config) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	return New(client, cfg), nil
}

// New wraps an already connected client.
func New(client mqtt.Client, cfg Config) *Publisher {
	if len(cfg.Kinds) == 0 {
		cfg.Kinds = DefaultKinds
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}
	kinds := make(map[gaze.EventKind]bool, len(cfg.Kinds))
	for _, k := range cfg.Kinds {
		kinds[k] = true
	}
	return &Publisher{
		client: client,
		cfg:    cfg,
		kinds:  kinds,
		logger: log.With("component", "notify", "broker", cfg.Broker),
	}
}

// Topic returns the topic an event kind is published on.
func Topic(prefix string, kind gaze.EventKind) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return string(kind)
	}
	return prefix + "/" + string(kind)
}

// Publish forwards e if its kind is selected. Failures are logged.
func (p *Publisher) Publish(e gaze.Event) {
	if !p.kinds[e.Kind] {
		return
	}
	if err := p.Send(e); err != nil {
		p.logger.Warn("mqtt publish failed", "kind", e.Kind, "error", err)
	}
}

// Send publishes e regardless of the kind filter.
func (p *Publisher) Send(e gaze.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.Kind, err)
	}

	topic := Topic(p.cfg.TopicPrefix, e.Kind)
	token := p.client.Publish(topic, p.cfg.QoS, false, payload)
	if !token.WaitTimeout(p.cfg.Timeout) {
		return fmt.Errorf("publish %s: timed out after %s", topic, p.cfg.Timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
