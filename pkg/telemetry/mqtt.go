package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/vpower-bridge/vpower-go/pkg/connection"
)

// disconnectQuiesceMillis is how long Close lets in-flight work finish.
const disconnectQuiesceMillis = 250

// MQTTConfig configures an MQTTSink.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Topic    string
	Username string
	Password string
	QoS      byte
	Retained bool
	Format   Format
	Logger   *slog.Logger
}

// MQTTSink publishes readings to an MQTT topic.
type MQTTSink struct {
	client   mqtt.Client
	link     *connection.Manager
	topic    string
	qos      byte
	retained bool
	format   Format
	logger   *slog.Logger
}

// NewMQTTSink creates a sink for cfg.Broker. Call Start to connect.
func NewMQTTSink(cfg MQTTConfig) *MQTTSink {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(false)
	opts.SetConnectTimeout(connection.DefaultAttemptTimeout)

	s := newMQTTSink(nil, cfg)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.logger.Warn("MQTT connection lost", "broker", cfg.Broker, "error", err)
		s.link.NotifyConnectionLost()
	})
	s.client = mqtt.NewClient(opts)
	return s
}

func newMQTTSink(client mqtt.Client, cfg MQTTConfig) *MQTTSink {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &MQTTSink{
		client:   client,
		topic:    cfg.Topic,
		qos:      cfg.QoS,
		retained: cfg.Retained,
		format:   cfg.Format,
		logger:   logger,
	}
	s.link = connection.NewManager(s.connect, connection.Config{Name: "mqtt", Logger: logger})
	return s
}

// Name returns "mqtt".
func (s *MQTTSink) Name() string { return "mqtt" }

// Link returns the connection manager for state inspection.
func (s *MQTTSink) Link() *connection.Manager { return s.link }

// Start connects in the background.
func (s *MQTTSink) Start() {
	s.link.Start()
}

func (s *MQTTSink) connect(ctx context.Context) error {
	return waitToken(ctx, s.client.Connect())
}

// Publish implements Sink.
func (s *MQTTSink) Publish(ctx context.Context, r Reading) error {
	if !s.link.IsConnected() {
		return connection.ErrNotConnected
	}
	payload, err := Encode(r, s.format)
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}
	return waitToken(ctx, s.client.Publish(s.topic, s.qos, s.retained, payload))
}

// Close stops reconnecting and disconnects.
func (s *MQTTSink) Close() error {
	s.link.Close()
	if s.client.IsConnected() {
		s.client.Disconnect(disconnectQuiesceMillis)
	}
	return nil
}

func waitToken(ctx context.Context, t mqtt.Token) error {
	select {
	case <-t.Done():
		return t.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
