package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/vpower-bridge/vpower-go/pkg/connection"
)

// AMQPConfig configures an AMQPSink.
type AMQPConfig struct {
	URL string

	// Exchange is declared as a durable fanout exchange.
	Exchange   string
	RoutingKey string

	Format Format
	Logger *slog.Logger
}

// AMQPSink publishes readings to an AMQP exchange.
type AMQPSink struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel

	url        string
	exchange   string
	routingKey string
	format     Format
	link       *connection.Manager
	logger     *slog.Logger
}

// NewAMQPSink creates a sink. Call Start to connect.
func NewAMQPSink(cfg AMQPConfig) *AMQPSink {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = "vpower"
	}

	s := &AMQPSink{
		url:        cfg.URL,
		exchange:   exchange,
		routingKey: cfg.RoutingKey,
		format:     cfg.Format,
		logger:     logger,
	}
	s.link = connection.NewManager(s.connect, connection.Config{Name: "amqp", Logger: logger})
	return s
}

// Name returns "amqp".
func (s *AMQPSink) Name() string { return "amqp" }

// Link returns the connection manager for state inspection.
func (s *AMQPSink) Link() *connection.Manager { return s.link }

// Start connects in the background.
func (s *AMQPSink) Start() {
	s.link.Start()
}

func (s *AMQPSink) connect(context.Context) error {
	conn, err := amqp.Dial(s.url)
	if err != nil {
		return err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	err = channel.ExchangeDeclare(
		s.exchange,
		amqp.ExchangeFanout,
		true,  // durable
		false, // delete when complete
		false, // internal
		false, // noWait
		nil,   // arguments
	)
	if err != nil {
		conn.Close()
		return fmt.Errorf("declare exchange %s: %w", s.exchange, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.channel = channel
	s.mu.Unlock()

	go s.notifyWhenClosed(conn)
	return nil
}

func (s *AMQPSink) notifyWhenClosed(conn *amqp.Connection) {
	reason, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1))
	if !ok || reason == nil {
		// Closed by us.
		return
	}
	s.logger.Warn("AMQP connection closed", "reason", reason.Error())
	s.link.NotifyConnectionLost()
}

// Publish implements Sink.
func (s *AMQPSink) Publish(_ context.Context, r Reading) error {
	if !s.link.IsConnected() {
		return connection.ErrNotConnected
	}

	s.mu.Lock()
	channel := s.channel
	s.mu.Unlock()
	if channel == nil {
		return connection.ErrNotConnected
	}

	body, err := Encode(r, s.format)
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}

	err = channel.Publish(
		s.exchange,
		s.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  s.format.ContentType(),
			DeliveryMode: amqp.Transient,
			Timestamp:    r.Time,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

// Close stops reconnecting and closes the connection.
func (s *AMQPSink) Close() error {
	s.link.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.channel != nil {
		errs = append(errs, s.channel.Close())
		s.channel = nil
	}
	if s.conn != nil && !s.conn.IsClosed() {
		errs = append(errs, s.conn.Close())
	}
	s.conn = nil
	return errors.Join(errs...)
}
