package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// DefaultQueueSize is used when PublisherConfig.QueueSize is zero.
const DefaultQueueSize = 16

// DefaultPublishTimeout bounds one sink publish.
const DefaultPublishTimeout = 2 * time.Second

// Sink receives readings.
type Sink interface {
	Name() string
	Publish(ctx context.Context, r Reading) error
	Close() error
}

// PublisherConfig configures a Publisher.
type PublisherConfig struct {
	QueueSize      int
	PublishTimeout time.Duration
	Logger         *slog.Logger
}

// Publisher fans readings out to sinks from a single goroutine.
type Publisher struct {
	sinks   []Sink
	queue   chan Reading
	timeout time.Duration
	logger  *slog.Logger

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// NewPublisher creates a publisher for sinks. Nil sinks are skipped.
func NewPublisher(cfg PublisherConfig, sinks ...Sink) *Publisher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p := &Publisher{
		queue:   make(chan Reading, cfg.QueueSize),
		timeout: cfg.PublishTimeout,
		logger:  logger,
	}
	for _, s := range sinks {
		if s != nil {
			p.sinks = append(p.sinks, s)
		}
	}
	return p
}

// Sinks returns the number of sinks.
func (p *Publisher) Sinks() int {
	return len(p.sinks)
}

// Publish queues r. It never blocks and reports false if the queue was full.
func (p *Publisher) Publish(r Reading) bool {
	select {
	case p.queue <- r:
		return true
	default:
		p.dropped.Add(1)
		return false
	}
}

// Stats returns delivered, dropped and failed counts. A reading counts as
// delivered once per sink.
func (p *Publisher) Stats() (published, dropped, failed uint64) {
	return p.published.Load(), p.dropped.Load(), p.failed.Load()
}

// Run delivers queued readings until ctx is done, then closes every sink.
func (p *Publisher) Run(ctx context.Context) error {
	defer p.closeSinks()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-p.queue:
			p.deliver(ctx, r)
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, r Reading) {
	for _, s := range p.sinks {
		sctx, cancel := context.WithTimeout(ctx, p.timeout)
		err := s.Publish(sctx, r)
		cancel()

		if err != nil {
			p.failed.Add(1)
			p.logger.Debug("telemetry publish failed", "sink", s.Name(), "error", err)
			continue
		}
		p.published.Add(1)
	}
}

func (p *Publisher) closeSinks() {
	var errs []error
	for _, s := range p.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		p.logger.Warn("closing telemetry sinks", "error", err)
	}
}
