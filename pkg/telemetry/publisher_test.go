package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	name string
	err  error

	mu       sync.Mutex
	readings []Reading
	closed   bool
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) Publish(_ context.Context, r Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.readings = append(s.readings, r)
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.readings)
}

func TestPublisherDropsWhenFull(t *testing.T) {
	p := NewPublisher(PublisherConfig{QueueSize: 2})

	assert.True(t, p.Publish(Reading{Power: 1}))
	assert.True(t, p.Publish(Reading{Power: 2}))
	assert.False(t, p.Publish(Reading{Power: 3}))

	_, dropped, _ := p.Stats()
	assert.Equal(t, uint64(1), dropped)
}

func TestPublisherFansOutAndCloses(t *testing.T) {
	good := &fakeSink{name: "good"}
	bad := &fakeSink{name: "bad", err: errors.New("offline")}
	p := NewPublisher(PublisherConfig{}, good, nil, bad)
	require.Equal(t, 2, p.Sinks())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	for i := 0; i < 3; i++ {
		p.Publish(Reading{Power: uint16(100 + i)})
	}

	require.Eventually(t, func() bool { return good.count() == 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}

	published, _, failed := p.Stats()
	assert.Equal(t, uint64(3), published)
	assert.Equal(t, uint64(3), failed)
	assert.True(t, good.closed)
	assert.True(t, bad.closed)
	assert.Equal(t, uint16(100), good.readings[0].Power)
}
