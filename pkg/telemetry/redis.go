package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisConfig configures a RedisSink.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces the keys. Empty selects "vpower".
	Prefix string

	// TTL expires the keys if the bridge stops publishing. Zero keeps them.
	TTL time.Duration
}

// RedisSink mirrors the latest reading into Redis keys.
type RedisSink struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisSink creates a sink. The client connects lazily.
func NewRedisSink(cfg RedisConfig) *RedisSink {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return newRedisSink(client, cfg)
}

func newRedisSink(client redis.UniversalClient, cfg RedisConfig) *RedisSink {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "vpower"
	}
	return &RedisSink{client: client, prefix: prefix, ttl: cfg.TTL}
}

// Name returns "redis".
func (s *RedisSink) Name() string { return "redis" }

// Key returns the namespaced key for field.
func (s *RedisSink) Key(field string) string {
	return s.prefix + ":" + field
}

// Ping checks the server is reachable.
func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Publish implements Sink. All keys are written in one transaction.
func (s *RedisSink) Publish(ctx context.Context, r Reading) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.Key("power"), r.Power, s.ttl)
		pipe.Set(ctx, s.Key("state"), r.State, s.ttl)
		pipe.Set(ctx, s.Key("event_time"), r.EventTime, s.ttl)
		pipe.Set(ctx, s.Key("session"), r.SessionID, s.ttl)
		pipe.Set(ctx, s.Key("updated_at"), r.Time.UTC().Format(time.RFC3339Nano), s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
