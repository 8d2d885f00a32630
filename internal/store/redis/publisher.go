// Package redis publishes simulation snapshots to Redis so other processes
// can follow a run: the latest snapshot is SET under a per-symbol key and
// every snapshot is PUBLISHed on a per-symbol channel.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"papersim/internal/simulation"
)

const (
	defaultLatestTTL = 30 * time.Minute
	defaultChannel   = "pub:sim"
)

// Config configures the publisher.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
	Channel  string // channel prefix, default "pub:sim"
}

// Publisher writes snapshots to Redis.
type Publisher struct {
	client  *goredis.Client
	channel string
	breaker *Breaker
}

// New connects to Redis and pings it.
func New(cfg Config) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	channel := cfg.Channel
	if channel == "" {
		channel = defaultChannel
	}

	b := NewBreaker(5, 10*time.Second)
	b.OnStateChange = func(from, to BreakerState) {
		slog.Warn("[redis] breaker state change", "from", from.String(), "to", to.String())
	}

	slog.Info("[redis] connected", "addr", cfg.Addr, "channel", channel)
	return &Publisher{client: client, channel: channel, breaker: b}, nil
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// LatestKey is the key holding the most recent snapshot of symbol.
func LatestKey(symbol string) string {
	return "sim:latest:" + symbol
}

// ChannelName is the pub/sub channel for symbol under prefix.
func ChannelName(prefix, symbol string) string {
	return prefix + ":" + symbol
}

// Publish stores snap as the latest snapshot and publishes it in one
// pipeline. While Redis is unreachable it fails fast with ErrBreakerOpen.
func (p *Publisher) Publish(ctx context.Context, snap simulation.Snapshot) error {
	data := snap.JSON()
	err := p.breaker.Do(func() error {
		pipe := p.client.Pipeline()
		pipe.Set(ctx, LatestKey(snap.Symbol), data, defaultLatestTTL)
		pipe.Publish(ctx, ChannelName(p.channel, snap.Symbol), data)
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("redis publish snapshot: %w", err)
	}
	return nil
}

// Latest reads the most recent snapshot of symbol. ok is false when none
// has been published or it has expired.
func (p *Publisher) Latest(ctx context.Context, symbol string) (simulation.Snapshot, bool, error) {
	data, err := p.client.Get(ctx, LatestKey(symbol)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return simulation.Snapshot{}, false, nil
	}
	if err != nil {
		return simulation.Snapshot{}, false, fmt.Errorf("redis get latest: %w", err)
	}

	var snap simulation.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return simulation.Snapshot{}, false, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, true, nil
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
