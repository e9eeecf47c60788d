// Package redis mirrors run snapshots into Redis so external monitors
// can watch live runs. It is an observability sink: the engine never
// reads anything back, and runs do not survive a process restart.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/espalierhq/espalier/pkg/domain"
)

// Publisher writes the latest snapshot of each run under
// <prefix><runID> and announces every transition on the <prefix>events
// pub/sub channel.
type Publisher struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	logger domain.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithPrefix sets the key prefix for snapshots (default "espalier:run:").
func WithPrefix(prefix string) Option {
	return func(p *Publisher) {
		p.prefix = prefix
	}
}

// WithTTL sets the expiration for snapshot keys. Terminal snapshots
// then age out on their own; 0 keeps them until deleted.
func WithTTL(ttl time.Duration) Option {
	return func(p *Publisher) {
		p.ttl = ttl
	}
}

// WithLogger sets the logger for publish failures. Publishing is
// best-effort; failures never disturb the run.
func WithLogger(logger domain.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewFromClient creates a Publisher from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Publisher {
	p := &Publisher{
		client: client,
		prefix: "espalier:run:",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// New creates a Publisher with its own client.
func New(address, password string, db int, opts ...Option) *Publisher {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

func (p *Publisher) key(runID string) string {
	return p.prefix + runID
}

func (p *Publisher) channel() string {
	return p.prefix + "events"
}

// Hooks returns the lifecycle hook set that mirrors snapshots.
func (p *Publisher) Hooks() domain.LifecycleHooks {
	publish := func(ctx context.Context, e *domain.RunEvent) {
		if err := p.publish(ctx, &e.Snapshot); err != nil && p.logger != nil {
			p.logger.Warn("snapshot publish failed", "run", e.RunID, "err", err)
		}
	}
	return domain.LifecycleHooks{
		OnRunStart:  publish,
		OnRunFinish: publish,
		OnPause:     publish,
		OnResume:    publish,
	}
}

func (p *Publisher) publish(ctx context.Context, snap *domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	pipe := p.client.Pipeline()
	pipe.Set(ctx, p.key(snap.RunID), data, p.ttl)
	pipe.Publish(ctx, p.channel(), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}
	return nil
}

// Load fetches the last published snapshot for a run, for monitors
// that poll instead of subscribing.
func (p *Publisher) Load(ctx context.Context, runID string) (*domain.Snapshot, error) {
	val, err := p.client.Get(ctx, p.key(runID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, fmt.Errorf("no snapshot for run %s", runID)
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Close closes the redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
