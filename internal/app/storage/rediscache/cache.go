// Package rediscache layers a Redis read-through cache for latest panel
// snapshots over any SnapshotStore, so multiple replicas share the freshest
// observation without hitting the database on every dashboard poll.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/lucasmieiro/finterm/internal/app/domain/market"
	"github.com/lucasmieiro/finterm/internal/app/storage"
	"github.com/lucasmieiro/finterm/pkg/logger"
)

const keyPrefix = "finterm:latest:"

// Store wraps an inner SnapshotStore with a Redis cache for LatestSnapshot.
type Store struct {
	inner      storage.SnapshotStore
	rdb        *redis.Client
	defaultTTL time.Duration
	log        *logger.Logger

	mu        sync.RWMutex
	panelTTLs map[string]time.Duration
}

var _ storage.SnapshotStore = (*Store)(nil)

// New creates the caching layer. A zero defaultTTL disables expiry.
func New(inner storage.SnapshotStore, rdb *redis.Client, defaultTTL time.Duration, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewDefault("rediscache")
	}
	return &Store{
		inner:      inner,
		rdb:        rdb,
		defaultTTL: defaultTTL,
		log:        log,
		panelTTLs:  make(map[string]time.Duration),
	}
}

// WithPanelTTL overrides the cache TTL for one panel.
func (s *Store) WithPanelTTL(panel string, ttl time.Duration) *Store {
	s.mu.Lock()
	s.panelTTLs[panel] = ttl
	s.mu.Unlock()
	return s
}

func (s *Store) ttlFor(panel string) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ttl, ok := s.panelTTLs[panel]; ok {
		return ttl
	}
	return s.defaultTTL
}

func (s *Store) CreateSnapshot(ctx context.Context, snap market.Snapshot) (market.Snapshot, error) {
	created, err := s.inner.CreateSnapshot(ctx, snap)
	if err != nil {
		return market.Snapshot{}, err
	}
	s.cache(ctx, created)
	return created, nil
}

func (s *Store) LatestSnapshot(ctx context.Context, panel string) (market.Snapshot, error) {
	payload, err := s.rdb.Get(ctx, keyPrefix+panel).Bytes()
	if err == nil {
		var snap market.Snapshot
		if err := json.Unmarshal(payload, &snap); err == nil {
			return snap, nil
		}
		s.log.WithField("panel", panel).Warn("corrupt cached snapshot, falling through")
	} else if !errors.Is(err, redis.Nil) {
		s.log.WithError(err).WithField("panel", panel).Warn("redis get failed")
	}

	snap, err := s.inner.LatestSnapshot(ctx, panel)
	if err != nil {
		return market.Snapshot{}, err
	}
	s.cache(ctx, snap)
	return snap, nil
}

func (s *Store) ListSnapshots(ctx context.Context, panel string, limit int) ([]market.Snapshot, error) {
	return s.inner.ListSnapshots(ctx, panel, limit)
}

func (s *Store) cache(ctx context.Context, snap market.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		s.log.WithError(err).Warn("encode snapshot for cache")
		return
	}
	if err := s.rdb.Set(ctx, keyPrefix+snap.Panel, payload, s.ttlFor(snap.Panel)).Err(); err != nil {
		s.log.WithError(err).WithField("panel", snap.Panel).Warn("redis set failed")
	}
}

// OpenClient parses a Redis URL and verifies connectivity.
func OpenClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
