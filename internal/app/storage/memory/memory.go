package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lucasmieiro/finterm/internal/app/domain/heatmap"
	"github.com/lucasmieiro/finterm/internal/app/domain/market"
	"github.com/lucasmieiro/finterm/internal/app/domain/news"
	"github.com/lucasmieiro/finterm/internal/app/storage"
)

// defaultHistoryLimit bounds how many snapshots are retained per panel.
const defaultHistoryLimit = 50

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and single-node
// deployments without a database.
type Store struct {
	mu           sync.RWMutex
	nextID       int64
	historyLimit int
	snapshots    map[string][]market.Snapshot
	headlines    []news.Headline
	board        *heatmap.Board
}

var _ storage.SnapshotStore = (*Store)(nil)
var _ storage.HeadlineStore = (*Store)(nil)
var _ storage.HeatmapStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:       1,
		historyLimit: defaultHistoryLimit,
		snapshots:    make(map[string][]market.Snapshot),
	}
}

// WithHistoryLimit overrides how many snapshots are kept per panel.
func (s *Store) WithHistoryLimit(limit int) *Store {
	if limit > 0 {
		s.mu.Lock()
		s.historyLimit = limit
		s.mu.Unlock()
	}
	return s
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// SnapshotStore implementation ------------------------------------------------

func (s *Store) CreateSnapshot(_ context.Context, snap market.Snapshot) (market.Snapshot, error) {
	if snap.Panel == "" {
		return market.Snapshot{}, fmt.Errorf("snapshot panel is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.ID == "" {
		snap.ID = s.nextIDLocked()
	}
	snap.CreatedAt = time.Now().UTC()
	snap.Points = clonePoints(snap.Points)

	history := append(s.snapshots[snap.Panel], snap)
	if len(history) > s.historyLimit {
		history = history[len(history)-s.historyLimit:]
	}
	s.snapshots[snap.Panel] = history
	return cloneSnapshot(snap), nil
}

func (s *Store) LatestSnapshot(_ context.Context, panel string) (market.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.snapshots[panel]
	if len(history) == 0 {
		return market.Snapshot{}, fmt.Errorf("snapshot for panel %s: %w", panel, storage.ErrNotFound)
	}
	return cloneSnapshot(history[len(history)-1]), nil
}

func (s *Store) ListSnapshots(_ context.Context, panel string, limit int) ([]market.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.snapshots[panel]
	if limit <= 0 || limit > len(history) {
		limit = len(history)
	}

	// Newest first.
	out := make([]market.Snapshot, 0, limit)
	for i := len(history) - 1; i >= len(history)-limit; i-- {
		out = append(out, cloneSnapshot(history[i]))
	}
	return out, nil
}

// HeadlineStore implementation -----------------------------------------------

func (s *Store) ReplaceHeadlines(_ context.Context, items []news.Headline) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.headlines = append([]news.Headline(nil), items...)
	return nil
}

func (s *Store) ListHeadlines(_ context.Context, limit int) ([]news.Headline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.headlines) {
		limit = len(s.headlines)
	}
	return append([]news.Headline(nil), s.headlines[:limit]...), nil
}

// HeatmapStore implementation ------------------------------------------------

func (s *Store) SaveBoard(_ context.Context, board heatmap.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	board.Cells = append([]heatmap.Cell(nil), board.Cells...)
	s.board = &board
	return nil
}

func (s *Store) LatestBoard(_ context.Context) (heatmap.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.board == nil {
		return heatmap.Board{}, fmt.Errorf("heatmap board: %w", storage.ErrNotFound)
	}
	out := *s.board
	out.Cells = append([]heatmap.Cell(nil), s.board.Cells...)
	return out, nil
}

func clonePoints(points []market.Point) []market.Point {
	if points == nil {
		return nil
	}
	return append([]market.Point(nil), points...)
}

func cloneSnapshot(snap market.Snapshot) market.Snapshot {
	snap.Points = clonePoints(snap.Points)
	return snap
}
