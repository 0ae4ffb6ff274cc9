package storage

import (
	"context"
	"errors"

	"github.com/lucasmieiro/finterm/internal/app/domain/heatmap"
	"github.com/lucasmieiro/finterm/internal/app/domain/market"
	"github.com/lucasmieiro/finterm/internal/app/domain/news"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// SnapshotStore persists panel snapshots.
type SnapshotStore interface {
	CreateSnapshot(ctx context.Context, snap market.Snapshot) (market.Snapshot, error)
	LatestSnapshot(ctx context.Context, panel string) (market.Snapshot, error)
	ListSnapshots(ctx context.Context, panel string, limit int) ([]market.Snapshot, error)
}

// HeadlineStore persists the current set of news headlines.
type HeadlineStore interface {
	ReplaceHeadlines(ctx context.Context, items []news.Headline) error
	ListHeadlines(ctx context.Context, limit int) ([]news.Headline, error)
}

// HeatmapStore persists sector heatmap boards.
type HeatmapStore interface {
	SaveBoard(ctx context.Context, board heatmap.Board) error
	LatestBoard(ctx context.Context) (heatmap.Board, error)
}
