package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/lucasmieiro/finterm/internal/app/domain/heatmap"
	"github.com/lucasmieiro/finterm/internal/app/domain/market"
	"github.com/lucasmieiro/finterm/internal/app/domain/news"
	"github.com/lucasmieiro/finterm/internal/app/storage"
	"github.com/lucasmieiro/finterm/internal/platform/migrations"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.SnapshotStore = (*Store)(nil)
var _ storage.HeadlineStore = (*Store)(nil)
var _ storage.HeatmapStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects to PostgreSQL and applies the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := migrations.Apply(ctx, db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return New(db), nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

type snapshotRow struct {
	ID          string    `db:"id"`
	Panel       string    `db:"panel"`
	Price       float64   `db:"price"`
	Source      string    `db:"source"`
	Points      []byte    `db:"points"`
	CollectedAt time.Time `db:"collected_at"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r snapshotRow) toDomain() (market.Snapshot, error) {
	snap := market.Snapshot{
		ID:          r.ID,
		Panel:       r.Panel,
		Price:       r.Price,
		Source:      r.Source,
		CollectedAt: r.CollectedAt.UTC(),
		CreatedAt:   r.CreatedAt.UTC(),
	}
	if len(r.Points) > 0 {
		if err := json.Unmarshal(r.Points, &snap.Points); err != nil {
			return market.Snapshot{}, fmt.Errorf("decode snapshot points: %w", err)
		}
	}
	return snap, nil
}

// --- SnapshotStore -----------------------------------------------------------

func (s *Store) CreateSnapshot(ctx context.Context, snap market.Snapshot) (market.Snapshot, error) {
	if snap.Panel == "" {
		return market.Snapshot{}, fmt.Errorf("snapshot panel is required")
	}
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	snap.CreatedAt = time.Now().UTC()

	pointsJSON, err := json.Marshal(snap.Points)
	if err != nil {
		return market.Snapshot{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO panel_snapshots (id, panel, price, source, points, collected_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, snap.ID, snap.Panel, snap.Price, snap.Source, pointsJSON, snap.CollectedAt, snap.CreatedAt)
	if err != nil {
		return market.Snapshot{}, err
	}
	return snap, nil
}

func (s *Store) LatestSnapshot(ctx context.Context, panel string) (market.Snapshot, error) {
	var row snapshotRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, panel, price, source, points, collected_at, created_at
		FROM panel_snapshots
		WHERE panel = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, panel)
	if errors.Is(err, sql.ErrNoRows) {
		return market.Snapshot{}, fmt.Errorf("snapshot for panel %s: %w", panel, storage.ErrNotFound)
	}
	if err != nil {
		return market.Snapshot{}, err
	}
	return row.toDomain()
}

func (s *Store) ListSnapshots(ctx context.Context, panel string, limit int) ([]market.Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []snapshotRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, panel, price, source, points, collected_at, created_at
		FROM panel_snapshots
		WHERE panel = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, panel, limit)
	if err != nil {
		return nil, err
	}

	out := make([]market.Snapshot, 0, len(rows))
	for _, row := range rows {
		snap, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// --- HeadlineStore -----------------------------------------------------------

func (s *Store) ReplaceHeadlines(ctx context.Context, items []news.Headline) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM headlines`); err != nil {
		return err
	}
	for i, item := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO headlines (position, title, link, source, published_at)
			VALUES ($1, $2, $3, $4, $5)
		`, i, item.Title, item.Link, item.Source, item.PublishedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) ListHeadlines(ctx context.Context, limit int) ([]news.Headline, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []struct {
		Title       string    `db:"title"`
		Link        string    `db:"link"`
		Source      string    `db:"source"`
		PublishedAt time.Time `db:"published_at"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT title, link, source, published_at
		FROM headlines
		ORDER BY position ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}

	out := make([]news.Headline, 0, len(rows))
	for _, row := range rows {
		out = append(out, news.Headline{
			Title:       row.Title,
			Link:        row.Link,
			Source:      row.Source,
			PublishedAt: row.PublishedAt.UTC(),
		})
	}
	return out, nil
}

// --- HeatmapStore ------------------------------------------------------------

func (s *Store) SaveBoard(ctx context.Context, board heatmap.Board) error {
	cellsJSON, err := json.Marshal(board.Cells)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO heatmap_boards (id, cells, source, collected_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.NewString(), cellsJSON, board.Source, board.CollectedAt)
	return err
}

func (s *Store) LatestBoard(ctx context.Context) (heatmap.Board, error) {
	var row struct {
		Cells       []byte    `db:"cells"`
		Source      string    `db:"source"`
		CollectedAt time.Time `db:"collected_at"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT cells, source, collected_at
		FROM heatmap_boards
		ORDER BY collected_at DESC
		LIMIT 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return heatmap.Board{}, fmt.Errorf("heatmap board: %w", storage.ErrNotFound)
	}
	if err != nil {
		return heatmap.Board{}, err
	}

	board := heatmap.Board{Source: row.Source, CollectedAt: row.CollectedAt.UTC()}
	if len(row.Cells) > 0 {
		if err := json.Unmarshal(row.Cells, &board.Cells); err != nil {
			return heatmap.Board{}, fmt.Errorf("decode heatmap cells: %w", err)
		}
	}
	return board, nil
}
