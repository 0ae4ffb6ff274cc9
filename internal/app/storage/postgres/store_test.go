package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/lucasmieiro/finterm/internal/app/domain/heatmap"
	"github.com/lucasmieiro/finterm/internal/app/domain/market"
	"github.com/lucasmieiro/finterm/internal/app/domain/news"
	"github.com/lucasmieiro/finterm/internal/app/storage"
)

func heatmapBoardFixture() heatmap.Board {
	return heatmap.Board{
		Cells:       []heatmap.Cell{{Sector: "Energy", AvgChangePct: 1.2, Constituents: 3}},
		Source:      "brapi",
		CollectedAt: time.Now().UTC(),
	}
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

func TestCreateSnapshot(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO panel_snapshots").
		WithArgs(sqlmock.AnyArg(), "usdbrl", 4.95, "test", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	snap, err := store.CreateSnapshot(context.Background(), market.Snapshot{
		Panel:       "usdbrl",
		Price:       4.95,
		Source:      "test",
		CollectedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}
	if snap.ID == "" {
		t.Fatal("expected a generated id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateSnapshotRequiresPanel(t *testing.T) {
	store, _ := newMockStore(t)
	if _, err := store.CreateSnapshot(context.Background(), market.Snapshot{}); err == nil {
		t.Fatal("expected an error for a snapshot without a panel")
	}
}

func TestLatestSnapshot(t *testing.T) {
	store, mock := newMockStore(t)

	points, _ := json.Marshal([]market.Point{
		{Time: time.Date(2024, 2, 5, 12, 0, 0, 0, time.UTC), Value: 4.95},
	})
	collected := time.Date(2024, 2, 5, 12, 1, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "panel", "price", "source", "points", "collected_at", "created_at"}).
		AddRow("abc", "usdbrl", 4.95, "test", points, collected, collected)

	mock.ExpectQuery("SELECT id, panel, price, source, points, collected_at, created_at").
		WithArgs("usdbrl").
		WillReturnRows(rows)

	snap, err := store.LatestSnapshot(context.Background(), "usdbrl")
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if snap.Price != 4.95 || len(snap.Points) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLatestSnapshotNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, panel, price, source, points, collected_at, created_at").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "panel", "price", "source", "points", "collected_at", "created_at"}))

	_, err := store.LatestSnapshot(context.Background(), "nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListSnapshots(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "panel", "price", "source", "points", "collected_at", "created_at"}).
		AddRow("b", "btc", 43000.0, "binance", []byte("[]"), now, now).
		AddRow("a", "btc", 42000.0, "binance", []byte("[]"), now.Add(-time.Hour), now.Add(-time.Hour))

	mock.ExpectQuery("SELECT id, panel, price, source, points, collected_at, created_at").
		WithArgs("btc", 2).
		WillReturnRows(rows)

	snaps, err := store.ListSnapshots(context.Background(), "btc", 2)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(snaps) != 2 || snaps[0].ID != "b" {
		t.Fatalf("unexpected snapshots %+v", snaps)
	}
}

func TestReplaceHeadlines(t *testing.T) {
	store, mock := newMockStore(t)

	items := []news.Headline{
		{Title: "a", Link: "https://example.com/a", Source: "Valor", PublishedAt: time.Now().UTC()},
		{Title: "b", Link: "https://example.com/b", Source: "Valor", PublishedAt: time.Now().UTC()},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM headlines").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO headlines").
		WithArgs(0, "a", "https://example.com/a", "Valor", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO headlines").
		WithArgs(1, "b", "https://example.com/b", "Valor", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.ReplaceHeadlines(context.Background(), items); err != nil {
		t.Fatalf("ReplaceHeadlines: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListHeadlines(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"title", "link", "source", "published_at"}).
		AddRow("a", "https://example.com/a", "Valor", now)

	mock.ExpectQuery("SELECT title, link, source, published_at").
		WithArgs(12).
		WillReturnRows(rows)

	items, err := store.ListHeadlines(context.Background(), 12)
	if err != nil {
		t.Fatalf("ListHeadlines: %v", err)
	}
	if len(items) != 1 || items[0].Title != "a" {
		t.Fatalf("unexpected headlines %+v", items)
	}
}

func TestLatestBoardNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT cells, source, collected_at").
		WillReturnRows(sqlmock.NewRows([]string{"cells", "source", "collected_at"}))

	_, err := store.LatestBoard(context.Background())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveBoard(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO heatmap_boards").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "brapi", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.SaveBoard(context.Background(), heatmapBoardFixture())
	if err != nil {
		t.Fatalf("SaveBoard: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
