package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lucasmieiro/finterm/internal/app/domain/heatmap"
	"github.com/lucasmieiro/finterm/internal/app/domain/market"
	"github.com/lucasmieiro/finterm/internal/app/domain/news"
	"github.com/lucasmieiro/finterm/internal/app/storage"
)

func snapshot(panel string, price float64) market.Snapshot {
	return market.Snapshot{
		Panel:       panel,
		Price:       price,
		Source:      "test",
		Points:      []market.Point{{Time: time.Now().UTC(), Value: price}},
		CollectedAt: time.Now().UTC(),
	}
}

func TestSnapshotLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.LatestSnapshot(ctx, "usdbrl"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	first, err := store.CreateSnapshot(ctx, snapshot("usdbrl", 4.90))
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at to be set, got %+v", first)
	}

	second, err := store.CreateSnapshot(ctx, snapshot("usdbrl", 4.95))
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}

	latest, err := store.LatestSnapshot(ctx, "usdbrl")
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if latest.ID != second.ID {
		t.Fatalf("expected latest %s, got %s", second.ID, latest.ID)
	}

	list, err := store.ListSnapshots(ctx, "usdbrl", 0)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(list))
	}
	if list[0].ID != second.ID {
		t.Fatal("expected newest-first ordering")
	}

	limited, err := store.ListSnapshots(ctx, "usdbrl", 1)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != second.ID {
		t.Fatalf("expected only the newest snapshot, got %+v", limited)
	}
}

func TestSnapshotHistoryLimit(t *testing.T) {
	store := New().WithHistoryLimit(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := store.CreateSnapshot(ctx, snapshot("btc", float64(i))); err != nil {
			t.Fatalf("CreateSnapshot: %v", err)
		}
	}

	list, err := store.ListSnapshots(ctx, "btc", 0)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected history trimmed to 3, got %d", len(list))
	}
	if list[0].Price != 4 {
		t.Fatalf("expected the newest snapshot to survive, got %v", list[0].Price)
	}
}

func TestCreateSnapshotRequiresPanel(t *testing.T) {
	if _, err := New().CreateSnapshot(context.Background(), market.Snapshot{}); err == nil {
		t.Fatal("expected an error for a snapshot without a panel")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	store := New()
	ctx := context.Background()

	snap := snapshot("spy", 500)
	created, err := store.CreateSnapshot(ctx, snap)
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}

	// Mutating the returned points must not affect the stored copy.
	created.Points[0].Value = -1
	latest, err := store.LatestSnapshot(ctx, "spy")
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if latest.Points[0].Value != 500 {
		t.Fatal("expected the stored snapshot to be isolated from callers")
	}
}

func TestHeadlines(t *testing.T) {
	store := New()
	ctx := context.Background()

	items := []news.Headline{
		{Title: "a", Link: "https://example.com/a"},
		{Title: "b", Link: "https://example.com/b"},
		{Title: "c", Link: "https://example.com/c"},
	}
	if err := store.ReplaceHeadlines(ctx, items); err != nil {
		t.Fatalf("ReplaceHeadlines: %v", err)
	}

	got, err := store.ListHeadlines(ctx, 2)
	if err != nil {
		t.Fatalf("ListHeadlines: %v", err)
	}
	if len(got) != 2 || got[0].Title != "a" {
		t.Fatalf("expected the first 2 headlines, got %+v", got)
	}

	if err := store.ReplaceHeadlines(ctx, items[:1]); err != nil {
		t.Fatalf("ReplaceHeadlines: %v", err)
	}
	got, err = store.ListHeadlines(ctx, 0)
	if err != nil {
		t.Fatalf("ListHeadlines: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the replaced set, got %d items", len(got))
	}
}

func TestHeatmapBoard(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.LatestBoard(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	board := heatmap.Board{
		Cells:       []heatmap.Cell{{Sector: "Energy", AvgChangePct: 1.5, Constituents: 2}},
		Source:      "brapi",
		CollectedAt: time.Now().UTC(),
	}
	if err := store.SaveBoard(ctx, board); err != nil {
		t.Fatalf("SaveBoard: %v", err)
	}

	got, err := store.LatestBoard(ctx)
	if err != nil {
		t.Fatalf("LatestBoard: %v", err)
	}
	if len(got.Cells) != 1 || got.Cells[0].Sector != "Energy" {
		t.Fatalf("unexpected board %+v", got)
	}
}
