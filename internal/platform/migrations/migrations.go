// Package migrations applies the database schema. Statements are idempotent
// so Apply can run on every startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS panel_snapshots (
		id           UUID PRIMARY KEY,
		panel        TEXT NOT NULL,
		price        DOUBLE PRECISION NOT NULL,
		source       TEXT NOT NULL,
		points       JSONB NOT NULL DEFAULT '[]'::jsonb,
		collected_at TIMESTAMPTZ NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_panel_snapshots_panel_created
		ON panel_snapshots (panel, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS headlines (
		position     INTEGER NOT NULL,
		title        TEXT NOT NULL,
		link         TEXT NOT NULL,
		source       TEXT NOT NULL,
		published_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS heatmap_boards (
		id           UUID PRIMARY KEY,
		cells        JSONB NOT NULL DEFAULT '[]'::jsonb,
		source       TEXT NOT NULL,
		collected_at TIMESTAMPTZ NOT NULL
	)`,
}

// Apply executes every migration statement in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

// Count returns the number of migration statements, exposed for tests.
func Count() int { return len(statements) }
