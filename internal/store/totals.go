package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hourcal/internal/timetrack"
)

// ErrNoSnapshot is returned by LatestTotals when nothing was saved yet.
var ErrNoSnapshot = errors.New("store: no totals snapshot")

const (
	kindProject  = "project"
	kindActivity = "activity"
)

// Snapshot is a persisted aggregation result.
type Snapshot struct {
	ID         string           `json:"id"`
	ComputedAt time.Time        `json:"computed_at"`
	Window     timetrack.Window `json:"window"`
	Totals     timetrack.Totals `json:"totals"`
}

// SaveTotals stores t as a new snapshot and returns its ID.
func (db *DB) SaveTotals(ctx context.Context, t timetrack.Totals, w timetrack.Window, computedAt time.Time) (string, error) {
	id := uuid.NewString()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO totals_snapshots (id, computed_at, window_start, window_end, hours, counted, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, computedAt.UnixMilli(), nullMillis(w.Start), nullMillis(w.End), t.Hours, t.Counted, t.Skipped,
	); err != nil {
		return "", fmt.Errorf("failed to insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO totals_rows (snapshot_id, position, kind, project_key, label, hours)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer func() { _ = stmt.Close() }()

	pos := 0
	for _, key := range t.Order {
		if _, err := stmt.ExecContext(ctx, id, pos, kindProject, key, t.Labels[key], t.Projects[key]); err != nil {
			return "", fmt.Errorf("failed to insert project row: %w", err)
		}
		pos++
		for _, a := range t.Activities[key] {
			if _, err := stmt.ExecContext(ctx, id, pos, kindActivity, key, a.Label, a.Hours); err != nil {
				return "", fmt.Errorf("failed to insert activity row: %w", err)
			}
			pos++
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// LatestTotals loads the most recently computed snapshot.
func (db *DB) LatestTotals(ctx context.Context) (Snapshot, error) {
	var (
		snap       Snapshot
		computedAt int64
		wStart     sql.NullInt64
		wEnd       sql.NullInt64
	)
	snap.Totals = timetrack.NewTotals()

	err := db.QueryRowContext(ctx, `
		SELECT id, computed_at, window_start, window_end, hours, counted, skipped
		FROM totals_snapshots
		ORDER BY computed_at DESC, rowid DESC
		LIMIT 1`,
	).Scan(&snap.ID, &computedAt, &wStart, &wEnd, &snap.Totals.Hours, &snap.Totals.Counted, &snap.Totals.Skipped)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to query snapshot: %w", err)
	}
	snap.ComputedAt = time.UnixMilli(computedAt).UTC()
	snap.Window = timetrack.Window{Start: fromMillis(wStart), End: fromMillis(wEnd)}

	rows, err := db.QueryContext(ctx, `
		SELECT kind, project_key, label, hours
		FROM totals_rows
		WHERE snapshot_id = ?
		ORDER BY position`, snap.ID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to query snapshot rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	t := &snap.Totals
	for rows.Next() {
		var kind, key, label string
		var hours float64
		if err := rows.Scan(&kind, &key, &label, &hours); err != nil {
			return Snapshot{}, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		switch kind {
		case kindProject:
			t.Order = append(t.Order, key)
			t.Labels[key] = label
			t.Projects[key] = hours
		case kindActivity:
			t.Activities[key] = append(t.Activities[key], timetrack.ActivityHours{Label: label, Hours: hours})
		}
	}
	return snap, rows.Err()
}
