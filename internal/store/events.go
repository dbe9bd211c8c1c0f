package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	appLog "hourcal/internal/log"
	"hourcal/internal/model"
	"hourcal/internal/timetrack"
)

// UpsertEvents writes events in transactions of BatchSize rows, replacing
// rows with the same event key. It returns the number of rows written.
func (db *DB) UpsertEvents(ctx context.Context, events []model.CalendarEvent, syncedAt time.Time) (int, error) {
	written := 0
	for start := 0; start < len(events); start += BatchSize {
		end := min(start+BatchSize, len(events))
		if err := db.upsertBatch(ctx, events[start:end], syncedAt); err != nil {
			return written, fmt.Errorf("failed to upsert events %d-%d: %w", start, end-1, err)
		}
		written += end - start
	}
	appLog.Debug("store events upserted", "count", written)
	return written, nil
}

func (db *DB) upsertBatch(ctx context.Context, batch []model.CalendarEvent, syncedAt time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO calendar_events (
			event_key, source_id, event_id, title, notes, location, all_day,
			start_ms, end_ms, project, activity, hours, synced_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_key) DO UPDATE SET
			title = excluded.title,
			notes = excluded.notes,
			location = excluded.location,
			all_day = excluded.all_day,
			start_ms = excluded.start_ms,
			end_ms = excluded.end_ms,
			project = excluded.project,
			activity = excluded.activity,
			hours = excluded.hours,
			synced_at = excluded.synced_at
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, ev := range batch {
		parsed := timetrack.ParseTitle(ev.Title)
		hours, _ := timetrack.Hours(ev.Start, ev.End)
		if _, err := stmt.ExecContext(ctx,
			ev.Key(), ev.SourceID, ev.ID, ev.Title, ev.Notes, ev.Location, boolInt(ev.AllDay),
			nullMillis(ev.Start), nullMillis(ev.End),
			parsed.Project, parsed.Activity, hours, syncedAt.UnixMilli(),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Events returns stored events whose start lies in [from, to], ordered by
// start. A zero bound leaves that side open.
func (db *DB) Events(ctx context.Context, from, to time.Time) ([]model.CalendarEvent, error) {
	query := `
		SELECT source_id, event_id, title, notes, location, all_day, start_ms, end_ms
		FROM calendar_events
		WHERE start_ms IS NOT NULL
		  AND (? IS NULL OR start_ms >= ?)
		  AND (? IS NULL OR start_ms <= ?)
		ORDER BY start_ms, event_key
	`
	lo, hi := nullMillis(from), nullMillis(to)
	rows, err := db.QueryContext(ctx, query, lo, lo, hi, hi)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.CalendarEvent
	for rows.Next() {
		var (
			ev         model.CalendarEvent
			allDay     int
			start, end sql.NullInt64
		)
		if err := rows.Scan(&ev.SourceID, &ev.ID, &ev.Title, &ev.Notes, &ev.Location, &allDay, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.AllDay = allDay != 0
		ev.Start = fromMillis(start)
		ev.End = fromMillis(end)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// DeleteEventsBefore removes events that ended before cutoff and returns the
// number of rows removed.
func (db *DB) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM calendar_events WHERE COALESCE(end_ms, start_ms) < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}
	return res.RowsAffected()
}

func nullMillis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
