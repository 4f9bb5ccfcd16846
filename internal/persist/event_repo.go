package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Run event kinds.
const (
	EventReset    = "reset"
	EventAddBody  = "add_body"
	EventDiverged = "diverged"
	EventPause    = "pause"
	EventResume   = "resume"
)

type EventRow struct {
	ID        int64
	RunID     int64
	Epoch     uint64
	Step      uint64
	Kind      string
	Detail    map[string]any
	CreatedAt time.Time
}

type EventRepo struct {
	db *DB
}

func NewEventRepo(db *DB) *EventRepo {
	return &EventRepo{db: db}
}

// Append records one event against a run at the epoch and step it happened.
func (r *EventRepo) Append(ctx context.Context, runID int64, epoch, step uint64, kind string, detail map[string]any) error {
	raw, err := encodeDetail(detail)
	if err != nil {
		return err
	}
	if _, err := r.db.Pool.Exec(ctx,
		`INSERT INTO run_events (run_id, epoch, step, kind, detail) VALUES ($1, $2, $3, $4, $5)`,
		runID, int64(epoch), int64(step), kind, raw,
	); err != nil {
		return fmt.Errorf("append %s event: %w", kind, err)
	}
	return nil
}

// List returns a run's events in the order they were recorded. Steps
// restart after each reset, so step alone does not order a run.
func (r *EventRepo) List(ctx context.Context, runID int64) ([]EventRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, epoch, step, kind, detail, created_at FROM run_events
		 WHERE run_id = $1 ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		ev := EventRow{RunID: runID}
		var epoch, step int64
		var raw []byte
		if err := rows.Scan(&ev.ID, &epoch, &step, &ev.Kind, &raw, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Epoch, ev.Step = uint64(epoch), uint64(step)
		if err := json.Unmarshal(raw, &ev.Detail); err != nil {
			return nil, fmt.Errorf("decode event %d detail: %w", ev.ID, err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func encodeDetail(detail map[string]any) ([]byte, error) {
	if detail == nil {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(detail)
	if err != nil {
		return nil, fmt.Errorf("encode event detail: %w", err)
	}
	return raw, nil
}
