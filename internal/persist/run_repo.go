package persist

import (
	"context"
	"fmt"
	"time"
)

// RunRow is one simulation run: a scenario plus the constants it was started with.
type RunRow struct {
	ID           int64
	ScenarioKind string
	ScenarioName string
	Seed         uint64
	G            float64
	Dt           float64
	Softening    float64
	BodyCount    int
	StartedAt    time.Time
}

type RunRepo struct {
	db *DB
}

func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// Create inserts row and fills in its ID and StartedAt.
func (r *RunRepo) Create(ctx context.Context, row *RunRow) error {
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO runs (scenario_kind, scenario_name, seed, g, dt, softening, body_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, started_at`,
		row.ScenarioKind, row.ScenarioName, int64(row.Seed),
		row.G, row.Dt, row.Softening, row.BodyCount,
	).Scan(&row.ID, &row.StartedAt)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// Get loads a run by ID.
func (r *RunRepo) Get(ctx context.Context, id int64) (*RunRow, error) {
	row := &RunRow{ID: id}
	var seed int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT scenario_kind, scenario_name, seed, g, dt, softening, body_count, started_at
		 FROM runs WHERE id = $1`, id,
	).Scan(&row.ScenarioKind, &row.ScenarioName, &seed,
		&row.G, &row.Dt, &row.Softening, &row.BodyCount, &row.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("get run %d: %w", id, err)
	}
	row.Seed = uint64(seed)
	return row, nil
}
