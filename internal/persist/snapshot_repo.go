package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/orrery/server/internal/physics"
)

var snapshotColumns = []string{"run_id", "epoch", "step", "idx", "label", "mass", "px", "py", "pz", "vx", "vy", "vz"}

type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save bulk-copies the body collection at (epoch, step). Accelerations are
// not stored: the next step recomputes them.
func (r *SnapshotRepo) Save(ctx context.Context, runID int64, epoch, step uint64, bodies []physics.Body) error {
	n, err := r.db.Pool.CopyFrom(ctx,
		pgx.Identifier{"snapshot_bodies"},
		snapshotColumns,
		pgx.CopyFromRows(snapshotRows(runID, epoch, step, bodies)),
	)
	if err != nil {
		return fmt.Errorf("save snapshot run=%d epoch=%d step=%d: %w", runID, epoch, step, err)
	}
	if int(n) != len(bodies) {
		return fmt.Errorf("save snapshot run=%d epoch=%d step=%d: copied %d of %d bodies", runID, epoch, step, n, len(bodies))
	}
	return nil
}

// Load returns the bodies stored for run at (epoch, step), in index order.
func (r *SnapshotRepo) Load(ctx context.Context, runID int64, epoch, step uint64) ([]physics.Body, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT label, mass, px, py, pz, vx, vy, vz
		 FROM snapshot_bodies WHERE run_id = $1 AND epoch = $2 AND step = $3 ORDER BY idx`,
		runID, int64(epoch), int64(step),
	)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	defer rows.Close()

	var bodies []physics.Body
	for rows.Next() {
		var b physics.Body
		if err := rows.Scan(&b.Label, &b.Mass,
			&b.Pos.X, &b.Pos.Y, &b.Pos.Z,
			&b.Vel.X, &b.Vel.Y, &b.Vel.Z,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot body: %w", err)
		}
		bodies = append(bodies, b)
	}
	return bodies, rows.Err()
}

// Latest returns the newest stored (epoch, step) for run. ok is false when
// the run has no snapshots.
func (r *SnapshotRepo) Latest(ctx context.Context, runID int64) (epoch, step uint64, ok bool, err error) {
	var e, s int64
	err = r.db.Pool.QueryRow(ctx,
		`SELECT epoch, step FROM snapshot_bodies WHERE run_id = $1
		 ORDER BY epoch DESC, step DESC LIMIT 1`, runID,
	).Scan(&e, &s)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, fmt.Errorf("latest snapshot: %w", err)
	}
	return uint64(e), uint64(s), true, nil
}

func snapshotRows(runID int64, epoch, step uint64, bodies []physics.Body) [][]any {
	rows := make([][]any, len(bodies))
	for i, b := range bodies {
		rows[i] = []any{
			runID, int64(epoch), int64(step), int32(i), b.Label, b.Mass,
			b.Pos.X, b.Pos.Y, b.Pos.Z,
			b.Vel.X, b.Vel.Y, b.Vel.Z,
		}
	}
	return rows
}
