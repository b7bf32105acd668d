package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// SnapshotHeader is the summary row of a stored snapshot.
type SnapshotHeader struct {
	ID          uuid.UUID
	Step        uint64
	TakenAt     time.Time
	EntityCount int
	Checksum    []byte
}

// SnapshotRepo stores snapshots in PostgreSQL. With keep > 0 every Save
// prunes all but the newest keep snapshots.
type SnapshotRepo struct {
	db   *DB
	keep int
}

func NewSnapshotRepo(db *DB, keep int) *SnapshotRepo {
	return &SnapshotRepo{db: db, keep: keep}
}

// Save writes the header and every kind payload in one transaction.
func (r *SnapshotRepo) Save(ctx context.Context, enc *Encoded) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("snapshot begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO snapshots (id, step, taken_at, entity_count, checksum, entities)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		enc.ID, int64(enc.Step), enc.Taken, enc.EntityCount, enc.Checksum[:], enc.Entities,
	); err != nil {
		return fmt.Errorf("snapshot insert: %w", err)
	}

	batch := &pgx.Batch{}
	for _, k := range enc.Kinds {
		batch.Queue(
			`INSERT INTO snapshot_components (snapshot_id, kind, count, payload)
			 VALUES ($1, $2, $3, $4)`,
			enc.ID, k.Name, k.Count, k.Payload,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("snapshot components: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("snapshot commit: %w", err)
	}
	if r.keep > 0 {
		n, err := r.Prune(ctx, r.keep)
		if err != nil {
			return err
		}
		if n > 0 {
			r.db.log.Debug("old snapshots pruned", zap.Int64("deleted", n), zap.Int("kept", r.keep))
		}
	}
	return nil
}

// Latest returns the most recent snapshot header. ok is false when the table
// is empty.
func (r *SnapshotRepo) Latest(ctx context.Context) (SnapshotHeader, bool, error) {
	var (
		h    SnapshotHeader
		step int64
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, step, taken_at, entity_count, checksum
		 FROM snapshots ORDER BY taken_at DESC LIMIT 1`,
	).Scan(&h.ID, &step, &h.TakenAt, &h.EntityCount, &h.Checksum)
	if errors.Is(err, pgx.ErrNoRows) {
		return SnapshotHeader{}, false, nil
	}
	if err != nil {
		return SnapshotHeader{}, false, fmt.Errorf("latest snapshot: %w", err)
	}
	h.Step = uint64(step)
	return h, true, nil
}

// Prune deletes all but the newest keep snapshots.
func (r *SnapshotRepo) Prune(ctx context.Context, keep int) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM snapshots WHERE id NOT IN (
		   SELECT id FROM snapshots ORDER BY taken_at DESC LIMIT $1)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}
