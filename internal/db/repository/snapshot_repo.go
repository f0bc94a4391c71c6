package repository

import (
	"context"

	sqlcgen "github.com/gokatarajesh/exam-session/internal/db/sqlc"
)

type snapshotStore interface {
	InsertLeaderboardSnapshot(ctx context.Context, arg sqlcgen.InsertLeaderboardSnapshotParams) (sqlcgen.LeaderboardSnapshot, error)
	ListRecentSnapshots(ctx context.Context, arg sqlcgen.ListRecentSnapshotsParams) ([]sqlcgen.LeaderboardSnapshot, error)
}

// SnapshotRepository persists leaderboard snapshots.
type SnapshotRepository struct {
	store snapshotStore
}

func NewSnapshotRepository(store snapshotStore) *SnapshotRepository {
	return &SnapshotRepository{store: store}
}

func (r *SnapshotRepository) Insert(ctx context.Context, params sqlcgen.InsertLeaderboardSnapshotParams) (sqlcgen.LeaderboardSnapshot, error) {
	return r.store.InsertLeaderboardSnapshot(ctx, params)
}

// Latest returns the most recent snapshot, or nil if none exist.
func (r *SnapshotRepository) Latest(ctx context.Context, params sqlcgen.ListRecentSnapshotsParams) (*sqlcgen.LeaderboardSnapshot, error) {
	params.Limit = 1
	rows, err := r.store.ListRecentSnapshots(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
