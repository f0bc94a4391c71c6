package leaderboard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/exam-session/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/exam-session/internal/db/sqlc"
)

// Ranker reads live leaderboards.
type Ranker interface {
	Tests(ctx context.Context) ([]string, error)
	Top(ctx context.Context, testID string, limit int) ([]Entry, error)
}

// SnapshotWriter stores snapshots.
type SnapshotWriter interface {
	Insert(ctx context.Context, params sqlcgen.InsertLeaderboardSnapshotParams) (sqlcgen.LeaderboardSnapshot, error)
}

// SnapshotWorker periodically persists Redis leaderboards into Postgres.
type SnapshotWorker struct {
	ranker   Ranker
	store    SnapshotWriter
	logger   zerolog.Logger
	interval time.Duration
	topN     int
	hashes   map[string]string
}

func NewSnapshotWorker(ranker Ranker, store SnapshotWriter, interval time.Duration, topN int, logger zerolog.Logger) *SnapshotWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if topN <= 0 {
		topN = 50
	}
	return &SnapshotWorker{
		ranker:   ranker,
		store:    store,
		logger:   logger.With().Str("component", "leaderboard_snapshot_worker").Logger(),
		interval: interval,
		topN:     topN,
		hashes:   make(map[string]string),
	}
}

// Run blocks until context cancellation.
func (w *SnapshotWorker) Run(ctx context.Context) error {
	if w.ranker == nil || w.store == nil {
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *SnapshotWorker) tick(ctx context.Context) {
	tests, err := w.ranker.Tests(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Msg("listing leaderboards failed")
		return
	}
	for _, testID := range tests {
		if err := w.snapshotTest(ctx, testID); err != nil {
			w.logger.Warn().Err(err).Str("test_id", testID).Msg("snapshot failed")
		}
	}
}

// snapshotTest writes a row only when the board changed since the last one.
func (w *SnapshotWorker) snapshotTest(ctx context.Context, testID string) error {
	pgTestID, err := repository.ParsePGUUID(testID)
	if err != nil {
		return err
	}

	entries, err := w.ranker.Top(ctx, testID, w.topN)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	wsEntries := toWSEntries(entries)
	data, err := json.Marshal(wsEntries)
	if err != nil {
		return err
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	if w.hashes[testID] == hash {
		return nil
	}

	now := time.Now().UTC()
	params := sqlcgen.InsertLeaderboardSnapshotParams{
		TestID:      pgTestID,
		GeneratedAt: pgtype.Timestamptz{Time: now, Valid: true},
		Entries:     data,
		SourceHash:  hash,
	}
	if _, err := w.store.Insert(ctx, params); err != nil {
		return err
	}
	w.hashes[testID] = hash

	w.logger.Info().
		Str("test_id", testID).
		Int("entries", len(wsEntries)).
		Time("generated_at", now).
		Msg("leaderboard snapshot persisted")
	return nil
}
