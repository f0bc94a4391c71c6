package proctor

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/exam-session/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/exam-session/internal/db/sqlc"
)

const (
	defaultBatchSize    = 200
	defaultBatchTimeout = 2 * time.Second
	pollTimeout         = time.Second // BLPOP needs at least one second
	retryBackoff        = 3 * time.Second
)

// Source yields queued records.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (string, error)
	Requeue(ctx context.Context, items []string) error
}

// Sink stores violations.
type Sink interface {
	InsertBatch(ctx context.Context, rows []sqlcgen.InsertProctorViolationsParams) (int64, error)
	Insert(ctx context.Context, row sqlcgen.InsertProctorViolationParams) error
}

// StoredCounter is told how many rows reached Postgres.
type StoredCounter interface {
	Stored(n int)
}

// WorkerOptions tunes batching.
type WorkerOptions struct {
	BatchSize    int
	BatchTimeout time.Duration
}

// Worker drains the violation queue into Postgres in batches.
type Worker struct {
	source  Source
	sink    Sink
	counter StoredCounter
	opts    WorkerOptions
	sleep   func(time.Duration)
	logger  zerolog.Logger
}

func NewWorker(source Source, sink Sink, counter StoredCounter, opts WorkerOptions, logger zerolog.Logger) *Worker {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = defaultBatchTimeout
	}
	return &Worker{
		source:  source,
		sink:    sink,
		counter: counter,
		opts:    opts,
		sleep:   time.Sleep,
		logger:  logger.With().Str("component", "proctor_worker").Logger(),
	}
}

type pending struct {
	raw    string
	record Record
}

// Run consumes until ctx is cancelled, then flushes what it holds.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Int("batch_size", w.opts.BatchSize).Msg("proctor worker started")

	buffer := make([]pending, 0, w.opts.BatchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= w.opts.BatchSize || time.Since(lastFlush) >= w.opts.BatchTimeout) {
			w.flush(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return nil
		default:
		}

		raw, err := w.source.Pop(ctx, pollTimeout)
		if err != nil {
			if errors.Is(err, ErrQueueEmpty) {
				continue
			}
			if ctx.Err() != nil {
				w.shutdown(buffer)
				return nil
			}
			w.logger.Error().Err(err).Msg("queue read failed")
			w.sleep(retryBackoff)
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			w.logger.Error().Err(err).Str("data", raw).Msg("discarding malformed violation")
			continue
		}
		buffer = append(buffer, pending{raw: raw, record: rec})
	}
}

// flush tries COPY first and falls back to row inserts; rows that still
// fail go back on the queue.
func (w *Worker) flush(ctx context.Context, batch []pending) {
	rows := make([]sqlcgen.InsertProctorViolationsParams, 0, len(batch))
	bulkOK := true
	for _, p := range batch {
		sid, err := repository.ParsePGUUID(p.record.SessionID)
		if err != nil {
			bulkOK = false
			break
		}
		rows = append(rows, sqlcgen.InsertProctorViolationsParams{
			SessionID:  sid,
			Type:       p.record.Type,
			Message:    p.record.Message,
			OccurredAt: timestamptz(p.record.Timestamp),
		})
	}

	if bulkOK {
		n, err := w.sink.InsertBatch(ctx, rows)
		if err == nil {
			w.stored(int(n))
			return
		}
		w.logger.Warn().Err(err).Int("count", len(batch)).Msg("bulk insert failed, retrying row by row")
	}

	var requeue []string
	stored := 0
	for _, p := range batch {
		sid, err := repository.ParsePGUUID(p.record.SessionID)
		if err != nil {
			w.logger.Error().Str("session_id", p.record.SessionID).Msg("dropping violation with invalid session id")
			continue
		}
		err = w.sink.Insert(ctx, sqlcgen.InsertProctorViolationParams{
			SessionID:  sid,
			Type:       p.record.Type,
			Message:    p.record.Message,
			OccurredAt: timestamptz(p.record.Timestamp),
		})
		if err != nil {
			w.logger.Error().Err(err).Str("session_id", p.record.SessionID).Msg("insert failed, requeueing")
			requeue = append(requeue, p.raw)
			continue
		}
		stored++
	}
	w.stored(stored)

	if len(requeue) == 0 {
		return
	}
	if err := w.source.Requeue(ctx, requeue); err != nil {
		w.logger.Error().Err(err).Int("count", len(requeue)).Msg("requeue failed, violations lost")
		return
	}
	w.logger.Info().Int("count", len(requeue)).Msg("requeued violations")
	w.sleep(retryBackoff)
}

func (w *Worker) shutdown(buffer []pending) {
	if len(buffer) == 0 {
		w.logger.Info().Msg("proctor worker stopped")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	w.flush(ctx, buffer)
	w.logger.Info().Int("flushed", len(buffer)).Msg("proctor worker stopped")
}

func (w *Worker) stored(n int) {
	if w.counter != nil && n > 0 {
		w.counter.Stored(n)
	}
}

func timestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		t = time.Now()
	}
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}
