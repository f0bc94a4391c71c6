package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/exam-session/internal/attempt"
	"github.com/gokatarajesh/exam-session/internal/auth/jwt"
	"github.com/gokatarajesh/exam-session/internal/catalog"
	"github.com/gokatarajesh/exam-session/internal/config"
	"github.com/gokatarajesh/exam-session/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/exam-session/internal/db/sqlc"
	"github.com/gokatarajesh/exam-session/internal/grading"
	"github.com/gokatarajesh/exam-session/internal/leaderboard"
	"github.com/gokatarajesh/exam-session/internal/logging"
	"github.com/gokatarajesh/exam-session/internal/metrics"
	"github.com/gokatarajesh/exam-session/internal/proctor"
	"github.com/gokatarajesh/exam-session/internal/server"
	"github.com/gokatarajesh/exam-session/pkg/http/validate"
	ws "github.com/gokatarajesh/exam-session/pkg/http/ws"
)

// worker is a long-running background loop stopped through its context.
type worker struct {
	name string
	run  func(ctx context.Context) error
}

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	attempts  *attempt.Service
	workers   []worker
	bgCancels []context.CancelFunc
	bgDone    chan struct{}
}

// New bootstraps configs, logger, Postgres, Redis and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(logging.Options{
		App:    cfg.Name,
		Env:    cfg.Env,
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	logger.Info().Msg("starting application bootstrap")

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	queries := sqlcgen.New(pool)

	testRepo := repository.NewTestRepository(queries)
	submissionRepo := repository.NewSubmissionRepository(queries)
	violationRepo := repository.NewViolationRepository(queries)
	snapshotRepo := repository.NewSnapshotRepository(queries)

	tokens := jwt.NewManager(jwt.TokenConfig{
		AccessSecret: []byte(cfg.Security.JWTSecret),
		Issuer:       cfg.Security.JWTIssuer,
	})
	m := metrics.New(nil)
	validator := validate.New()
	wsHub := ws.NewHub(logger)

	catalogSvc := catalog.NewService(
		testRepo,
		catalog.NewRedisCache(redisClient, cfg.Catalog.CacheTTL),
		catalog.ServiceOptions{DefaultMaxQuestions: cfg.Session.MaxQuestions},
		logger,
	)

	feed := proctor.NewFeed()
	violationQueue := proctor.NewQueue(redisClient, cfg.Proctor.QueueKey, m)
	proctorWorker := proctor.NewWorker(violationQueue, violationRepo, m, proctor.WorkerOptions{
		BatchSize:    cfg.Proctor.BatchSize,
		BatchTimeout: cfg.Proctor.BatchTimeout,
	}, logger)

	leaderboardSvc := leaderboard.NewService(redisClient, logger, leaderboard.ServiceOptions{
		TopN:          cfg.Leaderboard.SnapshotTopN,
		PubSubChannel: cfg.Leaderboard.PubSubChannel,
	})
	lbHTTPHandler := leaderboard.NewHTTPHandler(leaderboardSvc, snapshotRepo, logger)

	stateMgr := attempt.NewStateManager(redisClient, cfg.Session.DraftTTL, cfg.Session.LockTTL, logger)
	attemptSvc := attempt.NewService(attempt.Deps{
		Tests:       catalogSvc,
		Submissions: submissionRepo,
		Locks:       stateMgr,
		Drafts:      stateMgr,
		Results:     leaderboardSvc,
		Sender:      wsHub,
		Monitors:    feed,
		Violations:  violationQueue,
		Grader:      grading.NewEngine(grading.DefaultConfig()),
		Metrics:     m,
	}, attempt.Options{
		Tick:           cfg.Session.TickInterval,
		SubmitTimeout:  cfg.Session.SubmitTimeout,
		DraftInterval:  cfg.Session.DraftInterval,
		LoadTimeout:    cfg.Catalog.LoadTimeout,
		ReviewWindow:   cfg.Session.ReviewWindow,
		IdleTimeout:    cfg.Session.IdleTimeout,
		RecordOnSubmit: cfg.Session.RecordOnSubmit,
	}, logger)

	lbBroadcaster := leaderboard.NewBroadcaster(redisClient, wsHub, attemptSvc.Registry(), cfg.Leaderboard.PubSubChannel, logger)

	attemptHTTP := attempt.NewHTTPHandlers(attemptSvc, validator, logger)
	attemptWS := attempt.NewHandler(attemptSvc, wsHub, tokens, server.NewWSUpgrader(cfg.CORS.AllowedOrigins), feed, validator, logger)

	workers := []worker{
		{name: "leaderboard broadcaster", run: lbBroadcaster.Run},
		{name: "proctor violation worker", run: proctorWorker.Run},
		{name: "session sweeper", run: attempt.NewSweepWorker(attemptSvc, cfg.Session.SweepInterval, logger).Run},
	}
	if interval := cfg.Leaderboard.SnapshotInterval; interval > 0 {
		snapshotWorker := leaderboard.NewSnapshotWorker(leaderboardSvc, snapshotRepo, interval, cfg.Leaderboard.SnapshotTopN, logger)
		workers = append(workers, worker{name: "leaderboard snapshot worker", run: snapshotWorker.Run})
	}

	deps := []server.Dependency{
		{Name: "postgres", Ping: pool.Ping},
		{Name: "redis", Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	}
	apiServer := server.NewHTTPServer(cfg, logger, deps, server.Routes{
		Attempts:    attemptHTTP,
		SessionWS:   attemptWS.HandleWebSocket,
		Leaderboard: lbHTTPHandler.HandleGet,
		Tokens:      tokens,
	})

	return &Application{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		redis:     redisClient,
		http:      apiServer,
		attempts:  attemptSvc,
		workers:   workers,
		bgCancels: make([]context.CancelFunc, 0, len(workers)),
		bgDone:    make(chan struct{}, len(workers)),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	// Drafts are saved while Redis is still reachable.
	a.attempts.Shutdown(shutdownCtx)

	for _, cancel := range a.bgCancels {
		cancel()
	}
	a.waitForWorkers(shutdownCtx)

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return runErr
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	for _, w := range a.workers {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			defer func() { a.bgDone <- struct{}{} }()
			if err := w.run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Str("worker", w.name).Msg("background worker stopped")
			}
		}()
	}
}

// waitForWorkers lets workers flush buffered state before connections close.
func (a *Application) waitForWorkers(ctx context.Context) {
	for range a.bgCancels {
		select {
		case <-a.bgDone:
		case <-ctx.Done():
			a.logger.Warn().Msg("background workers did not stop before shutdown deadline")
			return
		}
	}
}
