package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/exam-session/internal/catalog"
	"github.com/gokatarajesh/exam-session/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/exam-session/internal/db/sqlc"
	"github.com/gokatarajesh/exam-session/internal/grading"
	"github.com/gokatarajesh/exam-session/internal/leaderboard"
	"github.com/gokatarajesh/exam-session/internal/metrics"
	"github.com/gokatarajesh/exam-session/internal/session"
	ws "github.com/gokatarajesh/exam-session/pkg/http/ws"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotOwner        = errors.New("session belongs to another candidate")
)

// Eviction reasons reported to metrics.
const (
	ReasonClosed        = "closed"
	ReasonReplaced      = "replaced"
	ReasonReviewExpired = "review_expired"
	ReasonIdle          = "idle"
	ReasonShutdown      = "shutdown"
)

// TestLoader fetches test definitions.
type TestLoader interface {
	Load(ctx context.Context, testID string) (catalog.Test, error)
}

// SubmissionStore writes final submissions once per session.
type SubmissionStore interface {
	InsertOnce(ctx context.Context, params sqlcgen.InsertSubmissionParams) (sqlcgen.Submission, bool, error)
}

// SubmitLocker serializes submissions for a session across processes.
type SubmitLocker interface {
	LockSubmission(ctx context.Context, sessionID string) (func() error, error)
}

// ResultRecorder feeds graded submissions to rankings.
type ResultRecorder interface {
	RecordResult(ctx context.Context, req leaderboard.RecordRequest) error
}

// Sender pushes messages to a session's socket.
type Sender interface {
	SendToSession(sessionID string, msg ws.Message) error
}

// MonitorSource hands out per-session proctoring monitors.
type MonitorSource interface {
	For(sessionID string) session.Monitor
}

// Deps are the service's collaborators. Only Tests and Submissions are
// required.
type Deps struct {
	Tests       TestLoader
	Submissions SubmissionStore
	Locks       SubmitLocker
	Drafts      session.DraftStore
	Results     ResultRecorder
	Sender      Sender
	Monitors    MonitorSource
	Violations  session.ViolationRecorder
	Grader      *grading.Engine
	Metrics     *metrics.Metrics
}

// Options tunes session behavior.
type Options struct {
	Tick           time.Duration
	SubmitTimeout  time.Duration
	DraftInterval  time.Duration
	LoadTimeout    time.Duration
	ReviewWindow   time.Duration
	IdleTimeout    time.Duration
	RecordOnSubmit bool
}

// Candidate identifies who is taking a test.
type Candidate struct {
	ID          string
	DisplayName string
}

// Service owns the live sessions of this process and persists their
// submissions.
type Service struct {
	deps     Deps
	opts     Options
	registry *Registry
	logger   zerolog.Logger
	now      func() time.Time
}

var _ session.Persister = (*Service)(nil)

func NewService(deps Deps, opts Options, logger zerolog.Logger) *Service {
	if deps.Grader == nil {
		deps.Grader = grading.NewEngine(grading.DefaultConfig())
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 4 * time.Second
	}
	return &Service{
		deps:     deps,
		opts:     opts,
		registry: NewRegistry(),
		logger:   logger.With().Str("component", "attempt").Logger(),
		now:      time.Now,
	}
}

// Registry exposes the live sessions.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Start returns the candidate's active session for the test, resuming a
// saved draft or creating a fresh session when there is none. resumed is
// true unless a brand new session was created.
func (s *Service) Start(ctx context.Context, testID string, cand Candidate) (*Entry, bool, error) {
	if cand.ID == "" {
		return nil, false, fmt.Errorf("start session: candidate is required")
	}
	if e, ok := s.registry.Find(testID, cand.ID); ok && e.active() {
		return e, true, nil
	}

	loadCtx, cancel := context.WithTimeout(ctx, s.opts.LoadTimeout)
	defer cancel()

	test, err := s.deps.Tests.Load(loadCtx, testID)
	if err != nil {
		return nil, false, err
	}
	testID = test.Data.ID

	draft := s.loadDraft(loadCtx, testID, cand.ID)
	entry, err := s.newEntry(test, cand, draft)
	if errors.Is(err, session.ErrDraftMismatch) {
		s.logger.Warn().Err(err).Str("test_id", testID).Str("candidate_id", cand.ID).Msg("draft unusable, starting fresh")
		s.discardDraft(testID, cand.ID)
		draft = nil
		entry, err = s.newEntry(test, cand, nil)
	}
	if err != nil {
		return nil, false, fmt.Errorf("start session: %w", err)
	}

	winner, replaced := s.registry.Claim(entry)
	if winner != entry {
		entry.Session.Close()
		return winner, true, nil
	}
	if replaced != nil {
		replaced.Session.Close()
		s.deps.Metrics.SessionEnded(ReasonReplaced)
	}

	if err := entry.Session.Start(); err != nil {
		s.registry.Remove(entry.Session.ID())
		return nil, false, fmt.Errorf("start session: %w", err)
	}
	resumed := draft != nil
	s.deps.Metrics.SessionStarted(resumed)
	return entry, resumed, nil
}

func (s *Service) newEntry(test catalog.Test, cand Candidate, draft *session.Draft) (*Entry, error) {
	id := uuid.NewString()
	if draft != nil && draft.SessionID != "" {
		id = draft.SessionID
	}

	cfg := session.Config{
		ID:            id,
		CandidateID:   cand.ID,
		Randomize:     test.Randomize,
		Tick:          s.opts.Tick,
		SubmitTimeout: s.opts.SubmitTimeout,
		Persister:     s,
		Violations:    s.deps.Violations,
		Resume:        draft,
		Events:        s.events(id),
		Logger:        s.logger,
	}
	if s.deps.Monitors != nil {
		cfg.Monitor = s.deps.Monitors.For(id)
	}
	if s.deps.Drafts != nil && s.opts.DraftInterval > 0 {
		cfg.Drafts = session.DraftPolicy{Interval: s.opts.DraftInterval, Store: s.deps.Drafts}
	}

	sess, err := session.New(test.Data, cfg)
	if err != nil {
		return nil, err
	}
	return &Entry{
		Session:     sess,
		Test:        test,
		CandidateID: cand.ID,
		DisplayName: cand.DisplayName,
		StartedAt:   s.now(),
	}, nil
}

func (s *Service) loadDraft(ctx context.Context, testID, candidateID string) *session.Draft {
	if s.deps.Drafts == nil || s.opts.DraftInterval <= 0 {
		return nil
	}
	d, err := s.deps.Drafts.LoadDraft(ctx, testID, candidateID)
	if err != nil {
		s.logger.Warn().Err(err).Str("test_id", testID).Str("candidate_id", candidateID).Msg("draft load failed")
		return nil
	}
	return d
}

func (s *Service) discardDraft(testID, candidateID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.deps.Drafts.DeleteDraft(ctx, testID, candidateID); err != nil {
		s.logger.Warn().Err(err).Msg("draft delete failed")
	}
}

// Get returns the session if it belongs to candidateID.
func (s *Service) Get(sessionID, candidateID string) (*Entry, error) {
	e, ok := s.registry.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if e.CandidateID != candidateID {
		return nil, ErrNotOwner
	}
	return e, nil
}

// Close tears down a session the candidate owns. An in-progress session
// keeps its draft so it can be resumed later.
func (s *Service) Close(ctx context.Context, sessionID, candidateID string) error {
	if _, err := s.Get(sessionID, candidateID); err != nil {
		return err
	}
	s.evict(ctx, sessionID, ReasonClosed)
	return nil
}

func (s *Service) evict(ctx context.Context, sessionID, reason string) {
	e, ok := s.registry.Remove(sessionID)
	if !ok {
		return
	}
	if err := e.Session.SaveDraft(ctx); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("draft save on evict failed")
	}
	e.Session.Close()
	s.deps.Metrics.SessionEnded(reason)
	s.logger.Info().Str("session_id", sessionID).Str("reason", reason).Msg("session evicted")
}

// Sweep evicts sessions past their review window or idle timeout and
// returns how many were removed.
func (s *Service) Sweep(ctx context.Context) int {
	now := s.now()
	evicted := 0
	for _, e := range s.registry.All() {
		reason := s.expiry(e, now)
		if reason == "" {
			continue
		}
		s.evict(ctx, e.Session.ID(), reason)
		evicted++
	}
	return evicted
}

func (s *Service) expiry(e *Entry, now time.Time) string {
	if e.Session.Closed() {
		return ReasonClosed
	}
	if e.Session.Status() == session.StatusSubmitted {
		submittedAt := e.Session.LastActive()
		if ack, ok := e.Session.Ack(); ok && !ack.ReceivedAt.IsZero() {
			submittedAt = ack.ReceivedAt
		}
		if now.Sub(submittedAt) >= s.opts.ReviewWindow {
			return ReasonReviewExpired
		}
		return ""
	}
	if s.opts.IdleTimeout > 0 && now.Sub(e.Session.LastActive()) >= s.opts.IdleTimeout {
		return ReasonIdle
	}
	return ""
}

// Shutdown saves drafts and closes every session.
func (s *Service) Shutdown(ctx context.Context) {
	for _, e := range s.registry.All() {
		s.evict(ctx, e.Session.ID(), ReasonShutdown)
	}
}

// SubmitAnswers grades and stores a snapshot. Submitting the same session
// twice returns the first submission's acknowledgement.
func (s *Service) SubmitAnswers(ctx context.Context, sessionID string, snap session.Snapshot) (session.Ack, error) {
	started := time.Now()
	ack, err := s.submit(ctx, sessionID, snap)
	s.deps.Metrics.ObserveSubmit(string(snap.Trigger), started, err)
	return ack, err
}

func (s *Service) submit(ctx context.Context, sessionID string, snap session.Snapshot) (session.Ack, error) {
	entry, ok := s.registry.Get(sessionID)
	if !ok {
		return session.Ack{}, ErrSessionNotFound
	}
	pgSessionID, err := repository.ParsePGUUID(sessionID)
	if err != nil {
		return session.Ack{}, fmt.Errorf("session id: %w", err)
	}
	pgTestID, err := repository.ParsePGUUID(entry.Test.Data.ID)
	if err != nil {
		return session.Ack{}, fmt.Errorf("test id: %w", err)
	}

	if s.deps.Locks != nil {
		unlock, err := s.deps.Locks.LockSubmission(ctx, sessionID)
		if err != nil {
			return session.Ack{}, err
		}
		defer func() {
			if err := unlock(); err != nil {
				s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("submit unlock failed")
			}
		}()
	}

	result := s.deps.Grader.Grade(entry.Session.Questions(), snap.Answers)
	answers, err := json.Marshal(snap.Answers)
	if err != nil {
		return session.Ack{}, fmt.Errorf("marshal answers: %w", err)
	}

	row, created, err := s.deps.Submissions.InsertOnce(ctx, sqlcgen.InsertSubmissionParams{
		SessionID:        pgSessionID,
		TestID:           pgTestID,
		CandidateID:      entry.CandidateID,
		Answers:          answers,
		Trigger:          string(snap.Trigger),
		Score:            result.Score,
		MaxScore:         result.MaxScore,
		CorrectCount:     int32(result.Correct),
		PendingCount:     int32(result.Pending),
		RemainingSeconds: int32(snap.RemainingSeconds),
	})
	if err != nil {
		return session.Ack{}, err
	}

	ack := session.Ack{
		SubmissionID: repository.UUIDString(row.SubmissionID),
		ReceivedAt:   row.SubmittedAt.Time,
	}
	if ack.ReceivedAt.IsZero() {
		ack.ReceivedAt = s.now()
	}
	if entry.Test.Data.ShowScore {
		ack.Score = &session.Score{
			Points:    row.Score,
			MaxPoints: row.MaxScore,
			Correct:   int(row.CorrectCount),
			Pending:   int(row.PendingCount),
		}
	}

	if !created {
		s.logger.Info().Str("session_id", sessionID).Str("submission_id", ack.SubmissionID).Msg("submission already stored")
		return ack, nil
	}

	if s.opts.RecordOnSubmit && s.deps.Results != nil {
		err := s.deps.Results.RecordResult(ctx, leaderboard.RecordRequest{
			TestID:      entry.Test.Data.ID,
			SessionID:   sessionID,
			CandidateID: entry.CandidateID,
			DisplayName: entry.DisplayName,
			Score:       result.Score,
			MaxScore:    result.MaxScore,
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("leaderboard update failed")
		}
	}
	return ack, nil
}
