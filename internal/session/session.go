package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultSubmitTimeout = 15 * time.Second

// Events are optional observers, called without the session lock held.
type Events struct {
	OnTick         func(remaining int)
	OnSubmitted    func(trigger Trigger, ack Ack)
	OnSubmitFailed func(trigger Trigger, err error)
	OnSignal       func(Signal)
	OnViolation    func(Violation)
}

// Config wires a session to its collaborators.
type Config struct {
	ID            string
	CandidateID   string
	Randomize     RandomizeOptions
	Randomizer    *Randomizer
	Tick          time.Duration
	SubmitTimeout time.Duration
	Persister     Persister
	Monitor       Monitor
	Violations    ViolationRecorder
	Drafts        DraftPolicy
	Resume        *Draft
	Events        Events
	Logger        zerolog.Logger
}

// Session is one candidate taking one test, from start to submission.
type Session struct {
	mu        sync.Mutex
	cfg       Config
	test      TestData
	questions []Question
	index     map[string]int

	answers *AnswerStore
	nav     *Navigator
	timer   *Timer
	ctrl    *Controller

	createdAt  time.Time
	lastActive time.Time
	signal     *Signal
	violations []Violation
	seen       map[violationKey]struct{}

	started     bool
	closed      atomic.Bool
	unsubscribe func()
	draftStop   chan struct{}
	draftWG     sync.WaitGroup

	logger zerolog.Logger
}

// New builds a session and fixes its question order. Nothing runs until Start.
// A Resume draft whose questions no longer exist in test yields ErrDraftMismatch.
func New(test TestData, cfg Config) (*Session, error) {
	if cfg.Persister == nil {
		return nil, fmt.Errorf("session: persister is required")
	}
	if len(test.Questions) == 0 {
		return nil, fmt.Errorf("session: test %s has no questions", test.ID)
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = defaultSubmitTimeout
	}
	if cfg.Randomizer == nil {
		cfg.Randomizer = NewRandomizer(nil)
	}

	s := &Session{
		cfg:       cfg,
		test:      test,
		createdAt: time.Now(),
		seen:      make(map[violationKey]struct{}),
		logger: cfg.Logger.With().
			Str("session_id", cfg.ID).
			Str("test_id", test.ID).
			Str("candidate_id", cfg.CandidateID).
			Logger(),
	}
	s.lastActive = s.createdAt

	if cfg.Resume != nil {
		s.questions = applyDraftOrder(test.Questions, *cfg.Resume)
		if len(s.questions) == 0 {
			return nil, ErrDraftMismatch
		}
	} else {
		s.questions = cfg.Randomizer.Randomize(test.Questions, cfg.Randomize)
	}

	ids := make([]string, len(s.questions))
	s.index = make(map[string]int, len(s.questions))
	for i, q := range s.questions {
		ids[i] = q.ID
		s.index[q.ID] = i
	}

	s.ctrl = NewController(cfg.ID, cfg.Persister, ControllerHooks{
		Snapshot:  s.takeSnapshot,
		Reverted:  s.onReverted,
		Completed: s.onCompleted,
	})
	s.answers = NewAnswerStore(s.writable)
	s.nav = NewNavigator(ids, s.movable, s.writable)

	duration := test.Duration
	if cfg.Resume != nil {
		restored := make(map[string]string, len(cfg.Resume.Answers))
		for id, v := range cfg.Resume.Answers {
			if _, ok := s.index[id]; ok {
				restored[id] = v
			}
		}
		s.answers.Restore(restored)
		s.nav.restore(cfg.Resume.Current, cfg.Resume.Bookmarks, cfg.Resume.Flags)
		// Untimed drafts carry -1. Zero means the clock already ran out.
		if cfg.Resume.Remaining >= 0 && cfg.Resume.Remaining < duration {
			duration = cfg.Resume.Remaining
		}
	}
	if test.IsTimed {
		s.timer = NewTimer(duration, TimerOptions{
			Tick:     cfg.Tick,
			OnTick:   s.onTick,
			OnExpire: s.onExpire,
		})
	}

	return s, nil
}

// applyDraftOrder rebuilds a saved order; it returns nil if the draft is
// empty or no longer matches the test.
func applyDraftOrder(questions []Question, d Draft) []Question {
	byID := make(map[string]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	out := make([]Question, 0, len(d.Order))
	for _, id := range d.Order {
		q, ok := byID[id]
		if !ok {
			return nil
		}
		if order, ok := d.Options[id]; ok && len(order) == len(q.Options) {
			opts := make([]Option, 0, len(order))
			for _, optID := range order {
				for _, opt := range q.Options {
					if opt.ID == optID {
						opts = append(opts, opt)
						break
					}
				}
			}
			if len(opts) == len(q.Options) {
				q.Options = opts
			}
		}
		out = append(out, q)
	}
	return out
}

// Start launches the countdown, the proctoring subscription and draft
// autosave. Calling it again has no effect.
func (s *Session) Start() error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	if s.cfg.Monitor != nil {
		unsubscribe := s.cfg.Monitor.Subscribe(s.onSignal)
		s.mu.Lock()
		s.unsubscribe = unsubscribe
		s.mu.Unlock()
	}

	if s.cfg.Drafts.Enabled() {
		s.draftStop = make(chan struct{})
		s.draftWG.Add(1)
		go s.autosave(s.draftStop)
	}

	if s.timer != nil {
		s.timer.Start()
	}

	s.logger.Info().
		Int("questions", len(s.questions)).
		Bool("timed", s.test.IsTimed).
		Int("duration", s.test.Duration).
		Bool("resumed", s.cfg.Resume != nil).
		Msg("session started")
	return nil
}

// Close tears the session down: the timer is cancelled, the monitor is
// unsubscribed and autosave stops. It is idempotent.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.stopAutosave()

	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}

	s.logger.Debug().Str("status", string(s.Status())).Msg("session closed")
}

// Closed reports whether Close has run.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

func (s *Session) ID() string          { return s.cfg.ID }
func (s *Session) TestID() string      { return s.test.ID }
func (s *Session) CandidateID() string { return s.cfg.CandidateID }

// Questions returns the questions in presentation order.
func (s *Session) Questions() []Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// Status is the submission state.
func (s *Session) Status() Status {
	return s.ctrl.State()
}

// LastActive is the time of the last candidate interaction.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// writable gates every mutation. Called with s.mu held.
func (s *Session) writable() bool {
	return !s.closed.Load() && s.ctrl.State() == StatusInProgress
}

// movable gates navigation; after submission only review mode may move.
func (s *Session) movable() bool {
	if s.closed.Load() {
		return false
	}
	if s.ctrl.State() == StatusSubmitted {
		return s.test.AllowReview
	}
	return true
}

// SetAnswer stores a response. It reports false, with no error, when the
// session no longer accepts answers. MCQ values must be option IDs.
func (s *Session) SetAnswer(questionID, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[questionID]
	if !ok {
		return false, ErrUnknownQuestion
	}
	q := s.questions[i]
	if q.Type == TypeMCQ && value != "" && !q.HasOption(value) {
		return false, ErrUnknownOption
	}
	if !s.answers.Set(questionID, value) {
		return false, nil
	}
	s.lastActive = time.Now()
	return true, nil
}

// Answer returns the stored response; ok is false when unanswered.
func (s *Session) Answer(questionID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers.Get(questionID)
}

// AnsweredCount counts questions with a non-empty response.
func (s *Session) AnsweredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers.AnsweredCount()
}

// Current returns the current question index.
func (s *Session) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Current()
}

func (s *Session) GoTo(index int) bool {
	return s.move(func() bool { return s.nav.GoTo(index) })
}

func (s *Session) Next() bool {
	return s.move(s.nav.Next)
}

func (s *Session) Prev() bool {
	return s.move(s.nav.Prev)
}

func (s *Session) NextUnanswered() bool {
	return s.move(func() bool { return s.nav.NextUnanswered(s.answers.IsAnswered) })
}

func (s *Session) move(fn func() bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved := fn()
	if moved {
		s.lastActive = time.Now()
	}
	return moved
}

// ToggleBookmark flips the bookmark and returns the new membership.
func (s *Session) ToggleBookmark(questionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[questionID]; !ok {
		return false, ErrUnknownQuestion
	}
	s.lastActive = time.Now()
	return s.nav.ToggleBookmark(questionID), nil
}

// ToggleFlag flips the flag. Raising a flag is reported as a
// question_flagged violation.
func (s *Session) ToggleFlag(questionID string) (bool, error) {
	s.mu.Lock()
	if _, ok := s.index[questionID]; !ok {
		s.mu.Unlock()
		return false, ErrUnknownQuestion
	}
	wasFlagged := s.nav.IsFlagged(questionID)
	flagged := s.nav.ToggleFlag(questionID)
	s.lastActive = time.Now()
	s.mu.Unlock()

	if flagged && !wasFlagged {
		s.recordViolation(Violation{
			Type:      ViolationQuestionFlagged,
			Message:   fmt.Sprintf("question %s flagged", questionID),
			Timestamp: time.Now(),
		})
	}
	return flagged, nil
}

func (s *Session) recordViolation(v Violation) {
	s.logger.Info().Str("violation", v.Type).Msg(v.Message)
	if s.cfg.Violations == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.cfg.Violations.RecordViolation(ctx, s.cfg.ID, v); err != nil {
		s.logger.Warn().Err(err).Str("violation", v.Type).Msg("failed to record violation")
	}
}

// Submit is the manual submission. See Controller.Submit for the errors.
// Cancelling ctx does not abort a persistence call already issued; it is
// bounded by the submit timeout instead.
func (s *Session) Submit(ctx context.Context) (Ack, error) {
	if s.closed.Load() {
		return Ack{}, ErrClosed
	}
	ctx, cancel := s.submitContext(ctx)
	defer cancel()
	return s.ctrl.Submit(ctx)
}

// AutoSubmit submits on deadline. Repeated calls are no-ops.
func (s *Session) AutoSubmit(ctx context.Context) (Ack, error) {
	if s.closed.Load() {
		return Ack{}, nil
	}
	ctx, cancel := s.submitContext(ctx)
	defer cancel()
	return s.ctrl.AutoSubmit(ctx)
}

func (s *Session) submitContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), s.cfg.SubmitTimeout)
}

// Remaining is the countdown, or -1 for untimed tests.
func (s *Session) Remaining() int {
	if s.timer == nil {
		return -1
	}
	return s.timer.Remaining()
}

func (s *Session) takeSnapshot(trigger Trigger) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		SessionID:        s.cfg.ID,
		TestID:           s.test.ID,
		CandidateID:      s.cfg.CandidateID,
		Answers:          s.answers.Snapshot(),
		Trigger:          trigger,
		RemainingSeconds: s.Remaining(),
		TakenAt:          time.Now(),
	}
}

func (s *Session) onReverted(trigger Trigger, err error) {
	s.logger.Warn().Err(err).Str("trigger", string(trigger)).Msg("submission failed, session back in progress")
	if fn := s.cfg.Events.OnSubmitFailed; fn != nil && !s.closed.Load() {
		fn(trigger, err)
	}
}

func (s *Session) onCompleted(trigger Trigger, ack Ack) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.stopAutosave()
	if s.cfg.Drafts.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := s.cfg.Drafts.Store.DeleteDraft(ctx, s.test.ID, s.cfg.CandidateID); err != nil {
			s.logger.Warn().Err(err).Msg("failed to delete draft")
		}
		cancel()
	}

	s.logger.Info().
		Str("trigger", string(trigger)).
		Str("submission_id", ack.SubmissionID).
		Int("answered", s.AnsweredCount()).
		Msg("session submitted")

	if fn := s.cfg.Events.OnSubmitted; fn != nil && !s.closed.Load() {
		fn(trigger, ack)
	}
}

func (s *Session) onTick(remaining int) {
	if s.closed.Load() {
		return
	}
	if fn := s.cfg.Events.OnTick; fn != nil {
		fn(remaining)
	}
}

func (s *Session) onExpire() {
	if s.closed.Load() {
		return
	}
	if _, err := s.AutoSubmit(context.Background()); err != nil {
		s.logger.Error().Err(err).Msg("auto-submit failed")
	}
}

func (s *Session) onSignal(sig Signal) {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	cp := sig
	s.signal = &cp
	// Signals carry the accumulated list; only unseen entries are kept.
	var fresh []Violation
	for _, v := range sig.Violations {
		key := violationKey{kind: v.Type, message: v.Message, at: v.Timestamp.UnixNano()}
		if _, ok := s.seen[key]; ok {
			continue
		}
		s.seen[key] = struct{}{}
		fresh = append(fresh, v)
	}
	s.violations = append(s.violations, fresh...)
	s.mu.Unlock()

	if fn := s.cfg.Events.OnSignal; fn != nil {
		fn(sig)
	}
	for _, v := range fresh {
		s.logger.Info().Str("violation", v.Type).Time("at", v.Timestamp).Msg("proctoring violation")
		if fn := s.cfg.Events.OnViolation; fn != nil {
			fn(v)
		}
	}
}

type violationKey struct {
	kind    string
	message string
	at      int64
}

func (s *Session) autosave(stop <-chan struct{}) {
	defer s.draftWG.Done()

	ticker := time.NewTicker(s.cfg.Drafts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.SaveDraft(context.Background()); err != nil {
				s.logger.Warn().Err(err).Msg("draft autosave failed")
			}
		}
	}
}

func (s *Session) stopAutosave() {
	s.mu.Lock()
	stop := s.draftStop
	s.draftStop = nil
	s.mu.Unlock()
	if stop != nil {
		close(stop)
		s.draftWG.Wait()
	}
}

// SaveDraft writes the resumable state. It does nothing once the session
// has left in_progress or when no draft store is configured.
func (s *Session) SaveDraft(ctx context.Context) error {
	if s.cfg.Drafts.Store == nil {
		return nil
	}
	d, ok := s.draft()
	if !ok {
		return nil
	}
	return s.cfg.Drafts.Store.SaveDraft(ctx, s.test.ID, s.cfg.CandidateID, d)
}

func (s *Session) draft() (Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.writable() {
		return Draft{}, false
	}
	order := make([]string, len(s.questions))
	options := make(map[string][]string)
	for i, q := range s.questions {
		order[i] = q.ID
		if len(q.Options) > 0 {
			ids := make([]string, len(q.Options))
			for j, opt := range q.Options {
				ids[j] = opt.ID
			}
			options[q.ID] = ids
		}
	}
	return Draft{
		SessionID: s.cfg.ID,
		Order:     order,
		Options:   options,
		Answers:   s.answers.Snapshot(),
		Bookmarks: s.nav.Bookmarks(),
		Flags:     s.nav.Flags(),
		Current:   s.nav.Current(),
		Remaining: s.Remaining(),
		SavedAt:   time.Now(),
	}, true
}
