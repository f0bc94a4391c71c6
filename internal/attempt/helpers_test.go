package attempt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/exam-session/internal/catalog"
	"github.com/gokatarajesh/exam-session/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/exam-session/internal/db/sqlc"
	"github.com/gokatarajesh/exam-session/internal/leaderboard"
	"github.com/gokatarajesh/exam-session/internal/session"
	ws "github.com/gokatarajesh/exam-session/pkg/http/ws"
)

func sampleTest(id string) catalog.Test {
	return catalog.Test{
		Data: session.TestData{
			ID:          id,
			Title:       "Networking",
			Duration:    600,
			IsTimed:     true,
			AllowReview: true,
			ShowScore:   true,
			Questions: []session.Question{
				{ID: "q1", Type: session.TypeMCQ, Prompt: "TCP port for HTTP?", Points: 2, CorrectOptionID: "q1-a",
					Options: []session.Option{{ID: "q1-a", Text: "80"}, {ID: "q1-b", Text: "25"}}},
				{ID: "q2", Type: session.TypeMCQ, Prompt: "UDP is reliable?", Points: 1, CorrectOptionID: "q2-b",
					Options: []session.Option{{ID: "q2-a", Text: "yes"}, {ID: "q2-b", Text: "no"}}},
				{ID: "q3", Type: session.TypeDescriptive, Prompt: "Explain NAT", Points: 3},
			},
		},
	}
}

type fakeLoader struct {
	tests map[string]catalog.Test
	calls int
}

func (f *fakeLoader) Load(_ context.Context, testID string) (catalog.Test, error) {
	f.calls++
	t, ok := f.tests[testID]
	if !ok {
		return catalog.Test{}, catalog.ErrTestNotFound
	}
	return t, nil
}

type fakeSubmissions struct {
	mu     sync.Mutex
	rows   map[pgtype.UUID]sqlcgen.Submission
	params []sqlcgen.InsertSubmissionParams
	err    error
}

func (f *fakeSubmissions) InsertOnce(ctx context.Context, p sqlcgen.InsertSubmissionParams) (sqlcgen.Submission, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return sqlcgen.Submission{}, false, err
	}
	if f.err != nil {
		return sqlcgen.Submission{}, false, f.err
	}
	f.params = append(f.params, p)
	if f.rows == nil {
		f.rows = make(map[pgtype.UUID]sqlcgen.Submission)
	}
	if row, ok := f.rows[p.SessionID]; ok {
		return row, false, nil
	}
	row := sqlcgen.Submission{
		SubmissionID: repository.PGUUID(uuid.New()),
		SessionID:    p.SessionID,
		TestID:       p.TestID,
		CandidateID:  p.CandidateID,
		Answers:      p.Answers,
		Trigger:      p.Trigger,
		Score:        p.Score,
		MaxScore:     p.MaxScore,
		CorrectCount: p.CorrectCount,
		PendingCount: p.PendingCount,
		SubmittedAt:  pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true},
	}
	f.rows[p.SessionID] = row
	return row, true, nil
}

func (f *fakeSubmissions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.params)
}

type fakeLocks struct {
	held bool
}

func (f *fakeLocks) LockSubmission(context.Context, string) (func() error, error) {
	if f.held {
		return nil, ErrLockHeld
	}
	return func() error { return nil }, nil
}

type fakeResults struct {
	mu       sync.Mutex
	recorded []leaderboard.RecordRequest
}

func (f *fakeResults) RecordResult(_ context.Context, req leaderboard.RecordRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, req)
	return nil
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []ws.Message
}

func (r *recordingSender) SendToSession(_ string, msg ws.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingSender) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.msgs))
	for i, m := range r.msgs {
		out[i] = m.Type
	}
	return out
}

func (r *recordingSender) last() ws.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return ws.Message{}
	}
	return r.msgs[len(r.msgs)-1]
}

type memoryDrafts struct {
	mu     sync.Mutex
	drafts map[string]session.Draft
}

func (m *memoryDrafts) SaveDraft(_ context.Context, testID, candidateID string, d session.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.drafts == nil {
		m.drafts = make(map[string]session.Draft)
	}
	m.drafts[testID+"/"+candidateID] = d
	return nil
}

func (m *memoryDrafts) LoadDraft(_ context.Context, testID, candidateID string) (*session.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[testID+"/"+candidateID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *memoryDrafts) DeleteDraft(_ context.Context, testID, candidateID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, testID+"/"+candidateID)
	return nil
}

type fixture struct {
	svc         *Service
	testID      string
	loader      *fakeLoader
	submissions *fakeSubmissions
	locks       *fakeLocks
	results     *fakeResults
	sender      *recordingSender
	drafts      *memoryDrafts
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	testID := uuid.NewString()
	f := &fixture{
		testID:      testID,
		loader:      &fakeLoader{tests: map[string]catalog.Test{testID: sampleTest(testID)}},
		submissions: &fakeSubmissions{},
		locks:       &fakeLocks{},
		results:     &fakeResults{},
		sender:      &recordingSender{},
		drafts:      &memoryDrafts{},
	}
	if opts.Tick == 0 {
		opts.Tick = time.Hour
	}
	if opts.SubmitTimeout == 0 {
		opts.SubmitTimeout = time.Second
	}
	opts.RecordOnSubmit = true

	f.svc = NewService(Deps{
		Tests:       f.loader,
		Submissions: f.submissions,
		Locks:       f.locks,
		Drafts:      f.drafts,
		Results:     f.results,
		Sender:      f.sender,
	}, opts, zerolog.Nop())
	t.Cleanup(func() { f.svc.Shutdown(context.Background()) })
	return f
}

func (f *fixture) start(t *testing.T, candidateID string) *Entry {
	t.Helper()
	e, _, err := f.svc.Start(context.Background(), f.testID, Candidate{ID: candidateID, DisplayName: "Cand " + candidateID})
	require.NoError(t, err)
	return e
}

var errBoom = errors.New("boom")
