package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqlcgen "github.com/gokatarajesh/exam-session/internal/db/sqlc"
	ws "github.com/gokatarajesh/exam-session/pkg/http/ws"
)

type fakeTop struct {
	entries []Entry
	err     error
	limit   int
}

func (f *fakeTop) Top(_ context.Context, _ string, limit int) ([]Entry, error) {
	f.limit = limit
	return f.entries, f.err
}

type fakeSnapshots struct {
	row *sqlcgen.LeaderboardSnapshot
	err error
}

func (f *fakeSnapshots) Latest(context.Context, sqlcgen.ListRecentSnapshotsParams) (*sqlcgen.LeaderboardSnapshot, error) {
	return f.row, f.err
}

func serve(h *HTTPHandler, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/leaderboards/{testID}", h.HandleGet)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandleGetLive(t *testing.T) {
	testID := uuid.NewString()
	live := &fakeTop{entries: []Entry{
		{CandidateID: "c1", DisplayName: "Ada", Score: 9, MaxScore: 10, Attempts: 2},
		{CandidateID: "c2", DisplayName: "Lin", Score: 7, MaxScore: 10, Attempts: 1},
	}}
	h := NewHTTPHandler(live, &fakeSnapshots{}, zerolog.Nop())

	rec := serve(h, "/v1/leaderboards/"+testID+"?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp leaderboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "redis", resp.Source)
	assert.Equal(t, testID, resp.TestID)
	require.Len(t, resp.Top, 2)
	assert.Equal(t, 1, resp.Top[0].Rank)
	assert.Equal(t, "Ada", resp.Top[0].DisplayName)
	assert.Equal(t, 2, resp.Top[1].Rank)
	assert.Equal(t, 5, live.limit)
}

func TestHandleGetFallsBackToSnapshot(t *testing.T) {
	data, err := json.Marshal([]ws.LeaderboardEntry{{Rank: 1, CandidateID: "c1", Score: 4}, {Rank: 2, CandidateID: "c2", Score: 3}})
	require.NoError(t, err)
	h := NewHTTPHandler(&fakeTop{err: errors.New("redis down")}, &fakeSnapshots{row: &sqlcgen.LeaderboardSnapshot{Entries: data}}, zerolog.Nop())

	rec := serve(h, "/v1/leaderboards/"+uuid.NewString()+"?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp leaderboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "snapshot", resp.Source)
	require.Len(t, resp.Top, 1)
	assert.Equal(t, "c1", resp.Top[0].CandidateID)
}

func TestHandleGetUnavailable(t *testing.T) {
	h := NewHTTPHandler(&fakeTop{err: errors.New("redis down")}, &fakeSnapshots{}, zerolog.Nop())

	rec := serve(h, "/v1/leaderboards/"+uuid.NewString())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleGetEmptyBoard(t *testing.T) {
	h := NewHTTPHandler(&fakeTop{}, &fakeSnapshots{}, zerolog.Nop())

	rec := serve(h, "/v1/leaderboards/"+uuid.NewString())
	require.Equal(t, http.StatusOK, rec.Code)

	var resp leaderboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Top)
	assert.Equal(t, "redis", resp.Source)
}

func TestHandleGetRejectsBadID(t *testing.T) {
	h := NewHTTPHandler(&fakeTop{}, nil, zerolog.Nop())

	rec := serve(h, "/v1/leaderboards/weekly")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
