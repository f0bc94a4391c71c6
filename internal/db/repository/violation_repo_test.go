package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	sqlcgen "github.com/gokatarajesh/exam-session/internal/db/sqlc"
)

type mockViolationStore struct {
	mock.Mock
}

func (m *mockViolationStore) InsertProctorViolation(ctx context.Context, arg sqlcgen.InsertProctorViolationParams) error {
	return m.Called(ctx, arg).Error(0)
}

func (m *mockViolationStore) InsertProctorViolations(ctx context.Context, arg []sqlcgen.InsertProctorViolationsParams) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockViolationStore) ListViolationsBySession(ctx context.Context, sessionID pgtype.UUID) ([]sqlcgen.ProctorViolation, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]sqlcgen.ProctorViolation), args.Error(1)
}

type mockSnapshotStore struct {
	mock.Mock
}

func (m *mockSnapshotStore) InsertLeaderboardSnapshot(ctx context.Context, arg sqlcgen.InsertLeaderboardSnapshotParams) (sqlcgen.LeaderboardSnapshot, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(sqlcgen.LeaderboardSnapshot), args.Error(1)
}

func (m *mockSnapshotStore) ListRecentSnapshots(ctx context.Context, arg sqlcgen.ListRecentSnapshotsParams) ([]sqlcgen.LeaderboardSnapshot, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]sqlcgen.LeaderboardSnapshot), args.Error(1)
}

func TestViolationRepository_Batch(t *testing.T) {
	store := new(mockViolationStore)
	repo := NewViolationRepository(store)

	rows := []sqlcgen.InsertProctorViolationsParams{
		{SessionID: uuidFromByte(1), Type: "tab_switch"},
		{SessionID: uuidFromByte(1), Type: "no_face"},
	}
	store.On("InsertProctorViolations", mock.Anything, rows).Return(int64(2), nil)
	store.On("InsertProctorViolation", mock.Anything, mock.AnythingOfType("sqlcgen.InsertProctorViolationParams")).Return(nil)

	n, err := repo.InsertBatch(context.Background(), rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, repo.Insert(context.Background(), sqlcgen.InsertProctorViolationParams{SessionID: uuidFromByte(1)}))
	store.AssertExpectations(t)
}

func TestSnapshotRepository_Latest(t *testing.T) {
	store := new(mockSnapshotStore)
	repo := NewSnapshotRepository(store)

	params := sqlcgen.ListRecentSnapshotsParams{TestID: uuidFromByte(4), Limit: 1}
	snap := sqlcgen.LeaderboardSnapshot{SnapshotID: 3, TestID: params.TestID}
	store.On("ListRecentSnapshots", mock.Anything, params).Return([]sqlcgen.LeaderboardSnapshot{snap}, nil).Once()
	store.On("ListRecentSnapshots", mock.Anything, params).Return([]sqlcgen.LeaderboardSnapshot{}, nil).Once()

	got, err := repo.Latest(context.Background(), sqlcgen.ListRecentSnapshotsParams{TestID: params.TestID, Limit: 50})
	assert.NoError(t, err)
	assert.Equal(t, &snap, got)

	got, err = repo.Latest(context.Background(), params)
	assert.NoError(t, err)
	assert.Nil(t, got)
	store.AssertExpectations(t)
}
