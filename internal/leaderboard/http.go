package leaderboard

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/exam-session/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/exam-session/internal/db/sqlc"
	httperrors "github.com/gokatarajesh/exam-session/pkg/http/errors"
	ws "github.com/gokatarajesh/exam-session/pkg/http/ws"
)

// TopReader serves live rankings.
type TopReader interface {
	Top(ctx context.Context, testID string, limit int) ([]Entry, error)
}

// SnapshotReader serves the last persisted ranking.
type SnapshotReader interface {
	Latest(ctx context.Context, params sqlcgen.ListRecentSnapshotsParams) (*sqlcgen.LeaderboardSnapshot, error)
}

// HTTPHandler exposes REST endpoints for leaderboard queries.
type HTTPHandler struct {
	live      TopReader
	snapshots SnapshotReader
	logger    zerolog.Logger
}

// NewHTTPHandler constructs a leaderboard HTTP handler.
func NewHTTPHandler(live TopReader, snapshots SnapshotReader, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		live:      live,
		snapshots: snapshots,
		logger:    logger.With().Str("component", "leaderboard_http").Logger(),
	}
}

type leaderboardResponse struct {
	TestID      string                `json:"test_id"`
	Top         []ws.LeaderboardEntry `json:"top"`
	Source      string                `json:"source"`
	RetrievedAt string                `json:"retrieved_at"`
}

// HandleGet responds with the leaderboard for a test.
// Route: GET /v1/leaderboards/{testID}?limit=10
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	testID := r.PathValue("testID")
	pgTestID, err := repository.ParsePGUUID(testID)
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "invalid test id")
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	ctx := r.Context()
	resp := leaderboardResponse{
		TestID: testID,
		Top:    []ws.LeaderboardEntry{},
		Source: "redis",
	}

	liveFailed := false
	if h.live != nil {
		entries, err := h.live.Top(ctx, testID, limit)
		if err != nil {
			liveFailed = true
			h.logger.Warn().Err(err).Str("test_id", testID).Msg("redis leaderboard fetch failed")
		} else if len(entries) > 0 {
			resp.Top = toWSEntries(entries)
		}
	}

	if len(resp.Top) == 0 {
		top, ok := h.snapshotFallback(ctx, pgTestID, limit)
		switch {
		case ok:
			resp.Top = top
			resp.Source = "snapshot"
		case liveFailed:
			httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeLeaderboardFetchFailed, "leaderboard unavailable")
			return
		}
	}

	resp.RetrievedAt = time.Now().UTC().Format(time.RFC3339)
	writeJSON(w, resp)
}

func (h *HTTPHandler) snapshotFallback(ctx context.Context, testID pgtype.UUID, limit int) ([]ws.LeaderboardEntry, bool) {
	if h.snapshots == nil {
		return nil, false
	}
	row, err := h.snapshots.Latest(ctx, sqlcgen.ListRecentSnapshotsParams{TestID: testID})
	if err != nil {
		h.logger.Warn().Err(err).Msg("snapshot fetch failed")
		return nil, false
	}
	if row == nil {
		return nil, false
	}

	var entries []ws.LeaderboardEntry
	if err := json.Unmarshal(row.Entries, &entries); err != nil {
		h.logger.Warn().Err(err).Msg("snapshot payload decode failed")
		return nil, false
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, true
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
