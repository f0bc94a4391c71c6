package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/exam-session/pkg/http/ws"
)

// Entry is one candidate's best result on a test.
type Entry struct {
	CandidateID string  `json:"candidate_id"`
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
	MaxScore    float64 `json:"max_score"`
	Attempts    int     `json:"attempts"`
}

// RecordRequest carries a graded submission.
type RecordRequest struct {
	TestID      string
	SessionID   string
	CandidateID string
	DisplayName string
	Score       float64
	MaxScore    float64
}

// ServiceOptions configures leaderboard service behavior.
type ServiceOptions struct {
	TopN           int
	PublishTop     int
	PubSubChannel  string
	RedisKeyPrefix string
}

// Service keeps per-test leaderboards in Redis and emits updates over Pub/Sub.
type Service struct {
	redis      *redis.Client
	logger     zerolog.Logger
	topN       int
	publishTop int
	channel    string
	prefix     string
}

// NewService constructs a leaderboard service instance.
func NewService(redis *redis.Client, logger zerolog.Logger, opts ServiceOptions) *Service {
	topN := opts.TopN
	if topN <= 0 {
		topN = 50
	}
	publishTop := opts.PublishTop
	if publishTop <= 0 {
		publishTop = 10
	}
	channel := opts.PubSubChannel
	if channel == "" {
		channel = "lb:updates"
	}
	prefix := opts.RedisKeyPrefix
	if prefix == "" {
		prefix = "lb"
	}

	return &Service{
		redis:      redis,
		logger:     logger.With().Str("component", "leaderboard").Logger(),
		topN:       topN,
		publishTop: publishTop,
		channel:    channel,
		prefix:     prefix,
	}
}

// RecordResult keeps the candidate's best score and counts the attempt.
func (s *Service) RecordResult(ctx context.Context, req RecordRequest) error {
	if req.TestID == "" || req.CandidateID == "" {
		return fmt.Errorf("record result: test and candidate are required")
	}

	zKey := s.boardKey(req.TestID)
	metaKey := s.metaKey(req.TestID, req.CandidateID)

	pipe := s.redis.TxPipeline()
	pipe.ZAddGT(ctx, zKey, redis.Z{Score: req.Score, Member: req.CandidateID})
	pipe.HIncrBy(ctx, metaKey, "attempts", 1)
	pipe.HSet(ctx, metaKey, map[string]interface{}{
		"display_name": req.DisplayName,
		"max_score":    strconv.FormatFloat(req.MaxScore, 'f', -1, 64),
	})
	pipe.SAdd(ctx, s.testsKey(), req.TestID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update leaderboard %s: %w", req.TestID, err)
	}

	go s.publishUpdate(context.Background(), req.TestID)
	return nil
}

// Top retrieves the best entries for a test, highest first.
func (s *Service) Top(ctx context.Context, testID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.topN {
		limit = s.topN
	}

	results, err := s.redis.ZRevRangeWithScores(ctx, s.boardKey(testID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}

	entries := make([]Entry, 0, len(results))
	for _, z := range results {
		candidateID, _ := z.Member.(string)
		entry, err := s.readMeta(ctx, testID, candidateID)
		if err != nil {
			s.logger.Warn().Err(err).Str("test_id", testID).Msg("failed to read leaderboard metadata")
			continue
		}
		entry.Score = z.Score
		entries = append(entries, entry)
	}
	return entries, nil
}

// Tests lists every test that has a leaderboard.
func (s *Service) Tests(ctx context.Context) ([]string, error) {
	return s.redis.SMembers(ctx, s.testsKey()).Result()
}

func (s *Service) publishUpdate(ctx context.Context, testID string) {
	entries, err := s.Top(ctx, testID, s.publishTop)
	if err != nil {
		s.logger.Warn().Err(err).Str("test_id", testID).Msg("failed to collect leaderboard update")
		return
	}
	if len(entries) == 0 {
		return
	}

	data, err := json.Marshal(ws.LeaderboardUpdatePayload{
		TestID: testID,
		Top:    toWSEntries(entries),
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal leaderboard update")
		return
	}
	if err := s.redis.Publish(ctx, s.channel, data).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish leaderboard update")
	}
}

func (s *Service) readMeta(ctx context.Context, testID, candidateID string) (Entry, error) {
	data, err := s.redis.HGetAll(ctx, s.metaKey(testID, candidateID)).Result()
	if err != nil {
		return Entry{}, err
	}
	return entryFromMeta(candidateID, data), nil
}

func (s *Service) boardKey(testID string) string {
	return fmt.Sprintf("%s:test:%s", s.prefix, testID)
}

func (s *Service) metaKey(testID, candidateID string) string {
	return fmt.Sprintf("%s:test:%s:meta:%s", s.prefix, testID, candidateID)
}

func (s *Service) testsKey() string {
	return s.prefix + ":tests"
}
