package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/exam-session/internal/session"
)

// ErrLockHeld means another submission for the session is running.
var ErrLockHeld = errors.New("submission lock already held")

const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// StateManager keeps drafts and submission locks in Redis.
type StateManager struct {
	redis    *redis.Client
	draftTTL time.Duration
	lockTTL  time.Duration
	logger   zerolog.Logger
}

var _ session.DraftStore = (*StateManager)(nil)

// NewStateManager creates a state manager backed by Redis.
func NewStateManager(redis *redis.Client, draftTTL, lockTTL time.Duration, logger zerolog.Logger) *StateManager {
	if draftTTL <= 0 {
		draftTTL = 24 * time.Hour
	}
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &StateManager{
		redis:    redis,
		draftTTL: draftTTL,
		lockTTL:  lockTTL,
		logger:   logger.With().Str("component", "attempt_state").Logger(),
	}
}

func draftKey(testID, candidateID string) string {
	return fmt.Sprintf("attempt:draft:%s:%s", testID, candidateID)
}

// LockSubmission acquires the per-session submit lock. The returned
// function releases it only if this holder still owns it.
func (s *StateManager) LockSubmission(ctx context.Context, sessionID string) (func() error, error) {
	key := fmt.Sprintf("attempt:lock:%s", sessionID)
	token := uuid.NewString()

	acquired, err := s.redis.SetNX(ctx, key, token, s.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		return nil, ErrLockHeld
	}

	unlock := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return s.redis.Eval(ctx, unlockScript, []string{key}, token).Err()
	}
	return unlock, nil
}

func (s *StateManager) SaveDraft(ctx context.Context, testID, candidateID string, d session.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	return s.redis.Set(ctx, draftKey(testID, candidateID), data, s.draftTTL).Err()
}

// LoadDraft returns nil when no draft exists.
func (s *StateManager) LoadDraft(ctx context.Context, testID, candidateID string) (*session.Draft, error) {
	data, err := s.redis.Get(ctx, draftKey(testID, candidateID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}

	var d session.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		s.logger.Warn().Err(err).Str("test_id", testID).Str("candidate_id", candidateID).Msg("discarding corrupt draft")
		return nil, nil
	}
	return &d, nil
}

func (s *StateManager) DeleteDraft(ctx context.Context, testID, candidateID string) error {
	return s.redis.Del(ctx, draftKey(testID, candidateID)).Err()
}
