package leaderboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/exam-session/pkg/http/ws"
)

// Fanout delivers messages to connected sockets.
type Fanout interface {
	SendToSession(sessionID string, msg ws.Message) error
	BroadcastAll(msg ws.Message) error
}

// Audience resolves which sessions care about a test's board.
type Audience interface {
	SessionsForTest(testID string) []string
}

// Broadcaster forwards Redis Pub/Sub leaderboard updates to the sessions of
// the affected test. Without an Audience every socket receives them.
type Broadcaster struct {
	redis    *redis.Client
	fanout   Fanout
	audience Audience
	channel  string
	retry    time.Duration
	logger   zerolog.Logger
}

func NewBroadcaster(redis *redis.Client, fanout Fanout, audience Audience, channel string, logger zerolog.Logger) *Broadcaster {
	if channel == "" {
		channel = "lb:updates"
	}
	return &Broadcaster{
		redis:    redis,
		fanout:   fanout,
		audience: audience,
		channel:  channel,
		retry:    time.Second,
		logger:   logger.With().Str("component", "leaderboard_broadcaster").Logger(),
	}
}

// Run subscribes to the update channel until ctx ends, resubscribing when
// the subscription drops.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.redis == nil || b.fanout == nil {
		return nil
	}

	for {
		b.consume(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.retry):
			b.logger.Warn().Str("channel", b.channel).Msg("leaderboard subscription dropped, resubscribing")
		}
	}
}

func (b *Broadcaster) consume(ctx context.Context) {
	sub := b.redis.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.forward(msg.Payload)
		}
	}
}

func (b *Broadcaster) forward(payload string) {
	var evt ws.LeaderboardUpdatePayload
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		b.logger.Warn().Err(err).Msg("failed to decode leaderboard update payload")
		return
	}

	msg, err := ws.NewMessage(ws.TypeLeaderboardUpdate, evt)
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to encode leaderboard message")
		return
	}

	if b.audience == nil {
		if err := b.fanout.BroadcastAll(msg); err != nil {
			b.logger.Warn().Err(err).Msg("failed to broadcast leaderboard update")
		}
		return
	}

	for _, sessionID := range b.audience.SessionsForTest(evt.TestID) {
		// Sessions without a socket are skipped.
		_ = b.fanout.SendToSession(sessionID, msg)
	}
}
