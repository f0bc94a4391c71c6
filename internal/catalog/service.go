package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/exam-session/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/exam-session/internal/db/sqlc"
	"github.com/gokatarajesh/exam-session/internal/session"
)

// ServiceOptions tunes loading.
type ServiceOptions struct {
	// DefaultMaxQuestions applies when a test sets no limit of its own.
	DefaultMaxQuestions int
}

// Service loads tests with a read-through cache.
type Service struct {
	store  Store
	cache  Cache
	opts   ServiceOptions
	logger zerolog.Logger
}

// NewService constructs a catalog service. cache may be nil.
func NewService(store Store, cache Cache, opts ServiceOptions, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		opts:   opts,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// Load returns the test with every option carrying a stable ID.
func (s *Service) Load(ctx context.Context, testID string) (Test, error) {
	id, err := uuid.Parse(testID)
	if err != nil {
		return Test{}, ErrInvalidID
	}
	key := id.String()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn().Err(err).Str("test_id", key).Msg("catalog cache read failed")
		} else if cached != nil {
			return *cached, nil
		}
	}

	row, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Test{}, ErrTestNotFound
		}
		return Test{}, fmt.Errorf("load test: %w", err)
	}
	rows, err := s.store.Questions(ctx, id)
	if err != nil {
		return Test{}, fmt.Errorf("load questions: %w", err)
	}
	if len(rows) == 0 {
		return Test{}, ErrEmptyTest
	}

	questions := make([]session.Question, 0, len(rows))
	for _, r := range rows {
		q, changed, err := toQuestion(r)
		if err != nil {
			return Test{}, fmt.Errorf("decode question %s: %w", repository.UUIDString(r.QuestionID), err)
		}
		if changed {
			s.persistOptionIDs(ctx, r.QuestionID, q)
		}
		questions = append(questions, q)
	}

	maxQuestions := int(row.MaxQuestions)
	if maxQuestions <= 0 {
		maxQuestions = s.opts.DefaultMaxQuestions
	}

	t := Test{
		Data: session.TestData{
			ID:          key,
			Title:       row.Title,
			Duration:    int(row.DurationSeconds),
			Questions:   questions,
			IsTimed:     row.IsTimed,
			AllowReview: row.AllowReview,
			ShowScore:   row.ShowScore,
		},
		Randomize: session.RandomizeOptions{
			ShuffleQuestions: row.ShuffleQuestions,
			ShuffleOptions:   row.ShuffleOptions,
			MaxQuestions:     maxQuestions,
		},
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, t); err != nil {
			s.logger.Warn().Err(err).Str("test_id", key).Msg("catalog cache write failed")
		}
	}

	s.logger.Debug().Str("test_id", key).Int("questions", len(questions)).Msg("test loaded from postgres")
	return t, nil
}

// persistOptionIDs writes freshly assigned option IDs back so later loads
// hand out the same IDs.
func (s *Service) persistOptionIDs(ctx context.Context, questionID pgtype.UUID, q session.Question) {
	data, err := json.Marshal(q.Options)
	if err != nil {
		return
	}
	params := sqlcgen.UpdateQuestionOptionsParams{
		QuestionID:      questionID,
		Options:         data,
		CorrectOptionID: pgtype.Text{String: q.CorrectOptionID, Valid: q.CorrectOptionID != ""},
	}
	if err := s.store.SaveOptions(ctx, params); err != nil {
		s.logger.Warn().Err(err).Str("question_id", q.ID).Msg("failed to persist option ids")
	}
}
