// Package training recommends exercises and targets for a user's training plan.
//
// Targets never leave the curated prescription bands and a generated day never drives a muscle past the
// simulated fatigue ceiling. All entry points are read-only against storage and safe for concurrent use.
package training

import (
	"context"
	"log/slog"
	"time"

	"github.com/abishek0504/iron-path-app-sub003/internal/logging"
	"github.com/abishek0504/iron-path-app-sub003/internal/sqlite"
)

// Service is the entry point of the recommendation core.
type Service struct {
	repo   *repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new training service.
func NewService(db *sqlite.Database, logger *slog.Logger) *Service {
	factory := newRepositoryFactory(db, logger)
	return &Service{
		repo:   factory.newRepository(),
		logger: logger,
		now:    time.Now,
	}
}

// withUser adds the user id to the log attributes of ctx.
func withUser(ctx context.Context, userID string) context.Context {
	return logging.WithAttrs(ctx, slog.String("user_id", userID))
}
