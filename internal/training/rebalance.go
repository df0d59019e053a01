package training

import (
	"context"
	"log/slog"

	"github.com/abishek0504/iron-path-app-sub003/internal/errors"
	"github.com/abishek0504/iron-path-app-sub003/internal/logging"
)

const (
	// DefaultLookbackSessions is the number of recent completed sessions DetectGaps analyses by default.
	DefaultLookbackSessions = 6
	// DefaultMinGapMuscles is the number of missed muscles that triggers a rebalance by default.
	DefaultMinGapMuscles = 1
)

// DetectGaps reports the canonical muscles that none of userID's last lookbackSessions completed sessions trained.
//
// The check is advisory: any failure is logged and reported as not triggered. Non-positive arguments fall back to
// DefaultLookbackSessions and DefaultMinGapMuscles.
func (s *Service) DetectGaps(ctx context.Context, userID string, lookbackSessions, minGapMuscles int) GapReport {
	if lookbackSessions <= 0 {
		lookbackSessions = DefaultLookbackSessions
	}
	if minGapMuscles <= 0 {
		minGapMuscles = DefaultMinGapMuscles
	}
	ctx = logging.WithAttrs(withUser(ctx, userID), slog.Int("lookback_sessions", lookbackSessions))

	report, err := s.detectGaps(ctx, userID, lookbackSessions, minGapMuscles)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "rebalance check degraded to untriggered", errors.SlogError(err))
		return GapReport{Triggered: false, MissedMuscles: []MuscleKey{}, SessionsAnalyzed: 0}
	}
	return report
}

func (s *Service) detectGaps(ctx context.Context, userID string, lookbackSessions, minGapMuscles int) (GapReport, error) {
	report := GapReport{Triggered: false, MissedMuscles: []MuscleKey{}, SessionsAnalyzed: 0}

	sessions, err := s.repo.sessions.listRecentCompleted(ctx, userID, lookbackSessions)
	if err != nil {
		return report, errors.Wrap(err, "list recent sessions")
	}
	if len(sessions) == 0 {
		return report, nil
	}
	report.SessionsAnalyzed = len(sessions)

	var performed []string
	for _, session := range sessions {
		performed = append(performed, session.ExerciseIDs...)
	}
	exercises, _, err := s.resolveMany(ctx, userID, performed)
	if err != nil {
		return report, errors.Wrap(err, "resolve performed exercises")
	}
	hit := make(map[MuscleKey]bool)
	for _, ex := range exercises {
		for _, m := range ex.Muscles() {
			hit[m] = true
		}
	}

	canonical, err := s.repo.exercises.listMuscles(ctx)
	if err != nil {
		return report, errors.Wrap(err, "list canonical muscles")
	}
	for _, m := range canonical {
		if !hit[m] {
			report.MissedMuscles = append(report.MissedMuscles, m)
		}
	}
	report.Triggered = len(report.MissedMuscles) >= minGapMuscles

	s.logger.LogAttrs(ctx, slog.LevelDebug, "detected muscle gaps",
		slog.Int("sessions", len(sessions)),
		slog.Int("missed", len(report.MissedMuscles)),
		slog.Bool("triggered", report.Triggered))
	return report, nil
}
