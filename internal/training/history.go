package training

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abishek0504/iron-path-app-sub003/internal/errors"
	"golang.org/x/sync/errgroup"
)

// historyWindowSets is how many of the most recent sets a history summary looks at.
const historyWindowSets = 5

// summarize condenses sets, newest first. Only positive quantities and RPE within 1-10 are trusted.
func summarize(sets []performedSet) HistorySummary {
	var summary HistorySummary
	if len(sets) == 0 {
		return summary
	}

	last := sets[0]
	if last.Reps != nil && *last.Reps > 0 {
		summary.LastReps = last.Reps
	}
	if last.WeightKg != nil && *last.WeightKg > 0 {
		summary.LastWeightKg = last.WeightKg
	}
	if last.DurationSec != nil && *last.DurationSec > 0 {
		summary.LastDurationSec = last.DurationSec
	}

	var (
		rpeSum   float64
		rpeCount int
	)
	for _, set := range sets {
		if set.RPE != nil && *set.RPE >= 1 && *set.RPE <= 10 {
			rpeSum += *set.RPE
			rpeCount++
		}
	}
	if rpeCount > 0 {
		avg := rpeSum / float64(rpeCount)
		summary.AvgRPE = &avg
	}
	return summary
}

// History returns the summary of userID's most recent sets of ref and the number of completed sessions that
// contain it.
func (s *Service) History(ctx context.Context, userID string, ref ExerciseRef) (ExerciseHistory, error) {
	ctx = withUser(ctx, userID)
	if (ref.ExerciseID == "") == (ref.CustomExerciseID == "") {
		return ExerciseHistory{}, fmt.Errorf("%w: exactly one of exercise id and custom exercise id must be set",
			ErrInvalidArgument)
	}
	exerciseID := ref.ExerciseID + ref.CustomExerciseID

	history, err := s.history(ctx, userID, exerciseID)
	if err != nil {
		return ExerciseHistory{}, errors.Wrap(err, "load exercise history", slog.String("exercise_id", exerciseID))
	}
	return history, nil
}

func (s *Service) history(ctx context.Context, userID string, exerciseID string) (ExerciseHistory, error) {
	var (
		sets  []performedSet
		count int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sets, err = s.repo.sessions.listRecentSets(gctx, userID, exerciseID, historyWindowSets)
		return err
	})
	g.Go(func() error {
		var err error
		count, err = s.repo.sessions.countCompletedSessions(gctx, userID, exerciseID)
		return err
	})
	if err := g.Wait(); err != nil {
		return ExerciseHistory{}, err
	}
	return ExerciseHistory{Summary: summarize(sets), SessionCount: count}, nil
}
