package training

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/abishek0504/iron-path-app-sub003/internal/errors"
	"github.com/abishek0504/iron-path-app-sub003/internal/logging"
	"github.com/abishek0504/iron-path-app-sub003/internal/ptr"
	"golang.org/x/sync/errgroup"
)

const (
	// newUserSessions is the history count below which the lower middle of a band is chosen.
	newUserSessions = 3
	// overloadRepsFraction of the top of the rep range must be reached before weight goes up.
	overloadRepsFraction = 0.9
	// overloadMaxRPE is the highest average effort at which weight still goes up.
	overloadMaxRPE     = 7
	weightStepFraction = 0.025
	minWeightStepKg    = 2.5
	durationStepSec    = 5
)

// pickInRange picks the floor of the midpoint for new users and the ceiling otherwise.
func pickInRange(r IntRange, historyCount int) int {
	mid := float64(r.Min+r.Max) / 2 //nolint:mnd // midpoint.
	if historyCount < newUserSessions {
		return r.Clamp(int(math.Floor(mid)))
	}
	return r.Clamp(int(math.Ceil(mid)))
}

// chooseTarget picks a point within band. Progressive overload from history is applied only when progression
// is set; bulk selection leaves it off.
func chooseTarget(band PrescriptionBand, historyCount int, history HistorySummary, progression bool) ExerciseTarget {
	target := ExerciseTarget{
		ExerciseID:  band.ExerciseID,
		Mode:        band.Mode,
		Sets:        pickInRange(band.Sets, historyCount),
		Reps:        nil,
		DurationSec: nil,
		WeightKg:    nil,
		Progressed:  false,
		Band:        band,
	}
	progression = progression && historyCount > 0

	switch band.Mode {
	case ModeReps:
		if band.Reps == nil {
			return target
		}
		if progression {
			if reps, weight, ok := overloadReps(*band.Reps, history); ok {
				target.Reps, target.WeightKg, target.Progressed = &reps, &weight, true
				return target
			}
		}
		target.Reps = ptr.Ref(pickInRange(*band.Reps, historyCount))
	case ModeTimed:
		if band.DurationSec == nil {
			return target
		}
		if progression && history.LastDurationSec != nil && *history.LastDurationSec > 0 {
			target.DurationSec = ptr.Ref(band.DurationSec.Clamp(*history.LastDurationSec + durationStepSec))
			target.Progressed = true
			return target
		}
		target.DurationSec = ptr.Ref(pickInRange(*band.DurationSec, historyCount))
	}
	return target
}

// overloadReps returns the next reps and weight from history. History is usable only when both the last reps
// and the last weight are known and positive.
func overloadReps(reps IntRange, history HistorySummary) (int, float64, bool) {
	if history.LastReps == nil || history.LastWeightKg == nil || *history.LastReps <= 0 || *history.LastWeightKg <= 0 {
		return 0, 0, false
	}
	lastReps, lastWeight := *history.LastReps, *history.LastWeightKg
	acceptableEffort := history.AvgRPE == nil || *history.AvgRPE <= overloadMaxRPE

	if float64(lastReps) >= overloadRepsFraction*float64(reps.Max) && acceptableEffort {
		return reps.Min, lastWeight + max(lastWeight*weightStepFraction, minWeightStepKg), true
	}
	return reps.Clamp(lastReps + 1), lastWeight, true
}

// SelectTarget picks the target for one exercise, applying progressive overload when historyCount is positive.
//
// ErrNotApplicable is returned when the exercise cannot be resolved or no band is curated for it.
func (s *Service) SelectTarget(
	ctx context.Context,
	userID string,
	exerciseID string,
	tier ExperienceTier,
	historyCount int,
) (ExerciseTarget, error) {
	ctx = logging.WithAttrs(withUser(ctx, userID),
		slog.String("exercise_id", exerciseID), slog.String("tier", string(tier)))
	if userID == "" || exerciseID == "" {
		return ExerciseTarget{}, fmt.Errorf("%w: user id and exercise id are required", ErrInvalidArgument)
	}
	if historyCount < 0 {
		return ExerciseTarget{}, fmt.Errorf("%w: negative history count %d", ErrInvalidArgument, historyCount)
	}
	if _, err := ParseExperienceTier(string(tier)); err != nil {
		return ExerciseTarget{}, err
	}

	resolved, _, err := s.resolveMany(ctx, userID, []string{exerciseID})
	if err != nil {
		return ExerciseTarget{}, errors.Wrap(err, "resolve exercise")
	}
	if len(resolved) == 0 {
		return ExerciseTarget{}, fmt.Errorf("exercise %s not found: %w", exerciseID, ErrNotApplicable)
	}
	mode := ModeOf(resolved[0].IsTimed)

	bands, err := s.repo.prescriptions.listBands(ctx, []string{exerciseID}, tier, mode)
	if err != nil {
		return ExerciseTarget{}, errors.Wrap(err, "look up prescription band", slog.String("mode", string(mode)))
	}
	band, ok := bands[exerciseID]
	if !ok {
		return ExerciseTarget{}, fmt.Errorf("no %s band for %s: %w", mode, exerciseID, ErrNotApplicable)
	}

	var history HistorySummary
	if historyCount > 0 {
		var h ExerciseHistory
		if h, err = s.history(ctx, userID, exerciseID); err != nil {
			return ExerciseTarget{}, errors.Wrap(err, "load exercise history")
		}
		history = h.Summary
	}

	target := chooseTarget(band, historyCount, history, true)
	s.logger.LogAttrs(ctx, slog.LevelDebug, "selected target",
		slog.Int("sets", target.Sets), slog.Bool("progressed", target.Progressed))
	return target, nil
}

// SelectTargets picks targets for many exercises without progressive overload. Exercises that cannot be resolved
// or have no band are dropped and counted. historyCounts may omit exercises, which counts as no history.
func (s *Service) SelectTargets(
	ctx context.Context,
	userID string,
	exerciseIDs []string,
	tier ExperienceTier,
	historyCounts map[string]int,
) (BulkTargets, error) {
	ctx = logging.WithAttrs(withUser(ctx, userID), slog.String("tier", string(tier)))
	if userID == "" {
		return BulkTargets{}, fmt.Errorf("%w: empty user id", ErrInvalidArgument)
	}
	if _, err := ParseExperienceTier(string(tier)); err != nil {
		return BulkTargets{}, err
	}

	resolved, dropped, err := s.resolveMany(ctx, userID, exerciseIDs)
	if err != nil {
		return BulkTargets{}, errors.Wrap(err, "resolve exercises")
	}
	bands, err := s.bandsByMode(ctx, resolved, tier)
	if err != nil {
		return BulkTargets{}, errors.Wrap(err, "look up prescription bands")
	}

	targets := make([]ExerciseTarget, 0, len(resolved))
	for _, ex := range resolved {
		band, ok := bands[ModeOf(ex.IsTimed)][ex.ID]
		if !ok {
			s.logger.LogAttrs(ctx, slog.LevelDebug, "dropping exercise without band", slog.String("exercise_id", ex.ID))
			dropped = append(dropped, ex.ID)
			continue
		}
		targets = append(targets, chooseTarget(band, historyCounts[ex.ID], HistorySummary{}, false))
	}

	if len(dropped) > 0 {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "dropped exercises from bulk target selection",
			slog.Int("dropped", len(dropped)), slog.Int("selected", len(targets)))
	}
	return BulkTargets{Targets: targets, Dropped: len(dropped), DroppedIDs: dropped}, nil
}

// bandsByMode fetches the bands of exercises grouped by their mode. The per-mode lookups run concurrently.
func (s *Service) bandsByMode(
	ctx context.Context,
	exercises []EffectiveExercise,
	tier ExperienceTier,
) (map[Mode]map[string]PrescriptionBand, error) {
	idsByMode := map[Mode][]string{}
	for _, ex := range exercises {
		mode := ModeOf(ex.IsTimed)
		idsByMode[mode] = append(idsByMode[mode], ex.ID)
	}

	repsIDs, timedIDs := idsByMode[ModeReps], idsByMode[ModeTimed]
	var repsBands, timedBands map[string]PrescriptionBand
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		repsBands, err = s.repo.prescriptions.listBands(gctx, repsIDs, tier, ModeReps)
		return err
	})
	g.Go(func() error {
		var err error
		timedBands, err = s.repo.prescriptions.listBands(gctx, timedIDs, tier, ModeTimed)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return map[Mode]map[string]PrescriptionBand{ModeReps: repsBands, ModeTimed: timedBands}, nil
}
