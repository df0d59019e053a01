package training

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/abishek0504/iron-path-app-sub003/internal/errors"
	"github.com/abishek0504/iron-path-app-sub003/internal/logging"
	"github.com/abishek0504/iron-path-app-sub003/internal/training/internal/fatigue"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// stressWeights returns the normalised per-muscle weights of ex. Primary muscles weigh 1 and implicit hits their
// own weight; a muscle that is both takes the larger. The result sums to 1, or is empty when ex hits no muscle.
func stressWeights(ex EffectiveExercise) map[string]float64 {
	raw := make(map[string]float64, len(ex.PrimaryMuscles)+len(ex.ImplicitHits))
	for _, m := range ex.PrimaryMuscles {
		raw[string(m)] = 1
	}
	for m, w := range ex.ImplicitHits {
		if w > 0 {
			raw[string(m)] = max(raw[string(m)], w)
		}
	}

	var total float64
	for _, w := range raw {
		total += w
	}
	weights := make(map[string]float64, len(raw))
	for m, w := range raw {
		weights[m] = w / total
	}
	return weights
}

// GenerateDay greedily orders candidates into one training day while keeping simulated fatigue under the ceiling.
//
// Candidates that cannot be resolved or have no band are excluded before the simulation without changing the
// priorities of the others. initialStress is a snapshot that is copied and never written back. The result is
// deterministic for a fixed candidate order; ties go to the earlier candidate.
func (s *Service) GenerateDay(
	ctx context.Context,
	userID string,
	tier ExperienceTier,
	candidates []Candidate,
	initialStress MuscleStressMap,
) (GeneratedDay, error) {
	runID := uuid.New()
	ctx = logging.WithAttrs(withUser(ctx, userID),
		slog.String("run_id", runID.String()), slog.String("tier", string(tier)))
	if userID == "" {
		return GeneratedDay{}, fmt.Errorf("%w: empty user id", ErrInvalidArgument)
	}
	if _, err := ParseExperienceTier(string(tier)); err != nil {
		return GeneratedDay{}, err
	}

	day, err := s.generateDay(ctx, userID, tier, candidates, initialStress)
	if err != nil {
		return GeneratedDay{}, errors.Wrap(err, "generate day", slog.Int("candidates", len(candidates)))
	}
	day.RunID = runID
	return day, nil
}

func (s *Service) generateDay(
	ctx context.Context,
	userID string,
	tier ExperienceTier,
	candidates []Candidate,
	initialStress MuscleStressMap,
) (GeneratedDay, error) {
	exclusions := []Exclusion{}
	exclude := func(id, reason string) {
		s.logger.LogAttrs(ctx, slog.LevelDebug, "excluding candidate",
			slog.String("exercise_id", id), slog.String("reason", reason))
		exclusions = append(exclusions, Exclusion{ExerciseID: id, Reason: reason})
	}

	// The highest priority is taken over every candidate so that excluded ones do not shift the others.
	maxPriority := math.MinInt
	priorities := make(map[string]int, len(candidates))
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		maxPriority = max(maxPriority, c.Priority)
		if _, ok := priorities[c.ExerciseID]; ok {
			exclude(c.ExerciseID, ReasonDuplicate)
			continue
		}
		priorities[c.ExerciseID] = c.Priority
		ids = append(ids, c.ExerciseID)
	}

	resolved, dropped, err := s.resolveMany(ctx, userID, ids)
	if err != nil {
		return GeneratedDay{}, fmt.Errorf("resolve candidates: %w", err)
	}
	for _, id := range dropped {
		exclude(id, ReasonNotFound)
	}
	bands, err := s.bandsByMode(ctx, resolved, tier)
	if err != nil {
		return GeneratedDay{}, fmt.Errorf("look up prescription bands: %w", err)
	}

	profiles := make([]fatigue.Profile, 0, len(resolved))
	sets := make(map[string]int, len(resolved))
	for _, ex := range resolved {
		band, ok := bands[ModeOf(ex.IsTimed)][ex.ID]
		if !ok {
			exclude(ex.ID, ReasonNoBand)
			continue
		}
		targetSets := int(math.Round(float64(band.Sets.Min+band.Sets.Max) / 2)) //nolint:mnd // midpoint.
		sets[ex.ID] = targetSets
		profiles = append(profiles, fatigue.Profile{
			ExerciseID:   ex.ID,
			TargetSets:   targetSets,
			Weights:      stressWeights(ex),
			BasePriority: float64(maxPriority) + 1 - float64(priorities[ex.ID]),
		})
	}

	initial := make(map[string]float64, len(initialStress))
	for m, v := range initialStress {
		initial[string(m)] = v
	}
	result := fatigue.Simulate(profiles, initial)

	planned := make([]PlannedExercise, 0, len(result.Selected))
	for i, id := range result.Selected {
		s.logger.LogAttrs(ctx, slog.LevelDebug, "selected candidate",
			slog.String("exercise_id", id), slog.String("zone", result.Zones[i].String()))
		planned = append(planned, PlannedExercise{ExerciseID: id, Sets: sets[id]})
	}
	for _, id := range result.Blocked {
		exclude(id, ReasonFatigueCeiling)
	}
	projected := make(MuscleStressMap, len(result.Final))
	for m, v := range result.Final {
		projected[MuscleKey(m)] = v
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "generated day",
		slog.Int("candidates", len(candidates)),
		slog.Int("selected", len(planned)),
		slog.Int("excluded", len(exclusions)))
	return GeneratedDay{
		RunID:            uuid.Nil,
		Exercises:        planned,
		Exclusions:       exclusions,
		ProjectedFatigue: projected,
	}, nil
}

// GenerateDayFromAllowList generates a day from the ranked allow-list, seeded with the stress userID accumulated
// over the trailing window.
func (s *Service) GenerateDayFromAllowList(
	ctx context.Context,
	userID string,
	tier ExperienceTier,
	window time.Duration,
) (GeneratedDay, error) {
	if window < 0 {
		return GeneratedDay{}, fmt.Errorf("%w: negative stress window %s", ErrInvalidArgument, window)
	}
	since := s.now().Add(-window)

	var (
		entries []AllowListEntry
		stress  MuscleStressMap
	)
	g, gctx := errgroup.WithContext(withUser(ctx, userID))
	g.Go(func() error {
		var err error
		entries, err = s.repo.plans.listAllowList(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stress, err = s.repo.plans.sumStress(gctx, userID, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return GeneratedDay{}, errors.Wrap(err, "load generation inputs", slog.Duration("window", window))
	}

	candidates := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		candidates = append(candidates, Candidate{ExerciseID: e.ExerciseID, Priority: e.Priority})
	}
	return s.GenerateDay(ctx, userID, tier, candidates, stress)
}

// MuscleStress returns the stress userID accumulated per muscle since the given time.
func (s *Service) MuscleStress(ctx context.Context, userID string, since time.Time) (MuscleStressMap, error) {
	stress, err := s.repo.plans.sumStress(withUser(ctx, userID), userID, since)
	if err != nil {
		return nil, errors.Wrap(err, "sum muscle stress", slog.Time("since", since))
	}
	return stress, nil
}
