package training

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"

	"github.com/abishek0504/iron-path-app-sub003/internal/errors"
	"github.com/abishek0504/iron-path-app-sub003/internal/ptr"
	"golang.org/x/sync/errgroup"
)

// fromRecord converts a stored exercise as-is.
func fromRecord(rec exerciseRecord, source Source) EffectiveExercise {
	return EffectiveExercise{
		ID:              rec.ID,
		Source:          source,
		Name:            rec.Name,
		PrimaryMuscles:  rec.PrimaryMuscles,
		ImplicitHits:    rec.ImplicitHits,
		IsTimed:         rec.IsTimed,
		Equipment:       rec.Equipment,
		MovementPattern: rec.MovementPattern,
		TempoCategory:   rec.TempoCategory,
		DensityScore:    rec.DensityScore,
	}
}

// mergeOverride lays the non-null fields of o over master. Each overridable field is listed explicitly.
func mergeOverride(master exerciseRecord, o overrideRecord) EffectiveExercise {
	return EffectiveExercise{
		ID:              master.ID,
		Source:          SourceOverride,
		Name:            ptr.Or(o.Name, master.Name),
		PrimaryMuscles:  ptr.Or(o.PrimaryMuscles, master.PrimaryMuscles),
		ImplicitHits:    ptr.Or(o.ImplicitHits, master.ImplicitHits),
		IsTimed:         ptr.Or(o.IsTimed, master.IsTimed),
		Equipment:       ptr.Or(o.Equipment, master.Equipment),
		MovementPattern: ptr.Or(o.MovementPattern, master.MovementPattern),
		TempoCategory:   ptr.Or(o.TempoCategory, master.TempoCategory),
		DensityScore:    cmp.Or(o.DensityScore, master.DensityScore),
	}
}

// Resolve returns the effective exercise for ref. Exactly one of ref's ids must be set.
//
// A custom reference must be owned by userID. A master reference is merged with the user's override, if any.
func (s *Service) Resolve(ctx context.Context, userID string, ref ExerciseRef) (EffectiveExercise, error) {
	ctx = withUser(ctx, userID)
	if userID == "" {
		return EffectiveExercise{}, fmt.Errorf("%w: empty user id", ErrInvalidArgument)
	}
	if (ref.ExerciseID == "") == (ref.CustomExerciseID == "") {
		return EffectiveExercise{}, fmt.Errorf("%w: exactly one of exercise id and custom exercise id must be set",
			ErrInvalidArgument)
	}

	if ref.CustomExerciseID != "" {
		customs, err := s.repo.exercises.listCustom(ctx, userID, []string{ref.CustomExerciseID})
		if err != nil {
			return EffectiveExercise{}, errors.Wrap(err, "resolve custom exercise",
				slog.String("custom_exercise_id", ref.CustomExerciseID))
		}
		rec, ok := customs[ref.CustomExerciseID]
		if !ok {
			return EffectiveExercise{}, fmt.Errorf("custom exercise %s: %w", ref.CustomExerciseID, ErrNotFound)
		}
		return fromRecord(rec, SourceCustom), nil
	}

	ids := []string{ref.ExerciseID}
	var (
		masters   map[string]exerciseRecord
		overrides map[string]overrideRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		masters, err = s.repo.exercises.listMasters(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		overrides, err = s.repo.exercises.listOverrides(gctx, userID, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return EffectiveExercise{}, errors.Wrap(err, "resolve exercise", slog.String("exercise_id", ref.ExerciseID))
	}

	master, ok := masters[ref.ExerciseID]
	if !ok {
		return EffectiveExercise{}, fmt.Errorf("exercise %s: %w", ref.ExerciseID, ErrNotFound)
	}
	if o, hasOverride := overrides[ref.ExerciseID]; hasOverride {
		return mergeOverride(master, o), nil
	}
	return fromRecord(master, SourceMaster), nil
}

// ResolveMany resolves ids that are either custom exercise ids owned by userID or master exercise ids.
//
// Resolved exercises are returned in request order with duplicates removed. Ids that cannot be resolved are
// returned as dropped and logged.
func (s *Service) ResolveMany(ctx context.Context, userID string, ids []string) ([]EffectiveExercise, []string, error) {
	ctx = withUser(ctx, userID)
	resolved, dropped, err := s.resolveMany(ctx, userID, ids)
	if err != nil {
		return nil, nil, errors.Wrap(err, "resolve exercises", slog.Int("requested", len(ids)))
	}
	return resolved, dropped, nil
}

func (s *Service) resolveMany(ctx context.Context, userID string, ids []string) ([]EffectiveExercise, []string, error) {
	ids = dedupe(ids)

	// Custom and master lookups are independent, so all three queries run at once and the results are
	// partitioned afterwards.
	var (
		customs   map[string]exerciseRecord
		masters   map[string]exerciseRecord
		overrides map[string]overrideRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		customs, err = s.repo.exercises.listCustom(gctx, userID, ids)
		return err
	})
	g.Go(func() error {
		var err error
		masters, err = s.repo.exercises.listMasters(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		overrides, err = s.repo.exercises.listOverrides(gctx, userID, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	resolved := make([]EffectiveExercise, 0, len(ids))
	var dropped []string
	for _, id := range ids {
		if rec, ok := customs[id]; ok {
			resolved = append(resolved, fromRecord(rec, SourceCustom))
			continue
		}
		master, ok := masters[id]
		if !ok {
			s.logger.LogAttrs(ctx, slog.LevelDebug, "dropping unresolvable exercise", slog.String("exercise_id", id))
			dropped = append(dropped, id)
			continue
		}
		if o, hasOverride := overrides[id]; hasOverride {
			resolved = append(resolved, mergeOverride(master, o))
		} else {
			resolved = append(resolved, fromRecord(master, SourceMaster))
		}
	}
	return resolved, dropped, nil
}

// dedupe removes repeated ids, keeping the first occurrence.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	return unique
}
