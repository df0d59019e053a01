package training

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abishek0504/iron-path-app-sub003/internal/sqlite"
)

// sqlitePlanRepository reads the inputs of day generation: the ranked allow-list and recorded muscle stress.
type sqlitePlanRepository struct {
	baseRepository
}

func newSQLitePlanRepository(db *sqlite.Database, logger *slog.Logger) *sqlitePlanRepository {
	return &sqlitePlanRepository{
		baseRepository: newBaseRepository(db, logger),
	}
}

// listAllowList returns the generation allow-list ordered by priority.
func (r *sqlitePlanRepository) listAllowList(ctx context.Context) ([]AllowListEntry, error) {
	var entries []AllowListEntry
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT exercise_id, priority
		FROM generation_allowlist
		ORDER BY priority`)
	err = queryRows(rows, err, func(row rowScanner) error {
		var e AllowListEntry
		if err = row.Scan(&e.ExerciseID, &e.Priority); err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list allow-list: %w", err)
	}
	return entries, nil
}

// sumStress returns userID's stress per muscle recorded at or after since.
func (r *sqlitePlanRepository) sumStress(ctx context.Context, userID string, since time.Time) (MuscleStressMap, error) {
	stress := MuscleStressMap{}
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT muscle_key, SUM(stress)
		FROM muscle_stress_events
		WHERE user_id = ? AND occurred_at >= ?
		GROUP BY muscle_key`, userID, formatTimestamp(since))
	err = queryRows(rows, err, func(row rowScanner) error {
		var (
			muscle MuscleKey
			total  float64
		)
		if err = row.Scan(&muscle, &total); err != nil {
			return err
		}
		stress[muscle] = total
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sum muscle stress: %w", err)
	}
	return stress, nil
}
