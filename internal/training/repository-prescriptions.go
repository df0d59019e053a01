package training

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/abishek0504/iron-path-app-sub003/internal/sqlite"
)

// sqlitePrescriptionRepository reads curated prescription bands.
type sqlitePrescriptionRepository struct {
	baseRepository
}

func newSQLitePrescriptionRepository(db *sqlite.Database, logger *slog.Logger) *sqlitePrescriptionRepository {
	return &sqlitePrescriptionRepository{
		baseRepository: newBaseRepository(db, logger),
	}
}

// listBands returns the bands of ids for tier and mode keyed by exercise id. Ids without a band are absent, and
// so are rows that fail validation.
func (r *sqlitePrescriptionRepository) listBands(
	ctx context.Context,
	ids []string,
	tier ExperienceTier,
	mode Mode,
) (map[string]PrescriptionBand, error) {
	bands := make(map[string]PrescriptionBand, len(ids))
	if len(ids) == 0 {
		return bands, nil
	}

	placeholders, args := inClause(ids)
	rows, err := r.db.ReadOnly.QueryContext(ctx, fmt.Sprintf(`
		SELECT exercise_id, sets_min, sets_max, reps_min, reps_max, duration_sec_min, duration_sec_max
		FROM prescriptions
		WHERE experience_tier = ? AND mode = ? AND exercise_id IN (%s)`, placeholders),
		withArgs(args, string(tier), string(mode))...)
	err = queryRows(rows, err, func(row rowScanner) error {
		band := PrescriptionBand{Tier: tier, Mode: mode} //nolint:exhaustruct // scanned below.
		var repsMin, repsMax, durationSecMin, durationSecMax sql.NullInt64
		if err = row.Scan(&band.ExerciseID, &band.Sets.Min, &band.Sets.Max, &repsMin, &repsMax,
			&durationSecMin, &durationSecMax); err != nil {
			return err
		}
		band.Reps = nullableRange(repsMin, repsMax)
		band.DurationSec = nullableRange(durationSecMin, durationSecMax)
		if validationErr := band.validate(); validationErr != nil {
			r.logger.LogAttrs(ctx, slog.LevelWarn, "ignoring inconsistent prescription band",
				slog.String("exercise_id", band.ExerciseID), slog.Any("error", validationErr))
			return nil
		}
		bands[band.ExerciseID] = band
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list prescription bands: %w", err)
	}
	return bands, nil
}

// nullableRange returns nil unless both bounds are set.
func nullableRange(lo, hi sql.NullInt64) *IntRange {
	if !lo.Valid || !hi.Valid {
		return nil
	}
	return &IntRange{Min: int(lo.Int64), Max: int(hi.Int64)}
}
