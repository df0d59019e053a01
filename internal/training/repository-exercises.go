package training

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/abishek0504/iron-path-app-sub003/internal/sqlite"
)

// exerciseRecord is a master or custom exercise row with its muscles.
type exerciseRecord struct {
	ID              string
	Name            string
	IsTimed         bool
	Equipment       string
	MovementPattern string
	TempoCategory   string
	DensityScore    *float64
	PrimaryMuscles  []MuscleKey
	ImplicitHits    map[MuscleKey]float64
}

// overrideRecord is a user's override of a master exercise. Nil fields keep the master value.
type overrideRecord struct {
	Name            *string
	IsTimed         *bool
	Equipment       *string
	MovementPattern *string
	TempoCategory   *string
	DensityScore    *float64
	PrimaryMuscles  *[]MuscleKey
	ImplicitHits    *map[MuscleKey]float64
}

// catalogTables names the tables backing either the master or the custom catalog.
type catalogTables struct {
	exercises string
	muscles   string
	idColumn  string
}

//nolint:gochecknoglobals // table names are constants in spirit.
var (
	masterTables = catalogTables{exercises: "exercises", muscles: "exercise_muscles", idColumn: "exercise_id"}
	customTables = catalogTables{
		exercises: "custom_exercises", muscles: "custom_exercise_muscles", idColumn: "custom_exercise_id",
	}
)

// sqliteExerciseRepository reads the master catalog, custom exercises and overrides.
type sqliteExerciseRepository struct {
	baseRepository
}

func newSQLiteExerciseRepository(db *sqlite.Database, logger *slog.Logger) *sqliteExerciseRepository {
	return &sqliteExerciseRepository{
		baseRepository: newBaseRepository(db, logger),
	}
}

// listMasters returns the master exercises among ids keyed by id. Missing ids are absent from the map.
func (r *sqliteExerciseRepository) listMasters(ctx context.Context, ids []string) (map[string]exerciseRecord, error) {
	return r.listRecords(ctx, masterTables, "", ids)
}

// listCustom returns the custom exercises among ids that userID owns.
func (r *sqliteExerciseRepository) listCustom(
	ctx context.Context,
	userID string,
	ids []string,
) (map[string]exerciseRecord, error) {
	return r.listRecords(ctx, customTables, userID, ids)
}

func (r *sqliteExerciseRepository) listRecords(
	ctx context.Context,
	tables catalogTables,
	userID string,
	ids []string,
) (map[string]exerciseRecord, error) {
	records := make(map[string]exerciseRecord, len(ids))
	if len(ids) == 0 {
		return records, nil
	}

	placeholders, args := inClause(ids)
	query := fmt.Sprintf(`
		SELECT id, name, is_timed, equipment, movement_pattern, tempo_category, density_score
		FROM %s
		WHERE id IN (%s)`, tables.exercises, placeholders)
	if tables == customTables {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	rows, err := r.db.ReadOnly.QueryContext(ctx, query, args...)
	err = queryRows(rows, err, func(row rowScanner) error {
		var (
			rec     exerciseRecord
			density sql.NullFloat64
		)
		if err = row.Scan(&rec.ID, &rec.Name, &rec.IsTimed, &rec.Equipment, &rec.MovementPattern,
			&rec.TempoCategory, &density); err != nil {
			return err
		}
		if density.Valid {
			rec.DensityScore = &density.Float64
		}
		rec.ImplicitHits = map[MuscleKey]float64{}
		records[rec.ID] = rec
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", tables.exercises, err)
	}

	if err = r.attachMuscles(ctx, tables, records); err != nil {
		return nil, fmt.Errorf("attach muscles: %w", err)
	}
	return records, nil
}

// attachMuscles fills in the primary muscles and implicit hits of records.
func (r *sqliteExerciseRepository) attachMuscles(
	ctx context.Context,
	tables catalogTables,
	records map[string]exerciseRecord,
) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}

	placeholders, args := inClause(ids)
	rows, err := r.db.ReadOnly.QueryContext(ctx, fmt.Sprintf(`
		SELECT %[1]s, muscle_key, is_primary, weight
		FROM %[2]s
		WHERE %[1]s IN (%[3]s)
		ORDER BY %[1]s, muscle_key`, tables.idColumn, tables.muscles, placeholders), args...)
	return queryRows(rows, err, func(row rowScanner) error {
		var (
			id      string
			muscle  MuscleKey
			primary bool
			weight  float64
		)
		if err = row.Scan(&id, &muscle, &primary, &weight); err != nil {
			return err
		}
		rec := records[id]
		switch {
		case primary:
			rec.PrimaryMuscles = append(rec.PrimaryMuscles, muscle)
		case weight > 0:
			rec.ImplicitHits[muscle] = weight
		}
		records[id] = rec
		return nil
	})
}

// listOverrides returns userID's overrides for the master exercises among ids.
func (r *sqliteExerciseRepository) listOverrides(
	ctx context.Context,
	userID string,
	ids []string,
) (map[string]overrideRecord, error) {
	overrides := make(map[string]overrideRecord, len(ids))
	if len(ids) == 0 {
		return overrides, nil
	}

	placeholders, args := inClause(ids)
	rows, err := r.db.ReadOnly.QueryContext(ctx, fmt.Sprintf(`
		SELECT exercise_id, name_override, is_timed_override, equipment_override, movement_pattern_override,
		       tempo_category_override, density_score_override, primary_muscles_override, implicit_hits_override
		FROM exercise_overrides
		WHERE user_id = ? AND exercise_id IN (%s)`, placeholders), withArgs(args, userID)...)
	err = queryRows(rows, err, func(row rowScanner) error {
		var (
			exerciseID                      string
			name, equipment, pattern, tempo sql.NullString
			isTimed                         sql.NullBool
			density                         sql.NullFloat64
			primaryJSON, implicitJSON       sql.NullString
		)
		if err = row.Scan(&exerciseID, &name, &isTimed, &equipment, &pattern, &tempo, &density,
			&primaryJSON, &implicitJSON); err != nil {
			return err
		}
		o := overrideRecord{
			Name:            nullable(name.String, name.Valid),
			IsTimed:         nullable(isTimed.Bool, isTimed.Valid),
			Equipment:       nullable(equipment.String, equipment.Valid),
			MovementPattern: nullable(pattern.String, pattern.Valid),
			TempoCategory:   nullable(tempo.String, tempo.Valid),
			DensityScore:    nullable(density.Float64, density.Valid),
			PrimaryMuscles:  nil,
			ImplicitHits:    nil,
		}
		if primaryJSON.Valid {
			var primary []MuscleKey
			if err = json.Unmarshal([]byte(primaryJSON.String), &primary); err != nil {
				return fmt.Errorf("decode primary muscles override of %s: %w", exerciseID, err)
			}
			o.PrimaryMuscles = &primary
		}
		if implicitJSON.Valid {
			var implicit map[MuscleKey]float64
			if err = json.Unmarshal([]byte(implicitJSON.String), &implicit); err != nil {
				return fmt.Errorf("decode implicit hits override of %s: %w", exerciseID, err)
			}
			positive := make(map[MuscleKey]float64, len(implicit))
			for m, w := range implicit {
				if w > 0 {
					positive[m] = w
				}
			}
			o.ImplicitHits = &positive
		}
		overrides[exerciseID] = o
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	return overrides, nil
}

// listMuscles returns the canonical muscle list.
func (r *sqliteExerciseRepository) listMuscles(ctx context.Context) ([]MuscleKey, error) {
	var muscles []MuscleKey
	rows, err := r.db.ReadOnly.QueryContext(ctx, `SELECT muscle_key FROM muscles ORDER BY muscle_key`)
	err = queryRows(rows, err, func(row rowScanner) error {
		var m MuscleKey
		if err = row.Scan(&m); err != nil {
			return err
		}
		muscles = append(muscles, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list muscles: %w", err)
	}
	return muscles, nil
}

// nullable returns a pointer to v when valid is set.
func nullable[T any](v T, valid bool) *T {
	if !valid {
		return nil
	}
	return &v
}
