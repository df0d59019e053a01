// Package seed loads curated catalog data and sample history from YAML and writes it to the database.
package seed

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/abishek0504/iron-path-app-sub003/internal/sqlite"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Document is the root of a seed file.
type Document struct {
	Muscles         []string         `yaml:"muscles"`
	Exercises       []Exercise       `yaml:"exercises"`
	CustomExercises []CustomExercise `yaml:"custom_exercises"`
	Overrides       []Override       `yaml:"overrides"`
	Prescriptions   []Prescription   `yaml:"prescriptions"`
	// AllowList ranks exercise ids for generation; the first entry gets priority 1.
	AllowList    []string      `yaml:"allowlist"`
	Sessions     []Session     `yaml:"sessions"`
	StressEvents []StressEvent `yaml:"stress_events"`
}

// Exercise is a master catalog entry.
type Exercise struct {
	ID              string             `yaml:"id"`
	Name            string             `yaml:"name"`
	IsTimed         bool               `yaml:"is_timed"`
	Equipment       string             `yaml:"equipment"`
	MovementPattern string             `yaml:"movement_pattern"`
	TempoCategory   string             `yaml:"tempo_category"`
	DensityScore    *float64           `yaml:"density_score"`
	PrimaryMuscles  []string           `yaml:"primary_muscles"`
	ImplicitHits    map[string]float64 `yaml:"implicit_hits"`
}

// CustomExercise is an exercise owned by one user.
type CustomExercise struct {
	Exercise `yaml:",inline"`

	UserID string `yaml:"user_id"`
}

// Override replaces master fields for one user. Omitted fields keep the master value.
type Override struct {
	UserID          string             `yaml:"user_id"`
	ExerciseID      string             `yaml:"exercise_id"`
	Name            *string            `yaml:"name"`
	IsTimed         *bool              `yaml:"is_timed"`
	Equipment       *string            `yaml:"equipment"`
	MovementPattern *string            `yaml:"movement_pattern"`
	TempoCategory   *string            `yaml:"tempo_category"`
	DensityScore    *float64           `yaml:"density_score"`
	PrimaryMuscles  []string           `yaml:"primary_muscles"`
	ImplicitHits    map[string]float64 `yaml:"implicit_hits"`
}

// Range is an inclusive integer range.
type Range struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Prescription is a curated band.
type Prescription struct {
	ExerciseID     string `yaml:"exercise_id"`
	ExperienceTier string `yaml:"experience_tier"`
	Mode           string `yaml:"mode"`
	Sets           Range  `yaml:"sets"`
	Reps           *Range `yaml:"reps"`
	DurationSec    *Range `yaml:"duration_sec"`
}

// Session is a workout session. Sets are numbered in the order they are listed.
type Session struct {
	ID          string     `yaml:"id"`
	UserID      string     `yaml:"user_id"`
	StartedAt   time.Time  `yaml:"started_at"`
	CompletedAt *time.Time `yaml:"completed_at"`
	Sets        []Set      `yaml:"sets"`
}

// Set is one performed set.
type Set struct {
	ExerciseID  string   `yaml:"exercise_id"`
	Reps        *int     `yaml:"reps"`
	WeightKg    *float64 `yaml:"weight_kg"`
	DurationSec *int     `yaml:"duration_sec"`
	RPE         *float64 `yaml:"rpe"`
}

// StressEvent is estimated training stress on one muscle.
type StressEvent struct {
	UserID     string    `yaml:"user_id"`
	Muscle     string    `yaml:"muscle"`
	Stress     float64   `yaml:"stress"`
	OccurredAt time.Time `yaml:"occurred_at"`
}

// Load decodes a seed document. Unknown fields are rejected.
func Load(r io.Reader) (Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, nil
		}
		return Document{}, fmt.Errorf("decode seed document: %w", err)
	}
	return doc, nil
}

// LoadFile decodes the seed document at path.
func LoadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read seed file: %w", err)
	}
	doc, err := Load(bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("load %s: %w", path, err)
	}
	return doc, nil
}

// Apply writes doc in a single transaction. Catalog rows, overrides, bands and sessions are upserted so that
// applying the same document twice leaves the same state. Stress events are appended.
func Apply(ctx context.Context, db *sqlite.Database, logger *slog.Logger, doc Document) error {
	start := time.Now()
	err := db.Transact(ctx, func(tx *sql.Tx) error {
		steps := []struct {
			name  string
			apply func(context.Context, *sql.Tx, Document) error
		}{
			{"muscles", applyMuscles},
			{"exercises", applyExercises},
			{"custom exercises", applyCustomExercises},
			{"overrides", applyOverrides},
			{"prescriptions", applyPrescriptions},
			{"allow-list", applyAllowList},
			{"sessions", applySessions},
			{"stress events", applyStressEvents},
		}
		for _, step := range steps {
			if err := step.apply(ctx, tx, doc); err != nil {
				return fmt.Errorf("apply %s: %w", step.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "applied seed",
		slog.Int("exercises", len(doc.Exercises)),
		slog.Int("custom_exercises", len(doc.CustomExercises)),
		slog.Int("prescriptions", len(doc.Prescriptions)),
		slog.Int("sessions", len(doc.Sessions)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func applyMuscles(ctx context.Context, tx *sql.Tx, doc Document) error {
	for _, m := range doc.Muscles {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO muscles (muscle_key) VALUES (?)`, m); err != nil {
			return fmt.Errorf("insert muscle %s: %w", m, err)
		}
	}
	return nil
}

func applyExercises(ctx context.Context, tx *sql.Tx, doc Document) error {
	for _, e := range doc.Exercises {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO exercises (id, name, is_timed, equipment, movement_pattern, tempo_category, density_score)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name,
				is_timed = excluded.is_timed,
				equipment = excluded.equipment,
				movement_pattern = excluded.movement_pattern,
				tempo_category = excluded.tempo_category,
				density_score = excluded.density_score`,
			e.ID, e.Name, e.IsTimed, e.Equipment, e.MovementPattern, e.TempoCategory, e.DensityScore)
		if err != nil {
			return fmt.Errorf("upsert exercise %s: %w", e.ID, err)
		}
		if err = replaceMuscles(ctx, tx, "exercise_muscles", "exercise_id", e); err != nil {
			return fmt.Errorf("muscles of %s: %w", e.ID, err)
		}
	}
	return nil
}

func applyCustomExercises(ctx context.Context, tx *sql.Tx, doc Document) error {
	for _, c := range doc.CustomExercises {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO custom_exercises (id, user_id, name, is_timed, equipment, movement_pattern, tempo_category,
			                              density_score)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				user_id = excluded.user_id,
				name = excluded.name,
				is_timed = excluded.is_timed,
				equipment = excluded.equipment,
				movement_pattern = excluded.movement_pattern,
				tempo_category = excluded.tempo_category,
				density_score = excluded.density_score`,
			c.ID, c.UserID, c.Name, c.IsTimed, c.Equipment, c.MovementPattern, c.TempoCategory, c.DensityScore)
		if err != nil {
			return fmt.Errorf("upsert custom exercise %s: %w", c.ID, err)
		}
		if err = replaceMuscles(ctx, tx, "custom_exercise_muscles", "custom_exercise_id", c.Exercise); err != nil {
			return fmt.Errorf("muscles of %s: %w", c.ID, err)
		}
	}
	return nil
}

// replaceMuscles rewrites the muscle rows of e. A muscle listed as both primary and implicit is stored as primary.
func replaceMuscles(ctx context.Context, tx *sql.Tx, table, idColumn string, e Exercise) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, idColumn), e.ID); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	insert := fmt.Sprintf(`INSERT INTO %s (%s, muscle_key, is_primary, weight) VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING`, table, idColumn)
	for _, m := range e.PrimaryMuscles {
		if _, err := tx.ExecContext(ctx, insert, e.ID, m, true, 1.0); err != nil {
			return fmt.Errorf("insert primary %s: %w", m, err)
		}
	}
	for m, w := range e.ImplicitHits {
		if _, err := tx.ExecContext(ctx, insert, e.ID, m, false, w); err != nil {
			return fmt.Errorf("insert implicit %s: %w", m, err)
		}
	}
	return nil
}

func applyOverrides(ctx context.Context, tx *sql.Tx, doc Document) error {
	for _, o := range doc.Overrides {
		primary, err := jsonOrNull(o.PrimaryMuscles, o.PrimaryMuscles != nil)
		if err != nil {
			return fmt.Errorf("encode primary muscles of %s: %w", o.ExerciseID, err)
		}
		implicit, err := jsonOrNull(o.ImplicitHits, o.ImplicitHits != nil)
		if err != nil {
			return fmt.Errorf("encode implicit hits of %s: %w", o.ExerciseID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO exercise_overrides (user_id, exercise_id, name_override, is_timed_override,
			                                equipment_override, movement_pattern_override, tempo_category_override,
			                                density_score_override, primary_muscles_override, implicit_hits_override)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id, exercise_id) DO UPDATE SET
				name_override = excluded.name_override,
				is_timed_override = excluded.is_timed_override,
				equipment_override = excluded.equipment_override,
				movement_pattern_override = excluded.movement_pattern_override,
				tempo_category_override = excluded.tempo_category_override,
				density_score_override = excluded.density_score_override,
				primary_muscles_override = excluded.primary_muscles_override,
				implicit_hits_override = excluded.implicit_hits_override`,
			o.UserID, o.ExerciseID, o.Name, o.IsTimed, o.Equipment, o.MovementPattern, o.TempoCategory,
			o.DensityScore, primary, implicit)
		if err != nil {
			return fmt.Errorf("upsert override %s/%s: %w", o.UserID, o.ExerciseID, err)
		}
	}
	return nil
}

// jsonOrNull encodes v as JSON text, or returns nil for a NULL column when set is false.
func jsonOrNull(v any, set bool) (*string, error) {
	if !set {
		return nil, nil //nolint:nilnil // NULL column.
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	s := string(data)
	return &s, nil
}

func applyPrescriptions(ctx context.Context, tx *sql.Tx, doc Document) error {
	for _, p := range doc.Prescriptions {
		var repsMin, repsMax, durationMin, durationMax *int
		if p.Reps != nil {
			repsMin, repsMax = &p.Reps.Min, &p.Reps.Max
		}
		if p.DurationSec != nil {
			durationMin, durationMax = &p.DurationSec.Min, &p.DurationSec.Max
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO prescriptions (exercise_id, experience_tier, mode, sets_min, sets_max, reps_min, reps_max,
			                           duration_sec_min, duration_sec_max)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (exercise_id, experience_tier, mode) DO UPDATE SET
				sets_min = excluded.sets_min,
				sets_max = excluded.sets_max,
				reps_min = excluded.reps_min,
				reps_max = excluded.reps_max,
				duration_sec_min = excluded.duration_sec_min,
				duration_sec_max = excluded.duration_sec_max`,
			p.ExerciseID, p.ExperienceTier, p.Mode, p.Sets.Min, p.Sets.Max, repsMin, repsMax, durationMin,
			durationMax)
		if err != nil {
			return fmt.Errorf("upsert prescription %s/%s/%s: %w", p.ExerciseID, p.ExperienceTier, p.Mode, err)
		}
	}
	return nil
}

func applyAllowList(ctx context.Context, tx *sql.Tx, doc Document) error {
	if len(doc.AllowList) == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM generation_allowlist`); err != nil {
		return fmt.Errorf("clear allow-list: %w", err)
	}
	for i, id := range doc.AllowList {
		if _, err := tx.ExecContext(ctx, `INSERT INTO generation_allowlist (exercise_id, priority) VALUES (?, ?)`,
			id, i+1); err != nil {
			return fmt.Errorf("insert allow-list entry %s: %w", id, err)
		}
	}
	return nil
}

func applySessions(ctx context.Context, tx *sql.Tx, doc Document) error {
	for _, s := range doc.Sessions {
		id := s.ID
		if id == "" {
			id = uuid.NewString()
		}
		var completedAt *string
		if s.CompletedAt != nil {
			formatted := s.CompletedAt.UTC().Format(sqlite.TimestampFormat)
			completedAt = &formatted
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO workout_sessions (id, user_id, started_at, completed_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				user_id = excluded.user_id,
				started_at = excluded.started_at,
				completed_at = excluded.completed_at`,
			id, s.UserID, s.StartedAt.UTC().Format(sqlite.TimestampFormat), completedAt)
		if err != nil {
			return fmt.Errorf("upsert session %s: %w", id, err)
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM performed_sets WHERE session_id = ?`, id); err != nil {
			return fmt.Errorf("clear sets of session %s: %w", id, err)
		}
		for i, set := range s.Sets {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO performed_sets (session_id, exercise_id, set_number, reps, weight_kg, duration_sec, rpe)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				id, set.ExerciseID, i+1, set.Reps, set.WeightKg, set.DurationSec, set.RPE)
			if err != nil {
				return fmt.Errorf("insert set %d of session %s: %w", i+1, id, err)
			}
		}
	}
	return nil
}

func applyStressEvents(ctx context.Context, tx *sql.Tx, doc Document) error {
	for _, e := range doc.StressEvents {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO muscle_stress_events (user_id, muscle_key, stress, occurred_at)
			VALUES (?, ?, ?, ?)`,
			e.UserID, e.Muscle, e.Stress, e.OccurredAt.UTC().Format(sqlite.TimestampFormat))
		if err != nil {
			return fmt.Errorf("insert stress event for %s: %w", e.Muscle, err)
		}
	}
	return nil
}
