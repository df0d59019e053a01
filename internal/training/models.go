package training

import (
	"fmt"
	"time"

	"github.com/abishek0504/iron-path-app-sub003/internal/training/internal/fatigue"
	"github.com/google/uuid"
)

// Fatigue simulation constants, on the same stress scale as MuscleStressMap.
const (
	EstimatedStimulus   = fatigue.EstimatedStimulus
	MaxFatiguePerMuscle = fatigue.MaxFatiguePerMuscle
	GreenThreshold      = fatigue.GreenThreshold
	RedThreshold        = fatigue.RedThreshold
)

// MuscleKey is a canonical muscle identifier such as "quad" or "lower_back".
type MuscleKey string

// MuscleStressMap is accumulated estimated training stress per muscle.
type MuscleStressMap map[MuscleKey]float64

// Source tells where an effective exercise came from. SourceOverride marks a master exercise that has an override
// row for the user, even when the row changes a single field. Every field the row leaves NULL keeps the master value,
// so Source is the only field besides the overridden ones that differs from the master.
type Source string

const (
	SourceMaster   Source = "master"
	SourceCustom   Source = "custom"
	SourceOverride Source = "override"
)

// Mode selects between rep-based and duration-based prescriptions.
type Mode string

const (
	ModeReps  Mode = "reps"
	ModeTimed Mode = "timed"
)

// ModeOf returns the mode implied by an exercise's timing.
func ModeOf(isTimed bool) Mode {
	if isTimed {
		return ModeTimed
	}
	return ModeReps
}

// ExperienceTier is the user's training experience level.
type ExperienceTier string

const (
	TierBeginner     ExperienceTier = "beginner"
	TierIntermediate ExperienceTier = "intermediate"
	TierAdvanced     ExperienceTier = "advanced"
)

// ParseExperienceTier validates s as an experience tier.
func ParseExperienceTier(s string) (ExperienceTier, error) {
	switch tier := ExperienceTier(s); tier {
	case TierBeginner, TierIntermediate, TierAdvanced:
		return tier, nil
	default:
		return "", fmt.Errorf("%w: unknown experience tier %q", ErrInvalidArgument, s)
	}
}

// EffectiveExercise is the merged view of an exercise for one user. It is computed per request and never persisted.
type EffectiveExercise struct {
	ID              string                `json:"id"`
	Source          Source                `json:"source"`
	Name            string                `json:"name"`
	PrimaryMuscles  []MuscleKey           `json:"primary_muscles"`
	ImplicitHits    map[MuscleKey]float64 `json:"implicit_hits"`
	IsTimed         bool                  `json:"is_timed"`
	Equipment       string                `json:"equipment"`
	MovementPattern string                `json:"movement_pattern"`
	TempoCategory   string                `json:"tempo_category"`
	DensityScore    *float64              `json:"density_score,omitempty"`
}

// Muscles returns the union of primary muscles and implicit hits.
func (e EffectiveExercise) Muscles() []MuscleKey {
	muscles := make([]MuscleKey, 0, len(e.PrimaryMuscles)+len(e.ImplicitHits))
	seen := make(map[MuscleKey]bool, cap(muscles))
	for _, m := range e.PrimaryMuscles {
		if !seen[m] {
			seen[m] = true
			muscles = append(muscles, m)
		}
	}
	for m := range e.ImplicitHits {
		if !seen[m] {
			seen[m] = true
			muscles = append(muscles, m)
		}
	}
	return muscles
}

// ExerciseRef identifies an exercise by exactly one of its master or custom id.
type ExerciseRef struct {
	ExerciseID       string `json:"exercise_id,omitempty"`
	CustomExerciseID string `json:"custom_exercise_id,omitempty"`
}

// IntRange is an inclusive integer range.
type IntRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Valid reports whether the range is non-empty.
func (r IntRange) Valid() bool {
	return r.Min <= r.Max
}

// Clamp limits v to the range.
func (r IntRange) Clamp(v int) int {
	return min(max(v, r.Min), r.Max)
}

// PrescriptionBand is a curated target range for one (exercise, tier, mode) key.
type PrescriptionBand struct {
	ExerciseID  string         `json:"exercise_id"`
	Tier        ExperienceTier `json:"experience_tier"`
	Mode        Mode           `json:"mode"`
	Sets        IntRange       `json:"sets"`
	Reps        *IntRange      `json:"reps,omitempty"`
	DurationSec *IntRange      `json:"duration_sec,omitempty"`
}

// HistorySummary condenses the most recent performed sets of one exercise.
type HistorySummary struct {
	LastReps        *int     `json:"last_reps,omitempty"`
	LastWeightKg    *float64 `json:"last_weight_kg,omitempty"`
	LastDurationSec *int     `json:"last_duration_sec,omitempty"`
	AvgRPE          *float64 `json:"avg_rpe,omitempty"`
}

// ExerciseHistory is the history summary together with the number of completed sessions containing the exercise.
type ExerciseHistory struct {
	Summary      HistorySummary `json:"summary"`
	SessionCount int            `json:"session_count"`
}

// ExerciseTarget is a single point chosen within a prescription band.
type ExerciseTarget struct {
	ExerciseID  string           `json:"exercise_id"`
	Mode        Mode             `json:"mode"`
	Sets        int              `json:"sets"`
	Reps        *int             `json:"reps,omitempty"`
	DurationSec *int             `json:"duration_sec,omitempty"`
	WeightKg    *float64         `json:"weight_kg,omitempty"`
	Progressed  bool             `json:"progressed"`
	Band        PrescriptionBand `json:"band"`
}

// BulkTargets is the result of selecting targets for many exercises at once.
type BulkTargets struct {
	Targets    []ExerciseTarget `json:"targets"`
	Dropped    int              `json:"dropped"`
	DroppedIDs []string         `json:"dropped_ids"`
}

// Candidate is an exercise offered to the day generator. Lower priority values rank earlier.
type Candidate struct {
	ExerciseID string `json:"exercise_id"`
	Priority   int    `json:"priority"`
}

// Exclusion records why a candidate did not make it into a generated day.
type Exclusion struct {
	ExerciseID string `json:"exercise_id"`
	Reason     string `json:"reason"`
}

// Exclusion reasons.
const (
	ReasonDuplicate      = "duplicate candidate"
	ReasonNotFound       = "exercise not found"
	ReasonNoBand         = "no prescription band"
	ReasonFatigueCeiling = "fatigue ceiling reached"
)

// PlannedExercise is one pick of a generated day.
type PlannedExercise struct {
	ExerciseID string `json:"exercise_id"`
	Sets       int    `json:"sets"`
}

// GeneratedDay is the ordered result of one day generation run. An empty day is a valid result.
type GeneratedDay struct {
	RunID            uuid.UUID         `json:"run_id"`
	Exercises        []PlannedExercise `json:"exercises"`
	Exclusions       []Exclusion       `json:"exclusions"`
	ProjectedFatigue MuscleStressMap   `json:"projected_fatigue"`
}

// ExerciseIDs returns the picked exercise ids in order.
func (d GeneratedDay) ExerciseIDs() []string {
	ids := make([]string, 0, len(d.Exercises))
	for _, e := range d.Exercises {
		ids = append(ids, e.ExerciseID)
	}
	return ids
}

// GapReport tells which canonical muscles went untrained across recent sessions.
type GapReport struct {
	Triggered        bool        `json:"triggered"`
	MissedMuscles    []MuscleKey `json:"missed_muscles"`
	SessionsAnalyzed int         `json:"sessions_analyzed"`
}

// AllowListEntry is one ranked entry of the generation allow-list.
type AllowListEntry struct {
	ExerciseID string
	Priority   int
}

// completedSession is a completed workout session and the exercises performed in it.
type completedSession struct {
	ID          string
	CompletedAt time.Time
	ExerciseIDs []string
}
