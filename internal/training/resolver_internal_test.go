package training

import (
	"testing"

	"github.com/abishek0504/iron-path-app-sub003/internal/ptr"
	"github.com/google/go-cmp/cmp"
)

func masterSquat() exerciseRecord {
	return exerciseRecord{
		ID:              "sq-1",
		Name:            "Back Squat",
		IsTimed:         false,
		Equipment:       "barbell",
		MovementPattern: "squat",
		TempoCategory:   "controlled",
		DensityScore:    ptr.Ref(0.8),
		PrimaryMuscles:  []MuscleKey{"quad"},
		ImplicitHits:    map[MuscleKey]float64{"glute": 0.5},
	}
}

func TestMergeOverride(t *testing.T) {
	tests := []struct {
		name     string
		override overrideRecord
		want     EffectiveExercise
	}{
		{
			name:     "density only keeps every other master field",
			override: overrideRecord{DensityScore: ptr.Ref(0.3)},
			want: EffectiveExercise{
				ID:              "sq-1",
				Source:          SourceOverride,
				Name:            "Back Squat",
				PrimaryMuscles:  []MuscleKey{"quad"},
				ImplicitHits:    map[MuscleKey]float64{"glute": 0.5},
				IsTimed:         false,
				Equipment:       "barbell",
				MovementPattern: "squat",
				TempoCategory:   "controlled",
				DensityScore:    ptr.Ref(0.3),
			},
		},
		{
			name: "every field overridden",
			override: overrideRecord{
				Name:            ptr.Ref("Box Squat"),
				IsTimed:         ptr.Ref(true),
				Equipment:       ptr.Ref("safety bar"),
				MovementPattern: ptr.Ref("hinge"),
				TempoCategory:   ptr.Ref("explosive"),
				DensityScore:    ptr.Ref(0.1),
				PrimaryMuscles:  &[]MuscleKey{"glute", "hamstring"},
				ImplicitHits:    &map[MuscleKey]float64{"lower_back": 0.4},
			},
			want: EffectiveExercise{
				ID:              "sq-1",
				Source:          SourceOverride,
				Name:            "Box Squat",
				PrimaryMuscles:  []MuscleKey{"glute", "hamstring"},
				ImplicitHits:    map[MuscleKey]float64{"lower_back": 0.4},
				IsTimed:         true,
				Equipment:       "safety bar",
				MovementPattern: "hinge",
				TempoCategory:   "explosive",
				DensityScore:    ptr.Ref(0.1),
			},
		},
		{
			name:     "override to false and empty values still wins",
			override: overrideRecord{Equipment: ptr.Ref(""), ImplicitHits: &map[MuscleKey]float64{}},
			want: EffectiveExercise{
				ID:              "sq-1",
				Source:          SourceOverride,
				Name:            "Back Squat",
				PrimaryMuscles:  []MuscleKey{"quad"},
				ImplicitHits:    map[MuscleKey]float64{},
				IsTimed:         false,
				Equipment:       "",
				MovementPattern: "squat",
				TempoCategory:   "controlled",
				DensityScore:    ptr.Ref(0.8),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeOverride(masterSquat(), tt.override)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mergeOverride() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStressWeights(t *testing.T) {
	tests := []struct {
		name string
		ex   EffectiveExercise
		want map[string]float64
	}{
		{
			name: "primary only",
			ex:   EffectiveExercise{PrimaryMuscles: []MuscleKey{"quad"}},
			want: map[string]float64{"quad": 1},
		},
		{
			name: "primary and implicit",
			ex: EffectiveExercise{
				PrimaryMuscles: []MuscleKey{"quad"},
				ImplicitHits:   map[MuscleKey]float64{"glute": 0.5, "lower_back": 0.5},
			},
			want: map[string]float64{"quad": 0.5, "glute": 0.25, "lower_back": 0.25},
		},
		{
			name: "overlap takes the larger weight",
			ex: EffectiveExercise{
				PrimaryMuscles: []MuscleKey{"quad", "glute"},
				ImplicitHits:   map[MuscleKey]float64{"glute": 0.5},
			},
			want: map[string]float64{"quad": 0.5, "glute": 0.5},
		},
		{
			name: "non-positive implicit weights are ignored",
			ex: EffectiveExercise{
				PrimaryMuscles: []MuscleKey{"chest"},
				ImplicitHits:   map[MuscleKey]float64{"tricep": 0, "shoulder": -1},
			},
			want: map[string]float64{"chest": 1},
		},
		{
			name: "no muscles",
			ex:   EffectiveExercise{},
			want: map[string]float64{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, stressWeights(tt.ex)); diff != "" {
				t.Errorf("stressWeights() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		sets []performedSet
		want HistorySummary
	}{
		{name: "no sets", sets: nil, want: HistorySummary{}},
		{
			name: "newest set wins and RPE is averaged",
			sets: []performedSet{
				{Reps: ptr.Ref(10), WeightKg: ptr.Ref(60.0), RPE: ptr.Ref(8.0)},
				{Reps: ptr.Ref(12), WeightKg: ptr.Ref(55.0), RPE: ptr.Ref(6.0)},
			},
			want: HistorySummary{LastReps: ptr.Ref(10), LastWeightKg: ptr.Ref(60.0), AvgRPE: ptr.Ref(7.0)},
		},
		{
			name: "zero and negative quantities are dropped",
			sets: []performedSet{
				{Reps: ptr.Ref(0), WeightKg: ptr.Ref(-5.0), DurationSec: ptr.Ref(-1)},
			},
			want: HistorySummary{},
		},
		{
			name: "out of scale RPE is ignored",
			sets: []performedSet{
				{DurationSec: ptr.Ref(45), RPE: ptr.Ref(11.0)},
				{DurationSec: ptr.Ref(40), RPE: ptr.Ref(0.0)},
				{DurationSec: ptr.Ref(40), RPE: ptr.Ref(5.0)},
			},
			want: HistorySummary{LastDurationSec: ptr.Ref(45), AvgRPE: ptr.Ref(5.0)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, summarize(tt.sets)); diff != "" {
				t.Errorf("summarize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
