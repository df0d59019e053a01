package training

import (
	"testing"

	"github.com/abishek0504/iron-path-app-sub003/internal/ptr"
	"github.com/google/go-cmp/cmp"
)

func squatBand() PrescriptionBand {
	return PrescriptionBand{
		ExerciseID:  "sq-1",
		Tier:        TierIntermediate,
		Mode:        ModeReps,
		Sets:        IntRange{Min: 3, Max: 5},
		Reps:        &IntRange{Min: 8, Max: 12},
		DurationSec: nil,
	}
}

func plankBand() PrescriptionBand {
	return PrescriptionBand{
		ExerciseID:  "pl-1",
		Tier:        TierBeginner,
		Mode:        ModeTimed,
		Sets:        IntRange{Min: 2, Max: 3},
		Reps:        nil,
		DurationSec: &IntRange{Min: 30, Max: 60},
	}
}

func TestChooseTarget(t *testing.T) {
	tests := []struct {
		name         string
		band         PrescriptionBand
		historyCount int
		history      HistorySummary
		progression  bool
		wantSets     int
		wantReps     *int
		wantDuration *int
		wantWeight   *float64
	}{
		{
			name:         "new user gets the middle of the band",
			band:         squatBand(),
			historyCount: 0,
			progression:  true,
			wantSets:     4,
			wantReps:     ptr.Ref(10),
		},
		{
			name:         "top of rep range at easy effort adds weight and resets reps",
			band:         squatBand(),
			historyCount: 5,
			history:      HistorySummary{LastReps: ptr.Ref(12), LastWeightKg: ptr.Ref(100.0), AvgRPE: ptr.Ref(6.0)},
			progression:  true,
			wantSets:     4,
			wantReps:     ptr.Ref(8),
			wantWeight:   ptr.Ref(102.5),
		},
		{
			name:         "heavy lifter gets the proportional weight step",
			band:         squatBand(),
			historyCount: 5,
			history:      HistorySummary{LastReps: ptr.Ref(11), LastWeightKg: ptr.Ref(200.0), AvgRPE: nil},
			progression:  true,
			wantSets:     4,
			wantReps:     ptr.Ref(8),
			wantWeight:   ptr.Ref(205.0),
		},
		{
			name:         "hard effort adds a rep and holds weight",
			band:         squatBand(),
			historyCount: 5,
			history:      HistorySummary{LastReps: ptr.Ref(12), LastWeightKg: ptr.Ref(100.0), AvgRPE: ptr.Ref(8.5)},
			progression:  true,
			wantSets:     4,
			wantReps:     ptr.Ref(12),
			wantWeight:   ptr.Ref(100.0),
		},
		{
			name:         "below top of range adds a rep",
			band:         squatBand(),
			historyCount: 5,
			history:      HistorySummary{LastReps: ptr.Ref(9), LastWeightKg: ptr.Ref(80.0), AvgRPE: ptr.Ref(6.0)},
			progression:  true,
			wantSets:     4,
			wantReps:     ptr.Ref(10),
			wantWeight:   ptr.Ref(80.0),
		},
		{
			name:         "reps below band are clamped up",
			band:         squatBand(),
			historyCount: 5,
			history:      HistorySummary{LastReps: ptr.Ref(3), LastWeightKg: ptr.Ref(80.0)},
			progression:  true,
			wantSets:     4,
			wantReps:     ptr.Ref(8),
			wantWeight:   ptr.Ref(80.0),
		},
		{
			name:         "weight without reps is not usable history",
			band:         squatBand(),
			historyCount: 5,
			history:      HistorySummary{LastReps: nil, LastWeightKg: ptr.Ref(100.0)},
			progression:  true,
			wantSets:     4,
			wantReps:     ptr.Ref(10),
		},
		{
			name:         "reps without weight is not usable history",
			band:         squatBand(),
			historyCount: 5,
			history:      HistorySummary{LastReps: ptr.Ref(10), LastWeightKg: nil},
			progression:  true,
			wantSets:     4,
			wantReps:     ptr.Ref(10),
		},
		{
			name:         "bulk selection ignores history",
			band:         squatBand(),
			historyCount: 5,
			history:      HistorySummary{LastReps: ptr.Ref(12), LastWeightKg: ptr.Ref(100.0), AvgRPE: ptr.Ref(6.0)},
			progression:  false,
			wantSets:     4,
			wantReps:     ptr.Ref(10),
		},
		{
			name:         "experienced user rounds the midpoint up",
			band:         PrescriptionBand{ExerciseID: "x", Mode: ModeReps, Sets: IntRange{Min: 3, Max: 4}, Reps: &IntRange{Min: 6, Max: 9}},
			historyCount: 3,
			progression:  false,
			wantSets:     4,
			wantReps:     ptr.Ref(8),
		},
		{
			name:         "new user rounds the midpoint down",
			band:         PrescriptionBand{ExerciseID: "x", Mode: ModeReps, Sets: IntRange{Min: 3, Max: 4}, Reps: &IntRange{Min: 6, Max: 9}},
			historyCount: 2,
			progression:  false,
			wantSets:     3,
			wantReps:     ptr.Ref(7),
		},
		{
			name:         "reps band without rep range has no reps",
			band:         PrescriptionBand{ExerciseID: "x", Mode: ModeReps, Sets: IntRange{Min: 2, Max: 2}},
			historyCount: 0,
			progression:  true,
			wantSets:     2,
		},
		{
			name:         "timed without history",
			band:         plankBand(),
			historyCount: 0,
			progression:  true,
			wantSets:     2,
			wantDuration: ptr.Ref(45),
		},
		{
			name:         "timed with history adds five seconds",
			band:         plankBand(),
			historyCount: 4,
			history:      HistorySummary{LastDurationSec: ptr.Ref(40)},
			progression:  true,
			wantSets:     3,
			wantDuration: ptr.Ref(45),
		},
		{
			name:         "timed progression is clamped to the band",
			band:         plankBand(),
			historyCount: 4,
			history:      HistorySummary{LastDurationSec: ptr.Ref(58)},
			progression:  true,
			wantSets:     3,
			wantDuration: ptr.Ref(60),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chooseTarget(tt.band, tt.historyCount, tt.history, tt.progression)
			if got.Sets != tt.wantSets {
				t.Errorf("Sets = %d, want %d", got.Sets, tt.wantSets)
			}
			if diff := cmp.Diff(tt.wantReps, got.Reps); diff != "" {
				t.Errorf("Reps mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantDuration, got.DurationSec); diff != "" {
				t.Errorf("DurationSec mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantWeight, got.WeightKg); diff != "" {
				t.Errorf("WeightKg mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChooseTarget_SetsStayInBand(t *testing.T) {
	for setsMin := 1; setsMin <= 6; setsMin++ {
		for setsMax := setsMin; setsMax <= 8; setsMax++ {
			for historyCount := range 8 {
				band := PrescriptionBand{
					ExerciseID: "x",
					Mode:       ModeReps,
					Sets:       IntRange{Min: setsMin, Max: setsMax},
					Reps:       &IntRange{Min: 5, Max: 10},
				}
				history := HistorySummary{LastReps: ptr.Ref(historyCount * 2), LastWeightKg: ptr.Ref(50.0)}
				for _, progression := range []bool{true, false} {
					got := chooseTarget(band, historyCount, history, progression)
					if got.Sets < setsMin || got.Sets > setsMax {
						t.Fatalf("sets [%d,%d] history %d: got %d", setsMin, setsMax, historyCount, got.Sets)
					}
				}
			}
		}
	}
}

func TestOverloadReps_NeverLowersWeightOrLeavesBand(t *testing.T) {
	reps := IntRange{Min: 6, Max: 12}
	for lastReps := 1; lastReps <= 20; lastReps++ {
		for _, lastWeight := range []float64{1, 20, 60, 99.5, 100, 180, 320} {
			for _, rpe := range []*float64{nil, ptr.Ref(5.0), ptr.Ref(7.0), ptr.Ref(9.0)} {
				history := HistorySummary{LastReps: &lastReps, LastWeightKg: &lastWeight, AvgRPE: rpe}
				gotReps, gotWeight, ok := overloadReps(reps, history)
				if !ok {
					t.Fatalf("overloadReps(%d, %v) not applied", lastReps, lastWeight)
				}
				if gotWeight < lastWeight {
					t.Errorf("reps %d weight %v: weight decreased to %v", lastReps, lastWeight, gotWeight)
				}
				if gotReps < reps.Min || gotReps > reps.Max {
					t.Errorf("reps %d weight %v: reps %d outside band", lastReps, lastWeight, gotReps)
				}
			}
		}
	}
}
