package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abishek0504/iron-path-app-sub003/internal/errors"
	"github.com/abishek0504/iron-path-app-sub003/internal/ptr"
	"github.com/abishek0504/iron-path-app-sub003/internal/testhelpers"
	"github.com/abishek0504/iron-path-app-sub003/internal/training"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func testLookupEnv(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func runPlanner(t *testing.T, env map[string]string, args ...string) ([]byte, error) {
	t.Helper()
	base := map[string]string{
		"IRONPATH_SQLITE_URL": ":memory:",
		"IRONPATH_SEED_PATH":  "../../internal/seed/testdata/catalog.yaml",
		"IRONPATH_LOG_LEVEL":  "debug",
	}
	for k, v := range env {
		base[k] = v
	}
	var out bytes.Buffer
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	err := run(t.Context(), logger, new(slog.LevelVar), testLookupEnv(base), args, &out)
	return out.Bytes(), err
}

func Test_run_target(t *testing.T) {
	out, err := runPlanner(t, nil, "target", "-user", "user-1", "-exercise", "sq-1", "-tier", "intermediate")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	var got training.ExerciseTarget
	if err = json.Unmarshal(out, &got); err != nil {
		t.Fatalf("Failed to decode output %s: %v", out, err)
	}
	want := training.ExerciseTarget{ExerciseID: "sq-1", Mode: training.ModeReps, Sets: 4, Reps: ptr.Ref(10)}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(training.ExerciseTarget{}, "Band")); diff != "" {
		t.Errorf("target mismatch (-want +got):\n%s", diff)
	}
}

func Test_run_targetLooksUpHistory(t *testing.T) {
	out, err := runPlanner(t, nil,
		"target", "-user", "user-1", "-exercise", "sq-1", "-tier", "intermediate", "-history", "-1")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	var got training.ExerciseTarget
	if err = json.Unmarshal(out, &got); err != nil {
		t.Fatalf("Failed to decode output %s: %v", out, err)
	}
	// One completed session with 12 reps at 100 kg and RPE 6 tops out the 8-12 band.
	want := training.ExerciseTarget{
		ExerciseID: "sq-1",
		Mode:       training.ModeReps,
		Sets:       4,
		Reps:       ptr.Ref(8),
		WeightKg:   ptr.Ref(102.5),
		Progressed: true,
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(training.ExerciseTarget{}, "Band")); diff != "" {
		t.Errorf("target mismatch (-want +got):\n%s", diff)
	}
}

func Test_run_dayFromAllowList(t *testing.T) {
	out, err := runPlanner(t, nil, "day", "-user", "user-1", "-tier", "intermediate")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	var got training.GeneratedDay
	if err = json.Unmarshal(out, &got); err != nil {
		t.Fatalf("Failed to decode output %s: %v", out, err)
	}
	if diff := cmp.Diff([]string{"sq-1", "bp-1", "pl-1"}, got.ExerciseIDs()); diff != "" {
		t.Errorf("day mismatch (-want +got):\n%s", diff)
	}
}

// seedWithRecentStress writes a copy of the test catalog with an extra stress event that occurred now.
func seedWithRecentStress(t *testing.T, userID, muscle string, stress float64) string {
	t.Helper()
	catalog, err := os.ReadFile("../../internal/seed/testdata/catalog.yaml")
	if err != nil {
		t.Fatalf("Failed to read catalog: %v", err)
	}
	event := fmt.Sprintf("  - user_id: %s\n    muscle: %s\n    stress: %v\n    occurred_at: %s\n",
		userID, muscle, stress, time.Now().UTC().Format(time.RFC3339))
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err = os.WriteFile(path, append(catalog, event...), 0o600); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}
	return path
}

func Test_run_dayWithCandidates(t *testing.T) {
	tests := []struct {
		name           string
		env            map[string]string
		wantExercises  []string
		wantExclusions []training.Exclusion
	}{
		{
			name:           "no recent stress",
			wantExercises:  []string{"pl-1", "sq-1"},
			wantExclusions: []training.Exclusion{{ExerciseID: "nope", Reason: training.ReasonNotFound}},
		},
		{
			name:          "recent abs stress blocks the plank",
			env:           map[string]string{"IRONPATH_SEED_PATH": seedWithRecentStress(t, "user-1", "abs", 9.5)},
			wantExercises: []string{"sq-1"},
			wantExclusions: []training.Exclusion{
				{ExerciseID: "nope", Reason: training.ReasonNotFound},
				{ExerciseID: "pl-1", Reason: training.ReasonFatigueCeiling},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runPlanner(t, tt.env,
				"day", "-user", "user-1", "-tier", "intermediate", "-candidates", "pl-1:1, nope:2, sq-1:3")
			if err != nil {
				t.Fatalf("run() error = %v", err)
			}

			var got training.GeneratedDay
			if err = json.Unmarshal(out, &got); err != nil {
				t.Fatalf("Failed to decode output %s: %v", out, err)
			}
			if diff := cmp.Diff(tt.wantExercises, got.ExerciseIDs()); diff != "" {
				t.Errorf("day mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantExclusions, got.Exclusions); diff != "" {
				t.Errorf("exclusions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func Test_run_gaps(t *testing.T) {
	out, err := runPlanner(t, nil, "gaps", "-user", "user-1")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	var got training.GapReport
	if err = json.Unmarshal(out, &got); err != nil {
		t.Fatalf("Failed to decode output %s: %v", out, err)
	}
	want := training.GapReport{
		Triggered: true,
		MissedMuscles: []training.MuscleKey{
			"bicep", "calf", "chest", "forearm", "hamstring", "lat", "shoulder", "trap", "tricep",
		},
		SessionsAnalyzed: 1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("gaps mismatch (-want +got):\n%s", diff)
	}
}

func Test_run_export(t *testing.T) {
	dir := t.TempDir()
	out, err := runPlanner(t, nil, "export", "-user", "user-1", "-dir", dir)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	var got map[string]string
	if err = json.Unmarshal(out, &got); err != nil {
		t.Fatalf("Failed to decode output %s: %v", out, err)
	}
	if want := filepath.Join(dir, "user-user-1.sqlite3"); got["path"] != want {
		t.Errorf("path = %q, want %q", got["path"], want)
	}
	if _, err = os.Stat(got["path"]); err != nil {
		t.Errorf("export file missing: %v", err)
	}
}

func Test_run_errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		args    []string
		wantErr error
	}{
		{name: "no command", args: nil, wantErr: errUsage},
		{name: "unknown command", args: []string{"dance"}, wantErr: errUsage},
		{name: "bad flag", args: []string{"target", "-nope"}, wantErr: errUsage},
		{name: "bad candidate priority", args: []string{"day", "-user", "u", "-candidates", "sq-1:x"}, wantErr: errUsage},
		{
			name:    "no band",
			args:    []string{"target", "-user", "user-1", "-exercise", "pl-1", "-tier", "advanced"},
			wantErr: training.ErrNotApplicable,
		},
		{
			name:    "invalid tier",
			args:    []string{"band", "-exercise", "sq-1", "-tier", "elite"},
			wantErr: training.ErrInvalidArgument,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runPlanner(t, tt.env, tt.args...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("run() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func Test_run_invalidConfig(t *testing.T) {
	_, err := runPlanner(t, map[string]string{"IRONPATH_LOOKBACK_SESSIONS": "six"}, "gaps", "-user", "user-1")
	if err == nil {
		t.Fatal("run() expected error for unparsable config")
	}
}
