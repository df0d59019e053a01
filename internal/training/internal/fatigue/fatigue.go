// Package fatigue simulates per-muscle fatigue while greedily picking exercises for a single training day.
//
// The simulation is a pure function of its inputs. It never reads or writes stored stress, so it can be re-run
// for previews without side effects.
package fatigue

import "maps"

const (
	// EstimatedStimulus is the stress one set adds, on the same scale as the initial stress snapshot.
	EstimatedStimulus = 0.7
	// MaxFatiguePerMuscle is the ceiling used to normalise accumulated stress into a fraction.
	MaxFatiguePerMuscle = 10.0
	// GreenThreshold is the highest fraction of the ceiling that is still considered fresh.
	GreenThreshold = 0.5
	// RedThreshold is the fraction of the ceiling above which a muscle must not be loaded further.
	RedThreshold = 0.85
)

// Zone classifies how close a candidate would be to the fatigue ceiling.
type Zone int

const (
	ZoneGreen Zone = iota
	ZoneYellow
	ZoneRed
)

func (z Zone) String() string {
	switch z {
	case ZoneGreen:
		return "green"
	case ZoneYellow:
		return "yellow"
	case ZoneRed:
		return "red"
	default:
		return "unknown"
	}
}

// Profile is the stress footprint of one candidate exercise.
type Profile struct {
	ExerciseID string
	TargetSets int
	// Weights distributes the stress of one set across muscles and sums to 1.
	Weights map[string]float64
	// BasePriority orders candidates, higher is picked earlier.
	BasePriority float64
}

// State accumulates simulated stress per muscle. It is a value owned by one simulation.
type State struct {
	stress map[string]float64
}

// NewState seeds a State from a stress snapshot. The snapshot is copied and never modified.
func NewState(initial map[string]float64) State {
	stress := make(map[string]float64, len(initial))
	maps.Copy(stress, initial)
	return State{stress: stress}
}

// Stress returns a copy of the accumulated stress.
func (s State) Stress() map[string]float64 {
	return maps.Clone(s.stress)
}

// Zone returns the worst zone over the muscles profile loads.
func (s State) Zone(profile Profile) Zone {
	worst := 0.0
	for muscle := range profile.Weights {
		fraction := min(max(s.stress[muscle]/MaxFatiguePerMuscle, 0), 1)
		worst = max(worst, fraction)
	}
	switch {
	case worst <= GreenThreshold:
		return ZoneGreen
	case worst <= RedThreshold:
		return ZoneYellow
	default:
		return ZoneRed
	}
}

// apply adds the stress of performing profile's target sets.
func (s State) apply(profile Profile) {
	total := float64(profile.TargetSets) * EstimatedStimulus
	for muscle, weight := range profile.Weights {
		s.stress[muscle] += total * weight
	}
}

// Result is the outcome of one simulation.
type Result struct {
	// Selected holds the picked exercise ids in pick order.
	Selected []string
	// Zones holds the zone of each selected candidate at the moment it was picked.
	Zones []Zone
	// Blocked holds the candidates that were left when every remaining candidate was in the red zone.
	Blocked []string
	// Final is the simulated stress after all picks.
	Final map[string]float64
}

// Simulate greedily picks candidates until none remain or every remaining candidate is in the red zone.
//
// Each round scores the remaining candidates by their base priority, halved in the yellow zone, and picks the
// highest score. Red candidates are not eligible. Ties go to the candidate that appears first in profiles.
func Simulate(profiles []Profile, initial map[string]float64) Result {
	state := NewState(initial)
	remaining := make([]Profile, len(profiles))
	copy(remaining, profiles)

	selected := make([]string, 0, len(profiles))
	zones := make([]Zone, 0, len(profiles))
	for len(remaining) > 0 {
		best := -1
		bestScore := 0.0
		bestZone := ZoneGreen
		for i, profile := range remaining {
			zone := state.Zone(profile)
			score, eligible := priorityScore(zone, profile.BasePriority)
			if !eligible {
				continue
			}
			if best == -1 || score > bestScore {
				best, bestScore, bestZone = i, score, zone
			}
		}
		if best == -1 {
			break
		}

		winner := remaining[best]
		selected = append(selected, winner.ExerciseID)
		zones = append(zones, bestZone)
		state.apply(winner)
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	blocked := make([]string, 0, len(remaining))
	for _, profile := range remaining {
		blocked = append(blocked, profile.ExerciseID)
	}

	return Result{
		Selected: selected,
		Zones:    zones,
		Blocked:  blocked,
		Final:    state.Stress(),
	}
}

func priorityScore(zone Zone, basePriority float64) (float64, bool) {
	switch zone {
	case ZoneGreen:
		return basePriority, true
	case ZoneYellow:
		return basePriority - 0.5*basePriority, true //nolint:mnd // yellow costs half the priority.
	case ZoneRed:
		return 0, false
	default:
		return 0, false
	}
}
