package training

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/abishek0504/iron-path-app-sub003/internal/sqlite"
)

// performedSet is one logged set of a completed session.
type performedSet struct {
	Reps        *int
	WeightKg    *float64
	DurationSec *int
	RPE         *float64
}

// sqliteSessionRepository reads completed workout sessions and their performed sets.
type sqliteSessionRepository struct {
	baseRepository
}

func newSQLiteSessionRepository(db *sqlite.Database, logger *slog.Logger) *sqliteSessionRepository {
	return &sqliteSessionRepository{
		baseRepository: newBaseRepository(db, logger),
	}
}

// listRecentCompleted returns up to limit of userID's most recently completed sessions, newest first, with the
// distinct exercises performed in each.
func (r *sqliteSessionRepository) listRecentCompleted(
	ctx context.Context,
	userID string,
	limit int,
) ([]completedSession, error) {
	var sessions []completedSession
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT id, completed_at
		FROM workout_sessions
		WHERE user_id = ? AND completed_at IS NOT NULL
		ORDER BY completed_at DESC, id
		LIMIT ?`, userID, limit)
	err = queryRows(rows, err, func(row rowScanner) error {
		var (
			s              completedSession
			completedAtStr string
		)
		if err = row.Scan(&s.ID, &completedAtStr); err != nil {
			return err
		}
		if s.CompletedAt, err = parseTimestamp(completedAtStr); err != nil {
			return err
		}
		sessions = append(sessions, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list completed sessions: %w", err)
	}
	if len(sessions) == 0 {
		return sessions, nil
	}

	index := make(map[string]int, len(sessions))
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		index[s.ID] = i
		ids[i] = s.ID
	}
	placeholders, args := inClause(ids)
	rows, err = r.db.ReadOnly.QueryContext(ctx, fmt.Sprintf(`
		SELECT session_id, exercise_id
		FROM performed_sets
		WHERE session_id IN (%s)
		GROUP BY session_id, exercise_id
		ORDER BY session_id, MIN(set_number), exercise_id`, placeholders), args...)
	err = queryRows(rows, err, func(row rowScanner) error {
		var sessionID, exerciseID string
		if err = row.Scan(&sessionID, &exerciseID); err != nil {
			return err
		}
		i := index[sessionID]
		sessions[i].ExerciseIDs = append(sessions[i].ExerciseIDs, exerciseID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list performed exercises: %w", err)
	}
	return sessions, nil
}

// listRecentSets returns up to limit of the most recent sets userID performed of exerciseID in completed
// sessions, newest first.
func (r *sqliteSessionRepository) listRecentSets(
	ctx context.Context,
	userID string,
	exerciseID string,
	limit int,
) ([]performedSet, error) {
	var sets []performedSet
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT ps.reps, ps.weight_kg, ps.duration_sec, ps.rpe
		FROM performed_sets ps
		JOIN workout_sessions ws ON ws.id = ps.session_id
		WHERE ws.user_id = ? AND ps.exercise_id = ? AND ws.completed_at IS NOT NULL
		ORDER BY ws.completed_at DESC, ps.set_number DESC
		LIMIT ?`, userID, exerciseID, limit)
	err = queryRows(rows, err, func(row rowScanner) error {
		var (
			reps, durationSec sql.NullInt64
			weightKg, rpe     sql.NullFloat64
		)
		if err = row.Scan(&reps, &weightKg, &durationSec, &rpe); err != nil {
			return err
		}
		sets = append(sets, performedSet{
			Reps:        nullable(int(reps.Int64), reps.Valid),
			WeightKg:    nullable(weightKg.Float64, weightKg.Valid),
			DurationSec: nullable(int(durationSec.Int64), durationSec.Valid),
			RPE:         nullable(rpe.Float64, rpe.Valid),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list recent sets: %w", err)
	}
	return sets, nil
}

// countCompletedSessions returns how many of userID's completed sessions contain exerciseID.
func (r *sqliteSessionRepository) countCompletedSessions(
	ctx context.Context,
	userID string,
	exerciseID string,
) (int, error) {
	var count int
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT ws.id)
		FROM workout_sessions ws
		JOIN performed_sets ps ON ps.session_id = ws.id
		WHERE ws.user_id = ? AND ps.exercise_id = ? AND ws.completed_at IS NOT NULL`,
		userID, exerciseID).Scan(&count)
	if err != nil {
		return 0, upstream(fmt.Errorf("count completed sessions: %w", err))
	}
	return count, nil
}
