package training

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abishek0504/iron-path-app-sub003/internal/sqlite"
)

// repository groups the storage accessors the service reads from.
type repository struct {
	exercises     *sqliteExerciseRepository
	prescriptions *sqlitePrescriptionRepository
	sessions      *sqliteSessionRepository
	plans         *sqlitePlanRepository
}

// repositoryFactory creates repositories sharing one database.
type repositoryFactory struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func newRepositoryFactory(db *sqlite.Database, logger *slog.Logger) *repositoryFactory {
	return &repositoryFactory{
		db:     db,
		logger: logger,
	}
}

func (f *repositoryFactory) newRepository() *repository {
	return &repository{
		exercises:     newSQLiteExerciseRepository(f.db, f.logger),
		prescriptions: newSQLitePrescriptionRepository(f.db, f.logger),
		sessions:      newSQLiteSessionRepository(f.db, f.logger),
		plans:         newSQLitePlanRepository(f.db, f.logger),
	}
}

// baseRepository holds what every SQLite repository needs.
type baseRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func newBaseRepository(db *sqlite.Database, logger *slog.Logger) baseRepository {
	return baseRepository{
		db:     db,
		logger: logger,
	}
}

// rowScanner is implemented by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// rowIterator is the subset of *sql.Rows used by queryRows.
type rowIterator interface {
	rowScanner
	Next() bool
	Err() error
	Close() error
}

// queryRows calls scan for every row and closes rows. Failures are reported as upstream errors.
func queryRows(rows rowIterator, queryErr error, scan func(rowScanner) error) (err error) {
	if queryErr != nil {
		return upstream(fmt.Errorf("query: %w", queryErr))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, upstream(fmt.Errorf("close rows: %w", closeErr)))
		}
	}()

	for rows.Next() {
		if err = scan(rows); err != nil {
			return upstream(fmt.Errorf("scan row: %w", err))
		}
	}
	if err = rows.Err(); err != nil {
		return upstream(fmt.Errorf("rows error: %w", err))
	}
	return nil
}

// inClause returns "?, ?, ?" for len(values) placeholders and the values as query arguments.
func inClause[T ~string](values []T) (string, []any) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = string(v)
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", "), args
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(sqlite.TimestampFormat)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(sqlite.TimestampFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// withArgs prepends args to rest.
func withArgs(rest []any, args ...any) []any {
	return append(args, rest...)
}
