package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Optimize refreshes the query planner statistics. Run it after bulk writes such as seeding and before closing a
// short-lived connection. See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) Optimize(ctx context.Context) error {
	start := time.Now()
	// 0x10002 analyses every table, including ones the connection has not queried yet.
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize = 0x10002;"); err != nil {
		return fmt.Errorf("optimize database: %w", err)
	}
	db.logger.LogAttrs(ctx, slog.LevelDebug, "optimized database", slog.Duration("duration", time.Since(start)))
	return nil
}
