package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// schemaObject is a named entry in sqlite_schema.
type schemaObject struct {
	name string
	sql  string
}

// migrateTo makes the live schema match schemaDefinition declaratively.
//
// The target schema is created in a scratch in-memory database that is attached as schemaTarget. Tables are then
// diffed against sqlite_schema: removed tables are dropped, new tables created and changed tables rebuilt with the
// 12-step procedure from https://www.sqlite.org/lang_altertable.html#otheralter, copying the common columns.
// Indexes and triggers are dropped and recreated whenever their SQL differs.
//
// Inspired by https://david.rothlis.net/declarative-schema-migration-for-sqlite/
func (db *Database) migrateTo(ctx context.Context, schemaDefinition string) (err error) {
	start := time.Now()

	detach, err := db.attachSchemaTarget(ctx, schemaDefinition)
	if err != nil {
		return fmt.Errorf("attach schema target: %w", err)
	}
	defer detach()

	// Foreign keys cannot be toggled inside a transaction.
	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer func() {
		if _, fkErr := db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = ON"); fkErr != nil {
			err = errors.Join(err, fmt.Errorf("re-enable foreign keys: %w", fkErr))
		}
	}()

	err = db.Transact(ctx, func(tx *sql.Tx) error {
		if txErr := db.migrateTables(ctx, tx); txErr != nil {
			return fmt.Errorf("migrate tables: %w", txErr)
		}
		for _, typ := range []string{"index", "trigger"} {
			if txErr := db.migrateRecreatable(ctx, tx, typ); txErr != nil {
				return fmt.Errorf("migrate %ss: %w", typ, txErr)
			}
		}
		if _, txErr := tx.ExecContext(ctx, "PRAGMA foreign_key_check"); txErr != nil {
			return fmt.Errorf("foreign key check: %w", txErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	db.logger.LogAttrs(ctx, slog.LevelDebug, "migrated database", slog.Duration("duration", time.Since(start)))
	return nil
}

// attachSchemaTarget creates the target schema in a scratch database and attaches it as schemaTarget.
// The returned function detaches and closes it.
func (db *Database) attachSchemaTarget(ctx context.Context, schemaDefinition string) (func(), error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", rand.Text())
	target, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open schema target: %w", err)
	}
	// The scratch database lives as long as one connection to it is open.
	target.SetMaxIdleConns(1)
	if _, err = target.ExecContext(ctx, schemaDefinition); err != nil {
		return nil, errors.Join(fmt.Errorf("create target schema: %w", err), target.Close())
	}
	if _, err = db.ReadWrite.ExecContext(ctx, "ATTACH DATABASE ? AS schemaTarget", dsn); err != nil {
		return nil, errors.Join(fmt.Errorf("attach: %w", err), target.Close())
	}
	return func() {
		if _, detachErr := db.ReadWrite.ExecContext(ctx, "DETACH DATABASE schemaTarget"); detachErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to detach schema target", slog.Any("error", detachErr))
		}
		if closeErr := target.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close schema target", slog.Any("error", closeErr))
		}
	}, nil
}

func (db *Database) migrateTables(ctx context.Context, tx *sql.Tx) error {
	removed, added, changed, err := diffSchema(ctx, tx, "table")
	if err != nil {
		return err
	}

	for _, table := range removed {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping table", slog.String("table", table.name))
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %q", table.name)); err != nil {
			return fmt.Errorf("drop table %s: %w", table.name, err)
		}
	}

	for _, table := range added {
		db.logger.LogAttrs(ctx, slog.LevelDebug, "creating table", slog.String("table", table.name))
		if _, err = tx.ExecContext(ctx, table.sql); err != nil {
			return fmt.Errorf("create table %s: %w", table.name, err)
		}
	}

	for _, table := range changed {
		if err = db.rebuildTable(ctx, tx, table); err != nil {
			return fmt.Errorf("rebuild table %s: %w", table.name, err)
		}
	}
	return nil
}

// rebuildTable recreates table with its target definition and copies over the columns both versions share.
func (db *Database) rebuildTable(ctx context.Context, tx *sql.Tx, table schemaObject) error {
	db.logger.LogAttrs(ctx, slog.LevelInfo, "rebuilding table",
		slog.String("table", table.name), slog.String("new_sql", table.sql))

	tempName := table.name + "_migration_temp"
	if _, err := tx.ExecContext(ctx, strings.Replace(table.sql, table.name, tempName, 1)); err != nil {
		return fmt.Errorf("create temporary table: %w", err)
	}

	// Column names are quoted in case they collide with SQLite keywords.
	columns, err := queryStrings(ctx, tx, `SELECT '"' || target.name || '"'
FROM PRAGMA_TABLE_INFO(:table_name) AS live
JOIN PRAGMA_TABLE_INFO(:table_name, 'schemaTarget') AS target ON target.name = live.name`,
		sql.Named("table_name", table.name))
	if err != nil {
		return fmt.Errorf("query common columns: %w", err)
	}
	common := strings.Join(columns, ", ")

	statements := []string{
		fmt.Sprintf("INSERT INTO %q (%s) SELECT %s FROM %q", tempName, common, common, table.name),
		fmt.Sprintf("DROP TABLE %q", table.name),
		fmt.Sprintf("ALTER TABLE %q RENAME TO %q", tempName, table.name),
	}
	for _, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

// migrateRecreatable synchronises indexes or triggers, which can simply be dropped and recreated.
func (db *Database) migrateRecreatable(ctx context.Context, tx *sql.Tx, typ string) error {
	removed, added, changed, err := diffSchema(ctx, tx, typ)
	if err != nil {
		return err
	}

	for _, obj := range append(removed, changed...) {
		db.logger.LogAttrs(ctx, slog.LevelDebug, "dropping", slog.String("type", typ), slog.String("name", obj.name))
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP %s IF EXISTS %q", strings.ToUpper(typ), obj.name)); err != nil {
			return fmt.Errorf("drop %s %s: %w", typ, obj.name, err)
		}
	}
	for _, obj := range append(added, changed...) {
		db.logger.LogAttrs(ctx, slog.LevelDebug, "creating", slog.String("type", typ), slog.String("name", obj.name))
		if _, err = tx.ExecContext(ctx, obj.sql); err != nil {
			return fmt.Errorf("create %s %s: %w", typ, obj.name, err)
		}
	}
	return nil
}

// diffSchema compares live and target schema entries of one type. Removed entries carry the live SQL while added
// and changed entries carry the target SQL. Automatic indexes have NULL sql and are skipped.
func diffSchema(ctx context.Context, tx *sql.Tx, typ string) (removed, added, changed []schemaObject, err error) {
	live, err := querySchema(ctx, tx, "main", typ)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("query live %s: %w", typ, err)
	}
	target, err := querySchema(ctx, tx, "schemaTarget", typ)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("query target %s: %w", typ, err)
	}

	for name, liveSQL := range live {
		targetSQL, ok := target[name]
		switch {
		case !ok:
			removed = append(removed, schemaObject{name: name, sql: liveSQL})
		// Renamed tables get their name quoted in sqlite_schema, so quotes are ignored in the comparison.
		case strings.ReplaceAll(liveSQL, `"`, "") != strings.ReplaceAll(targetSQL, `"`, ""):
			changed = append(changed, schemaObject{name: name, sql: targetSQL})
		}
	}
	for name, targetSQL := range target {
		if _, ok := live[name]; !ok {
			added = append(added, schemaObject{name: name, sql: targetSQL})
		}
	}
	return removed, added, changed, nil
}

func querySchema(ctx context.Context, tx *sql.Tx, schema string, typ string) (_ map[string]string, err error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`SELECT name, sql FROM %s.sqlite_schema
WHERE type = ? AND sql IS NOT NULL AND name NOT LIKE 'sqlite_%%'`, schema), typ)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	objects := make(map[string]string)
	for rows.Next() {
		var name, definition string
		if err = rows.Scan(&name, &definition); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		objects[name] = definition
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return objects, nil
}

// queryStrings returns the single string column of a query.
func queryStrings(ctx context.Context, tx *sql.Tx, query string, args ...any) (_ []string, err error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var results []string
	for rows.Next() {
		var result string
		if err = rows.Scan(&result); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		results = append(results, result)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return results, nil
}
