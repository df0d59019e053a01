package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// userColumn is the column that marks a table as owned by a user.
const userColumn = "user_id"

// userTable is a table to export together with the filter selecting the user's rows.
type userTable struct {
	name string
	// filter is a WHERE clause with exactly one placeholder for the user id, or empty to copy every row.
	filter string
}

// ExportUser copies the training data of userID into a new SQLite file in dir and returns its path.
//
// Tables with a user_id column are filtered by it, tables that reference them through foreign keys are filtered
// transitively, and catalog tables they reference are copied whole so that the export is self-contained.
func (db *Database) ExportUser(ctx context.Context, userID string, dir string) (_ string, err error) {
	if userID == "" || userID != filepath.Base(userID) || strings.HasPrefix(userID, ".") {
		return "", fmt.Errorf("invalid user id %q for export", userID)
	}
	exportPath := filepath.Join(dir, fmt.Sprintf("user-%s.sqlite3", userID))
	start := time.Now()

	if _, err = db.ReadWrite.ExecContext(ctx, "ATTACH DATABASE ? AS export", exportPath); err != nil {
		return "", fmt.Errorf("attach export database: %w", err)
	}
	defer func() {
		if _, detachErr := db.ReadWrite.ExecContext(ctx, "DETACH DATABASE export"); detachErr != nil {
			err = errors.Join(err, fmt.Errorf("detach export database: %w", detachErr))
		}
	}()

	var tables []userTable
	err = db.Transact(ctx, func(tx *sql.Tx) error {
		if tables, err = findUserTables(ctx, tx); err != nil {
			return fmt.Errorf("find user tables: %w", err)
		}
		for _, table := range tables {
			if err = copyTableSchema(ctx, tx, table.name); err != nil {
				return fmt.Errorf("copy schema of %s: %w", table.name, err)
			}
			if err = copyTableData(ctx, tx, table, userID); err != nil {
				return fmt.Errorf("copy data of %s: %w", table.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	db.logger.LogAttrs(ctx, slog.LevelInfo, "exported user data",
		slog.String("user_id", userID),
		slog.String("path", exportPath),
		slog.Int("tables", len(tables)),
		slog.Duration("duration", time.Since(start)))
	return exportPath, nil
}

// foreignKey is one row of pragma_foreign_key_list.
type foreignKey struct {
	table string
	from  string
	to    string
}

// findUserTables returns the tables to export, referenced catalog tables first.
func findUserTables(ctx context.Context, tx *sql.Tx) ([]userTable, error) {
	names, err := queryStrings(ctx, tx, `SELECT name FROM main.sqlite_schema
WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	keys := make(map[string][]foreignKey, len(names))
	for _, name := range names {
		if keys[name], err = foreignKeys(ctx, tx, name); err != nil {
			return nil, fmt.Errorf("foreign keys of %s: %w", name, err)
		}
	}

	owned := make(map[string]string)
	var ordered []string
	for _, name := range names {
		var hasUserColumn bool
		if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) > 0 FROM pragma_table_info(?) WHERE name = ?`,
			name, userColumn).Scan(&hasUserColumn); err != nil {
			return nil, fmt.Errorf("inspect columns of %s: %w", name, err)
		}
		if hasUserColumn {
			owned[name] = fmt.Sprintf("WHERE %s = ?", userColumn)
			ordered = append(ordered, name)
		}
	}

	// Tables pointing at owned rows are owned too. Repeat until no new table is found.
	for changed := true; changed; {
		changed = false
		for _, name := range names {
			if _, ok := owned[name]; ok {
				continue
			}
			for _, fk := range keys[name] {
				parentFilter, ok := owned[fk.table]
				if !ok {
					continue
				}
				owned[name] = fmt.Sprintf("WHERE %s IN (SELECT %s FROM main.%s %s)", fk.from, fk.to, fk.table, parentFilter)
				ordered = append(ordered, name)
				changed = true
				break
			}
		}
	}

	referenced := make(map[string]bool)
	var queue []string
	queue = append(queue, ordered...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, fk := range keys[name] {
			if _, ok := owned[fk.table]; ok || referenced[fk.table] {
				continue
			}
			referenced[fk.table] = true
			queue = append(queue, fk.table)
		}
	}

	tables := make([]userTable, 0, len(referenced)+len(ordered))
	for _, name := range names {
		if referenced[name] {
			tables = append(tables, userTable{name: name, filter: ""})
		}
	}
	for _, name := range ordered {
		tables = append(tables, userTable{name: name, filter: owned[name]})
	}
	return tables, nil
}

func foreignKeys(ctx context.Context, tx *sql.Tx, table string) (_ []foreignKey, err error) {
	rows, err := tx.QueryContext(ctx, `SELECT "table", "from", "to" FROM pragma_foreign_key_list(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var keys []foreignKey
	for rows.Next() {
		var fk foreignKey
		if err = rows.Scan(&fk.table, &fk.from, &fk.to); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		keys = append(keys, fk)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return keys, nil
}

// copyTableSchema creates table in the export database with the definition it has in the main database.
func copyTableSchema(ctx context.Context, tx *sql.Tx, table string) error {
	var createSQL string
	if err := tx.QueryRowContext(ctx, `SELECT sql FROM main.sqlite_schema WHERE type = 'table' AND name = ?`,
		table).Scan(&createSQL); err != nil {
		return fmt.Errorf("read definition: %w", err)
	}
	// Tables rebuilt by a migration have their name quoted.
	definition, ok := strings.CutPrefix(createSQL, "CREATE TABLE "+table)
	if !ok {
		definition, ok = strings.CutPrefix(createSQL, `CREATE TABLE "`+table+`"`)
	}
	if !ok {
		return fmt.Errorf("unexpected definition %q", createSQL)
	}
	if _, err := tx.ExecContext(ctx, "CREATE TABLE export."+table+definition); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

func copyTableData(ctx context.Context, tx *sql.Tx, table userTable, userID string) error {
	query := fmt.Sprintf("INSERT INTO export.%[1]s SELECT * FROM main.%[1]s", table.name)
	var args []any
	if table.filter != "" {
		query += " " + table.filter
		args = append(args, userID)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert rows: %w", err)
	}
	return nil
}
