package sqlite

import (
	"testing"

	"github.com/abishek0504/iron-path-app-sub003/internal/testhelpers"
)

func TestDatabase_Optimize(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	db, err := NewDatabase(ctx, ":memory:", testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})

	if err = db.Optimize(ctx); err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}

	// Optimizing must not touch the data.
	var muscles int
	if err = db.ReadOnly.QueryRowContext(ctx, "SELECT COUNT(*) FROM muscles").Scan(&muscles); err != nil {
		t.Fatalf("Failed to count muscles: %v", err)
	}
	if muscles != 13 {
		t.Errorf("muscles = %d, want 13", muscles)
	}
}
