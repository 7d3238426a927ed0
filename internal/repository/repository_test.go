package repository

import (
	"testing"

	"github.com/MatthewIsblind/todoList/internal/database"
)

// newTestStore はインメモリSQLiteでマイグレーション済みのStoreを返す。
func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, dialect, err := database.Open(":memory:", database.PoolConfig{})
	if err != nil {
		t.Fatalf("database.Open() unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.RunMigrations(db, dialect); err != nil {
		t.Fatalf("RunMigrations() unexpected error: %v", err)
	}

	return NewStore(db, dialect)
}
