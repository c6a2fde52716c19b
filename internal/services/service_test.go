package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dvrmln/taskdeck-be/internal/database"
	"github.com/dvrmln/taskdeck-be/internal/models"
)

// newTestDB opens a private in-memory database. A single connection is
// enforced because every pooled connection would otherwise get its own
// empty in-memory store.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *sql.DB, email string) models.User {
	t.Helper()
	user, err := NewUserService(db).Register(context.Background(), "Test User", email, "s3cret!pw")
	if err != nil {
		t.Fatalf("seeding user %s: %v", email, err)
	}
	return user
}
