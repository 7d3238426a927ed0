package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/MatthewIsblind/todoList/internal/model"
)

func TestUserRepo_Upsert_CreatesRow(t *testing.T) {
	store := newTestStore(t)
	repo := NewUserRepo(store)
	ctx := context.Background()

	user, err := repo.Upsert(ctx, &model.Claims{
		Subject:    "sub-001",
		Email:      "alice@example.com",
		Name:       "Alice Example",
		GivenName:  "Alice",
		FamilyName: "Example",
		Picture:    "https://example.com/alice.png",
	})
	if err != nil {
		t.Fatalf("Upsert() unexpected error: %v", err)
	}
	if user.Sub != "sub-001" || user.Email != "alice@example.com" {
		t.Errorf("Upsert() returned user = %+v", user)
	}

	var email, name string
	err = store.db.QueryRowContext(ctx,
		`SELECT email, name FROM users WHERE sub = $1`, "sub-001",
	).Scan(&email, &name)
	if err != nil {
		t.Fatalf("row not found: %v", err)
	}
	if email != "alice@example.com" || name != "Alice Example" {
		t.Errorf("stored row = (%q, %q)", email, name)
	}
}

func TestUserRepo_Upsert_Idempotent(t *testing.T) {
	store := newTestStore(t)
	repo := NewUserRepo(store)
	ctx := context.Background()

	first := &model.Claims{Subject: "sub-001", Email: "old@example.com", Name: "Old Name"}
	if _, err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("first Upsert() unexpected error: %v", err)
	}

	var createdAt string
	if err := store.db.QueryRowContext(ctx,
		`SELECT created_at FROM users WHERE sub = $1`, "sub-001",
	).Scan(&createdAt); err != nil {
		t.Fatalf("created_at not readable: %v", err)
	}

	second := &model.Claims{Subject: "sub-001", Email: "new@example.com", Name: "New Name"}
	if _, err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("second Upsert() unexpected error: %v", err)
	}

	var count int
	if err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("user rows = %d, want 1", count)
	}

	var email, name, createdAfter string
	if err := store.db.QueryRowContext(ctx,
		`SELECT email, name, created_at FROM users WHERE sub = $1`, "sub-001",
	).Scan(&email, &name, &createdAfter); err != nil {
		t.Fatalf("row not found: %v", err)
	}
	if email != "new@example.com" || name != "New Name" {
		t.Errorf("row not updated: (%q, %q)", email, name)
	}
	if createdAfter != createdAt {
		t.Errorf("created_at changed on upsert: %q -> %q", createdAt, createdAfter)
	}
}

func TestUserRepo_Upsert_MissingSubject(t *testing.T) {
	store := newTestStore(t)
	repo := NewUserRepo(store)

	_, err := repo.Upsert(context.Background(), &model.Claims{Email: "no-sub@example.com"})
	if err == nil {
		t.Fatal("Upsert() expected error for missing subject")
	}
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Upsert() error = %v, want ValidationError", err)
	}
	if verr.Field != "sub" {
		t.Errorf("ValidationError.Field = %q, want %q", verr.Field, "sub")
	}
}
