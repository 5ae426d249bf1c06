package repository

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

func TestIsSerializationFailure(t *testing.T) {
	if !isSerializationFailure(errors.Wrap(&pgconn.PgError{Code: "40001"}, "commit")) {
		t.Fatalf("40001 must be retried")
	}
	if !isSerializationFailure(&pgconn.PgError{Code: "40P01"}) {
		t.Fatalf("40P01 must be retried")
	}
	if isSerializationFailure(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("unique violation must not be retried")
	}
	if isSerializationFailure(ErrNotFound) {
		t.Fatalf("plain errors must not be retried")
	}
}

// runs only against a disposable database, e.g.
// EYELUXE_TEST_PG_DSN="host=localhost user=postgres dbname=eyeluxe_test sslmode=disable"
func TestPostgresStore_CRUDAndTx(t *testing.T) {
	dsn := os.Getenv("EYELUXE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("EYELUXE_TEST_PG_DSN not set")
	}
	s, err := OpenPostgres(dsn, 5)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()
	s.db.Where("1 = 1").Delete(&documentRow{})

	if err := s.Put(ctx, Products, "p1", []byte(`{"id":"p1","stock":3}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	err = s.RunTransaction(ctx, func(tx Tx) error {
		if _, err := tx.Get(Products, "p1"); err != nil {
			return err
		}
		return tx.Put(Products, "p1", []byte(`{"id":"p1","stock":2}`))
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
	got, err := s.Get(ctx, Products, "p1")
	if err != nil || string(got) != `{"id": "p1", "stock": 2}` && string(got) != `{"id":"p1","stock":2}` {
		t.Fatalf("unexpected doc %s: %v", got, err)
	}
	var row documentRow
	if err := s.db.Where("collection = ? AND id = ?", Products, "p1").Take(&row).Error; err != nil || row.Version != 2 {
		t.Fatalf("expected version 2 after one replace, got %d: %v", row.Version, err)
	}
	if n, _ := s.Count(ctx, Products); n != 1 {
		t.Fatalf("expected 1 product, got %d", n)
	}
	if err := s.Delete(ctx, Products, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
