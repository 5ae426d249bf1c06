package repository

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"eyeluxe/internal/domain"
)

func TestCollection_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	bills := NewBills(NewMemoryStore())
	for _, d := range []string{"2024-01-02T10:00:00.000Z", "garbage", "2024-03-01", "2024-01-01T09:00:00Z"} {
		b := domain.Bill{CustomerName: d, Date: d}
		if err := bills.Create(ctx, &b); err != nil {
			t.Fatal(err)
		}
	}
	list, err := bills.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"2024-03-01", "2024-01-02T10:00:00.000Z", "2024-01-01T09:00:00Z", "garbage"}
	for i, b := range list {
		if b.Date != want[i] {
			t.Fatalf("position %d: got %q want %q", i, b.Date, want[i])
		}
		if b.ID == "" {
			t.Fatalf("id not populated")
		}
	}
}

func TestCollection_Patch(t *testing.T) {
	ctx := context.Background()
	rentals := NewRentals(NewMemoryStore())
	r := domain.Rental{OrnamentName: "Necklace", Status: domain.RentalStatusRented}
	if err := rentals.Create(ctx, &r); err != nil {
		t.Fatal(err)
	}

	up, err := rentals.Patch(ctx, r.ID, func(v *domain.Rental) error {
		v.Status = domain.RentalStatusReturned
		v.ID = "hijack"
		return nil
	})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if up.ID != r.ID || up.Status != domain.RentalStatusReturned {
		t.Fatalf("unexpected patch result %+v", up)
	}

	// a failing apply leaves the document untouched
	stop := errors.New("stop")
	if _, err := rentals.Patch(ctx, r.ID, func(v *domain.Rental) error {
		v.OrnamentName = "changed"
		return stop
	}); !errors.Is(err, stop) {
		t.Fatalf("expected stop, got %v", err)
	}
	got, _ := rentals.Get(ctx, r.ID)
	if got.OrnamentName != "Necklace" {
		t.Fatalf("aborted patch applied")
	}

	if _, err := rentals.Patch(ctx, "missing", func(*domain.Rental) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
