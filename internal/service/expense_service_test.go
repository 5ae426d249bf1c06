package service

import (
	"context"
	"errors"
	"testing"

	"eyeluxe/internal/domain"
	"eyeluxe/internal/repository"
)

func TestExpense_CRUD(t *testing.T) {
	ctx := context.Background()
	es := NewExpenseService(repository.NewExpenses(repository.NewMemoryStore()))

	e, err := es.Create(ctx, domain.Expense{Amount: 250, Notes: "tea"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.Category != domain.ExpenseOthers || e.Date == "" {
		t.Fatalf("defaults not applied: %+v", e)
	}

	if _, err := es.Update(ctx, e.ID, Patch{"category": "Rent", "amount": float64(12000)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	list, _ := es.List(ctx)
	if len(list) != 1 || list[0].Category != domain.ExpenseRent || list[0].Amount != 12000 {
		t.Fatalf("unexpected list: %+v", list)
	}

	if _, err := es.Update(ctx, e.ID, Patch{"category": "Party"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid category, got %v", err)
	}
	if err := es.Delete(ctx, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := es.Delete(ctx, e.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestExpense_CreateInvalid(t *testing.T) {
	ctx := context.Background()
	es := NewExpenseService(repository.NewExpenses(repository.NewMemoryStore()))
	if _, err := es.Create(ctx, domain.Expense{Category: "Party", Amount: 1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := es.Create(ctx, domain.Expense{Amount: -5}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
