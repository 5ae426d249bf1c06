package service

import (
	"context"
	"time"

	"eyeluxe/internal/domain"
	"eyeluxe/internal/repository"
)

type ExpenseService struct {
	repo repository.ExpenseRepository
	now  func() time.Time
}

func NewExpenseService(repo repository.ExpenseRepository) *ExpenseService {
	return &ExpenseService{repo: repo, now: time.Now}
}

func validateExpense(e domain.Expense) error {
	if !e.Category.Valid() {
		return invalidf("unknown expense category %q", e.Category)
	}
	if e.Amount < 0 {
		return invalidf("amount must not be negative")
	}
	return nil
}

func (s *ExpenseService) List(ctx context.Context) ([]domain.Expense, error) {
	return s.repo.List(ctx)
}

func (s *ExpenseService) Create(ctx context.Context, e domain.Expense) (*domain.Expense, error) {
	if e.Category == "" {
		e.Category = domain.ExpenseOthers
	}
	if err := validateExpense(e); err != nil {
		return nil, err
	}
	if e.Date == "" {
		e.Date = domain.Timestamp(s.now())
	}
	cp := e
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ExpenseService) Update(ctx context.Context, id string, patch Patch) (map[string]any, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	patch = patch.without("id")
	_, err := s.repo.Patch(ctx, id, func(e *domain.Expense) error {
		if err := applyPatch(e, patch); err != nil {
			return err
		}
		return validateExpense(*e)
	})
	if err != nil {
		return nil, err
	}
	return patch.echo(id), nil
}

func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}
