package service

import (
	"context"
	"strings"
	"time"

	"eyeluxe/internal/domain"
	"eyeluxe/internal/repository"
)

// ProductService инкапсулирует бизнес-логику каталога товаров
type ProductService struct {
	repo repository.ProductRepository
	now  func() time.Time
}

func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo, now: time.Now}
}

func validateProduct(p domain.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return invalidf("product name is required")
	}
	if p.PurchasePrice < 0 || p.MRP < 0 || p.SellingPrice < 0 {
		return invalidf("prices must not be negative")
	}
	if p.Stock < 0 {
		return invalidf("stock must not be negative")
	}
	return nil
}

func (s *ProductService) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if p.AddedDate == "" {
		p.AddedDate = domain.Timestamp(s.now())
	}
	cp := p
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.Get(ctx, id)
}

// Update applies a partial update and echoes the applied fields.
func (s *ProductService) Update(ctx context.Context, id string, patch Patch) (map[string]any, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	patch = patch.without("id")
	if err := patch.wholeNumber("stock"); err != nil {
		return nil, err
	}
	_, err := s.repo.Patch(ctx, id, func(p *domain.Product) error {
		if err := applyPatch(p, patch); err != nil {
			return err
		}
		return validateProduct(*p)
	})
	if err != nil {
		return nil, err
	}
	return patch.echo(id), nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}

// List все товары, новые первыми
func (s *ProductService) List(ctx context.Context) ([]domain.Product, error) {
	return s.repo.List(ctx)
}
