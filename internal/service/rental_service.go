package service

import (
	"context"
	"math"
	"strings"
	"time"

	"eyeluxe/internal/domain"
	"eyeluxe/internal/repository"
)

// RentalService ornament rentals and their Rented → Returned lifecycle
type RentalService struct {
	repo repository.RentalRepository
	now  func() time.Time
}

func NewRentalService(repo repository.RentalRepository) *RentalService {
	return &RentalService{repo: repo, now: time.Now}
}

// RentalDays whole days between start and expected return, at least one.
func RentalDays(r domain.Rental) int64 {
	start, ok1 := domain.ParseDate(r.StartDate, time.Local)
	end, ok2 := domain.ParseDate(r.ExpectedReturnDate, time.Local)
	if !ok1 || !ok2 {
		return 1
	}
	days := int64(math.Round(math.Abs(end.Sub(start).Hours()) / 24))
	if days < 1 {
		return 1
	}
	return days
}

func (s *RentalService) List(ctx context.Context) ([]domain.Rental, error) {
	return s.repo.List(ctx)
}

func (s *RentalService) Get(ctx context.Context, id string) (*domain.Rental, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.Get(ctx, id)
}

func (s *RentalService) Create(ctx context.Context, r domain.Rental) (*domain.Rental, error) {
	r.OrnamentName = strings.TrimSpace(r.OrnamentName)
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	if r.OrnamentName == "" {
		return nil, invalidf("ornament name is required")
	}
	if r.CustomerName == "" {
		return nil, invalidf("customer name is required")
	}
	if r.DailyPrice < 0 || r.AdvanceAmount < 0 || r.ExtraDiscount < 0 {
		return nil, invalidf("amounts must not be negative")
	}
	if r.Status == "" {
		r.Status = domain.RentalStatusRented
	}
	if r.Status != domain.RentalStatusRented && r.Status != domain.RentalStatusReturned {
		return nil, invalidf("unknown rental status %q", r.Status)
	}
	if r.StartDate == "" {
		r.StartDate = s.now().Format("2006-01-02")
	}
	if r.RentalPrice == 0 {
		r.RentalPrice = float64(RentalDays(r))*r.DailyPrice - r.ExtraDiscount
	}
	cp := r
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// Update applies a partial update. Status may only move forward to Returned;
// doing so stamps the actual return date unless the patch carries one.
func (s *RentalService) Update(ctx context.Context, id string, patch Patch) (map[string]any, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	patch = patch.without("id")
	_, err := s.repo.Patch(ctx, id, func(r *domain.Rental) error {
		prev := r.Status
		if err := applyPatch(r, patch); err != nil {
			return err
		}
		if err := checkTransition(prev, r.Status); err != nil {
			return err
		}
		if prev == domain.RentalStatusRented && r.Status == domain.RentalStatusReturned && r.ActualReturnDate == "" {
			r.ActualReturnDate = domain.Timestamp(s.now())
			patch["actualReturnDate"] = r.ActualReturnDate
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return patch.echo(id), nil
}

func checkTransition(from, to domain.RentalStatus) error {
	switch {
	case to != domain.RentalStatusRented && to != domain.RentalStatusReturned:
		return invalidf("unknown rental status %q", to)
	case from == domain.RentalStatusReturned && to == domain.RentalStatusRented:
		return ErrInvalidState
	}
	return nil
}

// Return marks a rented ornament as returned now.
func (s *RentalService) Return(ctx context.Context, id string) (*domain.Rental, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.Patch(ctx, id, func(r *domain.Rental) error {
		if r.Status == domain.RentalStatusReturned {
			return ErrInvalidState
		}
		r.Status = domain.RentalStatusReturned
		r.ActualReturnDate = domain.Timestamp(s.now())
		return nil
	})
}

func (s *RentalService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}

// Settlement summary handed to the customer when a rental is closed
type Settlement struct {
	RentalID      string            `json:"rentalId"`
	Reference     string            `json:"reference"`
	CustomerName  string            `json:"customerName"`
	CustomerPhone string            `json:"customerPhone"`
	Items         []domain.BillItem `json:"items"`
	ExtraDiscount float64           `json:"extraDiscount"`
	BalanceDue    float64           `json:"balanceDue"`
	Status        string            `json:"status"`
}

// RentalRef short receipt reference: the last six characters of the id, upper case.
func RentalRef(id string) string {
	ref := strings.ToUpper(id)
	if len(ref) > 6 {
		ref = ref[len(ref)-6:]
	}
	return ref
}

// Settlement computes what is still owed on a rental. Nothing is persisted.
func (s *RentalService) Settlement(ctx context.Context, id string) (*Settlement, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ref := RentalRef(r.ID)
	return &Settlement{
		RentalID:      r.ID,
		Reference:     ref,
		CustomerName:  r.CustomerName,
		CustomerPhone: r.CustomerPhone,
		Items: []domain.BillItem{
			{Name: r.OrnamentName + " (Base Price)", Quantity: 1, RentalPrice: r.RentalPrice + r.ExtraDiscount, Type: domain.ItemTypeRental},
			{Name: "Advance Paid (Receipt Ref: #" + ref + ")", Quantity: 1, RentalPrice: -r.AdvanceAmount, Type: domain.ItemTypeDeduction},
		},
		ExtraDiscount: r.ExtraDiscount,
		BalanceDue:    r.RentalPrice - r.AdvanceAmount,
		Status:        string(r.Status),
	}, nil
}
