package repository

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"eyeluxe/internal/domain"
)

// Repository typed access to one collection
type Repository[T any] interface {
	Create(ctx context.Context, v *T) error
	Get(ctx context.Context, id string) (*T, error)
	List(ctx context.Context) ([]T, error)
	Patch(ctx context.Context, id string, apply func(v *T) error) (*T, error)
	Delete(ctx context.Context, id string) error
}

type (
	ProductRepository = Repository[domain.Product]
	RentalRepository  = Repository[domain.Rental]
	BillRepository    = Repository[domain.Bill]
	ExpenseRepository = Repository[domain.Expense]
)

// Collection generic Repository over a DocumentStore. Documents keep their id in
// the body as well as in the key; setID keeps the two in sync.
type Collection[T any] struct {
	store DocumentStore
	name  string
	setID func(v *T, id string)
	// dateOf returns the field List orders by, newest first
	dateOf func(v *T) string
}

var (
	_ ProductRepository = (*Collection[domain.Product])(nil)
	_ BillRepository    = (*Collection[domain.Bill])(nil)
)

func NewProducts(s DocumentStore) *Collection[domain.Product] {
	return &Collection[domain.Product]{
		store:  s,
		name:   Products,
		setID:  func(p *domain.Product, id string) { p.ID = id },
		dateOf: func(p *domain.Product) string { return p.AddedDate },
	}
}

func NewRentals(s DocumentStore) *Collection[domain.Rental] {
	return &Collection[domain.Rental]{
		store:  s,
		name:   Rentals,
		setID:  func(r *domain.Rental, id string) { r.ID = id },
		dateOf: func(r *domain.Rental) string { return r.StartDate },
	}
}

func NewBills(s DocumentStore) *Collection[domain.Bill] {
	return &Collection[domain.Bill]{
		store:  s,
		name:   Bills,
		setID:  func(b *domain.Bill, id string) { b.ID = id },
		dateOf: func(b *domain.Bill) string { return b.Date },
	}
}

func NewExpenses(s DocumentStore) *Collection[domain.Expense] {
	return &Collection[domain.Expense]{
		store:  s,
		name:   Expenses,
		setID:  func(e *domain.Expense, id string) { e.ID = id },
		dateOf: func(e *domain.Expense) string { return e.Date },
	}
}

// Name collection name in the store
func (c *Collection[T]) Name() string { return c.name }

func (c *Collection[T]) Create(ctx context.Context, v *T) error {
	id := uuid.NewString()
	c.setID(v, id)
	raw, err := codec.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", c.name)
	}
	return c.store.Put(ctx, c.name, id, raw)
}

func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	raw, err := c.store.Get(ctx, c.name, id)
	if err != nil {
		return nil, err
	}
	return c.decode(id, raw)
}

// List returns every document ordered by the collection date, newest first.
// Documents with unparseable dates go last.
func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	recs, err := c.store.All(ctx, c.name)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		v, err := c.decode(r.ID, r.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	SortByDateDesc(out, c.dateOf)
	return out, nil
}

// Patch loads id, lets apply mutate it and stores the result in one transaction.
func (c *Collection[T]) Patch(ctx context.Context, id string, apply func(v *T) error) (*T, error) {
	var out *T
	err := c.store.RunTransaction(ctx, func(tx Tx) error {
		v, err := TxGet[T](tx, c.name, id)
		if err != nil {
			return err
		}
		c.setID(v, id)
		if err := apply(v); err != nil {
			return err
		}
		c.setID(v, id)
		if err := TxPut(tx, c.name, id, v); err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.name, id)
}

func (c *Collection[T]) decode(id string, raw []byte) (*T, error) {
	var v T
	if err := codec.Unmarshal(raw, &v); err != nil {
		return nil, errors.Wrapf(err, "decode %s/%s", c.name, id)
	}
	c.setID(&v, id)
	return &v, nil
}

// SortByDateDesc orders items newest first by the date string dateOf returns.
func SortByDateDesc[T any](items []T, dateOf func(v *T) string) {
	keys := make([]time.Time, len(items))
	for i := range items {
		keys[i], _ = domain.ParseDate(dateOf(&items[i]), time.Local)
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return keys[idx[a]].After(keys[idx[b]])
	})
	sorted := make([]T, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	copy(items, sorted)
}
