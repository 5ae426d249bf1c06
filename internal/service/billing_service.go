package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"eyeluxe/internal/domain"
	"eyeluxe/internal/repository"
)

// invoiceCounterID document in the counters collection holding the last issued
// invoice sequence
const invoiceCounterID = "invoice"

type invoiceCounter struct {
	Last int `json:"last"`
}

// BillingService реализует логику продаж: атомарное списание запаса, выдача
// номера счёта и сохранение чека
type BillingService struct {
	store repository.DocumentStore
	bills repository.BillRepository
	bus   EventBus.Bus
	now   func() time.Time
}

func NewBillingService(store repository.DocumentStore, bills repository.BillRepository, bus EventBus.Bus) *BillingService {
	return &BillingService{store: store, bills: bills, bus: bus, now: time.Now}
}

// CreateBillRequest cart and customer details of a sale
type CreateBillRequest struct {
	CustomerName  string            `json:"customerName"`
	CustomerPhone string            `json:"customerPhone"`
	Items         []domain.BillItem `json:"items"`
	ExtraDiscount float64           `json:"extraDiscount"`
	Date          string            `json:"date"`
	PaymentMethod string            `json:"paymentMethod"`
}

func (r CreateBillRequest) validate() error {
	if strings.TrimSpace(r.CustomerName) == "" {
		return invalidf("customer name is required")
	}
	if len(r.Items) == 0 {
		return invalidf("cart is empty")
	}
	for i, it := range r.Items {
		if it.IsProduct() && it.ID == "" {
			return invalidf("item %d: product id is required", i+1)
		}
		if it.Quantity <= 0 {
			return invalidf("item %d: quantity must be positive", i+1)
		}
	}
	if r.ExtraDiscount < 0 {
		return invalidf("extra discount must not be negative")
	}
	return nil
}

// InvoiceNumber formats the n-th invoice number.
func InvoiceNumber(n int) string {
	return fmt.Sprintf("INV-%05d", n)
}

// Totals subtotal and total of a cart, rounded to cents.
func Totals(items []domain.BillItem, extraDiscount float64) (subtotal, total float64) {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(decimal.NewFromFloat(it.UnitPrice()).Mul(decimal.NewFromInt(it.Quantity)))
	}
	sum = sum.Round(2)
	return sum.InexactFloat64(), sum.Sub(decimal.NewFromFloat(extraDiscount)).Round(2).InexactFloat64()
}

func lineName(it domain.BillItem, p *domain.Product) string {
	switch {
	case it.Name != "":
		return it.Name
	case p != nil && p.Name != "":
		return p.Name
	default:
		return it.ID
	}
}

// productLine fills a catalog line from the product: type, name and, when the
// cart carries no price, the catalog selling price.
func productLine(it domain.BillItem, p *domain.Product) domain.BillItem {
	it.Type = domain.ItemTypeProduct
	if it.Name == "" {
		it.Name = p.Name
	}
	if it.SellingPrice == 0 {
		it.SellingPrice = p.SellingPrice
	}
	return it
}

// CreateBill проверяет наличие товара, атомарно списывает запас, присваивает
// номер счёта и сохраняет чек. Применяется либо всё, либо ничего.
func (s *BillingService) CreateBill(ctx context.Context, req CreateBillRequest) (*domain.Bill, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var (
		bill     domain.Bill
		items    []domain.BillItem
		products map[string]*domain.Product
		counter  invoiceCounter
	)
	err := repository.WithTransaction(ctx, s.store,
		func(r repository.TxReader) error {
			// read phase: the transaction may be retried, so start from scratch
			products = make(map[string]*domain.Product)
			items = make([]domain.BillItem, len(req.Items))
			requested := make(map[string]int64)
			for i, it := range req.Items {
				items[i] = it
				if !it.IsProduct() {
					continue
				}
				p, ok := products[it.ID]
				if !ok {
					var err error
					p, err = repository.TxGet[domain.Product](r, repository.Products, it.ID)
					if errors.Is(err, repository.ErrNotFound) {
						return &LineError{Err: ErrProductNotFound, Name: lineName(it, nil)}
					}
					if err != nil {
						return err
					}
					products[it.ID] = p
				}
				requested[it.ID] += it.Quantity
				if requested[it.ID] > p.Stock {
					return &LineError{Err: ErrInsufficientStock, Name: lineName(it, p)}
				}
				items[i] = productLine(it, p)
			}
			count, err := r.Count(repository.Bills)
			if err != nil {
				return err
			}
			counter = invoiceCounter{}
			c, err := repository.TxGet[invoiceCounter](r, repository.Counters, invoiceCounterID)
			switch {
			case err == nil:
				counter = *c
			case !errors.Is(err, repository.ErrNotFound):
				return err
			}

			// decide phase
			for id, q := range requested {
				products[id].Stock -= q
			}
			seq := count
			if counter.Last > seq {
				seq = counter.Last
			}
			seq++
			counter.Last = seq

			subtotal, total := Totals(items, req.ExtraDiscount)
			date := req.Date
			if date == "" {
				date = domain.Timestamp(s.now())
			}
			bill = domain.Bill{
				ID:            uuid.NewString(),
				InvoiceNo:     InvoiceNumber(seq),
				CustomerName:  strings.TrimSpace(req.CustomerName),
				CustomerPhone: req.CustomerPhone,
				Items:         items,
				Subtotal:      subtotal,
				ExtraDiscount: req.ExtraDiscount,
				Total:         total,
				Date:          date,
				PaymentMethod: req.PaymentMethod,
			}
			return nil
		},
		func(w repository.TxWriter) error {
			for id, p := range products {
				if err := repository.TxPut(w, repository.Products, id, p); err != nil {
					return err
				}
			}
			if err := repository.TxPut(w, repository.Counters, invoiceCounterID, counter); err != nil {
				return err
			}
			return repository.TxPut(w, repository.Bills, bill.ID, bill)
		})
	if err != nil {
		return nil, err
	}

	zap.L().Info("bill created",
		zap.String("invoice_no", bill.InvoiceNo),
		zap.String("bill_id", bill.ID),
		zap.Float64("total", bill.Total),
		zap.Int("items", len(bill.Items)))

	if s.bus != nil {
		levels := make(map[string]StockLevel, len(products))
		for id, p := range products {
			levels[id] = StockLevel{Name: p.Name, Stock: p.Stock}
		}
		s.bus.Publish(TopicBillCreated, BillCreated{Bill: bill, Stock: levels})
	}
	return &bill, nil
}

func (s *BillingService) List(ctx context.Context) ([]domain.Bill, error) {
	return s.bills.List(ctx)
}

func (s *BillingService) Get(ctx context.Context, id string) (*domain.Bill, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	return s.bills.Get(ctx, id)
}

// Delete removes the bill record only; sold stock is not put back.
func (s *BillingService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidInput
	}
	return s.bills.Delete(ctx, id)
}
