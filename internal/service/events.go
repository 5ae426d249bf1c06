package service

import (
	"sort"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"

	"eyeluxe/internal/domain"
)

// TopicBillCreated published after a bill has been committed
const TopicBillCreated = "bill:created"

// BillCreated payload of TopicBillCreated
type BillCreated struct {
	Bill domain.Bill
	// Stock remaining stock of every product the bill touched
	Stock map[string]StockLevel
}

// StockLevel product stock after a sale
type StockLevel struct {
	Name  string
	Stock int64
}

// LowStockNotifier logs a warning for every product a sale brought to or below
// the threshold.
type LowStockNotifier struct {
	Threshold int64
	log       *zap.Logger
}

func NewLowStockNotifier(threshold int64, log *zap.Logger) *LowStockNotifier {
	if log == nil {
		log = zap.L()
	}
	return &LowStockNotifier{Threshold: threshold, log: log}
}

// Subscribe attaches the notifier to bus.
func (n *LowStockNotifier) Subscribe(bus EventBus.Bus) error {
	return bus.SubscribeAsync(TopicBillCreated, n.Handle, false)
}

// Handle returns the ids it warned about, sorted.
func (n *LowStockNotifier) Handle(ev BillCreated) []string {
	var low []string
	for id, lvl := range ev.Stock {
		if lvl.Stock <= n.Threshold {
			low = append(low, id)
		}
	}
	sort.Strings(low)
	for _, id := range low {
		lvl := ev.Stock[id]
		n.log.Warn("low stock after sale",
			zap.String("invoice_no", ev.Bill.InvoiceNo),
			zap.String("product_id", id),
			zap.String("product", lvl.Name),
			zap.Int64("stock", lvl.Stock))
	}
	return low
}
