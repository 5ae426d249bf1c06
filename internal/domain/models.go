package domain

// Product is a catalog item held in the shop inventory
type Product struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	PurchasePrice float64 `json:"purchasePrice"`
	MRP           float64 `json:"mrp"`
	SellingPrice  float64 `json:"sellingPrice"`
	Stock         int64   `json:"stock"`
	ExpiryDate    string  `json:"expiryDate,omitempty"`
	AddedDate     string  `json:"addedDate,omitempty"`
}

// RentalStatus lifecycle state of an ornament rental
type RentalStatus string

const (
	RentalStatusRented   RentalStatus = "Rented"
	RentalStatusReturned RentalStatus = "Returned"
)

// Rental an ornament handed out to a customer for a period
type Rental struct {
	ID                 string       `json:"id"`
	OrnamentName       string       `json:"ornamentName"`
	DailyPrice         float64      `json:"dailyPrice"`
	AdvanceAmount      float64      `json:"advanceAmount"`
	CustomerName       string       `json:"customerName"`
	CustomerPhone      string       `json:"customerPhone"`
	StartDate          string       `json:"startDate"`
	ExpectedReturnDate string       `json:"expectedReturnDate"`
	ActualReturnDate   string       `json:"actualReturnDate,omitempty"`
	RentalPrice        float64      `json:"rentalPrice"`
	ExtraDiscount      float64      `json:"extraDiscount"`
	Status             RentalStatus `json:"status"`
}

// ItemType kind of a bill line
type ItemType string

const (
	ItemTypeProduct   ItemType = "product"
	ItemTypeRental    ItemType = "rental"
	ItemTypeDeduction ItemType = "deduction"
)

// BillItem denormalized copy of a cart line at the time of sale
type BillItem struct {
	ID           string   `json:"id,omitempty"`
	Name         string   `json:"name"`
	Quantity     int64    `json:"quantity"`
	SellingPrice float64  `json:"sellingPrice,omitempty"`
	RentalPrice  float64  `json:"rentalPrice,omitempty"`
	Type         ItemType `json:"type,omitempty"`
}

// IsProduct reports whether the line references a catalog product. Lines with
// an id and no type are catalog lines too.
func (it BillItem) IsProduct() bool {
	return it.Type == ItemTypeProduct || (it.Type == "" && it.ID != "")
}

// UnitPrice price charged per unit: selling price for catalog lines, the rental
// price for ad hoc lines (falling back to the selling price when unset).
func (it BillItem) UnitPrice() float64 {
	if it.IsProduct() || it.RentalPrice == 0 {
		return it.SellingPrice
	}
	return it.RentalPrice
}

// Bill a committed sale
type Bill struct {
	ID            string     `json:"id"`
	InvoiceNo     string     `json:"invoiceNo"`
	CustomerName  string     `json:"customerName"`
	CustomerPhone string     `json:"customerPhone"`
	Items         []BillItem `json:"items"`
	Subtotal      float64    `json:"subtotal"`
	ExtraDiscount float64    `json:"extraDiscount"`
	Total         float64    `json:"total"`
	Date          string     `json:"date"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
}

// ExpenseCategory fixed set of expense kinds
type ExpenseCategory string

const (
	ExpenseRent        ExpenseCategory = "Rent"
	ExpenseSalary      ExpenseCategory = "Salary"
	ExpenseTransport   ExpenseCategory = "Transport"
	ExpenseUtilities   ExpenseCategory = "Utilities"
	ExpenseMaintenance ExpenseCategory = "Maintenance"
	ExpenseMarketing   ExpenseCategory = "Marketing"
	ExpenseOthers      ExpenseCategory = "Others"
)

var expenseCategories = map[ExpenseCategory]struct{}{
	ExpenseRent: {}, ExpenseSalary: {}, ExpenseTransport: {}, ExpenseUtilities: {},
	ExpenseMaintenance: {}, ExpenseMarketing: {}, ExpenseOthers: {},
}

// Valid reports whether c is one of the known categories.
func (c ExpenseCategory) Valid() bool {
	_, ok := expenseCategories[c]
	return ok
}

// Expense a shop running cost
type Expense struct {
	ID       string          `json:"id"`
	Category ExpenseCategory `json:"category"`
	Amount   float64         `json:"amount"`
	Date     string          `json:"date"`
	Notes    string          `json:"notes,omitempty"`
}
