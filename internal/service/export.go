package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"eyeluxe/internal/domain"
)

// Export formats
const (
	ExportCSV  = "csv"
	ExportXLSX = "xlsx"
)

const exportSheet = "Sheet1"

// BillRow flat view of a bill for spreadsheets
type BillRow struct {
	InvoiceNo     string  `csv:"Invoice No"`
	Date          string  `csv:"Date"`
	CustomerName  string  `csv:"Customer"`
	CustomerPhone string  `csv:"Phone"`
	Items         int     `csv:"Items"`
	Subtotal      float64 `csv:"Subtotal"`
	ExtraDiscount float64 `csv:"Extra Discount"`
	Total         float64 `csv:"Total"`
	PaymentMethod string  `csv:"Payment Method"`
}

var billRowHeader = []string{
	"Invoice No", "Date", "Customer", "Phone", "Items", "Subtotal", "Extra Discount", "Total", "Payment Method",
}

func (r *BillRow) values() []interface{} {
	return []interface{}{
		r.InvoiceNo, r.Date, r.CustomerName, r.CustomerPhone, r.Items,
		r.Subtotal, r.ExtraDiscount, r.Total, r.PaymentMethod,
	}
}

func toBillRow(b domain.Bill) BillRow {
	method := "CASH"
	if isUPI(b.PaymentMethod) {
		method = "UPI"
	}
	return BillRow{
		InvoiceNo:     b.InvoiceNo,
		Date:          b.Date,
		CustomerName:  b.CustomerName,
		CustomerPhone: b.CustomerPhone,
		Items:         len(b.Items),
		Subtotal:      b.Subtotal,
		ExtraDiscount: b.ExtraDiscount,
		Total:         b.Total,
		PaymentMethod: method,
	}
}

// ExpenseRow flat view of an expense
type ExpenseRow struct {
	Date     string  `csv:"Date"`
	Category string  `csv:"Category"`
	Amount   float64 `csv:"Amount"`
	Notes    string  `csv:"Notes"`
}

var expenseRowHeader = []string{"Date", "Category", "Amount", "Notes"}

func (r *ExpenseRow) values() []interface{} {
	return []interface{}{r.Date, r.Category, r.Amount, r.Notes}
}

// RentalRow flat view of a rental; Ref is the short receipt reference
type RentalRow struct {
	Ref                string  `csv:"ID"`
	OrnamentName       string  `csv:"Ornament"`
	CustomerName       string  `csv:"Customer Name"`
	CustomerPhone      string  `csv:"Phone"`
	RentalPrice        float64 `csv:"Price"`
	AdvanceAmount      float64 `csv:"Advance"`
	ExtraDiscount      float64 `csv:"Extra Discount"`
	Status             string  `csv:"Status"`
	ExpectedReturnDate string  `csv:"Due Date"`
}

var rentalRowHeader = []string{
	"ID", "Ornament", "Customer Name", "Phone", "Price", "Advance", "Extra Discount", "Status", "Due Date",
}

func (r *RentalRow) values() []interface{} {
	return []interface{}{
		r.Ref, r.OrnamentName, r.CustomerName, r.CustomerPhone, r.RentalPrice,
		r.AdvanceAmount, r.ExtraDiscount, r.Status, r.ExpectedReturnDate,
	}
}

type exportRow interface {
	values() []interface{}
}

// ExportContentType MIME type of an export format
func ExportContentType(format string) string {
	if format == ExportXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// exportFormat normalizes format, csv when empty.
func exportFormat(format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportCSV
	}
	if format != ExportCSV && format != ExportXLSX {
		return "", invalidf("unsupported export format %q", format)
	}
	return format, nil
}

func writeExport[R exportRow](format string, header []string, rows []R, w io.Writer) error {
	if format == ExportCSV {
		return errors.Wrap(gocsv.Marshal(rows, w), "write csv")
	}
	return writeXLSX(header, rows, w)
}

// ExportBills writes every bill, newest first, to w as csv or xlsx.
func (s *BillingService) ExportBills(ctx context.Context, format string, w io.Writer) error {
	format, err := exportFormat(format)
	if err != nil {
		return err
	}
	bills, err := s.bills.List(ctx)
	if err != nil {
		return err
	}
	rows := make([]*BillRow, 0, len(bills))
	for _, b := range bills {
		r := toBillRow(b)
		rows = append(rows, &r)
	}
	return writeExport(format, billRowHeader, rows, w)
}

// ExportExpenses writes every expense, newest first.
func (s *ReportService) ExportExpenses(ctx context.Context, format string, w io.Writer) error {
	format, err := exportFormat(format)
	if err != nil {
		return err
	}
	list, err := s.expenses.List(ctx)
	if err != nil {
		return err
	}
	rows := make([]*ExpenseRow, 0, len(list))
	for _, e := range list {
		rows = append(rows, &ExpenseRow{Date: e.Date, Category: string(e.Category), Amount: e.Amount, Notes: e.Notes})
	}
	return writeExport(format, expenseRowHeader, rows, w)
}

// ExportRentals writes rentals, newest first. A non-empty status keeps only
// rentals in that state.
func (s *ReportService) ExportRentals(ctx context.Context, format, status string, w io.Writer) error {
	format, err := exportFormat(format)
	if err != nil {
		return err
	}
	var want domain.RentalStatus
	switch {
	case status == "":
	case strings.EqualFold(status, string(domain.RentalStatusRented)):
		want = domain.RentalStatusRented
	case strings.EqualFold(status, string(domain.RentalStatusReturned)):
		want = domain.RentalStatusReturned
	default:
		return invalidf("unknown rental status %q", status)
	}
	list, err := s.rentals.List(ctx)
	if err != nil {
		return err
	}
	rows := make([]*RentalRow, 0, len(list))
	for _, r := range list {
		if want != "" && r.Status != want {
			continue
		}
		rows = append(rows, &RentalRow{
			Ref:                RentalRef(r.ID),
			OrnamentName:       r.OrnamentName,
			CustomerName:       r.CustomerName,
			CustomerPhone:      r.CustomerPhone,
			RentalPrice:        r.RentalPrice,
			AdvanceAmount:      r.AdvanceAmount,
			ExtraDiscount:      r.ExtraDiscount,
			Status:             string(r.Status),
			ExpectedReturnDate: r.ExpectedReturnDate,
		})
	}
	return writeExport(format, rentalRowHeader, rows, w)
}

func writeXLSX[R exportRow](header []string, rows []R, w io.Writer) error {
	f := excelize.NewFile()
	for i, h := range header {
		f.SetCellValue(exportSheet, cell(i, 1), h)
	}
	for n, r := range rows {
		for i, v := range r.values() {
			f.SetCellValue(exportSheet, cell(i, n+2), v)
		}
	}
	return errors.Wrap(f.Write(w), "write xlsx")
}

// cell axis for a zero based column below 26
func cell(col, row int) string {
	return fmt.Sprintf("%c%d", 'A'+col, row)
}
