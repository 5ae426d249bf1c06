package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"

	"eyeluxe/internal/domain"
	"eyeluxe/internal/repository"
)

type reportFixture struct {
	store    *repository.MemoryStore
	products *repository.Collection[domain.Product]
	rentals  *repository.Collection[domain.Rental]
	bills    *repository.Collection[domain.Bill]
	expenses *repository.Collection[domain.Expense]
	reports  *ReportService
}

// Wednesday 2024-05-15 18:00 UTC
var reportNow = time.Date(2024, 5, 15, 18, 0, 0, 0, time.UTC)

func setupReports(t *testing.T) *reportFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	f := &reportFixture{
		store:    store,
		products: repository.NewProducts(store),
		rentals:  repository.NewRentals(store),
		bills:    repository.NewBills(store),
		expenses: repository.NewExpenses(store),
	}
	opts := DefaultReportOptions()
	opts.Location = time.UTC
	f.reports = NewReportService(f.products, f.rentals, f.bills, f.expenses, opts)
	f.reports.now = func() time.Time { return reportNow }
	return f
}

func (f *reportFixture) bill(t *testing.T, date string, total float64, method string) {
	t.Helper()
	b := domain.Bill{InvoiceNo: "INV", CustomerName: "C", Date: date, Total: total, Subtotal: total, PaymentMethod: method}
	if err := f.bills.Create(context.Background(), &b); err != nil {
		t.Fatalf("create bill: %v", err)
	}
}

func TestBucketStarts(t *testing.T) {
	b := BucketStarts(reportNow, time.UTC, time.Sunday)
	if !b.Today.Equal(time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("today: %v", b.Today)
	}
	if !b.Week.Equal(time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("week: %v", b.Week)
	}
	if !b.Month.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("month: %v", b.Month)
	}
	if !b.Year.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("year: %v", b.Year)
	}
	if mon := BucketStarts(reportNow, time.UTC, time.Monday); !mon.Week.Equal(time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("monday week: %v", mon.Week)
	}
}

func TestDashboard_Buckets(t *testing.T) {
	ctx := context.Background()
	f := setupReports(t)
	f.bill(t, "2024-05-15T09:00:00.000Z", 100, "UPI")
	f.bill(t, "2024-05-13T09:00:00.000Z", 50, "CASH")
	f.bill(t, "2024-05-02T09:00:00.000Z", 20, "upi")
	f.bill(t, "2024-02-02T09:00:00.000Z", 10, "")
	f.bill(t, "2023-12-31T09:00:00.000Z", 1000, "CASH")
	f.bill(t, "2024-05-15T20:00:00.000Z", 7, "CASH") // later than now

	d, err := f.reports.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.TodaySales != 100 || d.WeekSales != 150 || d.MonthSales != 170 || d.YearSales != 180 {
		t.Fatalf("unexpected sales: %v %v %v %v", d.TodaySales, d.WeekSales, d.MonthSales, d.YearSales)
	}
	if len(d.AllBills.Today) != 1 || len(d.AllBills.Week) != 2 || len(d.AllBills.Month) != 3 || len(d.AllBills.Year) != 4 {
		t.Fatalf("unexpected bucket sizes")
	}
	if d.PaymentBreakdown.Month.UPI != 120 || d.PaymentBreakdown.Month.Cash != 50 {
		t.Fatalf("unexpected month split: %+v", d.PaymentBreakdown.Month)
	}
	if d.PaymentBreakdown.Year.Cash != 60 {
		t.Fatalf("unknown method must count as cash: %+v", d.PaymentBreakdown.Year)
	}
	if len(d.RecentBills) != 5 || d.RecentBills[0].Total != 7 {
		t.Fatalf("unexpected recent bills: %+v", d.RecentBills)
	}
	if d.Today != "2024-05-15T00:00:00.000Z" {
		t.Fatalf("unexpected today %q", d.Today)
	}
}

func TestDashboard_BucketsNest(t *testing.T) {
	ctx := context.Background()
	f := setupReports(t)
	for at := time.Date(2023, 12, 20, 1, 0, 0, 0, time.UTC); at.Before(reportNow.Add(48 * time.Hour)); at = at.Add(13 * time.Hour) {
		f.bill(t, domain.Timestamp(at), 1, "")
	}

	d, err := f.reports.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	ids := func(bills []domain.Bill) map[string]bool {
		out := make(map[string]bool, len(bills))
		for _, b := range bills {
			out[b.ID] = true
		}
		return out
	}
	chain := [][]domain.Bill{d.AllBills.Today, d.AllBills.Week, d.AllBills.Month, d.AllBills.Year}
	names := []string{"today", "week", "month", "year"}
	for i := 0; i+1 < len(chain); i++ {
		outer := ids(chain[i+1])
		for _, b := range chain[i] {
			if !outer[b.ID] {
				t.Fatalf("%s bill %s (%s) missing from %s", names[i], b.ID, b.Date, names[i+1])
			}
		}
		if len(chain[i]) > len(chain[i+1]) {
			t.Fatalf("%s larger than %s", names[i], names[i+1])
		}
	}
	if len(d.AllBills.Today) == 0 || float64(len(d.AllBills.Year)) != d.YearSales {
		t.Fatalf("unexpected buckets: today %d year %d sales %v", len(d.AllBills.Today), len(d.AllBills.Year), d.YearSales)
	}
}

func TestDashboard_StockRentalsExpenses(t *testing.T) {
	ctx := context.Background()
	f := setupReports(t)
	for _, p := range []domain.Product{
		{Name: "A", PurchasePrice: 10, Stock: 3, ExpiryDate: "2024-05-20"},
		{Name: "B", PurchasePrice: 2.5, Stock: 4, ExpiryDate: "2024-01-01"},
		{Name: "C", PurchasePrice: 100, Stock: 0, ExpiryDate: "2025-01-01"},
		{Name: "D", PurchasePrice: 1, Stock: 1},
	} {
		p := p
		_ = f.products.Create(ctx, &p)
	}
	for _, r := range []domain.Rental{
		{OrnamentName: "R1", Status: domain.RentalStatusRented},
		{OrnamentName: "R2", Status: domain.RentalStatusReturned},
		{OrnamentName: "R3", Status: domain.RentalStatusRented},
	} {
		r := r
		_ = f.rentals.Create(ctx, &r)
	}
	for _, e := range []domain.Expense{{Category: domain.ExpenseRent, Amount: 300}, {Category: domain.ExpenseOthers, Amount: 45.5}} {
		e := e
		_ = f.expenses.Create(ctx, &e)
	}

	d, err := f.reports.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.TotalStockValue != 41 {
		t.Fatalf("expected stock value 41, got %v", d.TotalStockValue)
	}
	if d.PendingReturns != 2 {
		t.Fatalf("expected 2 pending returns, got %d", d.PendingReturns)
	}
	if d.ExpiringAlerts != 2 {
		t.Fatalf("expected 2 expiring alerts, got %d", d.ExpiringAlerts)
	}
	if d.TotalExpenses != 345.5 {
		t.Fatalf("expected expenses 345.5, got %v", d.TotalExpenses)
	}
}

func TestDashboard_Empty(t *testing.T) {
	d, err := setupReports(t).reports.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.RecentBills == nil || d.AllBills.Today == nil || d.TodaySales != 0 {
		t.Fatalf("expected zeroed dashboard with empty lists: %+v", d)
	}
}

func TestAnalytics_GroupsByDay(t *testing.T) {
	ctx := context.Background()
	f := setupReports(t)
	f.bill(t, "2024-01-02T11:00:00.000Z", 20, "")
	f.bill(t, "2024-01-01T10:00:00.000Z", 50, "")
	f.bill(t, "2024-01-01T15:30:00.000Z", 30, "")
	e := domain.Expense{Category: domain.ExpenseRent, Amount: 40, Date: "2024-01-02T08:00:00.000Z"}
	_ = f.expenses.Create(ctx, &e)

	a, err := f.reports.Analytics(ctx)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if len(a.SalesChart) != 2 {
		t.Fatalf("expected 2 days, got %+v", a.SalesChart)
	}
	if a.SalesChart[0] != (ChartPoint{Date: "2024-01-01", Amount: 80}) {
		t.Fatalf("unexpected first day: %+v", a.SalesChart[0])
	}
	if a.SalesChart[1] != (ChartPoint{Date: "2024-01-02", Amount: 20}) {
		t.Fatalf("unexpected second day: %+v", a.SalesChart[1])
	}
	if len(a.ExpensesChart) != 1 || a.ExpensesChart[0].Amount != 40 {
		t.Fatalf("unexpected expenses chart: %+v", a.ExpensesChart)
	}
	s := a.Summary
	if s.TotalSales != 100 || s.AverageDailySales != 50 || s.MedianDailySales != 50 || s.BestDay != "2024-01-01" || s.TotalExpenses != 40 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestAnalytics_ExpensesSameDay(t *testing.T) {
	ctx := context.Background()
	f := setupReports(t)
	for _, amount := range []float64{50, 30} {
		e := domain.Expense{Category: domain.ExpenseOthers, Amount: amount, Date: "2024-01-01"}
		if err := f.expenses.Create(ctx, &e); err != nil {
			t.Fatalf("create expense: %v", err)
		}
	}

	a, err := f.reports.Analytics(ctx)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if len(a.ExpensesChart) != 1 || a.ExpensesChart[0] != (ChartPoint{Date: "2024-01-01", Amount: 80}) {
		t.Fatalf("expected one 2024-01-01 entry of 80, got %+v", a.ExpensesChart)
	}
	if len(a.SalesChart) != 0 {
		t.Fatalf("expected no sales, got %+v", a.SalesChart)
	}
}

func TestExportBills(t *testing.T) {
	ctx := context.Background()
	f := setupReports(t)
	f.bill(t, "2024-05-15T09:00:00.000Z", 100, "upi")
	billing := NewBillingService(f.store, f.bills, nil)

	var csv bytes.Buffer
	if err := billing.ExportBills(ctx, "csv", &csv); err != nil {
		t.Fatalf("csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(csv.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "Invoice No,") || !strings.HasSuffix(lines[1], ",UPI") {
		t.Fatalf("unexpected csv: %q", csv.String())
	}

	var xlsx bytes.Buffer
	if err := billing.ExportBills(ctx, "XLSX", &xlsx); err != nil {
		t.Fatalf("xlsx: %v", err)
	}
	book, err := excelize.OpenReader(&xlsx)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	if got := book.GetCellValue(exportSheet, "A2"); got != "INV" {
		t.Fatalf("unexpected A2 %q", got)
	}

	if err := billing.ExportBills(ctx, "pdf", &bytes.Buffer{}); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestLowStockNotifier(t *testing.T) {
	n := NewLowStockNotifier(2, nil)
	low := n.Handle(BillCreated{
		Bill: domain.Bill{InvoiceNo: "INV-00001"},
		Stock: map[string]StockLevel{
			"b": {Name: "B", Stock: 2},
			"a": {Name: "A", Stock: 0},
			"c": {Name: "C", Stock: 9},
		},
	})
	if len(low) != 2 || low[0] != "a" || low[1] != "b" {
		t.Fatalf("unexpected low stock ids: %v", low)
	}
}

func TestAlerts(t *testing.T) {
	ctx := context.Background()
	f := setupReports(t)
	for _, r := range []domain.Rental{
		{OrnamentName: "late", Status: domain.RentalStatusRented, ExpectedReturnDate: "2024-05-14"},
		{OrnamentName: "due today", Status: domain.RentalStatusRented, ExpectedReturnDate: "2024-05-15"},
		{OrnamentName: "back", Status: domain.RentalStatusReturned, ExpectedReturnDate: "2024-05-01"},
	} {
		r := r
		_ = f.rentals.Create(ctx, &r)
	}
	p := domain.Product{Name: "Serum", Stock: 1, ExpiryDate: "2024-06-01"}
	_ = f.products.Create(ctx, &p)

	a, err := f.reports.Alerts(ctx)
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	if len(a.OverdueRentals) != 1 || a.OverdueRentals[0].OrnamentName != "late" {
		t.Fatalf("unexpected overdue: %+v", a.OverdueRentals)
	}
	if len(a.ExpiringProducts) != 1 {
		t.Fatalf("unexpected expiring: %+v", a.ExpiringProducts)
	}
}

func TestExportExpenses(t *testing.T) {
	ctx := context.Background()
	f := setupReports(t)
	e := domain.Expense{Category: domain.ExpenseRent, Amount: 5000, Date: "2024-01-02", Notes: "Jan, shop"}
	_ = f.expenses.Create(ctx, &e)

	var buf bytes.Buffer
	if err := f.reports.ExportExpenses(ctx, "", &buf); err != nil {
		t.Fatalf("csv: %v", err)
	}
	want := "Date,Category,Amount,Notes\n2024-01-02,Rent,5000,\"Jan, shop\"\n"
	if buf.String() != want {
		t.Fatalf("unexpected csv %q", buf.String())
	}

	var xlsx bytes.Buffer
	if err := f.reports.ExportExpenses(ctx, "xlsx", &xlsx); err != nil {
		t.Fatalf("xlsx: %v", err)
	}
	book, err := excelize.OpenReader(&xlsx)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	if book.GetCellValue(exportSheet, "B1") != "Category" || book.GetCellValue(exportSheet, "B2") != "Rent" {
		t.Fatalf("unexpected sheet")
	}
	if err := f.reports.ExportExpenses(ctx, "json", &bytes.Buffer{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestExportRentals_StatusFilter(t *testing.T) {
	ctx := context.Background()
	f := setupReports(t)
	for _, r := range []domain.Rental{
		{OrnamentName: "Choker", CustomerName: "Meera", StartDate: "2024-05-01", ExpectedReturnDate: "2024-05-04", RentalPrice: 300, Status: domain.RentalStatusRented},
		{OrnamentName: "Jhumka", CustomerName: "Asha", StartDate: "2024-04-01", ExpectedReturnDate: "2024-04-02", RentalPrice: 100, Status: domain.RentalStatusReturned},
	} {
		r := r
		if err := f.rentals.Create(ctx, &r); err != nil {
			t.Fatalf("create rental: %v", err)
		}
	}

	rows := func(status string) []string {
		t.Helper()
		var buf bytes.Buffer
		if err := f.reports.ExportRentals(ctx, "csv", status, &buf); err != nil {
			t.Fatalf("export %q: %v", status, err)
		}
		return strings.Split(strings.TrimSpace(buf.String()), "\n")
	}
	all := rows("")
	if len(all) != 3 || all[0] != "ID,Ornament,Customer Name,Phone,Price,Advance,Extra Discount,Status,Due Date" {
		t.Fatalf("unexpected export %q", all)
	}
	rented := rows("rented")
	if len(rented) != 2 || !strings.Contains(rented[1], ",Choker,Meera,") || !strings.HasSuffix(rented[1], ",Rented,2024-05-04") {
		t.Fatalf("unexpected rented export %q", rented)
	}
	if ref := strings.SplitN(rented[1], ",", 2)[0]; len(ref) != 6 || ref != strings.ToUpper(ref) {
		t.Fatalf("unexpected reference %q", ref)
	}
	if returned := rows("Returned"); len(returned) != 2 || !strings.Contains(returned[1], "Jhumka") {
		t.Fatalf("unexpected returned export %q", returned)
	}
	if err := f.reports.ExportRentals(ctx, "csv", "Lost", &bytes.Buffer{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
