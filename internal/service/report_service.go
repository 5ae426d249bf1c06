package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"eyeluxe/internal/domain"
	"eyeluxe/internal/repository"
)

// ReportOptions tunables of the reporting service
type ReportOptions struct {
	// WeekStart first day of the sales week
	WeekStart time.Weekday
	// ExpiryWindow products expiring before now+ExpiryWindow raise an alert,
	// already expired ones included
	ExpiryWindow time.Duration
	// Location calendar used for day, week, month and year boundaries
	Location *time.Location
}

// DefaultReportOptions Sunday weeks, 30 day expiry window, local time
func DefaultReportOptions() ReportOptions {
	return ReportOptions{
		WeekStart:    time.Sunday,
		ExpiryWindow: 30 * 24 * time.Hour,
		Location:     time.Local,
	}
}

// ReportService read-only aggregation over every collection. Each call rescans
// the collections; nothing is cached.
type ReportService struct {
	products repository.ProductRepository
	rentals  repository.RentalRepository
	bills    repository.BillRepository
	expenses repository.ExpenseRepository
	opts     ReportOptions
	now      func() time.Time
}

func NewReportService(products repository.ProductRepository, rentals repository.RentalRepository,
	bills repository.BillRepository, expenses repository.ExpenseRepository, opts ReportOptions) *ReportService {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.ExpiryWindow <= 0 {
		opts.ExpiryWindow = DefaultReportOptions().ExpiryWindow
	}
	return &ReportService{
		products: products,
		rentals:  rentals,
		bills:    bills,
		expenses: expenses,
		opts:     opts,
		now:      time.Now,
	}
}

// PaymentSplit sums by payment method
type PaymentSplit struct {
	Cash float64 `json:"cash"`
	UPI  float64 `json:"upi"`
}

// BucketBills bills falling in each time bucket
type BucketBills struct {
	Today []domain.Bill `json:"today"`
	Week  []domain.Bill `json:"week"`
	Month []domain.Bill `json:"month"`
	Year  []domain.Bill `json:"year"`
}

// PaymentBreakdown payment split per time bucket
type PaymentBreakdown struct {
	Today PaymentSplit `json:"today"`
	Week  PaymentSplit `json:"week"`
	Month PaymentSplit `json:"month"`
	Year  PaymentSplit `json:"year"`
}

// Dashboard headline numbers of the shop
type Dashboard struct {
	TotalStockValue  float64          `json:"totalStockValue"`
	TodaySales       float64          `json:"todaySales"`
	WeekSales        float64          `json:"weekSales"`
	MonthSales       float64          `json:"monthSales"`
	YearSales        float64          `json:"yearSales"`
	TotalExpenses    float64          `json:"totalExpenses"`
	PendingReturns   int              `json:"pendingReturns"`
	ExpiringAlerts   int              `json:"expiringAlerts"`
	RecentBills      []domain.Bill    `json:"recentBills"`
	AllBills         BucketBills      `json:"allBills"`
	PaymentBreakdown PaymentBreakdown `json:"paymentBreakdown"`
	Today            string           `json:"today"`
}

// Buckets start instants of the dashboard time windows
type Buckets struct {
	Today, Week, Month, Year time.Time
}

// BucketStarts computes the window starts for now in loc.
func BucketStarts(now time.Time, loc *time.Location, weekStart time.Weekday) Buckets {
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	back := (int(today.Weekday()) - int(weekStart) + 7) % 7
	return Buckets{
		Today: today,
		Week:  today.AddDate(0, 0, -back),
		Month: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc),
		Year:  time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc),
	}
}

func within(t, start, now time.Time) bool {
	return !t.Before(start) && !t.After(now)
}

func isUPI(method string) bool {
	return strings.EqualFold(strings.TrimSpace(method), "UPI")
}

func (p *PaymentSplit) add(b domain.Bill) {
	if isUPI(b.PaymentMethod) {
		p.UPI += b.Total
		return
	}
	p.Cash += b.Total
}

type snapshot struct {
	products []domain.Product
	rentals  []domain.Rental
	bills    []domain.Bill
	expenses []domain.Expense
}

func (s *ReportService) load(ctx context.Context, withRentals bool) (*snapshot, error) {
	var snap snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { snap.products, err = s.products.List(ctx); return })
	g.Go(func() (err error) { snap.bills, err = s.bills.List(ctx); return })
	g.Go(func() (err error) { snap.expenses, err = s.expenses.List(ctx); return })
	if withRentals {
		g.Go(func() (err error) { snap.rentals, err = s.rentals.List(ctx); return })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Dashboard recomputes the dashboard from every document in the store.
func (s *ReportService) Dashboard(ctx context.Context) (*Dashboard, error) {
	snap, err := s.load(ctx, true)
	if err != nil {
		return nil, err
	}
	return s.buildDashboard(snap, s.now()), nil
}

func (s *ReportService) buildDashboard(snap *snapshot, now time.Time) *Dashboard {
	loc := s.opts.Location
	d := &Dashboard{
		RecentBills: []domain.Bill{},
		AllBills: BucketBills{
			Today: []domain.Bill{}, Week: []domain.Bill{}, Month: []domain.Bill{}, Year: []domain.Bill{},
		},
	}

	for _, p := range snap.products {
		d.TotalStockValue += p.PurchasePrice * float64(p.Stock)
	}

	b := BucketStarts(now, loc, s.opts.WeekStart)
	d.Today = b.Today.UTC().Format(domain.TimestampLayout)
	// bills arrive newest first, so bucket lists keep that order
	for _, bill := range snap.bills {
		at, ok := domain.ParseDate(bill.Date, loc)
		if !ok {
			continue
		}
		if within(at, b.Year, now) {
			d.YearSales += bill.Total
			d.AllBills.Year = append(d.AllBills.Year, bill)
			d.PaymentBreakdown.Year.add(bill)
		}
		if within(at, b.Month, now) {
			d.MonthSales += bill.Total
			d.AllBills.Month = append(d.AllBills.Month, bill)
			d.PaymentBreakdown.Month.add(bill)
		}
		if within(at, b.Week, now) {
			d.WeekSales += bill.Total
			d.AllBills.Week = append(d.AllBills.Week, bill)
			d.PaymentBreakdown.Week.add(bill)
		}
		if within(at, b.Today, now) {
			d.TodaySales += bill.Total
			d.AllBills.Today = append(d.AllBills.Today, bill)
			d.PaymentBreakdown.Today.add(bill)
		}
	}

	for _, e := range snap.expenses {
		d.TotalExpenses += e.Amount
	}
	for _, r := range snap.rentals {
		if r.Status == domain.RentalStatusRented {
			d.PendingReturns++
		}
	}

	threshold := now.Add(s.opts.ExpiryWindow)
	for _, p := range snap.products {
		if exp, ok := domain.ParseDate(p.ExpiryDate, loc); ok && exp.Before(threshold) {
			d.ExpiringAlerts++
		}
	}

	recent := snap.bills
	if len(recent) > 5 {
		recent = recent[:5]
	}
	d.RecentBills = append(d.RecentBills, recent...)
	return d
}

// ChartPoint one day of a chart series
type ChartPoint struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// AnalyticsSummary aggregate figures over the chart series
type AnalyticsSummary struct {
	TotalSales        float64 `json:"totalSales"`
	TotalExpenses     float64 `json:"totalExpenses"`
	AverageDailySales float64 `json:"averageDailySales"`
	MedianDailySales  float64 `json:"medianDailySales"`
	BestDay           string  `json:"bestDay,omitempty"`
}

// Analytics per-day chart series
type Analytics struct {
	SalesChart    []ChartPoint     `json:"salesChart"`
	ExpensesChart []ChartPoint     `json:"expensesChart"`
	Summary       AnalyticsSummary `json:"summary"`
}

// Analytics groups bill totals and expense amounts by calendar day, ascending.
func (s *ReportService) Analytics(ctx context.Context) (*Analytics, error) {
	snap, err := s.load(ctx, false)
	if err != nil {
		return nil, err
	}
	return buildAnalytics(snap), nil
}

func buildAnalytics(snap *snapshot) *Analytics {
	sales := make(map[string]float64)
	for _, b := range snap.bills {
		if k := domain.DayKey(b.Date); k != "" {
			sales[k] += b.Total
		}
	}
	expenses := make(map[string]float64)
	for _, e := range snap.expenses {
		if k := domain.DayKey(e.Date); k != "" {
			expenses[k] += e.Amount
		}
	}

	a := &Analytics{SalesChart: chart(sales), ExpensesChart: chart(expenses)}

	daily := make([]float64, 0, len(a.SalesChart))
	best := ChartPoint{}
	for _, p := range a.SalesChart {
		daily = append(daily, p.Amount)
		if p.Amount > best.Amount {
			best = p
		}
	}
	a.Summary.TotalSales, _ = stats.Sum(daily)
	a.Summary.BestDay = best.Date
	if len(daily) > 0 {
		a.Summary.AverageDailySales, _ = stats.Mean(daily)
		a.Summary.MedianDailySales, _ = stats.Median(daily)
	}
	for _, p := range a.ExpensesChart {
		a.Summary.TotalExpenses += p.Amount
	}
	return a
}

func chart(byDay map[string]float64) []ChartPoint {
	out := make([]ChartPoint, 0, len(byDay))
	for d, v := range byDay {
		out = append(out, ChartPoint{Date: d, Amount: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Alerts items needing attention
type Alerts struct {
	OverdueRentals   []domain.Rental  `json:"overdueRentals"`
	ExpiringProducts []domain.Product `json:"expiringProducts"`
}

// Alerts lists rentals still out past their expected return day and products
// expiring within the expiry window.
func (s *ReportService) Alerts(ctx context.Context) (*Alerts, error) {
	snap, err := s.load(ctx, true)
	if err != nil {
		return nil, err
	}
	now := s.now()
	loc := s.opts.Location
	today := BucketStarts(now, loc, s.opts.WeekStart).Today
	out := &Alerts{OverdueRentals: []domain.Rental{}, ExpiringProducts: []domain.Product{}}
	for _, r := range snap.rentals {
		if r.Status != domain.RentalStatusRented {
			continue
		}
		if due, ok := domain.ParseDate(r.ExpectedReturnDate, loc); ok && due.Before(today) {
			out.OverdueRentals = append(out.OverdueRentals, r)
		}
	}
	threshold := now.Add(s.opts.ExpiryWindow)
	for _, p := range snap.products {
		if exp, ok := domain.ParseDate(p.ExpiryDate, loc); ok && exp.Before(threshold) {
			out.ExpiringProducts = append(out.ExpiringProducts, p)
		}
	}
	return out, nil
}
