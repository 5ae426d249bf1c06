package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"eyeluxe/internal/config"
	httpapi "eyeluxe/internal/http"
	"eyeluxe/internal/repository"
	"eyeluxe/internal/service"
)

type Application struct {
	appConfig *config.AppConfig
	store     repository.DocumentStore
	bus       EventBus.Bus
	services  httpapi.Services
	server    *httpapi.Server
	sched     *cron.Cron
}

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) Store() repository.DocumentStore {
	return a.store
}

func (a *Application) Server() *httpapi.Server {
	return a.server
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

// Init opens the configured store and wires services, the HTTP server and the
// background jobs. Any failure is returned; there is no fallback store.
func (a *Application) Init() error {
	cfg := a.appConfig
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		return errors.Wrap(err, "timezone config error")
	}

	a.store, err = openStore(cfg)
	if err != nil {
		return err
	}
	zap.S().Infof("Document store ready, type: %s", cfg.Database.Type)

	a.bus = EventBus.New()
	notifier := service.NewLowStockNotifier(cfg.Reports.LowStockThreshold, zap.L())
	if err := notifier.Subscribe(a.bus); err != nil {
		return errors.Wrap(err, "subscribe low stock notifier")
	}

	products := repository.NewProducts(a.store)
	rentals := repository.NewRentals(a.store)
	bills := repository.NewBills(a.store)
	expenses := repository.NewExpenses(a.store)
	a.services = httpapi.Services{
		Products: service.NewProductService(products),
		Rentals:  service.NewRentalService(rentals),
		Expenses: service.NewExpenseService(expenses),
		Billing:  service.NewBillingService(a.store, bills, a.bus),
		Reports: service.NewReportService(products, rentals, bills, expenses, service.ReportOptions{
			WeekStart:    cfg.Reports.WeekStartDay(),
			ExpiryWindow: time.Duration(cfg.Reports.ExpiryWindowDays) * 24 * time.Hour,
			Location:     loc,
		}),
	}
	a.server = httpapi.NewServer(a.services, cfg.Web.CORSOrigins)

	return a.initJob(loc)
}

func openStore(cfg *config.AppConfig) (repository.DocumentStore, error) {
	switch cfg.Database.Type {
	case config.StoreMemory:
		zap.S().Warn("memory store selected, data is lost on exit")
		return repository.NewMemoryStore(repository.WithMaxTxAttempts(cfg.Database.MaxTxAttempts)), nil
	case config.StoreBolt:
		path := cfg.BoltPath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "create database dir")
		}
		return repository.OpenBolt(path)
	case config.StorePostgres:
		return repository.OpenPostgres(cfg.Database.DSN(), cfg.Database.MaxTxAttempts)
	default:
		return nil, errors.Errorf("unknown database type %q", cfg.Database.Type)
	}
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.bus != nil {
		a.bus.WaitAsync()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			zap.S().Errorf("close store: %v", err)
		}
	}
	_ = zap.L().Sync()
}
