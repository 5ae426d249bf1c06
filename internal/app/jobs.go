package app

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"eyeluxe/internal/repository"
)

const jobTimeout = 2 * time.Minute

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob(loc *time.Location) error {
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))
	jobs := a.appConfig.Jobs

	if jobs.AlertCron != "" {
		if _, err := a.sched.AddFunc(jobs.AlertCron, a.SchedAlertSweepTask); err != nil {
			return errors.Wrapf(err, "init job alert_cron %q", jobs.AlertCron)
		}
	}
	if _, ok := a.store.(*repository.BoltStore); ok && jobs.BackupCron != "" {
		if _, err := a.sched.AddFunc(jobs.BackupCron, a.SchedBackupTask); err != nil {
			return errors.Wrapf(err, "init job backup_cron %q", jobs.BackupCron)
		}
	}

	a.sched.Start()
	return nil
}

// SchedAlertSweepTask logs overdue rentals and products close to expiry
func (a *Application) SchedAlertSweepTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	alerts, err := a.services.Reports.Alerts(ctx)
	if err != nil {
		zap.S().Errorf("alert sweep: %v", err)
		return
	}
	for _, r := range alerts.OverdueRentals {
		zap.L().Warn("rental overdue",
			zap.String("rental_id", r.ID),
			zap.String("ornament", r.OrnamentName),
			zap.String("customer", r.CustomerName),
			zap.String("expected_return", r.ExpectedReturnDate))
	}
	for _, p := range alerts.ExpiringProducts {
		zap.L().Warn("product expiring",
			zap.String("product_id", p.ID),
			zap.String("product", p.Name),
			zap.String("expiry_date", p.ExpiryDate),
			zap.Int64("stock", p.Stock))
	}
	zap.L().Info("alert sweep done",
		zap.Int("overdue_rentals", len(alerts.OverdueRentals)),
		zap.Int("expiring_products", len(alerts.ExpiringProducts)))
}

// SchedBackupTask snapshots the bolt database into the backup dir
func (a *Application) SchedBackupTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	path, err := a.Backup(time.Now())
	if err != nil {
		zap.S().Errorf("backup: %v", err)
		return
	}
	zap.S().Infof("backup written to %s", path)
}

// Backup writes backups/eyeluxe-<ts>.db under the workdir and returns its path.
// Only the bolt store supports it.
func (a *Application) Backup(at time.Time) (string, error) {
	bs, ok := a.store.(*repository.BoltStore)
	if !ok {
		return "", errors.New("backup is only supported by the bolt store")
	}
	dir := a.appConfig.BackupDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create backup dir")
	}
	path := filepath.Join(dir, "eyeluxe-"+at.Format("20060102-150405")+".db")
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "create backup file")
	}
	if _, err := bs.Backup(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	return path, f.Close()
}
