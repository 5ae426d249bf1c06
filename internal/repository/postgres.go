package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// documentRow one stored document; Version starts at 1 and grows on every replace
type documentRow struct {
	Collection string    `gorm:"primaryKey;size:64"`
	ID         string    `gorm:"primaryKey;size:64"`
	Data       string    `gorm:"type:jsonb;not null"`
	Version    int64     `gorm:"not null;default:1"`
	UpdatedAt  time.Time `gorm:"index"`
}

func (documentRow) TableName() string { return "documents" }

// PostgresStore document store on a single postgres table. Transactions run at
// SERIALIZABLE isolation and are retried on serialization failures.
type PostgresStore struct {
	db          *gorm.DB
	maxAttempts int
}

// OpenPostgres connects with dsn and migrates the documents table.
func OpenPostgres(dsn string, maxAttempts int) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, errors.Wrap(err, "migrate documents table")
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxTxAttempts
	}
	return &PostgresStore{db: db, maxAttempts: maxAttempts}, nil
}

var _ DocumentStore = (*PostgresStore)(nil)

func (s *PostgresStore) Get(ctx context.Context, coll, id string) ([]byte, error) {
	return pgGet(s.db.WithContext(ctx), coll, id)
}

func (s *PostgresStore) All(ctx context.Context, coll string) ([]Record, error) {
	if err := validCollection(coll); err != nil {
		return nil, err
	}
	var rows []documentRow
	if err := s.db.WithContext(ctx).Where("collection = ?", coll).Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "list %s", coll)
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, Record{ID: r.ID, Data: []byte(r.Data)})
	}
	return out, nil
}

func (s *PostgresStore) Put(ctx context.Context, coll, id string, data []byte) error {
	return pgPut(s.db.WithContext(ctx), coll, id, data)
}

func (s *PostgresStore) Delete(ctx context.Context, coll, id string) error {
	if err := validCollection(coll); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Where("collection = ? AND id = ?", coll, id).Delete(&documentRow{})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "delete %s/%s", coll, id)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context, coll string) (int, error) {
	return pgCount(s.db.WithContext(ctx), coll)
}

func (s *PostgresStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	for attempt := 1; ; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
			return fn(&phasedTx{ops: pgTx{db: gtx}})
		}, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err == nil || !isSerializationFailure(err) {
			return err
		}
		if attempt >= s.maxAttempts {
			return errors.Wrapf(ErrTxConflict, "gave up after %d attempts", attempt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 5 * time.Millisecond):
		}
	}
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	// 40001 serialization_failure, 40P01 deadlock_detected
	return errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01")
}

type pgTx struct{ db *gorm.DB }

func (t pgTx) get(coll, id string) ([]byte, error) { return pgGet(t.db, coll, id) }
func (t pgTx) count(coll string) (int, error) { return pgCount(t.db, coll) }
func (t pgTx) put(coll, id string, data []byte) error { return pgPut(t.db, coll, id, data) }
func (t pgTx) del(coll, id string) error {
	if err := validCollection(coll); err != nil {
		return err
	}
	return t.db.Where("collection = ? AND id = ?", coll, id).Delete(&documentRow{}).Error
}

func pgGet(db *gorm.DB, coll, id string) ([]byte, error) {
	if err := validCollection(coll); err != nil {
		return nil, err
	}
	var row documentRow
	err := db.Where("collection = ? AND id = ?", coll, id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get %s/%s", coll, id)
	}
	return []byte(row.Data), nil
}

func pgCount(db *gorm.DB, coll string) (int, error) {
	if err := validCollection(coll); err != nil {
		return 0, err
	}
	var n int64
	if err := db.Model(&documentRow{}).Where("collection = ?", coll).Count(&n).Error; err != nil {
		return 0, errors.Wrapf(err, "count %s", coll)
	}
	return int(n), nil
}

func pgPut(db *gorm.DB, coll, id string, data []byte) error {
	if err := validCollection(coll); err != nil {
		return err
	}
	row := documentRow{Collection: coll, ID: id, Data: string(data), Version: 1, UpdatedAt: time.Now().UTC()}
	updates := append(clause.AssignmentColumns([]string{"data", "updated_at"}),
		clause.Assignment{Column: clause.Column{Name: "version"}, Value: gorm.Expr("documents.version + 1")})
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: updates,
	}).Create(&row).Error
	return errors.Wrapf(err, "put %s/%s", coll, id)
}
