package repository

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// BoltStore document store backed by a bbolt file, one bucket per collection.
// bbolt serialises writers, so transactions never conflict and are not retried.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (creating if needed) the database file at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open bolt database %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, c := range Collections {
			if _, err := tx.CreateBucketIfNotExists([]byte(c)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create buckets")
	}
	return &BoltStore{db: db}, nil
}

var _ DocumentStore = (*BoltStore)(nil)

func bucket(tx *bolt.Tx, coll string) (*bolt.Bucket, error) {
	b := tx.Bucket([]byte(coll))
	if b == nil {
		return nil, validCollection(coll)
	}
	return b, nil
}

func (s *BoltStore) Get(ctx context.Context, coll, id string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucket(tx, coll)
		if err != nil {
			return err
		}
		v := b.Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		// bolt memory is only valid inside the transaction
		out = clone(v)
		return nil
	})
	return out, err
}

func (s *BoltStore) All(ctx context.Context, coll string) ([]Record, error) {
	var out []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucket(tx, coll)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			out = append(out, Record{ID: string(k), Data: clone(v)})
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) Put(ctx context.Context, coll, id string, data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, coll)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), data)
	})
}

func (s *BoltStore) Delete(ctx context.Context, coll, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, coll)
		if err != nil {
			return err
		}
		if b.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(id))
	})
}

func (s *BoltStore) Count(ctx context.Context, coll string) (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucket(tx, coll)
		if err != nil {
			return err
		}
		n = countKeys(b)
		return nil
	})
	return n, err
}

func (s *BoltStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(btx *bolt.Tx) error {
		return fn(&phasedTx{ops: boltTx{tx: btx}})
	})
}

// Backup writes a consistent copy of the database file to w.
func (s *BoltStore) Backup(w io.Writer) (int64, error) {
	var n int64
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		n, err = tx.WriteTo(w)
		return err
	})
	return n, err
}

func (s *BoltStore) Close() error { return s.db.Close() }

// countKeys reads the key count from the bucket's pages. Pages only change on
// commit, so inside an update it must run before the first write, which the
// phased transaction guarantees.
func countKeys(b *bolt.Bucket) int {
	return b.Stats().KeyN
}

type boltTx struct{ tx *bolt.Tx }

func (t boltTx) get(coll, id string) ([]byte, error) {
	b, err := bucket(t.tx, coll)
	if err != nil {
		return nil, err
	}
	v := b.Get([]byte(id))
	if v == nil {
		return nil, ErrNotFound
	}
	return clone(v), nil
}

func (t boltTx) count(coll string) (int, error) {
	b, err := bucket(t.tx, coll)
	if err != nil {
		return 0, err
	}
	return countKeys(b), nil
}

func (t boltTx) put(coll, id string, data []byte) error {
	b, err := bucket(t.tx, coll)
	if err != nil {
		return err
	}
	return b.Put([]byte(id), data)
}

func (t boltTx) del(coll, id string) error {
	b, err := bucket(t.tx, coll)
	if err != nil {
		return err
	}
	return b.Delete([]byte(id))
}
