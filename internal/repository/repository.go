package repository

import (
	"context"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound возвращается, когда документ не найден
	ErrNotFound = errors.New("not found")
	// ErrTxConflict transaction kept losing to concurrent writers and gave up
	ErrTxConflict = errors.New("transaction conflict: too many concurrent modifications")
	// ErrReadAfterWrite a transaction read was issued after its first write
	ErrReadAfterWrite = errors.New("transaction read after write")
)

// Collection names
const (
	Products = "products"
	Rentals  = "rentals"
	Bills    = "bills"
	Expenses = "expenses"
	Counters = "counters"
)

// Collections every backend provisions up front.
var Collections = []string{Products, Rentals, Bills, Expenses, Counters}

// DefaultMaxTxAttempts commit attempts before a conflicting transaction gives up
const DefaultMaxTxAttempts = 5

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Record a raw document with its key
type Record struct {
	ID   string
	Data []byte
}

// TxReader read phase of a transaction
type TxReader interface {
	Get(coll, id string) ([]byte, error)
	Count(coll string) (int, error)
}

// TxWriter write phase of a transaction
type TxWriter interface {
	Put(coll, id string, data []byte) error
	Delete(coll, id string) error
}

// Tx single-shot transaction handle. All reads must precede all writes.
type Tx interface {
	TxReader
	TxWriter
}

// DocumentStore schemaless per-collection document database
type DocumentStore interface {
	Get(ctx context.Context, coll, id string) ([]byte, error)
	All(ctx context.Context, coll string) ([]Record, error)
	Put(ctx context.Context, coll, id string, data []byte) error
	Delete(ctx context.Context, coll, id string) error
	Count(ctx context.Context, coll string) (int, error)
	// RunTransaction may invoke fn several times when the backend retries on
	// conflict, so fn must not have side effects outside tx.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// WithTransaction runs read and then write inside one store transaction. The
// phases only see the half of the transaction they are allowed to use.
func WithTransaction(ctx context.Context, s DocumentStore, read func(r TxReader) error, write func(w TxWriter) error) error {
	return s.RunTransaction(ctx, func(tx Tx) error {
		if err := read(tx); err != nil {
			return err
		}
		return write(tx)
	})
}

// TxGet decodes document id of coll read through r.
func TxGet[T any](r TxReader, coll, id string) (*T, error) {
	raw, err := r.Get(coll, id)
	if err != nil {
		return nil, err
	}
	var v T
	if err := codec.Unmarshal(raw, &v); err != nil {
		return nil, errors.Wrapf(err, "decode %s/%s", coll, id)
	}
	return &v, nil
}

// TxPut encodes v and writes it as document id of coll.
func TxPut(w TxWriter, coll, id string, v any) error {
	raw, err := codec.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s/%s", coll, id)
	}
	return w.Put(coll, id, raw)
}

// txOps backend transaction primitives wrapped by phasedTx
type txOps interface {
	get(coll, id string) ([]byte, error)
	count(coll string) (int, error)
	put(coll, id string, data []byte) error
	del(coll, id string) error
}

// phasedTx enforces read-then-write ordering on top of a backend transaction
type phasedTx struct {
	ops     txOps
	writing bool
}

func (p *phasedTx) Get(coll, id string) ([]byte, error) {
	if p.writing {
		return nil, ErrReadAfterWrite
	}
	return p.ops.get(coll, id)
}

func (p *phasedTx) Count(coll string) (int, error) {
	if p.writing {
		return 0, ErrReadAfterWrite
	}
	return p.ops.count(coll)
}

func (p *phasedTx) Put(coll, id string, data []byte) error {
	p.writing = true
	return p.ops.put(coll, id, data)
}

func (p *phasedTx) Delete(coll, id string) error {
	p.writing = true
	return p.ops.del(coll, id)
}

func validCollection(coll string) error {
	for _, c := range Collections {
		if c == coll {
			return nil
		}
	}
	return errors.Errorf("unknown collection %q", coll)
}
