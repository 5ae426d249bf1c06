package repository

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// MemoryStore in-memory хранилище документов с оптимистичными транзакциями
type MemoryStore struct {
	mu          sync.RWMutex
	seq         uint64
	colls       map[string]*memCollection
	maxAttempts int
}

type memCollection struct {
	docs map[string]memDoc
	// version changes whenever a document is added or removed
	version uint64
}

type memDoc struct {
	data    []byte
	version uint64
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithMaxTxAttempts bounds commit attempts per transaction.
func WithMaxTxAttempts(n int) MemoryOption {
	return func(m *MemoryStore) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		colls:       make(map[string]*memCollection, len(Collections)),
		maxAttempts: DefaultMaxTxAttempts,
	}
	for _, c := range Collections {
		m.colls[c] = &memCollection{docs: make(map[string]memDoc)}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ensure interfaces
var _ DocumentStore = (*MemoryStore)(nil)

func (m *MemoryStore) collection(coll string) (*memCollection, error) {
	c, ok := m.colls[coll]
	if !ok {
		return nil, validCollection(coll)
	}
	return c, nil
}

func (m *MemoryStore) Get(ctx context.Context, coll, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, err := m.collection(coll)
	if err != nil {
		return nil, err
	}
	d, ok := c.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(d.data), nil
}

func (m *MemoryStore) All(ctx context.Context, coll string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, err := m.collection(coll)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(c.docs))
	for id, d := range c.docs {
		out = append(out, Record{ID: id, Data: clone(d.data)})
	}
	return out, nil
}

func (m *MemoryStore) Put(ctx context.Context, coll, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.collection(coll)
	if err != nil {
		return err
	}
	m.apply(c, memWrite{coll: coll, id: id, data: data})
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, coll, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.collection(coll)
	if err != nil {
		return err
	}
	if _, ok := c.docs[id]; !ok {
		return ErrNotFound
	}
	m.apply(c, memWrite{coll: coll, id: id, del: true})
	return nil
}

func (m *MemoryStore) Count(ctx context.Context, coll string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, err := m.collection(coll)
	if err != nil {
		return 0, err
	}
	return len(c.docs), nil
}

func (m *MemoryStore) Close() error { return nil }

// RunTransaction executes fn against a snapshot-validated transaction. Writes are
// buffered and applied at commit only if nothing fn read has changed since; on
// conflict fn is retried up to maxAttempts times.
func (m *MemoryStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		mt := &memTx{store: m, docReads: map[docKey]uint64{}, collReads: map[string]uint64{}}
		if err := fn(&phasedTx{ops: mt}); err != nil {
			return err
		}
		if m.commit(mt) {
			return nil
		}
		if attempt >= m.maxAttempts {
			return errors.Wrapf(ErrTxConflict, "gave up after %d attempts", attempt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Millisecond):
		}
	}
}

func (m *MemoryStore) commit(mt *memTx) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range mt.docReads {
		var cur uint64
		if d, ok := m.colls[k.coll].docs[k.id]; ok {
			cur = d.version
		}
		if cur != v {
			return false
		}
	}
	for coll, v := range mt.collReads {
		if m.colls[coll].version != v {
			return false
		}
	}
	for _, w := range mt.writes {
		m.apply(m.colls[w.coll], w)
	}
	return true
}

// apply must be called with the write lock held
func (m *MemoryStore) apply(c *memCollection, w memWrite) {
	m.seq++
	if w.del {
		delete(c.docs, w.id)
		c.version = m.seq
		return
	}
	if _, ok := c.docs[w.id]; !ok {
		c.version = m.seq
	}
	c.docs[w.id] = memDoc{data: clone(w.data), version: m.seq}
}

type docKey struct{ coll, id string }

type memWrite struct {
	coll, id string
	data     []byte
	del      bool
}

type memTx struct {
	store     *MemoryStore
	docReads  map[docKey]uint64
	collReads map[string]uint64
	writes    []memWrite
}

func (t *memTx) get(coll, id string) ([]byte, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	c, err := t.store.collection(coll)
	if err != nil {
		return nil, err
	}
	d, ok := c.docs[id]
	// a missing document is recorded as version 0 so a concurrent insert conflicts
	t.docReads[docKey{coll, id}] = d.version
	if !ok {
		return nil, ErrNotFound
	}
	return clone(d.data), nil
}

func (t *memTx) count(coll string) (int, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	c, err := t.store.collection(coll)
	if err != nil {
		return 0, err
	}
	t.collReads[coll] = c.version
	return len(c.docs), nil
}

func (t *memTx) put(coll, id string, data []byte) error {
	if err := validCollection(coll); err != nil {
		return err
	}
	t.writes = append(t.writes, memWrite{coll: coll, id: id, data: clone(data)})
	return nil
}

func (t *memTx) del(coll, id string) error {
	if err := validCollection(coll); err != nil {
		return err
	}
	t.writes = append(t.writes, memWrite{coll: coll, id: id, del: true})
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}
