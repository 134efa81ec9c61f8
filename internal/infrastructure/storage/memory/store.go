// Package memory is an in-process implementation of every retailcore storage
// port. It backs the domain tests and the server's -memory mode.
//
// Units of work are serialized and rolled back by restoring a snapshot taken
// when the unit of work started.
package memory

import (
	"context"
	"sync"

	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
	"retailcore/internal/core/tx"
	"retailcore/internal/domain/imports"
	"retailcore/internal/domain/sales"
	"retailcore/internal/domain/stock"
)

// Store holds all data in memory.
type Store struct {
	txMu sync.Mutex // held for the whole of a unit of work
	mu   sync.RWMutex
	st   *state
}

type state struct {
	skus          map[id.ID]entity.SKU
	channels      map[id.ID]entity.Channel
	seasons       map[id.ID]entity.Season
	movementTypes map[string]entity.MovementType

	movements []entity.Movement
	keys      map[string]struct{}

	sales     map[id.ID]sales.Sale
	saleLines map[id.ID][]sales.Line

	params map[id.ID]stock.Parameter // by SKU

	batches     map[id.ID]imports.BatchLog
	batchErrors map[id.ID][]imports.BatchError
}

func newState() *state {
	return &state{
		skus:          make(map[id.ID]entity.SKU),
		channels:      make(map[id.ID]entity.Channel),
		seasons:       make(map[id.ID]entity.Season),
		movementTypes: make(map[string]entity.MovementType),
		keys:          make(map[string]struct{}),
		sales:         make(map[id.ID]sales.Sale),
		saleLines:     make(map[id.ID][]sales.Line),
		params:        make(map[id.ID]stock.Parameter),
		batches:       make(map[id.ID]imports.BatchLog),
		batchErrors:   make(map[id.ID][]imports.BatchError),
	}
}

func (s *state) clone() *state {
	c := newState()
	copyMap(c.skus, s.skus)
	copyMap(c.channels, s.channels)
	copyMap(c.seasons, s.seasons)
	copyMap(c.movementTypes, s.movementTypes)
	c.movements = append([]entity.Movement(nil), s.movements...)
	copyMap(c.keys, s.keys)
	copyMap(c.sales, s.sales)
	for k, v := range s.saleLines {
		c.saleLines[k] = append([]sales.Line(nil), v...)
	}
	copyMap(c.params, s.params)
	copyMap(c.batches, s.batches)
	for k, v := range s.batchErrors {
		c.batchErrors[k] = append([]imports.BatchError(nil), v...)
	}
	return c
}

func copyMap[K comparable, V any](dst, src map[K]V) {
	for k, v := range src {
		dst[k] = v
	}
}

// New creates an empty store.
func New() *Store {
	return &Store{st: newState()}
}

// NewSeeded creates a store holding the default movement types.
func NewSeeded() *Store {
	s := New()
	for _, mt := range entity.DefaultMovementTypes() {
		s.st.movementTypes[mt.Code] = mt
	}
	return s
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(bool)
	return ok
}

// RunInTransaction implements tx.Manager.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// read runs fn under the read lock.
func (s *Store) read(fn func(st *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.st)
}

// write runs fn under the write lock. Outside a unit of work it also waits
// for any running unit of work so a rollback cannot discard it.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// Catalog returns the catalog repository.
func (s *Store) Catalog() *CatalogRepo { return &CatalogRepo{s: s} }

// Movements returns the ledger repository.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{s: s} }

// Stock returns the stock aggregation repository and locker.
func (s *Store) Stock() *StockRepo { return &StockRepo{s: s} }

// Parameters returns the replenishment parameter repository.
func (s *Store) Parameters() *ParameterRepo { return &ParameterRepo{s: s} }

// Sales returns the sale repository.
func (s *Store) Sales() *SaleRepo { return &SaleRepo{s: s} }

// BatchLogs returns the import batch log repository.
func (s *Store) BatchLogs() *BatchLogRepo { return &BatchLogRepo{s: s} }

var _ tx.Manager = (*Store)(nil)

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
