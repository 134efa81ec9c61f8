package memory

import (
	"context"
	"slices"
	"time"

	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
	"retailcore/internal/domain/ledger"
	"retailcore/internal/domain/stock"
)

// MovementRepo implements ledger.Repository.
type MovementRepo struct{ s *Store }

var _ ledger.Repository = (*MovementRepo)(nil)

func (r *MovementRepo) Insert(ctx context.Context, m *entity.Movement) (bool, error) {
	applied := false
	err := r.s.write(ctx, func(st *state) error {
		applied = st.insertMovement(*m)
		return nil
	})
	return applied, err
}

func (r *MovementRepo) InsertBatch(ctx context.Context, movements []entity.Movement) ([]bool, error) {
	applied := make([]bool, len(movements))
	err := r.s.write(ctx, func(st *state) error {
		for i, m := range movements {
			applied[i] = st.insertMovement(m)
		}
		return nil
	})
	return applied, err
}

func (st *state) insertMovement(m entity.Movement) bool {
	if _, exists := st.keys[m.IdempotencyKey]; exists {
		return false
	}
	st.keys[m.IdempotencyKey] = struct{}{}
	st.movements = append(st.movements, m)
	return true
}

func (r *MovementRepo) List(_ context.Context, f ledger.MovementFilter) ([]entity.Movement, int64, error) {
	var matched []entity.Movement
	_ = r.s.read(func(st *state) error {
		for _, m := range st.movements {
			if f.SKUID != nil && m.SKUID != *f.SKUID {
				continue
			}
			if f.SaleID != nil && (m.SaleID == nil || *m.SaleID != *f.SaleID) {
				continue
			}
			if f.TypeCode != "" && m.TypeCode != f.TypeCode {
				continue
			}
			if f.From != nil && m.Timestamp.Before(*f.From) {
				continue
			}
			if f.To != nil && !m.Timestamp.Before(*f.To) {
				continue
			}
			matched = append(matched, m)
		}
		return nil
	})

	slices.SortStableFunc(matched, func(a, b entity.Movement) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return page(matched, f.Limit, f.Offset), int64(len(matched)), nil
}

// StockRepo implements stock.Repository and stock.Locker.
type StockRepo struct{ s *Store }

var (
	_ stock.Repository = (*StockRepo)(nil)
	_ stock.Locker     = (*StockRepo)(nil)
)

func (r *StockRepo) SumSigned(_ context.Context, skuIDs []id.ID, cutoff time.Time) (map[id.ID]int64, error) {
	wanted := idSet(skuIDs)
	out := make(map[id.ID]int64)
	err := r.s.read(func(st *state) error {
		for _, m := range st.movements {
			if _, ok := wanted[m.SKUID]; !ok || m.Timestamp.After(cutoff) {
				continue
			}
			out[m.SKUID] += m.Signed()
		}
		return nil
	})
	return out, err
}

func (r *StockRepo) SumOutflow(_ context.Context, skuIDs []id.ID, from, to time.Time) (map[id.ID]int64, error) {
	wanted := idSet(skuIDs)
	out := make(map[id.ID]int64)
	err := r.s.read(func(st *state) error {
		for _, m := range st.movements {
			if _, ok := wanted[m.SKUID]; !ok || m.Sign != entity.SignOut {
				continue
			}
			if m.Timestamp.Before(from) || !m.Timestamp.Before(to) {
				continue
			}
			out[m.SKUID] += m.Quantity
		}
		return nil
	})
	return out, err
}

// LockSKUs is a no-op: units of work are already serialized.
func (r *StockRepo) LockSKUs(context.Context, []id.ID) error { return nil }

func idSet(ids []id.ID) map[id.ID]struct{} {
	set := make(map[id.ID]struct{}, len(ids))
	for _, v := range ids {
		set[v] = struct{}{}
	}
	return set
}
