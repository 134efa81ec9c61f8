package memory

import (
	"context"
	"slices"
	"strings"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/domain"
	"retailcore/internal/domain/imports"
	"retailcore/internal/domain/stock"
)

// ParameterRepo implements stock.ParameterRepository.
type ParameterRepo struct{ s *Store }

var _ stock.ParameterRepository = (*ParameterRepo)(nil)

func (r *ParameterRepo) Save(ctx context.Context, p *stock.Parameter) error {
	return r.s.write(ctx, func(st *state) error {
		st.params[p.SKUID] = *p
		return nil
	})
}

func (r *ParameterRepo) GetBySKU(_ context.Context, skuID id.ID) (*stock.Parameter, error) {
	var out *stock.Parameter
	err := r.s.read(func(st *state) error {
		p, ok := st.params[skuID]
		if !ok {
			return apperror.NewNotFound("replenishment parameter", skuID)
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *ParameterRepo) List(_ context.Context) ([]stock.Parameter, error) {
	var out []stock.Parameter
	_ = r.s.read(func(st *state) error {
		for _, p := range st.params {
			out = append(out, p)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b stock.Parameter) int {
		return strings.Compare(a.SKUID.String(), b.SKUID.String())
	})
	return out, nil
}

func (r *ParameterRepo) Delete(ctx context.Context, skuID id.ID) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.params[skuID]; !ok {
			return apperror.NewNotFound("replenishment parameter", skuID)
		}
		delete(st.params, skuID)
		return nil
	})
}

// BatchLogRepo implements imports.BatchLogRepository.
type BatchLogRepo struct{ s *Store }

var _ imports.BatchLogRepository = (*BatchLogRepo)(nil)

func (r *BatchLogRepo) Create(ctx context.Context, log *imports.BatchLog) error {
	return r.s.write(ctx, func(st *state) error {
		st.batches[log.ID] = *log
		return nil
	})
}

func (r *BatchLogRepo) Finish(ctx context.Context, log *imports.BatchLog, errs []imports.BatchError) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.batches[log.ID]; !ok {
			return apperror.NewNotFound("batch", log.ID)
		}
		st.batches[log.ID] = *log
		st.batchErrors[log.ID] = append([]imports.BatchError(nil), errs...)
		return nil
	})
}

func (r *BatchLogRepo) GetByID(_ context.Context, batchID id.ID) (*imports.BatchLog, error) {
	var out *imports.BatchLog
	err := r.s.read(func(st *state) error {
		b, ok := st.batches[batchID]
		if !ok {
			return apperror.NewNotFound("batch", batchID)
		}
		out = &b
		return nil
	})
	return out, err
}

func (r *BatchLogRepo) List(_ context.Context, p domain.Page) ([]imports.BatchLog, int64, error) {
	var all []imports.BatchLog
	_ = r.s.read(func(st *state) error {
		for _, b := range st.batches {
			all = append(all, b)
		}
		return nil
	})
	slices.SortFunc(all, func(a, b imports.BatchLog) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID.String(), a.ID.String())
	})
	return page(all, p.Limit, p.Offset), int64(len(all)), nil
}

func (r *BatchLogRepo) ListErrors(_ context.Context, batchID id.ID, p domain.Page) ([]imports.BatchError, int64, error) {
	var all []imports.BatchError
	_ = r.s.read(func(st *state) error {
		all = append(all, st.batchErrors[batchID]...)
		return nil
	})
	slices.SortStableFunc(all, func(a, b imports.BatchError) int { return a.RowNumber - b.RowNumber })
	return page(all, p.Limit, p.Offset), int64(len(all)), nil
}
