package memory

import (
	"context"
	"slices"
	"time"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
	"retailcore/internal/domain/sales"
)

// SaleRepo implements sales.Repository.
type SaleRepo struct{ s *Store }

var _ sales.Repository = (*SaleRepo)(nil)

func (r *SaleRepo) Create(ctx context.Context, sale *sales.Sale) error {
	return r.s.write(ctx, func(st *state) error {
		if _, exists := st.sales[sale.ID]; exists {
			return apperror.NewDuplicate("sale", "id", sale.ID.String())
		}
		if sale.Reference != nil && *sale.Reference != "" {
			if st.hasNaturalKey(sale.Timestamp, sale.ChannelID, *sale.Reference) {
				channel := sale.ChannelID.String()
				if ch, ok := st.channels[sale.ChannelID]; ok {
					channel = ch.Code
				}
				return apperror.NewDuplicateSale(sale.Timestamp.Format(time.RFC3339), channel, *sale.Reference)
			}
		}
		header := *sale
		header.Lines = nil
		st.sales[sale.ID] = header
		return nil
	})
}

func (r *SaleRepo) SaveLines(ctx context.Context, saleID id.ID, lines []sales.Line) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.sales[saleID]; !ok {
			return apperror.NewNotFound("sale", saleID)
		}
		st.saleLines[saleID] = append(st.saleLines[saleID], lines...)
		return nil
	})
}

func (r *SaleRepo) UpdateTotal(ctx context.Context, saleID id.ID, total types.Money, updatedAt time.Time) error {
	return r.update(ctx, saleID, func(s *sales.Sale) {
		s.Total = total
		s.UpdatedAt = updatedAt
	})
}

func (r *SaleRepo) MarkVoid(ctx context.Context, saleID id.ID, voidedBy string, voidedAt time.Time, reason string) error {
	return r.update(ctx, saleID, func(s *sales.Sale) {
		s.State = sales.StateVoid
		s.VoidedBy = &voidedBy
		s.VoidedAt = &voidedAt
		s.VoidReason = &reason
		s.UpdatedAt = voidedAt
	})
}

func (r *SaleRepo) update(ctx context.Context, saleID id.ID, fn func(*sales.Sale)) error {
	return r.s.write(ctx, func(st *state) error {
		s, ok := st.sales[saleID]
		if !ok {
			return apperror.NewNotFound("sale", saleID)
		}
		fn(&s)
		st.sales[saleID] = s
		return nil
	})
}

func (r *SaleRepo) GetByID(_ context.Context, saleID id.ID) (*sales.Sale, error) {
	var out *sales.Sale
	err := r.s.read(func(st *state) error {
		s, ok := st.sales[saleID]
		if !ok {
			return apperror.NewNotFound("sale", saleID)
		}
		out = &s
		return nil
	})
	return out, err
}

func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sales.Sale, error) {
	return r.GetByID(ctx, saleID)
}

func (r *SaleRepo) GetLines(_ context.Context, saleID id.ID) ([]sales.Line, error) {
	var out []sales.Line
	err := r.s.read(func(st *state) error {
		out = append([]sales.Line{}, st.saleLines[saleID]...)
		return nil
	})
	slices.SortFunc(out, func(a, b sales.Line) int { return a.LineNo - b.LineNo })
	return out, err
}

func (r *SaleRepo) ExistsByNaturalKey(_ context.Context, ts time.Time, channelID id.ID, reference string) (bool, error) {
	exists := false
	err := r.s.read(func(st *state) error {
		exists = st.hasNaturalKey(ts, channelID, reference)
		return nil
	})
	return exists, err
}

func (st *state) hasNaturalKey(ts time.Time, channelID id.ID, reference string) bool {
	for _, s := range st.sales {
		if s.ChannelID == channelID && s.Timestamp.Equal(ts) && s.Reference != nil && *s.Reference == reference {
			return true
		}
	}
	return false
}

func (r *SaleRepo) List(_ context.Context, f sales.Filter) ([]sales.Sale, int64, error) {
	var matched []sales.Sale
	_ = r.s.read(func(st *state) error {
		for _, s := range st.sales {
			if f.ChannelID != nil && s.ChannelID != *f.ChannelID {
				continue
			}
			if f.State != "" && s.State != f.State {
				continue
			}
			if f.Reference != "" && (s.Reference == nil || *s.Reference != f.Reference) {
				continue
			}
			if f.From != nil && s.Timestamp.Before(*f.From) {
				continue
			}
			if f.To != nil && !s.Timestamp.Before(*f.To) {
				continue
			}
			matched = append(matched, s)
		}
		return nil
	})

	slices.SortFunc(matched, func(a, b sales.Sale) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return page(matched, f.Limit, f.Offset), int64(len(matched)), nil
}
