package entity

import (
	"context"
	"time"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/types"
)

// SKU is a sellable stock-keeping unit.
type SKU struct {
	CatalogBase

	// ListPrice is used for sale lines that do not carry their own list price.
	ListPrice types.Money `db:"list_price" json:"listPrice"`
}

// Channel is a sales channel (in-person store, web shop, marketplace).
type Channel struct {
	CatalogBase

	// RequiresReference forces every sale on this channel to carry an origin reference
	// (ticket or receipt number).
	RequiresReference bool `db:"requires_reference" json:"requiresReference"`
}

// ChannelInPerson is the code of the in-person channel.
const ChannelInPerson = "FISICO"

// Season is a dated commercial period a sale can be attributed to.
type Season struct {
	CatalogBase

	StartDate time.Time `db:"start_date" json:"startDate"`
	EndDate   time.Time `db:"end_date" json:"endDate"`

	// Priority decides between overlapping seasons; higher wins.
	Priority int `db:"priority" json:"priority"`
}

// Contains reports whether the calendar date of t lies within [StartDate, EndDate].
func (s *Season) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(DateOf(s.StartDate)) && !d.After(DateOf(s.EndDate))
}

// Span is the length of the season's date range.
func (s *Season) Span() time.Duration {
	return DateOf(s.EndDate).Sub(DateOf(s.StartDate))
}

// Validate implements Validatable.
func (s *Season) Validate(ctx context.Context) error {
	if err := s.CatalogBase.Validate(ctx); err != nil {
		return err
	}
	if s.EndDate.Before(s.StartDate) {
		return apperror.NewValidation("season end date precedes start date").
			WithDetail("field", "endDate")
	}
	return nil
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
