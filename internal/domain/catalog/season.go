package catalog

import (
	"context"
	"strings"
	"time"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
)

// SeasonMode names a season assignment policy.
type SeasonMode string

const (
	SeasonAutomatic SeasonMode = "AUTOMATIC"
	SeasonFixed     SeasonMode = "FIXED"
	SeasonNone      SeasonMode = "NONE"
)

// SeasonPolicy decides which season a sale is attributed to.
// The zero value is the automatic policy.
type SeasonPolicy struct {
	mode     SeasonMode
	seasonID id.ID
}

// AutomaticSeason picks the best active season containing the sale date.
func AutomaticSeason() SeasonPolicy { return SeasonPolicy{mode: SeasonAutomatic} }

// FixedSeason assigns the given season, which must exist and be active.
func FixedSeason(seasonID id.ID) SeasonPolicy {
	return SeasonPolicy{mode: SeasonFixed, seasonID: seasonID}
}

// NoSeason leaves the sale without a season.
func NoSeason() SeasonPolicy { return SeasonPolicy{mode: SeasonNone} }

// Mode returns the policy mode.
func (p SeasonPolicy) Mode() SeasonMode {
	if p.mode == "" {
		return SeasonAutomatic
	}
	return p.mode
}

// SeasonID returns the fixed season id; ok is false for other modes.
func (p SeasonPolicy) SeasonID() (seasonID id.ID, ok bool) {
	return p.seasonID, p.Mode() == SeasonFixed
}

// ParseSeasonPolicy builds a policy from its wire form. An empty mode means
// AUTOMATIC, or FIXED when a season id is given.
func ParseSeasonPolicy(mode string, seasonID *id.ID) (SeasonPolicy, error) {
	switch SeasonMode(strings.ToUpper(strings.TrimSpace(mode))) {
	case "":
		if seasonID != nil && !id.IsNil(*seasonID) {
			return FixedSeason(*seasonID), nil
		}
		return AutomaticSeason(), nil
	case SeasonAutomatic:
		return AutomaticSeason(), nil
	case SeasonNone:
		return NoSeason(), nil
	case SeasonFixed:
		if seasonID == nil || id.IsNil(*seasonID) {
			return SeasonPolicy{}, apperror.NewValidation("seasonId is required when season mode is FIXED").
				WithDetail("field", "seasonId")
		}
		return FixedSeason(*seasonID), nil
	default:
		return SeasonPolicy{}, apperror.NewValidation("unknown season mode").
			WithDetail("field", "seasonMode").
			WithDetail("value", mode)
	}
}

// ResolveSeason applies the policy for a sale at time at. It has no side effects.
// A nil season with a nil error means the sale carries no season.
func ResolveSeason(ctx context.Context, reader Reader, policy SeasonPolicy, at time.Time) (*entity.Season, error) {
	switch policy.Mode() {
	case SeasonNone:
		return nil, nil
	case SeasonFixed:
		seasonID, _ := policy.SeasonID()
		season, err := reader.SeasonByID(ctx, seasonID)
		if err != nil {
			return nil, err
		}
		if !season.Active {
			return nil, apperror.NewValidation("fixed season is not active").
				WithDetail("field", "seasonId").
				WithDetail("seasonId", seasonID.String())
		}
		return season, nil
	default:
		seasons, err := reader.ActiveSeasons(ctx)
		if err != nil {
			return nil, err
		}
		return SelectSeason(seasons, at), nil
	}
}

// SelectSeason returns the active season containing at with the highest priority,
// preferring the shortest date range on ties. Remaining ties go to the latest start
// date, then the smallest id, so the choice is stable.
func SelectSeason(seasons []entity.Season, at time.Time) *entity.Season {
	var best *entity.Season
	for i := range seasons {
		s := &seasons[i]
		if !s.Active || !s.Contains(at) {
			continue
		}
		if best == nil || seasonBefore(s, best) {
			best = s
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

func seasonBefore(a, b *entity.Season) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if a.Span() != b.Span() {
		return a.Span() < b.Span()
	}
	if !a.StartDate.Equal(b.StartDate) {
		return a.StartDate.After(b.StartDate)
	}
	return a.ID.String() < b.ID.String()
}
