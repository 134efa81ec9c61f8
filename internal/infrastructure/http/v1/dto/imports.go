package dto

import (
	"retailcore/internal/core/id"
	"retailcore/internal/domain/catalog"
	"retailcore/internal/domain/imports"
)

// ImportSalesRequest is the body of POST /imports/sales.
type ImportSalesRequest struct {
	Rows       []imports.Row `json:"rows" binding:"required"`
	DryRun     bool          `json:"dryRun"`
	SeasonMode string        `json:"seasonMode,omitempty"`
	SeasonID   *id.ID        `json:"seasonId,omitempty"`
	Note       string        `json:"note,omitempty"`
	FileName   string        `json:"fileName,omitempty"`
}

// ToOptions converts the request to import options.
func (r *ImportSalesRequest) ToOptions() (imports.Options, error) {
	season, err := catalog.ParseSeasonPolicy(r.SeasonMode, r.SeasonID)
	if err != nil {
		return imports.Options{}, err
	}
	return imports.Options{
		DryRun:   r.DryRun,
		Season:   season,
		Note:     r.Note,
		FileName: r.FileName,
	}, nil
}
