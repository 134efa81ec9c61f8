// Package entity provides the reference and ledger entities shared across domains.
package entity

import (
	"context"
	"strings"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without database access).
type Validatable interface {
	Validate(ctx context.Context) error
}

// CatalogBase holds the fields every reference catalog shares.
type CatalogBase struct {
	ID     id.ID  `db:"id" json:"id"`
	Code   string `db:"code" json:"code"`
	Name   string `db:"name" json:"name"`
	Active bool   `db:"active" json:"active"`
}

// NewCatalogBase creates an active catalog entry with a generated id.
// Codes are stored upper-case.
func NewCatalogBase(code, name string) CatalogBase {
	return CatalogBase{
		ID:     id.New(),
		Code:   NormalizeCode(code),
		Name:   name,
		Active: true,
	}
}

// Validate implements Validatable.
func (c *CatalogBase) Validate(ctx context.Context) error {
	if strings.TrimSpace(c.Code) == "" {
		return apperror.NewValidation("code is required").WithDetail("field", "code")
	}
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	return nil
}

// NormalizeCode trims and upper-cases a catalog code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
