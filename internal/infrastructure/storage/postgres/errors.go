package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories translate.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	checkViolation      = "23514"
)

// Constraint names referenced by the migrations.
const (
	ConstraintSaleNaturalKey   = "uq_sales_natural_key"
	ConstraintMovementQuantity = "ck_movements_quantity_positive"
	ConstraintMovementSign     = "ck_movements_sign"
)

// movementReferences maps the foreign keys of the movements table to the
// entity they point at.
var movementReferences = map[string]string{
	"fk_movements_sku":       "sku",
	"fk_movements_type":      "movement type",
	"fk_movements_channel":   "channel",
	"fk_movements_sale":      "sale",
	"fk_movements_sale_line": "sale line",
}

// IsUniqueViolation reports whether err is a unique violation, optionally of a
// specific constraint (empty matches any).
func IsUniqueViolation(err error, constraint string) bool {
	return hasCode(err, uniqueViolation, constraint)
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, foreignKeyViolation, "")
}

// IsCheckViolation reports whether err violates a CHECK constraint, optionally
// a specific one (empty matches any).
func IsCheckViolation(err error, constraint string) bool {
	return hasCode(err, checkViolation, constraint)
}

// ViolatedReference returns the entity behind a movements foreign key
// violation. ok is false for any other error.
func ViolatedReference(err error) (entity string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != foreignKeyViolation {
		return "", false
	}
	if entity, known := movementReferences[pgErr.ConstraintName]; known {
		return entity, true
	}
	return "referenced row", true
}

func hasCode(err error, code, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != code {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
