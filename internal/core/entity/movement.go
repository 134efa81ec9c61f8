package entity

import (
	"context"
	"strings"
	"time"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
)

// Sign is the direction of a movement: +1 increases stock, -1 decreases it.
type Sign int

const (
	SignIn  Sign = 1
	SignOut Sign = -1
)

// Valid reports whether s is +1 or -1.
func (s Sign) Valid() bool {
	return s == SignIn || s == SignOut
}

// Movement type codes seeded in every installation.
const (
	MovementInitialStock = "INITIAL_STOCK"
	MovementReceipt      = "RECEIPT"
	MovementSale         = "SALE"
	MovementVoid         = "VOID"
	MovementAdjustment   = "ADJUSTMENT"
)

// MaxIdempotencyKeyLen is the column width of movement idempotency keys.
const MaxIdempotencyKeyLen = 180

// MovementType classifies movements and constrains their sign.
type MovementType struct {
	CatalogBase

	DefaultSign Sign `db:"default_sign" json:"defaultSign"`

	// SignFixed forbids movements of this type with a sign other than DefaultSign.
	SignFixed bool `db:"sign_fixed" json:"signFixed"`
}

// Allows reports whether a movement of this type may carry sign s.
func (t *MovementType) Allows(s Sign) bool {
	if !s.Valid() {
		return false
	}
	return !t.SignFixed || s == t.DefaultSign
}

// DefaultMovementTypes returns the reference set of movement types.
func DefaultMovementTypes() []MovementType {
	mk := func(code, name string, sign Sign, fixed bool) MovementType {
		return MovementType{CatalogBase: NewCatalogBase(code, name), DefaultSign: sign, SignFixed: fixed}
	}
	return []MovementType{
		mk(MovementInitialStock, "Initial stock", SignIn, true),
		mk(MovementReceipt, "Receipt", SignIn, true),
		mk(MovementSale, "Sale", SignOut, true),
		mk(MovementVoid, "Sale void", SignIn, true),
		mk(MovementAdjustment, "Adjustment", SignIn, false),
	}
}

// Movement is one immutable, signed stock fact.
// It is never updated or deleted; corrections append an opposite-signed movement.
type Movement struct {
	ID        id.ID     `db:"id" json:"id"`
	Timestamp time.Time `db:"ts" json:"timestamp"`
	SKUID     id.ID     `db:"sku_id" json:"skuId"`
	TypeID    id.ID     `db:"movement_type_id" json:"movementTypeId"`
	TypeCode  string    `db:"movement_type_code" json:"movementTypeCode"`
	Quantity  int64     `db:"quantity" json:"quantity"`
	Sign      Sign      `db:"sign" json:"sign"`

	ChannelID  *id.ID `db:"channel_id" json:"channelId,omitempty"`
	SaleID     *id.ID `db:"sale_id" json:"saleId,omitempty"`
	SaleLineID *id.ID `db:"sale_line_id" json:"saleLineId,omitempty"`

	Reference   string `db:"reference" json:"reference,omitempty"`
	Observation string `db:"observation" json:"observation,omitempty"`

	IdempotencyKey string    `db:"idempotency_key" json:"idempotencyKey"`
	UserID         string    `db:"user_id" json:"userId,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// Signed returns sign x quantity.
func (m *Movement) Signed() int64 {
	return int64(m.Sign) * m.Quantity
}

// Validate checks the invariants a movement must satisfy before it reaches the ledger.
func (m *Movement) Validate(ctx context.Context) error {
	if id.IsNil(m.SKUID) {
		return apperror.NewValidation("movement sku is required").WithDetail("field", "skuId")
	}
	if m.Quantity <= 0 {
		return apperror.NewValidation("movement quantity must be positive").
			WithDetail("field", "quantity").
			WithDetail("quantity", m.Quantity)
	}
	if !m.Sign.Valid() {
		return apperror.NewValidation("movement sign must be +1 or -1").
			WithDetail("field", "sign").
			WithDetail("sign", int(m.Sign))
	}
	if strings.TrimSpace(m.IdempotencyKey) == "" {
		return apperror.NewValidation("movement idempotency key is required").
			WithDetail("field", "idempotencyKey")
	}
	if len(m.IdempotencyKey) > MaxIdempotencyKeyLen {
		return apperror.NewValidation("movement idempotency key is too long").
			WithDetail("field", "idempotencyKey").
			WithDetail("max", MaxIdempotencyKeyLen)
	}
	if m.Timestamp.IsZero() {
		return apperror.NewValidation("movement timestamp is required").WithDetail("field", "timestamp")
	}
	return nil
}
