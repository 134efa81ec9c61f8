// Package id provides identifiers for every retailcore entity.
// Fresh ids are UUIDv7 (time-ordered); child ids that must be reproducible on retry
// are derived name-based from their parent.
package id

import (
	"strconv"

	"github.com/google/uuid"
)

// ID is a type alias for UUID, used across all entities.
type ID = uuid.UUID

// New generates a new UUIDv7.
func New() ID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// Derive returns a deterministic child id of parent for the given ordinal.
// Sale lines use it so that re-running a registration with the same sale id
// yields the same line ids.
func Derive(parent ID, ordinal int) ID {
	return uuid.NewSHA1(parent, []byte(strconv.Itoa(ordinal)))
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts string to ID, panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// Nil returns zero-value UUID.
func Nil() ID {
	return uuid.Nil
}

// IsNil checks if ID is zero-value.
func IsNil(id ID) bool {
	return id == uuid.Nil
}

// Ptr returns a pointer to a copy of id, or nil for the zero value.
func Ptr(id ID) *ID {
	if IsNil(id) {
		return nil
	}
	return &id
}
