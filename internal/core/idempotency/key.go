// Package idempotency derives the deterministic keys that tag every ledger write.
//
// A key is a name-based UUID (SHA-1) over the ordered parts joined by "|". The same
// parts always produce the same key, so a retried workflow step collides with its
// earlier write instead of applying it twice.
package idempotency

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"retailcore/internal/core/id"
)

// Namespace scopes retailcore keys so they never coincide with other name-based UUIDs.
var Namespace = uuid.MustParse("6f1c2a52-6f5b-4c53-9b8e-5c3c1d0e7a41")

// Key returns the key for the ordered parts.
func Key(parts ...string) string {
	return uuid.NewSHA1(Namespace, []byte(strings.Join(parts, "|"))).String()
}

// SaleKey tags the stock movement written for one sale line.
func SaleKey(saleID, lineID id.ID) string {
	return Key(saleID.String(), lineID.String(), "SALE")
}

// VoidKey tags the compensating movement written when a sale line is voided.
func VoidKey(saleID, lineID id.ID) string {
	return Key(saleID.String(), lineID.String(), "VOID")
}

// AdjustmentKey tags a direct stock adjustment (initial stock, receipt, manual adjustment).
// The timestamp is taken at whole-second precision in UTC.
func AdjustmentKey(skuID id.ID, ts time.Time, typeCode, reference string) string {
	return Key(skuID.String(), ts.UTC().Truncate(time.Second).Format(time.RFC3339), typeCode, strings.TrimSpace(reference))
}
