// Package imports turns flat sale rows into grouped sales and keeps a log of
// every non-dry-run batch.
package imports

import (
	"time"

	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
	"retailcore/internal/domain/catalog"
)

// KindSales is the only batch kind so far.
const KindSales = "SALES"

// FieldGeneral marks a row error not tied to one column.
const FieldGeneral = "GENERAL"

// MaxSampleErrors caps Result.SampleErrors.
const MaxSampleErrors = 10

// Row is one column-resolved input row. Missing cells are nil or empty.
type Row struct {
	Timestamp   *time.Time   `json:"timestamp"`
	ChannelCode string       `json:"channel"`
	Reference   string       `json:"reference"`
	SKUCode     string       `json:"sku"`
	Quantity    *int64       `json:"quantity"`
	UnitPrice   *types.Money `json:"unitPrice"`
	ListPrice   *types.Money `json:"listPrice,omitempty"`
}

// Options controls one import.
type Options struct {
	DryRun   bool
	Season   catalog.SeasonPolicy
	Note     string
	FileName string
}

// Result summarizes an import.
type Result struct {
	OKCount        int      `json:"okCount"`
	ErrorCount     int      `json:"errorCount"`
	DuplicateCount int      `json:"duplicateCount"`
	SalesCreated   int      `json:"salesCreated"`
	SampleErrors   []string `json:"sampleErrors"`
	BatchID        *id.ID   `json:"batchId"`
}

// BatchLog is the audit record of a persisted import.
type BatchLog struct {
	ID             id.ID     `db:"id" json:"id"`
	Kind           string    `db:"kind" json:"kind"`
	FileName       string    `db:"file_name" json:"fileName"`
	Note           string    `db:"note" json:"note"`
	UserID         string    `db:"user_id" json:"userId"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	OKCount        int       `db:"ok_count" json:"okCount"`
	ErrorCount     int       `db:"error_count" json:"errorCount"`
	DuplicateCount int       `db:"duplicate_count" json:"duplicateCount"`
	SalesCreated   int       `db:"sales_created" json:"salesCreated"`
}

// BatchError is one rejected row of a batch.
type BatchError struct {
	ID        id.ID     `db:"id" json:"id"`
	BatchID   id.ID     `db:"batch_id" json:"batchId"`
	RowNumber int       `db:"row_number" json:"row"`
	Field     string    `db:"field" json:"field"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
