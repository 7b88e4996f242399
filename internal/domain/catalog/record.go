package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendorsync/backend/internal/domain/vendor"
)

var (
	ErrInvalidSKU    = errors.New("catalog: invalid SKU")
	ErrInvalidVendor = errors.New("catalog: invalid source vendor")
)

// RecordKey identifies a catalog record: vendor-assigned SKU within a
// reconciliation scope. At most one record exists per key.
type RecordKey struct {
	SKU   string
	Scope vendor.Scope
}

// Record is a product or price/availability entry. Its value reflects the
// highest-priority vendor that reported the SKU; SourceVendor is that
// vendor, empty when the record has lost its last supplier (admin scope
// keeps unsourced records rather than deleting them).
type Record struct {
	ID             uuid.UUID
	SKU            string
	Scope          vendor.Scope
	Price          decimal.Decimal
	Quantity       decimal.Decimal
	Description    string
	SourceVendor   vendor.Code
	Retired        bool
	LastModifiedAt time.Time
}

// Key returns the record's identity
func (r *Record) Key() RecordKey {
	return RecordKey{SKU: r.SKU, Scope: r.Scope}
}

// Sourced returns true while some vendor still backs the record
func (r *Record) Sourced() bool {
	return r.SourceVendor != ""
}

// NewRecord creates a record first reported by the given vendor
func NewRecord(sku string, scope vendor.Scope, source vendor.Code) (*Record, error) {
	if sku == "" {
		return nil, ErrInvalidSKU
	}
	if !source.IsValid() {
		return nil, ErrInvalidVendor
	}
	return &Record{
		ID:             uuid.New(),
		SKU:            sku,
		Scope:          scope,
		SourceVendor:   source,
		LastModifiedAt: time.Now().UTC(),
	}, nil
}

// Offering records that a vendor currently supplies a SKU within a scope.
// Offerings answer "does any other vendor still back this record" when a
// row disappears from one vendor's feed.
type Offering struct {
	VendorCode vendor.Code
	Scope      vendor.Scope
	SKU        string
	Active     bool
	UpdatedAt  time.Time
}

// OfferingKey identifies one vendor's offering of a SKU
type OfferingKey struct {
	VendorCode vendor.Code
	Scope      vendor.Scope
	SKU        string
}

// RecordRepository reads catalog records. All writes go through the
// Committer so one delta is applied as a single atomic unit.
type RecordRepository interface {
	FindByKey(ctx context.Context, key RecordKey) (*Record, error)
	FindByKeys(ctx context.Context, keys []RecordKey) (map[RecordKey]*Record, error)
	CountByScope(ctx context.Context, scope vendor.Scope) (int64, error)
}

// OfferingRepository reads vendor offerings
type OfferingRepository interface {
	// ActiveSuppliers returns the vendors currently supplying a SKU
	ActiveSuppliers(ctx context.Context, scope vendor.Scope, sku string) ([]vendor.Code, error)
}
