package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendorsync/backend/internal/domain/catalog"
	"github.com/vendorsync/backend/internal/domain/vendor"
)

// CatalogRecordModel is the persistence model for catalog records
type CatalogRecordModel struct {
	BaseModel
	SKU            string          `gorm:"type:varchar(128);not null;uniqueIndex:idx_record_sku_scope,priority:1"`
	Scope          string          `gorm:"type:varchar(60);not null;uniqueIndex:idx_record_sku_scope,priority:2"`
	Price          decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	Quantity       decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	Description    string          `gorm:"type:text;not null;default:''"`
	SourceVendor   string          `gorm:"type:varchar(40);not null;default:'';index"`
	Retired        bool            `gorm:"not null;default:false"`
	LastModifiedAt time.Time       `gorm:"not null"`
}

// TableName returns the database table name
func (CatalogRecordModel) TableName() string { return "catalog_records" }

// ToDomain converts the model to a domain record
func (m *CatalogRecordModel) ToDomain() (*catalog.Record, error) {
	scope, err := vendor.ParseScope(m.Scope)
	if err != nil {
		return nil, err
	}
	return &catalog.Record{
		ID:             m.ID,
		SKU:            m.SKU,
		Scope:          scope,
		Price:          m.Price,
		Quantity:       m.Quantity,
		Description:    m.Description,
		SourceVendor:   vendor.Code(m.SourceVendor),
		Retired:        m.Retired,
		LastModifiedAt: m.LastModifiedAt,
	}, nil
}

// RecordFromDomain converts a domain record to its persistence model
func RecordFromDomain(r *catalog.Record) *CatalogRecordModel {
	return &CatalogRecordModel{
		BaseModel:      BaseModel{ID: r.ID},
		SKU:            r.SKU,
		Scope:          r.Scope.String(),
		Price:          r.Price,
		Quantity:       r.Quantity,
		Description:    r.Description,
		SourceVendor:   r.SourceVendor.String(),
		Retired:        r.Retired,
		LastModifiedAt: r.LastModifiedAt,
	}
}

// VendorOfferingModel is the persistence model for vendor offerings
type VendorOfferingModel struct {
	BaseModel
	VendorCode string    `gorm:"type:varchar(40);not null;uniqueIndex:idx_offering_identity,priority:1"`
	Scope      string    `gorm:"type:varchar(60);not null;uniqueIndex:idx_offering_identity,priority:2"`
	SKU        string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_offering_identity,priority:3;index:idx_offering_sku_scope,priority:2"`
	Active     bool      `gorm:"not null;default:true"`
	LastSeenAt time.Time `gorm:"not null"`
}

// TableName returns the database table name
func (VendorOfferingModel) TableName() string { return "vendor_offerings" }

// ToDomain converts the model to a domain offering
func (m *VendorOfferingModel) ToDomain() (*catalog.Offering, error) {
	scope, err := vendor.ParseScope(m.Scope)
	if err != nil {
		return nil, err
	}
	return &catalog.Offering{
		VendorCode: vendor.Code(m.VendorCode),
		Scope:      scope,
		SKU:        m.SKU,
		Active:     m.Active,
		UpdatedAt:  m.LastSeenAt,
	}, nil
}

// OfferingFromDomain converts a domain offering to its persistence model
func OfferingFromDomain(o *catalog.Offering) *VendorOfferingModel {
	return &VendorOfferingModel{
		VendorCode: o.VendorCode.String(),
		Scope:      o.Scope.String(),
		SKU:        o.SKU,
		Active:     o.Active,
		LastSeenAt: o.UpdatedAt,
	}
}
