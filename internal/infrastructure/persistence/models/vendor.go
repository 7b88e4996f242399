package models

import (
	"github.com/vendorsync/backend/internal/domain/vendor"
)

// VendorPriorityModel is the persistence model for vendor priorities
type VendorPriorityModel struct {
	BaseModel
	Scope      string `gorm:"type:varchar(60);not null;uniqueIndex:idx_priority_identity,priority:1"`
	Category   string `gorm:"type:varchar(60);not null;uniqueIndex:idx_priority_identity,priority:2"`
	VendorCode string `gorm:"type:varchar(40);not null;uniqueIndex:idx_priority_identity,priority:3"`
	Rank       int    `gorm:"not null;default:0"`
}

// TableName returns the database table name
func (VendorPriorityModel) TableName() string { return "vendor_priorities" }

// ToDomain converts the model to a domain priority entry
func (m *VendorPriorityModel) ToDomain() (vendor.PriorityEntry, error) {
	scope, err := vendor.ParseScope(m.Scope)
	if err != nil {
		return vendor.PriorityEntry{}, err
	}
	return vendor.PriorityEntry{
		Scope:      scope,
		Category:   m.Category,
		VendorCode: vendor.Code(m.VendorCode),
		Rank:       m.Rank,
		UpdatedAt:  m.UpdatedAt,
	}, nil
}

// PriorityFromDomain converts a domain priority entry to its persistence model
func PriorityFromDomain(e vendor.PriorityEntry) *VendorPriorityModel {
	return &VendorPriorityModel{
		Scope:      e.Scope.String(),
		Category:   e.Category,
		VendorCode: e.VendorCode.String(),
		Rank:       e.Rank,
	}
}

// VendorCredentialModel is the persistence model for credential fields.
// One row per field; sensitive values arrive already encrypted from the
// vault service, the repository never sees plaintext secrets.
type VendorCredentialModel struct {
	BaseModel
	VendorCode string `gorm:"type:varchar(40);not null;uniqueIndex:idx_credential_identity,priority:1"`
	Scope      string `gorm:"type:varchar(60);not null;uniqueIndex:idx_credential_identity,priority:2"`
	Name       string `gorm:"type:varchar(80);not null;uniqueIndex:idx_credential_identity,priority:3"`
	Value      string `gorm:"type:text;not null"`
	Encrypted  bool   `gorm:"not null;default:false"`
}

// TableName returns the database table name
func (VendorCredentialModel) TableName() string { return "vendor_credentials" }

// ToDomain converts the model to a domain credential field
func (m *VendorCredentialModel) ToDomain() (vendor.CredentialField, error) {
	scope, err := vendor.ParseScope(m.Scope)
	if err != nil {
		return vendor.CredentialField{}, err
	}
	return vendor.CredentialField{
		VendorCode: vendor.Code(m.VendorCode),
		Scope:      scope,
		Name:       m.Name,
		Value:      m.Value,
		Encrypted:  m.Encrypted,
		UpdatedAt:  m.UpdatedAt,
	}, nil
}

// CredentialFromDomain converts a domain credential field to its persistence model
func CredentialFromDomain(f vendor.CredentialField) *VendorCredentialModel {
	return &VendorCredentialModel{
		BaseModel:  BaseModel{UpdatedAt: f.UpdatedAt},
		VendorCode: f.VendorCode.String(),
		Scope:      f.Scope.String(),
		Name:       f.Name,
		Value:      f.Value,
		Encrypted:  f.Encrypted,
	}
}
