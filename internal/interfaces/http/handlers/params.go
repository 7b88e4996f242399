package handlers

import (
	"strings"

	"github.com/google/uuid"

	"github.com/vendorsync/backend/internal/domain/vendor"
)

// scopeParam parses the :scope path segment. Accepted forms: "admin", a
// bare tenant UUID, or the canonical "TENANT:<uuid>" form.
func scopeParam(raw string) (vendor.Scope, error) {
	if strings.EqualFold(raw, "admin") {
		return vendor.AdminScope(), nil
	}
	if id, err := uuid.Parse(raw); err == nil {
		return vendor.TenantScope(id), nil
	}
	return vendor.ParseScope(strings.ToUpper(raw))
}

// vendorParam parses the :vendor path segment
func vendorParam(raw string) (vendor.Code, error) {
	code := vendor.Code(strings.ToLower(raw))
	if !code.IsValid() {
		return "", vendor.ErrInvalidVendorCode
	}
	return code, nil
}
