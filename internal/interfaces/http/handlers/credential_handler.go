package handlers

import (
	"github.com/gin-gonic/gin"

	appvendor "github.com/vendorsync/backend/internal/application/vendor"
	"github.com/vendorsync/backend/internal/interfaces/http/response"
)

// CredentialHandler exposes the credential vault over HTTP. Reads are
// always masked; there is no endpoint that returns a decrypted secret.
type CredentialHandler struct {
	vault *appvendor.VaultService
}

// NewCredentialHandler creates a credential handler
func NewCredentialHandler(vault *appvendor.VaultService) *CredentialHandler {
	return &CredentialHandler{vault: vault}
}

// putCredentialsRequest is a partial update: only the supplied fields
// change, everything else is untouched.
type putCredentialsRequest struct {
	Fields map[string]string `json:"fields" binding:"required,min=1"`
}

// Get returns the stored credential fields with sensitive values masked
// GET /api/v1/vendors/:vendor/:scope/credentials
func (h *CredentialHandler) Get(c *gin.Context) {
	code, err := vendorParam(c.Param("vendor"))
	if err != nil {
		response.Error(c, err)
		return
	}
	scope, err := scopeParam(c.Param("scope"))
	if err != nil {
		response.BadRequest(c, "invalid scope")
		return
	}

	views, err := h.vault.Describe(c.Request.Context(), code, scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, views)
}

// Put merges the supplied fields into the stored credentials
// PUT /api/v1/vendors/:vendor/:scope/credentials
func (h *CredentialHandler) Put(c *gin.Context) {
	code, err := vendorParam(c.Param("vendor"))
	if err != nil {
		response.Error(c, err)
		return
	}
	scope, err := scopeParam(c.Param("scope"))
	if err != nil {
		response.BadRequest(c, "invalid scope")
		return
	}

	var req putCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "body must carry a non-empty fields object")
		return
	}

	if err := h.vault.Put(c.Request.Context(), code, scope, req.Fields); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"updated_fields": len(req.Fields)})
}
