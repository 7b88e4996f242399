package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	appvendor "github.com/vendorsync/backend/internal/application/vendor"
	"github.com/vendorsync/backend/internal/domain/vendor"
	"github.com/vendorsync/backend/internal/interfaces/http/response"
)

// PriorityHandler exposes vendor precedence administration over HTTP
type PriorityHandler struct {
	priorities *appvendor.PriorityService
}

// NewPriorityHandler creates a priority handler
func NewPriorityHandler(priorities *appvendor.PriorityService) *PriorityHandler {
	return &PriorityHandler{priorities: priorities}
}

// priorityView is the API projection of one priority entry
type priorityView struct {
	VendorCode string    `json:"vendor_code"`
	Rank       int       `json:"rank"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// putPrioritiesRequest replaces the full ordering, highest priority first
type putPrioritiesRequest struct {
	Vendors []string `json:"vendors" binding:"required,min=1"`
}

// List returns the declared ordering of a (scope, category) pair
// GET /api/v1/priorities/:scope/:category
func (h *PriorityHandler) List(c *gin.Context) {
	scope, err := scopeParam(c.Param("scope"))
	if err != nil {
		response.BadRequest(c, "invalid scope")
		return
	}

	entries, err := h.priorities.List(c.Request.Context(), scope, c.Param("category"))
	if err != nil {
		response.Error(c, err)
		return
	}

	views := make([]priorityView, 0, len(entries))
	for _, e := range entries {
		views = append(views, priorityView{
			VendorCode: e.VendorCode.String(),
			Rank:       e.Rank,
			UpdatedAt:  e.UpdatedAt,
		})
	}
	response.OK(c, views)
}

// Replace swaps the full ordering of a (scope, category) pair
// PUT /api/v1/priorities/:scope/:category
func (h *PriorityHandler) Replace(c *gin.Context) {
	scope, err := scopeParam(c.Param("scope"))
	if err != nil {
		response.BadRequest(c, "invalid scope")
		return
	}

	var req putPrioritiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "body must carry a non-empty vendors list")
		return
	}

	ordered := make([]vendor.Code, 0, len(req.Vendors))
	for _, v := range req.Vendors {
		ordered = append(ordered, vendor.Code(v))
	}

	if err := h.priorities.Replace(c.Request.Context(), scope, c.Param("category"), ordered); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"vendors": len(ordered)})
}
