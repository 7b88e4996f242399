package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/vendorsync/backend/internal/infrastructure/scheduler"
	"github.com/vendorsync/backend/internal/interfaces/http/response"
)

// ScheduleHandler administers recurring sync schedules
type ScheduleHandler struct {
	scheduler *scheduler.SyncScheduler
}

// NewScheduleHandler creates a schedule handler
func NewScheduleHandler(s *scheduler.SyncScheduler) *ScheduleHandler {
	return &ScheduleHandler{scheduler: s}
}

// putScheduleRequest sets the cron spec of one pair
type putScheduleRequest struct {
	Spec string `json:"spec" binding:"required,cronspec"`
}

// List returns all registered schedules
// GET /api/v1/schedules
func (h *ScheduleHandler) List(c *gin.Context) {
	response.OK(c, h.scheduler.Schedules())
}

// Put registers or replaces the schedule of a pair
// PUT /api/v1/schedules/:vendor/:scope
func (h *ScheduleHandler) Put(c *gin.Context) {
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

	var req putScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "body must carry a valid cron spec")
		return
	}

	if err := h.scheduler.SetSchedule(code, scope, req.Spec); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"vendor_code": code.String(), "scope": scope.String(), "spec": req.Spec})
}

// Delete removes the schedule of a pair
// DELETE /api/v1/schedules/:vendor/:scope
func (h *ScheduleHandler) Delete(c *gin.Context) {
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

	h.scheduler.RemoveSchedule(code, scope)
	response.OK(c, gin.H{"removed": true})
}
