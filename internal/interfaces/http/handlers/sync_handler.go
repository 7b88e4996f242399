package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	appfeedsync "github.com/vendorsync/backend/internal/application/feedsync"
	"github.com/vendorsync/backend/internal/domain/feedsync"
	"github.com/vendorsync/backend/internal/interfaces/http/response"
)

// SyncHandler exposes sync orchestration over HTTP
type SyncHandler struct {
	orchestrator *appfeedsync.OrchestratorService
	historyLimit int
}

// NewSyncHandler creates a sync handler
func NewSyncHandler(orchestrator *appfeedsync.OrchestratorService, historyLimit int) *SyncHandler {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &SyncHandler{orchestrator: orchestrator, historyLimit: historyLimit}
}

// RunView is the API projection of a sync run
type RunView struct {
	ID           string             `json:"id"`
	VendorCode   string             `json:"vendor_code"`
	Scope        string             `json:"scope"`
	Trigger      string             `json:"trigger"`
	State        string             `json:"state"`
	Stats        feedsync.SyncStats `json:"stats"`
	Processed    int                `json:"processed"`
	ErrorMessage string             `json:"error_message,omitempty"`
	StartedAt    time.Time          `json:"started_at"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
	Stuck        bool               `json:"stuck,omitempty"`
}

func runView(run *feedsync.SyncRun) RunView {
	return RunView{
		ID:           run.ID.String(),
		VendorCode:   run.VendorCode.String(),
		Scope:        run.Scope.String(),
		Trigger:      string(run.Trigger),
		State:        run.State.String(),
		Stats:        run.Stats,
		Processed:    run.Stats.Processed(),
		ErrorMessage: run.ErrorMessage,
		StartedAt:    run.StartedAt,
		CompletedAt:  run.CompletedAt,
	}
}

// Trigger starts a sync run for a (vendor, scope) pair
// POST /api/v1/sync/:vendor/:scope/trigger
func (h *SyncHandler) Trigger(c *gin.Context) {
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

	run, err := h.orchestrator.Trigger(c.Request.Context(), code, scope, feedsync.TriggerManual)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, runView(run))
}

// Reset clears a stuck run for a (vendor, scope) pair
// POST /api/v1/sync/:vendor/:scope/reset
func (h *SyncHandler) Reset(c *gin.Context) {
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

	run, err := h.orchestrator.Reset(c.Request.Context(), code, scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, runView(run))
}

// Status returns the in-flight or latest run of a pair
// GET /api/v1/sync/:vendor/:scope/status
func (h *SyncHandler) Status(c *gin.Context) {
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

	run, err := h.orchestrator.Status(c.Request.Context(), code, scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	if run == nil {
		response.OK(c, gin.H{"state": "NEVER_SYNCED"})
		return
	}
	view := runView(run)
	view.Stuck = h.orchestrator.IsStuck(run)
	response.OK(c, view)
}

// History lists recent runs
// GET /api/v1/sync/runs?vendor=&scope=&state=&limit=
func (h *SyncHandler) History(c *gin.Context) {
	filter := feedsync.RunFilter{Limit: h.historyLimit}

	if raw := c.Query("vendor"); raw != "" {
		code, err := vendorParam(raw)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.VendorCode = &code
	}
	if raw := c.Query("scope"); raw != "" {
		scope, err := scopeParam(raw)
		if err != nil {
			response.BadRequest(c, "invalid scope")
			return
		}
		filter.Scope = &scope
	}
	if raw := c.Query("state"); raw != "" {
		state := feedsync.RunState(raw)
		if !state.IsValid() {
			response.BadRequest(c, "invalid run state")
			return
		}
		filter.State = &state
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > 500 {
			response.BadRequest(c, "limit must be between 1 and 500")
			return
		}
		filter.Limit = limit
	}

	runs, err := h.orchestrator.History(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	views := make([]RunView, 0, len(runs))
	for i := range runs {
		views = append(views, runView(&runs[i]))
	}
	response.OK(c, views)
}
