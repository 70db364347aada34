package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/datakit-backend/internal/indexer"
	"github.com/yungbote/datakit-backend/internal/jobs/purge"
	"github.com/yungbote/datakit-backend/internal/pkg/dbctx"
	"github.com/yungbote/datakit-backend/internal/pkg/logger"
	"github.com/yungbote/datakit-backend/internal/services"
)

// MaintenanceHandler exposes the operational surface: index reconciliation,
// orphan cleanup, and purge scheduling.
type MaintenanceHandler struct {
	log          *logger.Logger
	indexService indexer.Service
	jobService   services.JobService
}

func NewMaintenanceHandler(baseLog *logger.Logger, isvc indexer.Service, jsvc services.JobService) *MaintenanceHandler {
	return &MaintenanceHandler{
		log:          baseLog.With("handler", "MaintenanceHandler"),
		indexService: isvc,
		jobService:   jsvc,
	}
}

// POST /api/maintenance/indexes/sync
func (h *MaintenanceHandler) SyncIndexes(c *gin.Context) {
	stats, err := h.indexService.SyncAll(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"stats": stats})
}

// GET /api/maintenance/indexes/columns
func (h *MaintenanceHandler) ListColumns(c *gin.Context) {
	columns, err := h.indexService.ListAllGeneratedColumns(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"columns": columns})
}

// GET /api/maintenance/indexes/orphans
func (h *MaintenanceHandler) ListOrphans(c *gin.Context) {
	columns, err := h.indexService.FindOrphanedColumns(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"columns": columns})
}

type removeColumnsRequest struct {
	Columns []string `json:"columns" binding:"required"`
}

// POST /api/maintenance/indexes/remove
func (h *MaintenanceHandler) RemoveColumns(c *gin.Context) {
	var req removeColumnsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := h.indexService.RemoveColumns(c.Request.Context(), req.Columns)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"result": result})
}

type startPurgeRequest struct {
	Target string `json:"target" binding:"required"`
}

// POST /api/maintenance/purge
// Kicks off a background purge run for "models" or "entries".
func (h *MaintenanceHandler) StartPurge(c *gin.Context) {
	var req startPurgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if req.Target != purge.TargetModels && req.Target != purge.TargetEntries {
		RespondError(c, http.StatusBadRequest, "invalid_target", errInvalidTarget(req.Target))
		return
	}
	job, err := h.jobService.Enqueue(dbctx.New(c.Request.Context()), purge.JobType, map[string]any{
		"target":       req.Target,
		"stuck_count":  0,
		"total_purged": 0,
	}, nil)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"job": job})
}

type invalidTargetError struct{ Target string }

func (e *invalidTargetError) Error() string { return "invalid purge target: " + e.Target }

func errInvalidTarget(target string) error { return &invalidTargetError{Target: target} }
