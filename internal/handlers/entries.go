package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/datakit-backend/internal/pkg/dbctx"
	"github.com/yungbote/datakit-backend/internal/pkg/logger"
	"github.com/yungbote/datakit-backend/internal/services"
)

type EntriesHandler struct {
	log          *logger.Logger
	entryService services.EntryService
}

func NewEntriesHandler(baseLog *logger.Logger, esvc services.EntryService) *EntriesHandler {
	return &EntriesHandler{
		log:          baseLog.With("handler", "EntriesHandler"),
		entryService: esvc,
	}
}

type createEntryRequest struct {
	ModelID  uuid.UUID      `json:"model_id" binding:"required"`
	Document map[string]any `json:"document" binding:"required"`
}

// POST /api/entries
func (h *EntriesHandler) Create(c *gin.Context) {
	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	id, err := h.entryService.Create(dbctx.New(c.Request.Context()), req.ModelID, req.Document, actorID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"id": id})
}

type updateEntryRequest struct {
	Document map[string]any `json:"document" binding:"required"`
}

// PATCH /api/entries/:id
func (h *EntriesHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var req updateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.entryService.Update(dbctx.New(c.Request.Context()), id, req.Document, actorID(c)); err != nil {
		RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/entries/:id
func (h *EntriesHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	record, err := h.entryService.Find(dbctx.New(c.Request.Context()), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"entry": record})
}

// GET /api/entries/deleted/:id
func (h *EntriesHandler) GetDeleted(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	record, err := h.entryService.FindDeleted(dbctx.New(c.Request.Context()), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"entry": record})
}

type paginateEntriesRequest struct {
	ModelID  *uuid.UUID        `json:"model_id"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Criteria services.Criteria `json:"criteria"`
}

// POST /api/entries/search
func (h *EntriesHandler) Paginate(c *gin.Context) {
	var req paginateEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	records, total, err := h.entryService.Paginate(dbctx.New(c.Request.Context()), req.ModelID, req.Page, req.PageSize, req.Criteria)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"entries": records, "total": total})
}

// POST /api/entries/delete
func (h *EntriesHandler) Delete(c *gin.Context) {
	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.entryService.DeleteMany(dbctx.New(c.Request.Context()), req.IDs, actorID(c)); err != nil {
		RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/entries/restore
func (h *EntriesHandler) Restore(c *gin.Context) {
	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.entryService.Restore(dbctx.New(c.Request.Context()), req.IDs); err != nil {
		RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
