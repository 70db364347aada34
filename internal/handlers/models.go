package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/datakit-backend/internal/pkg/dbctx"
	"github.com/yungbote/datakit-backend/internal/pkg/logger"
	"github.com/yungbote/datakit-backend/internal/services"
)

type ModelsHandler struct {
	log          *logger.Logger
	modelService services.ModelService
}

func NewModelsHandler(baseLog *logger.Logger, msvc services.ModelService) *ModelsHandler {
	return &ModelsHandler{
		log:          baseLog.With("handler", "ModelsHandler"),
		modelService: msvc,
	}
}

type createModelRequest struct {
	Document map[string]any `json:"document" binding:"required"`
}

// POST /api/models
func (h *ModelsHandler) Create(c *gin.Context) {
	var req createModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	id, err := h.modelService.Create(dbctx.New(c.Request.Context()), req.Document, actorID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"id": id})
}

type updateModelRequest struct {
	Document          map[string]any `json:"document" binding:"required"`
	ExpectedVersionID *uuid.UUID     `json:"expected_version_id"`
}

// PATCH /api/models/:id
func (h *ModelsHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var req updateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.modelService.Update(dbctx.New(c.Request.Context()), id, req.Document, actorID(c), req.ExpectedVersionID); err != nil {
		RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/models/:id
func (h *ModelsHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	record, err := h.modelService.Find(dbctx.New(c.Request.Context()), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"model": record})
}

// GET /api/models/deleted/:id
func (h *ModelsHandler) GetDeleted(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	record, err := h.modelService.FindDeleted(dbctx.New(c.Request.Context()), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"model": record})
}

type paginateRequest struct {
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Criteria services.Criteria `json:"criteria"`
}

// POST /api/models/search
func (h *ModelsHandler) Paginate(c *gin.Context) {
	var req paginateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	records, total, err := h.modelService.Paginate(dbctx.New(c.Request.Context()), req.Page, req.PageSize, req.Criteria)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"models": records, "total": total})
}

type idsRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required"`
}

// POST /api/models/delete
func (h *ModelsHandler) Delete(c *gin.Context) {
	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.modelService.DeleteMany(dbctx.New(c.Request.Context()), req.IDs, actorID(c)); err != nil {
		RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/models/restore
func (h *ModelsHandler) Restore(c *gin.Context) {
	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.modelService.Restore(dbctx.New(c.Request.Context()), req.IDs); err != nil {
		RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// actorID pulls the acting user from the X-Actor-ID header when present.
// Authn lives in front of this service; the header is trusted as-is.
func actorID(c *gin.Context) *uuid.UUID {
	raw := c.GetHeader("X-Actor-ID")
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}
