// Package handler exposes the calls module over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"callqa_backend/internal/calls/domain"
	"callqa_backend/internal/calls/repository"
	"callqa_backend/internal/calls/service"
	"callqa_backend/internal/calls/transport"
	"callqa_backend/platform/httpkit"
	"callqa_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid call id"
	msgMissingAudio     = "audio file is required"
)

// Handler handles HTTP requests for calls.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new calls handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Ingest accepts a multipart call upload.
// POST /api/v1/calls
func (h *Handler) Ingest(c *gin.Context) {
	var req transport.IngestCallRequest
	if err := c.ShouldBind(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgMissingAudio, nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "could not read audio file", nil)
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	result, err := h.svc.Ingest(c.Request.Context(), req, file, fileHeader.Filename, contentType, fileHeader.Size)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// Status reports the call's pipeline position.
// GET /api/v1/calls/:id/status
func (h *Handler) Status(c *gin.Context) {
	id, ok := h.callID(c)
	if !ok {
		return
	}
	result, err := h.svc.Status(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Detail returns the call with its insight and playback URL.
// GET /api/v1/calls/:id
func (h *Handler) Detail(c *gin.Context) {
	id, ok := h.callID(c)
	if !ok {
		return
	}
	result, err := h.svc.Detail(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// List returns recent calls with optional filters.
// GET /api/v1/calls?status=&agent_id=&city_id=&limit=&offset=
func (h *Handler) List(c *gin.Context) {
	var f repository.ListFilter
	f.Status = domain.Status(c.Query("status"))
	if v := c.Query("agent_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid agent_id", nil)
			return
		}
		f.AgentID = &id
	}
	if v := c.Query("city_id"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid city_id", nil)
			return
		}
		id := int32(n)
		f.CityID = &id
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	result, err := h.svc.ListCalls(c.Request.Context(), f)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Reprocess re-drives a stalled call.
// POST /api/v1/calls/:id/process
func (h *Handler) Reprocess(c *gin.Context) {
	id, ok := h.callID(c)
	if !ok {
		return
	}
	if err := h.svc.Reprocess(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "queued"})
}

// UpdateRemarks sets reviewer remarks on an analyzed call.
// PATCH /api/v1/calls/:id/remarks
func (h *Handler) UpdateRemarks(c *gin.Context) {
	id, ok := h.callID(c)
	if !ok {
		return
	}
	var req transport.UpdateRemarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	if err := h.svc.UpdateRemarks(c.Request.Context(), id, req.HumanRemarks); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "updated"})
}

func (h *Handler) callID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}
