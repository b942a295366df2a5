package handler

import (
	"net/http"

	"funnel_backend/internal/activities/service"
	"funnel_backend/internal/activities/transport"
	"funnel_backend/platform/httpkit"
	"funnel_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/deals/:id/notes", h.ListNotes)
	rg.POST("/deals/:id/notes", h.AddNote)
	rg.GET("/deals/:id/tasks", h.ListTasks)
	rg.PATCH("/tasks/:id/status", h.UpdateTaskStatus)
}

func (h *Handler) ListNotes(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	dealID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListNotes(c.Request.Context(), tenantID, dealID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) AddNote(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	dealID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req transport.CreateNoteRequest
	if !httpkit.BindJSON(c, h.val, &req, validator.Describe) {
		return
	}
	resp, err := h.svc.AddNote(c.Request.Context(), tenantID, dealID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

func (h *Handler) ListTasks(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	dealID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListTasks(c.Request.Context(), tenantID, dealID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) UpdateTaskStatus(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	taskID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req transport.UpdateTaskStatusRequest
	if !httpkit.BindJSON(c, h.val, &req, validator.Describe) {
		return
	}
	resp, err := h.svc.UpdateTaskStatus(c.Request.Context(), tenantID, taskID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}
