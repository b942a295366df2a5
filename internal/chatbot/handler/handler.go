package handler

import (
	"net/http"

	"funnel_backend/internal/chatbot/service"
	"funnel_backend/internal/chatbot/transport"
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
	flows := rg.Group("/chatbot-flows")
	flows.GET("", h.ListFlows)
	flows.POST("", h.CreateFlow)
	flows.PATCH("/:id/active", h.ToggleFlow)

	rg.GET("/deals/:id/chatbot-executions", h.ListDealExecutions)
}

func (h *Handler) ListFlows(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListFlows(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) CreateFlow(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	var req transport.CreateFlowRequest
	if !httpkit.BindJSON(c, h.val, &req, validator.Describe) {
		return
	}
	resp, err := h.svc.CreateFlow(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

func (h *Handler) ToggleFlow(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	flowID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req transport.ToggleFlowRequest
	if !httpkit.BindJSON(c, h.val, &req, validator.Describe) {
		return
	}
	resp, err := h.svc.ToggleFlow(c.Request.Context(), tenantID, flowID, *req.IsActive)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) ListDealExecutions(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	dealID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListDealExecutions(c.Request.Context(), tenantID, dealID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}
