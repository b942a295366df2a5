package handler

import (
	"net/http"

	"funnel_backend/internal/automation/service"
	"funnel_backend/internal/automation/transport"
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

// RegisterRoutes mounts rule management under rg. The event endpoint gets
// its own rate limiter since it is called by integrations, not people.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, eventLimiter gin.HandlerFunc) {
	rg.GET("/funnels/:id/automations", h.ListRules)

	automations := rg.Group("/automations")
	automations.POST("", h.CreateRule)
	automations.GET("/:id", h.GetRule)
	automations.PUT("/:id", h.UpdateRule)
	automations.PATCH("/:id/active", h.ToggleRule)
	automations.DELETE("/:id", h.DeleteRule)

	if eventLimiter != nil {
		automations.POST("/events", eventLimiter, h.ProcessEvent)
	} else {
		automations.POST("/events", h.ProcessEvent)
	}
}

func (h *Handler) ListRules(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	funnelID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListRules(c.Request.Context(), tenantID, funnelID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) CreateRule(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	var req transport.RuleRequest
	if !httpkit.BindJSON(c, h.val, &req, validator.Describe) {
		return
	}
	resp, err := h.svc.CreateRule(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

func (h *Handler) GetRule(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	ruleID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetRule(c.Request.Context(), tenantID, ruleID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) UpdateRule(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	ruleID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req transport.RuleRequest
	if !httpkit.BindJSON(c, h.val, &req, validator.Describe) {
		return
	}
	resp, err := h.svc.UpdateRule(c.Request.Context(), tenantID, ruleID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) ToggleRule(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	ruleID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req transport.ToggleRuleRequest
	if !httpkit.BindJSON(c, h.val, &req, validator.Describe) {
		return
	}
	resp, err := h.svc.ToggleRule(c.Request.Context(), tenantID, ruleID, *req.IsActive)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) DeleteRule(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	ruleID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.DeleteRule(c.Request.Context(), tenantID, ruleID)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ProcessEvent(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	var req transport.ProcessEventRequest
	if !httpkit.BindJSON(c, h.val, &req, validator.Describe) {
		return
	}
	resp, err := h.svc.ProcessEvent(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}
