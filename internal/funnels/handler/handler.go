package handler

import (
	"net/http"

	"funnel_backend/internal/funnels/service"
	"funnel_backend/internal/funnels/transport"
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
	funnels := rg.Group("/funnels")
	funnels.GET("", h.ListFunnels)
	funnels.POST("", h.CreateFunnel)
	funnels.GET("/:id", h.GetFunnel)
	funnels.DELETE("/:id", h.DeleteFunnel)
	funnels.POST("/:id/stages", h.CreateStage)
	funnels.PUT("/:id/stages/:stageId", h.UpdateStage)
	funnels.DELETE("/:id/stages/:stageId", h.DeleteStage)
	funnels.PUT("/:id/stage-order", h.ReorderStages)

	deals := rg.Group("/deals")
	deals.POST("", h.CreateDeal)
	deals.GET("/:id", h.GetDeal)
	deals.GET("/:id/history", h.ListDealHistory)
	deals.POST("/:id/move", h.MoveDeal)
	deals.PUT("/:id/custom-fields", h.SetCustomField)
}

func (h *Handler) ListFunnels(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListFunnels(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) CreateFunnel(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	var req transport.CreateFunnelRequest
	if !httpkit.BindJSON(c, h.val, &req, validator.Describe) {
		return
	}
	resp, err := h.svc.CreateFunnel(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

func (h *Handler) GetFunnel(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	funnelID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetFunnel(c.Request.Context(), tenantID, funnelID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) DeleteFunnel(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	funnelID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.DeleteFunnel(c.Request.Context(), tenantID, funnelID)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CreateStage(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	funnelID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req transport.StageRequest
	if !httpkit.BindJSON(c, h.val, &req, validator.Describe) {
		return
	}
	resp, err := h.svc.CreateStage(c.Request.Context(), tenantID, funnelID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

func (h *Handler) UpdateStage(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	funnelID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	stageID, ok := httpkit.ParamUUID(c, "stageId")
	if !ok {
		return
	}
	var req transport.StageRequest
	if !httpkit.BindJSON(c, h.val, &req, validator.Describe) {
		return
	}
	resp, err := h.svc.UpdateStage(c.Request.Context(), tenantID, funnelID, stageID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) DeleteStage(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	funnelID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	stageID, ok := httpkit.ParamUUID(c, "stageId")
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.DeleteStage(c.Request.Context(), tenantID, funnelID, stageID)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ReorderStages(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	funnelID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req transport.ReorderStagesRequest
	if !httpkit.BindJSON(c, h.val, &req, validator.Describe) {
		return
	}
	resp, err := h.svc.ReorderStages(c.Request.Context(), tenantID, funnelID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}
