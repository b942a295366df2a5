package handler

import (
	"net/http"

	"funnel_backend/internal/funnels/service"
	"funnel_backend/internal/funnels/transport"
	"funnel_backend/platform/httpkit"
	"funnel_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateDeal(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	var req transport.CreateDealRequest
	if !httpkit.BindJSON(c, h.val, &req, validator.Describe) {
		return
	}
	res, err := h.svc.CreateDeal(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, service.ToDealChangeResponse(res))
}

func (h *Handler) GetDeal(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	dealID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetDeal(c.Request.Context(), tenantID, dealID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) ListDealHistory(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	dealID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListDealHistory(c.Request.Context(), tenantID, dealID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// MoveDeal moves a deal to another stage and reports the automations the
// move triggered.
func (h *Handler) MoveDeal(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	dealID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req transport.MoveDealRequest
	if !httpkit.BindJSON(c, h.val, &req, validator.Describe) {
		return
	}
	res, err := h.svc.MoveStage(c.Request.Context(), service.MoveStageInput{
		TenantID:      &tenantID,
		DealID:        dealID,
		FromStageID:   req.FromStageID,
		ToStageID:     req.ToStageID,
		Note:          req.Note,
		CloseReasonID: req.CloseReasonID,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, service.ToDealChangeResponse(res))
}

func (h *Handler) SetCustomField(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	dealID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req transport.SetCustomFieldRequest
	if !httpkit.BindJSON(c, h.val, &req, validator.Describe) {
		return
	}
	res, err := h.svc.SetDealCustomField(c.Request.Context(), tenantID, dealID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, service.ToDealChangeResponse(res))
}
