package handler

import (
	"net/http"

	"funnel_backend/internal/contacts/service"
	"funnel_backend/internal/contacts/transport"
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
	contacts := rg.Group("/contacts")
	contacts.GET("", h.ListContacts)
	contacts.POST("", h.CreateContact)
	contacts.GET("/:id", h.GetContact)
}

func (h *Handler) ListContacts(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListContacts(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) CreateContact(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	var req transport.CreateContactRequest
	if !httpkit.BindJSON(c, h.val, &req, validator.Describe) {
		return
	}
	resp, err := h.svc.CreateContact(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

func (h *Handler) GetContact(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenant(c)
	if !ok {
		return
	}
	contactID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetContact(c.Request.Context(), tenantID, contactID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}
