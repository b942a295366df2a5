package httpkit

import (
	"funnel_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Caller is the authenticated principal behind a request.
type Caller struct {
	UserID uuid.UUID
	// TenantID is nil for tokens issued without an organization.
	TenantID *uuid.UUID
}

// GetCaller reads the identity AuthRequired stored on the context. ok is
// false for anonymous requests.
func GetCaller(c *gin.Context) (Caller, bool) {
	raw, exists := c.Get(ContextUserIDKey)
	if !exists {
		return Caller{}, false
	}
	userID, isUUID := raw.(uuid.UUID)
	if !isUUID {
		return Caller{}, false
	}

	caller := Caller{UserID: userID}
	if tenant, exists := c.Get(ContextTenantIDKey); exists {
		if tid, isUUID := tenant.(uuid.UUID); isUUID {
			caller.TenantID = &tid
		}
	}
	return caller, true
}

// MustGetTenant returns the caller's tenant. It aborts with 401 when the
// caller is anonymous and 403 when the token carries no tenant.
func MustGetTenant(c *gin.Context) (uuid.UUID, bool) {
	caller, ok := GetCaller(c)
	if !ok {
		HandleError(c, apperr.Unauthorized("unauthorized"))
		c.Abort()
		return uuid.Nil, false
	}
	if caller.TenantID == nil {
		HandleError(c, apperr.Forbidden("organization required"))
		c.Abort()
		return uuid.Nil, false
	}
	return *caller.TenantID, true
}
