// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"errors"
	"net/http"

	"funnel_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	MsgInvalidRequest   = "invalid request"
	MsgValidationFailed = "validation failed"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

func Error(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// HandleError maps domain errors to HTTP responses. Typed *apperr.Error values
// use their Kind; anything else is reported as an opaque 500.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		message := domainErr.Message
		if domainErr.Kind == apperr.KindInternal {
			message = "internal server error"
		}
		_ = c.Error(err)
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{Error: message, Details: domainErr.Details})
		return true
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	return true
}

// StructValidator is satisfied by *validator.Validator.
type StructValidator interface {
	Struct(s any) error
}

// BindJSON decodes the request body into dst and validates it. On failure it
// writes a 400 response and returns false.
func BindJSON(c *gin.Context, val StructValidator, dst any, describe func(error) []string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		Error(c, http.StatusBadRequest, MsgInvalidRequest, nil)
		return false
	}
	if err := val.Struct(dst); err != nil {
		var details any = err.Error()
		if describe != nil {
			details = describe(err)
		}
		Error(c, http.StatusBadRequest, MsgValidationFailed, details)
		return false
	}
	return true
}

// ParamUUID parses a path parameter. On failure it writes a 400 response
// and returns false.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		HandleError(c, apperr.BadRequest(MsgInvalidRequest).WithDetails(name+" must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}
