package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reshmacrochets/backend/internal/domain"
)

// envelope is the uniform response shape. Exactly one of User or Data is
// set for success payloads; Errors carries field-level validation detail.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	User    any    `json:"user,omitempty"`
	Data    any    `json:"data,omitempty"`
	Token   string `json:"token,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, envelope{Success: true, Message: message})
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func respondUser(c *gin.Context, status int, user any) {
	c.JSON(status, envelope{Success: true, User: user})
}

func respondValidation(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, envelope{
		Success: false,
		Message: "Validation failed",
		Errors:  err.Error(),
	})
}

// statusFor maps the domain sentinels onto HTTP statuses. Anything
// unmatched is an internal error the client gets no detail about.
func statusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrDuplicateEmail),
		errors.Is(err, domain.ErrDuplicateReview),
		errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrAlreadyVerified):
		return http.StatusBadRequest, true
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, true
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, true
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, domain.ErrAccountLocked):
		return http.StatusLocked, true
	case errors.Is(err, domain.ErrEmailSend):
		return http.StatusInternalServerError, true
	}
	return http.StatusInternalServerError, false
}

func (s *Server) respondError(c *gin.Context, err error) {
	status, known := statusFor(err)

	message := "Server Error"
	if known {
		message = err.Error()
	} else {
		s.log.Error("unhandled error",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	if status == http.StatusLocked {
		message = "Account is temporarily locked due to too many failed login attempts"
	}

	c.AbortWithStatusJSON(status, envelope{Success: false, Message: message})
}
