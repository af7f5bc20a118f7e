package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/warden/internal/billing"
	licensedomain "github.com/smallbiznis/warden/internal/license/domain"
	securitydomain "github.com/smallbiznis/warden/internal/security/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrIPBlocked   = errors.New("ip_blocked")
	ErrRateLimited = errors.New("rate_limited")
	ErrInternal    = errors.New("internal_error")
)

// ErrorHandlingMiddleware maps domain errors collected on the context to the
// wire taxonomy. Raw store errors never reach the client.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, licensedomain.ErrMissingCredentials):
		return http.StatusUnauthorized, errorPayload{
			Type:    "missing_credentials",
			Message: "missing API credentials",
		}
	case errors.Is(err, licensedomain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorPayload{
			Type:    "invalid_credentials",
			Message: "invalid API credentials",
		}
	case errors.Is(err, licensedomain.ErrLicenseInactive):
		return http.StatusForbidden, errorPayload{
			Type:    "license_inactive",
			Message: "license is not active",
		}
	case errors.Is(err, licensedomain.ErrLicenseExpired):
		return http.StatusForbidden, errorPayload{
			Type:    "license_expired",
			Message: "license has expired",
		}
	case errors.Is(err, ErrIPBlocked):
		return http.StatusForbidden, errorPayload{
			Type:    "ip_blocked",
			Message: "access temporarily blocked due to suspicious activity",
		}
	case errors.Is(err, licensedomain.ErrQuotaExceeded):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "quota_exceeded",
			Message: "request quota exceeded",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, licensedomain.ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "invalid request",
		}
	case errors.Is(err, licensedomain.ErrNotFound),
		errors.Is(err, securitydomain.ErrNotBlocked):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, billing.ErrNotConfigured):
		return http.StatusNotImplemented, errorPayload{
			Type:    "not_configured",
			Message: "billing is not configured",
		}
	case errors.Is(err, billing.ErrInvalidSignature):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_signature",
			Message: "webhook signature verification failed",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog labels request-log lines with the taxonomy type.
func classifyErrorForLog(err error) string {
	if err == nil {
		return ""
	}
	_, payload := mapError(err)
	return payload.Type
}
