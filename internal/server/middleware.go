package server

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/smallbiznis/warden/internal/analytics/domain"
	licensedomain "github.com/smallbiznis/warden/internal/license/domain"
	"github.com/smallbiznis/warden/internal/ratelimit"
	securitydomain "github.com/smallbiznis/warden/internal/security/domain"
)

const licenseContextKey = "warden.license"

// accountingTimeout bounds the post-response work done on behalf of a
// request after the client already has its answer.
const accountingTimeout = 10 * time.Second

// BlockedIPCheck rejects blocked IPs before any credential work. Runs first
// in the pipeline.
func (s *Server) BlockedIPCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.security.IsBlocked(c.Request.Context(), c.ClientIP()) {
			s.metrics.RecordBlockedIPRejection()
			AbortWithError(c, ErrIPBlocked)
			return
		}
		c.Next()
	}
}

// RateLimit takes one token from the tier's bucket for the client IP.
func (s *Server) RateLimit(tier ratelimit.Tier) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := s.limiter.Allow(c.Request.Context(), tier, c.ClientIP())
		if res.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		}
		if !res.Allowed {
			seconds := int(math.Ceil(res.RetryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

// APIAuthRequired validates the credential triple and consumes one unit of
// quota. The license is attached to the request context on success.
func (s *Server) APIAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		creds := licensedomain.Credentials{
			APIKey:     bearerToken(c.GetHeader("Authorization")),
			LicenseKey: strings.TrimSpace(c.GetHeader("X-License-Key")),
			SecretKey:  strings.TrimSpace(c.GetHeader("X-Secret-Key")),
		}

		license, err := s.licenses.Authenticate(c.Request.Context(), creds)
		if err != nil {
			s.metrics.RecordAuthFailure(authFailureReason(err))
			if errors.Is(err, licensedomain.ErrInvalidCredentials) {
				s.security.RecordAttempt(c.Request.Context(), attemptFrom(c))
			}
			AbortWithError(c, err)
			return
		}

		c.Set(licenseContextKey, license)
		s.metrics.RecordAdmitted()
		c.Next()
	}
}

// ResponseHooks runs the post-response side effects: abuse escalation on 429
// and usage accounting for admitted requests. Both run on a context detached
// from the request, so a client disconnect cannot cancel them.
func (s *Server) ResponseHooks() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if c.Errors.Last() != nil && !c.Writer.Written() {
			status, _ = mapError(c.Errors.Last().Err)
		}

		if status == http.StatusTooManyRequests {
			attempt := attemptFrom(c)
			detached := context.WithoutCancel(c.Request.Context())
			go func() {
				ctx, cancel := context.WithTimeout(detached, accountingTimeout)
				defer cancel()
				s.security.HandleRateLimited(ctx, attempt)
			}()
		}

		license := licenseFrom(c)
		if license == nil {
			return
		}

		entry := analyticsdomain.Entry{
			LicenseID:    license.ID,
			Endpoint:     c.Request.URL.Path,
			Method:       c.Request.Method,
			StatusCode:   status,
			ResponseTime: time.Since(start),
		}
		detached := context.WithoutCancel(c.Request.Context())
		go func() {
			ctx, cancel := context.WithTimeout(detached, accountingTimeout)
			defer cancel()
			s.analytics.Record(ctx, entry)
			s.billing.RecordUsage(ctx, license, 1)
		}()
	}
}

func licenseFrom(c *gin.Context) *licensedomain.License {
	v, ok := c.Get(licenseContextKey)
	if !ok {
		return nil
	}
	license, ok := v.(*licensedomain.License)
	if !ok {
		return nil
	}
	return license
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func attemptFrom(c *gin.Context) securitydomain.Attempt {
	headers := make(map[string]string, len(c.Request.Header))
	for name, values := range c.Request.Header {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}
	return securitydomain.Attempt{
		IP:       c.ClientIP(),
		Endpoint: c.Request.URL.Path,
		Method:   c.Request.Method,
		Headers:  headers,
	}
}

func authFailureReason(err error) string {
	switch {
	case errors.Is(err, licensedomain.ErrMissingCredentials),
		errors.Is(err, licensedomain.ErrInvalidCredentials),
		errors.Is(err, licensedomain.ErrLicenseInactive),
		errors.Is(err, licensedomain.ErrLicenseExpired),
		errors.Is(err, licensedomain.ErrQuotaExceeded):
		return err.Error()
	default:
		return "store_error"
	}
}
