package server

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	licensedomain "github.com/smallbiznis/warden/internal/license/domain"
)

func (s *Server) GetLicenseStatus(c *gin.Context) {
	license := licenseFrom(c)
	if license == nil {
		AbortWithError(c, ErrInternal)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         license.Status,
		"company":        license.CompanyName,
		"plan":           license.PlanType,
		"requests_used":  license.RequestsUsed,
		"requests_limit": license.RequestsLimit,
		"expires_at":     license.ExpiresAt,
	})
}

// ProcessAudio is the representative metered workload: it accepts a job,
// answers immediately, and delivers the result through a webhook event.
func (s *Server) ProcessAudio(c *gin.Context) {
	license := licenseFrom(c)
	if license == nil {
		AbortWithError(c, ErrInternal)
		return
	}

	var req struct {
		AudioURL string `json:"audio_url"`
		Format   string `json:"format"`
		Quality  string `json:"quality"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.AudioURL == "" {
		AbortWithError(c, licensedomain.ErrInvalidRequest)
		return
	}

	format := req.Format
	if format == "" {
		format = "mp3"
	}
	quality := req.Quality
	if quality == "" {
		quality = "high"
	}

	jobID := uuid.NewString()
	payload := gin.H{
		"job_id":     jobID,
		"audio_url":  req.AudioURL,
		"format":     format,
		"quality":    quality,
		"result_url": fmt.Sprintf("https://cdn.example.com/processed/%s.%s", jobID, format),
		"duration":   rand.Intn(300) + 10,
	}

	detached := context.WithoutCancel(c.Request.Context())
	licenseID := license.ID
	go func() {
		ctx, cancel := context.WithTimeout(detached, accountingTimeout)
		defer cancel()
		s.webhooks.Trigger(ctx, licenseID, "processing_complete", payload)
	}()

	c.JSON(http.StatusOK, gin.H{
		"message":        "processing started",
		"job_id":         jobID,
		"status":         "processing",
		"estimated_time": "30-60 seconds",
	})
}

func (s *Server) ListWebhooks(c *gin.Context) {
	license := licenseFrom(c)
	if license == nil {
		AbortWithError(c, ErrInternal)
		return
	}

	events, err := s.webhooks.ListByLicense(c.Request.Context(), license.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"webhooks": events})
}
