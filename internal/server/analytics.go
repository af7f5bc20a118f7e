package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetGlobalAnalytics(c *gin.Context) {
	summaries, err := s.analytics.GlobalSummary(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"analytics": summaries})
}

func (s *Server) GetLicenseAnalytics(c *gin.Context) {
	license := licenseFrom(c)
	if license == nil {
		AbortWithError(c, ErrInternal)
		return
	}

	report, err := s.analytics.LicenseReport(c.Request.Context(), license.ID, c.Query("period"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
