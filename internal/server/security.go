package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	licensedomain "github.com/smallbiznis/warden/internal/license/domain"
)

func (s *Server) GetAbuseReport(c *gin.Context) {
	days := 7
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			AbortWithError(c, licensedomain.ErrInvalidRequest)
			return
		}
		days = parsed
	}

	report, err := s.security.Report(c.Request.Context(), days)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) UnblockIP(c *gin.Context) {
	var req struct {
		IP string `json:"ip"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.IP) == "" {
		AbortWithError(c, licensedomain.ErrInvalidRequest)
		return
	}

	if err := s.security.Unblock(c.Request.Context(), req.IP); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "ip unblocked"})
}
