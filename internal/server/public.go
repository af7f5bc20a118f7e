package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"name":    s.cfg.AppName,
		"version": s.cfg.AppVersion,
		"time":    s.clock.Now().Format(time.RFC3339),
	})
}
