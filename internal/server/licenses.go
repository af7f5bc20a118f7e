package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	licensedomain "github.com/smallbiznis/warden/internal/license/domain"
)

// CreateLicense issues a new license. The plaintext credential triple is
// returned here and never again.
func (s *Server) CreateLicense(c *gin.Context) {
	var req licensedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, licensedomain.ErrInvalidRequest)
		return
	}

	license, err := s.licenses.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "license created",
		"license": license,
	})
}

func (s *Server) ListLicenses(c *gin.Context) {
	licenses, err := s.licenses.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"licenses": licenses})
}

func (s *Server) RevokeLicense(c *gin.Context) {
	if err := s.licenses.Revoke(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "license revoked"})
}
