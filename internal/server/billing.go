package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/warden/internal/billing"
	licensedomain "github.com/smallbiznis/warden/internal/license/domain"
)

func (s *Server) CreateCheckout(c *gin.Context) {
	var req billing.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, licensedomain.ErrInvalidRequest)
		return
	}

	session, err := s.billing.CreateCheckoutSession(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (s *Server) HandleBillingWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		AbortWithError(c, licensedomain.ErrInvalidRequest)
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if err := s.billing.HandleWebhookEvent(c.Request.Context(), payload, signature); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
