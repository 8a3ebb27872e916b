package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	purchasedomain "github.com/courtside/paywall/internal/purchase/domain"
	"github.com/gin-gonic/gin"
)

type createCheckoutRequest struct {
	ProductID  string  `json:"product_id"`
	PayerEmail string  `json:"payer_email"`
	PayerPhone *string `json:"payer_phone"`
	ReturnURL  *string `json:"return_url"`
}

func (s *Server) CreateCheckout(c *gin.Context) {
	allowed, err := s.limiter.AllowCheckout(c.Request.Context(), c.ClientIP())
	if err != nil {
		// Redis trouble should not take checkout down.
		allowed = true
	}
	if !allowed {
		AbortWithError(c, ErrTooManyRequests)
		return
	}

	var req createCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	productID, err := snowflake.ParseString(strings.TrimSpace(req.ProductID))
	if err != nil {
		AbortWithError(c, newValidationError("product_id", "invalid_product_id", "invalid product id"))
		return
	}

	resp, err := s.purchaseSvc.CreatePurchase(c.Request.Context(), purchasedomain.CreatePurchaseRequest{
		ProductID:  productID,
		PayerEmail: strings.TrimSpace(req.PayerEmail),
		PayerPhone: req.PayerPhone,
		ReturnURL:  req.ReturnURL,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
