package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func (s *Server) GetRefundEligibility(c *gin.Context) {
	purchaseID, err := parsePurchaseID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.refundSvc.EvaluatePurchase(c.Request.Context(), purchaseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type issueRefundRequest struct {
	ReasonCode string `json:"reason_code"`
}

func (s *Server) IssueRefund(c *gin.Context) {
	purchaseID, err := parsePurchaseID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req issueRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	refund, err := s.refundSvc.IssueRefund(c.Request.Context(), purchaseID, strings.TrimSpace(req.ReasonCode))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": refund})
}

func parsePurchaseID(c *gin.Context) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		return 0, newValidationError("id", "invalid_purchase_id", "invalid purchase id")
	}
	return id, nil
}
