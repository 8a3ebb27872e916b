package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	webhookdomain "github.com/courtside/paywall/internal/webhook/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))

	allowed, err := s.limiter.AllowWebhook(c.Request.Context(), provider)
	if err != nil {
		allowed = true
	}
	if !allowed {
		AbortWithError(c, ErrTooManyRequests)
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err = s.webhookSvc.IngestWebhook(c.Request.Context(), provider, s.notificationURL(c), payload, c.Request.Header)
	if err != nil {
		if errors.Is(err, webhookdomain.ErrEventAlreadyProcessed) {
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// notificationURL is the URL the provider signed. The configured value wins
// because proxies rewrite Host; reconstruction is a local-dev fallback.
func (s *Server) notificationURL(c *gin.Context) string {
	if s.cfg.WebhookURL != "" {
		return s.cfg.WebhookURL
	}
	scheme := "https"
	if c.Request.TLS == nil {
		scheme = "http"
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.Path
}
