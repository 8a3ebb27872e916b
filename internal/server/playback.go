package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type openSessionRequest struct {
	TokenID string `json:"token_id"`
}

func (s *Server) OpenPlaybackSession(c *gin.Context) {
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.TokenID) == "" {
		AbortWithError(c, newValidationError("token_id", "invalid_token_id", "invalid token id"))
		return
	}

	session, err := s.playbackSvc.OpenSession(c.Request.Context(), strings.TrimSpace(req.TokenID))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}

type heartbeatRequest struct {
	WatchMs      int64 `json:"watch_ms"`
	BufferMs     int64 `json:"buffer_ms"`
	BufferEvents int64 `json:"buffer_events"`
	FatalErrors  int64 `json:"fatal_errors"`
}

func (s *Server) PlaybackHeartbeat(c *gin.Context) {
	sessionID, err := parseSessionID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req heartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.playbackSvc.Heartbeat(c.Request.Context(), sessionID, req.WatchMs, req.BufferMs, req.BufferEvents, req.FatalErrors); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ClosePlaybackSession(c *gin.Context) {
	sessionID, err := parseSessionID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.playbackSvc.CloseSession(c.Request.Context(), sessionID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseSessionID(c *gin.Context) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		return 0, newValidationError("id", "invalid_session_id", "invalid session id")
	}
	return id, nil
}
