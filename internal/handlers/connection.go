package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/echolabs/twinsight-backend/internal/services"
)

type ConnectionHandler struct {
	tokenProvider services.TokenProviderService
}

func NewConnectionHandler(tokenProvider services.TokenProviderService) *ConnectionHandler {
	return &ConnectionHandler{tokenProvider: tokenProvider}
}

func (h *ConnectionHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	connections, err := h.tokenProvider.ListConnections(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connections": connections})
}

type connectRequest struct {
	Platform     string     `json:"platform" binding:"required"`
	AccessToken  string     `json:"access_token" binding:"required"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

func (h *ConnectionHandler) Connect(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.tokenProvider.StoreTokens(c.Request.Context(), userID, req.Platform, req.AccessToken, req.RefreshToken, req.ExpiresAt); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "connected"})
}

func (h *ConnectionHandler) Disconnect(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	platform := c.Param("platform")
	if err := h.tokenProvider.Disconnect(c.Request.Context(), userID, platform); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}
