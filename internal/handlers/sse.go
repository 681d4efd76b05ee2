package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/echolabs/twinsight-backend/internal/logger"
	"github.com/echolabs/twinsight-backend/internal/sse"
)

type SSEHandler struct {
	log *logger.Logger
	hub *sse.Hub
}

func NewSSEHandler(log *logger.Logger, hub *sse.Hub) *SSEHandler {
	return &SSEHandler{log: log.With("handler", "SSEHandler"), hub: hub}
}

// Stream subscribes the caller to their own notification channel and streams
// until the connection drops.
func (h *SSEHandler) Stream(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	client := h.hub.NewClient(userID)
	h.hub.AddChannel(client, sse.UserChannel(userID))
	defer h.hub.CloseClient(client)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
