package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/echolabs/twinsight-backend/internal/services"
)

type EventHandler struct {
	eventSync services.EventSyncService
}

func NewEventHandler(eventSync services.EventSyncService) *EventHandler {
	return &EventHandler{eventSync: eventSync}
}

type syncEventsRequest struct {
	Events []services.TriggerEventInput `json:"events" binding:"required"`
}

func (h *EventHandler) SyncEvents(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req syncEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	count, err := h.eventSync.SyncTriggerEvents(c.Request.Context(), userID, req.Events)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": count})
}

type recordActivitiesRequest struct {
	Activities []services.ActivityEventInput `json:"activities" binding:"required"`
}

func (h *EventHandler) RecordActivities(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req recordActivitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	count, err := h.eventSync.RecordActivityEvents(c.Request.Context(), userID, req.Activities)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": count})
}
