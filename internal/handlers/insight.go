package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/echolabs/twinsight-backend/internal/services"
)

type InsightHandler struct {
	insightService services.InsightService
}

func NewInsightHandler(insightService services.InsightService) *InsightHandler {
	return &InsightHandler{insightService: insightService}
}

func (h *InsightHandler) GetTraits(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	profile, err := h.insightService.GetTraitProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (h *InsightHandler) ListEvidence(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	records, err := h.insightService.ListEvidence(c.Request.Context(), userID, c.Query("dimension"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"evidence": records})
}

func (h *InsightHandler) ListPatterns(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	patterns, err := h.insightService.ListPatterns(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patterns": patterns})
}

func (h *InsightHandler) DeactivatePattern(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	patternID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pattern id"})
		return
	}
	if err := h.insightService.DeactivatePattern(c.Request.Context(), userID, patternID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

func (h *InsightHandler) DeletePattern(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	patternID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pattern id"})
		return
	}
	if err := h.insightService.DeletePattern(c.Request.Context(), userID, patternID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
