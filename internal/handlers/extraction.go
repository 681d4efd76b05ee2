package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/echolabs/twinsight-backend/internal/services"
)

// defaultIngestLookbackDays is how far back an extraction reaches when the
// request does not say.
const defaultIngestLookbackDays = 30

type ExtractionHandler struct {
	ingestion services.SignalIngestionService
	tracker   services.PatternTrackerService
}

func NewExtractionHandler(ingestion services.SignalIngestionService, tracker services.PatternTrackerService) *ExtractionHandler {
	return &ExtractionHandler{ingestion: ingestion, tracker: tracker}
}

func (h *ExtractionHandler) lookback(c *gin.Context) time.Time {
	days := defaultIngestLookbackDays
	if raw := c.Query("days"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			days = v
		}
	}
	return time.Now().UTC().AddDate(0, 0, -days)
}

// Extract runs ingestion for one platform or, with no platform given, all of
// them.
func (h *ExtractionHandler) Extract(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	since := h.lookback(c)
	if platform := c.Query("platform"); platform != "" {
		result, err := h.ingestion.IngestPlatform(c.Request.Context(), userID, platform, since)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": result})
		return
	}
	batch, err := h.ingestion.IngestAll(c.Request.Context(), userID, since)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batch": batch})
}

func (h *ExtractionHandler) ListJobs(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	jobs, err := h.ingestion.ListRecentJobs(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// RunTrackerCycle runs one tracking cycle for the caller on demand.
func (h *ExtractionHandler) RunTrackerCycle(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	result, err := h.tracker.RunCycleForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cycle": result})
}
