package app

import (
	"github.com/echolabs/twinsight-backend/internal/handlers"
	"github.com/echolabs/twinsight-backend/internal/logger"
	"github.com/echolabs/twinsight-backend/internal/sse"
)

type Handlers struct {
	Insight    *handlers.InsightHandler
	Connection *handlers.ConnectionHandler
	Event      *handlers.EventHandler
	Extraction *handlers.ExtractionHandler
	SSE        *handlers.SSEHandler
}

func wireHandlers(log *logger.Logger, serviceset Services, sseHub *sse.Hub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Insight:    handlers.NewInsightHandler(serviceset.Insight),
		Connection: handlers.NewConnectionHandler(serviceset.TokenProvider),
		Event:      handlers.NewEventHandler(serviceset.EventSync),
		Extraction: handlers.NewExtractionHandler(serviceset.SignalIngestion, serviceset.PatternTracker),
		SSE:        handlers.NewSSEHandler(log, sseHub),
	}
}
