package routes

import (
	"net/http"
	"yolodetector/internal/handlers"
	"yolodetector/internal/logger"
	"yolodetector/internal/middleware"
	"yolodetector/internal/repository"
	hub "yolodetector/internal/services/websocket"
)

// Dependencies groups what the preview routes need. Runs and Detections may
// be nil when the journal is disabled.
type Dependencies struct {
	Hub        *hub.HubService
	Runs       repository.RunRepository
	Detections repository.DetectionRepository
	Logger     *logger.Logger
	Token      string
}

// SetupRoutes registers the preview endpoints and wraps the mux with the
// token middleware.
func SetupRoutes(deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/view", handlers.ViewWebsocketHandler(deps.Hub, deps.Logger))

	if deps.Runs != nil && deps.Detections != nil {
		mux.HandleFunc("/api/runs", handlers.RunsHandler(deps.Runs, deps.Logger))
		mux.HandleFunc("/api/runs/detections", handlers.RunDetectionsHandler(deps.Runs, deps.Detections, deps.Logger))
	}

	// Log endpoints
	mux.HandleFunc("/logs/info", handlers.ShowLogsHandler(deps.Logger, logger.InfoFile))
	mux.HandleFunc("/logs/warning", handlers.ShowLogsHandler(deps.Logger, logger.WarningFile))
	mux.HandleFunc("/logs/error", handlers.ShowLogsHandler(deps.Logger, logger.ErrorFile))

	mux.HandleFunc("/logs/info/clear", handlers.ClearLogsHandler(deps.Logger, logger.InfoFile))
	mux.HandleFunc("/logs/warning/clear", handlers.ClearLogsHandler(deps.Logger, logger.WarningFile))
	mux.HandleFunc("/logs/error/clear", handlers.ClearLogsHandler(deps.Logger, logger.ErrorFile))

	return middleware.TokenMiddleware(deps.Token, mux)
}
