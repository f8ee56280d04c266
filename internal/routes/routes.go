package routes

import (
	"net/http"

	"scenewatch/internal/handlers"
	"scenewatch/internal/logger"
	"scenewatch/internal/middleware"
	"scenewatch/internal/repository"
	"scenewatch/internal/services/storage"
	"scenewatch/internal/services/websocket"
)

// SetupRoutes registers the detection endpoints, the scene API and the
// live-view websocket, and wraps the mux with the request logging
// middleware.
func SetupRoutes(
	processor handlers.SceneProcessor,
	media *storage.MediaStore,
	scenes repository.SceneRepository,
	detections repository.DetectionRepository,
	hub *websocket.HubService,
	logger *logger.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Detection endpoints
	mux.HandleFunc("/detect/image", handlers.DetectImageHandler(processor, media, logger))
	mux.HandleFunc("/detect/video", handlers.DetectVideoHandler(processor, media, logger))
	mux.HandleFunc("/detect/webcam", handlers.DetectWebcamHandler(processor, logger))
	mux.HandleFunc("/detect/rtsp", handlers.DetectRTSPHandler(processor, logger))

	// Scene API
	mux.HandleFunc("/api/scenes", handlers.ListScenesHandler(scenes, logger))
	mux.HandleFunc("/api/scenes/view", handlers.GetSceneHandler(scenes, detections, logger))
	mux.HandleFunc("/api/scenes/delete", handlers.DeleteSceneHandler(scenes, logger))
	mux.HandleFunc("/api/detections", handlers.DetectionsByClassHandler(detections, logger))

	// Live view
	mux.HandleFunc("/api/view", handlers.ViewWebsocketHandler(hub, logger))

	// Apply middleware
	return middleware.RequestLogging(logger)(mux)
}
