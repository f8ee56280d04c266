package app

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"scenewatch/internal/config"
	"scenewatch/internal/logger"
	"scenewatch/internal/repository/sqlite"
	"scenewatch/internal/routes"
	"scenewatch/internal/services"
	"scenewatch/internal/services/ai"
	"scenewatch/internal/services/capture"
	"scenewatch/internal/services/storage"
	"scenewatch/internal/services/websocket"
)

type App struct {
	config        *config.Config
	logger        *logger.Logger
	db            *sqlite.DB
	sceneRepo     *sqlite.SceneRepository
	detectionRepo *sqlite.DetectionRepository
	detector      *ai.Service
	media         *storage.MediaStore
	hub           *websocket.HubService
	manager       *services.Manager
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	sceneRepo := sqlite.NewSceneRepository(db)
	detectionRepo := sqlite.NewDetectionRepository(db)

	backend, err := newDetectorBackend(cfg)
	if err != nil {
		return nil, err
	}
	detector := ai.NewService(backend, log)

	media, err := storage.NewMediaStore(cfg.UploadDirectory, cfg.MaxUploadDirSize, log)
	if err != nil {
		return nil, err
	}

	hub := websocket.NewHubService(log)
	runner := capture.NewRunner(detector, cfg.FrameInterval, log)
	manager := services.NewManager(sceneRepo, detectionRepo, detector, runner, media, hub, cfg.WebcamDeviceID, log)

	return &App{
		config:        cfg,
		logger:        log,
		db:            db,
		sceneRepo:     sceneRepo,
		detectionRepo: detectionRepo,
		detector:      detector,
		media:         media,
		hub:           hub,
		manager:       manager,
	}, nil
}

// newDetectorBackend picks the model family from configuration.
func newDetectorBackend(cfg *config.Config) (ai.Detector, error) {
	switch cfg.DetectorBackend {
	case "onnx":
		return ai.NewONNXDetector(cfg.ONNXModelPath, cfg.ONNXLibPath, cfg.ConfThreshold)
	case "dnn":
		return ai.NewDNNDetector(cfg.ModelPath, cfg.ModelConfigPath, cfg.ConfThreshold)
	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.DetectorBackend)
	}
}

func (a *App) Run() error {
	go a.hub.Run()

	router := routes.SetupRoutes(a.manager, a.media, a.sceneRepo, a.detectionRepo, a.hub, a.logger)

	a.logger.Info("Scene detection server listening on :%d", a.config.Port)
	a.logger.Info("Database: %s", a.config.DBPath)
	a.logger.Info("Uploads: %s", a.config.UploadDirectory)
	a.logger.Info("Detector backend: %s", a.config.DetectorBackend)

	defer a.Close()
	return http.ListenAndServe(fmt.Sprintf(":%d", a.config.Port), router)
}

// Close releases the database and the detector backend.
func (a *App) Close() {
	if err := a.detector.Close(); err != nil {
		a.logger.Error("Failed to close detector: %v", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database: %v", err)
	}
}
