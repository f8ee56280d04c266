package services

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"scenewatch/internal/logger"
	"scenewatch/internal/models"
	"scenewatch/internal/repository"
	"scenewatch/internal/services/ai"
	"scenewatch/internal/services/capture"
	"scenewatch/internal/services/storage"
	"scenewatch/internal/services/websocket"
)

// DetectionAdapter is the slice of the ai.Service the manager needs.
type DetectionAdapter interface {
	DetectImage(path string) ([]models.Detection, ai.Metadata, error)
	DetectVideo(path string) ([]models.Detection, ai.Metadata, error)
	AnnotateFile(path string, detections []models.Detection) ([]byte, error)
}

// StreamRunner drives duration-bounded live capture sessions.
type StreamRunner interface {
	RunDevice(deviceID int, duration time.Duration, sink capture.FrameSink) (capture.Stats, error)
	RunStream(url string, duration time.Duration, sink capture.FrameSink) (capture.Stats, error)
}

// ImageResult is the outcome of a single-image detection request.
type ImageResult struct {
	SceneID        int64              `json:"scene_id"`
	Detections     []models.Detection `json:"detections"`
	AnnotatedImage string             `json:"annotated_image"`
}

// VideoResult is the outcome of a video detection request.
type VideoResult struct {
	SceneID         int64 `json:"scene_id"`
	TotalDetections int   `json:"total_detections"`
}

// StreamResult is the outcome of a webcam or RTSP session.
type StreamResult struct {
	SceneID int64  `json:"scene_id"`
	Message string `json:"message"`
}

// Manager orchestrates a detection request: one scene row per request,
// detection through the adapter, detections persisted in atomic batches,
// and the scene marked processed only on full success.
type Manager struct {
	scenes         repository.SceneRepository
	detections     repository.DetectionRepository
	adapter        DetectionAdapter
	streams        StreamRunner
	media          *storage.MediaStore
	hub            *websocket.HubService
	webcamDeviceID int
	logger         *logger.Logger
}

func NewManager(
	scenes repository.SceneRepository,
	detections repository.DetectionRepository,
	adapter DetectionAdapter,
	streams StreamRunner,
	media *storage.MediaStore,
	hub *websocket.HubService,
	webcamDeviceID int,
	logger *logger.Logger,
) *Manager {
	return &Manager{
		scenes:         scenes,
		detections:     detections,
		adapter:        adapter,
		streams:        streams,
		media:          media,
		hub:            hub,
		webcamDeviceID: webcamDeviceID,
		logger:         logger,
	}
}

// ProcessImage runs detection on one stored image upload.
func (m *Manager) ProcessImage(path string) (*ImageResult, error) {
	sceneID, err := m.scenes.Insert(&models.Scene{
		Timestamp: time.Now(),
		CameraID:  "image_upload",
		MediaPath: path,
	})
	if err != nil {
		return nil, err
	}

	detections, meta, err := m.adapter.DetectImage(path)
	if err != nil {
		m.logger.Error("Image detection failed for scene %d: %v", sceneID, err)
		return nil, err
	}

	if err := m.detections.InsertBatch(sceneID, detections); err != nil {
		return nil, err
	}

	annotated, err := m.adapter.AnnotateFile(path, detections)
	if err != nil {
		return nil, err
	}
	annotatedPath, err := m.media.SaveAnnotated(path, annotated)
	if err != nil {
		return nil, err
	}

	if err := m.finalizeScene(sceneID, meta.Resolution); err != nil {
		return nil, err
	}

	m.logger.Info("Scene %d: %d detections in image %s", sceneID, len(detections), path)
	if detections == nil {
		detections = []models.Detection{}
	}
	return &ImageResult{
		SceneID:        sceneID,
		Detections:     detections,
		AnnotatedImage: annotatedPath,
	}, nil
}

// ProcessVideo runs detection on every frame of a stored video upload.
func (m *Manager) ProcessVideo(path string) (*VideoResult, error) {
	sceneID, err := m.scenes.Insert(&models.Scene{
		Timestamp: time.Now(),
		CameraID:  "video_upload",
		MediaPath: path,
	})
	if err != nil {
		return nil, err
	}

	detections, meta, err := m.adapter.DetectVideo(path)
	if err != nil {
		m.logger.Error("Video detection failed for scene %d: %v", sceneID, err)
		return nil, err
	}

	if err := m.detections.InsertBatch(sceneID, detections); err != nil {
		return nil, err
	}

	if err := m.finalizeScene(sceneID, meta.Resolution); err != nil {
		return nil, err
	}

	m.logger.Info("Scene %d: %d detections in video %s", sceneID, len(detections), path)
	return &VideoResult{SceneID: sceneID, TotalDetections: len(detections)}, nil
}

// ProcessWebcam captures the local camera for the given duration.
func (m *Manager) ProcessWebcam(duration time.Duration) (*StreamResult, error) {
	sceneID, err := m.scenes.Insert(&models.Scene{
		Timestamp: time.Now(),
		CameraID:  "webcam",
		MediaPath: fmt.Sprintf("webcam_stream_%s", uuid.NewString()),
	})
	if err != nil {
		return nil, err
	}

	stats, err := m.streams.RunDevice(m.webcamDeviceID, duration, m.frameSink(sceneID, "webcam"))
	if err != nil {
		m.logger.Error("Webcam session failed for scene %d: %v", sceneID, err)
		return nil, err
	}

	if err := m.finalizeScene(sceneID, stats.Resolution); err != nil {
		return nil, err
	}

	m.logger.Info("Scene %d: webcam session done, %d/%d frames processed, %d detections",
		sceneID, stats.FramesProcessed, stats.FramesRead, stats.Detections)
	return &StreamResult{
		SceneID: sceneID,
		Message: fmt.Sprintf("Webcam detection completed for %d seconds", int(duration.Seconds())),
	}, nil
}

// ProcessRTSP captures a network stream for the given duration.
func (m *Manager) ProcessRTSP(rtspURL string, duration time.Duration) (*StreamResult, error) {
	sceneID, err := m.scenes.Insert(&models.Scene{
		Timestamp: time.Now(),
		CameraID:  "rtsp_stream",
		MediaPath: rtspURL,
	})
	if err != nil {
		return nil, err
	}

	stats, err := m.streams.RunStream(rtspURL, duration, m.frameSink(sceneID, "rtsp_stream"))
	if err != nil {
		m.logger.Error("RTSP session failed for scene %d: %v", sceneID, err)
		return nil, err
	}

	if err := m.finalizeScene(sceneID, stats.Resolution); err != nil {
		return nil, err
	}

	m.logger.Info("Scene %d: rtsp session done, %d/%d frames processed, %d detections",
		sceneID, stats.FramesProcessed, stats.FramesRead, stats.Detections)
	return &StreamResult{
		SceneID: sceneID,
		Message: fmt.Sprintf("RTSP stream detection completed for %d seconds", int(duration.Seconds())),
	}, nil
}

// frameSink persists each non-empty frame batch in its own transaction and
// broadcasts the annotated frame to live viewers.
func (m *Manager) frameSink(sceneID int64, camera string) capture.FrameSink {
	return func(frameIndex int, detections []models.Detection, annotated []byte) error {
		for i := range detections {
			detections[i].FrameIndex = frameIndex
		}
		if err := m.detections.InsertBatch(sceneID, detections); err != nil {
			return err
		}
		if annotated != nil {
			m.broadcastFrame(sceneID, camera, annotated)
		}
		return nil
	}
}

func (m *Manager) broadcastFrame(sceneID int64, camera string, frame []byte) {
	encoded := base64.StdEncoding.EncodeToString(frame)
	msg := fmt.Sprintf(`{"camera":%q,"scene_id":%d,"image":%q}`, camera, sceneID, encoded)
	m.hub.Broadcast([]byte(msg))
}

// finalizeScene records the source resolution and flips the processed flag.
func (m *Manager) finalizeScene(sceneID int64, resolution string) error {
	processed := true
	update := &models.SceneUpdate{Processed: &processed}
	if resolution != "" {
		update.Resolution = &resolution
	}
	return m.scenes.Update(sceneID, update)
}
