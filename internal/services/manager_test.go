package services

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scenewatch/internal/config"
	"scenewatch/internal/logger"
	"scenewatch/internal/models"
	"scenewatch/internal/repository/sqlite"
	"scenewatch/internal/services/ai"
	"scenewatch/internal/services/capture"
	"scenewatch/internal/services/storage"
	"scenewatch/internal/services/websocket"
)

type fakeAdapter struct {
	detections []models.Detection
	meta       ai.Metadata
	annotated  []byte
	err        error
}

func (f *fakeAdapter) DetectImage(path string) ([]models.Detection, ai.Metadata, error) {
	return f.detections, f.meta, f.err
}

func (f *fakeAdapter) DetectVideo(path string) ([]models.Detection, ai.Metadata, error) {
	return f.detections, f.meta, f.err
}

func (f *fakeAdapter) AnnotateFile(path string, detections []models.Detection) ([]byte, error) {
	return f.annotated, nil
}

type fakeStreams struct {
	frames [][]models.Detection
	stats  capture.Stats
	err    error
}

func (f *fakeStreams) RunDevice(deviceID int, duration time.Duration, sink capture.FrameSink) (capture.Stats, error) {
	return f.run(sink)
}

func (f *fakeStreams) RunStream(url string, duration time.Duration, sink capture.FrameSink) (capture.Stats, error) {
	return f.run(sink)
}

func (f *fakeStreams) run(sink capture.FrameSink) (capture.Stats, error) {
	if f.err != nil {
		return capture.Stats{}, f.err
	}
	for i, batch := range f.frames {
		if err := sink(i, batch, []byte("frame")); err != nil {
			return capture.Stats{}, err
		}
	}
	return f.stats, nil
}

func newTestManager(t *testing.T, adapter DetectionAdapter, streams StreamRunner) (*Manager, *sqlite.SceneRepository, *sqlite.DetectionRepository) {
	t.Helper()

	log := logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	scenes := sqlite.NewSceneRepository(db)
	detections := sqlite.NewDetectionRepository(db)

	media, err := storage.NewMediaStore(t.TempDir(), 1, log)
	if err != nil {
		t.Fatalf("Failed to create media store: %v", err)
	}
	hub := websocket.NewHubService(log)

	return NewManager(scenes, detections, adapter, streams, media, hub, 0, log), scenes, detections
}

func sampleDetections() []models.Detection {
	return []models.Detection{
		{Class: "person", Confidence: 0.92, XMin: 0.1, YMin: 0.2, XMax: 0.4, YMax: 0.7},
		{Class: "dog", Confidence: 0.65, XMin: 0.5, YMin: 0.5, XMax: 0.8, YMax: 0.9},
	}
}

func TestProcessImage(t *testing.T) {
	adapter := &fakeAdapter{
		detections: sampleDetections(),
		meta:       ai.Metadata{Resolution: "480x640"},
		annotated:  []byte("jpeg-bytes"),
	}
	manager, scenes, detections := newTestManager(t, adapter, &fakeStreams{})

	result, err := manager.ProcessImage("/uploads/cat.jpg")
	if err != nil {
		t.Fatalf("ProcessImage failed: %v", err)
	}
	if len(result.Detections) != 2 {
		t.Errorf("Detections = %d, expected 2", len(result.Detections))
	}
	if result.AnnotatedImage == "" || !strings.HasSuffix(result.AnnotatedImage, ".jpg") {
		t.Errorf("Unexpected annotated path %q", result.AnnotatedImage)
	}

	scene, err := scenes.GetByID(result.SceneID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !scene.Processed {
		t.Error("Scene should be marked processed")
	}
	if scene.Resolution != "480x640" {
		t.Errorf("Resolution = %q, expected 480x640", scene.Resolution)
	}
	if scene.CameraID != "image_upload" {
		t.Errorf("CameraID = %q, expected image_upload", scene.CameraID)
	}

	stored, err := detections.GetBySceneID(result.SceneID)
	if err != nil {
		t.Fatalf("GetBySceneID failed: %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("Stored detections = %d, expected 2", len(stored))
	}
}

func TestProcessImage_NoDetections(t *testing.T) {
	adapter := &fakeAdapter{
		meta:      ai.Metadata{Resolution: "480x640"},
		annotated: []byte("jpeg-bytes"),
	}
	manager, _, _ := newTestManager(t, adapter, &fakeStreams{})

	result, err := manager.ProcessImage("/uploads/empty.jpg")
	if err != nil {
		t.Fatalf("ProcessImage failed: %v", err)
	}
	if result.Detections == nil {
		t.Error("Detections should be an empty slice, not nil")
	}
	if len(result.Detections) != 0 {
		t.Errorf("Detections = %d, expected 0", len(result.Detections))
	}
}

func TestProcessImage_DetectionFailureKeepsScene(t *testing.T) {
	adapter := &fakeAdapter{err: errors.New("model exploded")}
	manager, scenes, _ := newTestManager(t, adapter, &fakeStreams{})

	if _, err := manager.ProcessImage("/uploads/bad.jpg"); err == nil {
		t.Fatal("Expected error from ProcessImage")
	}

	// The scene row stays behind, unprocessed.
	result, err := scenes.GetAll(&models.SceneFilter{Limit: 10})
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("Scenes = %d, expected 1", len(result))
	}
	if result[0].Processed {
		t.Error("Failed scene must not be marked processed")
	}
}

func TestProcessVideo(t *testing.T) {
	adapter := &fakeAdapter{
		detections: sampleDetections(),
		meta:       ai.Metadata{Resolution: "720x1280"},
	}
	manager, scenes, _ := newTestManager(t, adapter, &fakeStreams{})

	result, err := manager.ProcessVideo("/uploads/clip.mp4")
	if err != nil {
		t.Fatalf("ProcessVideo failed: %v", err)
	}
	if result.TotalDetections != 2 {
		t.Errorf("TotalDetections = %d, expected 2", result.TotalDetections)
	}

	scene, err := scenes.GetByID(result.SceneID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if scene.CameraID != "video_upload" || !scene.Processed {
		t.Errorf("Unexpected scene: %+v", scene)
	}
}

func TestProcessWebcam(t *testing.T) {
	streams := &fakeStreams{
		frames: [][]models.Detection{
			{{Class: "person", Confidence: 0.9, XMin: 0.1, YMin: 0.1, XMax: 0.5, YMax: 0.5}},
			{{Class: "cat", Confidence: 0.7, XMin: 0.2, YMin: 0.2, XMax: 0.6, YMax: 0.6}},
		},
		stats: capture.Stats{FramesRead: 60, FramesProcessed: 2, Detections: 2, Resolution: "480x640"},
	}
	manager, scenes, detections := newTestManager(t, &fakeAdapter{}, streams)

	result, err := manager.ProcessWebcam(10 * time.Second)
	if err != nil {
		t.Fatalf("ProcessWebcam failed: %v", err)
	}
	if !strings.Contains(result.Message, "10 seconds") {
		t.Errorf("Unexpected message %q", result.Message)
	}

	scene, err := scenes.GetByID(result.SceneID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if scene.CameraID != "webcam" {
		t.Errorf("CameraID = %q, expected webcam", scene.CameraID)
	}
	if !strings.HasPrefix(scene.MediaPath, "webcam_stream_") {
		t.Errorf("MediaPath = %q, expected webcam_stream_ prefix", scene.MediaPath)
	}

	stored, err := detections.GetBySceneID(result.SceneID)
	if err != nil {
		t.Fatalf("GetBySceneID failed: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("Stored detections = %d, expected 2", len(stored))
	}
	if stored[0].FrameIndex != 0 || stored[1].FrameIndex != 1 {
		t.Errorf("Frame indices = %d, %d, expected 0, 1", stored[0].FrameIndex, stored[1].FrameIndex)
	}
}

func TestProcessRTSP(t *testing.T) {
	streams := &fakeStreams{
		stats: capture.Stats{FramesRead: 30, Resolution: "480x640"},
	}
	manager, scenes, _ := newTestManager(t, &fakeAdapter{}, streams)

	url := "rtsp://camera.local:554/stream"
	result, err := manager.ProcessRTSP(url, 30*time.Second)
	if err != nil {
		t.Fatalf("ProcessRTSP failed: %v", err)
	}

	scene, err := scenes.GetByID(result.SceneID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if scene.CameraID != "rtsp_stream" || scene.MediaPath != url {
		t.Errorf("Unexpected scene: %+v", scene)
	}
}

func TestProcessRTSP_StreamFailureKeepsScene(t *testing.T) {
	streams := &fakeStreams{err: errors.New("connection refused")}
	manager, scenes, _ := newTestManager(t, &fakeAdapter{}, streams)

	if _, err := manager.ProcessRTSP("rtsp://down.local/stream", 5*time.Second); err == nil {
		t.Fatal("Expected error from ProcessRTSP")
	}

	result, err := scenes.GetAll(&models.SceneFilter{Limit: 10})
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(result) != 1 || result[0].Processed {
		t.Errorf("Expected one unprocessed scene, got %+v", result)
	}
}
