package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"scenewatch/internal/models"
	"scenewatch/internal/repository/sqlite"
)

func newTestRepos(t *testing.T) (*sqlite.SceneRepository, *sqlite.DetectionRepository) {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return sqlite.NewSceneRepository(db), sqlite.NewDetectionRepository(db)
}

func insertScene(t *testing.T, scenes *sqlite.SceneRepository, cameraID string) int64 {
	t.Helper()
	id, err := scenes.Insert(&models.Scene{
		Timestamp: time.Now(),
		CameraID:  cameraID,
		MediaPath: "/uploads/test.jpg",
	})
	if err != nil {
		t.Fatalf("Failed to insert scene: %v", err)
	}
	return id
}

func TestGetScene_OK(t *testing.T) {
	log := newTestLogger(t)
	scenes, detections := newTestRepos(t)

	id := insertScene(t, scenes, "cam1")
	batch := []models.Detection{
		{Class: "person", Confidence: 0.95, XMin: 0.1, YMin: 0.2, XMax: 0.3, YMax: 0.4},
	}
	if err := detections.InsertBatch(id, batch); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	handler := GetSceneHandler(scenes, detections, log)
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/scenes/view?id=%d", id), nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, expected 200: %s", rec.Code, rec.Body.String())
	}

	var detail SceneDetail
	if err := json.NewDecoder(rec.Body).Decode(&detail); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if detail.Scene.ID != id || detail.Scene.CameraID != "cam1" {
		t.Errorf("Unexpected scene: %+v", detail.Scene)
	}
	if len(detail.Detections) != 1 || detail.Detections[0].Class != "person" {
		t.Errorf("Unexpected detections: %+v", detail.Detections)
	}
}

func TestGetScene_NotFound(t *testing.T) {
	log := newTestLogger(t)
	scenes, detections := newTestRepos(t)

	handler := GetSceneHandler(scenes, detections, log)
	req := httptest.NewRequest(http.MethodGet, "/api/scenes/view?id=999", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Status = %d, expected 404", rec.Code)
	}
}

func TestGetScene_BadID(t *testing.T) {
	log := newTestLogger(t)
	scenes, detections := newTestRepos(t)

	handler := GetSceneHandler(scenes, detections, log)
	for _, id := range []string{"", "abc", "-1"} {
		req := httptest.NewRequest(http.MethodGet, "/api/scenes/view?id="+id, nil)
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("id=%q: status = %d, expected 422", id, rec.Code)
		}
	}
}

func TestListScenes(t *testing.T) {
	log := newTestLogger(t)
	scenes, _ := newTestRepos(t)

	insertScene(t, scenes, "front")
	insertScene(t, scenes, "front")
	insertScene(t, scenes, "back")

	handler := ListScenesHandler(scenes, log)
	req := httptest.NewRequest(http.MethodGet, "/api/scenes?camera=front", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, expected 200", rec.Code)
	}

	var data ScenesData
	if err := json.NewDecoder(rec.Body).Decode(&data); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if data.Length != 2 {
		t.Errorf("Length = %d, expected 2", data.Length)
	}
}

func TestDeleteScene_Cascade(t *testing.T) {
	log := newTestLogger(t)
	scenes, detections := newTestRepos(t)

	id := insertScene(t, scenes, "cam1")
	batch := []models.Detection{
		{Class: "car", Confidence: 0.8, XMin: 0.1, YMin: 0.1, XMax: 0.5, YMax: 0.5},
	}
	if err := detections.InsertBatch(id, batch); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	handler := DeleteSceneHandler(scenes, log)
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/scenes/delete?id=%d", id), nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, expected 200: %s", rec.Code, rec.Body.String())
	}

	remaining, err := detections.GetBySceneID(id)
	if err != nil {
		t.Fatalf("GetBySceneID failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("Expected cascade to remove detections, found %d", len(remaining))
	}
}

func TestDetectionsByClass(t *testing.T) {
	log := newTestLogger(t)
	scenes, detections := newTestRepos(t)

	id := insertScene(t, scenes, "cam1")
	batch := []models.Detection{
		{Class: "person", Confidence: 0.95, XMin: 0.1, YMin: 0.2, XMax: 0.3, YMax: 0.4},
		{Class: "person", Confidence: 0.30, XMin: 0.1, YMin: 0.2, XMax: 0.3, YMax: 0.4},
	}
	if err := detections.InsertBatch(id, batch); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	handler := DetectionsByClassHandler(detections, log)

	// Default threshold is 0.5.
	req := httptest.NewRequest(http.MethodGet, "/api/detections?class=person", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, expected 200", rec.Code)
	}

	var result []models.Detection
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(result) != 1 || result[0].Confidence != 0.95 {
		t.Errorf("Unexpected detections: %+v", result)
	}
}

func TestDetectionsByClass_MissingClass(t *testing.T) {
	log := newTestLogger(t)
	_, detections := newTestRepos(t)

	handler := DetectionsByClassHandler(detections, log)
	req := httptest.NewRequest(http.MethodGet, "/api/detections", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Status = %d, expected 422", rec.Code)
	}
}
