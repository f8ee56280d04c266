package handlers

import (
	"net/http"
	"strconv"
	"time"

	"scenewatch/internal/logger"
	"scenewatch/internal/models"
	"scenewatch/internal/repository"
)

// ScenesData is a paginated response payload for the scene list.
type ScenesData struct {
	Scenes      []models.Scene `json:"scenes"`
	Length      int            `json:"length"`
	CurrentPage int            `json:"currentPage"`
	Limit       int            `json:"pageSize"`
}

// SceneDetail couples a scene with its stored detections.
type SceneDetail struct {
	Scene      *models.Scene      `json:"scene"`
	Detections []models.Detection `json:"detections"`
}

// ListScenesHandler lists stored scenes, supports camera and time-range
// filtering and pagination. Response is JSON of type ScenesData.
func ListScenesHandler(scenes repository.SceneRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed", logger)
			return
		}

		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &models.SceneFilter{
			CameraID: q.Get("camera"),
			After:    parseTime(q.Get("after")),
			Before:   parseTime(q.Get("before")),
			Limit:    limit,
			Offset:   (page - 1) * limit,
		}

		result, err := scenes.GetAll(filter)
		if err != nil {
			writeDomainError(w, err, logger)
			return
		}
		if result == nil {
			result = []models.Scene{}
		}

		writeJSON(w, http.StatusOK, ScenesData{
			Scenes:      result,
			Length:      len(result),
			CurrentPage: page,
			Limit:       limit,
		}, logger)
	}
}

// GetSceneHandler returns one scene and its detections by id.
func GetSceneHandler(scenes repository.SceneRepository, detections repository.DetectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed", logger)
			return
		}

		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusUnprocessableEntity, "id must be a positive integer", logger)
			return
		}

		scene, err := scenes.GetByID(id)
		if err != nil {
			writeDomainError(w, err, logger)
			return
		}

		dets, err := detections.GetBySceneID(id)
		if err != nil {
			writeDomainError(w, err, logger)
			return
		}
		if dets == nil {
			dets = []models.Detection{}
		}

		writeJSON(w, http.StatusOK, SceneDetail{Scene: scene, Detections: dets}, logger)
	}
}

// DeleteSceneHandler removes a scene; its detections are deleted by
// cascade.
func DeleteSceneHandler(scenes repository.SceneRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed", logger)
			return
		}

		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusUnprocessableEntity, "id must be a positive integer", logger)
			return
		}

		if err := scenes.Delete(id); err != nil {
			writeDomainError(w, err, logger)
			return
		}

		logger.Info("Scene %d deleted", id)
		writeJSON(w, http.StatusOK, map[string]string{"message": "scene deleted"}, logger)
	}
}

// DetectionsByClassHandler returns detections for a class label at or
// above a confidence threshold (default 0.5), in insertion order.
func DetectionsByClassHandler(detections repository.DetectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed", logger)
			return
		}

		q := r.URL.Query()
		class := q.Get("class")
		if class == "" {
			writeError(w, http.StatusUnprocessableEntity, "class is required", logger)
			return
		}

		threshold := 0.5
		if raw := q.Get("confidence"); raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil || parsed < 0 || parsed > 1 {
				writeError(w, http.StatusUnprocessableEntity, "confidence must be within [0,1]", logger)
				return
			}
			threshold = parsed
		}

		result, err := detections.GetByClass(class, threshold)
		if err != nil {
			writeDomainError(w, err, logger)
			return
		}
		if result == nil {
			result = []models.Detection{}
		}

		writeJSON(w, http.StatusOK, result, logger)
	}
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
