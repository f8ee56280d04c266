package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"scenewatch/internal/logger"
	"scenewatch/internal/services"
	"scenewatch/internal/services/storage"
)

const maxUploadMemory = 32 << 20

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/jpg"}
var allowedVideoTypes = []string{"video/mp4", "video/avi", "video/mpeg"}

// SceneProcessor is the slice of the services.Manager the detect handlers
// need.
type SceneProcessor interface {
	ProcessImage(path string) (*services.ImageResult, error)
	ProcessVideo(path string) (*services.VideoResult, error)
	ProcessWebcam(duration time.Duration) (*services.StreamResult, error)
	ProcessRTSP(rtspURL string, duration time.Duration) (*services.StreamResult, error)
}

// DetectImageHandler accepts a multipart image upload, runs detection on
// it and returns the scene id, detections and the annotated image path.
// Invalid content types are rejected with 400 before any scene row exists.
func DetectImageHandler(processor SceneProcessor, media *storage.MediaStore, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed", logger)
			return
		}

		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "missing or malformed multipart form", logger)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "missing file", logger)
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if !typeAllowed(contentType, allowedImageTypes) {
			writeError(w, http.StatusBadRequest,
				"Invalid file type. Must be one of: "+strings.Join(allowedImageTypes, ", "), logger)
			return
		}

		path, err := media.SaveUpload(file, header.Filename)
		if err != nil {
			logger.Error("Failed to store upload: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to store upload", logger)
			return
		}

		result, err := processor.ProcessImage(path)
		if err != nil {
			writeDomainError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, result, logger)
	}
}

// DetectVideoHandler accepts a multipart video upload and returns the
// scene id with the total detection count across all frames.
func DetectVideoHandler(processor SceneProcessor, media *storage.MediaStore, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed", logger)
			return
		}

		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "missing or malformed multipart form", logger)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "missing file", logger)
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if !typeAllowed(contentType, allowedVideoTypes) {
			writeError(w, http.StatusBadRequest,
				"Invalid file type. Must be one of: "+strings.Join(allowedVideoTypes, ", "), logger)
			return
		}

		path, err := media.SaveUpload(file, header.Filename)
		if err != nil {
			logger.Error("Failed to store upload: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to store upload", logger)
			return
		}

		result, err := processor.ProcessVideo(path)
		if err != nil {
			writeDomainError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, result, logger)
	}
}

// DetectWebcamHandler captures the local camera for a caller-specified
// duration. A non-positive duration is rejected with 422 before any scene
// row exists.
func DetectWebcamHandler(processor SceneProcessor, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed", logger)
			return
		}

		duration, ok := parseDuration(r.FormValue("duration"))
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "duration must be a positive integer of seconds", logger)
			return
		}

		result, err := processor.ProcessWebcam(duration)
		if err != nil {
			writeDomainError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, result, logger)
	}
}

// DetectRTSPHandler captures a network stream for a caller-specified
// duration. Malformed URLs and non-positive durations are rejected with
// 422 before any scene row exists.
func DetectRTSPHandler(processor SceneProcessor, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed", logger)
			return
		}

		rtspURL := r.FormValue("rtsp_url")
		if !strings.HasPrefix(rtspURL, "rtsp://") {
			writeError(w, http.StatusUnprocessableEntity, "rtsp_url must begin with rtsp://", logger)
			return
		}

		duration, ok := parseDuration(r.FormValue("duration"))
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "duration must be a positive integer of seconds", logger)
			return
		}

		result, err := processor.ProcessRTSP(rtspURL, duration)
		if err != nil {
			writeDomainError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, result, logger)
	}
}

func typeAllowed(contentType string, allowed []string) bool {
	for _, t := range allowed {
		if contentType == t {
			return true
		}
	}
	return false
}

func parseDuration(value string) (time.Duration, bool) {
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}
