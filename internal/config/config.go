package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             int
	DBPath           string
	DetectorBackend  string // "dnn" or "onnx"
	ModelPath        string // OpenCV DNN weights
	ModelConfigPath  string // OpenCV DNN network description
	ONNXModelPath    string
	ONNXLibPath      string
	UploadDirectory  string
	LogDirectory     string
	MaxUploadDirSize int64 // GB
	FrameInterval    int   // process every Nth frame of a stream (1=every frame)
	ConfThreshold    float64
	WebcamDeviceID   int
}

func Load() *Config {
	// Optional .env in the working directory; real env vars win.
	_ = godotenv.Load()

	return &Config{
		Port:             getEnvAsInt("PORT", 8080),
		DBPath:           getEnv("DB_PATH", filepath.Join(".", "data", "scenes.db")),
		DetectorBackend:  getEnv("DETECTOR_BACKEND", "dnn"),
		ModelPath:        getEnv("MODEL_PATH", filepath.Join(".", "models", "frozen_inference_graph.pb")),
		ModelConfigPath:  getEnv("CONFIG_PATH", filepath.Join(".", "models", "ssd_mobilenet_v1_coco_2017_11_17.pbtxt")),
		ONNXModelPath:    getEnv("ONNX_MODEL_PATH", filepath.Join(".", "models", "yolov8n.onnx")),
		ONNXLibPath:      getEnv("ONNX_LIB_PATH", ""),
		UploadDirectory:  getEnv("UPLOAD_DIR", filepath.Join(".", "uploads")),
		LogDirectory:     getEnv("LOG_DIR", filepath.Join(".", "logs")),
		MaxUploadDirSize: getEnvAsInt64("MAX_UPLOAD_DIR_SIZE", 4),
		FrameInterval:    getEnvAsInt("FRAME_INTERVAL", 1),
		ConfThreshold:    getEnvAsFloat("CONF_THRESHOLD", 0.5),
		WebcamDeviceID:   getEnvAsInt("WEBCAM_DEVICE_ID", 0),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
