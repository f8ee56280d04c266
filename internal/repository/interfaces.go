package repository

import (
	"time"

	"scenewatch/internal/models"
)

// SceneRepository defines the interface for scene data operations.
type SceneRepository interface {
	// Create operations
	Insert(scene *models.Scene) (int64, error)

	// Read operations
	GetByID(id int64) (*models.Scene, error)
	GetAll(filter *models.SceneFilter) ([]models.Scene, error)
	GetByTimeRange(start, end time.Time) ([]models.Scene, error)

	// Update operations
	Update(id int64, updates *models.SceneUpdate) error
	MarkProcessed(id int64) error

	// Delete operations
	Delete(id int64) error
}

// DetectionRepository defines the interface for detection data operations.
type DetectionRepository interface {
	// Create operations
	InsertBatch(sceneID int64, detections []models.Detection) error

	// Read operations
	GetBySceneID(sceneID int64) ([]models.Detection, error)
	GetByClass(classLabel string, confidenceThreshold float64) ([]models.Detection, error)
	CountByScene(sceneID int64) (int, error)

	// Delete operations
	DeleteBySceneID(sceneID int64) error
}
