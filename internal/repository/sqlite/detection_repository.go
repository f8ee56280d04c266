package sqlite

import (
	"scenewatch/internal/errs"
	"scenewatch/internal/models"
)

// DetectionRepository implements repository.DetectionRepository for SQLite.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new SQLite detection repository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

// InsertBatch adds a batch of detections for a scene in a single
// transaction. The whole batch is rejected if any record carries a
// confidence outside [0,1] or an inverted box; nothing is committed on
// failure.
func (r *DetectionRepository) InsertBatch(sceneID int64, detections []models.Detection) error {
	for i := range detections {
		if !detections[i].Valid() {
			return errs.Validationf("detection %d invalid: confidence=%.3f box=(%.3f,%.3f)-(%.3f,%.3f)",
				i, detections[i].Confidence,
				detections[i].XMin, detections[i].YMin, detections[i].XMax, detections[i].YMax)
		}
	}
	if len(detections) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return errs.Database("begin detection batch", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO detections (scene_id, class_label, confidence, x_min, y_min, x_max, y_max, class_id, frame_index)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errs.Database("prepare detection insert", err)
	}
	defer stmt.Close()

	for _, det := range detections {
		if _, err := stmt.Exec(sceneID, det.Class, det.Confidence,
			det.XMin, det.YMin, det.XMax, det.YMax, det.ClassID, det.FrameIndex); err != nil {
			return errs.Database("insert detection", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.Database("commit detection batch", err)
	}
	return nil
}

// GetBySceneID retrieves all detections for a scene in insertion order.
func (r *DetectionRepository) GetBySceneID(sceneID int64) ([]models.Detection, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, scene_id, class_label, confidence, x_min, y_min, x_max, y_max, class_id, frame_index
		FROM detections WHERE scene_id = ?
		ORDER BY id
	`, sceneID)
	if err != nil {
		return nil, errs.Database("query detections", err)
	}
	defer rows.Close()

	var detections []models.Detection
	for rows.Next() {
		var det models.Detection
		if err := rows.Scan(&det.ID, &det.SceneID, &det.Class, &det.Confidence,
			&det.XMin, &det.YMin, &det.XMax, &det.YMax, &det.ClassID, &det.FrameIndex); err != nil {
			return nil, errs.Database("scan detection", err)
		}
		detections = append(detections, det)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Database("iterate detections", err)
	}

	return detections, nil
}

// GetByClass retrieves detections for a class label at or above the
// confidence threshold, in insertion order.
func (r *DetectionRepository) GetByClass(classLabel string, confidenceThreshold float64) ([]models.Detection, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, scene_id, class_label, confidence, x_min, y_min, x_max, y_max, class_id, frame_index
		FROM detections WHERE class_label = ? AND confidence >= ?
		ORDER BY id
	`, classLabel, confidenceThreshold)
	if err != nil {
		return nil, errs.Database("query detections by class", err)
	}
	defer rows.Close()

	var detections []models.Detection
	for rows.Next() {
		var det models.Detection
		if err := rows.Scan(&det.ID, &det.SceneID, &det.Class, &det.Confidence,
			&det.XMin, &det.YMin, &det.XMax, &det.YMax, &det.ClassID, &det.FrameIndex); err != nil {
			return nil, errs.Database("scan detection", err)
		}
		detections = append(detections, det)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Database("iterate detections", err)
	}

	return detections, nil
}

// CountByScene returns the number of detections stored for a scene.
func (r *DetectionRepository) CountByScene(sceneID int64) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM detections WHERE scene_id = ?`, sceneID).Scan(&count)
	if err != nil {
		return 0, errs.Database("count detections", err)
	}
	return count, nil
}

// DeleteBySceneID removes all detections for a specific scene.
func (r *DetectionRepository) DeleteBySceneID(sceneID int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM detections WHERE scene_id = ?`, sceneID); err != nil {
		return errs.Database("delete detections", err)
	}
	return nil
}
