package sqlite

import (
	"database/sql"
	"errors"
	"time"

	"scenewatch/internal/errs"
	"scenewatch/internal/models"
)

// SceneRepository implements repository.SceneRepository for SQLite.
type SceneRepository struct {
	db *DB
}

// NewSceneRepository creates a new SQLite scene repository.
func NewSceneRepository(db *DB) *SceneRepository {
	return &SceneRepository{db: db}
}

// Insert adds a new scene record. Timestamp, camera id and media path are
// required; a missing field is rejected before touching the database.
func (r *SceneRepository) Insert(scene *models.Scene) (int64, error) {
	if scene.Timestamp.IsZero() {
		return 0, errs.Validationf("scene timestamp is required")
	}
	if scene.CameraID == "" {
		return 0, errs.Validationf("scene camera_id is required")
	}
	if scene.MediaPath == "" {
		return 0, errs.Validationf("scene media_path is required")
	}

	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO scenes (timestamp, latitude, longitude, resolution, camera_id, media_path, processed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, scene.Timestamp, scene.Latitude, scene.Longitude, scene.Resolution, scene.CameraID, scene.MediaPath, scene.Processed)
	if err != nil {
		return 0, errs.Database("insert scene", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, errs.Database("insert scene", err)
	}
	return id, nil
}

// GetByID retrieves a single scene, or errs.ErrNotFound.
func (r *SceneRepository) GetByID(id int64) (*models.Scene, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`
		SELECT id, timestamp, latitude, longitude, resolution, camera_id, media_path, processed, created_at
		FROM scenes WHERE id = ?
	`, id)

	scene, err := scanScene(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, errs.Database("get scene", err)
	}
	return scene, nil
}

// GetAll retrieves scenes matching the filter, newest first.
func (r *SceneRepository) GetAll(filter *models.SceneFilter) ([]models.Scene, error) {
	query := `
		SELECT id, timestamp, latitude, longitude, resolution, camera_id, media_path, processed, created_at
		FROM scenes WHERE 1=1`
	var args []interface{}

	if filter != nil {
		if filter.CameraID != "" {
			query += " AND camera_id = ?"
			args = append(args, filter.CameraID)
		}
		if !filter.After.IsZero() {
			query += " AND timestamp >= ?"
			args = append(args, filter.After)
		}
		if !filter.Before.IsZero() {
			query += " AND timestamp <= ?"
			args = append(args, filter.Before)
		}
	}

	query += " ORDER BY timestamp DESC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, errs.Database("query scenes", err)
	}
	defer rows.Close()

	return collectScenes(rows)
}

// GetByTimeRange retrieves scenes captured within [start, end].
func (r *SceneRepository) GetByTimeRange(start, end time.Time) ([]models.Scene, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, timestamp, latitude, longitude, resolution, camera_id, media_path, processed, created_at
		FROM scenes WHERE timestamp BETWEEN ? AND ?
		ORDER BY timestamp
	`, start, end)
	if err != nil {
		return nil, errs.Database("query scenes by time range", err)
	}
	defer rows.Close()

	return collectScenes(rows)
}

// Update applies a partial update to a scene. Nil fields in updates are
// left untouched. Returns errs.ErrNotFound if the scene does not exist.
func (r *SceneRepository) Update(id int64, updates *models.SceneUpdate) error {
	var sets []string
	var args []interface{}

	if updates.Latitude != nil {
		sets = append(sets, "latitude = ?")
		args = append(args, *updates.Latitude)
	}
	if updates.Longitude != nil {
		sets = append(sets, "longitude = ?")
		args = append(args, *updates.Longitude)
	}
	if updates.Resolution != nil {
		sets = append(sets, "resolution = ?")
		args = append(args, *updates.Resolution)
	}
	if updates.MediaPath != nil {
		sets = append(sets, "media_path = ?")
		args = append(args, *updates.MediaPath)
	}
	if updates.Processed != nil {
		sets = append(sets, "processed = ?")
		args = append(args, *updates.Processed)
	}

	if len(sets) == 0 {
		// Nothing to change, but the scene must still exist.
		_, err := r.GetByID(id)
		return err
	}

	query := "UPDATE scenes SET " + joinSets(sets) + " WHERE id = ?"
	args = append(args, id)

	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(query, args...)
	if err != nil {
		return errs.Database("update scene", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errs.Database("update scene", err)
	}
	if affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// MarkProcessed flags a scene as fully processed.
func (r *SceneRepository) MarkProcessed(id int64) error {
	processed := true
	return r.Update(id, &models.SceneUpdate{Processed: &processed})
}

// Delete removes a scene; its detections go with it via cascade.
func (r *SceneRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`DELETE FROM scenes WHERE id = ?`, id)
	if err != nil {
		return errs.Database("delete scene", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errs.Database("delete scene", err)
	}
	if affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func joinSets(sets []string) string {
	out := sets[0]
	for _, s := range sets[1:] {
		out += ", " + s
	}
	return out
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanScene(row rowScanner) (*models.Scene, error) {
	var scene models.Scene
	err := row.Scan(&scene.ID, &scene.Timestamp, &scene.Latitude, &scene.Longitude,
		&scene.Resolution, &scene.CameraID, &scene.MediaPath, &scene.Processed, &scene.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &scene, nil
}

func collectScenes(rows *sql.Rows) ([]models.Scene, error) {
	var scenes []models.Scene
	for rows.Next() {
		scene, err := scanScene(rows)
		if err != nil {
			return nil, errs.Database("scan scene", err)
		}
		scenes = append(scenes, *scene)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Database("iterate scenes", err)
	}
	return scenes, nil
}
