package models

import "time"

// Scene represents one capture event: an image or video upload, a webcam
// session, or an RTSP session.
type Scene struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	Resolution string    `json:"resolution,omitempty"`
	CameraID   string    `json:"camera_id"`
	MediaPath  string    `json:"media_path"`
	Processed  bool      `json:"processed"`
	CreatedAt  time.Time `json:"created_at"`
}

// SceneUpdate carries a partial update for a scene. Nil fields are left
// untouched.
type SceneUpdate struct {
	Latitude   *float64
	Longitude  *float64
	Resolution *string
	MediaPath  *string
	Processed  *bool
}

// SceneFilter contains filtering options for querying scenes.
type SceneFilter struct {
	CameraID string
	After    time.Time
	Before   time.Time
	Limit    int
	Offset   int
}
