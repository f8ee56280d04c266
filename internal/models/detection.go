package models

// Detection represents one bounding box found in a scene. Coordinates are
// fractions of the source frame in [0,1], with XMin < XMax and YMin < YMax.
type Detection struct {
	ID         int64   `json:"id,omitempty"`
	SceneID    int64   `json:"scene_id,omitempty"`
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	XMin       float64 `json:"x_min"`
	YMin       float64 `json:"y_min"`
	XMax       float64 `json:"x_max"`
	YMax       float64 `json:"y_max"`
	ClassID    int     `json:"class_id,omitempty"`
	FrameIndex int     `json:"frame_index,omitempty"`
}

// Valid reports whether the detection satisfies the store invariants:
// confidence within [0,1] and a non-inverted box.
func (d *Detection) Valid() bool {
	if d.Confidence < 0 || d.Confidence > 1 {
		return false
	}
	if d.XMin >= d.XMax || d.YMin >= d.YMax {
		return false
	}
	return true
}
