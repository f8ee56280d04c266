// Package ai wraps pretrained object-detection networks behind a fixed
// detection-record contract. Each supported model family gets one Detector
// implementation; callers never see a model's native output shape.
package ai

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"gocv.io/x/gocv"

	"scenewatch/internal/errs"
	"scenewatch/internal/logger"
	"scenewatch/internal/models"
)

// Detector runs inference on one already-decoded frame and returns
// normalized detection records with [0,1] box coordinates.
type Detector interface {
	DetectFrame(img gocv.Mat) ([]models.Detection, error)
	Close() error
}

// Metadata describes the decoded source of a detection run.
type Metadata struct {
	Resolution string // "HxW"
}

// Service couples a Detector with media decoding so callers can run
// detection straight from files and frames.
type Service struct {
	detector Detector
	logger   *logger.Logger
}

// NewService creates a detection service around the given backend.
func NewService(detector Detector, logger *logger.Logger) *Service {
	return &Service{detector: detector, logger: logger}
}

// DetectImage decodes one image file, runs inference once and returns the
// detections plus resolution metadata.
func (s *Service) DetectImage(path string) ([]models.Detection, Metadata, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, Metadata{}, &errs.InvalidInputError{Path: path, Err: err}
	}

	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return nil, Metadata{}, &errs.InvalidInputError{Path: path, Err: fmt.Errorf("file did not decode to an image")}
	}
	defer img.Close()

	detections, err := s.detector.DetectFrame(img)
	if err != nil {
		return nil, Metadata{}, err
	}

	meta := Metadata{Resolution: fmt.Sprintf("%dx%d", img.Rows(), img.Cols())}
	return detections, meta, nil
}

// DetectFrame runs inference on an already-decoded frame. Streaming
// sources use this to avoid re-decoding overhead.
func (s *Service) DetectFrame(img gocv.Mat) ([]models.Detection, error) {
	return s.detector.DetectFrame(img)
}

// DetectVideo decodes every frame of a video file and runs inference on
// each, concatenating the results tagged with their frame index.
func (s *Service) DetectVideo(path string) ([]models.Detection, Metadata, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, Metadata{}, &errs.InvalidInputError{Path: path, Err: err}
	}
	defer capture.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	var all []models.Detection
	meta := Metadata{}
	frameIndex := 0

	for capture.Read(&frame) {
		if frame.Empty() {
			continue
		}
		if meta.Resolution == "" {
			meta.Resolution = fmt.Sprintf("%dx%d", frame.Rows(), frame.Cols())
		}

		detections, err := s.detector.DetectFrame(frame)
		if err != nil {
			return nil, Metadata{}, errs.Detection(fmt.Sprintf("video frame %d", frameIndex), err)
		}
		for i := range detections {
			detections[i].FrameIndex = frameIndex
		}
		all = append(all, detections...)
		frameIndex++
	}

	if frameIndex == 0 {
		return nil, Metadata{}, &errs.InvalidInputError{Path: path, Err: fmt.Errorf("no decodable frames")}
	}

	s.logger.Info("Video %s: %d frames, %d detections", path, frameIndex, len(all))
	return all, meta, nil
}

// Annotate draws detection boxes and labels onto a frame and returns the
// result encoded as JPEG. The frame itself is modified.
func (s *Service) Annotate(img *gocv.Mat, detections []models.Detection) ([]byte, error) {
	green := color.RGBA{G: 255}
	cols := float64(img.Cols())
	rows := float64(img.Rows())

	for _, det := range detections {
		rect := image.Rect(
			int(det.XMin*cols), int(det.YMin*rows),
			int(det.XMax*cols), int(det.YMax*rows),
		)
		if err := gocv.Rectangle(img, rect, green, 2); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %w", err)
		}

		label := fmt.Sprintf("%s: %.2f", det.Class, det.Confidence)
		pt := image.Pt(rect.Min.X, rect.Min.Y-10)
		if err := gocv.PutText(img, label, pt, gocv.FontHersheySimplex, 0.5, green, 2); err != nil {
			return nil, fmt.Errorf("failed to draw label: %w", err)
		}
	}

	buf, err := gocv.IMEncode(".jpg", *img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode annotated frame: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// AnnotateFile decodes an image file, draws the detections and returns
// the annotated JPEG bytes.
func (s *Service) AnnotateFile(path string, detections []models.Detection) ([]byte, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return nil, &errs.InvalidInputError{Path: path, Err: fmt.Errorf("file did not decode to an image")}
	}
	defer img.Close()

	return s.Annotate(&img, detections)
}

// Close releases the underlying backend.
func (s *Service) Close() error {
	return s.detector.Close()
}

// clamp01 clips v into [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
