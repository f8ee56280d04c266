package capture

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"scenewatch/internal/logger"
	"scenewatch/internal/models"
	"scenewatch/internal/services/ai"
)

// FrameSink receives the detections of one processed frame together with
// the annotated JPEG. Returning an error aborts the session.
type FrameSink func(frameIndex int, detections []models.Detection, annotated []byte) error

// Stats summarizes one capture session.
type Stats struct {
	FramesRead      int
	FramesProcessed int
	Detections      int
	Resolution      string // "HxW" of the first frame
}

// Runner drives duration-bounded detection sessions over live sources.
// Interval gates processing to every Nth frame; 1 processes everything.
type Runner struct {
	detector *ai.Service
	interval int
	logger   *logger.Logger
}

// NewRunner creates a session runner.
func NewRunner(detector *ai.Service, interval int, logger *logger.Logger) *Runner {
	if interval < 1 {
		interval = 1
	}
	return &Runner{detector: detector, interval: interval, logger: logger}
}

// RunDevice captures from a local camera for the given duration.
func (r *Runner) RunDevice(deviceID int, duration time.Duration, sink FrameSink) (Stats, error) {
	src, err := OpenDevice(deviceID)
	if err != nil {
		return Stats{}, err
	}
	defer src.Close()
	return r.run(src, duration, sink)
}

// RunStream captures from a network stream for the given duration.
func (r *Runner) RunStream(url string, duration time.Duration, sink FrameSink) (Stats, error) {
	src, err := OpenRTSP(url)
	if err != nil {
		return Stats{}, err
	}
	defer src.Close()
	return r.run(src, duration, sink)
}

// run reads frames until the duration elapses or the source ends. The
// deadline is the only cancellation boundary: once it passes, no new frame
// is accepted and the session finalizes.
func (r *Runner) run(src *Source, duration time.Duration, sink FrameSink) (Stats, error) {
	deadline := time.Now().Add(duration)
	frame := gocv.NewMat()
	defer frame.Close()

	var stats Stats
	for time.Now().Before(deadline) {
		if !src.Read(&frame) {
			r.logger.Warning("Source %s ended after %d frames", src.Description(), stats.FramesRead)
			break
		}
		if frame.Empty() {
			continue
		}
		stats.FramesRead++
		if stats.Resolution == "" {
			stats.Resolution = resolutionOf(&frame)
		}

		if stats.FramesRead%r.interval != 0 {
			continue
		}
		stats.FramesProcessed++

		detections, err := r.detector.DetectFrame(frame)
		if err != nil {
			return stats, err
		}
		if len(detections) == 0 {
			continue
		}
		stats.Detections += len(detections)

		annotated, err := r.detector.Annotate(&frame, detections)
		if err != nil {
			r.logger.Error("Failed to annotate frame %d: %v", stats.FramesRead, err)
			annotated = nil
		}

		if err := sink(stats.FramesRead-1, detections, annotated); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

func resolutionOf(frame *gocv.Mat) string {
	return fmt.Sprintf("%dx%d", frame.Rows(), frame.Cols())
}
