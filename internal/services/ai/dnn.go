package ai

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"scenewatch/internal/errs"
	"scenewatch/internal/models"
)

const dnnInputSize = 300

// DNNDetector runs an OpenCV DNN network (SSD-family, 1x1xNx7 output
// layout) loaded from a frozen graph plus a network description file.
type DNNDetector struct {
	net           gocv.Net
	confThreshold float32
}

// NewDNNDetector loads the network from the model and config files.
func NewDNNDetector(modelPath, configPath string, confThreshold float64) (*DNNDetector, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", modelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		return nil, fmt.Errorf("failed to set network backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		return nil, fmt.Errorf("failed to set network target: %w", err)
	}

	return &DNNDetector{net: net, confThreshold: float32(confThreshold)}, nil
}

// DetectFrame runs the network on one frame. SSD output rows are
// [batch, class_id, confidence, x_min, y_min, x_max, y_max] with
// coordinates already expressed as fractions of the input frame.
func (d *DNNDetector) DetectFrame(img gocv.Mat) ([]models.Detection, error) {
	if img.Empty() {
		return nil, errs.Detection("dnn", fmt.Errorf("frame is empty"))
	}

	blob := gocv.BlobFromImage(img, 1.0/127.5, image.Pt(dnnInputSize, dnnInputSize),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	output := d.net.Forward("")
	defer output.Close()

	rows := output.Total() / 7
	reshaped := output.Reshape(1, rows)
	defer reshaped.Close()

	var results []models.Detection
	for i := 0; i < reshaped.Rows(); i++ {
		confidence := reshaped.GetFloatAt(i, 2)
		if confidence <= d.confThreshold {
			continue
		}

		classID := int(reshaped.GetFloatAt(i, 1))
		xMin := clamp01(float64(reshaped.GetFloatAt(i, 3)))
		yMin := clamp01(float64(reshaped.GetFloatAt(i, 4)))
		xMax := clamp01(float64(reshaped.GetFloatAt(i, 5)))
		yMax := clamp01(float64(reshaped.GetFloatAt(i, 6)))
		if xMin >= xMax || yMin >= yMax {
			continue
		}

		results = append(results, models.Detection{
			Class:      SSDClassLabel(classID),
			Confidence: float64(confidence),
			XMin:       xMin,
			YMin:       yMin,
			XMax:       xMax,
			YMax:       yMax,
			ClassID:    classID,
		})
	}

	return results, nil
}

// Close releases the network.
func (d *DNNDetector) Close() error {
	return d.net.Close()
}
