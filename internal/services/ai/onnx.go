package ai

import (
	"fmt"
	"image"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"scenewatch/internal/errs"
	"scenewatch/internal/models"
)

const (
	onnxInputSize    = 640
	onnxIOUThreshold = 0.7
)

// ONNXDetector runs a YOLO-family network through ONNX Runtime. The model
// takes a 1x3x640x640 tensor and emits 1x(4+classes)x8400.
type ONNXDetector struct {
	mu            sync.Mutex
	session       *ort.AdvancedSession
	input         *ort.Tensor[float32]
	output        *ort.Tensor[float32]
	confThreshold float32
}

// NewONNXDetector initializes the ONNX Runtime environment and creates an
// inference session for the model. libPath overrides the platform-default
// shared library location when non-empty.
func NewONNXDetector(modelPath, libPath string, confThreshold float64) (*ONNXDetector, error) {
	if libPath == "" {
		libPath = defaultONNXLibPath()
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	inputShape := ort.NewShape(1, 3, onnxInputSize, onnxInputSize)
	inputTensor, err := ort.NewTensor(inputShape, make([]float32, onnxInputSize*onnxInputSize*3))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, int64(4+YOLOClassCount()), 8400)
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(1)
	options.SetInterOpNumThreads(1)

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create onnx session: %w", err)
	}

	return &ONNXDetector{
		session:       session,
		input:         inputTensor,
		output:        outputTensor,
		confThreshold: float32(confThreshold),
	}, nil
}

// DetectFrame runs YOLO inference on one frame. The session holds a single
// pre-allocated tensor pair, so calls are serialized.
func (d *ONNXDetector) DetectFrame(img gocv.Mat) ([]models.Detection, error) {
	if img.Empty() {
		return nil, errs.Detection("onnx", fmt.Errorf("frame is empty"))
	}

	src, err := img.ToImage()
	if err != nil {
		return nil, errs.Detection("onnx", fmt.Errorf("failed to convert frame: %w", err))
	}

	input := prepareONNXInput(src)

	d.mu.Lock()
	copy(d.input.GetData(), input)
	runErr := d.session.Run()
	var output []float32
	if runErr == nil {
		raw := d.output.GetData()
		output = make([]float32, len(raw))
		copy(output, raw)
	}
	d.mu.Unlock()

	if runErr != nil {
		return nil, errs.Detection("onnx", runErr)
	}

	return d.processOutput(output), nil
}

// Close destroys the session and tensors.
func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.session.Destroy()
	d.input.Destroy()
	d.output.Destroy()
	return nil
}

// prepareONNXInput resizes the frame to the model input size and lays the
// pixels out as CHW float32 in [0,1].
func prepareONNXInput(src image.Image) []float32 {
	resized := resize.Resize(onnxInputSize, onnxInputSize, src, resize.Lanczos3)
	input := make([]float32, onnxInputSize*onnxInputSize*3)
	stride := onnxInputSize * onnxInputSize
	idx := 0

	for y := 0; y < onnxInputSize; y++ {
		for x := 0; x < onnxInputSize; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			input[idx] = float32(r>>8) / 255.0
			input[idx+stride] = float32(g>>8) / 255.0
			input[idx+2*stride] = float32(b>>8) / 255.0
			idx++
		}
	}
	return input
}

// processOutput converts the raw YOLO output into normalized detection
// records and applies non-maximum suppression.
func (d *ONNXDetector) processOutput(output []float32) []models.Detection {
	numClasses := YOLOClassCount()
	boxesPerCell := len(output) / (numClasses + 4)
	if boxesPerCell == 0 || len(output) != boxesPerCell*(numClasses+4) {
		return nil
	}

	var boxes []models.Detection
	for i := 0; i < boxesPerCell; i++ {
		classID, prob := 0, float32(0.0)
		for j := 0; j < numClasses; j++ {
			if curr := output[boxesPerCell*(j+4)+i]; curr > prob {
				prob = curr
				classID = j
			}
		}
		if prob < d.confThreshold {
			continue
		}

		xc := output[i]
		yc := output[boxesPerCell+i]
		w := output[2*boxesPerCell+i]
		h := output[3*boxesPerCell+i]

		xMin := clamp01(float64((xc - w/2) / onnxInputSize))
		yMin := clamp01(float64((yc - h/2) / onnxInputSize))
		xMax := clamp01(float64((xc + w/2) / onnxInputSize))
		yMax := clamp01(float64((yc + h/2) / onnxInputSize))
		if xMin >= xMax || yMin >= yMax {
			continue
		}

		boxes = append(boxes, models.Detection{
			Class:      YOLOClassLabel(classID),
			Confidence: float64(prob),
			XMin:       xMin,
			YMin:       yMin,
			XMax:       xMax,
			YMax:       yMax,
			ClassID:    classID,
		})
	}

	sort.Slice(boxes, func(i, j int) bool {
		return boxes[i].Confidence > boxes[j].Confidence
	})

	// Non-maximum suppression.
	var detections []models.Detection
	suppressed := make([]bool, len(boxes))
	for i := 0; i < len(boxes); i++ {
		if suppressed[i] {
			continue
		}
		detections = append(detections, boxes[i])
		for j := i + 1; j < len(boxes); j++ {
			if !suppressed[j] && boxIoU(&boxes[i], &boxes[j]) > onnxIOUThreshold {
				suppressed[j] = true
			}
		}
	}

	return detections
}

// boxIoU computes the Intersection-over-Union of two boxes.
func boxIoU(a, b *models.Detection) float64 {
	x1 := math.Max(a.XMin, b.XMin)
	y1 := math.Max(a.YMin, b.YMin)
	x2 := math.Min(a.XMax, b.XMax)
	y2 := math.Min(a.YMax, b.YMax)

	intersection := math.Max(0, x2-x1) * math.Max(0, y2-y1)
	areaA := (a.XMax - a.XMin) * (a.YMax - a.YMin)
	areaB := (b.XMax - b.XMin) * (b.YMax - b.YMin)

	union := areaA + areaB - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// defaultONNXLibPath returns the ONNX Runtime shared library path for the
// current platform.
func defaultONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		return "./third_party/onnxruntime_arm64.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
}
