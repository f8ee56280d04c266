// Package capture opens live frame sources (webcam devices, RTSP streams)
// and runs duration-bounded detection sessions over them.
package capture

import (
	"fmt"
	"os"

	"gocv.io/x/gocv"
)

// ffmpegRTSPOptions forces tcp transport and a socket timeout so a dead
// stream fails instead of hanging the capture loop.
const ffmpegRTSPOptions = "rtsp_transport;tcp|buffer_size;65536|stimeout;5000000"

// Source is an open frame source.
type Source struct {
	capture *gocv.VideoCapture
	desc    string
}

// OpenDevice opens a local camera device as a frame source.
func OpenDevice(deviceID int) (*Source, error) {
	capture, err := gocv.VideoCaptureDevice(deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to open webcam %d: %w", deviceID, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("webcam %d did not open", deviceID)
	}
	return &Source{capture: capture, desc: fmt.Sprintf("device:%d", deviceID)}, nil
}

// OpenRTSP opens a network stream as a frame source. The capture buffer is
// kept at one frame so detection always sees the most recent frame.
func OpenRTSP(url string) (*Source, error) {
	os.Setenv("OPENCV_FFMPEG_CAPTURE_OPTIONS", ffmpegRTSPOptions)

	capture, err := gocv.VideoCaptureFile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to stream %s: %w", url, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("stream %s did not open", url)
	}
	capture.Set(gocv.VideoCaptureBufferSize, 1)

	return &Source{capture: capture, desc: url}, nil
}

// Read reads the next frame into m. It returns false at end of stream.
func (s *Source) Read(m *gocv.Mat) bool {
	return s.capture.Read(m)
}

// Description returns the path, url or device descriptor of the source.
func (s *Source) Description() string {
	return s.desc
}

// Close releases the source.
func (s *Source) Close() error {
	return s.capture.Close()
}
