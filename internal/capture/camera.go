// Package capture provides webcam acquisition using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultWidth  = 640
	DefaultHeight = 480
	DefaultFPS    = 15
)

// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
var ErrCameraNotOpen = errors.New("camera is not open")

// Constraints describes the stream requested from the camera.
type Constraints struct {
	DeviceID int
	Width    int
	Height   int
	FPS      int
}

// DefaultConstraints returns a 640x480 stream from the first device.
func DefaultConstraints() Constraints {
	return Constraints{
		DeviceID: 0,
		Width:    DefaultWidth,
		Height:   DefaultHeight,
		FPS:      DefaultFPS,
	}
}

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	IsOpen() bool
}

// Acquire opens a camera matching the constraints.
// Failures are returned as *AccessError.
func Acquire(c Constraints) (Camera, error) {
	cam := NewCamera(c)
	if err := cam.Open(); err != nil {
		return nil, err
	}
	return cam, nil
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	constraints Constraints
	capture     *gocv.VideoCapture
	mu          sync.Mutex
	running     bool
}

// NewCamera creates a camera that is opened lazily with Open.
func NewCamera(c Constraints) Camera {
	if c.Width <= 0 {
		c.Width = DefaultWidth
	}
	if c.Height <= 0 {
		c.Height = DefaultHeight
	}
	if c.FPS <= 0 {
		c.FPS = DefaultFPS
	}
	return &cameraImpl{constraints: c}
}

// Open opens the camera device. A device that cannot be opened is probed to
// classify the failure.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	if err := probeDevice(c.constraints.DeviceID); err != nil {
		return err
	}

	capture, err := gocv.OpenVideoCapture(c.constraints.DeviceID)
	if err != nil {
		return &AccessError{Kind: classifyOpenError(err), Err: err}
	}
	if !capture.IsOpened() {
		capture.Close()
		return &AccessError{Kind: AccessOther, Err: fmt.Errorf("device %d did not open", c.constraints.DeviceID)}
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.constraints.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.constraints.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.constraints.FPS))

	c.capture = capture
	c.running = true

	return nil
}

// Close releases the camera device.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the camera.
// The caller is responsible for closing the returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from camera")
	}

	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}

	return &mat, nil
}

// IsOpen returns true if the camera is currently open.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
