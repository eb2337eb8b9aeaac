package capture

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strings"
	"syscall"
)

// AccessKind classifies why a camera could not be acquired.
type AccessKind int

const (
	AccessOther AccessKind = iota
	AccessPermissionDenied
	AccessNotFound
	AccessDeviceBusy
)

// String returns the kind name.
func (k AccessKind) String() string {
	switch k {
	case AccessPermissionDenied:
		return "PermissionDenied"
	case AccessNotFound:
		return "NotFound"
	case AccessDeviceBusy:
		return "DeviceBusy"
	default:
		return "Other"
	}
}

// Message returns the user-facing text for the kind.
func (k AccessKind) Message() string {
	switch k {
	case AccessPermissionDenied:
		return "Camera Permission Denied"
	case AccessNotFound:
		return "No Camera Found"
	case AccessDeviceBusy:
		return "Camera In Use"
	default:
		return "Camera Access Denied"
	}
}

// AccessError is returned when a camera cannot be acquired.
type AccessError struct {
	Kind AccessKind
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("camera access (%s): %v", e.Kind, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// AccessKindOf returns the access kind carried by err, or AccessOther.
func AccessKindOf(err error) AccessKind {
	var ae *AccessError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return AccessOther
}

// devicePath returns the V4L2 node for a device id.
var devicePath = func(deviceID int) string {
	return fmt.Sprintf("/dev/video%d", deviceID)
}

// probeDevice checks the device node on Linux before OpenCV touches it, so
// missing, forbidden and busy devices can be told apart.
func probeDevice(deviceID int) error {
	if runtime.GOOS != "linux" {
		return nil
	}

	path := devicePath(deviceID)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return &AccessError{Kind: classifyOpenError(err), Err: err}
	}
	f.Close()
	return nil
}

func classifyOpenError(err error) AccessKind {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENODEV), errors.Is(err, syscall.ENXIO):
		return AccessNotFound
	case errors.Is(err, fs.ErrPermission):
		return AccessPermissionDenied
	case errors.Is(err, syscall.EBUSY):
		return AccessDeviceBusy
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission"), strings.Contains(msg, "not authorized"):
		return AccessPermissionDenied
	case strings.Contains(msg, "busy"), strings.Contains(msg, "in use"):
		return AccessDeviceBusy
	case strings.Contains(msg, "no such"), strings.Contains(msg, "not found"):
		return AccessNotFound
	}
	return AccessOther
}
