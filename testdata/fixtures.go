// Package testdata generates camera frames and cameras for tests.
package testdata

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/moodplayer/internal/capture"
)

// Frame size used by the generated frames.
const (
	Width  = 64
	Height = 48
)

// BlankFrame returns a black frame. The caller closes it.
func BlankFrame() *gocv.Mat {
	m := gocv.NewMatWithSize(Height, Width, gocv.MatTypeCV8UC3)
	return &m
}

// SolidFrame returns a frame filled with the given BGR colour.
func SolidFrame(b, g, r float64) *gocv.Mat {
	m := BlankFrame()
	m.SetTo(gocv.NewScalar(b, g, r, 0))
	return m
}

// FaceFrame returns a dark frame with a skin-toned disc where a face sits
// in a webcam picture.
func FaceFrame() *gocv.Mat {
	m := SolidFrame(40, 40, 40)
	gocv.Circle(m, image.Pt(Width/2, Height/2), Height/3, color.RGBA{R: 224, G: 190, B: 165}, -1)
	return m
}

// LoopingCamera returns a mock camera that cycles over frames forever.
func LoopingCamera(frames ...*gocv.Mat) *capture.MockCamera {
	if len(frames) == 0 {
		frames = []*gocv.Mat{FaceFrame()}
	}
	return capture.NewMockCamera(frames, true)
}

// CloseAll closes every frame.
func CloseAll(frames ...*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}
