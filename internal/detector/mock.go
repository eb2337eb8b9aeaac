package detector

import (
	"context"
	"sync"

	"gocv.io/x/gocv"
)

// MockClassifier is a test implementation of the Classifier interface.
// It allows tests to control the classification results.
type MockClassifier struct {
	mu     sync.Mutex
	faces  []Face
	queue  [][]Face
	err    error
	gate   chan struct{}
	calls  int
	closed bool
}

// NewMockClassifier creates a new MockClassifier instance.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{}
}

// SetFaces sets the faces returned by every Classify call.
func (m *MockClassifier) SetFaces(faces []Face) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = faces
}

// Enqueue adds a one-shot result that is returned before the SetFaces result.
func (m *MockClassifier) Enqueue(faces ...Face) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, faces)
}

// SetError sets the error that will be returned by Classify.
func (m *MockClassifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Hold makes Classify block until the returned release func is called.
func (m *MockClassifier) Hold() (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.gate = gate
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			m.gate = nil
			m.mu.Unlock()
			close(gate)
		})
	}
}

// Calls returns how many times Classify was invoked.
func (m *MockClassifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *MockClassifier) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Classify returns the pre-configured faces or error.
func (m *MockClassifier) Classify(ctx context.Context, frame *gocv.Mat) ([]Face, error) {
	m.mu.Lock()
	m.calls++
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next, nil
	}
	return m.faces, nil
}

// Close marks the classifier closed.
func (m *MockClassifier) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// FaceWith returns a centred face with the given expression confidences.
func FaceWith(expressions map[string]float64) Face {
	return Face{
		Box:         Box{X: 220, Y: 140, Width: 200, Height: 200},
		Score:       0.9,
		Expressions: expressions,
	}
}

// HappyFace returns a face whose top expression is happy at 0.82.
func HappyFace() Face {
	return FaceWith(map[string]float64{"happy": 0.82, "neutral": 0.10, "surprised": 0.05})
}
