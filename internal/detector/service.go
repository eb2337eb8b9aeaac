package detector

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// ScriptName is the expression service started by Service.
const ScriptName = "expression_service.py"

// DefaultIdleTimeout is how long an unused service process is kept alive.
const DefaultIdleTimeout = 30 * time.Second

// ErrScriptNotFound is returned when the expression service script is missing.
var ErrScriptNotFound = errors.New(ScriptName + " not found")

// Service implements Classifier using an external expression-recognition
// process. Frames are sent as length-prefixed JPEG on stdin and results come
// back as one JSON line per frame. The first line after start reports whether
// the models loaded.
type Service struct {
	config      Config
	source      string
	script      string
	logger      zerolog.Logger
	idleTimeout time.Duration

	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	lastUsed  time.Time
	idleTimer *time.Timer
}

// NewService creates a classifier that loads its models from source.
// The process is started by Load or lazily on first classification.
func NewService(config Config, source string, logger zerolog.Logger) (*Service, error) {
	script := config.ScriptPath
	if script == "" {
		script = findScript()
	}
	if script == "" {
		return nil, ErrScriptNotFound
	}

	return &Service{
		config:      config,
		source:      source,
		script:      script,
		logger:      logger.With().Str("component", "classifier").Str("source", source).Logger(),
		idleTimeout: DefaultIdleTimeout,
	}, nil
}

// Load starts the service process and waits until it reports its models ready.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withContext(ctx, s.ensureStarted)
}

// Classify sends a frame to the service and returns the detected faces.
func (s *Service) Classify(ctx context.Context, frame *gocv.Mat) ([]Face, error) {
	if frame == nil || frame.Empty() {
		return nil, errors.New("empty frame")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	var faces []Face
	err = s.withContext(ctx, func() error {
		if err := s.ensureStarted(); err != nil {
			return err
		}
		var rerr error
		faces, rerr = s.roundTrip(data)
		return rerr
	})
	if err != nil {
		return nil, err
	}

	s.lastUsed = time.Now()
	s.resetIdleTimer()

	return faces, nil
}

// Close shuts down the service process.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown()
}

// withContext runs fn and kills the process if ctx ends first, which
// unblocks any pending pipe I/O. Callers hold s.mu.
func (s *Service) withContext(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		if err != nil && s.started {
			// The stream is out of sync after a failed exchange.
			s.kill()
			s.shutdown()
		}
		return err
	case <-ctx.Done():
		s.kill()
		<-done
		s.shutdown()
		return ctx.Err()
	}
}

func (s *Service) kill() {
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
}

func (s *Service) roundTrip(data []byte) ([]Face, error) {
	// Write length (4 bytes big-endian) + data
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := s.stdin.Write(length); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := s.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := s.stdout.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return parseResponse([]byte(line))
}

func (s *Service) ensureStarted() error {
	if s.started {
		return nil
	}

	// Use virtual environment Python if available
	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	cmd := exec.Command(pythonPath, s.script,
		"--weights", s.source,
		"--input-size", strconv.Itoa(s.config.InputSize),
		"--score-threshold", strconv.FormatFloat(s.config.ScoreThreshold, 'f', -1, 64),
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start expression service: %w", err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.stdout = bufio.NewReader(stdout)
	s.started = true
	s.lastUsed = time.Now()

	line, err := s.stdout.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read ready line: %w", err)
	}
	if err := parseReady([]byte(line)); err != nil {
		return err
	}

	s.logger.Info().Int("pid", cmd.Process.Pid).Msg("expression models loaded")
	return nil
}

func (s *Service) shutdown() error {
	if !s.started {
		return nil
	}

	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}

	if s.stdin != nil {
		s.stdin.Close()
	}

	err := s.cmd.Wait()
	s.started = false
	s.cmd = nil
	s.stdin = nil
	s.stdout = nil

	return err
}

func (s *Service) resetIdleTimer() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(s.idleTimeout, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.logger.Debug().Msg("stopping idle expression service")
		s.shutdown()
	})
}

type readyLine struct {
	Ready bool   `json:"ready"`
	Error string `json:"error"`
}

func parseReady(line []byte) error {
	var r readyLine
	if err := json.Unmarshal(line, &r); err != nil {
		return fmt.Errorf("parse ready line: %w", err)
	}
	if !r.Ready {
		if r.Error == "" {
			r.Error = "models not ready"
		}
		return fmt.Errorf("load models: %s", r.Error)
	}
	return nil
}

type response struct {
	Faces []Face `json:"faces"`
	Error string `json:"error"`
}

func parseResponse(line []byte) ([]Face, error) {
	var r response
	if err := json.Unmarshal(line, &r); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if r.Error != "" {
		return nil, fmt.Errorf("classify: %s", r.Error)
	}
	if r.Faces == nil {
		return []Face{}, nil
	}
	return r.Faces, nil
}

func findScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", ScriptName),
		filepath.Join("..", "scripts", ScriptName),
		filepath.Join(execDir, "scripts", ScriptName),
		filepath.Join(os.Getenv("HOME"), ".moodplayer", "scripts", ScriptName),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".moodplayer/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
