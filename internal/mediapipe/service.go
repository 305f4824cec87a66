// Package mediapipe runs a Python MediaPipe model as a long-lived subprocess.
//
// Every request is one frame: a 4-byte big-endian length followed by the
// JPEG-encoded image, written to the service's stdin. The response format is
// owned by the caller, which reads it from the service's stdout while the
// service lock is held.
//
// The process is started lazily on the first request and shut down after
// IdleTimeout without requests.
package mediapipe

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// IdleTimeout is how long an unused service process is kept alive.
const IdleTimeout = 30 * time.Second

// ErrScriptNotFound is returned when the service script cannot be located.
var ErrScriptNotFound = errors.New("mediapipe service script not found")

// Service manages one MediaPipe subprocess.
type Service struct {
	script    string
	args      []string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	lastUsed  time.Time
	idleTimer *time.Timer
}

// NewService locates the named script (e.g. "mediapipe_service.py") and
// returns a Service that will run it with the given extra arguments.
func NewService(scriptName string, args ...string) (*Service, error) {
	scriptPath := FindScript(scriptName)
	if scriptPath == "" {
		return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, scriptName)
	}

	return &Service{
		script: scriptPath,
		args:   args,
	}, nil
}

// Exchange sends one frame to the service and hands its stdout to read,
// which must consume exactly one response.
func (s *Service) Exchange(frame *gocv.Mat, read func(r *bufio.Reader) error) error {
	if frame == nil || frame.Empty() {
		return errors.New("empty frame")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureStarted(); err != nil {
		return err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	if err := WriteFrame(s.stdin, buf.GetBytes()); err != nil {
		// A broken pipe means the process died; restart it next time.
		s.shutdown()
		return err
	}

	if err := read(s.stdout); err != nil {
		s.shutdown()
		return fmt.Errorf("read response: %w", err)
	}

	s.lastUsed = time.Now()
	s.resetIdleTimer()

	return nil
}

// Close shuts down the Python process.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown()
}

// WriteFrame writes a length-prefixed payload.
func WriteFrame(w io.Writer, data []byte) error {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := w.Write(length); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
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

	s.cmd = exec.Command(pythonPath, append([]string{s.script}, s.args...)...)

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	s.cmd.Stderr = os.Stderr

	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", filepath.Base(s.script), err)
	}

	s.stdin = stdin
	s.stdout = bufio.NewReader(stdout)
	s.started = true
	s.lastUsed = time.Now()

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
	s.idleTimer = time.AfterFunc(IdleTimeout, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.shutdown()
	})
}

// FindScript looks for a service script in the usual locations:
// scripts/ and ../scripts/ relative to the working directory, scripts/ next
// to the executable, and ~/.backdrop/scripts.
func FindScript(name string) string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", name),
		filepath.Join("..", "scripts", name),
		filepath.Join(execDir, "scripts", name),
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".backdrop", "scripts", name))
	}

	return firstExisting(candidates)
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
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".backdrop", "venv", "bin", "python"))
	}

	return firstExisting(candidates)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
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
