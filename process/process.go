// Package process starts the supervised child with its output connected to
// pipes read by the redirect workers.
package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/hashicorp/go-multierror"
)

// SpawnError means the child process could not be started.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// Source owns the pipes a child writes its output into. The read ends are
// handed to the workers before the child is spawned so that nothing the
// child writes is lost.
type Source struct {
	stdoutR *os.File
	stdoutW *os.File
	stderrR *os.File
	stderrW *os.File
}

// NewSource creates the output pipes. Without separateStderr the child's
// stdout and stderr share a single pipe.
func NewSource(separateStderr bool) (*Source, error) {
	s := &Source{}

	var err error
	s.stdoutR, s.stdoutW, err = os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if separateStderr {
		s.stderrR, s.stderrW, err = os.Pipe()
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
		}
	}
	return s, nil
}

// Stdout returns the read end carrying the child's stdout, and its stderr
// too when the streams are merged.
func (s *Source) Stdout() io.ReadCloser {
	return s.stdoutR
}

// Stderr returns the read end carrying the child's stderr, if it has its own pipe.
func (s *Source) Stderr() (io.ReadCloser, bool) {
	if s.stderrR == nil {
		return nil, false
	}
	return s.stderrR, true
}

// Spawn starts name with args. Stdin is the null device. The parent's copies
// of the write ends are closed once the child holds them, whether or not it
// started, so the readers see EOF when the child is gone.
func (s *Source) Spawn(name string, args []string) (*Child, error) {
	cmd := exec.Command(name, args...)
	cmd.Stdout = s.stdoutW
	if s.stderrW != nil {
		cmd.Stderr = s.stderrW
	} else {
		cmd.Stderr = s.stdoutW
	}
	// Own process group: terminal signals reach the child only through
	// ForwardSignals.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	startErr := cmd.Start()
	closeErr := s.closeWriters()
	if startErr != nil {
		return nil, &SpawnError{Command: strings.Join(cmd.Args, " "), Err: startErr}
	}
	if closeErr != nil {
		return nil, closeErr
	}

	return &Child{cmd: cmd, pid: cmd.Process.Pid}, nil
}

func (s *Source) closeWriters() error {
	var result *multierror.Error
	for _, f := range []*os.File{s.stdoutW, s.stderrW} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			result = multierror.Append(result, fmt.Errorf("failed to close pipe: %w", err))
		}
	}
	return result.ErrorOrNil()
}

// Close releases every pipe end still held by the parent.
func (s *Source) Close() error {
	var result *multierror.Error
	if err := s.closeWriters(); err != nil {
		result = multierror.Append(result, err)
	}
	for _, f := range []*os.File{s.stdoutR, s.stderrR} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			result = multierror.Append(result, fmt.Errorf("failed to close pipe: %w", err))
		}
	}
	return result.ErrorOrNil()
}

// Child is a started child process.
type Child struct {
	cmd *exec.Cmd
	pid int
}

// Pid returns the child's process id.
func (c *Child) Pid() int {
	return c.pid
}

// Wait blocks until the child exits and returns its exit code. A child that
// ran and failed is not an error; the code is -1 if it was killed by a signal.
func (c *Child) Wait() (int, error) {
	err := c.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("failed to wait for child %d: %w", c.pid, err)
}

// Signal delivers sig to the child.
func (c *Child) Signal(sig os.Signal) error {
	return c.cmd.Process.Signal(sig)
}
