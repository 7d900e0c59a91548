// Package redirect copies the child's output streams into size-rotated log
// files.
package redirect

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	metrics "github.com/hashicorp/go-metrics"
	"github.com/hashicorp/go-multierror"

	"github.com/bachue/outrotate/config"
	"github.com/bachue/outrotate/logger"
	"github.com/bachue/outrotate/rotate"
)

const (
	fileMode        = 0o644
	writeBufferSize = 4096
)

// WorkerConfig configures the redirection of one stream.
type WorkerConfig struct {
	// Name identifies the stream in logs and metric labels.
	Name   string
	Stream config.StreamConfig

	Logger  logger.Logger
	Metrics metrics.MetricSink
}

// Worker copies one byte stream line by line into a locked destination file,
// rotating it when the next line would push it past its size limit.
type Worker struct {
	name     string
	path     string
	maxBytes uint64

	src    *bufio.Reader
	closer io.Closer

	file *os.File
	out  *bufio.Writer
	// size counts the bytes written to file since it was opened or recreated.
	size uint64

	engine *rotate.Engine
	logger logger.Logger
	sink   metrics.MetricSink
	labels []metrics.Label

	closeOnce sync.Once
	closeErr  error
}

// NewWorker opens and locks the destination of cfg. The destination is
// created if missing but its directory is not. If another process holds the
// destination lock a *rotate.FileLockedError is returned and a file created
// by this call is removed again.
func NewWorker(src io.Reader, cfg WorkerConfig) (*Worker, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	sink := cfg.Metrics
	if sink == nil {
		sink = &metrics.BlackholeSink{}
	}
	labels := []metrics.Label{{Name: "stream", Value: cfg.Name}}

	engine, err := rotate.NewEngine(rotate.EngineConfig{
		Path:     cfg.Stream.Path,
		Backups:  cfg.Stream.Backups,
		Compress: cfg.Stream.Compress,
		Logger:   log,
		Metrics:  sink,
		Labels:   labels,
	})
	if err != nil {
		return nil, err
	}

	f, created, err := openDestination(cfg.Stream.Path)
	if err != nil {
		return nil, err
	}
	if err := rotate.LockFile(f); err != nil {
		f.Close()
		if created {
			os.Remove(cfg.Stream.Path)
		}
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", cfg.Stream.Path, err)
	}

	w := &Worker{
		name:     cfg.Name,
		path:     cfg.Stream.Path,
		maxBytes: cfg.Stream.MaxBytes(),
		src:      bufio.NewReader(src),
		file:     f,
		out:      bufio.NewWriterSize(f, writeBufferSize),
		size:     uint64(info.Size()),
		engine:   engine,
		logger:   log,
		sink:     sink,
		labels:   labels,
	}
	if c, ok := src.(io.Closer); ok {
		w.closer = c
	}

	log.Debug("opened log file",
		logger.String("path", w.path),
		logger.String("size", humanize.IBytes(w.size)),
		logger.Bool("created", created),
	)
	return w, nil
}

// openDestination opens path for appending, creating it if needed, and
// reports whether this call created it.
func openDestination(path string) (*os.File, bool, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND, fileMode)
	if err == nil {
		return f, true, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return nil, false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	f, err = os.OpenFile(path, os.O_WRONLY|os.O_APPEND, fileMode)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, false, nil
}

// Name returns the stream name.
func (w *Worker) Name() string {
	return w.name
}

// Path returns the destination file.
func (w *Worker) Path() string {
	return w.path
}

// Run copies the stream until it ends or an error occurs, then closes both
// the destination and the source. Buffered output is flushed whenever the
// reader runs out of buffered input, before a rotation and at the end.
func (w *Worker) Run() (err error) {
	defer func() {
		if cerr := w.Close(); cerr != nil {
			err = multierror.Append(err, cerr).ErrorOrNil()
		}
	}()

	for {
		line, rerr := w.src.ReadBytes('\n')
		if len(line) > 0 {
			if err := w.write(line); err != nil {
				return err
			}
		}
		if rerr == io.EOF {
			return w.flush()
		}
		if rerr != nil {
			return fmt.Errorf("failed to read %s: %w", w.name, rerr)
		}
		if w.src.Buffered() == 0 {
			if err := w.flush(); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) write(line []byte) error {
	n := uint64(len(line))
	if rotate.ShouldRotate(w.size, n, w.maxBytes) {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	if _, err := w.out.Write(line); err != nil {
		return fmt.Errorf("failed to write to %s: %w", w.path, err)
	}
	w.size += n

	w.sink.IncrCounterWithLabels([]string{"redirect", "lines"}, 1, w.labels)
	w.sink.IncrCounterWithLabels([]string{"redirect", "bytes"}, float32(n), w.labels)
	return nil
}

// rotate hands the full destination to the rotation engine and starts a
// fresh, empty one at the same path.
func (w *Worker) rotate() error {
	if err := w.flush(); err != nil {
		return err
	}
	size := w.size

	if err := w.engine.Rotate(); err != nil {
		return fmt.Errorf("failed to rotate %s: %w", w.path, err)
	}

	old := w.file
	w.file = nil
	if err := old.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", w.path, err)
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, fileMode)
	if err != nil {
		return fmt.Errorf("failed to recreate %s: %w", w.path, err)
	}
	if err := rotate.LockFile(f); err != nil {
		f.Close()
		return err
	}

	w.file = f
	w.out.Reset(f)
	w.size = 0

	w.logger.Debug("started new log file",
		logger.String("path", w.path),
		logger.String("previous_size", humanize.IBytes(size)),
		logger.String("limit", humanize.IBytes(w.maxBytes)),
	)
	return nil
}

func (w *Worker) flush() error {
	if w.out.Buffered() == 0 {
		return nil
	}
	if err := w.out.Flush(); err != nil {
		return fmt.Errorf("failed to write to %s: %w", w.path, err)
	}
	return nil
}

// Close closes the destination, releasing its lock, and the source. It does
// not flush. Closing the source makes further writes by the child fail.
func (w *Worker) Close() error {
	w.closeOnce.Do(func() {
		var result *multierror.Error
		if w.file != nil {
			if err := w.file.Close(); err != nil {
				result = multierror.Append(result, fmt.Errorf("failed to close %s: %w", w.path, err))
			}
			w.file = nil
		}
		if w.closer != nil {
			if err := w.closer.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
				result = multierror.Append(result, fmt.Errorf("failed to close %s input: %w", w.name, err))
			}
		}
		w.closeErr = result.ErrorOrNil()
	})
	return w.closeErr
}
