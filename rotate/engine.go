package rotate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
	"unicode/utf8"

	metrics "github.com/hashicorp/go-metrics"
	"github.com/hashicorp/go-multierror"

	"github.com/bachue/outrotate/logger"
)

// EngineConfig configures rotation for one destination file.
type EngineConfig struct {
	// Path is the live destination file.
	Path string
	// Backups is the number of generations to keep. 0 deletes the live file on rotation.
	Backups int
	// Compress gzips every backup that is not compressed yet.
	Compress bool

	Logger  logger.Logger
	Metrics metrics.MetricSink
	Labels  []metrics.Label
}

// Engine moves a destination file and its backups one generation up.
type Engine struct {
	dir      string
	namer    *Namer
	backups  int
	compress bool

	logger logger.Logger
	sink   metrics.MetricSink
	labels []metrics.Label
}

// NewEngine validates cfg and builds the backup matchers for its path.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Backups < 0 {
		return nil, fmt.Errorf("backup count must not be negative, got %d", cfg.Backups)
	}

	namer, err := NewNamer(filepath.Base(cfg.Path))
	if err != nil {
		return nil, err
	}
	if !utf8.ValidString(namer.Base()) {
		return nil, &InvalidFileNameError{Dir: filepath.Dir(cfg.Path), Name: []byte(namer.Base())}
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	sink := cfg.Metrics
	if sink == nil {
		sink = &metrics.BlackholeSink{}
	}

	return &Engine{
		dir:      filepath.Dir(cfg.Path),
		namer:    namer,
		backups:  cfg.Backups,
		compress: cfg.Compress,
		logger:   log,
		sink:     sink,
		labels:   cfg.Labels,
	}, nil
}

// Path returns the live destination file.
func (e *Engine) Path() string {
	return filepath.Join(e.dir, e.namer.Base())
}

// Rotate runs one rotation pass. If another rotation holds the directory
// lock the pass is skipped and Rotate returns nil; the caller recreates its
// destination all the same.
func (e *Engine) Rotate() (err error) {
	lock, err := TryLockDir(e.dir)
	if errors.Is(err, ErrRotationLocked) {
		e.logger.Debug("rotation skipped, directory is being rotated elsewhere",
			logger.String("dir", e.dir),
		)
		e.sink.IncrCounterWithLabels([]string{"rotate", "skipped"}, 1, e.labels)
		return nil
	}
	if err != nil {
		return err
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil {
			err = multierror.Append(err, rerr)
		}
	}()

	start := time.Now()

	found, err := scanFamily(e.dir, e.namer)
	if err != nil {
		return err
	}

	width := 1
	if len(found) > 0 {
		width = SuffixWidth(found[0].Number)
	}

	for _, g := range found {
		if err := e.shift(g.Name, g.Number+1, width, g.Compressed); err != nil {
			return err
		}
	}
	if err := e.shift(e.namer.Base(), 1, width, false); err != nil {
		return err
	}

	e.sink.IncrCounterWithLabels([]string{"rotate", "count"}, 1, e.labels)
	e.sink.AddSampleWithLabels([]string{"rotate", "duration_ms"},
		float32(time.Since(start).Milliseconds()), e.labels)
	e.logger.Info("rotated log file",
		logger.String("path", e.Path()),
		logger.Int("existing_backups", len(found)),
		logger.Int("suffix_width", width),
		logger.Duration("took", time.Since(start)),
	)
	return nil
}

// shift moves name to generation next, or deletes it when next is beyond
// the retention count.
func (e *Engine) shift(name string, next, width int, compressed bool) error {
	from := filepath.Join(e.dir, name)

	if next > e.backups {
		if err := os.Remove(from); err != nil {
			return fmt.Errorf("failed to remove %s: %w", from, err)
		}
		e.sink.IncrCounterWithLabels([]string{"rotate", "removed"}, 1, e.labels)
		e.logger.Debug("removed expired backup", logger.String("file", name))
		return nil
	}

	target := filepath.Join(e.dir, e.namer.Name(next, width, compressed || e.compress))

	if compressed || !e.compress {
		if err := os.Rename(from, target); err != nil {
			return fmt.Errorf("failed to rename %s to %s: %w", from, target, err)
		}
		e.logger.Trace("shifted backup", logger.String("from", name), logger.String("to", filepath.Base(target)))
		return nil
	}

	// The plain file is moved aside first and only deleted once the
	// compressed copy is complete.
	tmp := target + ".tmp"
	if err := os.Rename(from, tmp); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", from, tmp, err)
	}
	if err := CompressFile(tmp, target); err != nil {
		return err
	}
	if err := os.Remove(tmp); err != nil {
		return fmt.Errorf("failed to remove %s: %w", tmp, err)
	}
	e.sink.IncrCounterWithLabels([]string{"rotate", "compressed"}, 1, e.labels)
	e.logger.Trace("compressed backup", logger.String("from", name), logger.String("to", filepath.Base(target)))
	return nil
}

// scanFamily lists the backups of namer's family in dir, highest generation
// first. Any entry whose name is not valid UTF-8 aborts the scan: skipping it
// could leave a stale backup that later breaks the numbering.
func scanFamily(dir string, namer *Namer) ([]Generation, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var found []Generation
	for _, entry := range entries {
		name := entry.Name()
		if !utf8.ValidString(name) {
			return nil, &InvalidFileNameError{Dir: dir, Name: []byte(name)}
		}
		if g, ok := namer.Parse(name); ok {
			found = append(found, g)
		}
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].Number != found[j].Number {
			return found[i].Number > found[j].Number
		}
		return found[i].Name > found[j].Name
	})
	return found, nil
}
