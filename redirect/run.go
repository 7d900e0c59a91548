package redirect

import (
	"strings"

	metrics "github.com/hashicorp/go-metrics"

	"github.com/bachue/outrotate/config"
	"github.com/bachue/outrotate/logger"
	"github.com/bachue/outrotate/process"
)

// Options carries the ambient dependencies of a run.
type Options struct {
	Logger  logger.Logger
	Metrics metrics.MetricSink
}

// RunCommand opens the destinations of cfg, starts the child with its output
// piped into them and returns once the child has exited and its output is
// fully written. Destinations are locked before the child starts, so a
// locked destination aborts the run without spawning anything.
func RunCommand(cfg *config.Config, opts Options) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	src, err := process.NewSource(cfg.SeparateStderr())
	if err != nil {
		return err
	}
	defer src.Close()

	stdout, err := NewWorker(src.Stdout(), WorkerConfig{
		Name:    "stdout",
		Stream:  *cfg.Stdout,
		Logger:  log.WithSubsystem("stdout"),
		Metrics: opts.Metrics,
	})
	if err != nil {
		return err
	}
	workers := []*Worker{stdout}

	if r, ok := src.Stderr(); ok {
		stderr, err := NewWorker(r, WorkerConfig{
			Name:    "stderr",
			Stream:  *cfg.Stderr,
			Logger:  log.WithSubsystem("stderr"),
			Metrics: opts.Metrics,
		})
		if err != nil {
			stdout.Close()
			return err
		}
		workers = append(workers, stderr)
	}

	child, err := src.Spawn(cfg.Command[0], cfg.Command[1:])
	if err != nil {
		for _, w := range workers {
			w.Close()
		}
		return err
	}
	log.Info("started child",
		logger.Int("pid", child.Pid()),
		logger.String("executable", child.Executable()),
		logger.String("command", strings.Join(cfg.Command, " ")),
		logger.Bool("separate_stderr", cfg.SeparateStderr()),
	)

	stop := process.ForwardSignals(child, log)
	defer stop()

	return NewSupervisor(log, workers...).Run(child)
}
