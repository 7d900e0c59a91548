package redirect

import (
	"golang.org/x/sync/errgroup"

	"github.com/bachue/outrotate/logger"
)

// Process is a started child the supervisor waits for.
type Process interface {
	Wait() (int, error)
}

// Supervisor runs one worker per stream of a child and joins them.
type Supervisor struct {
	logger  logger.Logger
	workers []*Worker
}

func NewSupervisor(log logger.Logger, workers ...*Worker) *Supervisor {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Supervisor{logger: log, workers: workers}
}

// Run starts the workers, waits for the child to exit and then for every
// worker to drain its stream. A failing worker does not stop the others.
// The first worker error is returned; the child's exit code is only logged.
func (s *Supervisor) Run(child Process) error {
	var g errgroup.Group
	for _, w := range s.workers {
		g.Go(func() error {
			if err := w.Run(); err != nil {
				s.logger.Error("log redirection failed",
					logger.String("stream", w.Name()),
					logger.String("path", w.Path()),
					logger.Err(err),
				)
				return err
			}
			s.logger.Debug("stream closed", logger.String("stream", w.Name()))
			return nil
		})
	}

	code, waitErr := child.Wait()
	if waitErr != nil {
		s.logger.Error("failed to wait for child", logger.Err(waitErr))
	} else {
		s.logger.Info("child exited", logger.Int("exit_code", code))
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return waitErr
}
