package process

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/bachue/outrotate/logger"
)

// ForwardedSignals are relayed from outrotate to the child.
var ForwardedSignals = []os.Signal{
	syscall.SIGHUP,
	syscall.SIGINT,
	syscall.SIGQUIT,
	syscall.SIGTERM,
}

// ForwardSignals relays ForwardedSignals to the child until stop is called.
// outrotate itself keeps running so it can drain what the child writes
// while shutting down.
func ForwardSignals(c *Child, log logger.Logger) (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, ForwardedSignals...)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case sig := <-sigs:
				err := c.Signal(sig)
				switch {
				case errors.Is(err, os.ErrProcessDone):
				case err != nil:
					log.Warn("failed to forward signal to child",
						logger.String("signal", sig.String()),
						logger.Int("pid", c.Pid()),
						logger.Err(err),
					)
				default:
					log.Info("forwarded signal to child",
						logger.String("signal", sig.String()),
						logger.Int("pid", c.Pid()),
					)
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}
