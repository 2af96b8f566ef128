// Package loop drives a cfg or cpg handle from its pollable descriptor.
//
// Run blocks the calling goroutine, polls the descriptor and dispatches
// every pending callback when it becomes readable. It starts no goroutines;
// callbacks run on the goroutine that called Run.
package loop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/corosync/corosync-go/pkg/corosync"
)

// DefaultPollInterval bounds how long Run waits before rechecking ctx.
const DefaultPollInterval = 200 * time.Millisecond

// ErrHangup reports that the descriptor was closed or became invalid, which
// happens when the daemon goes away or the handle is finalized.
var ErrHangup = errors.New("loop: descriptor hung up")

// Dispatcher is implemented by *cfg.Handle and *cpg.Handle.
type Dispatcher interface {
	FdGet() (int, error)
	Dispatch(flags corosync.DispatchFlags) error
}

// Option configures Run.
type Option func(*config)

type config struct {
	interval time.Duration
	onIdle   func()
}

// WithPollInterval sets the poll timeout. Non-positive values keep the
// default.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithIdle registers fn to run after every poll timeout.
func WithIdle(fn func()) Option {
	return func(c *config) { c.onIdle = fn }
}

// Run dispatches callbacks for d until ctx is done or an error occurs. It
// returns ctx.Err() on cancellation.
func Run(ctx context.Context, d Dispatcher, opts ...Option) error {
	cfg := config{interval: DefaultPollInterval}
	for _, opt := range opts {
		opt(&cfg)
	}

	fd, err := d.FdGet()
	if err != nil {
		return err
	}
	timeout := int(cfg.interval / time.Millisecond)
	if timeout == 0 {
		timeout = 1
	}

	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fds[0].Revents = 0
		n, err := unix.Poll(fds, timeout)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("loop: poll: %w", err)
		}
		if n == 0 {
			if cfg.onIdle != nil {
				cfg.onIdle()
			}
			continue
		}
		rev := fds[0].Revents
		if rev&unix.POLLIN != 0 {
			if err := d.Dispatch(corosync.DispatchAll); err != nil {
				return err
			}
			continue
		}
		if rev&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			return ErrHangup
		}
	}
}
