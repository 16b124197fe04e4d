package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
)

var ErrStopped = errors.New("shutdown already performed")

type State int32

const (
	Running State = iota
	ShuttingDown
	Stopped
)

func (s State) String() string {
	switch s {
	case ShuttingDown:
		return "shutting_down"
	case Stopped:
		return "stopped"
	}
	return "running"
}

// Closer is the pool handle closed after every task
type Closer interface {
	Close() error
}

type task struct {
	name string
	fn   func(context.Context) error
}

// Coordinator runs cleanup tasks once, in registration order, then closes the pool
type Coordinator struct {
	mu    sync.Mutex
	state State
	tasks []task
	pool  Closer
	log   zerolog.Logger
}

func New(logger zerolog.Logger, pool Closer) *Coordinator {
	c := &Coordinator{
		pool: pool,
		log:  logger.With().Str("component", "shutdown").Logger(),
	}
	c.log.Info().Msg("Shutdown coordinator initialized")
	return c
}

// RegisterTask adds a cleanup task. Tasks registered after shutdown started are ignored.
func (c *Coordinator) RegisterTask(name string, fn func(context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Running {
		c.log.Warn().Str("task", name).Msg("Cleanup task registered after shutdown began, ignoring")
		return
	}
	c.tasks = append(c.tasks, task{name: name, fn: fn})
	c.log.Debug().Str("task", name).Msg("Registered cleanup task")
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Shutdown runs every task sequentially and closes the pool last. A failing task is
// logged and the rest still run. The returned error joins every failure.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Running {
		c.mu.Unlock()
		return ErrStopped
	}
	c.state = ShuttingDown
	tasks := c.tasks
	c.mu.Unlock()

	c.log.Info().Int("tasks", len(tasks)).Msg("Starting shutdown procedure")

	var errs []error
	for _, t := range tasks {
		c.log.Info().Str("task", t.name).Msg("Executing cleanup task")
		if err := run(ctx, t); err != nil {
			c.log.Error().Err(err).Str("task", t.name).Msg("Cleanup task failed")
			errs = append(errs, fmt.Errorf("%s: %w", t.name, err))
		}
	}

	if c.pool != nil {
		c.log.Debug().Msg("Closing database connection pool")
		if err := c.pool.Close(); err != nil {
			c.log.Error().Err(err).Msg("Failed to close database pool")
			errs = append(errs, fmt.Errorf("close pool: %w", err))
		}
	}

	c.mu.Lock()
	c.state = Stopped
	c.mu.Unlock()

	if len(errs) > 0 {
		c.log.Warn().Int("failures", len(errs)).Msg("Shutdown completed with errors")
	} else {
		c.log.Info().Msg("Shutdown procedure completed successfully")
	}
	return errors.Join(errs...)
}

func run(ctx context.Context, t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.fn(ctx)
}

// WaitForSignal blocks until SIGINT, SIGTERM or ctx is done. It returns the signal,
// or nil when ctx ended first.
func (c *Coordinator) WaitForSignal(ctx context.Context) os.Signal {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case s := <-sig:
		c.log.Info().Str("signal", s.String()).Msg("Received signal, triggering graceful shutdown")
		return s
	case <-ctx.Done():
		c.log.Info().Msg("Context cancelled, triggering graceful shutdown")
		return nil
	}
}
