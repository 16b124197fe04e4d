package shutdown

import (
	"context"
	"errors"
	"io"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakePool struct {
	order  *[]string
	closed int
}

func (p *fakePool) Close() error {
	p.closed++
	*p.order = append(*p.order, "pool")
	return nil
}

func TestShutdownRunsTasksInOrderThenPool(t *testing.T) {
	var order []string
	pool := &fakePool{order: &order}
	c := New(zerolog.New(io.Discard), pool)

	c.RegisterTask("session", func(context.Context) error {
		order = append(order, "session")
		return nil
	})
	c.RegisterTask("metrics", func(context.Context) error {
		order = append(order, "metrics")
		return errors.New("listener already closed")
	})
	c.RegisterTask("panics", func(context.Context) error {
		order = append(order, "panics")
		panic("cleanup bug")
	})
	c.RegisterTask("flush", func(context.Context) error {
		order = append(order, "flush")
		return nil
	})

	err := c.Shutdown(context.Background())
	if err == nil || !strings.Contains(err.Error(), "listener already closed") || !strings.Contains(err.Error(), "cleanup bug") {
		t.Errorf("joined error = %v", err)
	}

	want := "session,metrics,panics,flush,pool"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
	if c.State() != Stopped {
		t.Errorf("state = %v", c.State())
	}
}

func TestShutdownIsTerminal(t *testing.T) {
	var order []string
	pool := &fakePool{order: &order}
	c := New(zerolog.New(io.Discard), pool)

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.Shutdown(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("second shutdown = %v", err)
	}
	if pool.closed != 1 {
		t.Errorf("pool closed %d times", pool.closed)
	}

	ran := false
	c.RegisterTask("late", func(context.Context) error { ran = true; return nil })
	if ran {
		t.Error("late task ran")
	}
}

func TestShutdownWithoutPool(t *testing.T) {
	c := New(zerolog.New(io.Discard), nil)
	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestWaitForSignalContext(t *testing.T) {
	c := New(zerolog.New(io.Discard), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if sig := c.WaitForSignal(ctx); sig != nil {
		t.Errorf("got signal %v", sig)
	}
}

func TestWaitForSignalSIGTERM(t *testing.T) {
	c := New(zerolog.New(io.Discard), nil)
	done := make(chan any, 1)
	go func() { done <- c.WaitForSignal(context.Background()) }()

	// give Notify a moment to install the handler
	time.Sleep(20 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Skip("cannot signal self:", err)
	}

	select {
	case sig := <-done:
		if sig != syscall.SIGTERM {
			t.Errorf("got %v", sig)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("signal not observed")
	}
}
