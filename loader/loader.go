package loader

import (
	"context"
	"fmt"
	"maps"
	"runtime/debug"
	"time"

	"KasutamaizaBot/metrics"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Outcome string

const (
	Loaded  Outcome = "loaded"
	Skipped Outcome = "skipped"
	Failed  Outcome = "failed"
)

// LoadError is the failure recorded for a module. Stack is set when Initialize panicked.
type LoadError struct {
	Module string
	Err    error
	Stack  []byte
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Module, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type Result struct {
	Name    string
	Outcome Outcome
	Err     error
}

type Failure struct {
	Name string
	Err  error
}

// Summary aggregates the outcome of one LoadAll pass
type Summary struct {
	Loaded  []string
	Skipped []string
	Failed  []Failure
}

func (s Summary) Total() int {
	return len(s.Loaded) + len(s.Skipped) + len(s.Failed)
}

func (s Summary) Log(logger zerolog.Logger) {
	logger.Info().
		Int("loaded", len(s.Loaded)).
		Int("skipped", len(s.Skipped)).
		Int("failed", len(s.Failed)).
		Msg("Module loading complete")
	for _, f := range s.Failed {
		logger.Error().Err(f.Err).Str("module", f.Name).Msg("Module failed to load")
	}
}

// Loader initializes every module of a catalog kind
type Loader struct {
	Timeout    time.Duration
	Concurrent bool
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
}

// LoadAll initializes the modules registered under kind. Failures are recorded in
// the summary and never stop the remaining modules.
func (l *Loader) LoadAll(ctx context.Context, kind string, base Context) Summary {
	entries := Entries(kind)
	results := make([]Result, len(entries))
	log := l.Logger.With().Str("component", "loader").Str("kind", kind).Logger()

	if len(entries) == 0 {
		log.Warn().Msg("No modules registered")
	}

	if l.Concurrent {
		var g errgroup.Group
		for i, e := range entries {
			g.Go(func() error {
				results[i] = l.load(ctx, e, base, log)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, e := range entries {
			results[i] = l.load(ctx, e, base, log)
		}
	}

	var summary Summary
	for _, r := range results {
		l.Metrics.ModuleLoad(string(r.Outcome))
		switch r.Outcome {
		case Loaded:
			summary.Loaded = append(summary.Loaded, r.Name)
		case Skipped:
			summary.Skipped = append(summary.Skipped, r.Name)
		case Failed:
			summary.Failed = append(summary.Failed, Failure{Name: r.Name, Err: r.Err})
		}
	}
	summary.Log(log)
	return summary
}

func (l *Loader) load(ctx context.Context, e Entry, base Context, log zerolog.Logger) Result {
	name := e.Kind + "." + e.Name

	m, ok := e.Value.(Module)
	if !ok {
		log.Warn().Str("module", name).Msgf("No setup entry point (%T), skipping", e.Value)
		return Result{Name: name, Outcome: Skipped}
	}

	mc := base
	mc.Logger = base.Logger.With().Str("module", name).Logger()
	mc.Helpers = make(map[string]any)
	if ho, ok := m.(HelperOverrides); ok {
		maps.Copy(mc.Helpers, ho.HelperOverrides())
	}
	if base.Registry != nil {
		base.Registry.Inject(mc.Helpers, "")
	}

	start := time.Now()
	if err := l.initialize(ctx, name, m, &mc); err != nil {
		log.Error().Err(err).Str("module", name).Msg("Failed to load module")
		return Result{Name: name, Outcome: Failed, Err: err}
	}
	log.Info().Str("module", name).Dur("took", time.Since(start)).Msg("Loaded module")
	return Result{Name: name, Outcome: Loaded}
}

// initialize runs m.Initialize under the loader timeout. A module that ignores its
// context keeps running in the background after the timeout is reported.
func (l *Loader) initialize(ctx context.Context, name string, m Module, mc *Context) error {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- &LoadError{Module: name, Err: fmt.Errorf("panic: %v", r), Stack: debug.Stack()}
			}
		}()
		if err := m.Initialize(ctx, mc); err != nil {
			done <- &LoadError{Module: name, Err: err}
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return &LoadError{Module: name, Err: fmt.Errorf("setup did not finish: %w", ctx.Err())}
	}
}
