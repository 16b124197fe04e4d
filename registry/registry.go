package registry

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidName = errors.New("invalid helper name")
	ErrNotCallable = errors.New("helper is not callable")
	ErrNotFound    = errors.New("helper not registered")
	ErrSealed      = errors.New("helper registry is sealed")
)

// Origin records how a helper entered the registry
type Origin int

const (
	Encapsulated Origin = iota
	Discovered
)

func (o Origin) String() string {
	if o == Discovered {
		return "discovered"
	}
	return "encapsulated"
}

// Entry is a single named helper
type Entry struct {
	Name   string
	Value  any
	Origin Origin
}

// Registry maps helper names to callables. It is written during startup and read-only
// once Seal is called.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
	sealed  bool
	log     zerolog.Logger
}

// InjectReport summarizes a namespace injection
type InjectReport struct {
	Loaded  []string
	Skipped []string
}

func New(logger zerolog.Logger) *Registry {
	return &Registry{
		entries: make(map[string]Entry),
		log:     logger.With().Str("component", "registry").Logger(),
	}
}

// Register adds an explicitly registered helper. Collisions overwrite the previous entry.
func (r *Registry) Register(name string, fn any) error {
	return r.register(name, fn, Encapsulated)
}

// RegisterDiscovered adds a helper found by Discover
func (r *Registry) RegisterDiscovered(name string, fn any) error {
	return r.register(name, fn, Discovered)
}

func (r *Registry) register(name string, fn any, origin Origin) error {
	if strings.TrimSpace(name) == "" {
		r.log.Error().Str("name", name).Msg("Invalid helper name")
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !callable(fn) {
		r.log.Error().Str("name", name).Msgf("Helper is not callable (%T)", fn)
		return fmt.Errorf("%w: %s", ErrNotCallable, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("%w: cannot register %s", ErrSealed, name)
	}

	if prev, exists := r.entries[name]; exists {
		r.log.Warn().
			Str("name", name).
			Str("previous_origin", prev.Origin.String()).
			Str("origin", origin.String()).
			Msg("Duplicate helper registration, overwriting existing entry")
	}

	r.entries[name] = Entry{Name: name, Value: fn, Origin: origin}
	r.log.Debug().Str("name", name).Str("origin", origin.String()).Msg("Helper registered")
	return nil
}

// Resolve returns the helper registered under name
func (r *Registry) Resolve(name string) (any, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		r.log.Error().Str("name", name).Msg("Helper not found in registry")
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return entry.Value, nil
}

// ResolveAs resolves a helper and asserts it to the function type T
func ResolveAs[T any](r *Registry, name string) (T, error) {
	var zero T
	v, err := r.Resolve(name)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("helper %s is %T, not %T", name, v, zero)
	}
	return typed, nil
}

// Inject writes prefix+name for every helper into ns. Keys already present in ns are
// left untouched and reported as skipped.
func (r *Registry) Inject(ns map[string]any, prefix string) InjectReport {
	var report InjectReport
	for _, entry := range r.Entries() {
		key := prefix + entry.Name
		if _, exists := ns[key]; exists {
			report.Skipped = append(report.Skipped, key)
			continue
		}
		ns[key] = entry.Value
		report.Loaded = append(report.Loaded, key)
	}

	r.log.Debug().
		Int("loaded", len(report.Loaded)).
		Int("skipped", len(report.Skipped)).
		Msg("Helper injection summary")
	if len(report.Skipped) > 0 {
		r.log.Debug().Strs("skipped", report.Skipped).Msg("Skipped helpers already bound in namespace")
	}
	return report
}

// Entries returns a name-sorted snapshot of the registry
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered helpers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Seal ends the write phase
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
	r.log.Info().Int("helpers", r.Len()).Msg("Helper registry sealed")
}

// CheckCritical returns the names that are not registered
func (r *Registry) CheckCritical(names ...string) []string {
	var missing []string
	r.mu.RLock()
	for _, name := range names {
		if _, ok := r.entries[name]; !ok {
			missing = append(missing, name)
		}
	}
	r.mu.RUnlock()

	if len(missing) > 0 {
		r.log.Error().Strs("missing", missing).Msg("Critical helpers missing from registry")
	} else {
		r.log.Info().Msg("All critical helpers registered")
	}
	return missing
}

// Log writes the current registry state
func (r *Registry) Log() {
	entries := r.Entries()
	if len(entries) == 0 {
		r.log.Warn().Msg("No helpers registered")
		return
	}
	for _, e := range entries {
		r.log.Info().
			Str("name", e.Name).
			Str("origin", e.Origin.String()).
			Str("func", funcName(e.Value)).
			Msg("Registered helper")
	}
}

func callable(fn any) bool {
	if fn == nil {
		return false
	}
	v := reflect.ValueOf(fn)
	return v.Kind() == reflect.Func && !v.IsNil()
}

func funcName(fn any) string {
	if f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()); f != nil {
		return f.Name()
	}
	return "unknown"
}
