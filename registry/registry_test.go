package registry

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestRegistry(t *testing.T) (*Registry, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return New(zerolog.New(&buf)), &buf
}

func countWarnings(buf *bytes.Buffer) int {
	return strings.Count(buf.String(), `"level":"warn"`)
}

func TestRegisterValidation(t *testing.T) {
	r, _ := newTestRegistry(t)

	if err := r.Register("", func() {}); !errors.Is(err, ErrInvalidName) {
		t.Errorf("empty name: got %v", err)
	}
	if err := r.Register("   ", func() {}); !errors.Is(err, ErrInvalidName) {
		t.Errorf("blank name: got %v", err)
	}
	if err := r.Register("answer", 42); !errors.Is(err, ErrNotCallable) {
		t.Errorf("int value: got %v", err)
	}
	if err := r.Register("nil", nil); !errors.Is(err, ErrNotCallable) {
		t.Errorf("nil value: got %v", err)
	}
	var nilFn func()
	if err := r.Register("nilfn", nilFn); !errors.Is(err, ErrNotCallable) {
		t.Errorf("nil func: got %v", err)
	}
}

func TestRegisterOverwriteWarnsOnce(t *testing.T) {
	r, buf := newTestRegistry(t)

	fn1 := func() string { return "one" }
	fn2 := func() string { return "two" }

	if err := r.Register("greet", fn1); err != nil {
		t.Fatal(err)
	}
	if countWarnings(buf) != 0 {
		t.Fatalf("unexpected warning on first registration: %s", buf.String())
	}
	if err := r.Register("greet", fn2); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveAs[func() string](r, "greet")
	if err != nil {
		t.Fatal(err)
	}
	if got() != "two" {
		t.Errorf("resolve returned the first registration")
	}
	if n := countWarnings(buf); n != 1 {
		t.Errorf("expected exactly one warning, got %d", n)
	}
}

func TestResolveMissing(t *testing.T) {
	r, _ := newTestRegistry(t)
	if _, err := r.Resolve("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveAsWrongType(t *testing.T) {
	r, _ := newTestRegistry(t)
	_ = r.Register("f", func(int) int { return 0 })
	if _, err := ResolveAs[func() string](r, "f"); err == nil {
		t.Fatal("expected a type mismatch error")
	}
}

func TestInjectNeverOverwritesAndIsIdempotent(t *testing.T) {
	r, _ := newTestRegistry(t)
	_ = r.Register("a", func() {})
	_ = r.Register("b", func() {})

	ns := map[string]any{"b": "explicit"}

	first := r.Inject(ns, "")
	if len(first.Loaded) != 1 || first.Loaded[0] != "a" {
		t.Errorf("first inject loaded %v", first.Loaded)
	}
	if len(first.Skipped) != 1 || first.Skipped[0] != "b" {
		t.Errorf("first inject skipped %v", first.Skipped)
	}
	if ns["b"] != "explicit" {
		t.Fatal("existing binding was replaced")
	}

	second := r.Inject(ns, "")
	if len(second.Loaded) != 0 {
		t.Errorf("second inject loaded %v", second.Loaded)
	}
	if len(second.Skipped) != 2 {
		t.Errorf("second inject skipped %v", second.Skipped)
	}
}

func TestInjectPrefix(t *testing.T) {
	r, _ := newTestRegistry(t)
	_ = r.Register("format_uptime", func() string { return "" })

	ns := map[string]any{}
	r.Inject(ns, "util_")
	if _, ok := ns["util_format_uptime"]; !ok {
		t.Errorf("prefixed key missing: %v", ns)
	}
}

type brokenSource struct{}

func (brokenSource) Name() string { return "broken" }
func (brokenSource) Helpers() (map[string]any, error) {
	panic("import failed")
}

func TestDiscoverIsBestEffort(t *testing.T) {
	r, _ := newTestRegistry(t)

	good := SourceFunc{SourceName: "text", Fn: func() (map[string]any, error) {
		return map[string]any{
			"truncate": func(s string) string { return s },
			"_private": func() {},
			"Limit":    1024,
		}, nil
	}}
	failing := SourceFunc{SourceName: "io", Fn: func() (map[string]any, error) {
		return nil, errors.New("boom")
	}}

	report := r.Discover(failing, brokenSource{}, good)

	if report.Registered != 1 {
		t.Errorf("registered %d helpers, want 1", report.Registered)
	}
	if len(report.Failed) != 2 {
		t.Errorf("failed sources = %v", report.Failed)
	}
	if _, err := r.Resolve("truncate"); err != nil {
		t.Errorf("truncate not registered: %v", err)
	}
	if _, err := r.Resolve("_private"); err == nil {
		t.Error("underscore-prefixed helper should not be registered")
	}

	for _, e := range r.Entries() {
		if e.Name == "truncate" && e.Origin != Discovered {
			t.Errorf("truncate origin = %v", e.Origin)
		}
	}
}

func TestDiscoverOverwritesExplicitRegistration(t *testing.T) {
	r, buf := newTestRegistry(t)
	_ = r.Register("shared", func() int { return 1 })

	r.Discover(SourceFunc{SourceName: "dup", Fn: func() (map[string]any, error) {
		return map[string]any{"shared": func() int { return 2 }}, nil
	}})

	fn, err := ResolveAs[func() int](r, "shared")
	if err != nil {
		t.Fatal(err)
	}
	if fn() != 2 {
		t.Error("discovery should overwrite within the registry")
	}
	if countWarnings(buf) != 1 {
		t.Errorf("expected one overwrite warning, log: %s", buf.String())
	}
}

func TestSealAndCheckCritical(t *testing.T) {
	r, _ := newTestRegistry(t)
	_ = r.Register("graceful_shutdown", func() {})

	missing := r.CheckCritical("graceful_shutdown", "validate_required_environment_variables")
	if len(missing) != 1 || missing[0] != "validate_required_environment_variables" {
		t.Errorf("missing = %v", missing)
	}

	r.Seal()
	if err := r.Register("late", func() {}); !errors.Is(err, ErrSealed) {
		t.Errorf("expected ErrSealed, got %v", err)
	}
}
