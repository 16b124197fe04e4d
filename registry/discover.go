package registry

import (
	"fmt"
	"sort"
	"strings"
)

// Source is a package of helper functions that can be scanned into the registry
type Source interface {
	Name() string
	Helpers() (map[string]any, error)
}

// DiscoverReport summarizes a discovery pass
type DiscoverReport struct {
	Registered int
	Failed     map[string]error
}

// SourceFunc adapts a plain function to a Source
type SourceFunc struct {
	SourceName string
	Fn         func() (map[string]any, error)
}

func (s SourceFunc) Name() string                      { return s.SourceName }
func (s SourceFunc) Helpers() (map[string]any, error) { return s.Fn() }

// Discover registers every public callable exposed by the sources. A source that fails
// is logged and skipped; the rest are still scanned.
func (r *Registry) Discover(sources ...Source) DiscoverReport {
	report := DiscoverReport{Failed: make(map[string]error)}
	r.log.Info().Int("sources", len(sources)).Msg("Starting helper discovery")

	for _, src := range sources {
		helpers, err := scan(src)
		if err != nil {
			r.log.Error().Err(err).Str("source", src.Name()).Msg("Failed to load helper source")
			report.Failed[src.Name()] = err
			continue
		}

		names := make([]string, 0, len(helpers))
		for name := range helpers {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if strings.HasPrefix(name, "_") {
				continue
			}
			fn := helpers[name]
			if !callable(fn) {
				continue
			}
			if err := r.RegisterDiscovered(name, fn); err != nil {
				r.log.Error().Err(err).Str("source", src.Name()).Str("name", name).Msg("Failed to register helper")
				continue
			}
			report.Registered++
		}
		r.log.Debug().Str("source", src.Name()).Int("helpers", len(names)).Msg("Loaded helper source")
	}

	r.log.Info().
		Int("registered", report.Registered).
		Int("failed_sources", len(report.Failed)).
		Msg("Helper discovery completed")
	return report
}

func scan(src Source) (helpers map[string]any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic while loading %s: %v", src.Name(), rec)
		}
	}()
	return src.Helpers()
}
