package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Kind is the type an environment variable is coerced to
type Kind int

const (
	String Kind = iota
	Int
	Bool
	Float
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Bool:
		return "bool"
	case Float:
		return "float"
	default:
		return "str"
	}
}

// ErrMissingConfiguration is matched by every MissingConfigurationError
var ErrMissingConfiguration = errors.New("missing configuration")

// MissingConfigurationError lists every required key that was unset or could not be coerced
type MissingConfigurationError struct {
	Keys []string
}

func (e *MissingConfigurationError) Error() string {
	return "missing or invalid environment variables: " + strings.Join(e.Keys, ", ")
}

func (e *MissingConfigurationError) Is(target error) bool {
	return target == ErrMissingConfiguration
}

// Validator fetches and type-casts environment variables
type Validator struct {
	lookup func(string) (string, bool)
	log    zerolog.Logger
}

// NewValidator creates a validator backed by the process environment
func NewValidator(logger zerolog.Logger) *Validator {
	return &Validator{
		lookup: os.LookupEnv,
		log:    logger.With().Str("component", "env").Logger(),
	}
}

// NewValidatorWithLookup creates a validator over an arbitrary key lookup
func NewValidatorWithLookup(logger zerolog.Logger, lookup func(string) (string, bool)) *Validator {
	v := NewValidator(logger)
	v.lookup = lookup
	return v
}

// Fetch returns the variable coerced to kind, or def when it is unset or fails to parse.
func (v *Validator) Fetch(key string, kind Kind, def any) any {
	raw, ok := v.lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}

	value, err := coerce(raw, kind)
	if err != nil {
		v.log.Warn().
			Str("key", key).
			Str("expected", kind.String()).
			Interface("default", def).
			Err(err).
			Msg("Failed to parse environment variable")
		return def
	}

	v.log.Debug().Str("key", key).Str("type", kind.String()).Msg("Fetched environment variable")
	return value
}

// ValidateRequired checks every key before failing so the error names all of the missing ones.
func (v *Validator) ValidateRequired(required map[string]Kind) (map[string]any, error) {
	keys := make([]string, 0, len(required))
	for key := range required {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	v.log.Info().Int("count", len(keys)).Msg("Validating required environment variables")

	values := make(map[string]any, len(keys))
	var missing []string
	for _, key := range keys {
		value := v.Fetch(key, required[key], nil)
		if value == nil {
			v.log.Error().Str("key", key).Msg("Environment variable is not set or invalid")
			missing = append(missing, key)
			continue
		}
		values[key] = value
	}

	if len(missing) > 0 {
		return nil, &MissingConfigurationError{Keys: missing}
	}

	v.log.Info().Int("validated", len(values)).Msg("All required environment variables validated")
	return values, nil
}

// SetDefault sets key only when it is not already present in the environment
func (v *Validator) SetDefault(key, value string) error {
	if _, ok := v.lookup(key); ok {
		v.log.Debug().Str("key", key).Msg("Variable already set; default not applied")
		return nil
	}
	if err := os.Setenv(key, value); err != nil {
		return fmt.Errorf("set default %s: %w", key, err)
	}
	v.log.Info().Str("key", key).Msg("Applied default environment variable")
	return nil
}

func coerce(raw string, kind Kind) (any, error) {
	switch kind {
	case Bool:
		return ParseBool(raw), nil
	case Int:
		return strconv.Atoi(strings.TrimSpace(raw))
	case Float:
		return strconv.ParseFloat(strings.TrimSpace(raw), 64)
	default:
		return raw, nil
	}
}

// ParseBool treats "true", "1" and "yes" (any case) as true and everything else as false
func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		return true
	}
	return false
}
