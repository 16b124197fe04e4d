package loader

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"KasutamaizaBot/commands"
	"KasutamaizaBot/config"
	"KasutamaizaBot/db"
	"KasutamaizaBot/registry"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Cogs is the catalog kind of the bot's command modules
const Cogs = "cogs"

// Module is a command module. Initialize registers its commands and must be safe to
// call with a context that may be cancelled by the loader's timeout.
type Module interface {
	Name() string
	Initialize(ctx context.Context, mc *Context) error
}

// HelperOverrides is implemented by modules that bind their own helpers. Those bindings
// win over registry helpers of the same name.
type HelperOverrides interface {
	HelperOverrides() map[string]any
}

// Context is the shared state handed to every module
type Context struct {
	Session  *discordgo.Session
	GuildID  int64
	Token    string
	Config   *config.Config
	Pool     *db.Pool
	Registry *registry.Registry
	Router   *commands.Router
	Logger   zerolog.Logger

	// Helpers is the module's own namespace, filled per module by the loader
	Helpers map[string]any
}

// Helper looks up a helper in the module namespace and asserts its type
func Helper[T any](mc *Context, name string) (T, error) {
	var zero T
	v, ok := mc.Helpers[name]
	if !ok {
		return zero, fmt.Errorf("%w: %s", registry.ErrNotFound, name)
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("helper %s is %T, not %T", name, v, zero)
	}
	return typed, nil
}

// Entry is one catalog item
type Entry struct {
	Kind  string
	Name  string
	Value any
}

var (
	catalogMu sync.RWMutex
	catalog   = make(map[string]map[string]any)
)

// Register adds m to the catalog of kind. It is meant to be called from init.
// Values that do not implement Module are kept and reported as skipped at load time.
func Register(kind string, m any) {
	if m == nil {
		panic("loader: Register value is nil")
	}
	name := nameOf(m)

	catalogMu.Lock()
	defer catalogMu.Unlock()

	entries, ok := catalog[kind]
	if !ok {
		entries = make(map[string]any)
		catalog[kind] = entries
	}
	if _, dup := entries[name]; dup {
		panic("loader: Register called twice for " + kind + "." + name)
	}
	entries[name] = m
}

// Entries returns the catalog of kind sorted by name
func Entries(kind string) []Entry {
	catalogMu.RLock()
	out := make([]Entry, 0, len(catalog[kind]))
	for name, v := range catalog[kind] {
		out = append(out, Entry{Kind: kind, Name: name, Value: v})
	}
	catalogMu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func nameOf(m any) string {
	if named, ok := m.(interface{ Name() string }); ok {
		return named.Name()
	}
	t := reflect.TypeOf(m)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return strings.ToLower(t.Name())
}
