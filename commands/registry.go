package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"KasutamaizaBot/metrics"
	"KasutamaizaBot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const defaultCommandTimeout = 15 * time.Second

// UsageRecorder is called after every command invocation
type UsageRecorder func(ctx context.Context, command, userID, guildID string, succeeded bool)

// Router owns every command registered by the loaded modules and dispatches
// gateway events to them.
type Router struct {
	mu         sync.RWMutex
	modules    map[string]*ModuleInfo
	categories map[string]*CategoryInfo
	commands   map[string]CommandInfo
	aliases    map[string]string
	slash      map[string]SlashCommandInfo

	prefix  string
	timeout time.Duration
	ctx     context.Context
	limiter *utils.RateLimiter
	usage   UsageRecorder
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func NewRouter(prefix string, limiter *utils.RateLimiter, logger zerolog.Logger, m *metrics.Metrics) *Router {
	return &Router{
		modules:    make(map[string]*ModuleInfo),
		categories: make(map[string]*CategoryInfo),
		commands:   make(map[string]CommandInfo),
		aliases:    make(map[string]string),
		slash:      make(map[string]SlashCommandInfo),
		prefix:     prefix,
		timeout:    defaultCommandTimeout,
		ctx:        context.Background(),
		limiter:    limiter,
		log:        logger.With().Str("component", "router").Logger(),
		metrics:    m,
	}
}

// Bind sets the parent context of every command. Cancelling it aborts in-flight handlers.
func (r *Router) Bind(ctx context.Context) {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()
}

func (r *Router) OnUsage(fn UsageRecorder) {
	r.mu.Lock()
	r.usage = fn
	r.mu.Unlock()
}

func (r *Router) Prefix() string { return r.prefix }

// RegisterModule registers a complete module and compiles its command tables
func (r *Router) RegisterModule(module *ModuleInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[module.Name]; exists {
		return fmt.Errorf("module %s already registered", module.Name)
	}
	for _, sc := range module.SlashCommands {
		if _, exists := r.slash[sc.Name]; exists {
			return fmt.Errorf("slash command /%s already registered", sc.Name)
		}
		if sc.Handler == nil {
			return fmt.Errorf("slash command /%s has no handler", sc.Name)
		}
	}
	for _, cmd := range module.Commands {
		if _, exists := r.commands[cmd.Name]; exists {
			return fmt.Errorf("command %s%s already registered", r.prefix, cmd.Name)
		}
	}

	r.modules[module.Name] = module
	for _, sc := range module.SlashCommands {
		r.slash[sc.Name] = sc
	}
	for _, cmd := range module.Commands {
		if cmd.Category == "" {
			cmd.Category = module.Category
		}
		r.commands[cmd.Name] = cmd
		for _, alias := range cmd.Aliases {
			r.aliases[alias] = cmd.Name
		}
	}

	if module.Category != "" {
		category, exists := r.categories[module.Category]
		if !exists {
			category = &CategoryInfo{
				Name:        module.Category,
				Description: module.Category + " related modules",
			}
			r.categories[module.Category] = category
		}
		category.Modules = append(category.Modules, module.Name)
	}

	r.log.Debug().
		Str("module", module.Name).
		Int("slash", len(module.SlashCommands)).
		Int("prefix", len(module.Commands)).
		Msg("Module commands registered")
	return nil
}

// Command resolves a prefix command or alias
func (r *Router) Command(name string) (CommandInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if actual, isAlias := r.aliases[name]; isAlias {
		name = actual
	}
	cmd, ok := r.commands[name]
	return cmd, ok
}

func (r *Router) Slash(name string) (SlashCommandInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sc, ok := r.slash[name]
	return sc, ok
}

// Modules returns all registered modules sorted by name
func (r *Router) Modules() []*ModuleInfo {
	r.mu.RLock()
	out := make([]*ModuleInfo, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Categories returns all categories sorted by name
func (r *Router) Categories() []*CategoryInfo {
	r.mu.RLock()
	out := make([]*CategoryInfo, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, c)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ModulesByCategory returns the modules in a category, case-insensitive
func (r *Router) ModulesByCategory(category string) []*ModuleInfo {
	var out []*ModuleInfo
	for _, m := range r.Modules() {
		if strings.EqualFold(m.Category, category) {
			out = append(out, m)
		}
	}
	return out
}

// ApplicationCommands returns the slash command definitions to sync, sorted by name
func (r *Router) ApplicationCommands() []*discordgo.ApplicationCommand {
	r.mu.RLock()
	out := make([]*discordgo.ApplicationCommand, 0, len(r.slash))
	for _, sc := range r.slash {
		out = append(out, &discordgo.ApplicationCommand{
			Name:                     sc.Name,
			Description:              sc.Description,
			Options:                  sc.Options,
			DefaultMemberPermissions: sc.DefaultMemberPermissions,
		})
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
