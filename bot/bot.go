package bot

import (
	"context"
	"fmt"
	"time"

	"KasutamaizaBot/commands"
	"KasutamaizaBot/config"
	"KasutamaizaBot/db"
	"KasutamaizaBot/loader"
	"KasutamaizaBot/metrics"
	"KasutamaizaBot/registry"
	"KasutamaizaBot/schema"
	"KasutamaizaBot/shutdown"
	"KasutamaizaBot/utils"

	"github.com/bwmarrin/discordgo"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 30 * time.Second

// Startup stages reported by StartupError
const (
	StageConfiguration = "configuration"
	StagePool          = "pool"
	StageSchema        = "schema"
	StageGateway       = "gateway"
)

// StartupError is a fatal failure of one bootstrap stage
type StartupError struct {
	Stage string
	Err   error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// SessionFactory creates the Discord session without connecting it
type SessionFactory func(token string) (*discordgo.Session, error)

// Deps are the pieces Bootstrap builds on. Zero values select the production default.
type Deps struct {
	Logger     zerolog.Logger
	Validator  *config.Validator
	Opener     db.Opener
	NewSession SessionFactory
	Sources    []registry.Source
	Tables     []schema.Table
	Kind       string
	Metrics    *metrics.Metrics
}

type Bot struct {
	Config   *config.Config
	Session  *discordgo.Session
	Pool     *db.Pool
	Registry *registry.Registry
	Router   *commands.Router
	Shutdown *shutdown.Coordinator
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
	Started  time.Time
}

// NewSession is the default SessionFactory
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	return s, nil
}

// Bootstrap runs the startup sequence: environment, helper registry, pool, schema,
// modules. Any failure before module loading aborts with a *StartupError. Module
// failures are only reported in the summary.
func Bootstrap(ctx context.Context, deps Deps) (*Bot, loader.Summary, error) {
	logger := deps.Logger
	log := logger.With().Str("component", "bootstrap").Logger()

	v := deps.Validator
	if v == nil {
		v = config.NewValidator(logger)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, loader.Summary{}, &StartupError{Stage: StageConfiguration, Err: err}
	}
	log.Info().Int64("guild", cfg.GuildID).Msg("Environment validated")

	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}
	pool := db.NewPool(logger, m)
	if deps.Opener != nil {
		pool = pool.WithOpener(deps.Opener)
	}
	coord := shutdown.New(logger, pool)

	reg := registry.New(logger)
	encapsulated := map[string]any{
		"validate_required_environment_variables": v.ValidateRequired,
		"fetch_environment_variable":              v.Fetch,
		"set_default_environment_variable":        v.SetDefault,
		"graceful_shutdown":                       coord.Shutdown,
		"register_shutdown_task":                  coord.RegisterTask,
	}
	for name, fn := range encapsulated {
		if err := reg.Register(name, fn); err != nil {
			return nil, loader.Summary{}, fmt.Errorf("register helper %s: %w", name, err)
		}
	}
	sources := deps.Sources
	if sources == nil {
		sources = []registry.Source{utils.HelperSource()}
	}
	reg.Discover(sources...)
	reg.Log()
	reg.CheckCritical("validate_required_environment_variables", "graceful_shutdown")

	newSession := deps.NewSession
	if newSession == nil {
		newSession = NewSession
	}
	session, err := newSession(cfg.BotToken)
	if err != nil {
		return nil, loader.Summary{}, &StartupError{Stage: StageConfiguration, Err: fmt.Errorf("create discord session: %w", err)}
	}

	if _, err := pool.Initialize(ctx, Credentials(cfg), PoolOptions(cfg)); err != nil {
		return nil, loader.Summary{}, &StartupError{Stage: StagePool, Err: err}
	}

	tables := deps.Tables
	if tables == nil {
		tables = schema.Tables()
	}
	if err := schema.Ensure(ctx, pool, tables, logger); err != nil {
		_ = pool.Close()
		return nil, loader.Summary{}, &StartupError{Stage: StageSchema, Err: err}
	}

	router := commands.NewRouter(cfg.CommandPrefix, utils.NewRateLimiter(cfg.RateLimitPerMinute), logger, m)

	kind := deps.Kind
	if kind == "" {
		kind = loader.Cogs
	}
	l := &loader.Loader{
		Timeout:    cfg.ModuleSetupTimeout,
		Concurrent: cfg.ModuleLoadConcurrent,
		Logger:     logger,
		Metrics:    m,
	}
	summary := l.LoadAll(ctx, kind, loader.Context{
		Session:  session,
		GuildID:  cfg.GuildID,
		Token:    cfg.BotToken,
		Config:   cfg,
		Pool:     pool,
		Registry: reg,
		Router:   router,
		Logger:   logger,
	})
	reg.Seal()

	return &Bot{
		Config:   cfg,
		Session:  session,
		Pool:     pool,
		Registry: reg,
		Router:   router,
		Shutdown: coord,
		Logger:   logger,
		Metrics:  m,
	}, summary, nil
}

// Credentials maps the validated configuration to pool credentials
func Credentials(cfg *config.Config) db.Credentials {
	return db.Credentials{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSL: db.SSLOptions{
			Enabled:             cfg.UseSSL,
			CertPath:            cfg.SSLCertPath,
			DisableVerification: cfg.DisableSSLVerification,
		},
	}
}

// PoolOptions maps the pool tunables
func PoolOptions(cfg *config.Config) db.Options {
	return db.Options{
		MinSize:    cfg.DBPoolMin,
		MaxSize:    cfg.DBPoolMax,
		Timeout:    cfg.DBTimeout(),
		Retries:    cfg.DBConnectRetries,
		RetryDelay: cfg.DBRetryDelay,
	}
}

// Run connects to the gateway, serves commands until a termination signal or ctx
// ends, then shuts down. A gateway failure is a *StartupError; otherwise the returned
// error joins the cleanup failures.
func (b *Bot) Run(ctx context.Context) error {
	log := b.Logger.With().Str("component", "bot").Logger()

	cmdCtx, cancelCommands := context.WithCancel(ctx)
	b.Router.Bind(cmdCtx)
	b.Router.OnUsage(b.recordUsage)
	b.Shutdown.RegisterTask("cancel in-flight commands", func(context.Context) error {
		cancelCommands()
		return nil
	})

	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("Bot is online")
	})
	b.Session.AddHandler(b.Router.HandleInteraction)
	b.Session.AddHandler(b.Router.HandleMessage)

	if err := b.Session.Open(); err != nil {
		_ = b.Shutdown.Shutdown(context.Background())
		return &StartupError{Stage: StageGateway, Err: err}
	}
	b.Shutdown.RegisterTask("close discord session", func(context.Context) error {
		return b.Session.Close()
	})

	guildID := fmt.Sprint(b.Config.GuildID)
	if err := b.Router.SyncSlashCommands(b.Session, guildID); err != nil {
		log.Error().Err(err).Str("guild", guildID).Msg("Slash command sync finished with errors")
	}

	if b.Config.MetricsAddr != "" {
		srv := b.Metrics.Serve(b.Config.MetricsAddr, b.Logger)
		b.Shutdown.RegisterTask("stop metrics server", srv.Stop)
	}

	b.Started = time.Now()
	log.Info().Msg("Bot is running. Press Ctrl+C to exit.")

	b.Shutdown.WaitForSignal(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return b.Shutdown.Shutdown(shutdownCtx)
}
