package general

import (
	"context"
	"errors"
	"time"

	"KasutamaizaBot/commands"
	"KasutamaizaBot/loader"
	"KasutamaizaBot/utils"

	"github.com/rs/zerolog"
)

const (
	version = "1.0.0"
	author  = "ProfessorSeanEX"
)

func init() {
	loader.Register(loader.Cogs, &General{})
}

// General provides the basic bot interactions: health checks, help and metadata
type General struct {
	router     *commands.Router
	started    time.Time
	supportURL string
	uptime     func(time.Duration) string
	stats      func(context.Context) (hostStats, error)
	log        zerolog.Logger
}

func (*General) Name() string { return "general" }

func (g *General) Initialize(_ context.Context, mc *loader.Context) error {
	if mc.Router == nil {
		return errors.New("general requires a command router")
	}
	g.router = mc.Router
	g.started = time.Now()
	g.log = mc.Logger
	g.stats = collectStats
	if mc.Config != nil {
		g.supportURL = mc.Config.SupportServerURL
	}

	g.uptime = utils.FormatUptime
	if fn, err := loader.Helper[func(time.Duration) string](mc, "format_uptime"); err == nil {
		g.uptime = fn
	} else {
		g.log.Debug().Err(err).Msg("Using built-in uptime formatter")
	}

	return mc.Router.RegisterModule(g.info())
}

func (g *General) info() *commands.ModuleInfo {
	return &commands.ModuleInfo{
		Name:        "General",
		Description: "Handles basic bot interactions and utilities",
		Version:     version,
		Author:      author,
		Category:    "General",
		Commands: []commands.CommandInfo{
			{
				Name:        "ping",
				Description: "Check if the bot is online",
				Usage:       g.router.Prefix() + "ping",
				Handler:     g.pingPrefix,
			},
			{
				Name:        "help",
				Aliases:     []string{"commands"},
				Description: "Show all commands",
				Usage:       g.router.Prefix() + "help",
				Handler:     g.helpPrefix,
			},
		},
		SlashCommands: []commands.SlashCommandInfo{
			{Name: "ping", Description: "Check if the bot is online and view latency.", Handler: g.pingSlash},
			{Name: "uptime", Description: "Display the bot's uptime.", Handler: g.uptimeSlash},
			{Name: "help", Description: "Display the help message.", Handler: g.helpSlash},
			{Name: "bot_metadata", Description: "Displays detailed metadata about the bot.", Handler: g.metadataSlash},
		},
	}
}
