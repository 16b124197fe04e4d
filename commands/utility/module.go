package utility

import (
	"context"
	"errors"
	"time"

	"KasutamaizaBot/commands"
	"KasutamaizaBot/loader"
	"KasutamaizaBot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const (
	version = "1.0.1"
	author  = "ProfessorSeanEX"
)

func init() {
	loader.Register(loader.Cogs, &Utility{})
}

// Utility answers questions about the bot itself and the guild it runs in, and
// carries the diagnostics used when something looks wrong.
type Utility struct {
	router   *commands.Router
	started  time.Time
	guildID  int64
	hasToken bool
	logFile  string
	secrets  []string
	uptime   func(time.Duration) string
	log      zerolog.Logger
}

func (*Utility) Name() string { return "utility" }

func (u *Utility) Initialize(_ context.Context, mc *loader.Context) error {
	if mc.Router == nil {
		return errors.New("utility requires a command router")
	}
	u.router = mc.Router
	u.started = time.Now()
	u.log = mc.Logger
	u.guildID = mc.GuildID
	u.hasToken = mc.Token != ""
	if mc.Token != "" {
		u.secrets = append(u.secrets, mc.Token)
	}
	if mc.Config != nil {
		u.logFile = mc.Config.LogFile
		if mc.Config.DBPassword != "" {
			u.secrets = append(u.secrets, mc.Config.DBPassword)
		}
	}

	u.uptime = utils.FormatUptime
	if fn, err := loader.Helper[func(time.Duration) string](mc, "format_uptime"); err == nil {
		u.uptime = fn
	}

	if err := mc.Router.RegisterModule(u.utilityInfo()); err != nil {
		return err
	}
	return mc.Router.RegisterModule(u.debugInfo())
}

func (u *Utility) utilityInfo() *commands.ModuleInfo {
	return &commands.ModuleInfo{
		Name:        "Utility",
		Description: "Provides bot-related information and server details",
		Version:     version,
		Author:      author,
		Category:    "Utility",
		SlashCommands: []commands.SlashCommandInfo{
			{Name: "info", Description: "Provides information about the bot.", Handler: u.infoSlash},
			{Name: "server_info", Description: "Provides information about the current server.", Handler: u.serverInfoSlash},
			{Name: "bot_status", Description: "Provides the bot's current status.", Handler: u.statusSlash},
			{Name: "get_invite", Description: "Get the bot's invite link for other servers.", Handler: u.inviteSlash},
		},
	}
}

func (u *Utility) debugInfo() *commands.ModuleInfo {
	var diagnosticsPerms int64 = discordgo.PermissionManageServer
	return &commands.ModuleInfo{
		Name:        "Debug",
		Description: "Provides tools for bot diagnostics and permission checking",
		Version:     version,
		Author:      author,
		Category:    "Debug",
		SlashCommands: []commands.SlashCommandInfo{
			{
				Name:                     "diagnostics",
				Description:              "Get full bot diagnostics and recent error logs.",
				DefaultMemberPermissions: &diagnosticsPerms,
				Handler:                  u.diagnosticsSlash,
			},
		},
	}
}
