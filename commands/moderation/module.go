package moderation

import (
	"context"
	"errors"

	"KasutamaizaBot/commands"
	"KasutamaizaBot/loader"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

func init() {
	loader.Register(loader.Cogs, &Moderation{})
}

// Moderation provides kick, ban, mute and warning commands
type Moderation struct {
	store  *Store
	prefix string
	log    zerolog.Logger
}

func (*Moderation) Name() string { return "moderation" }

func (m *Moderation) Initialize(_ context.Context, mc *loader.Context) error {
	if mc.Pool == nil {
		return errors.New("moderation requires a database pool")
	}
	if mc.Router == nil {
		return errors.New("moderation requires a command router")
	}
	m.store = NewStore(mc.Pool)
	m.prefix = mc.Router.Prefix()
	m.log = mc.Logger
	return mc.Router.RegisterModule(m.info())
}

func (m *Moderation) info() *commands.ModuleInfo {
	var kickPerms int64 = discordgo.PermissionKickMembers
	var banPerms int64 = discordgo.PermissionBanMembers
	var rolePerms int64 = discordgo.PermissionManageRoles
	minDays, maxDays := 0.0, 7.0

	userOpt := func(desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: desc,
			Required:    true,
		}
	}

	return &commands.ModuleInfo{
		Name:        "Moderation",
		Description: "Server moderation commands for managing users",
		Version:     "1.0.0",
		Author:      "ProfessorSeanEX",
		Category:    "Moderation",
		Commands: []commands.CommandInfo{
			{
				Name:        "kick",
				Description: "Kicks a member from the server",
				Usage:       m.usage(actionKick),
				Handler:     m.kickPrefix,
			},
			{
				Name:        "ban",
				Description: "Bans a member from the server",
				Usage:       m.usage(actionBan),
				Handler:     m.banPrefix,
			},
			{
				Name:        "mute",
				Description: "Mutes a member with the Muted role",
				Usage:       m.usage(actionMute),
				Aliases:     []string{"m"},
				Handler:     m.mutePrefix,
			},
			{
				Name:        "unmute",
				Description: "Removes the Muted role from a member",
				Usage:       m.usage(actionUnmute),
				Aliases:     []string{"um"},
				Handler:     m.unmutePrefix,
			},
		},
		SlashCommands: []commands.SlashCommandInfo{
			{
				Name:        "kick",
				Description: "Kick a member from the server",
				Options: []*discordgo.ApplicationCommandOption{
					userOpt("The member to kick"),
					{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Why the member is kicked"},
				},
				DefaultMemberPermissions: &kickPerms,
				Handler:                  m.kickSlash,
			},
			{
				Name:        "ban",
				Description: "Ban a member from the server",
				Options: []*discordgo.ApplicationCommandOption{
					userOpt("The member to ban"),
					{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Why the member is banned"},
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "delete_days",
						Description: "Days of messages to delete (0-7)",
						MinValue:    &minDays,
						MaxValue:    maxDays,
					},
				},
				DefaultMemberPermissions: &banPerms,
				Handler:                  m.banSlash,
			},
			{
				Name:        "mute",
				Description: "Stop a member from sending messages or speaking",
				Options: []*discordgo.ApplicationCommandOption{
					userOpt("The member to mute"),
					{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Why the member is muted"},
				},
				DefaultMemberPermissions: &rolePerms,
				Handler:                  m.muteSlash,
			},
			{
				Name:        "unmute",
				Description: "Lift a member's mute",
				Options: []*discordgo.ApplicationCommandOption{
					userOpt("The member to unmute"),
					{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Why the mute is lifted"},
				},
				DefaultMemberPermissions: &rolePerms,
				Handler:                  m.unmuteSlash,
			},
			{
				Name:        "warn",
				Description: "Warn a member and record a moderation case",
				Options: []*discordgo.ApplicationCommandOption{
					userOpt("The member to warn"),
					{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Why the member is warned", Required: true},
				},
				DefaultMemberPermissions: &kickPerms,
				Handler:                  m.warnSlash,
			},
			{
				Name:        "warnings",
				Description: "List the moderation cases of a member",
				Options: []*discordgo.ApplicationCommandOption{
					userOpt("The member to look up"),
				},
				DefaultMemberPermissions: &kickPerms,
				Handler:                  m.warningsSlash,
			},
		},
	}
}
