package utility

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"KasutamaizaBot/commands"
	"KasutamaizaBot/logging"
	"KasutamaizaBot/utils"

	"github.com/bwmarrin/discordgo"
)

const (
	purpose      = "Enhance your Yu-Gi-Oh experience and server engagement."
	recentLimit  = 5
	errorLineMax = 200
)

// requiredPermissions are checked by /diagnostics, in report order
var requiredPermissions = []struct {
	name string
	flag int64
}{
	{"administrator", discordgo.PermissionAdministrator},
	{"manage_guild", discordgo.PermissionManageServer},
	{"manage_roles", discordgo.PermissionManageRoles},
	{"send_messages", discordgo.PermissionSendMessages},
	{"manage_messages", discordgo.PermissionManageMessages},
	{"read_message_history", discordgo.PermissionReadMessageHistory},
	{"manage_channels", discordgo.PermissionManageChannels},
}

// effectivePermissions adds the @everyone role, whose ID is the guild's, to the
// member's own roles.
func effectivePermissions(member *discordgo.Member, roles []*discordgo.Role, guildID string) int64 {
	perms := utils.MemberPermissions(member, roles)
	for _, r := range roles {
		if r.ID == guildID {
			perms |= r.Permissions
		}
	}
	return perms
}

// missingPermissions lists required permissions absent from perms. Owners and
// administrators hold every permission.
func missingPermissions(perms int64, owner bool) []string {
	if owner || perms&discordgo.PermissionAdministrator != 0 {
		return nil
	}
	var missing []string
	for _, p := range requiredPermissions {
		if !utils.HasPermission(perms, p.flag) {
			missing = append(missing, p.name)
		}
	}
	return missing
}

func inviteURL(appID string, perms int64) string {
	q := url.Values{}
	q.Set("client_id", appID)
	q.Set("permissions", strconv.FormatInt(perms, 10))
	q.Set("scope", "bot applications.commands")
	return "https://discord.com/oauth2/authorize?" + q.Encode()
}

// recentErrors returns the latest error entries of the log file with credentials removed
func recentErrors(path string, n int, secrets []string) ([]string, error) {
	lines, err := logging.ExtractErrors(path, "error", n)
	if err != nil {
		return nil, err
	}
	for k, line := range lines {
		lines[k] = utils.TruncateString(logging.RedactSecrets(line, secrets...), errorLineMax, "...")
	}
	return lines, nil
}

// diagnostics is everything /diagnostics reports
type diagnostics struct {
	Name      string
	ID        string
	Uptime    string
	Commands  int
	Modules   []string
	Missing   []string
	PermErr   error
	HasToken  bool
	GuildID   int64
	LogFile   string
	Errors    []string
	ErrorsErr error
}

func diagnosticsFields(d diagnostics) []*discordgo.MessageEmbedField {
	bot := fmt.Sprintf("**Name**: `%s`\n**ID**: `%s`\n**Uptime**: `%s`\n**Total Commands**: `%d`",
		orUnknown(d.Name), orUnknown(d.ID), d.Uptime, d.Commands)

	var perms string
	switch {
	case d.PermErr != nil:
		perms = "Unavailable: " + d.PermErr.Error()
	case len(d.Missing) == 0:
		perms = "All required permissions are present."
	default:
		perms = "Missing permissions: " + strings.Join(d.Missing, ", ")
	}

	modules := strings.Join(d.Modules, "\n")
	if modules == "" {
		modules = "No modules are currently loaded."
	}

	env := "❌ `BOT_TOKEN` is missing."
	if d.HasToken {
		env = "✅ `BOT_TOKEN` is set."
	}
	if d.GuildID != 0 {
		env += fmt.Sprintf("\n✅ `GUILD_ID`: `%d`", d.GuildID)
	} else {
		env += "\n❌ `GUILD_ID` is missing or invalid."
	}

	var errs string
	switch {
	case d.LogFile == "":
		errs = "File logging is disabled."
	case d.ErrorsErr != nil:
		errs = "Unavailable: " + d.ErrorsErr.Error()
	case len(d.Errors) == 0:
		errs = "None"
	default:
		errs = strings.Join(d.Errors, "\n")
	}

	return []*discordgo.MessageEmbedField{
		utils.Field("Bot Diagnostics", bot, false),
		utils.Field("Permissions Check", perms, false),
		utils.Field("Loaded Modules", modules, false),
		utils.Field("Environment Variables", env, false),
		utils.Field("Recent Errors", errs, false),
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func invoker(i *discordgo.InteractionCreate) string {
	if u := commands.InteractionUser(i); u != nil {
		return u.Username
	}
	return "unknown"
}

func botUser(s *discordgo.Session) *discordgo.User {
	if s.State == nil {
		return nil
	}
	return s.State.User
}

// lookupGuild prefers the gateway cache and falls back to the REST API
func lookupGuild(s *discordgo.Session, guildID string) (*discordgo.Guild, error) {
	if s.State != nil {
		if g, err := s.State.Guild(guildID); err == nil {
			return g, nil
		}
	}
	return s.GuildWithCounts(guildID)
}

func botMissing(s *discordgo.Session, guildID, botID string) ([]string, error) {
	member, err := s.GuildMember(guildID, botID)
	if err != nil {
		return nil, fmt.Errorf("fetch bot member: %w", err)
	}
	roles, err := s.GuildRoles(guildID)
	if err != nil {
		return nil, fmt.Errorf("fetch guild roles: %w", err)
	}
	owner := false
	if g, err := lookupGuild(s, guildID); err == nil {
		owner = g.OwnerID == botID
	}
	return missingPermissions(effectivePermissions(member, roles, guildID), owner), nil
}

func (u *Utility) diagnosticsSlash(_ context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	u.log.Info().Str("user", invoker(i)).Msg("Diagnostics requested")
	if err := commands.Defer(s, i); err != nil {
		return err
	}

	d := diagnostics{
		Uptime:   u.uptime(time.Since(u.started)),
		Commands: len(u.router.ApplicationCommands()),
		HasToken: u.hasToken,
		GuildID:  u.guildID,
		LogFile:  u.logFile,
	}
	for _, m := range u.router.Modules() {
		d.Modules = append(d.Modules, m.Name)
	}

	if me := botUser(s); me != nil {
		d.Name, d.ID = me.Username, me.ID
		if i.GuildID != "" {
			d.Missing, d.PermErr = botMissing(s, i.GuildID, me.ID)
		}
	}
	if d.ID == "" {
		d.PermErr = fmt.Errorf("bot user unknown")
	}
	if d.PermErr != nil {
		u.log.Warn().Err(d.PermErr).Msg("Permission check failed")
	}

	if u.logFile != "" {
		d.Errors, d.ErrorsErr = recentErrors(u.logFile, recentLimit, u.secrets)
		if d.ErrorsErr != nil {
			u.log.Warn().Err(d.ErrorsErr).Str("file", u.logFile).Msg("Failed to read recent errors")
		}
	}

	return commands.Followup(s, i, utils.InfoEmbed("Bot Diagnostics", "", diagnosticsFields(d)...))
}

func (u *Utility) infoSlash(_ context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	connected := "Unknown"
	if i.GuildID != "" {
		if g, err := lookupGuild(s, i.GuildID); err == nil {
			connected = fmt.Sprintf("%s (ID: %s)", g.Name, g.ID)
		} else {
			u.log.Debug().Err(err).Str("guild", i.GuildID).Msg("Guild lookup failed")
		}
	}
	return commands.RespondEmbed(s, i, utils.InfoEmbed("Kasutamaiza Bot Metadata", "",
		utils.Field("Version", version, true),
		utils.Field("Author", author, true),
		utils.Field("Total Commands", strconv.Itoa(len(u.router.ApplicationCommands())), true),
		utils.Field("Purpose", purpose, false),
		utils.Field("Connected Guild", connected, false),
	))
}

func serverFields(g *discordgo.Guild) []*discordgo.MessageEmbedField {
	members := g.MemberCount
	if members == 0 {
		members = g.ApproximateMemberCount
	}
	created := "Unknown"
	if ts, err := discordgo.SnowflakeTimestamp(g.ID); err == nil {
		created = ts.UTC().Format(time.DateTime)
	}
	return []*discordgo.MessageEmbedField{
		utils.Field("Name", g.Name, true),
		utils.Field("ID", g.ID, true),
		utils.Field("Owner", "<@"+g.OwnerID+">", true),
		utils.Field("Members", strconv.Itoa(members), true),
		utils.Field("Created At", created, true),
	}
}

func (u *Utility) serverInfoSlash(_ context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if i.GuildID == "" {
		return commands.Userf("This command can only be used in a server.")
	}
	g, err := lookupGuild(s, i.GuildID)
	if err != nil {
		return err
	}
	return commands.RespondEmbed(s, i, utils.InfoEmbed("Server Information", "", serverFields(g)...))
}

func (u *Utility) statusSlash(_ context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	embed := utils.InfoEmbed("Bot Status", "",
		utils.Field("Status", "Online", true),
		utils.Field("Latency", fmt.Sprintf("%d ms", s.HeartbeatLatency().Milliseconds()), true),
		utils.Field("Uptime", u.uptime(time.Since(u.started)), true),
	)
	embed.Color = utils.ColorSuccess
	return commands.RespondEmbed(s, i, embed)
}

func (u *Utility) inviteSlash(_ context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	me := botUser(s)
	if me == nil {
		return commands.Userf("The bot is not fully connected yet. Try again shortly.")
	}
	link := inviteURL(me.ID, discordgo.PermissionAdministrator)
	u.log.Info().Str("user", invoker(i)).Msg("Invite link requested")
	return commands.RespondEmbed(s, i, utils.InfoEmbed("Invite Kasutamaiza Bot", link))
}
