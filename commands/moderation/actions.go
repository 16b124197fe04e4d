package moderation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"KasutamaizaBot/commands"
	"KasutamaizaBot/utils"

	"github.com/bwmarrin/discordgo"
)

const (
	actionKick   = "kick"
	actionBan    = "ban"
	actionWarn   = "warn"
	actionMute   = "mute"
	actionUnmute = "unmute"

	defaultReason = "No reason provided"
	maxCasesShown = 10
)

// request is a moderation action after argument parsing
type request struct {
	guildID     string
	moderatorID string
	targetID    string
	reason      string
	deleteDays  int
}

// parsePrefixArgs reads "<@user> [reason...] [days]" from a prefix command.
// A trailing integer is only treated as delete days when withDays is set.
func parsePrefixArgs(args []string, withDays bool) (target, reason string, days int, err error) {
	if len(args) < 2 {
		return "", "", 0, errors.New("missing target")
	}
	target, err = utils.ExtractUserID(args[1])
	if err != nil {
		return "", "", 0, err
	}

	rest := args[2:]
	if withDays && len(rest) > 0 {
		if n, convErr := strconv.Atoi(rest[len(rest)-1]); convErr == nil && utils.ValidateNumberRange(n, 0, 7) {
			days = n
			rest = rest[:len(rest)-1]
		}
	}

	reason = strings.Join(rest, " ")
	if reason == "" {
		reason = defaultReason
	}
	return target, reason, days, nil
}

func actionEmbed(action string, req request) *discordgo.MessageEmbed {
	titles := map[string]string{
		actionKick:   "User Kicked",
		actionBan:    "User Banned",
		actionWarn:   "User Warned",
		actionMute:   "User Muted",
		actionUnmute: "User Unmuted",
	}
	embed := &discordgo.MessageEmbed{
		Title:       titles[action],
		Description: fmt.Sprintf("<@%s> was %s by <@%s>", req.targetID, pastTense(action), req.moderatorID),
		Color:       utils.ColorError,
		Fields:      []*discordgo.MessageEmbedField{utils.Field("Reason", req.reason, false)},
	}
	if action == actionBan {
		embed.Fields = append(embed.Fields, utils.Field("Message Deletion", fmt.Sprintf("%d days", req.deleteDays), false))
	}
	switch action {
	case actionWarn, actionMute:
		embed.Color = utils.ColorWarn
	case actionUnmute:
		embed.Color = utils.ColorSuccess
	}
	return embed
}

func pastTense(action string) string {
	switch action {
	case actionKick:
		return "kicked"
	case actionBan:
		return "banned"
	case actionMute:
		return "muted"
	case actionUnmute:
		return "unmuted"
	}
	return "warned"
}

// discordError turns a REST failure into something the moderator can act on
func discordError(action string, err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusForbidden:
			return commands.Userf("I don't have permission to %s that member. Check my role position.", action)
		case http.StatusNotFound:
			return commands.Userf("That member could not be found.")
		}
	}
	return err
}

// apply runs the Discord side of the action, then records the case
func (m *Moderation) apply(ctx context.Context, s *discordgo.Session, action string, req request) error {
	if req.targetID == req.moderatorID {
		return commands.Userf("You can't %s yourself.", action)
	}
	if err := m.checkHierarchy(s, req); err != nil {
		return err
	}

	var err error
	switch action {
	case actionKick:
		err = s.GuildMemberDeleteWithReason(req.guildID, req.targetID, req.reason)
	case actionBan:
		err = s.GuildBanCreateWithReason(req.guildID, req.targetID, req.reason, req.deleteDays)
	case actionMute:
		err = m.mute(s, req)
	case actionUnmute:
		err = m.unmute(s, req)
	}
	if err != nil {
		m.log.Error().Err(err).Str("action", action).Str("target", req.targetID).Msg("Moderation action failed")
		return discordError(action, err)
	}

	c, err := m.store.Record(ctx, Case{
		GuildID:     snowflake(req.guildID),
		UserID:      snowflake(req.targetID),
		ModeratorID: snowflake(req.moderatorID),
		Action:      action,
		Reason:      req.reason,
	})
	if err != nil {
		// the action already happened on Discord, so only the audit row is lost
		m.log.Error().Err(err).Str("action", action).Msg("Failed to record moderation case")
		return nil
	}
	m.log.Info().Str("case", c.ID.String()).Str("action", action).Str("target", req.targetID).Msg("Moderation case recorded")
	return nil
}

// checkHierarchy refuses actions against members with an equal or higher role
func (m *Moderation) checkHierarchy(s *discordgo.Session, req request) error {
	if req.guildID == "" {
		return commands.Userf("This command can only be used in a server.")
	}
	roles, err := s.GuildRoles(req.guildID)
	if err != nil {
		return err
	}
	actor, err := s.GuildMember(req.guildID, req.moderatorID)
	if err != nil {
		return err
	}
	target, err := s.GuildMember(req.guildID, req.targetID)
	if err != nil {
		// not a member any more; bans still apply, nothing to compare
		return nil
	}
	if !utils.Outranks(actor, target, roles) {
		return commands.Userf("You can't moderate a member with an equal or higher role.")
	}
	return nil
}

func slashRequest(i *discordgo.InteractionCreate, required int64) (request, error) {
	if i.Member == nil {
		return request{}, commands.Userf("This command can only be used in a server.")
	}
	if !utils.HasPermission(i.Member.Permissions, required) {
		return request{}, commands.Userf("You do not have permission to use this command.")
	}

	opts := commands.OptionMap(i)
	req := request{
		guildID:     i.GuildID,
		moderatorID: i.Member.User.ID,
		reason:      defaultReason,
	}
	if o, ok := opts["user"]; ok {
		req.targetID = o.UserValue(nil).ID
	}
	if o, ok := opts["reason"]; ok && strings.TrimSpace(o.StringValue()) != "" {
		req.reason = o.StringValue()
	}
	if o, ok := opts["delete_days"]; ok {
		req.deleteDays = int(o.IntValue())
	}
	return req, nil
}

func (m *Moderation) kickSlash(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	req, err := slashRequest(i, discordgo.PermissionKickMembers)
	if err != nil {
		return err
	}
	if err := m.apply(ctx, s, actionKick, req); err != nil {
		return err
	}
	return commands.RespondEmbed(s, i, actionEmbed(actionKick, req))
}

func (m *Moderation) banSlash(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	req, err := slashRequest(i, discordgo.PermissionBanMembers)
	if err != nil {
		return err
	}
	if err := m.apply(ctx, s, actionBan, req); err != nil {
		return err
	}
	return commands.RespondEmbed(s, i, actionEmbed(actionBan, req))
}

func (m *Moderation) muteSlash(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return m.roleSlash(ctx, s, i, actionMute)
}

func (m *Moderation) unmuteSlash(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return m.roleSlash(ctx, s, i, actionUnmute)
}

func (m *Moderation) roleSlash(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, action string) error {
	req, err := slashRequest(i, discordgo.PermissionManageRoles)
	if err != nil {
		return err
	}
	if err := m.apply(ctx, s, action, req); err != nil {
		return err
	}
	return commands.RespondEmbed(s, i, actionEmbed(action, req))
}

func (m *Moderation) warnSlash(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	req, err := slashRequest(i, discordgo.PermissionKickMembers)
	if err != nil {
		return err
	}
	if req.targetID == req.moderatorID {
		return commands.Userf("You can't warn yourself.")
	}

	c, err := m.store.Record(ctx, Case{
		GuildID:     snowflake(req.guildID),
		UserID:      snowflake(req.targetID),
		ModeratorID: snowflake(req.moderatorID),
		Action:      actionWarn,
		Reason:      req.reason,
	})
	if err != nil {
		return err
	}

	embed := actionEmbed(actionWarn, req)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Case " + c.ID.String()}
	return commands.RespondEmbed(s, i, embed)
}

func (m *Moderation) warningsSlash(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	req, err := slashRequest(i, discordgo.PermissionKickMembers)
	if err != nil {
		return err
	}

	cases, err := m.store.Cases(ctx, snowflake(req.guildID), snowflake(req.targetID), maxCasesShown)
	if err != nil {
		return err
	}
	return commands.RespondEmbed(s, i, casesEmbed(req.targetID, cases))
}

func casesEmbed(targetID string, cases []Case) *discordgo.MessageEmbed {
	if len(cases) == 0 {
		return utils.InfoEmbed("Moderation History", fmt.Sprintf("<@%s> has a clean record.", targetID))
	}
	fields := make([]*discordgo.MessageEmbedField, 0, len(cases))
	for _, c := range cases {
		fields = append(fields, utils.Field(
			fmt.Sprintf("%s · %s", strings.ToUpper(c.Action), c.CreatedAt.Format("2006-01-02")),
			fmt.Sprintf("%s\nby <@%d> · `%s`", c.Reason, c.ModeratorID, c.ID.String()[:8]),
			false,
		))
	}
	return utils.InfoEmbed("Moderation History", fmt.Sprintf("Last %d cases for <@%s>", len(cases), targetID), fields...)
}

func (m *Moderation) kickPrefix(ctx context.Context, s *discordgo.Session, msg *discordgo.MessageCreate, args []string) error {
	return m.prefixAction(ctx, s, msg, args, actionKick, discordgo.PermissionKickMembers)
}

func (m *Moderation) banPrefix(ctx context.Context, s *discordgo.Session, msg *discordgo.MessageCreate, args []string) error {
	return m.prefixAction(ctx, s, msg, args, actionBan, discordgo.PermissionBanMembers)
}

func (m *Moderation) mutePrefix(ctx context.Context, s *discordgo.Session, msg *discordgo.MessageCreate, args []string) error {
	return m.prefixAction(ctx, s, msg, args, actionMute, discordgo.PermissionManageRoles)
}

func (m *Moderation) unmutePrefix(ctx context.Context, s *discordgo.Session, msg *discordgo.MessageCreate, args []string) error {
	return m.prefixAction(ctx, s, msg, args, actionUnmute, discordgo.PermissionManageRoles)
}

func (m *Moderation) prefixAction(ctx context.Context, s *discordgo.Session, msg *discordgo.MessageCreate, args []string, action string, perm int64) error {
	if msg.GuildID == "" {
		return nil
	}
	allowed, err := utils.CheckPermission(s, msg.GuildID, msg.Author.ID, perm)
	if err != nil {
		return err
	}
	if !allowed {
		return commands.Userf("You do not have permission to use this command.")
	}

	target, reason, days, err := parsePrefixArgs(args, action == actionBan)
	if err != nil {
		return commands.Userf("Invalid user / use. Usage: `%s`", m.usage(action))
	}

	req := request{
		guildID:     msg.GuildID,
		moderatorID: msg.Author.ID,
		targetID:    target,
		reason:      reason,
		deleteDays:  days,
	}
	if err := m.apply(ctx, s, action, req); err != nil {
		return err
	}
	_, err = s.ChannelMessageSendEmbed(msg.ChannelID, actionEmbed(action, req))
	return err
}

func (m *Moderation) usage(action string) string {
	if action == actionBan {
		return m.prefix + "ban <@user> [reason] [days_to_delete_messages]"
	}
	return m.prefix + action + " <@user> [reason]"
}
