package moderation

import (
	"slices"

	"KasutamaizaBot/commands"

	"github.com/bwmarrin/discordgo"
)

const mutedRoleName = "Muted"

// mutedDeny is denied to the Muted role on every channel
const mutedDeny = discordgo.PermissionSendMessages |
	discordgo.PermissionAddReactions |
	discordgo.PermissionVoiceSpeak

func findRole(roles []*discordgo.Role, name string) *discordgo.Role {
	for _, r := range roles {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// mutedRole returns the guild's Muted role, creating it and its channel
// overwrites on first use.
func (m *Moderation) mutedRole(s *discordgo.Session, guildID string) (*discordgo.Role, error) {
	roles, err := s.GuildRoles(guildID)
	if err != nil {
		return nil, err
	}
	if r := findRole(roles, mutedRoleName); r != nil {
		return r, nil
	}

	var noPerms int64
	role, err := s.GuildRoleCreate(guildID, &discordgo.RoleParams{Name: mutedRoleName, Permissions: &noPerms})
	if err != nil {
		return nil, err
	}
	m.log.Info().Str("guild", guildID).Str("role", role.ID).Msg("Created Muted role")

	channels, err := s.GuildChannels(guildID)
	if err != nil {
		return role, err
	}
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildCategory {
			continue
		}
		if err := s.ChannelPermissionSet(ch.ID, role.ID, discordgo.PermissionOverwriteTypeRole, 0, mutedDeny); err != nil {
			m.log.Warn().Err(err).Str("channel", ch.ID).Msg("Failed to set Muted role permissions")
		}
	}
	return role, nil
}

func (m *Moderation) mute(s *discordgo.Session, req request) error {
	role, err := m.mutedRole(s, req.guildID)
	if err != nil {
		return err
	}
	return s.GuildMemberRoleAdd(req.guildID, req.targetID, role.ID)
}

func (m *Moderation) unmute(s *discordgo.Session, req request) error {
	roles, err := s.GuildRoles(req.guildID)
	if err != nil {
		return err
	}
	role := findRole(roles, mutedRoleName)
	if role == nil {
		return commands.Userf("<@%s> is not muted.", req.targetID)
	}
	member, err := s.GuildMember(req.guildID, req.targetID)
	if err != nil {
		return err
	}
	if !slices.Contains(member.Roles, role.ID) {
		return commands.Userf("<@%s> is not muted.", req.targetID)
	}
	return s.GuildMemberRoleRemove(req.guildID, req.targetID, role.ID)
}
