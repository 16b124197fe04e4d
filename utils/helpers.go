package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// ExtractUserID extracts the user ID from a mention or a raw snowflake
func ExtractUserID(mention string) (string, error) {
	id := strings.TrimSpace(mention)
	if strings.HasPrefix(id, "<@") {
		if !strings.HasSuffix(id, ">") {
			return "", fmt.Errorf("invalid mention format")
		}
		id = strings.TrimPrefix(strings.TrimSuffix(id, ">"), "<@")
		// nickname mentions carry a leading !
		id = strings.TrimPrefix(id, "!")
	}

	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return "", fmt.Errorf("invalid user ID")
	}
	return id, nil
}

// HasPermission reports whether perms includes flag. Administrator implies every flag.
func HasPermission(perms, flag int64) bool {
	if perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return perms&flag == flag
}

// CheckPermission checks if a user has a specific permission in a guild
func CheckPermission(s *discordgo.Session, guildID, userID string, permission int64) (bool, error) {
	member, err := s.GuildMember(guildID, userID)
	if err != nil {
		return false, fmt.Errorf("error fetching member: %w", err)
	}
	roles, err := s.GuildRoles(guildID)
	if err != nil {
		return false, fmt.Errorf("error fetching guild roles: %w", err)
	}
	return HasPermission(MemberPermissions(member, roles), permission), nil
}

// MemberPermissions folds the permission bits of every role the member holds
func MemberPermissions(member *discordgo.Member, roles []*discordgo.Role) int64 {
	var perms int64
	for _, roleID := range member.Roles {
		for _, role := range roles {
			if role.ID == roleID {
				perms |= role.Permissions
			}
		}
	}
	return perms
}

// GetHighestRole returns the member's highest positioned role, or nil
func GetHighestRole(member *discordgo.Member, roles []*discordgo.Role) *discordgo.Role {
	var highest *discordgo.Role
	for _, roleID := range member.Roles {
		for _, role := range roles {
			if role.ID == roleID && (highest == nil || role.Position > highest.Position) {
				highest = role
			}
		}
	}
	return highest
}

// Outranks reports whether actor's highest role sits above target's
func Outranks(actor, target *discordgo.Member, roles []*discordgo.Role) bool {
	a := GetHighestRole(actor, roles)
	if a == nil {
		return false
	}
	t := GetHighestRole(target, roles)
	return t == nil || a.Position > t.Position
}
