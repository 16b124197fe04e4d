package commands

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// CommandFunc handles a prefix command. args[0] is the invoked name.
type CommandFunc func(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, args []string) error

// SlashFunc handles an application command interaction
type SlashFunc func(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error

// CommandInfo holds detailed information about a prefix command
type CommandInfo struct {
	Name        string      `json:"name"`
	Aliases     []string    `json:"aliases"`
	Description string      `json:"description"`
	Usage       string      `json:"usage"`
	Category    string      `json:"category"`
	Handler     CommandFunc `json:"-"`
}

// SlashCommandInfo holds information about slash commands
type SlashCommandInfo struct {
	Name                     string                                `json:"name"`
	Description              string                                `json:"description"`
	Options                  []*discordgo.ApplicationCommandOption `json:"options"`
	DefaultMemberPermissions *int64                                `json:"default_member_permissions,omitempty"`
	Handler                  SlashFunc                             `json:"-"`
}

// ModuleInfo represents a complete module with its commands and metadata
type ModuleInfo struct {
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	Version       string             `json:"version"`
	Author        string             `json:"author"`
	Category      string             `json:"category"`
	Commands      []CommandInfo      `json:"commands"`
	SlashCommands []SlashCommandInfo `json:"slash_commands"`
}

// CategoryInfo represents a category that contains multiple modules
type CategoryInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Modules     []string `json:"modules"`
}
