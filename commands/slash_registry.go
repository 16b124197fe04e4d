package commands

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// commandAPI is the slice of the Discord REST API the sync needs
type commandAPI interface {
	list(appID, guildID string) ([]*discordgo.ApplicationCommand, error)
	create(appID, guildID string, cmd *discordgo.ApplicationCommand) error
	edit(appID, guildID, cmdID string, cmd *discordgo.ApplicationCommand) error
	remove(appID, guildID, cmdID string) error
}

type sessionAPI struct{ s *discordgo.Session }

func (a sessionAPI) list(appID, guildID string) ([]*discordgo.ApplicationCommand, error) {
	return a.s.ApplicationCommands(appID, guildID)
}

func (a sessionAPI) create(appID, guildID string, cmd *discordgo.ApplicationCommand) error {
	_, err := a.s.ApplicationCommandCreate(appID, guildID, cmd)
	return err
}

func (a sessionAPI) edit(appID, guildID, cmdID string, cmd *discordgo.ApplicationCommand) error {
	_, err := a.s.ApplicationCommandEdit(appID, guildID, cmdID, cmd)
	return err
}

func (a sessionAPI) remove(appID, guildID, cmdID string) error {
	return a.s.ApplicationCommandDelete(appID, guildID, cmdID)
}

// commandNeedsUpdate checks if an existing command needs to be updated
func commandNeedsUpdate(existing, desired *discordgo.ApplicationCommand) bool {
	if existing.Name != desired.Name || existing.Description != desired.Description {
		return true
	}
	if len(existing.Options) != len(desired.Options) {
		return true
	}
	for i, option := range existing.Options {
		want := desired.Options[i]
		if option.Name != want.Name ||
			option.Description != want.Description ||
			option.Type != want.Type ||
			option.Required != want.Required ||
			len(option.Choices) != len(want.Choices) {
			return true
		}
	}
	return false
}

// SyncSlashCommands creates, updates and deletes guild commands so Discord matches the router
func (r *Router) SyncSlashCommands(s *discordgo.Session, guildID string) error {
	if s.State == nil || s.State.User == nil {
		return errors.New("session is not connected")
	}
	return r.syncCommands(sessionAPI{s}, s.State.User.ID, guildID)
}

func (r *Router) syncCommands(api commandAPI, appID, guildID string) error {
	existingCommands, err := api.list(appID, guildID)
	if err != nil {
		return fmt.Errorf("fetch existing commands: %w", err)
	}

	existingMap := make(map[string]*discordgo.ApplicationCommand, len(existingCommands))
	for _, cmd := range existingCommands {
		existingMap[cmd.Name] = cmd
	}

	var errs []error
	for _, desired := range r.ApplicationCommands() {
		existing, exists := existingMap[desired.Name]
		if !exists {
			r.log.Info().Str("command", desired.Name).Msg("Creating slash command")
			if err := api.create(appID, guildID, desired); err != nil {
				errs = append(errs, fmt.Errorf("create %s: %w", desired.Name, err))
			}
			continue
		}

		delete(existingMap, desired.Name)
		if commandNeedsUpdate(existing, desired) {
			r.log.Info().Str("command", desired.Name).Msg("Updating slash command")
			if err := api.edit(appID, guildID, existing.ID, desired); err != nil {
				errs = append(errs, fmt.Errorf("update %s: %w", desired.Name, err))
			}
		}
	}

	for _, cmd := range existingMap {
		r.log.Info().Str("command", cmd.Name).Msg("Deleting unused slash command")
		if err := api.remove(appID, guildID, cmd.ID); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", cmd.Name, err))
		}
	}

	for _, err := range errs {
		r.log.Error().Err(err).Msg("Slash command sync error")
	}
	return errors.Join(errs...)
}
