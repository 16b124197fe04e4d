package commands

import (
	"errors"
	"sort"
	"testing"

	"github.com/bwmarrin/discordgo"
)

type fakeCommandAPI struct {
	existing []*discordgo.ApplicationCommand
	created  []string
	edited   []string
	removed  []string
	failOn   string
}

func (f *fakeCommandAPI) list(string, string) ([]*discordgo.ApplicationCommand, error) {
	return f.existing, nil
}

func (f *fakeCommandAPI) create(_, _ string, cmd *discordgo.ApplicationCommand) error {
	if cmd.Name == f.failOn {
		return errors.New("missing access")
	}
	f.created = append(f.created, cmd.Name)
	return nil
}

func (f *fakeCommandAPI) edit(_, _, id string, cmd *discordgo.ApplicationCommand) error {
	f.edited = append(f.edited, id)
	return nil
}

func (f *fakeCommandAPI) remove(_, _, id string) error {
	f.removed = append(f.removed, id)
	return nil
}

func TestSyncCommands(t *testing.T) {
	r := newTestRouter(t)
	_ = r.RegisterModule(&ModuleInfo{Name: "general", SlashCommands: []SlashCommandInfo{
		{Name: "ping", Description: "Check latency", Handler: noopSlash},
		{Name: "help", Description: "List commands", Handler: noopSlash},
		{Name: "uptime", Description: "Show uptime", Handler: noopSlash},
	}})

	api := &fakeCommandAPI{existing: []*discordgo.ApplicationCommand{
		{ID: "1", Name: "ping", Description: "Check latency"},
		{ID: "2", Name: "help", Description: "old text"},
		{ID: "3", Name: "quota", Description: "gone"},
	}}

	if err := r.syncCommands(api, "app", "guild"); err != nil {
		t.Fatal(err)
	}

	sort.Strings(api.created)
	if len(api.created) != 1 || api.created[0] != "uptime" {
		t.Errorf("created = %v", api.created)
	}
	if len(api.edited) != 1 || api.edited[0] != "2" {
		t.Errorf("edited = %v", api.edited)
	}
	if len(api.removed) != 1 || api.removed[0] != "3" {
		t.Errorf("removed = %v", api.removed)
	}
}

func TestSyncCommandsReportsFailures(t *testing.T) {
	r := newTestRouter(t)
	_ = r.RegisterModule(&ModuleInfo{Name: "general", SlashCommands: []SlashCommandInfo{
		{Name: "ping", Description: "Check latency", Handler: noopSlash},
		{Name: "uptime", Description: "Show uptime", Handler: noopSlash},
	}})

	api := &fakeCommandAPI{failOn: "ping"}
	if err := r.syncCommands(api, "app", "guild"); err == nil {
		t.Fatal("expected an error")
	}
	if len(api.created) != 1 || api.created[0] != "uptime" {
		t.Errorf("a failing command should not stop the rest: %v", api.created)
	}
}

func TestCommandNeedsUpdate(t *testing.T) {
	base := &discordgo.ApplicationCommand{
		Name:        "ban",
		Description: "Ban a member",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member", Required: true},
		},
	}
	same := *base
	if commandNeedsUpdate(base, &same) {
		t.Error("identical commands flagged")
	}

	changed := *base
	changed.Options = []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member", Required: false},
	}
	if !commandNeedsUpdate(base, &changed) {
		t.Error("required flag change missed")
	}
}
