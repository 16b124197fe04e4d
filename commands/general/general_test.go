package general

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"KasutamaizaBot/commands"
	"KasutamaizaBot/config"
	"KasutamaizaBot/loader"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

func noop(context.Context, *discordgo.Session, *discordgo.InteractionCreate) error { return nil }

func newContext(t *testing.T) *loader.Context {
	t.Helper()
	return &loader.Context{
		Router:  commands.NewRouter(">>", nil, zerolog.New(io.Discard), nil),
		Config:  &config.Config{SupportServerURL: "https://discord.gg/example"},
		Logger:  zerolog.New(io.Discard),
		Helpers: map[string]any{},
	}
}

func TestInitializeRegistersCommands(t *testing.T) {
	mc := newContext(t)
	g := &General{}
	if err := g.Initialize(context.Background(), mc); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"ping", "uptime", "help", "bot_metadata"} {
		if _, ok := mc.Router.Slash(name); !ok {
			t.Errorf("/%s not registered", name)
		}
	}
	if cmd, ok := mc.Router.Command("commands"); !ok || cmd.Name != "help" {
		t.Error("help alias not registered")
	}
}

func TestInitializeUsesInjectedUptimeHelper(t *testing.T) {
	mc := newContext(t)
	mc.Helpers["format_uptime"] = func(time.Duration) string { return "forever" }

	g := &General{}
	if err := g.Initialize(context.Background(), mc); err != nil {
		t.Fatal(err)
	}
	if got := g.uptime(time.Hour); got != "forever" {
		t.Errorf("uptime = %q, want the injected helper", got)
	}
}

func TestInitializeRequiresRouter(t *testing.T) {
	if err := (&General{}).Initialize(context.Background(), &loader.Context{}); err == nil {
		t.Error("expected error without router")
	}
}

func TestHelpFieldsGroupByCategory(t *testing.T) {
	r := commands.NewRouter(">>", nil, zerolog.New(io.Discard), nil)
	if err := r.RegisterModule(&commands.ModuleInfo{
		Name:          "Cards",
		Category:      "Yu-Gi-Oh",
		SlashCommands: []commands.SlashCommandInfo{{Name: "card_lookup", Description: "Find a card", Handler: noop}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterModule(&commands.ModuleInfo{
		Name:     "Mod",
		Category: "Moderation",
		Commands: []commands.CommandInfo{{Name: "kick", Description: "Kick a member"}},
	}); err != nil {
		t.Fatal(err)
	}

	fields := helpFields(r, "https://discord.gg/example")
	if len(fields) != 3 {
		t.Fatalf("got %d fields", len(fields))
	}
	if !strings.Contains(fields[0].Value, "[Support Server](https://discord.gg/example)") {
		t.Errorf("quick start = %q", fields[0].Value)
	}
	if fields[1].Name != "Moderation Commands" || fields[1].Value != "`>>kick` - Kick a member" {
		t.Errorf("moderation field = %+v", fields[1])
	}
	if fields[2].Name != "Yu-Gi-Oh Commands" || !strings.Contains(fields[2].Value, "`/card_lookup`") {
		t.Errorf("yugioh field = %+v", fields[2])
	}

	if quick := helpFields(r, "")[0].Value; strings.Contains(quick, "Support Server") {
		t.Error("support link shown without a configured url")
	}
}

func TestHelpFieldsContinueLongCategories(t *testing.T) {
	r := commands.NewRouter(">>", nil, zerolog.New(io.Discard), nil)
	var slash []commands.SlashCommandInfo
	for n := range 40 {
		slash = append(slash, commands.SlashCommandInfo{
			Name:        "cmd" + strings.Repeat("x", n),
			Description: strings.Repeat("d", 60),
			Handler:     noop,
		})
	}
	if err := r.RegisterModule(&commands.ModuleInfo{Name: "Big", Category: "Big", SlashCommands: slash}); err != nil {
		t.Fatal(err)
	}

	fields := helpFields(r, "")
	if len(fields) < 3 {
		t.Fatalf("expected continuation fields, got %d", len(fields))
	}
	for _, f := range fields[1:] {
		if len(f.Value) > 1024 {
			t.Errorf("%s exceeds the field limit: %d", f.Name, len(f.Value))
		}
	}
	if fields[2].Name != "Big Commands (cont.)" {
		t.Errorf("continuation named %q", fields[2].Name)
	}
}

func TestGroupLines(t *testing.T) {
	got := groupLines([]string{"aaaa", "bbbb", "cccc"}, 9)
	if len(got) != 2 || got[0] != "aaaa\nbbbb" || got[1] != "cccc" {
		t.Errorf("groupLines = %q", got)
	}
	if got := groupLines([]string{strings.Repeat("z", 20)}, 8); len(got) != 3 {
		t.Errorf("long line split into %d parts", len(got))
	}
}

func TestMetadataFields(t *testing.T) {
	fields := metadataFields(metadata{
		Uptime:  "0:00:05",
		Guilds:  2,
		Modules: 4,
		Stats:   hostStats{RSS: 64 * 1024 * 1024, CPUPercent: 1.5, SystemMemPercent: 40, Cores: 8, Platform: "debian (debian)"},
	})
	values := map[string]string{}
	for _, f := range fields {
		values[f.Name] = f.Value
	}
	if values["Name"] != "Unknown Bot" || values["Version"] != version || values["Guilds"] != "2" {
		t.Errorf("fields = %v", values)
	}
	if values["Memory"] != "64.0 MiB (system 40.0%)" || values["CPU"] != "1.5% of 8 cores" {
		t.Errorf("resource fields = %v", values)
	}

	failed := metadataFields(metadata{StatsErr: errors.New("no procfs")})
	if last := failed[len(failed)-1]; last.Name != "Resources" || last.Value != "Unavailable" {
		t.Errorf("stats failure rendered as %+v", last)
	}
}

func TestPingEmbed(t *testing.T) {
	if got := pingEmbed(42 * time.Millisecond).Fields[0].Value; got != "42 ms" {
		t.Errorf("latency = %q", got)
	}
}
