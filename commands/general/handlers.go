package general

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"KasutamaizaBot/commands"
	"KasutamaizaBot/utils"

	"github.com/bwmarrin/discordgo"
)

const helpTitle = "Kasutamaiza Bot Help"

func pingEmbed(latency time.Duration) *discordgo.MessageEmbed {
	embed := utils.InfoEmbed("Pong!", "", utils.Field("Latency", fmt.Sprintf("%d ms", latency.Milliseconds()), true))
	embed.Color = utils.ColorSuccess
	return embed
}

func (g *General) pingSlash(_ context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	latency := s.HeartbeatLatency()
	g.log.Debug().Dur("latency", latency).Msg("Bot latency calculated")
	return commands.RespondEmbed(s, i, pingEmbed(latency))
}

func (g *General) pingPrefix(_ context.Context, s *discordgo.Session, m *discordgo.MessageCreate, _ []string) error {
	_, err := s.ChannelMessageSendEmbed(m.ChannelID, pingEmbed(s.HeartbeatLatency()))
	return err
}

func (g *General) uptimeSlash(_ context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	uptime := g.uptime(time.Since(g.started))
	return commands.RespondEmbed(s, i, utils.InfoEmbed("Bot Uptime", "", utils.Field("Uptime", uptime, false)))
}

// helpFields lists every registered command grouped by category. Categories whose
// listing exceeds one field are continued in further fields.
func helpFields(r *commands.Router, supportURL string) []*discordgo.MessageEmbedField {
	quick := []string{
		"Use `/ping` to check if the bot is online.",
		"Use `/help` to see all commands.",
		"Use `/card_lookup` to find Yu-Gi-Oh! cards.",
	}
	if supportURL != "" {
		quick = append(quick, fmt.Sprintf("[Support Server](%s)", supportURL))
	}
	fields := []*discordgo.MessageEmbedField{utils.Field("Quick Start", strings.Join(quick, "\n"), false)}

	for _, category := range r.Categories() {
		var lines []string
		for _, mod := range r.ModulesByCategory(category.Name) {
			for _, sc := range mod.SlashCommands {
				lines = append(lines, fmt.Sprintf("`/%s` - %s", sc.Name, sc.Description))
			}
			for _, cmd := range mod.Commands {
				lines = append(lines, fmt.Sprintf("`%s%s` - %s", r.Prefix(), cmd.Name, cmd.Description))
			}
		}
		if len(lines) == 0 {
			continue
		}
		for n, chunk := range groupLines(lines, utils.EmbedFieldValueLimit) {
			name := category.Name + " Commands"
			if n > 0 {
				name += " (cont.)"
			}
			fields = append(fields, utils.Field(name, chunk, false))
		}
	}
	return fields
}

// groupLines joins lines into blocks no longer than limit, never splitting a line
// unless it is longer than limit on its own.
func groupLines(lines []string, limit int) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	for _, line := range lines {
		if len(line) > limit {
			flush()
			out = append(out, utils.SplitLongString(line, limit)...)
			continue
		}
		if b.Len() > 0 && b.Len()+1+len(line) > limit {
			flush()
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	flush()
	return out
}

func (g *General) helpEmbeds() []*discordgo.MessageEmbed {
	return utils.PaginateEmbeds(helpTitle, utils.ColorInfo, helpFields(g.router, g.supportURL))
}

func (g *General) helpSlash(_ context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	pages := g.helpEmbeds()
	if len(pages) > 1 {
		g.log.Info().Int("pages", len(pages)).Msg("Help message requires pagination due to size")
	}
	if err := commands.RespondEmbed(s, i, pages[0]); err != nil {
		return err
	}
	for _, page := range pages[1:] {
		if err := commands.Followup(s, i, page); err != nil {
			return err
		}
	}
	return nil
}

func (g *General) helpPrefix(_ context.Context, s *discordgo.Session, m *discordgo.MessageCreate, _ []string) error {
	for _, page := range g.helpEmbeds() {
		if _, err := s.ChannelMessageSendEmbed(m.ChannelID, page); err != nil {
			return err
		}
	}
	return nil
}

// metadata is everything /bot_metadata shows
type metadata struct {
	Name     string
	ID       string
	Uptime   string
	Guilds   int
	Modules  int
	Stats    hostStats
	StatsErr error
}

func metadataFields(md metadata) []*discordgo.MessageEmbedField {
	if md.Name == "" {
		md.Name = "Unknown Bot"
	}
	if md.ID == "" {
		md.ID = "Unknown ID"
	}
	fields := []*discordgo.MessageEmbedField{
		utils.Field("Name", md.Name, true),
		utils.Field("ID", md.ID, true),
		utils.Field("Version", version, true),
		utils.Field("Author", author, true),
		utils.Field("Uptime", md.Uptime, true),
		utils.Field("Guilds", strconv.Itoa(md.Guilds), true),
		utils.Field("Modules", strconv.Itoa(md.Modules), true),
		utils.Field("Go", runtime.Version(), true),
	}
	if md.StatsErr != nil {
		return append(fields, utils.Field("Resources", "Unavailable", false))
	}
	fields = append(fields,
		utils.Field("Memory", md.Stats.memory(), true),
		utils.Field("CPU", md.Stats.cpu(), true),
	)
	if md.Stats.Platform != "" {
		fields = append(fields, utils.Field("Platform", md.Stats.Platform, true))
	}
	return fields
}

func (g *General) metadataSlash(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	md := metadata{
		Uptime:  g.uptime(time.Since(g.started)),
		Modules: len(g.router.Modules()),
	}
	if s.State != nil {
		if s.State.User != nil {
			md.Name, md.ID = s.State.User.Username, s.State.User.ID
		}
		s.State.RLock()
		md.Guilds = len(s.State.Guilds)
		s.State.RUnlock()
	}
	md.Stats, md.StatsErr = g.stats(ctx)
	if md.StatsErr != nil {
		g.log.Warn().Err(md.StatsErr).Msg("Failed to collect host stats")
	}

	return commands.RespondEmbed(s, i, utils.InfoEmbed("Bot Metadata", "", metadataFields(md)...))
}
