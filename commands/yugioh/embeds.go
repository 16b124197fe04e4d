package yugioh

import (
	"fmt"
	"strconv"
	"strings"

	"KasutamaizaBot/utils"

	"github.com/bwmarrin/discordgo"
)

const maxListed = 10

var deckTips = []string{
	"Choose a theme or archetype.",
	"Include at least 40 cards but no more than 60.",
	"Maintain a balance of monsters, spells, and traps.",
	"Use cards that synergize with your strategy.",
	"Include hand traps and board clears for flexibility.",
}

func stat(v *int) string {
	if v == nil {
		return "N/A"
	}
	return strconv.Itoa(*v)
}

func cardEmbed(c Card) *discordgo.MessageEmbed {
	desc := c.Desc
	if desc == "" {
		desc = "No description available."
	}
	embed := utils.InfoEmbed(c.Name, utils.TruncateString(desc, 4096, "..."),
		utils.Field("Type", c.Type, true),
		utils.Field("Race", c.Race, true),
		utils.Field("Attribute", orNA(c.Attribute), true),
	)
	if len(c.Images) > 0 {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: c.Images[0].URL}
		if c.Images[0].CroppedURL != "" {
			embed.Image = &discordgo.MessageEmbedImage{URL: c.Images[0].CroppedURL}
		}
	}

	for _, s := range []struct {
		name string
		v    *int
	}{
		{"ATK", c.ATK},
		{"DEF", c.DEF},
		{"Level/Rank", c.Level},
		{"Pendulum Scale", c.Scale},
		{"Link Rating", c.LinkVal},
	} {
		if s.v != nil {
			embed.Fields = append(embed.Fields, utils.Field(s.name, stat(s.v), true))
		}
	}
	if len(c.LinkMarkers) > 0 {
		embed.Fields = append(embed.Fields, utils.Field("Link Arrows", strings.Join(c.LinkMarkers, ", "), true))
	}
	if c.Archetype != "" {
		embed.Fields = append(embed.Fields, utils.Field("Archetype", c.Archetype, true))
	}
	if len(c.Sets) > 0 {
		lines := make([]string, 0, len(c.Sets))
		for _, s := range c.Sets {
			lines = append(lines, fmt.Sprintf("- %s (%s)", s.Name, s.Code))
		}
		embed.Fields = append(embed.Fields, utils.Field("Card Sets", strings.Join(lines, "\n"), false))
	}
	if len(c.Prices) > 0 {
		p := c.Prices[0]
		embed.Fields = append(embed.Fields, utils.Field("Prices", strings.Join([]string{
			"**TCGPlayer**: $" + orNA(p.TCGPlayer),
			"**Ebay**: $" + orNA(p.Ebay),
			"**Amazon**: $" + orNA(p.Amazon),
			"**CoolStuffInc**: $" + orNA(p.CoolStuffInc),
		}, "\n"), false))
	}
	if c.Banlist != nil {
		var lines []string
		for _, b := range []struct{ format, status string }{
			{"TCG", c.Banlist.TCG},
			{"OCG", c.Banlist.OCG},
			{"GOAT", c.Banlist.GOAT},
		} {
			if b.status != "" {
				lines = append(lines, fmt.Sprintf("**%s**: %s", b.format, b.status))
			}
		}
		if len(lines) > 0 {
			embed.Fields = append(embed.Fields, utils.Field("Banlist Information", strings.Join(lines, "\n"), false))
		}
	}
	if m := materials(c); m != "" {
		embed.Fields = append(embed.Fields, utils.Field("Materials", m, false))
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Card ID %d", c.ID)}
	return embed
}

var extraDeckTypes = []string{"Fusion", "Synchro", "XYZ", "Link"}

// materials returns the summoning materials of an Extra Deck monster. The card
// database prints them as the first line of the description when no explicit
// value is given.
func materials(c Card) string {
	if c.Materials != "" {
		return c.Materials
	}
	extra := false
	for _, t := range extraDeckTypes {
		if strings.Contains(c.Type, t) {
			extra = true
			break
		}
	}
	if !extra || c.Desc == "" {
		return ""
	}
	first, _, found := strings.Cut(c.Desc, "\n")
	if !found {
		return ""
	}
	return strings.TrimSpace(first)
}

// listEmbed summarizes a multi-card result
func listEmbed(query string, cards []Card) *discordgo.MessageEmbed {
	shown := cards[:min(len(cards), maxListed)]
	lines := make([]string, 0, len(shown))
	for _, c := range shown {
		lines = append(lines, fmt.Sprintf("**%s** - %s", c.Name, c.Type))
	}
	embed := utils.InfoEmbed(
		fmt.Sprintf("Results for %q", query),
		strings.Join(lines, "\n"),
	)
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("Showing %d of %d matches. Use the exact name for full details.", len(shown), len(cards)),
	}
	if len(shown[0].Images) > 0 {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: shown[0].Images[0].SmallURL}
	}
	return embed
}

func linksEmbed(title string, links []Link, live bool) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(links))
	for _, l := range links {
		fields = append(fields, utils.Field(l.Title, l.URL, false))
	}
	embed := utils.InfoEmbed(title, "", fields...)
	if !live {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Live event listing unavailable"}
	}
	return embed
}

func tipsEmbed() *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(deckTips))
	for n, tip := range deckTips {
		fields = append(fields, utils.Field(strconv.Itoa(n+1), tip, false))
	}
	return utils.InfoEmbed("Yu-Gi-Oh Deck Building Tips", "", fields...)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
