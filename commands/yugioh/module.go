package yugioh

import (
	"context"
	"errors"
	"strings"
	"time"

	"KasutamaizaBot/commands"
	"KasutamaizaBot/loader"
	"KasutamaizaBot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const (
	defaultAPIURL    = "https://db.ygoprodeck.com/api/v7"
	defaultEventsURL = "https://www.yugioh-card.com/en/events/"
	requestTimeout   = 10 * time.Second
	duelingBookURL   = "https://www.duelingbook.com/"
)

func init() {
	loader.Register(loader.Cogs, &YuGiOh{})
}

// YuGiOh provides card lookup and player resources
type YuGiOh struct {
	cards  *Client
	events *EventScraper
	log    zerolog.Logger
}

func (*YuGiOh) Name() string { return "yugioh" }

func (y *YuGiOh) Initialize(_ context.Context, mc *loader.Context) error {
	if mc.Router == nil {
		return errors.New("yugioh requires a command router")
	}
	apiURL, eventsURL := defaultAPIURL, defaultEventsURL
	if mc.Config != nil {
		if mc.Config.YGOAPIURL != "" {
			apiURL = mc.Config.YGOAPIURL
		}
		if mc.Config.YGOEventsURL != "" {
			eventsURL = mc.Config.YGOEventsURL
		}
	}
	y.log = mc.Logger
	y.cards = NewClient(apiURL, requestTimeout)
	y.events = NewEventScraper(eventsURL, requestTimeout, mc.Logger)
	return mc.Router.RegisterModule(y.info())
}

func (y *YuGiOh) info() *commands.ModuleInfo {
	modes := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(SearchModes))
	for _, m := range SearchModes {
		modes = append(modes, &discordgo.ApplicationCommandOptionChoice{Name: m, Value: m})
	}
	intOpt := func(name, desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionInteger, Name: name, Description: desc}
	}

	return &commands.ModuleInfo{
		Name:        "YuGiOh",
		Description: "Provides Yu-Gi-Oh-specific tools and resources",
		Version:     "1.0.0",
		Author:      "ProfessorSeanEX",
		Category:    "Yu-Gi-Oh",
		SlashCommands: []commands.SlashCommandInfo{
			{
				Name:        "card_lookup",
				Description: "Search for a Yu-Gi-Oh! card by name, type, archetype, or filters.",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: "query", Description: "Card name or search term", Required: true},
					{Type: discordgo.ApplicationCommandOptionString, Name: "search_mode", Description: "Field to match the query against", Choices: modes},
					intOpt("min_atk", "Minimum ATK"),
					intOpt("max_atk", "Maximum ATK"),
					intOpt("min_def", "Minimum DEF"),
					intOpt("max_def", "Maximum DEF"),
					intOpt("min_level", "Minimum level or rank"),
					intOpt("max_level", "Maximum level or rank"),
				},
				Handler: y.cardLookup,
			},
			{Name: "dueling", Description: "Get a link to DuelingBook for online dueling.", Handler: y.dueling},
			{Name: "deck_tips", Description: "Get tips for building a Yu-Gi-Oh deck.", Handler: y.deckTips},
			{Name: "tournament_links", Description: "Get links to Yu-Gi-Oh tournaments and events.", Handler: y.tournamentLinks},
		},
	}
}

// queryFromOptions reads a card search from the interaction options
func queryFromOptions(opts map[string]*discordgo.ApplicationCommandInteractionDataOption) (Query, error) {
	q := Query{Mode: "name"}
	if o, ok := opts["query"]; ok {
		q.Text = strings.TrimSpace(o.StringValue())
	}
	if q.Text == "" {
		return Query{}, commands.Userf("Please provide a card name or search term.")
	}
	if o, ok := opts["search_mode"]; ok {
		q.Mode = o.StringValue()
	}

	bound := func(name string) *int {
		o, ok := opts[name]
		if !ok {
			return nil
		}
		v := int(o.IntValue())
		return &v
	}
	q.ATK = Range{Min: bound("min_atk"), Max: bound("max_atk")}
	q.DEF = Range{Min: bound("min_def"), Max: bound("max_def")}
	q.Level = Range{Min: bound("min_level"), Max: bound("max_level")}

	for name, r := range map[string]Range{"ATK": q.ATK, "DEF": q.DEF, "level": q.Level} {
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return Query{}, commands.Userf("The minimum %s can't be greater than the maximum.", name)
		}
	}
	return q, nil
}

func (y *YuGiOh) cardLookup(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	q, err := queryFromOptions(commands.OptionMap(i))
	if err != nil {
		return err
	}
	if err := commands.Defer(s, i); err != nil {
		return err
	}

	cards, err := y.cards.Search(ctx, q)
	switch {
	case errors.Is(err, ErrNoCards):
		return commands.Followup(s, i, utils.InfoEmbed("No Cards Found", "", utils.Field("Query", q.Text, false)))
	case err != nil:
		y.log.Error().Err(err).Str("query", q.Text).Msg("Card lookup failed")
		return commands.Followup(s, i, utils.ErrorEmbed("Error", "Failed to connect to the card database."))
	case len(cards) == 1:
		return commands.Followup(s, i, cardEmbed(cards[0]))
	}
	return commands.Followup(s, i, listEmbed(q.Text, cards))
}

func (y *YuGiOh) dueling(_ context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return commands.RespondEmbed(s, i, utils.InfoEmbed("Ready to Duel?", "", utils.Field("DuelingBook", duelingBookURL, false)))
}

func (y *YuGiOh) deckTips(_ context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return commands.RespondEmbed(s, i, tipsEmbed())
}

func (y *YuGiOh) tournamentLinks(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := commands.Defer(s, i); err != nil {
		return err
	}
	links, live := y.events.Links(ctx)
	return commands.Followup(s, i, linksEmbed("Yu-Gi-Oh Tournaments and Events", links, live))
}
