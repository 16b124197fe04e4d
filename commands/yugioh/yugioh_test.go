package yugioh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

func intp(v int) *int { return &v }

func TestQueryParams(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  map[string]string
	}{
		{
			name:  "name only",
			query: Query{Text: "Dark Magician", Mode: "name"},
			want:  map[string]string{"fname": "Dark Magician"},
		},
		{
			name:  "archetype mode",
			query: Query{Text: "Blue-Eyes", Mode: "archetype"},
			want:  map[string]string{"fname": "Blue-Eyes", "archetype": "Blue-Eyes"},
		},
		{
			name:  "unknown mode ignored",
			query: Query{Text: "x", Mode: "flavor"},
			want:  map[string]string{"fname": "x"},
		},
		{
			name:  "bounds",
			query: Query{Text: "dragon", ATK: Range{Min: intp(2000), Max: intp(3000)}, DEF: Range{Max: intp(1000)}},
			want:  map[string]string{"fname": "dragon", "atk": "gte2000", "def": "lte1000"},
		},
		{
			name:  "level mode wins over level bound",
			query: Query{Text: "4", Mode: "level", Level: Range{Min: intp(1)}},
			want:  map[string]string{"fname": "4", "level": "4"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.query.Params()
			if len(got) != len(tt.want) {
				t.Fatalf("Params() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestQueryMatches(t *testing.T) {
	q := Query{ATK: Range{Min: intp(2000), Max: intp(2500)}}
	if !q.Matches(Card{ATK: intp(2500)}) {
		t.Error("upper bound is inclusive")
	}
	if q.Matches(Card{ATK: intp(3000)}) {
		t.Error("card above max matched")
	}
	if q.Matches(Card{}) {
		t.Error("card without ATK matched an ATK bound")
	}
	if !(Query{}).Matches(Card{}) {
		t.Error("unbounded query must match everything")
	}
}

const cardJSON = `{"data":[
 {"id":46986414,"name":"Dark Magician","type":"Normal Monster","desc":"The ultimate wizard.","atk":2500,"def":2100,"level":7,"race":"Spellcaster","attribute":"DARK",
  "card_images":[{"image_url":"https://images.example/46986414.jpg","image_url_small":"https://images.example/small/46986414.jpg","image_url_cropped":"https://images.example/cropped/46986414.jpg"}],
  "banlist_info":{"ban_goat":"Limited"},
  "card_sets":[{"set_name":"Legend of Blue Eyes","set_code":"LOB-005","set_rarity":"Ultra Rare"}],
  "card_prices":[{"tcgplayer_price":"0.25","ebay_price":"1.00","amazon_price":"","coolstuffinc_price":"0.99"}]},
 {"id":38033121,"name":"Dark Magician Girl","type":"Effect Monster","desc":"Gains ATK.","atk":2000,"def":1700,"level":6,"race":"Spellcaster","attribute":"DARK"}
]}`

func TestClientSearch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cardinfo.php" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, cardJSON)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	cards, err := c.Search(context.Background(), Query{Text: "Dark Magician", ATK: Range{Min: intp(2200)}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(gotQuery, "fname=Dark+Magician") || !strings.Contains(gotQuery, "atk=gte2200") {
		t.Errorf("query = %s", gotQuery)
	}
	if len(cards) != 1 || cards[0].Name != "Dark Magician" || *cards[0].Level != 7 {
		t.Fatalf("cards = %+v", cards)
	}

	embed := cardEmbed(cards[0])
	if embed.Thumbnail == nil || embed.Footer.Text != "Card ID 46986414" {
		t.Errorf("embed = %+v", embed)
	}
	var prices string
	for _, f := range embed.Fields {
		if f.Name == "Prices" {
			prices = f.Value
		}
	}
	if !strings.Contains(prices, "**Amazon**: $N/A") {
		t.Errorf("prices = %q", prices)
	}
	if embed.Image == nil || embed.Image.URL != "https://images.example/cropped/46986414.jpg" {
		t.Errorf("image = %+v", embed.Image)
	}
	if got := fieldValue(embed, "Banlist Information"); got != "**GOAT**: Limited" {
		t.Errorf("banlist = %q", got)
	}
}

func fieldValue(embed *discordgo.MessageEmbed, name string) string {
	for _, f := range embed.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

func TestCardEmbedMaterials(t *testing.T) {
	fusion := Card{
		Name: "Dark Paladin",
		Type: "Fusion Monster",
		Desc: "\"Dark Magician\" + \"Buster Blader\"\nMust be Fusion Summoned.",
	}
	if got := fieldValue(cardEmbed(fusion), "Materials"); got != `"Dark Magician" + "Buster Blader"` {
		t.Errorf("fusion materials = %q", got)
	}

	explicit := Card{Name: "Decode Talker", Type: "Link Monster", Materials: "2+ Effect Monsters"}
	if got := fieldValue(cardEmbed(explicit), "Materials"); got != "2+ Effect Monsters" {
		t.Errorf("explicit materials = %q", got)
	}

	normal := Card{Name: "Dark Magician", Type: "Normal Monster", Desc: "The ultimate wizard.\nIn terms of attack and defense."}
	embed := cardEmbed(normal)
	if got := fieldValue(embed, "Materials"); got != "" {
		t.Errorf("main deck monster has materials %q", got)
	}
	if fieldValue(embed, "Banlist Information") != "" || embed.Image != nil {
		t.Error("card without banlist or images should not get those parts")
	}
}

func TestClientSearchNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"No card matching your query was found in the database."}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Search(context.Background(), Query{Text: "nothing"})
	if !errors.Is(err, ErrNoCards) {
		t.Errorf("err = %v, want ErrNoCards", err)
	}
}

func TestClientSearchFiltersToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, cardJSON)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Search(context.Background(), Query{Text: "Dark", ATK: Range{Max: intp(100)}})
	if !errors.Is(err, ErrNoCards) {
		t.Errorf("err = %v, want ErrNoCards", err)
	}
}

func TestClientSearchServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	c.http.SetRetryCount(1).SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(time.Millisecond)

	_, err := c.Search(context.Background(), Query{Text: "x"})
	if err == nil || errors.Is(err, ErrNoCards) {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("server called %d times, want a retry", calls.Load())
	}
}

func TestListEmbed(t *testing.T) {
	cards := make([]Card, 15)
	for n := range cards {
		cards[n] = Card{Name: fmt.Sprintf("Card %d", n), Type: "Spell Card"}
	}
	embed := listEmbed("card", cards)
	if strings.Count(embed.Description, "\n") != maxListed-1 {
		t.Errorf("listed %d lines", strings.Count(embed.Description, "\n")+1)
	}
	if !strings.HasPrefix(embed.Footer.Text, "Showing 10 of 15") {
		t.Errorf("footer = %q", embed.Footer.Text)
	}
}

func option(name string, typ discordgo.ApplicationCommandOptionType, v any) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: typ, Value: v}
}

func TestQueryFromOptions(t *testing.T) {
	q, err := queryFromOptions(map[string]*discordgo.ApplicationCommandInteractionDataOption{
		"query":       option("query", discordgo.ApplicationCommandOptionString, " Kuriboh "),
		"search_mode": option("search_mode", discordgo.ApplicationCommandOptionString, "race"),
		"min_level":   option("min_level", discordgo.ApplicationCommandOptionInteger, float64(1)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if q.Text != "Kuriboh" || q.Mode != "race" || *q.Level.Min != 1 || q.Level.Max != nil {
		t.Errorf("query = %+v", q)
	}

	_, err = queryFromOptions(map[string]*discordgo.ApplicationCommandInteractionDataOption{
		"query":   option("query", discordgo.ApplicationCommandOptionString, "x"),
		"min_atk": option("min_atk", discordgo.ApplicationCommandOptionInteger, float64(3000)),
		"max_atk": option("max_atk", discordgo.ApplicationCommandOptionInteger, float64(1000)),
	})
	if err == nil || !strings.Contains(err.Error(), "ATK") {
		t.Errorf("inverted range accepted: %v", err)
	}

	if _, err := queryFromOptions(nil); err == nil {
		t.Error("missing query accepted")
	}
}

const eventsHTML = `<html><body>
<article><h3>Yu-Gi-Oh! Championship Series Lille</h3><a href="/en/events/ycs-lille">Details</a></article>
<article><h3>  Regional   Qualifier </h3><a href="https://events.example/regional">More</a></article>
<div class="event"><a href="/en/events/ycs-lille">duplicate</a></div>
<article><p>no link here</p></article>
</body></html>`

func TestEventScraper(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, eventsHTML)
	}))
	defer srv.Close()

	scraper := NewEventScraper(srv.URL+"/en/events/", time.Second, zerolog.New(io.Discard))
	links, live := scraper.Links(context.Background())
	if !live || len(links) != 2 {
		t.Fatalf("links = %+v live=%v", links, live)
	}
	if links[0].URL != srv.URL+"/en/events/ycs-lille" || links[1].Title != "Regional Qualifier" {
		t.Errorf("links = %+v", links)
	}

	scraper.Links(context.Background())
	if calls.Load() != 1 {
		t.Errorf("cached listing fetched again: %d calls", calls.Load())
	}
}

func TestEventScraperFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	links, live := NewEventScraper(srv.URL, time.Second, zerolog.New(io.Discard)).Links(context.Background())
	if live || len(links) != len(fallbackLinks) {
		t.Errorf("links = %+v live=%v", links, live)
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>No events</p></body></html>")
	}))
	defer empty.Close()
	if _, live := NewEventScraper(empty.URL, time.Second, zerolog.New(io.Discard)).Links(context.Background()); live {
		t.Error("empty listing reported as live")
	}
}

func TestTipsEmbed(t *testing.T) {
	embed := tipsEmbed()
	if len(embed.Fields) != 5 || embed.Fields[0].Name != "1" {
		t.Errorf("tips = %+v", embed.Fields)
	}
}
