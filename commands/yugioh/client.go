package yugioh

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNoCards is returned when the card database has no match for a query
var ErrNoCards = errors.New("no cards found")

// SearchModes are the card fields a query can be matched against besides the name
var SearchModes = []string{"name", "type", "archetype", "attribute", "race", "level"}

type CardSet struct {
	Name   string `json:"set_name"`
	Code   string `json:"set_code"`
	Rarity string `json:"set_rarity"`
}

type CardImage struct {
	URL        string `json:"image_url"`
	SmallURL   string `json:"image_url_small"`
	CroppedURL string `json:"image_url_cropped"`
}

// Banlist holds a card's limit status per format. Unlisted formats are empty.
type Banlist struct {
	TCG  string `json:"ban_tcg"`
	OCG  string `json:"ban_ocg"`
	GOAT string `json:"ban_goat"`
}

type CardPrice struct {
	TCGPlayer    string `json:"tcgplayer_price"`
	Ebay         string `json:"ebay_price"`
	Amazon       string `json:"amazon_price"`
	CoolStuffInc string `json:"coolstuffinc_price"`
}

// Card is one entry of the YGOPRODeck card database. Stats absent for a card type
// (DEF of link monsters, level of spells) are nil.
type Card struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Desc        string      `json:"desc"`
	Race        string      `json:"race"`
	Attribute   string      `json:"attribute"`
	Archetype   string      `json:"archetype"`
	ATK         *int        `json:"atk"`
	DEF         *int        `json:"def"`
	Level       *int        `json:"level"`
	Scale       *int        `json:"scale"`
	LinkVal     *int        `json:"linkval"`
	LinkMarkers []string    `json:"linkmarkers"`
	Sets        []CardSet   `json:"card_sets"`
	Images      []CardImage `json:"card_images"`
	Prices      []CardPrice `json:"card_prices"`
	Banlist     *Banlist    `json:"banlist_info"`
	Materials   string      `json:"materials"`
}

// Range is an inclusive bound on a card stat. Nil ends are open.
type Range struct {
	Min *int
	Max *int
}

func (r Range) contains(v *int) bool {
	if r.Min == nil && r.Max == nil {
		return true
	}
	if v == nil {
		return false
	}
	return (r.Min == nil || *v >= *r.Min) && (r.Max == nil || *v <= *r.Max)
}

// param renders the bound the API can filter on. The API takes one comparison per
// stat, so the lower bound is sent and the upper bound is checked locally when both
// are set.
func (r Range) param() (string, bool) {
	switch {
	case r.Min != nil:
		return "gte" + strconv.Itoa(*r.Min), true
	case r.Max != nil:
		return "lte" + strconv.Itoa(*r.Max), true
	}
	return "", false
}

// Query is a /card_lookup search
type Query struct {
	Text  string
	Mode  string
	ATK   Range
	DEF   Range
	Level Range
}

// Params builds the cardinfo.php query string
func (q Query) Params() map[string]string {
	params := map[string]string{"fname": q.Text}
	if q.Mode != "" && q.Mode != "name" {
		for _, m := range SearchModes {
			if q.Mode == m {
				params[m] = q.Text
				break
			}
		}
	}
	for key, r := range map[string]Range{"atk": q.ATK, "def": q.DEF, "level": q.Level} {
		if _, taken := params[key]; taken {
			continue
		}
		if v, ok := r.param(); ok {
			params[key] = v
		}
	}
	return params
}

// Matches applies every stat bound to a card
func (q Query) Matches(c Card) bool {
	return q.ATK.contains(c.ATK) && q.DEF.contains(c.DEF) && q.Level.contains(c.Level)
}

type cardResponse struct {
	Data []Card `json:"data"`
}

type apiError struct {
	Error string `json:"error"`
}

// Client talks to the YGOPRODeck API
type Client struct {
	http *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "KasutamaizaBot/1.0")
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() >= http.StatusInternalServerError
	})
	return &Client{http: client}
}

// Search runs q against cardinfo.php and returns the matching cards
func (c *Client) Search(ctx context.Context, q Query) ([]Card, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(q.Params()).
		SetResult(&cardResponse{}).
		SetError(&apiError{}).
		Get("/cardinfo.php")
	if err != nil {
		return nil, fmt.Errorf("card api request: %w", err)
	}
	if resp.IsError() {
		// the API answers 400 with an error message when nothing matches
		if resp.StatusCode() == http.StatusBadRequest {
			return nil, ErrNoCards
		}
		msg := resp.Status()
		if apiErr, ok := resp.Error().(*apiError); ok && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return nil, fmt.Errorf("card api: %s", msg)
	}

	data := resp.Result().(*cardResponse).Data
	cards := data[:0]
	for _, card := range data {
		if q.Matches(card) {
			cards = append(cards, card)
		}
	}
	if len(cards) == 0 {
		return nil, ErrNoCards
	}
	return cards, nil
}
