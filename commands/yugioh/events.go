package yugioh

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const (
	maxEvents     = 10
	eventCacheTTL = 30 * time.Minute
)

type Link struct {
	Title string
	URL   string
}

// fallbackLinks are shown when the events page can't be scraped
var fallbackLinks = []Link{
	{Title: "Official Yu-Gi-Oh TCG Events", URL: "https://www.yugioh-card.com/uk/events/"},
	{Title: "DuelingBook Tournaments", URL: "https://www.duelingbook.com/tournaments"},
	{Title: "Online Yu-Gi-Oh Tournaments", URL: "https://yugioh-top-decks.com/tournaments"},
}

// EventScraper reads the event listing from the official events page and caches it
type EventScraper struct {
	page string
	http *resty.Client
	log  zerolog.Logger
	now  func() time.Time

	mu      sync.Mutex
	cached  []Link
	fetched time.Time
}

func NewEventScraper(page string, timeout time.Duration, logger zerolog.Logger) *EventScraper {
	return &EventScraper{
		page: page,
		http: resty.New().SetTimeout(timeout).SetHeader("User-Agent", "Mozilla/5.0 (compatible; KasutamaizaBot/1.0)"),
		log:  logger,
		now:  time.Now,
	}
}

// Links returns the scraped events, or the static links when scraping fails or finds
// nothing. The bool reports whether the result is live.
func (e *EventScraper) Links(ctx context.Context) ([]Link, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cached != nil && e.now().Sub(e.fetched) < eventCacheTTL {
		return e.cached, true
	}

	links, err := e.scrape(ctx)
	if err != nil {
		e.log.Warn().Err(err).Str("page", e.page).Msg("Failed to scrape tournament listing, using static links")
		return fallbackLinks, false
	}
	if len(links) == 0 {
		e.log.Info().Str("page", e.page).Msg("No events found on tournament listing, using static links")
		return fallbackLinks, false
	}

	e.cached, e.fetched = links, e.now()
	return links, true
}

func (e *EventScraper) scrape(ctx context.Context) ([]Link, error) {
	resp, err := e.http.R().SetContext(ctx).Get(e.page)
	if err != nil {
		return nil, fmt.Errorf("fetch events page: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch events page: %s", resp.Status())
	}

	base, err := url.Parse(e.page)
	if err != nil {
		return nil, fmt.Errorf("parse events page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse events page: %w", err)
	}
	return parseEvents(doc, base), nil
}

// parseEvents collects the title and link of every event card on the page
func parseEvents(doc *goquery.Document, base *url.URL) []Link {
	var links []Link
	seen := make(map[string]bool)
	doc.Find("article, .event, .event-item").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Find("a[href]").First().Attr("href")
		if !ok {
			return true
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		target := base.ResolveReference(ref).String()
		if seen[target] {
			return true
		}

		title := strings.TrimSpace(s.Find("h1, h2, h3, h4, .title").First().Text())
		if title == "" {
			title = strings.TrimSpace(s.Find("a[href]").First().Text())
		}
		if title == "" {
			return true
		}

		seen[target] = true
		links = append(links, Link{Title: strings.Join(strings.Fields(title), " "), URL: target})
		return len(links) < maxEvents
	})
	return links
}
