package utils

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Discord embed limits
const (
	EmbedFieldValueLimit = 1024
	EmbedFieldLimit      = 25
	MessageLimit         = 2000
)

// FormatUptime renders d as "H:MM:SS", prefixed with the day count when d spans days
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	days := total / 86400
	h := (total % 86400) / 3600
	m := (total % 3600) / 60
	s := total % 60

	clock := fmt.Sprintf("%d:%02d:%02d", h, m, s)
	switch {
	case days == 1:
		return "1 day, " + clock
	case days > 1:
		return fmt.Sprintf("%d days, %s", days, clock)
	}
	return clock
}

// TruncateString shortens text to limit runes, ending with suffix when cut
func TruncateString(text string, limit int, suffix string) string {
	if text == "" {
		return suffix
	}
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	keep := limit - len([]rune(suffix))
	if keep < 0 {
		keep = 0
	}
	return string(r[:keep]) + suffix
}

// SplitLongString splits text into chunks of at most limit runes
func SplitLongString(text string, limit int) []string {
	if text == "" || limit <= 0 {
		return nil
	}
	r := []rune(text)
	var out []string
	for i := 0; i < len(r); i += limit {
		end := min(i+limit, len(r))
		out = append(out, string(r[i:end]))
	}
	return out
}

// ChunkFields groups embed fields into pages of at most size fields
func ChunkFields(fields []*discordgo.MessageEmbedField, size int) [][]*discordgo.MessageEmbedField {
	if size <= 0 {
		size = EmbedFieldLimit
	}
	var pages [][]*discordgo.MessageEmbedField
	for i := 0; i < len(fields); i += size {
		pages = append(pages, fields[i:min(i+size, len(fields))])
	}
	return pages
}

func ValidateNumberRange(value, lo, hi int) bool {
	return value >= lo && value <= hi
}
