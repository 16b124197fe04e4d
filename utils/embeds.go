package utils

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	ColorError   = 0xFF0000
	ColorSuccess = 0x00FF00
	ColorInfo    = 0x3498DB
	ColorWarn    = 0xFFA500
)

func ErrorEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: TruncateString(description, 4096, "..."),
		Color:       ColorError,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func InfoEmbed(title, description string, fields ...*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       ColorInfo,
		Fields:      fields,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

// Field builds an embed field, truncating the value to the platform limit
func Field(name, value string, inline bool) *discordgo.MessageEmbedField {
	if value == "" {
		value = "-"
	}
	return &discordgo.MessageEmbedField{
		Name:   name,
		Value:  TruncateString(value, EmbedFieldValueLimit, "..."),
		Inline: inline,
	}
}

// EmbedCharLimit is the combined text budget of one embed
const EmbedCharLimit = 6000

// PaginateEmbeds spreads fields over as many embeds as needed so that none exceeds
// the field count or the combined text budget. Pages after the first are numbered.
func PaginateEmbeds(title string, color int, fields []*discordgo.MessageEmbedField) []*discordgo.MessageEmbed {
	var pages [][]*discordgo.MessageEmbedField
	var current []*discordgo.MessageEmbedField
	used := len(title) + 16
	for _, f := range fields {
		size := len(f.Name) + len(f.Value)
		if len(current) == EmbedFieldLimit || (len(current) > 0 && used+size > EmbedCharLimit) {
			pages = append(pages, current)
			current, used = nil, len(title)+16
		}
		current = append(current, f)
		used += size
	}
	if len(current) > 0 || len(pages) == 0 {
		pages = append(pages, current)
	}

	embeds := make([]*discordgo.MessageEmbed, 0, len(pages))
	for n, page := range pages {
		t := title
		if len(pages) > 1 {
			t = fmt.Sprintf("%s (%d/%d)", title, n+1, len(pages))
		}
		embeds = append(embeds, &discordgo.MessageEmbed{
			Title:     t,
			Color:     color,
			Fields:    page,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
	return embeds
}
