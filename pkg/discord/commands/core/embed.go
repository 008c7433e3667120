package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/arctur/pkg/theme"
)

// Discord embed limits.
const (
	MaxEmbedTitle       = 256
	MaxEmbedDescription = 4096
	MaxEmbedFieldName   = 256
	MaxEmbedFieldValue  = 1024
	MaxEmbedFooter      = 2048
)

var now = time.Now

// SuccessEmbed builds a success embed; the title gets a check mark prefix.
func SuccessEmbed(title, description string, fields ...*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return NewEmbed().
		Title("✅ " + title).
		Description(description).
		Color(theme.Success()).
		Fields(fields...).
		Timestamp(now()).
		Build()
}

// ErrorEmbed builds an error embed; the title gets a cross mark prefix.
func ErrorEmbed(title, description string) *discordgo.MessageEmbed {
	return NewEmbed().
		Title("❌ " + title).
		Description(description).
		Color(theme.Error()).
		Timestamp(now()).
		Build()
}

func WarningEmbed(title, description string) *discordgo.MessageEmbed {
	return NewEmbed().
		Title("⚠️ " + title).
		Description(description).
		Color(theme.Warning()).
		Timestamp(now()).
		Build()
}

func InfoEmbed(title, description string) *discordgo.MessageEmbed {
	return NewEmbed().
		Title(title).
		Description(description).
		Color(theme.Info()).
		Build()
}

// EmbedBuilder assembles a MessageEmbed, truncating text to Discord limits.
type EmbedBuilder struct {
	embed *discordgo.MessageEmbed
}

func NewEmbed() *EmbedBuilder {
	return &EmbedBuilder{embed: &discordgo.MessageEmbed{}}
}

func (b *EmbedBuilder) Title(title string) *EmbedBuilder {
	b.embed.Title = TruncateString(title, MaxEmbedTitle)
	return b
}

func (b *EmbedBuilder) Description(description string) *EmbedBuilder {
	b.embed.Description = TruncateString(description, MaxEmbedDescription)
	return b
}

func (b *EmbedBuilder) Color(color int) *EmbedBuilder {
	b.embed.Color = color
	return b
}

// HexColor sets the color from #RGB or #RRGGBB, falling back when s does not parse.
func (b *EmbedBuilder) HexColor(s string, fallback int) *EmbedBuilder {
	c, err := ParseHexColor(s)
	if err != nil {
		c = fallback
	}
	b.embed.Color = c
	return b
}

func (b *EmbedBuilder) Field(name, value string, inline bool) *EmbedBuilder {
	b.embed.Fields = append(b.embed.Fields, &discordgo.MessageEmbedField{
		Name:   TruncateString(name, MaxEmbedFieldName),
		Value:  TruncateString(value, MaxEmbedFieldValue),
		Inline: inline,
	})
	return b
}

func (b *EmbedBuilder) Fields(fields ...*discordgo.MessageEmbedField) *EmbedBuilder {
	for _, f := range fields {
		if f != nil {
			b.Field(f.Name, f.Value, f.Inline)
		}
	}
	return b
}

func (b *EmbedBuilder) Thumbnail(url string) *EmbedBuilder {
	if url != "" {
		b.embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: url}
	}
	return b
}

func (b *EmbedBuilder) Image(url string) *EmbedBuilder {
	if url != "" {
		b.embed.Image = &discordgo.MessageEmbedImage{URL: url}
	}
	return b
}

func (b *EmbedBuilder) Footer(text, iconURL string) *EmbedBuilder {
	if text != "" {
		b.embed.Footer = &discordgo.MessageEmbedFooter{Text: TruncateString(text, MaxEmbedFooter), IconURL: iconURL}
	}
	return b
}

func (b *EmbedBuilder) Author(name, iconURL string) *EmbedBuilder {
	if name != "" {
		b.embed.Author = &discordgo.MessageEmbedAuthor{Name: name, IconURL: iconURL}
	}
	return b
}

func (b *EmbedBuilder) Timestamp(t time.Time) *EmbedBuilder {
	b.embed.Timestamp = t.UTC().Format(time.RFC3339)
	return b
}

func (b *EmbedBuilder) Build() *discordgo.MessageEmbed {
	return b.embed
}

// ParseHexColor parses #RGB or #RRGGBB into an embed color.
func ParseHexColor(s string) (int, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		return 0, fmt.Errorf("hex color %q must start with #", s)
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, fmt.Errorf("hex color %q must have 3 or 6 digits", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("hex color %q: %w", s, err)
	}
	return int(v), nil
}

// FormatHexColor renders an embed color as #RRGGBB.
func FormatHexColor(c int) string {
	return fmt.Sprintf("#%06X", c&0xFFFFFF)
}

// TruncateString shortens s to maxLen runes, ending with "..." when cut.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
