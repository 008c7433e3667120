package core

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/small-frappuccino/arctur/pkg/theme"
)

func TestParseHexColor(t *testing.T) {
	cases := map[string]int{
		"#FF0000": 0xFF0000,
		"#5865f2": 0x5865F2,
		"#abc":    0xAABBCC,
		" #000 ":  0,
	}
	for in, want := range cases {
		got, err := ParseHexColor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"FF0000", "#12", "#GGGGGG", "#12345", ""} {
		_, err := ParseHexColor(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatHexColor(t *testing.T) {
	assert.Equal(t, "#5865F2", FormatHexColor(0x5865F2))
	assert.Equal(t, "#000001", FormatHexColor(1))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "abcdefg...", TruncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))
	assert.Equal(t, "ééé...", TruncateString("éééééééé", 6), "counts runes, not bytes")
}

func TestEmbedBuilderLimits(t *testing.T) {
	long := strings.Repeat("x", MaxEmbedDescription+50)
	embed := NewEmbed().
		Title(strings.Repeat("t", 300)).
		Description(long).
		Field(strings.Repeat("n", 300), strings.Repeat("v", 2000), true).
		Footer("footer", "").
		Thumbnail("").
		Image("https://example.com/a.png").
		Build()

	assert.Len(t, []rune(embed.Title), MaxEmbedTitle)
	assert.Len(t, []rune(embed.Description), MaxEmbedDescription)
	require.Len(t, embed.Fields, 1)
	assert.Len(t, []rune(embed.Fields[0].Name), MaxEmbedFieldName)
	assert.Len(t, []rune(embed.Fields[0].Value), MaxEmbedFieldValue)
	assert.Nil(t, embed.Thumbnail)
	require.NotNil(t, embed.Image)
	assert.Equal(t, "footer", embed.Footer.Text)
}

func TestEmbedBuilderHexColorFallback(t *testing.T) {
	assert.Equal(t, 0x00FF00, NewEmbed().HexColor("#00FF00", 1).Build().Color)
	assert.Equal(t, 1, NewEmbed().HexColor("green", 1).Build().Color)
}

func TestPresetEmbeds(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	prev := now
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = prev })

	success := SuccessEmbed("Saved", "done")
	assert.Equal(t, "✅ Saved", success.Title)
	assert.Equal(t, theme.Success(), success.Color)
	assert.Equal(t, "2024-01-02T03:04:05Z", success.Timestamp)

	failure := ErrorEmbed("Nope", "broken")
	assert.Equal(t, "❌ Nope", failure.Title)
	assert.Equal(t, theme.Error(), failure.Color)

	warning := WarningEmbed("Careful", "")
	assert.Equal(t, "⚠️ Careful", warning.Title)
	assert.Equal(t, theme.Warning(), warning.Color)

	info := InfoEmbed("Info", "text")
	assert.Equal(t, theme.Info(), info.Color)
	assert.Empty(t, info.Timestamp)
}
