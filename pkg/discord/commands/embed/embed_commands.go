// Package embed implements /embed, which builds embeds from options or an
// interactive form and posts them to a channel.
package embed

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/arctur/pkg/discord/commands/core"
	"github.com/small-frappuccino/arctur/pkg/settings"
)

const (
	optChannel     = "channel"
	optTitle       = "title"
	optDescription = "description"
	optFooter      = "footer"
	optThumbnail   = "thumbnail"
	optImage       = "image"
	optColor       = "color"
	optMessage     = "message"

	DefaultFormTimeout   = 5 * time.Minute
	DefaultSelectTimeout = 60 * time.Second
)

// palette is used when the author leaves the color empty.
var palette = []int{
	0x5865F2, 0x57F287, 0xFEE75C, 0xEB459E, 0xED4245,
	0xF37F31, 0x9B59B6, 0x3498DB, 0x1ABC9C, 0xE91E63,
}

func randomColor() int {
	return palette[rand.IntN(len(palette))]
}

// Timeouts bounds the interactive form. Zero values use the defaults.
type Timeouts struct {
	Form   time.Duration
	Select time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Form <= 0 {
		t.Form = DefaultFormTimeout
	}
	if t.Select <= 0 {
		t.Select = DefaultSelectTimeout
	}
	return t
}

// RegisterEmbedCommands registers the /embed group. Manage Messages is required.
func RegisterEmbedCommands(router *core.CommandRouter, timeouts Timeouts) error {
	group := core.NewGroupCommand("embed", "📝 Create and send embed messages", true, discordgo.PermissionManageMessages)
	group.AddSubCommand(&createCommand{}).
		AddSubCommand(&simpleCommand{}).
		AddSubCommand(&formCommand{timeouts: timeouts.withDefaults()})
	return router.RegisterCommand(group)
}

// resolveTarget checks that channelID is a text channel the bot can post in.
func resolveTarget(ctx *core.Context, channelID string) (*discordgo.Channel, error) {
	if channelID == "" {
		return nil, core.NewValidationError(optChannel, "Option 'channel' is required")
	}
	ch, err := core.ResolveChannel(ctx.Session, channelID)
	if err != nil {
		if core.IsUnknownResource(err) {
			return nil, core.NewCommandError("Selected channel could not be found.", true)
		}
		return nil, fmt.Errorf("%w: %w", core.ErrDownstreamUnavailable, err)
	}
	if !core.IsTextChannel(ch) {
		return nil, core.NewCommandError("Selected channel must be a text-based channel.", true)
	}
	if !ctx.BotCanSend(ch.ID) {
		return nil, core.NewCommandError("I don't have permission to send messages in that channel.", true)
	}
	return ch, nil
}

// parseColor returns a random palette color for empty input.
func parseColor(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return randomColor(), nil
	}
	if !settings.IsValidHexColor(raw) {
		return 0, core.NewValidationError(optColor, "Invalid color format. Use hex format (e.g., #5865F2).")
	}
	return core.ParseHexColor(raw)
}

func sendEmbed(ctx *core.Context, channelID string, embed *discordgo.MessageEmbed) error {
	_, err := ctx.Session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx.Context()))
	if err != nil {
		ctx.Logger.WithError(err).WithField("channelID", channelID).Error("Failed to send embed")
	}
	return err
}

// /embed create

type createCommand struct{}

func (c *createCommand) Name() string        { return "create" }
func (c *createCommand) Description() string { return "Create embed using command options" }
func (c *createCommand) Options() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         optChannel,
			Description:  "Channel to send the embed",
			Required:     true,
			ChannelTypes: core.TextChannelTypes,
		},
		{Type: discordgo.ApplicationCommandOptionString, Name: optTitle, Description: "Embed title (supports markdown)", MaxLength: core.MaxEmbedTitle},
		{Type: discordgo.ApplicationCommandOptionString, Name: optDescription, Description: "Embed description (supports markdown)", MaxLength: 4000},
		{Type: discordgo.ApplicationCommandOptionString, Name: optFooter, Description: "Embed footer text", MaxLength: core.MaxEmbedFooter},
		{Type: discordgo.ApplicationCommandOptionString, Name: optThumbnail, Description: "Thumbnail image URL"},
		{Type: discordgo.ApplicationCommandOptionString, Name: optImage, Description: "Main image URL"},
		{Type: discordgo.ApplicationCommandOptionString, Name: optColor, Description: "Embed color in hex (e.g., #5865F2)", MaxLength: 7},
	}
}
func (c *createCommand) RequiredPermissions() int64 { return 0 }

func (c *createCommand) Handle(ctx *core.Context) error {
	opts := ctx.Options()
	title := opts.String(optTitle)
	description := opts.String(optDescription)
	thumbnail := opts.String(optThumbnail)
	image := opts.String(optImage)

	if title == "" && description == "" {
		return core.NewValidationError(optDescription, "You must provide at least a title or description.")
	}
	ch, err := resolveTarget(ctx, opts.ID(optChannel))
	if err != nil {
		return err
	}
	if thumbnail != "" && !settings.IsValidURL(thumbnail) {
		return core.NewValidationError(optThumbnail, "Invalid thumbnail URL provided.")
	}
	if image != "" && !settings.IsValidURL(image) {
		return core.NewValidationError(optImage, "Invalid image URL provided.")
	}
	color, err := parseColor(opts.String(optColor))
	if err != nil {
		return err
	}

	embed := core.NewEmbed().
		Title(title).
		Description(description).
		Footer(opts.String(optFooter), "").
		Thumbnail(thumbnail).
		Image(image).
		Color(color).
		Build()

	if err := ctx.Respond().Defer(true); err != nil {
		return err
	}
	if err := sendEmbed(ctx, ch.ID, embed); err != nil {
		return ctx.Respond().EditContent("❌ Failed to send embed. Please check my permissions.")
	}
	content := fmt.Sprintf("✅ Embed sent to <#%s>!", ch.ID)
	return ctx.Respond().Edit(&discordgo.WebhookEdit{
		Content: &content,
		Embeds:  &[]*discordgo.MessageEmbed{embed},
	})
}

// /embed simple

type simpleCommand struct{}

func (c *simpleCommand) Name() string        { return "simple" }
func (c *simpleCommand) Description() string { return "Send a simple embed" }
func (c *simpleCommand) Options() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         optChannel,
			Description:  "Channel to send the embed",
			Required:     true,
			ChannelTypes: core.TextChannelTypes,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        optMessage,
			Description: "Message content (supports markdown)",
			Required:    true,
			MaxLength:   4000,
		},
	}
}
func (c *simpleCommand) RequiredPermissions() int64 { return 0 }

func (c *simpleCommand) Handle(ctx *core.Context) error {
	opts := ctx.Options()
	message, err := opts.StringRequired(optMessage)
	if err != nil {
		return err
	}
	ch, err := resolveTarget(ctx, opts.ID(optChannel))
	if err != nil {
		return err
	}

	embed := core.NewEmbed().Description(message).Color(randomColor()).Build()

	if err := ctx.Respond().Defer(true); err != nil {
		return err
	}
	if err := sendEmbed(ctx, ch.ID, embed); err != nil {
		return ctx.Respond().EditContent("❌ Failed to send embed. Please check my permissions.")
	}
	return ctx.Respond().EditContent(fmt.Sprintf("✅ Simple embed sent to <#%s>!", ch.ID))
}
