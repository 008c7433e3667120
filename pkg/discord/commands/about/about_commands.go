// Package about implements /about, the owner-managed server description.
package about

import (
	"errors"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/arctur/pkg/discord/commands/core"
	"github.com/small-frappuccino/arctur/pkg/settings"
	"github.com/small-frappuccino/arctur/pkg/theme"
)

const (
	optDescription = "description"
	optThumbnail   = "thumbnail"
	optImage       = "image"
	optColor       = "color"

	summaryLimit = 100
)

// RegisterAboutCommands registers the /about group.
func RegisterAboutCommands(router *core.CommandRouter) error {
	group := core.NewGroupCommand("about", "📋 Manage and view server information", true, 0)
	group.AddSubCommand(&setCommand{}).
		AddSubCommand(&serverCommand{}).
		AddSubCommand(&editCommand{}).
		AddSubCommand(&clearCommand{})
	return router.RegisterCommand(group)
}

func requireOwner(ctx *core.Context) error {
	if !ctx.IsOwner() {
		return core.NewTitledError("Permission Denied", "Only the server owner can use this command.")
	}
	return nil
}

// userFacing rewrites store errors into the messages shown by /about.
func userFacing(err error, notFoundTitle, notFoundMessage string) error {
	if ve, ok := settings.AsValidationError(err); ok {
		switch ve.Field {
		case settings.AboutThumbnail:
			return core.NewTitledError("Invalid URL", "Please provide a valid thumbnail URL (must start with http:// or https://).")
		case settings.AboutImage:
			return core.NewTitledError("Invalid URL", "Please provide a valid image URL (must start with http:// or https://).")
		case settings.AboutColor:
			return core.NewTitledError("Invalid Color", "Please provide a valid hex color (e.g., #5865F2).")
		case settings.AboutText:
			return core.NewTitledError("Invalid Description", "The description "+ve.Message+".")
		}
		return err
	}
	switch {
	case errors.Is(err, settings.ErrAlreadyExists):
		return core.NewTitledError("Already Exists", "A description already exists. Use `/about edit` to modify it.")
	case errors.Is(err, settings.ErrNotFound):
		return core.NewTitledError(notFoundTitle, notFoundMessage)
	}
	return err
}

func descriptionOption(desc string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        optDescription,
		Description: desc,
		Required:    true,
		MaxLength:   1500,
	}
}

func mediaOptions(thumbDesc, imageDesc, colorDesc string) []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        optThumbnail,
			Description: thumbDesc,
			MaxLength:   500,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        optImage,
			Description: imageDesc,
			MaxLength:   500,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        optColor,
			Description: colorDesc,
			MaxLength:   7,
		},
	}
}

func summary(text string) string {
	if len([]rune(text)) > summaryLimit {
		return string([]rune(text)[:summaryLimit]) + "..."
	}
	return text
}

// /about server

type serverCommand struct{}

func (c *serverCommand) Name() string        { return "server" }
func (c *serverCommand) Description() string { return "View server description" }
func (c *serverCommand) Options() []*discordgo.ApplicationCommandOption {
	return nil
}
func (c *serverCommand) RequiredPermissions() int64 { return 0 }

func (c *serverCommand) Handle(ctx *core.Context) error {
	setting, err := ctx.Settings.Get(ctx.Context(), ctx.GuildID, settings.About.Name)
	if err != nil {
		return err
	}
	title := "📋 About " + ctx.GuildName()

	if setting == nil {
		embed := core.NewEmbed().
			Title(title).
			Description("*No description has been set for this server yet.*\n\nUse `/about set` to add a description.").
			Color(theme.AboutEmpty()).
			Footer("Server Information", "").
			Build()
		return ctx.Respond().ReplyEmbed(embed, false)
	}

	embed := core.NewEmbed().
		Title(title).
		Description(setting.Get(settings.AboutText)).
		HexColor(setting.Get(settings.AboutColor), theme.About()).
		Thumbnail(setting.Get(settings.AboutThumbnail)).
		Image(setting.Get(settings.AboutImage)).
		Footer("Server Description", "").
		Build()
	return ctx.Respond().ReplyEmbed(embed, false)
}

// /about set

type setCommand struct{}

func (c *setCommand) Name() string        { return "set" }
func (c *setCommand) Description() string { return "Set the server description" }
func (c *setCommand) Options() []*discordgo.ApplicationCommandOption {
	return append([]*discordgo.ApplicationCommandOption{descriptionOption("Description (max 1500 chars)")},
		mediaOptions(
			"Thumbnail URL (must be direct image link)",
			"Main Image URL (must be direct image link)",
			"Embed color in hex format (e.g., #5865F2)",
		)...)
}
func (c *setCommand) RequiredPermissions() int64 { return 0 }

func (c *setCommand) Handle(ctx *core.Context) error {
	if err := requireOwner(ctx); err != nil {
		return err
	}
	opts := ctx.Options()
	desc, err := opts.StringRequired(optDescription)
	if err != nil {
		return err
	}
	thumb, img, color := opts.String(optThumbnail), opts.String(optImage), opts.String(optColor)

	_, err = ctx.Settings.Set(ctx.Context(), ctx.GuildID, settings.About.Name, settings.Payload{
		settings.AboutText:      desc,
		settings.AboutThumbnail: thumb,
		settings.AboutImage:     img,
		settings.AboutColor:     color,
		settings.AboutAuthor:    ctx.UserID,
	})
	if err != nil {
		return userFacing(err, "Nothing to Edit", "No description found. Use `/about set` first.")
	}

	fields := []*discordgo.MessageEmbedField{{Name: "Description", Value: summary(desc)}}
	if thumb != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Thumbnail", Value: "✅ Added", Inline: true})
	}
	if img != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Image", Value: "✅ Added", Inline: true})
	}
	if color != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Color", Value: color, Inline: true})
	}
	return ctx.Respond().Success("Description Set", "Server description has been saved successfully.", fields...)
}

// /about edit

type editCommand struct{}

func (c *editCommand) Name() string        { return "edit" }
func (c *editCommand) Description() string { return "Edit server description" }
func (c *editCommand) Options() []*discordgo.ApplicationCommandOption {
	return append([]*discordgo.ApplicationCommandOption{descriptionOption("New description")},
		mediaOptions(
			`New thumbnail URL (type "clear" to remove, leave empty to keep)`,
			`New image URL (type "clear" to remove, leave empty to keep)`,
			`New embed color in hex format (type "clear" for default, leave empty to keep)`,
		)...)
}
func (c *editCommand) RequiredPermissions() int64 { return 0 }

func (c *editCommand) Handle(ctx *core.Context) error {
	if err := requireOwner(ctx); err != nil {
		return err
	}
	opts := ctx.Options()
	desc, err := opts.StringRequired(optDescription)
	if err != nil {
		return err
	}
	thumb, img, color := opts.String(optThumbnail), opts.String(optImage), opts.String(optColor)

	_, err = ctx.Settings.Edit(ctx.Context(), ctx.GuildID, settings.About.Name, settings.Payload{
		settings.AboutText:      desc,
		settings.AboutThumbnail: thumb,
		settings.AboutImage:     img,
		settings.AboutColor:     color,
	})
	if err != nil {
		return userFacing(err, "Nothing to Edit", "No description found. Use `/about set` first.")
	}

	fields := []*discordgo.MessageEmbedField{{Name: "Description", Value: summary(desc)}}
	if f := changeField("Thumbnail", thumb, "✅ Updated", "🗑️ Removed"); f != nil {
		fields = append(fields, f)
	}
	if f := changeField("Image", img, "✅ Updated", "🗑️ Removed"); f != nil {
		fields = append(fields, f)
	}
	if f := changeField("Color", color, color, "🎨 Reset to default"); f != nil {
		fields = append(fields, f)
	}
	return ctx.Respond().Success("Description Updated", "Server description has been updated.", fields...)
}

// changeField describes what an edit did to one optional field, or nil when it was kept.
func changeField(name, input, updated, removed string) *discordgo.MessageEmbedField {
	switch {
	case input == "":
		return nil
	case strings.EqualFold(input, settings.ClearValue):
		return &discordgo.MessageEmbedField{Name: name, Value: removed, Inline: true}
	default:
		return &discordgo.MessageEmbedField{Name: name, Value: updated, Inline: true}
	}
}

// /about clear

type clearCommand struct{}

func (c *clearCommand) Name() string        { return "clear" }
func (c *clearCommand) Description() string { return "Delete server description and all media" }
func (c *clearCommand) Options() []*discordgo.ApplicationCommandOption {
	return nil
}
func (c *clearCommand) RequiredPermissions() int64 { return 0 }

func (c *clearCommand) Handle(ctx *core.Context) error {
	if err := requireOwner(ctx); err != nil {
		return err
	}
	if err := ctx.Settings.Clear(ctx.Context(), ctx.GuildID, settings.About.Name); err != nil {
		return userFacing(err, "Nothing to Clear", "No description exists to clear.")
	}
	return ctx.Respond().Success("All Cleared", "Server description, thumbnail, image, and color have been completely removed.")
}
