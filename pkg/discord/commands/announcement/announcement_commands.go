// Package announcement implements /announcement: a per-guild announcement
// channel and a command that posts plain or embed announcements to it.
package announcement

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/arctur/pkg/discord/commands/core"
	"github.com/small-frappuccino/arctur/pkg/settings"
	"github.com/small-frappuccino/arctur/pkg/theme"
)

const (
	optChannel = "channel"
	optType    = "type"
	optMessage = "message"
	optMention = "mention"
	optTitle   = "title"
	optStyle   = "style"
	optImage   = "image"
	optRole    = "role"

	typeNormal = "normal"
	typeEmbed  = "embed"

	mentionNone     = "none"
	mentionEveryone = "everyone"
	mentionHere     = "here"
)

// RegisterAnnouncementCommands registers the /announcement group.
// Manage Roles is required; Administrator passes implicitly.
func RegisterAnnouncementCommands(router *core.CommandRouter) error {
	group := core.NewGroupCommand("announcement", "📢 Manage and send server announcements", true, discordgo.PermissionManageRoles)
	group.AddSubCommand(&channelCommand{}).
		AddSubCommand(&declareCommand{})
	return router.RegisterCommand(group)
}

// styleColor maps an embed style choice to a theme color; unknown styles use primary.
func styleColor(style string) int {
	switch style {
	case "success":
		return theme.Success()
	case "warning":
		return theme.Warning()
	case "danger":
		return theme.Error()
	}
	return theme.Primary()
}

// /announcement channel

type channelCommand struct{}

func (c *channelCommand) Name() string        { return "channel" }
func (c *channelCommand) Description() string { return "Set the announcement channel" }
func (c *channelCommand) Options() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         optChannel,
			Description:  "Channel for announcements",
			Required:     true,
			ChannelTypes: core.TextChannelTypes,
		},
	}
}
func (c *channelCommand) RequiredPermissions() int64 { return 0 }

func (c *channelCommand) Handle(ctx *core.Context) error {
	channelID := ctx.Options().ID(optChannel)
	if channelID == "" {
		return core.NewValidationError(optChannel, "Please choose a channel.")
	}
	ch, err := core.ResolveChannel(ctx.Session, channelID)
	if err != nil {
		if core.IsUnknownResource(err) {
			return core.NewTitledError("Invalid Channel", "That channel could not be found.")
		}
		return fmt.Errorf("%w: %w", core.ErrDownstreamUnavailable, err)
	}
	if !core.IsTextChannel(ch) {
		return core.NewTitledError("Invalid Channel", "Please select a text-based channel.")
	}
	if !ctx.BotCanSend(ch.ID) {
		return core.NewTitledError("Permission Issue", "I don't have permission to send messages in that channel.")
	}

	_, err = ctx.Settings.Upsert(ctx.Context(), ctx.GuildID, settings.Announcement.Name, settings.Payload{
		settings.AnnouncementChannel: ch.ID,
		settings.AnnouncementSetBy:   ctx.UserID,
	})
	if err != nil {
		return err
	}
	ctx.Logger.WithField("channelID", ch.ID).Info("Announcement channel set")
	return ctx.Respond().Success("Channel Set", fmt.Sprintf("Announcement channel has been set to <#%s>.", ch.ID))
}

// /announcement declare

type declareCommand struct{}

func (c *declareCommand) Name() string        { return "declare" }
func (c *declareCommand) Description() string { return "Send an announcement" }
func (c *declareCommand) Options() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        optType,
			Description: "Type of announcement",
			Required:    true,
			Choices: []*discordgo.ApplicationCommandOptionChoice{
				{Name: "📝 Normal Message", Value: typeNormal},
				{Name: "📋 Embed Message", Value: typeEmbed},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        optMessage,
			Description: "Announcement message",
			Required:    true,
			MaxLength:   4000,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        optMention,
			Description: "Role to mention",
			Required:    true,
			Choices: []*discordgo.ApplicationCommandOptionChoice{
				{Name: "No Mention", Value: mentionNone},
				{Name: "@everyone", Value: mentionEveryone},
				{Name: "@here", Value: mentionHere},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        optTitle,
			Description: "Title (for embed only)",
			MaxLength:   256,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        optStyle,
			Description: "Embed style (for embed only)",
			Choices: []*discordgo.ApplicationCommandOptionChoice{
				{Name: "🔵 Primary (Blue)", Value: "primary"},
				{Name: "🟢 Success (Green)", Value: "success"},
				{Name: "🟡 Warning (Yellow)", Value: "warning"},
				{Name: "🔴 Danger (Red)", Value: "danger"},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        optImage,
			Description: "Image URL (optional)",
		},
		{
			Type:        discordgo.ApplicationCommandOptionRole,
			Name:        optRole,
			Description: "Specific role to mention (overrides mention option)",
		},
	}
}
func (c *declareCommand) RequiredPermissions() int64 { return 0 }

// announcement is the validated input of one declare invocation.
type announcement struct {
	kind    string
	message string
	mention string
	roleID  string
	title   string
	style   string
	image   string
}

func (c *declareCommand) Handle(ctx *core.Context) error {
	channelID, err := announcementChannel(ctx)
	if err != nil {
		return err
	}
	if !ctx.BotCanSend(channelID) {
		return core.NewTitledError("Permission Issue", "I don't have permission to send messages in the announcement channel.")
	}

	opts := ctx.Options()
	a := announcement{
		kind:    opts.String(optType),
		message: opts.String(optMessage),
		mention: opts.String(optMention),
		roleID:  opts.ID(optRole),
		title:   opts.String(optTitle),
		style:   opts.String(optStyle),
		image:   opts.String(optImage),
	}
	if a.message == "" {
		return core.NewValidationError(optMessage, "Option 'message' is required")
	}
	if a.kind == typeEmbed && a.title == "" {
		return core.NewTitledError("Title Required", "Title is required for embed announcements.")
	}
	if a.image != "" && !settings.IsValidURL(a.image) {
		return core.NewTitledError("Invalid Image URL", "Please provide a valid image URL starting with http:// or https://")
	}

	if err := ctx.Respond().Defer(true); err != nil {
		return err
	}

	if _, err := ctx.Session.ChannelMessageSendComplex(channelID, a.toMessage(), discordgo.WithContext(ctx.Context())); err != nil {
		ctx.Logger.WithError(err).WithField("channelID", channelID).Error("Failed to send announcement")
		return ctx.Respond().EditEmbed(core.ErrorEmbed("Failed to Send",
			"Could not send the announcement. Please check my permissions in that channel."))
	}

	ctx.Logger.WithFields(map[string]any{"channelID": channelID, "type": a.kind}).Info("Announcement sent")
	title, desc := "Announcement Sent", fmt.Sprintf("Your announcement has been sent to <#%s>.", channelID)
	if a.kind == typeEmbed {
		title, desc = "Embed Announcement Sent", fmt.Sprintf("Your embed announcement has been sent to <#%s>.", channelID)
	}
	return ctx.Respond().EditEmbed(core.SuccessEmbed(title, desc))
}

// announcementChannel returns the configured channel ID. A channel Discord no
// longer knows is dropped from the store before "Channel Not Found" is reported.
func announcementChannel(ctx *core.Context) (string, error) {
	setting, err := ctx.Settings.Get(ctx.Context(), ctx.GuildID, settings.Announcement.Name)
	if err != nil {
		return "", err
	}
	if setting == nil {
		return "", core.NewTitledError("No Announcement Channel",
			"Please set an announcement channel first using `/announcement channel`.")
	}
	channelID := setting.Get(settings.AnnouncementChannel)

	_, err = core.ResolveChannel(ctx.Session, channelID)
	if err == nil {
		return channelID, nil
	}
	if !core.IsUnknownResource(err) {
		return "", fmt.Errorf("%w: %w", core.ErrDownstreamUnavailable, err)
	}

	logger := ctx.Logger.WithField("channelID", channelID)
	logger.Warn("Announcement channel no longer exists")
	if err := dropStaleChannel(ctx, channelID); err != nil {
		logger.WithError(err).Error("Failed to clear stale announcement channel")
	}
	return "", core.NewTitledError("Channel Not Found", "The announcement channel no longer exists. Please set a new one.")
}

// dropStaleChannel clears the record only if it still points at channelID
// after re-reading past the cache.
func dropStaleChannel(ctx *core.Context, channelID string) error {
	ctx.Settings.Invalidate(ctx.GuildID, settings.Announcement.Name)
	fresh, err := ctx.Settings.Get(ctx.Context(), ctx.GuildID, settings.Announcement.Name)
	if err != nil {
		return err
	}
	if fresh == nil || fresh.Get(settings.AnnouncementChannel) != channelID {
		return nil
	}
	err = ctx.Settings.Clear(ctx.Context(), ctx.GuildID, settings.Announcement.Name)
	if errors.Is(err, settings.ErrNotFound) {
		return nil
	}
	return err
}

// mentionText renders the ping prefix; a role wins over the mention choice.
func (a announcement) mentionText() string {
	if a.roleID != "" {
		return "<@&" + a.roleID + ">"
	}
	switch a.mention {
	case mentionEveryone:
		return "@everyone"
	case mentionHere:
		return "@here"
	}
	return ""
}

func (a announcement) allowedMentions() *discordgo.MessageAllowedMentions {
	switch {
	case a.roleID != "":
		return &discordgo.MessageAllowedMentions{Roles: []string{a.roleID}}
	case a.mention == mentionEveryone || a.mention == mentionHere:
		return &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeEveryone}}
	}
	return &discordgo.MessageAllowedMentions{}
}

// toMessage builds the channel message for the announcement.
func (a announcement) toMessage() *discordgo.MessageSend {
	mention := a.mentionText()
	msg := &discordgo.MessageSend{AllowedMentions: a.allowedMentions()}

	if a.kind != typeEmbed {
		if mention != "" {
			msg.Content = mention + "\n\n" + a.message
		} else {
			msg.Content = a.message
		}
		return msg
	}

	msg.Content = mention
	msg.Embeds = []*discordgo.MessageEmbed{
		core.NewEmbed().
			Title(a.title).
			Description(a.message).
			Color(styleColor(a.style)).
			Image(a.image).
			Build(),
	}
	return msg
}
