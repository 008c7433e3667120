package moderation

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/arctur/pkg/discord/commands/core"
	"github.com/small-frappuccino/arctur/pkg/settings"
	"github.com/small-frappuccino/arctur/pkg/theme"
)

const moderationGuideURL = "https://support.discord.com/hc/en-us/articles/4421269296535-Moderation-Settings-Overview"

// sendModerationLog posts embed to the guild's mod-log channel when one is configured.
// Failures are logged; the action itself already succeeded.
func sendModerationLog(ctx *core.Context, embed *discordgo.MessageEmbed) {
	logger := ctx.Logger.WithField("component", "modlog")

	setting, err := ctx.Settings.Get(ctx.Context(), ctx.GuildID, settings.GuildConfig.Name)
	if err != nil {
		logger.WithError(err).Debug("Mod log lookup failed")
		return
	}
	channelID := setting.Get(settings.ConfigModLogChannel)
	if channelID == "" {
		return
	}

	if _, err := ctx.Session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx.Context())); err != nil {
		entry := logger.WithError(err).WithField("channelID", channelID)
		if core.IsUnknownResource(err) {
			entry.Warn("Mod log channel no longer exists")
			return
		}
		entry.Error("Failed to send moderation log")
	}
}

// /mod setlog

type setLogCommand struct{}

func newSetLogCommand() *setLogCommand { return &setLogCommand{} }

func (c *setLogCommand) Name() string { return "setlog" }

func (c *setLogCommand) Description() string { return "Set the channel that receives moderation logs" }

func (c *setLogCommand) Options() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         optChannel,
			Description:  "Channel for moderation logs",
			Required:     true,
			ChannelTypes: core.TextChannelTypes,
		},
	}
}

func (c *setLogCommand) RequiredPermissions() int64 { return discordgo.PermissionManageGuild }

func (c *setLogCommand) Handle(ctx *core.Context) error {
	channelID := ctx.Options().ID(optChannel)
	if channelID == "" {
		return core.NewValidationError(optChannel, "Option 'channel' is required")
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

	if _, err := ctx.Settings.Upsert(ctx.Context(), ctx.GuildID, settings.GuildConfig.Name, settings.Payload{
		settings.ConfigModLogChannel: ch.ID,
	}); err != nil {
		return err
	}
	ctx.Logger.WithField("channelID", ch.ID).Info("Mod log channel set")
	return ctx.Respond().Success("Mod Log Set", fmt.Sprintf("Moderation actions will be logged to <#%s>.", ch.ID))
}

// /mod help

type helpCommand struct{}

func newHelpCommand() *helpCommand { return &helpCommand{} }

func (c *helpCommand) Name() string { return "help" }

func (c *helpCommand) Description() string { return "Show moderation guide and commands" }

func (c *helpCommand) Options() []*discordgo.ApplicationCommandOption { return nil }

func (c *helpCommand) RequiredPermissions() int64 { return 0 }

func (c *helpCommand) Handle(ctx *core.Context) error {
	return ctx.Respond().Reply(&discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{moderationGuide()},
		Components: []discordgo.MessageComponent{guideLinks()},
		Flags:      discordgo.MessageFlagsEphemeral,
	})
}

func moderationGuide() *discordgo.MessageEmbed {
	return core.NewEmbed().
		Title("🔨 Moderation Guide & Commands").
		Description("Welcome to the moderation system! Here's everything you need to know.").
		Color(theme.ModHelp()).
		Field("📋 Moderator Responsibilities",
			"• Enforce server rules consistently\n• Be fair and impartial\n• Document all actions\n"+
				"• Maintain professionalism\n• Protect server members\n"+
				"• Use appropriate force (warn → mute → kick → ban)", false).
		Field("⚖️ Moderation Escalation",
			"```\n1. Warning → Verbal/chat warning\n2. Mute → Temporary timeout\n"+
				"3. Kick → Remove from server (can rejoin)\n4. Ban → Permanent removal\n```", false).
		Field("🔧 Available Commands",
			"```\n/mod ban <user> [reason] [delete_days]\n/mod kick <user> [reason]\n"+
				"/mod warn <user> <reason>\n/mod mute <user> <duration> [reason]\n"+
				"/mod purge <amount> [user]\n/mod setlog <channel>\n/mod help\n```", false).
		Field("📝 Command Guidelines",
			"• **Always provide a reason** for actions\n• **Use the least severe action** necessary\n"+
				"• **Check user history** before taking action\n• **Document everything** in mod log\n"+
				"• **Never abuse your powers**\n• **Keep actions private** (use ephemeral when needed)", false).
		Field("🛡️ Required Permissions",
			"• Ban Members\n• Kick Members\n• Moderate Members\n• Manage Messages\n"+
				"• View Audit Log\n• Send Messages\n• Embed Links", false).
		Field("📊 Setting Up Mod Logs",
			"Use `/mod setlog #channel` to set up a channel where all moderation actions will be logged automatically.", false).
		Timestamp(now()).
		Footer("Moderation System • Use powers responsibly", "").
		Build()
}

func guideLinks() discordgo.ActionsRow {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{
			Label: "Discord Moderation",
			Style: discordgo.LinkButton,
			URL:   moderationGuideURL,
		},
	}}
}
