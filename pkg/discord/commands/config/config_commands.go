package config

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/arctur/pkg/discord/commands/core"
	"github.com/small-frappuccino/arctur/pkg/settings"
	"github.com/small-frappuccino/arctur/pkg/theme"
)

// RegisterConfigCommands registers the /config group. Every subcommand requires Administrator.
func RegisterConfigCommands(router *core.CommandRouter) error {
	group := core.NewGroupCommand("config", "Configure bot settings for this server", true, discordgo.PermissionAdministrator)
	group.AddSubCommand(NewConfigSetSubCommand()).
		AddSubCommand(NewConfigViewSubCommand()).
		AddSubCommand(NewConfigResetSubCommand()).
		AddSubCommand(NewConfigListSubCommand())
	return router.RegisterCommand(group)
}

// configOption describes one key of the guild config domain.
type configOption struct {
	Key   string
	Label string
	Help  string
	// Mention formats a stored ID for display; nil shows the raw value.
	Mention func(id string) string
}

func channelMention(id string) string { return "<#" + id + ">" }
func roleMention(id string) string    { return "<@&" + id + ">" }

var configOptions = []configOption{
	{Key: settings.ConfigModLogChannel, Label: "📝 Mod Log Channel", Help: "Channel that receives moderation action logs", Mention: channelMention},
	{Key: settings.ConfigWelcomeChannel, Label: "👋 Welcome Channel", Help: "Channel for welcome messages", Mention: channelMention},
	{Key: settings.ConfigModRole, Label: "🛡️ Mod Role", Help: "Role treated as moderators", Mention: roleMention},
	{Key: settings.ConfigAdminRole, Label: "👑 Admin Role", Help: "Role treated as administrators", Mention: roleMention},
	{Key: settings.ConfigEmbedColor, Label: "🎨 Embed Color", Help: "Hex color used for bot embeds (e.g. #5865F2)"},
}

func lookupOption(key string) (configOption, bool) {
	for _, opt := range configOptions {
		if opt.Key == key {
			return opt, true
		}
	}
	return configOption{}, false
}

var mentionPattern = regexp.MustCompile(`^<#(\d+)>$|^<@&(\d+)>$`)

// normalizeValue turns channel and role mentions into bare IDs.
func normalizeValue(value string) string {
	m := mentionPattern.FindStringSubmatch(value)
	if m == nil {
		return value
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

// ConfigSetSubCommand stores one configuration value.
type ConfigSetSubCommand struct{}

func NewConfigSetSubCommand() *ConfigSetSubCommand { return &ConfigSetSubCommand{} }

func (c *ConfigSetSubCommand) Name() string        { return "set" }
func (c *ConfigSetSubCommand) Description() string { return "Set a configuration option" }
func (c *ConfigSetSubCommand) Options() []*discordgo.ApplicationCommandOption {
	choices := []*discordgo.ApplicationCommandOptionChoice{
		{Name: "Mod Log Channel", Value: settings.ConfigModLogChannel},
		{Name: "Welcome Channel", Value: settings.ConfigWelcomeChannel},
		{Name: "Mod Role", Value: settings.ConfigModRole},
		{Name: "Admin Role", Value: settings.ConfigAdminRole},
		{Name: "Embed Color", Value: settings.ConfigEmbedColor},
	}
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "option",
			Description: "Option to set",
			Required:    true,
			Choices:     choices,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "value",
			Description: "Value to set",
			Required:    true,
		},
	}
}
func (c *ConfigSetSubCommand) RequiredPermissions() int64 { return 0 }

func (c *ConfigSetSubCommand) Handle(ctx *core.Context) error {
	extractor := ctx.Options()

	key, err := extractor.StringRequired("option")
	if err != nil {
		return err
	}
	value, err := extractor.StringRequired("value")
	if err != nil {
		return err
	}
	opt, ok := lookupOption(key)
	if !ok {
		return core.NewValidationError("option", "Invalid configuration option")
	}

	stored := normalizeValue(value)
	_, err = ctx.Settings.Upsert(ctx.Context(), ctx.GuildID, settings.GuildConfig.Name, settings.Payload{key: stored})
	if ve, ok := settings.AsValidationError(err); ok {
		ctx.Logger.WithFields(map[string]any{"option": key, "reason": ve.Message}).Debug("Rejected config value")
		return core.NewTitledError("Invalid Value", invalidValueMessage(opt))
	}
	if err != nil {
		return err
	}

	embed := core.NewEmbed().
		Title("✅ Configuration Updated").
		Description(fmt.Sprintf("**%s** set to: `%s`", key, value)).
		Color(theme.Success()).
		Footer("Server: "+ctx.GuildName(), "").
		Build()
	return ctx.Respond().ReplyEmbed(embed, true)
}

func invalidValueMessage(opt configOption) string {
	if opt.Key == settings.ConfigEmbedColor {
		return "Please provide a valid hex color (e.g., #5865F2)."
	}
	if opt.Mention == nil {
		return "That value is not valid for this option."
	}
	return fmt.Sprintf("Please provide an ID or mention for **%s**.", opt.Key)
}

// ConfigViewSubCommand shows the stored configuration.
type ConfigViewSubCommand struct{}

func NewConfigViewSubCommand() *ConfigViewSubCommand { return &ConfigViewSubCommand{} }

func (c *ConfigViewSubCommand) Name() string        { return "view" }
func (c *ConfigViewSubCommand) Description() string { return "View current configuration" }
func (c *ConfigViewSubCommand) Options() []*discordgo.ApplicationCommandOption {
	return nil
}
func (c *ConfigViewSubCommand) RequiredPermissions() int64 { return 0 }

func (c *ConfigViewSubCommand) Handle(ctx *core.Context) error {
	setting, err := ctx.Settings.Get(ctx.Context(), ctx.GuildID, settings.GuildConfig.Name)
	if err != nil {
		return err
	}

	builder := core.NewEmbed().
		Title("📋 Server Configuration").
		Description(fmt.Sprintf("Configuration for **%s**", ctx.GuildName())).
		Color(theme.ConfigView()).
		Footer("Use /config set to modify settings", "")
	for _, opt := range configOptions {
		builder.Field(opt.Label, displayValue(opt, setting.Get(opt.Key)), true)
	}
	return ctx.Respond().ReplyEmbed(builder.Build(), true)
}

func displayValue(opt configOption, value string) string {
	switch {
	case value == "" && opt.Key == settings.ConfigEmbedColor:
		return core.FormatHexColor(theme.ConfigView()) + " (Default)"
	case value == "":
		return "Not set"
	case opt.Mention != nil:
		return opt.Mention(value)
	}
	return value
}

// ConfigResetSubCommand deletes the guild's configuration.
type ConfigResetSubCommand struct{}

func NewConfigResetSubCommand() *ConfigResetSubCommand { return &ConfigResetSubCommand{} }

func (c *ConfigResetSubCommand) Name() string        { return "reset" }
func (c *ConfigResetSubCommand) Description() string { return "Reset configuration to defaults" }
func (c *ConfigResetSubCommand) Options() []*discordgo.ApplicationCommandOption {
	return nil
}
func (c *ConfigResetSubCommand) RequiredPermissions() int64 { return 0 }

func (c *ConfigResetSubCommand) Handle(ctx *core.Context) error {
	err := ctx.Settings.Clear(ctx.Context(), ctx.GuildID, settings.GuildConfig.Name)
	if err != nil && !errors.Is(err, settings.ErrNotFound) {
		return err
	}

	embed := core.NewEmbed().
		Title("🔄 Configuration Reset").
		Description("All server settings have been reset to defaults.").
		Color(theme.Warning()).
		Footer("Server: "+ctx.GuildName(), "").
		Build()
	return ctx.Respond().ReplyEmbed(embed, true)
}

// ConfigListSubCommand lists the available configuration options.
type ConfigListSubCommand struct{}

func NewConfigListSubCommand() *ConfigListSubCommand { return &ConfigListSubCommand{} }

func (c *ConfigListSubCommand) Name() string { return "list" }
func (c *ConfigListSubCommand) Description() string {
	return "List all available configuration options"
}
func (c *ConfigListSubCommand) Options() []*discordgo.ApplicationCommandOption {
	return nil
}
func (c *ConfigListSubCommand) RequiredPermissions() int64 { return 0 }

func (c *ConfigListSubCommand) Handle(ctx *core.Context) error {
	builder := core.NewEmbed().
		Title("Configuration Options").
		Color(theme.Info()).
		Footer("Use /config set <option> <value> to modify these settings.", "")
	for _, opt := range configOptions {
		builder.Field("`"+opt.Key+"`", opt.Help, false)
	}
	return ctx.Respond().ReplyEmbed(builder.Build(), true)
}
