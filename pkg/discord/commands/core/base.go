package core

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/small-frappuccino/arctur/pkg/log"
	"github.com/small-frappuccino/arctur/pkg/settings"
)

// ContextBuilder creates contexts for command execution
type ContextBuilder struct {
	session   *discordgo.Session
	settings  *settings.Store
	collector *Collector
	checker   *PermissionChecker
	baseCtx   context.Context
}

func NewContextBuilder(baseCtx context.Context, session *discordgo.Session, store *settings.Store, collector *Collector, checker *PermissionChecker) *ContextBuilder {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &ContextBuilder{
		baseCtx:   baseCtx,
		session:   session,
		settings:  store,
		collector: collector,
		checker:   checker,
	}
}

// BuildContext creates a complete context for command execution
func (cb *ContextBuilder) BuildContext(i *discordgo.InteractionCreate) *Context {
	ctx := &Context{
		Session:     cb.session,
		Interaction: i,
		Settings:    cb.settings,
		Collector:   cb.collector,
		GuildID:     i.GuildID,
		ChannelID:   i.ChannelID,
		UserID:      extractUserID(i),
		ctx:         cb.baseCtx,
		responder:   NewResponder(cb.session, i),
		checker:     cb.checker,
	}
	ctx.Logger = log.DiscordLogger().WithFields(CreateLogFields(ctx, nil))
	return ctx
}

// extractUserID extracts the user ID from the interaction
func extractUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	} else if i.User != nil {
		return i.User.ID
	}
	return ""
}

// GetSubCommandName extracts the subcommand name from the interaction
func GetSubCommandName(i *discordgo.InteractionCreate) string {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return ""
	}
	options := i.ApplicationCommandData().Options
	if len(options) > 0 && options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return options[0].Name
	}
	return ""
}

// GetSubCommandOptions extracts the subcommand options, or the direct options when there is no subcommand.
func GetSubCommandOptions(i *discordgo.InteractionCreate) []*discordgo.ApplicationCommandInteractionDataOption {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return nil
	}
	options := i.ApplicationCommandData().Options
	if len(options) > 0 && options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return options[0].Options
	}
	return options
}

// GetCommandPath returns the full command path (command + subcommand if present)
func GetCommandPath(i *discordgo.InteractionCreate) string {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return ""
	}
	path := i.ApplicationCommandData().Name
	if sub := GetSubCommandName(i); sub != "" {
		path += " " + sub
	}
	return path
}

func IsSlashCommandInteraction(i *discordgo.InteractionCreate) bool {
	return i.Type == discordgo.InteractionApplicationCommand
}

func IsCollectableInteraction(i *discordgo.InteractionCreate) bool {
	return i.Type == discordgo.InteractionMessageComponent || i.Type == discordgo.InteractionModalSubmit
}

// CreateLogFields creates standardized log fields
func CreateLogFields(ctx *Context, additionalFields logrus.Fields) logrus.Fields {
	fields := logrus.Fields{
		"command": GetCommandPath(ctx.Interaction),
		"guildID": ctx.GuildID,
		"userID":  ctx.UserID,
	}
	for k, v := range additionalFields {
		fields[k] = v
	}
	return fields
}
