package moderation

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/arctur/pkg/discord/commands/core"
	"github.com/small-frappuccino/arctur/pkg/theme"
)

const (
	optUser       = "user"
	optReason     = "reason"
	optDeleteDays = "delete_days"
	optDuration   = "duration"
	optAmount     = "amount"
	optChannel    = "channel"

	defaultReason = "No reason provided"

	maxDeleteDays   = 7
	maxMuteMinutes  = 40320
	maxPurgeAmount  = 100
	bulkDeleteLimit = 14 * 24 * time.Hour
)

var now = time.Now

// RegisterModerationCommands registers slash commands under the /mod group.
// Moderate Members is the baseline; destructive actions add their own permission.
func RegisterModerationCommands(router *core.CommandRouter) error {
	moderationGroup := core.NewGroupCommand("mod", "Moderation commands", true, discordgo.PermissionModerateMembers)

	moderationGroup.AddSubCommand(newBanCommand()).
		AddSubCommand(newKickCommand()).
		AddSubCommand(newWarnCommand()).
		AddSubCommand(newMuteCommand()).
		AddSubCommand(newPurgeCommand()).
		AddSubCommand(newSetLogCommand()).
		AddSubCommand(newHelpCommand())

	return router.RegisterCommand(moderationGroup)
}

func userOption(desc string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        optUser,
		Description: desc,
		Required:    true,
	}
}

func reasonOption(desc string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        optReason,
		Description: desc,
		Required:    required,
		MaxLength:   512,
	}
}

func reasonOrDefault(extractor *core.OptionExtractor) string {
	if reason := extractor.String(optReason); reason != "" {
		return reason
	}
	return defaultReason
}

// auditReason is what Discord records in the audit log for an action.
func auditReason(ctx *core.Context, reason string) string {
	return core.UserTag(ctx.User()) + ": " + reason
}

// resolveTarget returns the member named by the user option after checking
// that the action may be applied to them. verb completes "You cannot ... yourself!".
func resolveTarget(ctx *core.Context, verb string) (*discordgo.Member, error) {
	extractor := ctx.Options()
	targetID := extractor.ID(optUser)
	if targetID == "" {
		return nil, core.NewValidationError(optUser, "Option 'user' is required")
	}

	member := extractor.Member(optUser)
	if member == nil {
		m, err := core.ResolveMember(ctx.Session, ctx.GuildID, targetID)
		if err != nil {
			if core.IsUnknownResource(err) {
				return nil, core.NewCommandError("User not found in this server.", true)
			}
			return nil, fmt.Errorf("%w: %w", core.ErrDownstreamUnavailable, err)
		}
		member = m
	}
	if member.User == nil {
		member.User = extractor.User(optUser)
	}

	switch {
	case targetID == ctx.UserID:
		return nil, core.NewCommandError(fmt.Sprintf("You cannot %s yourself!", verb), true)
	case ctx.Session.State != nil && ctx.Session.State.User != nil && targetID == ctx.Session.State.User.ID:
		return nil, core.NewCommandError(fmt.Sprintf("I cannot %s myself.", verb), true)
	case ctx.IsGuildOwner(targetID):
		return nil, core.NewCommandError(fmt.Sprintf("I cannot %s this user. They may have higher permissions.", verb), true)
	}
	return member, nil
}

// moderationLogPayload describes a completed action. The same embed is shown
// to the moderator and mirrored to the mod-log channel.
type moderationLogPayload struct {
	Title       string
	Description string
	Color       int
	Target      *discordgo.User
	Moderator   *discordgo.User
	Reason      string
	Extra       []*discordgo.MessageEmbedField
}

func (p moderationLogPayload) embed() *discordgo.MessageEmbed {
	b := core.NewEmbed().
		Title(p.Title).
		Description(p.Description).
		Color(p.Color)
	if p.Target != nil {
		b.Field("User", fmt.Sprintf("%s (%s)", core.UserTag(p.Target), p.Target.ID), true)
	}
	b.Field("Moderator", core.UserTag(p.Moderator), true)
	if p.Reason != "" {
		b.Field("Reason", p.Reason, false)
	}
	return b.Fields(p.Extra...).
		Timestamp(now()).
		Footer("Moderation Action", "").
		Build()
}

// completeAction replies publicly with the action embed and mirrors it to the mod log.
func completeAction(ctx *core.Context, payload moderationLogPayload) error {
	embed := payload.embed()
	err := ctx.Respond().ReplyEmbed(embed, false)
	sendModerationLog(ctx, embed)
	return err
}

// /mod ban

type banCommand struct{}

func newBanCommand() *banCommand { return &banCommand{} }

func (c *banCommand) Name() string { return "ban" }

func (c *banCommand) Description() string { return "Ban a user from the server" }

func (c *banCommand) Options() []*discordgo.ApplicationCommandOption {
	minDays := 0.0
	return []*discordgo.ApplicationCommandOption{
		userOption("The user to ban"),
		reasonOption("Reason for the ban", false),
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        optDeleteDays,
			Description: "Delete messages from last X days (0-7)",
			MinValue:    &minDays,
			MaxValue:    maxDeleteDays,
		},
	}
}

func (c *banCommand) RequiredPermissions() int64 { return discordgo.PermissionBanMembers }

func (c *banCommand) Handle(ctx *core.Context) error {
	extractor := ctx.Options()
	days := extractor.Int(optDeleteDays, 0)
	if days < 0 || days > maxDeleteDays {
		return core.NewValidationError(optDeleteDays, fmt.Sprintf("delete_days must be between 0 and %d.", maxDeleteDays))
	}
	reason := reasonOrDefault(extractor)

	target, err := resolveTarget(ctx, "ban")
	if err != nil {
		return err
	}

	if err := ctx.Session.GuildBanCreateWithReason(ctx.GuildID, target.User.ID, auditReason(ctx, reason), int(days), discordgo.WithContext(ctx.Context())); err != nil {
		ctx.Logger.WithError(err).WithField("targetID", target.User.ID).Error("Ban failed")
		return core.NewCommandError("Failed to ban user. Please check my permissions.", true)
	}
	ctx.Logger.WithField("targetID", target.User.ID).Info("User banned")

	return completeAction(ctx, moderationLogPayload{
		Title:       "User Banned",
		Description: core.UserTag(target.User) + " has been banned from the server",
		Color:       theme.ModBan(),
		Target:      target.User,
		Moderator:   ctx.User(),
		Reason:      reason,
		Extra: []*discordgo.MessageEmbedField{
			{Name: "Messages Deleted", Value: strconv.FormatInt(days, 10) + " days", Inline: true},
		},
	})
}

// /mod kick

type kickCommand struct{}

func newKickCommand() *kickCommand { return &kickCommand{} }

func (c *kickCommand) Name() string { return "kick" }

func (c *kickCommand) Description() string { return "Kick a user from the server" }

func (c *kickCommand) Options() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		userOption("The user to kick"),
		reasonOption("Reason for the kick", false),
	}
}

func (c *kickCommand) RequiredPermissions() int64 { return discordgo.PermissionKickMembers }

func (c *kickCommand) Handle(ctx *core.Context) error {
	reason := reasonOrDefault(ctx.Options())

	target, err := resolveTarget(ctx, "kick")
	if err != nil {
		return err
	}

	if err := ctx.Session.GuildMemberDeleteWithReason(ctx.GuildID, target.User.ID, auditReason(ctx, reason), discordgo.WithContext(ctx.Context())); err != nil {
		ctx.Logger.WithError(err).WithField("targetID", target.User.ID).Error("Kick failed")
		return core.NewCommandError("Failed to kick user. Please check my permissions.", true)
	}
	ctx.Logger.WithField("targetID", target.User.ID).Info("User kicked")

	return completeAction(ctx, moderationLogPayload{
		Title:       "User Kicked",
		Description: core.UserTag(target.User) + " has been kicked from the server",
		Color:       theme.ModKick(),
		Target:      target.User,
		Moderator:   ctx.User(),
		Reason:      reason,
	})
}

// /mod warn

type warnCommand struct{}

func newWarnCommand() *warnCommand { return &warnCommand{} }

func (c *warnCommand) Name() string { return "warn" }

func (c *warnCommand) Description() string { return "Warn a user" }

func (c *warnCommand) Options() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		userOption("The user to warn"),
		reasonOption("Reason for the warning", true),
	}
}

func (c *warnCommand) RequiredPermissions() int64 { return 0 }

func (c *warnCommand) Handle(ctx *core.Context) error {
	reason, err := ctx.Options().StringRequired(optReason)
	if err != nil {
		return err
	}

	target, err := resolveTarget(ctx, "warn")
	if err != nil {
		return err
	}

	if err := completeAction(ctx, moderationLogPayload{
		Title:       "User Warned",
		Description: core.UserTag(target.User) + " has received a warning",
		Color:       theme.ModWarn(),
		Target:      target.User,
		Moderator:   ctx.User(),
		Reason:      reason,
	}); err != nil {
		return err
	}
	ctx.Logger.WithField("targetID", target.User.ID).Info("User warned")

	notifyWarned(ctx, target.User, reason)
	return nil
}

// notifyWarned DMs the warned user. Closed DMs are expected and only logged.
func notifyWarned(ctx *core.Context, user *discordgo.User, reason string) {
	logger := ctx.Logger.WithField("targetID", user.ID)

	dm, err := ctx.Session.UserChannelCreate(user.ID, discordgo.WithContext(ctx.Context()))
	if err != nil {
		logger.WithError(err).Info("Could not open DM for warning")
		return
	}
	embed := core.NewEmbed().
		Title("You have been warned").
		Description(fmt.Sprintf("You received a warning in **%s**", ctx.GuildName())).
		Color(theme.ModWarn()).
		Field("Reason", reason, false).
		Field("Moderator", core.UserTag(ctx.User()), true).
		Timestamp(now()).
		Footer("Please follow the server rules", "").
		Build()
	if _, err := ctx.Session.ChannelMessageSendEmbed(dm.ID, embed, discordgo.WithContext(ctx.Context())); err != nil {
		logger.WithError(err).Info("Could not DM warning")
	}
}

// /mod mute

type muteCommand struct{}

func newMuteCommand() *muteCommand { return &muteCommand{} }

func (c *muteCommand) Name() string { return "mute" }

func (c *muteCommand) Description() string { return "Mute a user (timeout)" }

func (c *muteCommand) Options() []*discordgo.ApplicationCommandOption {
	minMinutes := 1.0
	return []*discordgo.ApplicationCommandOption{
		userOption("The user to mute"),
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        optDuration,
			Description: "Duration in minutes",
			Required:    true,
			MinValue:    &minMinutes,
			MaxValue:    maxMuteMinutes,
		},
		reasonOption("Reason for the mute", false),
	}
}

func (c *muteCommand) RequiredPermissions() int64 { return 0 }

func (c *muteCommand) Handle(ctx *core.Context) error {
	extractor := ctx.Options()
	minutes := extractor.Int(optDuration, 0)
	if minutes < 1 || minutes > maxMuteMinutes {
		return core.NewValidationError(optDuration, fmt.Sprintf("Duration must be between 1 and %d minutes.", maxMuteMinutes))
	}
	reason := reasonOrDefault(extractor)

	target, err := resolveTarget(ctx, "mute")
	if err != nil {
		return err
	}

	until := now().Add(time.Duration(minutes) * time.Minute)
	if err := ctx.Session.GuildMemberTimeout(ctx.GuildID, target.User.ID, &until,
		discordgo.WithContext(ctx.Context()), discordgo.WithAuditLogReason(auditReason(ctx, reason))); err != nil {
		ctx.Logger.WithError(err).WithField("targetID", target.User.ID).Error("Timeout failed")
		return core.NewCommandError("Failed to mute user. Please check my permissions.", true)
	}
	ctx.Logger.WithFields(map[string]any{"targetID": target.User.ID, "minutes": minutes}).Info("User muted")

	return completeAction(ctx, moderationLogPayload{
		Title:       "User Muted",
		Description: core.UserTag(target.User) + " has been muted (timed out)",
		Color:       theme.ModMute(),
		Target:      target.User,
		Moderator:   ctx.User(),
		Reason:      reason,
		Extra: []*discordgo.MessageEmbedField{
			{Name: "Duration", Value: fmt.Sprintf("%d minutes", minutes), Inline: true},
			{Name: "Until", Value: fmt.Sprintf("<t:%d:R>", until.Unix()), Inline: true},
		},
	})
}
