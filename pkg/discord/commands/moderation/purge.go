package moderation

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/arctur/pkg/discord/commands/core"
	"github.com/small-frappuccino/arctur/pkg/theme"
)

// /mod purge

type purgeCommand struct{}

func newPurgeCommand() *purgeCommand { return &purgeCommand{} }

func (c *purgeCommand) Name() string { return "purge" }

func (c *purgeCommand) Description() string { return "Delete multiple messages" }

func (c *purgeCommand) Options() []*discordgo.ApplicationCommandOption {
	minAmount := 1.0
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        optAmount,
			Description: "Number of messages to delete (1-100)",
			Required:    true,
			MinValue:    &minAmount,
			MaxValue:    maxPurgeAmount,
		},
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        optUser,
			Description: "Only delete messages from this user",
		},
	}
}

func (c *purgeCommand) RequiredPermissions() int64 { return discordgo.PermissionManageMessages }

func (c *purgeCommand) Handle(ctx *core.Context) error {
	extractor := ctx.Options()
	amount := extractor.Int(optAmount, 0)
	if amount < 1 || amount > maxPurgeAmount {
		return core.NewValidationError(optAmount, fmt.Sprintf("Amount must be between 1 and %d.", maxPurgeAmount))
	}
	var filter *discordgo.User
	if extractor.HasOption(optUser) {
		filter = extractor.User(optUser)
	}

	ch, err := core.ResolveChannel(ctx.Session, ctx.ChannelID)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrDownstreamUnavailable, err)
	}
	if ch.Type != discordgo.ChannelTypeGuildText {
		return core.NewCommandError("This command can only be used in text channels.", true)
	}

	if err := ctx.Respond().Defer(true); err != nil {
		return err
	}

	recent, err := ctx.Session.ChannelMessages(ch.ID, maxPurgeAmount, "", "", "", discordgo.WithContext(ctx.Context()))
	if err != nil {
		ctx.Logger.WithError(err).Error("Failed to fetch messages for purge")
		return ctx.Respond().EditContent("Failed to delete messages. Note: Messages older than 14 days cannot be bulk deleted.")
	}

	ids := selectPurgeable(recent, filter, int(amount))
	if err := ctx.Session.ChannelMessagesBulkDelete(ch.ID, ids, discordgo.WithContext(ctx.Context())); err != nil {
		ctx.Logger.WithError(err).Error("Bulk delete failed")
		return ctx.Respond().EditContent("Failed to delete messages. Note: Messages older than 14 days cannot be bulk deleted.")
	}
	ctx.Logger.WithFields(map[string]any{"channelID": ch.ID, "deleted": len(ids)}).Info("Messages purged")

	filteredBy := "None (all messages)"
	if filter != nil {
		filteredBy = core.UserTag(filter)
		if filteredBy == "" {
			filteredBy = "<@" + filter.ID + ">"
		}
	}
	embed := core.NewEmbed().
		Title("Messages Purged").
		Description(fmt.Sprintf("Successfully deleted %d messages", len(ids))).
		Color(theme.ModPurge()).
		Field("Channel", "<#"+ch.ID+">", true).
		Field("Moderator", core.UserTag(ctx.User()), true).
		Field("Filtered By", filteredBy, true).
		Timestamp(now()).
		Footer("Messages older than 14 days cannot be bulk deleted", "").
		Build()

	if err := ctx.Respond().EditEmbed(embed); err != nil {
		return err
	}
	sendModerationLog(ctx, embed)
	return nil
}

// selectPurgeable picks up to amount message IDs, newest first, optionally
// only from filter's author. Messages past the bulk-delete age limit are skipped.
func selectPurgeable(messages []*discordgo.Message, filter *discordgo.User, amount int) []string {
	cutoff := now().Add(-bulkDeleteLimit)
	ids := make([]string, 0, amount)
	for _, m := range messages {
		if len(ids) == amount {
			break
		}
		if filter != nil && (m.Author == nil || m.Author.ID != filter.ID) {
			continue
		}
		if !m.Timestamp.IsZero() && m.Timestamp.Before(cutoff) {
			continue
		}
		ids = append(ids, m.ID)
	}
	return ids
}
