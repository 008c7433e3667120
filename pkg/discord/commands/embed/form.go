package embed

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/arctur/pkg/discord/commands/core"
	"github.com/small-frappuccino/arctur/pkg/settings"
)

const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldFooter      = "footer"
	fieldImage       = "image"
	fieldColor       = "color"
)

// /embed form

type formCommand struct {
	timeouts Timeouts
}

func (c *formCommand) Name() string        { return "form" }
func (c *formCommand) Description() string { return "Create embed using an interactive form" }
func (c *formCommand) Options() []*discordgo.ApplicationCommandOption {
	return nil
}
func (c *formCommand) RequiredPermissions() int64 { return 0 }

// Handle opens the form, waits for the submission, then asks for a target
// channel. Each step answers its own interaction.
func (c *formCommand) Handle(ctx *core.Context) error {
	formID := core.NewCustomID("embed_form")
	pending := ctx.Collector.Expect(formID, ctx.UserID)
	if err := ctx.Respond().Modal(formID, "Create Embed", formRows()...); err != nil {
		pending.Cancel()
		return err
	}

	submit, err := pending.Wait(ctx.Context(), c.timeouts.Form)
	if err != nil {
		if errors.Is(err, core.ErrCollectorTimeout) {
			ctx.Logger.Debug("Embed form timed out")
			return nil
		}
		return err
	}
	return c.handleSubmit(ctx, submit)
}

func (c *formCommand) handleSubmit(ctx *core.Context, submit *discordgo.InteractionCreate) error {
	modal := core.NewResponder(ctx.Session, submit)
	if err := modal.Defer(true); err != nil {
		return err
	}

	embed, problem := embedFromForm(submit.ModalSubmitData())
	if problem != "" {
		return modal.EditContent("❌ " + problem)
	}

	selectID := core.NewCustomID("embed_channel")
	pending := ctx.Collector.Expect(selectID, ctx.UserID)
	content := "✅ Embed created! Please select a channel to send it to:"
	if err := modal.Edit(&discordgo.WebhookEdit{
		Content:    &content,
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &[]discordgo.MessageComponent{channelSelect(selectID)},
	}); err != nil {
		pending.Cancel()
		return err
	}

	pick, err := pending.Wait(ctx.Context(), c.timeouts.Select)
	if err != nil {
		if errors.Is(err, core.ErrCollectorTimeout) {
			return modal.EditContent("⏰ Channel selection timed out.")
		}
		return err
	}
	return c.handlePick(ctx, modal, pick, embed)
}

func (c *formCommand) handlePick(ctx *core.Context, modal *core.Responder, pick *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	if err := core.NewResponder(ctx.Session, pick).DeferUpdate(); err != nil {
		ctx.Logger.WithError(err).Warn("Failed to acknowledge channel selection")
	}

	values := pick.MessageComponentData().Values
	if len(values) == 0 {
		return followUp(modal, "❌ Invalid channel selected!")
	}
	ch, err := core.ResolveChannel(ctx.Session, values[0])
	if err != nil || !core.IsTextChannel(ch) {
		return followUp(modal, "❌ Invalid channel selected!")
	}
	if !ctx.BotCanSend(ch.ID) {
		return followUp(modal, "❌ I don't have permission to send messages in that channel.")
	}

	if err := sendEmbed(ctx, ch.ID, embed); err != nil {
		return followUp(modal, "❌ Failed to send embed. Check bot permissions!")
	}
	return modal.EditContent(fmt.Sprintf("✅ Embed sent to <#%s>!", ch.ID))
}

func followUp(r *core.Responder, content string) error {
	return r.FollowUp(&discordgo.WebhookParams{Content: content, Flags: discordgo.MessageFlagsEphemeral})
}

// embedFromForm builds the embed from a form submission, or returns a message
// describing the first invalid field. An invalid image URL is dropped.
func embedFromForm(data discordgo.ModalSubmitInteractionData) (*discordgo.MessageEmbed, string) {
	description := strings.TrimSpace(core.ModalValue(data, fieldDescription))
	if description == "" {
		return nil, "Description is required!"
	}
	color, err := parseColor(core.ModalValue(data, fieldColor))
	if err != nil {
		return nil, "Invalid color format. Use hex format (e.g., #5865F2)."
	}

	b := core.NewEmbed().
		Title(core.ModalValue(data, fieldTitle)).
		Description(description).
		Footer(core.ModalValue(data, fieldFooter), "").
		Color(color)
	if image := strings.TrimSpace(core.ModalValue(data, fieldImage)); settings.IsValidURL(image) {
		b.Image(image)
	}
	return b.Build(), ""
}

func formRows() []discordgo.MessageComponent {
	input := func(id, label string, style discordgo.TextInputStyle, required bool, maxLength int, placeholder string) discordgo.MessageComponent {
		return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    id,
				Label:       label,
				Style:       style,
				Required:    required,
				MaxLength:   maxLength,
				Placeholder: placeholder,
			},
		}}
	}
	return []discordgo.MessageComponent{
		input(fieldTitle, "Title (optional)", discordgo.TextInputShort, false, core.MaxEmbedTitle, ""),
		input(fieldDescription, "Description (markdown supported)", discordgo.TextInputParagraph, true, 4000, ""),
		input(fieldFooter, "Footer (optional)", discordgo.TextInputShort, false, core.MaxEmbedFooter, ""),
		input(fieldImage, "Image URL (optional)", discordgo.TextInputShort, false, 0, ""),
		input(fieldColor, "Color (hex e.g., #5865F2) optional", discordgo.TextInputShort, false, 7, "#5865F2 or leave empty for random"),
	}
}

func channelSelect(customID string) discordgo.ActionsRow {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.SelectMenu{
			MenuType:     discordgo.ChannelSelectMenu,
			CustomID:     customID,
			Placeholder:  "Select a channel to send embed...",
			ChannelTypes: core.TextChannelTypes,
		},
	}}
}
