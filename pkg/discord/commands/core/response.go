package core

import (
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// ErrAlreadyResponded is returned when a second initial response is attempted.
var ErrAlreadyResponded = errors.New("interaction already responded")

type responseState int

const (
	stateNone responseState = iota
	stateReplied
	stateDeferred
	stateModal
)

// Responder transmits responses for a single interaction and allows at most
// one initial response. Later messages go through edits and follow-ups.
type Responder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction

	mu    sync.Mutex
	state responseState
}

// NewResponder binds a responder to one interaction.
func NewResponder(session *discordgo.Session, i *discordgo.InteractionCreate) *Responder {
	return &Responder{session: session, interaction: i.Interaction}
}

// Responded reports whether an initial response (reply, defer or modal) was sent.
func (r *Responder) Responded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state != stateNone
}

// Deferred reports whether the initial response was a deferral.
func (r *Responder) Deferred() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == stateDeferred
}

func (r *Responder) initial(resp *discordgo.InteractionResponse, next responseState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != stateNone {
		return ErrAlreadyResponded
	}
	if err := r.session.InteractionRespond(r.interaction, resp); err != nil {
		return err
	}
	r.state = next
	return nil
}

// Reply sends the initial message response.
func (r *Responder) Reply(data *discordgo.InteractionResponseData) error {
	return r.initial(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}, stateReplied)
}

// ReplyEmbed sends a single embed as the initial response.
func (r *Responder) ReplyEmbed(embed *discordgo.MessageEmbed, ephemeral bool) error {
	return r.Reply(&discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
		Flags:  ephemeralFlag(ephemeral),
	})
}

// Success replies with a success embed.
func (r *Responder) Success(title, description string, fields ...*discordgo.MessageEmbedField) error {
	return r.ReplyEmbed(SuccessEmbed(title, description, fields...), true)
}

// Error replies with an ephemeral error embed.
func (r *Responder) Error(title, description string) error {
	return r.ReplyEmbed(ErrorEmbed(title, description), true)
}

// Ephemeral replies with plain text only the invoker can see.
func (r *Responder) Ephemeral(content string) error {
	return r.Reply(&discordgo.InteractionResponseData{Content: content, Flags: discordgo.MessageFlagsEphemeral})
}

// Defer acknowledges the interaction so the handler can take longer than three seconds.
func (r *Responder) Defer(ephemeral bool) error {
	return r.initial(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: ephemeralFlag(ephemeral)},
	}, stateDeferred)
}

// Modal opens a modal dialog as the initial response.
func (r *Responder) Modal(customID, title string, components ...discordgo.MessageComponent) error {
	return r.initial(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   customID,
			Title:      title,
			Components: components,
		},
	}, stateModal)
}

// Edit modifies the original response.
func (r *Responder) Edit(edit *discordgo.WebhookEdit) error {
	_, err := r.session.InteractionResponseEdit(r.interaction, edit)
	return err
}

// EditEmbed replaces the original response with a single embed and no components.
func (r *Responder) EditEmbed(embed *discordgo.MessageEmbed) error {
	return r.Edit(&discordgo.WebhookEdit{
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &[]discordgo.MessageComponent{},
	})
}

// FollowUp sends an additional message after the initial response.
func (r *Responder) FollowUp(params *discordgo.WebhookParams) error {
	_, err := r.session.FollowupMessageCreate(r.interaction, true, params)
	return err
}

// FollowUpEmbed sends an embed as a follow-up message.
func (r *Responder) FollowUpEmbed(embed *discordgo.MessageEmbed, ephemeral bool) error {
	return r.FollowUp(&discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
		Flags:  ephemeralFlag(ephemeral),
	})
}

// SendEmbed replies when nothing was sent yet and follows up otherwise.
func (r *Responder) SendEmbed(embed *discordgo.MessageEmbed, ephemeral bool) error {
	err := r.ReplyEmbed(embed, ephemeral)
	if errors.Is(err, ErrAlreadyResponded) {
		return r.FollowUpEmbed(embed, ephemeral)
	}
	return err
}

// Update acknowledges a component interaction by editing the message it is attached to.
func (r *Responder) Update(data *discordgo.InteractionResponseData) error {
	return r.initial(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: data,
	}, stateReplied)
}

// DeferUpdate acknowledges a component interaction without changing its message yet.
func (r *Responder) DeferUpdate() error {
	return r.initial(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}, stateDeferred)
}

// EditContent replaces the original response with plain text, dropping embeds and components.
func (r *Responder) EditContent(content string) error {
	return r.Edit(&discordgo.WebhookEdit{
		Content:    &content,
		Embeds:     &[]*discordgo.MessageEmbed{},
		Components: &[]discordgo.MessageComponent{},
	})
}

func ephemeralFlag(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}
