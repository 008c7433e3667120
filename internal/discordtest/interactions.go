package discordtest

import (
	"sort"

	"github.com/bwmarrin/discordgo"
)

// Option aliases the interaction option type to keep call sites short.
type Option = discordgo.ApplicationCommandInteractionDataOption

// Slash builds a slash command interaction. An empty guildID produces a DM
// interaction with i.User set instead of i.Member.
func Slash(name, guildID, userID string, perms int64, options ...*Option) *discordgo.InteractionCreate {
	i := &discordgo.Interaction{
		ID:        "interaction-1",
		AppID:     "app-1",
		Token:     "token-1",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   guildID,
		ChannelID: "channel-1",
		Data: discordgo.ApplicationCommandInteractionData{
			ID:      "cmd-" + name,
			Name:    name,
			Options: options,
		},
	}
	setUser(i, guildID, userID, perms)
	return &discordgo.InteractionCreate{Interaction: i}
}

// WithResolved attaches resolved users, members, channels or roles.
func WithResolved(ic *discordgo.InteractionCreate, resolved *discordgo.ApplicationCommandInteractionDataResolved) *discordgo.InteractionCreate {
	data := ic.ApplicationCommandData()
	data.Resolved = resolved
	ic.Data = data
	return ic
}

// WithChannel overrides the channel the interaction was sent from.
func WithChannel(ic *discordgo.InteractionCreate, channelID string) *discordgo.InteractionCreate {
	ic.ChannelID = channelID
	return ic
}

func Sub(name string, options ...*Option) *Option {
	return &Option{Name: name, Type: discordgo.ApplicationCommandOptionSubCommand, Options: options}
}

func String(name, value string) *Option {
	return &Option{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

// Int mirrors the wire format, where integers decode as float64.
func Int(name string, value int) *Option {
	return &Option{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(value)}
}

func Bool(name string, value bool) *Option {
	return &Option{Name: name, Type: discordgo.ApplicationCommandOptionBoolean, Value: value}
}

func User(name, id string) *Option {
	return &Option{Name: name, Type: discordgo.ApplicationCommandOptionUser, Value: id}
}

func Channel(name, id string) *Option {
	return &Option{Name: name, Type: discordgo.ApplicationCommandOptionChannel, Value: id}
}

func Role(name, id string) *Option {
	return &Option{Name: name, Type: discordgo.ApplicationCommandOptionRole, Value: id}
}

// Component builds a button or select menu interaction.
func Component(customID, guildID, userID string, values ...string) *discordgo.InteractionCreate {
	i := &discordgo.Interaction{
		ID:        "component-1",
		AppID:     "app-1",
		Token:     "component-token",
		Type:      discordgo.InteractionMessageComponent,
		GuildID:   guildID,
		ChannelID: "channel-1",
		Data: discordgo.MessageComponentInteractionData{
			CustomID: customID,
			Values:   values,
		},
	}
	setUser(i, guildID, userID, 0)
	return &discordgo.InteractionCreate{Interaction: i}
}

// ModalSubmit builds a modal submission with one text input per field.
func ModalSubmit(customID, guildID, userID string, fields map[string]string) *discordgo.InteractionCreate {
	ids := make([]string, 0, len(fields))
	for id := range fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]discordgo.MessageComponent, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, &discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.TextInput{CustomID: id, Value: fields[id]},
		}})
	}
	i := &discordgo.Interaction{
		ID:        "modal-1",
		AppID:     "app-1",
		Token:     "modal-token",
		Type:      discordgo.InteractionModalSubmit,
		GuildID:   guildID,
		ChannelID: "channel-1",
		Data: discordgo.ModalSubmitInteractionData{
			CustomID:   customID,
			Components: rows,
		},
	}
	setUser(i, guildID, userID, 0)
	return &discordgo.InteractionCreate{Interaction: i}
}

func setUser(i *discordgo.Interaction, guildID, userID string, perms int64) {
	user := &discordgo.User{ID: userID, Username: "user-" + userID}
	if guildID == "" {
		i.User = user
		return
	}
	i.Member = &discordgo.Member{User: user, GuildID: guildID, Permissions: perms}
}
