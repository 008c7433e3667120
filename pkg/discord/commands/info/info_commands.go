// Package info implements the informational commands: /help, /creator and /ping.
package info

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/arctur/pkg/config"
	"github.com/small-frappuccino/arctur/pkg/discord/commands/core"
	"github.com/small-frappuccino/arctur/pkg/theme"
)

// invitePermissions is Administrator, matching the invite link the bot logs on startup.
const invitePermissions = discordgo.PermissionAdministrator

// InviteURL returns the OAuth2 link that adds the bot with slash commands enabled.
func InviteURL(clientID string) string {
	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("permissions", fmt.Sprint(invitePermissions))
	q.Set("scope", "bot applications.commands")
	return "https://discord.com/oauth2/authorize?" + q.Encode()
}

// RegisterInfoCommands registers /help, /creator and /ping. /help lists
// whatever is in the router's registry when it runs.
func RegisterInfoCommands(router *core.CommandRouter, cfg *config.Config) error {
	h := &handlers{cfg: cfg, registry: router.GetRegistry()}
	cmds := []core.Command{
		core.NewSimpleCommand("help", "Get help with all bot commands and features", nil, h.help, false, 0),
		core.NewSimpleCommand("creator", "Get information about the bot creator", nil, h.creator, true, 0),
		core.NewSimpleCommand("ping", "Check if the bot is responding", nil, h.ping, false, 0),
	}
	for _, cmd := range cmds {
		if err := router.RegisterCommand(cmd); err != nil {
			return err
		}
	}
	return nil
}

type handlers struct {
	cfg      *config.Config
	registry *core.CommandRegistry
}

func (h *handlers) help(ctx *core.Context) error {
	name := h.cfg.BotName
	b := core.NewEmbed().
		Title(fmt.Sprintf("🤖 **%s BOT**", strings.ToUpper(name))).
		Description(fmt.Sprintf("A Discord server management bot with embed creation and moderation tools. "+
			"%s helps you manage your server:\n• Create embeds easily\n• Moderate your server\n"+
			"• Send announcements\n• Customize colors and server settings", name)).
		Color(theme.Info())

	for _, cmd := range h.registry.Commands() {
		b.Field("/"+cmd.Name(), commandSummary(cmd), false)
	}

	b.Field("🎨 **COLOR CUSTOMIZATION**",
		"Any hex color works, full (`#FF5733`) or short (`#F00`). Leave the color empty for a random palette color.", false).
		Field("🔗 **LINKS**", fmt.Sprintf("• [Invite %s](%s)", name, InviteURL(h.cfg.ClientID)), false).
		Footer(fmt.Sprintf("%s Bot • Requested by %s", name, core.UserTag(ctx.User())), "").
		Timestamp(time.Now())

	return ctx.Respond().ReplyEmbed(b.Build(), true)
}

// commandSummary renders a command's description followed by its subcommands.
func commandSummary(cmd core.Command) string {
	group, ok := cmd.(*core.GroupCommand)
	if !ok {
		return cmd.Description()
	}
	lines := []string{group.Description()}
	for _, sub := range group.SubCommandNames() {
		lines = append(lines, fmt.Sprintf("• `/%s %s`", group.Name(), sub))
	}
	return strings.Join(lines, "\n")
}

func (h *handlers) creator(ctx *core.Context) error {
	c := h.cfg.Creator

	var desc strings.Builder
	desc.WriteString("**Meet the Developer**\n")
	if c.About != "" {
		desc.WriteString(c.About + "\n")
	}

	var details []string
	if c.Github != "" {
		details = append(details, fmt.Sprintf("• **GitHub:** [%s](https://github.com/%s)", c.Github, c.Github))
	}
	if c.Website != "" {
		details = append(details, fmt.Sprintf("• **Website:** %s", c.Website))
	}
	if c.Location != "" {
		details = append(details, fmt.Sprintf("• **Location:** %s", c.Location))
	}
	if len(details) > 0 {
		desc.WriteString("\n**Details:**\n" + strings.Join(details, "\n"))
	}

	embed := core.NewEmbed().
		Title(c.Name + " - Overview").
		Description(desc.String()).
		Color(theme.Creator()).
		Footer("Contact for custom bot inquiries", "").
		Timestamp(time.Now()).
		Build()
	if c.Website != "" {
		embed.URL = c.Website
	}
	if c.Github != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: "https://github.com/" + c.Github + ".png"}
	}
	return ctx.Respond().ReplyEmbed(embed, false)
}

func (h *handlers) ping(ctx *core.Context) error {
	var latency string
	if s := ctx.Session; !s.LastHeartbeatAck.IsZero() && !s.LastHeartbeatSent.IsZero() {
		latency = "Gateway latency: " + s.HeartbeatLatency().Round(time.Millisecond).String()
	}
	return ctx.Respond().ReplyEmbed(core.InfoEmbed("🏓 Pong!", latency), true)
}
