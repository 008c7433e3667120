package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/small-frappuccino/arctur/pkg/settings"
)

// Command is a top-level slash command.
type Command interface {
	Name() string
	Description() string
	Options() []*discordgo.ApplicationCommandOption
	Handle(ctx *Context) error
	RequiresGuild() bool
	// RequiredPermissions is a discordgo permission bitset the invoking member must hold.
	RequiredPermissions() int64
	// Cooldown is the per-user window between invocations; zero uses the router default.
	Cooldown() time.Duration
}

// SubCommand is a subcommand inside a GroupCommand.
type SubCommand interface {
	Name() string
	Description() string
	Options() []*discordgo.ApplicationCommandOption
	Handle(ctx *Context) error
	RequiredPermissions() int64
}

// Context carries everything a handler needs for one invocation.
type Context struct {
	Session     *discordgo.Session
	Interaction *discordgo.InteractionCreate
	Logger      *logrus.Entry
	Settings    *settings.Store
	Collector   *Collector
	GuildID     string
	ChannelID   string
	UserID      string

	ctx       context.Context
	responder *Responder
	checker   *PermissionChecker
}

// Context returns the context bound to the router's lifetime.
func (c *Context) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// User returns the invoking user.
func (c *Context) User() *discordgo.User {
	if c.Interaction == nil {
		return nil
	}
	if c.Interaction.Member != nil && c.Interaction.Member.User != nil {
		return c.Interaction.Member.User
	}
	return c.Interaction.User
}

// Guild returns the guild the command was invoked in, from state or REST.
func (c *Context) Guild() (*discordgo.Guild, error) {
	if c.GuildID == "" {
		return nil, fmt.Errorf("not in a guild")
	}
	if c.Session.State != nil {
		if g, err := c.Session.State.Guild(c.GuildID); err == nil {
			return g, nil
		}
	}
	return c.Session.Guild(c.GuildID, discordgo.WithContext(c.Context()))
}

// GuildName returns the guild name, or "this server" when it cannot be resolved.
func (c *Context) GuildName() string {
	if g, err := c.Guild(); err == nil && g.Name != "" {
		return g.Name
	}
	return "this server"
}

// BotCanSend reports whether the bot may post in channelID.
// Permissions that cannot be computed count as allowed; the send reports the failure.
func (c *Context) BotCanSend(channelID string) bool {
	if c.checker == nil {
		return true
	}
	perms, err := c.checker.BotPermissions(channelID)
	if err != nil {
		c.Logger.WithError(err).WithField("channelID", channelID).Debug("Could not compute bot permissions")
		return true
	}
	return MissingPermissions(discordgo.PermissionViewChannel|discordgo.PermissionSendMessages, perms) == 0
}

// IsOwner reports whether the invoking user owns the guild.
func (c *Context) IsOwner() bool {
	return c.IsGuildOwner(c.UserID)
}

// IsGuildOwner reports whether userID owns the guild the command runs in.
func (c *Context) IsGuildOwner(userID string) bool {
	if c.checker == nil {
		return false
	}
	return c.checker.IsOwner(c.GuildID, userID)
}

// Options returns an extractor over the invoked (sub)command's options.
func (c *Context) Options() *OptionExtractor {
	return NewOptionExtractor(GetSubCommandOptions(c.Interaction), c.resolved())
}

func (c *Context) resolved() *discordgo.ApplicationCommandInteractionDataResolved {
	if c.Interaction == nil || c.Interaction.Type != discordgo.InteractionApplicationCommand {
		return nil
	}
	return c.Interaction.ApplicationCommandData().Resolved
}

// Respond returns the responder bound to this invocation.
func (c *Context) Respond() *Responder { return c.responder }

// MemberPermissions returns the permission bitset Discord computed for the invoking member.
func (c *Context) MemberPermissions() int64 {
	if c.Interaction == nil || c.Interaction.Member == nil {
		return 0
	}
	return c.Interaction.Member.Permissions
}

var (
	// ErrInvalidDescriptor marks a command that cannot be registered.
	ErrInvalidDescriptor = errors.New("invalid command descriptor")
	// ErrDuplicateCommand marks a second registration under an existing name.
	ErrDuplicateCommand = errors.New("duplicate command name")
	// ErrDownstreamUnavailable wraps Discord API failures (missing channel, no access).
	ErrDownstreamUnavailable = errors.New("discord resource unavailable")
)

// DescriptorError reports why a command was rejected by the registry.
type DescriptorError struct {
	Name   string
	Reason string
	Err    error
}

func (e *DescriptorError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("register command: %s", e.Reason)
	}
	return fmt.Sprintf("register command %q: %s", e.Name, e.Reason)
}

func (e *DescriptorError) Unwrap() error { return e.Err }

// CommandError is a user-facing failure. Title defaults to "Error".
type CommandError struct {
	Title     string
	Message   string
	Ephemeral bool
}

func (e *CommandError) Error() string {
	return e.Message
}

func NewCommandError(message string, ephemeral bool) *CommandError {
	return &CommandError{Message: message, Ephemeral: ephemeral}
}

// NewTitledError builds an ephemeral CommandError with a custom embed title.
func NewTitledError(title, message string) *CommandError {
	return &CommandError{Title: title, Message: message, Ephemeral: true}
}

// ValidationError reports invalid command input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
