package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/arctur/pkg/log"
	"github.com/small-frappuccino/arctur/pkg/settings"
)

// validator is implemented by commands that can detect an unusable descriptor.
type validator interface {
	Validate() error
}

// CommandRegistry holds the commands known to the router, keyed by name.
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[string]Command
	order    []string
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{commands: make(map[string]Command)}
}

// Register adds cmd. Invalid descriptors are rejected; a duplicate name keeps the
// first registration and returns an error wrapping ErrDuplicateCommand.
func (r *CommandRegistry) Register(cmd Command) error {
	if cmd == nil {
		return &DescriptorError{Reason: "command is nil", Err: ErrInvalidDescriptor}
	}
	name := strings.TrimSpace(cmd.Name())
	if name == "" {
		return &DescriptorError{Reason: "name is empty", Err: ErrInvalidDescriptor}
	}
	if v, ok := cmd.(validator); ok {
		if err := v.Validate(); err != nil {
			return &DescriptorError{Name: name, Reason: err.Error(), Err: ErrInvalidDescriptor}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[name]; exists {
		log.ApplicationLogger().WithField("command", name).Warn("Duplicate command registration ignored")
		return &DescriptorError{Name: name, Reason: "already registered", Err: ErrDuplicateCommand}
	}
	r.commands[name] = cmd
	r.order = append(r.order, name)
	return nil
}

// GetCommand looks a command up by name.
func (r *CommandRegistry) GetCommand(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, exists := r.commands[name]
	return cmd, exists
}

// Commands returns the registered commands in registration order.
func (r *CommandRegistry) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Command, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.commands[name])
	}
	return out
}

func (r *CommandRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Generic user-facing messages.
const (
	msgUnknownCommand = "This command is not available."
	msgGuildOnly      = "This command can only be used in a server."
	msgHandlerFailed  = "An error occurred while executing this command!"
	msgStorageDown    = "Settings storage is unavailable right now. Please try again later."
)

// CommandRouter resolves slash commands and runs them through the guild,
// permission and cooldown checks.
type CommandRouter struct {
	registry       *CommandRegistry
	contextBuilder *ContextBuilder
	cooldowns      *CooldownTracker
	collector      *Collector
}

// RouterOptions configures optional router collaborators.
type RouterOptions struct {
	Settings        *settings.Store
	DefaultCooldown time.Duration
	// BaseContext is handed to handlers; cancelling it aborts pending waits.
	BaseContext context.Context
}

func NewCommandRouter(session *discordgo.Session, opts RouterOptions) *CommandRouter {
	collector := NewCollector()
	return &CommandRouter{
		registry:       NewCommandRegistry(),
		contextBuilder: NewContextBuilder(opts.BaseContext, session, opts.Settings, collector, NewPermissionChecker(session)),
		cooldowns:      NewCooldownTracker(opts.DefaultCooldown),
		collector:      collector,
	}
}

// RegisterCommand adds a command to the router's registry.
func (cr *CommandRouter) RegisterCommand(cmd Command) error {
	return cr.registry.Register(cmd)
}

func (cr *CommandRouter) GetRegistry() *CommandRegistry  { return cr.registry }
func (cr *CommandRouter) GetCooldowns() *CooldownTracker { return cr.cooldowns }
func (cr *CommandRouter) GetCollector() *Collector       { return cr.collector }

// HandleInteraction routes interactions to commands or waiting collectors.
func (cr *CommandRouter) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch {
	case IsSlashCommandInteraction(i):
		cr.handleSlashCommand(i)
	case IsCollectableInteraction(i):
		cr.collector.Dispatch(s, i)
	}
}

func (cr *CommandRouter) handleSlashCommand(i *discordgo.InteractionCreate) {
	ctx := cr.contextBuilder.BuildContext(i)
	commandName := i.ApplicationCommandData().Name

	ctx.Logger.Debug("Processing slash command")

	cmd, exists := cr.registry.GetCommand(commandName)
	if !exists {
		ctx.Logger.Warn("Unknown command")
		cr.reply(ctx, ErrorEmbed("Error", msgUnknownCommand), true)
		return
	}

	if cmd.RequiresGuild() && ctx.GuildID == "" {
		ctx.Logger.Warn("Command used outside of guild")
		cr.reply(ctx, ErrorEmbed("Server Only", msgGuildOnly), true)
		return
	}

	if missing := MissingPermissions(cmd.RequiredPermissions(), ctx.MemberPermissions()); missing != 0 {
		names := PermissionNames(missing)
		ctx.Logger.WithField("missing", names).Warn("User without permission tried to use command")
		cr.reply(ctx, ErrorEmbed("Missing Permissions",
			"You need the following permissions: "+strings.Join(names, ", ")), true)
		return
	}

	window := cr.cooldowns.Window(cmd.Cooldown())
	if ok, remaining := cr.cooldowns.Acquire(cmd.Name(), ctx.UserID, window); !ok {
		ctx.Logger.WithField("remaining", remaining.String()).Debug("Command throttled")
		cr.reply(ctx, WarningEmbed("Slow Down", fmt.Sprintf(
			"⏳ Please wait %.1f seconds before using `%s` again.", remaining.Seconds(), cmd.Name())), true)
		return
	}

	started := time.Now()
	err := runHandler(cmd, ctx)
	logger := ctx.Logger.WithField("duration", time.Since(started).String())
	if err != nil {
		logger.WithError(err).Error("Command execution failed")
		embed, ephemeral := errorResponse(err)
		if sendErr := ctx.responder.SendEmbed(embed, ephemeral); sendErr != nil {
			logger.WithError(sendErr).Error("Failed to report command error")
		}
		return
	}

	if !ctx.responder.Responded() {
		logger.Warn("Handler returned without responding; sending acknowledgement")
		cr.reply(ctx, SuccessEmbed("Done", ""), true)
		return
	}
	logger.Info("Command executed")
}

func (cr *CommandRouter) reply(ctx *Context, embed *discordgo.MessageEmbed, ephemeral bool) {
	if err := ctx.responder.SendEmbed(embed, ephemeral); err != nil {
		ctx.Logger.WithError(err).Error("Failed to send response")
	}
}

// runHandler executes the handler, converting a panic into an error.
func runHandler(cmd Command, ctx *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in command %s: %v", cmd.Name(), r)
		}
	}()
	return cmd.Handle(ctx)
}

// errorResponse maps a handler error to the embed shown to the user.
func errorResponse(err error) (*discordgo.MessageEmbed, bool) {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		title := cmdErr.Title
		if title == "" {
			title = "Error"
		}
		return ErrorEmbed(title, cmdErr.Message), cmdErr.Ephemeral
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return ErrorEmbed("Invalid Input", valErr.Message), true
	}
	if ve, ok := settings.AsValidationError(err); ok {
		return ErrorEmbed("Invalid "+ve.Field, ve.Message), true
	}

	switch {
	case errors.Is(err, settings.ErrStorageUnavailable):
		return ErrorEmbed("Storage Unavailable", msgStorageDown), true
	case errors.Is(err, settings.ErrNotFound):
		return ErrorEmbed("Not Found", "Nothing is configured for this server yet."), true
	case errors.Is(err, settings.ErrAlreadyExists):
		return ErrorEmbed("Already Exists", "A record already exists for this server."), true
	case errors.Is(err, ErrDownstreamUnavailable):
		return ErrorEmbed("Unavailable", "Discord could not complete the request. Please try again later."), true
	}
	return ErrorEmbed("Error", msgHandlerFailed), true
}

// GroupCommand is a command whose behaviour lives in subcommands.
type GroupCommand struct {
	name          string
	description   string
	requiresGuild bool
	permissions   int64
	cooldown      time.Duration
	subcommands   map[string]SubCommand
	order         []string
}

// NewGroupCommand creates a group. permissions is the baseline every subcommand requires.
func NewGroupCommand(name, description string, requiresGuild bool, permissions int64) *GroupCommand {
	return &GroupCommand{
		name:          name,
		description:   description,
		requiresGuild: requiresGuild,
		permissions:   permissions,
		subcommands:   make(map[string]SubCommand),
	}
}

// AddSubCommand adds a subcommand; a repeated name replaces the earlier one.
func (gc *GroupCommand) AddSubCommand(subcmd SubCommand) *GroupCommand {
	if _, exists := gc.subcommands[subcmd.Name()]; !exists {
		gc.order = append(gc.order, subcmd.Name())
	}
	gc.subcommands[subcmd.Name()] = subcmd
	return gc
}

// WithCooldown overrides the per-user cooldown window.
func (gc *GroupCommand) WithCooldown(d time.Duration) *GroupCommand {
	gc.cooldown = d
	return gc
}

func (gc *GroupCommand) Name() string               { return gc.name }
func (gc *GroupCommand) Description() string        { return gc.description }
func (gc *GroupCommand) RequiresGuild() bool        { return gc.requiresGuild }
func (gc *GroupCommand) RequiredPermissions() int64 { return gc.permissions }
func (gc *GroupCommand) Cooldown() time.Duration    { return gc.cooldown }

// Options builds the subcommand options in insertion order.
func (gc *GroupCommand) Options() []*discordgo.ApplicationCommandOption {
	options := make([]*discordgo.ApplicationCommandOption, 0, len(gc.subcommands))
	for _, name := range gc.order {
		subcmd := gc.subcommands[name]
		options = append(options, &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        subcmd.Name(),
			Description: subcmd.Description(),
			Options:     subcmd.Options(),
		})
	}
	return options
}

// SubCommandNames lists subcommands in insertion order.
func (gc *GroupCommand) SubCommandNames() []string {
	out := make([]string, len(gc.order))
	copy(out, gc.order)
	return out
}

func (gc *GroupCommand) Validate() error {
	if len(gc.subcommands) == 0 {
		return fmt.Errorf("group has no subcommands")
	}
	return nil
}

// Handle routes to the invoked subcommand after checking its own permissions.
func (gc *GroupCommand) Handle(ctx *Context) error {
	subCommandName := GetSubCommandName(ctx.Interaction)
	if subCommandName == "" {
		return NewCommandError("No subcommand specified", true)
	}

	subcmd, exists := gc.subcommands[subCommandName]
	if !exists {
		return NewCommandError("Unknown subcommand", true)
	}

	if missing := MissingPermissions(subcmd.RequiredPermissions(), ctx.MemberPermissions()); missing != 0 {
		return NewTitledError("Missing Permissions",
			"You need the following permissions: "+strings.Join(PermissionNames(missing), ", "))
	}

	return subcmd.Handle(ctx)
}

// SimpleCommand implements Command and SubCommand around a handler func.
type SimpleCommand struct {
	name          string
	description   string
	options       []*discordgo.ApplicationCommandOption
	handler       func(ctx *Context) error
	requiresGuild bool
	permissions   int64
	cooldown      time.Duration
}

func NewSimpleCommand(
	name, description string,
	options []*discordgo.ApplicationCommandOption,
	handler func(ctx *Context) error,
	requiresGuild bool,
	permissions int64,
) *SimpleCommand {
	return &SimpleCommand{
		name:          name,
		description:   description,
		options:       options,
		handler:       handler,
		requiresGuild: requiresGuild,
		permissions:   permissions,
	}
}

// WithCooldown overrides the per-user cooldown window.
func (sc *SimpleCommand) WithCooldown(d time.Duration) *SimpleCommand {
	sc.cooldown = d
	return sc
}

func (sc *SimpleCommand) Name() string        { return sc.name }
func (sc *SimpleCommand) Description() string { return sc.description }
func (sc *SimpleCommand) Options() []*discordgo.ApplicationCommandOption {
	return sc.options
}
func (sc *SimpleCommand) Handle(ctx *Context) error  { return sc.handler(ctx) }
func (sc *SimpleCommand) RequiresGuild() bool        { return sc.requiresGuild }
func (sc *SimpleCommand) RequiredPermissions() int64 { return sc.permissions }
func (sc *SimpleCommand) Cooldown() time.Duration    { return sc.cooldown }

func (sc *SimpleCommand) Validate() error {
	if sc.handler == nil {
		return fmt.Errorf("handler is nil")
	}
	return nil
}
