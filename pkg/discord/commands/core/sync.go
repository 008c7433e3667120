package core

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/small-frappuccino/arctur/pkg/log"
)

// CommandManager keeps the commands registered on Discord in step with the router.
type CommandManager struct {
	session *discordgo.Session
	router  *CommandRouter
	appID   string
	guildID string
	logger  *logrus.Entry
}

// NewCommandManager registers commands for appID. A non-empty guildID scopes
// registration to that guild, which takes effect immediately; global
// registration can take up to an hour to propagate.
func NewCommandManager(session *discordgo.Session, router *CommandRouter, appID, guildID string) *CommandManager {
	return &CommandManager{
		session: session,
		router:  router,
		appID:   appID,
		guildID: guildID,
		logger:  log.ApplicationLogger().WithField("component", "command_manager"),
	}
}

func (cm *CommandManager) GetRouter() *CommandRouter { return cm.router }

// Scope describes where commands are registered, for logs.
func (cm *CommandManager) Scope() string {
	if cm.guildID != "" {
		return "guild:" + cm.guildID
	}
	return "global"
}

// SetupCommands installs the interaction handler and syncs commands.
func (cm *CommandManager) SetupCommands(ctx context.Context) error {
	cm.session.AddHandler(cm.router.HandleInteraction)
	return cm.SyncCommands(ctx)
}

// Desired builds the ApplicationCommand sent to Discord for cmd.
func Desired(cmd Command) *discordgo.ApplicationCommand {
	desired := &discordgo.ApplicationCommand{
		Name:        cmd.Name(),
		Description: cmd.Description(),
		Options:     cmd.Options(),
	}
	if perms := cmd.RequiredPermissions(); perms != 0 {
		desired.DefaultMemberPermissions = &perms
	}
	dm := !cmd.RequiresGuild()
	desired.DMPermission = &dm
	return desired
}

// SyncCommands creates, updates and deletes commands so Discord matches the registry.
func (cm *CommandManager) SyncCommands(ctx context.Context) error {
	if cm.appID == "" {
		return fmt.Errorf("application id is empty")
	}
	opt := discordgo.WithContext(ctx)

	registered, err := cm.session.ApplicationCommands(cm.appID, cm.guildID, opt)
	if err != nil {
		return cm.wrap("fetch registered commands", err)
	}

	regByName := make(map[string]*discordgo.ApplicationCommand, len(registered))
	for _, rc := range registered {
		regByName[rc.Name] = rc
	}

	codeCommands := cm.router.registry.Commands()
	codeByName := make(map[string]struct{}, len(codeCommands))

	created, updated, unchanged := 0, 0, 0
	for _, cmd := range codeCommands {
		name := cmd.Name()
		codeByName[name] = struct{}{}
		desired := Desired(cmd)

		if existing, ok := regByName[name]; ok {
			if CompareCommands(existing, desired) {
				cm.logger.WithField("command", name).Debug("Command unchanged, skipping")
				unchanged++
				continue
			}
			if _, err := cm.session.ApplicationCommandEdit(cm.appID, cm.guildID, existing.ID, desired, opt); err != nil {
				return cm.wrap(fmt.Sprintf("update command '%s'", name), err)
			}
			cm.logger.WithField("command", name).Info("Command updated")
			updated++
			continue
		}

		if _, err := cm.session.ApplicationCommandCreate(cm.appID, cm.guildID, desired, opt); err != nil {
			return cm.wrap(fmt.Sprintf("create command '%s'", name), err)
		}
		cm.logger.WithField("command", name).Info("Command created")
		created++
	}

	deleted := 0
	for _, rc := range registered {
		if _, exists := codeByName[rc.Name]; exists {
			continue
		}
		if err := cm.session.ApplicationCommandDelete(cm.appID, cm.guildID, rc.ID, opt); err != nil {
			cm.logger.WithFields(logrus.Fields{
				"command": rc.Name,
				"error":   err,
			}).Warn("Error removing orphan command")
			continue
		}
		cm.logger.WithField("command", rc.Name).Info("Orphan command removed")
		deleted++
	}

	cm.logger.WithFields(logrus.Fields{
		"created":   created,
		"updated":   updated,
		"deleted":   deleted,
		"unchanged": unchanged,
		"total":     len(codeCommands),
		"scope":     cm.Scope(),
	}).Info("Command synchronization completed")
	return nil
}

func (cm *CommandManager) wrap(what string, err error) error {
	if hint := RESTErrorHint(err); hint != "" {
		return fmt.Errorf("%s: %w (%s)", what, err, hint)
	}
	return fmt.Errorf("%s: %w", what, err)
}
