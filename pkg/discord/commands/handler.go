package commands

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/arctur/pkg/config"
	"github.com/small-frappuccino/arctur/pkg/discord/commands/about"
	"github.com/small-frappuccino/arctur/pkg/discord/commands/announcement"
	configcmd "github.com/small-frappuccino/arctur/pkg/discord/commands/config"
	"github.com/small-frappuccino/arctur/pkg/discord/commands/core"
	"github.com/small-frappuccino/arctur/pkg/discord/commands/embed"
	"github.com/small-frappuccino/arctur/pkg/discord/commands/info"
	"github.com/small-frappuccino/arctur/pkg/discord/commands/moderation"
	"github.com/small-frappuccino/arctur/pkg/log"
	"github.com/small-frappuccino/arctur/pkg/settings"
)

// CommandHandler is the main handler that coordinates all bot commands
type CommandHandler struct {
	session        *discordgo.Session
	commandManager *core.CommandManager
}

// NewCommandHandler builds the router and registers every command. ctx bounds
// interactive waits; cancelling it releases handlers blocked on a form.
func NewCommandHandler(ctx context.Context, session *discordgo.Session, cfg *config.Config, store *settings.Store) (*CommandHandler, error) {
	router := core.NewCommandRouter(session, core.RouterOptions{
		Settings:        store,
		DefaultCooldown: cfg.CommandCooldown,
		BaseContext:     ctx,
	})
	if err := registerAll(router, cfg); err != nil {
		return nil, err
	}
	if router.GetRegistry().Len() == 0 {
		return nil, fmt.Errorf("no commands registered")
	}
	return &CommandHandler{
		session:        session,
		commandManager: core.NewCommandManager(session, router, cfg.ClientID, cfg.GuildID),
	}, nil
}

func registerAll(router *core.CommandRouter, cfg *config.Config) error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"about", func() error { return about.RegisterAboutCommands(router) }},
		{"announcement", func() error { return announcement.RegisterAnnouncementCommands(router) }},
		{"config", func() error { return configcmd.RegisterConfigCommands(router) }},
		{"moderation", func() error { return moderation.RegisterModerationCommands(router) }},
		{"embed", func() error {
			return embed.RegisterEmbedCommands(router, embed.Timeouts{
				Form:   cfg.EmbedFormTimeout,
				Select: cfg.EmbedSelectTimeout,
			})
		}},
		{"info", func() error { return info.RegisterInfoCommands(router, cfg) }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return fmt.Errorf("failed to register %s commands: %w", s.name, err)
		}
	}
	return nil
}

// SetupCommands installs the interaction handler and syncs commands with Discord.
func (ch *CommandHandler) SetupCommands(ctx context.Context) error {
	logger := log.ApplicationLogger().WithField("scope", ch.commandManager.Scope())
	logger.WithField("commands", ch.commandManager.GetRouter().GetRegistry().Len()).Info("Setting up bot commands...")

	if err := ch.commandManager.SetupCommands(ctx); err != nil {
		return fmt.Errorf("failed to setup commands: %w", err)
	}

	logger.Info("Bot commands setup completed successfully")
	return nil
}

// SyncCommands pushes command definitions without installing the interaction handler.
func (ch *CommandHandler) SyncCommands(ctx context.Context) error {
	return ch.commandManager.SyncCommands(ctx)
}

// Shutdown reports interactive waits still open. They end when the context
// passed to NewCommandHandler is cancelled.
func (ch *CommandHandler) Shutdown() error {
	pending := ch.commandManager.GetRouter().GetCollector().Pending()
	log.ApplicationLogger().WithField("pendingInteractions", pending).Info("Shutting down command handler...")
	return nil
}

// GetCommandManager returns the command manager (for tests or extensions)
func (ch *CommandHandler) GetCommandManager() *core.CommandManager {
	return ch.commandManager
}
