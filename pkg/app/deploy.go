package app

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/arctur/pkg/config"
	"github.com/small-frappuccino/arctur/pkg/discord/commands"
	"github.com/small-frappuccino/arctur/pkg/discord/session"
	"github.com/small-frappuccino/arctur/pkg/log"
	"github.com/small-frappuccino/arctur/pkg/settings"
)

// Deploy pushes the slash command definitions over REST and returns. The
// gateway is never opened and no database is touched.
func Deploy(ctx context.Context, cfg *config.Config) error {
	if err := setupLogging(cfg); err != nil {
		return err
	}
	defer log.Close()

	s, err := session.New(cfg.Token)
	if err != nil {
		return err
	}
	return deployWith(ctx, s, cfg)
}

func deployWith(ctx context.Context, s *discordgo.Session, cfg *config.Config) error {
	handler, err := commands.NewCommandHandler(ctx, s, cfg, settings.NewStore(nil))
	if err != nil {
		return err
	}
	scope := handler.GetCommandManager().Scope()
	log.ApplicationLogger().WithField("scope", scope).Info("📤 Deploying slash commands...")
	if err := handler.SyncCommands(ctx); err != nil {
		return fmt.Errorf("deploy commands: %w", err)
	}
	log.ApplicationLogger().WithField("scope", scope).Info("✅ Slash commands deployed")
	return nil
}
