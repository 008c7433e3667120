package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/small-frappuccino/arctur/pkg/config"
	"github.com/small-frappuccino/arctur/pkg/discord/commands"
	"github.com/small-frappuccino/arctur/pkg/discord/commands/info"
	"github.com/small-frappuccino/arctur/pkg/discord/session"
	"github.com/small-frappuccino/arctur/pkg/log"
	"github.com/small-frappuccino/arctur/pkg/settings"
	"github.com/small-frappuccino/arctur/pkg/storage"
	"github.com/small-frappuccino/arctur/pkg/theme"
)

const shutdownTimeout = 10 * time.Second

// Run connects the bot and blocks until ctx ends or SIGINT/SIGTERM arrives.
// A database that fails to open is logged and the bot runs without
// persistence; settings commands then report storage as unavailable.
func Run(ctx context.Context, cfg *config.Config) error {
	started := time.Now()

	if err := setupLogging(cfg); err != nil {
		return err
	}
	defer log.Close()
	logger := log.ApplicationLogger()

	if cfg.Theme != "" {
		if err := theme.SetCurrent(cfg.Theme); err != nil {
			logger.WithError(err).WithField("theme", cfg.Theme).Warn("Unknown theme; keeping default")
		} else {
			logger.WithField("theme", cfg.Theme).Info("🌈 Theme applied")
		}
	}

	logger.Info(formatStartupMessage(cfg.BotName, Version))

	store, closeStore := openSettings(cfg.DatabasePath)
	defer closeStore()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := session.New(cfg.Token)
	if err != nil {
		return err
	}
	s.AddHandler(onReady(cfg))

	handler, err := commands.NewCommandHandler(ctx, s, cfg, store)
	if err != nil {
		return err
	}

	if err := session.Open(s); err != nil {
		return err
	}

	if err := handler.SetupCommands(ctx); err != nil {
		shutdown(s, handler)
		return fmt.Errorf("configure slash commands: %w", err)
	}

	logger.WithField("startup", time.Since(started).Round(time.Millisecond).String()).
		Info(fmt.Sprintf("🤖 %s running. Press Ctrl+C to stop...", cfg.BotName))

	<-ctx.Done()
	logger.Info(fmt.Sprintf("🛑 Stopping %s...", cfg.BotName))
	shutdown(s, handler)
	return nil
}

func setupLogging(cfg *config.Config) error {
	if err := log.SetupLogger(log.Options{Dir: cfg.LogDir, Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}
	return nil
}

// openSettings opens the SQLite store. On failure the returned settings store
// has no backend.
func openSettings(path string) (*settings.Store, func()) {
	db := storage.NewStore(path)
	if err := db.Init(); err != nil {
		log.DatabaseLogger().WithError(err).WithField("path", path).
			Error("Failed to open database; continuing without persistence")
		return settings.NewStore(nil), func() {}
	}
	log.DatabaseLogger().WithField("path", path).Info("💾 Database ready")
	return settings.NewStore(db), func() {
		if err := db.Close(); err != nil {
			log.DatabaseLogger().WithError(err).Warn("Failed to close database")
		}
	}
}

func shutdown(s *discordgo.Session, handler *commands.CommandHandler) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := handler.Shutdown(); err != nil {
			log.ApplicationLogger().WithError(err).Warn("Command handler shutdown failed")
		}
		if err := s.UpdateStatusComplex(offlinePresence()); err != nil {
			log.DiscordLogger().WithError(err).Debug("Failed to clear presence")
		}
		if err := session.Close(s); err != nil {
			log.DiscordLogger().WithError(err).Warn("Failed to close Discord session")
		}
	}()

	select {
	case <-done:
		log.ApplicationLogger().Info("Shutdown complete")
	case <-time.After(shutdownTimeout):
		log.ApplicationLogger().Warn("Shutdown timed out")
	}
}

// onReady logs the login, sets the watching presence and prints the invite link.
func onReady(cfg *config.Config) func(*discordgo.Session, *discordgo.Ready) {
	return func(s *discordgo.Session, r *discordgo.Ready) {
		logger := log.DiscordLogger()
		if r.User != nil {
			logger.WithField("user", r.User.Username).Info("✅ Bot logged in")
		}
		logger.WithField("guilds", len(r.Guilds)).Info("📊 Connected to guilds")

		if err := s.UpdateStatusComplex(readyPresence(len(r.Guilds))); err != nil {
			logger.WithError(err).Warn("Failed to set presence")
		}
		logger.WithFields(logrus.Fields{"invite": info.InviteURL(cfg.ClientID)}).Info("🔗 Invite link")
	}
}

func readyPresence(guilds int) discordgo.UpdateStatusData {
	return discordgo.UpdateStatusData{
		Status: string(discordgo.StatusOnline),
		Activities: []*discordgo.Activity{{
			Name: fmt.Sprintf("/help | %d servers", guilds),
			Type: discordgo.ActivityTypeWatching,
		}},
	}
}

func offlinePresence() discordgo.UpdateStatusData {
	return discordgo.UpdateStatusData{Status: string(discordgo.StatusInvisible)}
}

func formatStartupMessage(botName, version string) string {
	if version == "" {
		return fmt.Sprintf("🚀 Starting %s...", botName)
	}
	return fmt.Sprintf("🚀 Starting %s %s...", botName, version)
}
