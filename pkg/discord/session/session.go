package session

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/arctur/pkg/log"
)

// Error messages
const (
	ErrSessionCreationFailed   = "failed to create Discord session: %w"
	ErrSessionConnectionFailed = "failed to connect to Discord: %w"
)

// Intents the bot identifies with. Members is privileged and must be enabled
// in the developer portal; moderation looks targets up through the member cache.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages

var (
	newSession   = func(token string) (*discordgo.Session, error) { return discordgo.New("Bot " + token) }
	openSession  = func(s *discordgo.Session) error { return s.Open() }
	closeSession = func(s *discordgo.Session) error { return s.Close() }
)

// New creates a REST-capable session without opening the gateway.
func New(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, errors.New("discord bot token is empty")
	}
	s, err := newSession(token)
	if err != nil {
		return nil, fmt.Errorf(ErrSessionCreationFailed, err)
	}
	if s == nil {
		return nil, fmt.Errorf(ErrSessionCreationFailed, errors.New("nil session"))
	}
	s.Identify.Intents = Intents
	s.StateEnabled = true
	return s, nil
}

// NewDiscordSession creates a session and connects to the gateway.
func NewDiscordSession(token string) (*discordgo.Session, error) {
	s, err := New(token)
	if err != nil {
		log.DiscordLogger().WithError(err).Error("Failed to create Discord session")
		return nil, err
	}
	if err := Open(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Open connects s to the gateway. Handlers must be added before calling it.
func Open(s *discordgo.Session) error {
	log.DiscordLogger().Info("🔗 Connecting to Discord...")
	if err := openSession(s); err != nil {
		_ = closeSession(s)
		log.DiscordLogger().WithError(err).Error("Failed to connect to Discord")
		return fmt.Errorf(ErrSessionConnectionFailed, err)
	}
	log.DiscordLogger().Info("✅ Connected to Discord")
	return nil
}

// Close closes the gateway connection.
func Close(s *discordgo.Session) error {
	if s == nil {
		return nil
	}
	return closeSession(s)
}
