// Package config loads the bot configuration from the process environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration of the bot.
type Config struct {
	Token    string `env:"DISCORD_TOKEN,required,notEmpty"`
	ClientID string `env:"CLIENT_ID,required,notEmpty"`
	// GuildID scopes command registration to one guild when set.
	GuildID string `env:"GUILD_ID"`

	DatabasePath string `env:"DATABASE_PATH" envDefault:"database/arctur.db"`

	LogDir    string `env:"LOG_DIR" envDefault:"logs"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	Theme string `env:"BOT_THEME"`

	CommandCooldown    time.Duration `env:"COMMAND_COOLDOWN" envDefault:"3s"`
	EmbedFormTimeout   time.Duration `env:"EMBED_FORM_TIMEOUT" envDefault:"5m"`
	EmbedSelectTimeout time.Duration `env:"EMBED_SELECT_TIMEOUT" envDefault:"60s"`

	BotName string `env:"BOT_NAME" envDefault:"Arctur"`
	Creator Creator
}

// Creator feeds the /creator card.
type Creator struct {
	Name     string `env:"CREATOR_NAME" envDefault:"Arctur maintainers"`
	About    string `env:"CREATOR_ABOUT"`
	Website  string `env:"CREATOR_WEBSITE"`
	Github   string `env:"CREATOR_GITHUB"`
	Location string `env:"CREATOR_LOCATION"`
}

// Scoped reports whether commands should be registered to a single guild.
func (c *Config) Scoped() bool { return c.GuildID != "" }

// Load reads optional dotenv files and parses the environment.
// Variables already present in the environment are never overridden by files.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}
	loadLocalBinFallback()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}

// Parse builds a Config from an explicit variable set without touching the process environment.
func Parse(vars map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}

// loadLocalBinFallback fills missing variables from $HOME/.local/bin/.env when present.
func loadLocalBinFallback() {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return
	}
	envPath := filepath.Join(home, ".local", "bin", ".env")
	if info, statErr := os.Stat(envPath); statErr == nil && !info.IsDir() {
		_ = godotenv.Load(envPath)
	}
}
