// Package config loads the bot configuration from the environment, reading a
// .env file first when one is present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// CommandScope selects where slash commands are registered on start.
type CommandScope string

const (
	ScopeGlobal CommandScope = "global"
	ScopeGuild  CommandScope = "guild"
	ScopeNone   CommandScope = "none"
)

// UnmarshalText accepts global, guild or none in any case.
func (s *CommandScope) UnmarshalText(text []byte) error {
	v := CommandScope(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case ScopeGlobal, ScopeGuild, ScopeNone:
		*s = v
		return nil
	}
	return fmt.Errorf("invalid command scope %q (want global, guild or none)", text)
}

type Config struct {
	DiscordToken   string   `env:"DISCORD_TOKEN,required,notEmpty"`
	AppID          string   `env:"DISCORD_APP_ID"`
	GuildBlacklist []string `env:"DISCORD_GUILD_BLACKLIST" envSeparator:","`

	CommandScope      CommandScope `env:"COMMAND_SCOPE" envDefault:"guild"`
	UnregisterOnStart bool         `env:"UNREGISTER_ON_START"`
	DeferReplies      bool         `env:"DEFER_REPLIES"`

	BulkConcurrency int     `env:"BULK_CONCURRENCY" envDefault:"8"`
	BulkRate        float64 `env:"BULK_RATE" envDefault:"5"`

	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile      string `env:"LOG_FILE"`
	OTELEndpoint string `env:"OTEL_ENDPOINT"`
}

// Load reads the given .env files (".env" when none are named), then parses
// the environment. Missing .env files are not an error; variables already
// set in the environment win over file values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.BulkConcurrency < 1 {
		return fmt.Errorf("BULK_CONCURRENCY must be at least 1, got %d", c.BulkConcurrency)
	}
	if c.BulkRate <= 0 {
		return fmt.Errorf("BULK_RATE must be positive, got %v", c.BulkRate)
	}
	return nil
}

// IsGuildBlacklisted reports whether commands must never be written to guildID.
func (c *Config) IsGuildBlacklisted(guildID string) bool {
	return slices.Contains(c.GuildBlacklist, guildID)
}
