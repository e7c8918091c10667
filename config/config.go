package config

import (
	"fmt"
	"time"

	"github.com/pitabwire/frame/config"
)

// Reply store backends.
const (
	StoreFile     = "file"
	StoreDatabase = "database"
)

// BotConfig holds configuration for the guild reply bot.
type BotConfig struct {
	config.ConfigurationDefault

	DiscordToken  string `envDefault:""      env:"DISCORD_TOKEN"`
	CommandPrefix string `envDefault:"!bot"  env:"COMMAND_PREFIX"`
	ReplyKeyword  string `envDefault:"reply" env:"REPLY_KEYWORD"`

	// Persistence
	ReplyStore      string `envDefault:"file"        env:"REPLY_STORE"`
	ReplyDataDir    string `envDefault:"./ReplyData" env:"REPLY_DATA_DIR"`
	ReplyDataFormat string `envDefault:"json"        env:"REPLY_DATA_FORMAT"`
	WatchReplyData  bool   `envDefault:"false"       env:"WATCH_REPLY_DATA"`

	// Dialogues
	DialogueIdleTimeoutSec  int    `envDefault:"900"    env:"DIALOGUE_IDLE_TIMEOUT_SEC"`
	DialogueReapIntervalSec int    `envDefault:"60"     env:"DIALOGUE_REAP_INTERVAL_SEC"`
	DialogueCancelWord      string `envDefault:"cancel" env:"DIALOGUE_CANCEL_WORD"`
	MentionDialogueUser     bool   `envDefault:"true"   env:"MENTION_DIALOGUE_USER"`
}

// Validate checks settings that have no safe fallback.
func (c *BotConfig) Validate() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	switch c.ReplyStore {
	case StoreFile, StoreDatabase:
	default:
		return fmt.Errorf("REPLY_STORE must be %q or %q, got %q", StoreFile, StoreDatabase, c.ReplyStore)
	}
	if c.DialogueIdleTimeoutSec < 0 {
		return fmt.Errorf("DIALOGUE_IDLE_TIMEOUT_SEC must not be negative")
	}
	return nil
}

// UseDatabase reports whether rules are persisted through the datastore.
func (c *BotConfig) UseDatabase() bool {
	return c.ReplyStore == StoreDatabase
}

// DialogueIdleTimeout returns the idle timeout; zero disables expiry.
func (c *BotConfig) DialogueIdleTimeout() time.Duration {
	return time.Duration(c.DialogueIdleTimeoutSec) * time.Second
}

// DialogueReapInterval returns how often idle dialogues are swept.
func (c *BotConfig) DialogueReapInterval() time.Duration {
	return time.Duration(c.DialogueReapIntervalSec) * time.Second
}
