package config

import (
	"testing"
	"time"
)

func validConfig() BotConfig {
	return BotConfig{
		DiscordToken:            "token",
		ReplyStore:              StoreFile,
		DialogueIdleTimeoutSec:  900,
		DialogueReapIntervalSec: 60,
	}
}

func TestBotConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *BotConfig)
		wantErr bool
	}{
		{"valid", func(*BotConfig) {}, false},
		{"database store", func(c *BotConfig) { c.ReplyStore = StoreDatabase }, false},
		{"missing token", func(c *BotConfig) { c.DiscordToken = "" }, true},
		{"unknown store", func(c *BotConfig) { c.ReplyStore = "s3" }, true},
		{"negative timeout", func(c *BotConfig) { c.DialogueIdleTimeoutSec = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.modify(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBotConfigDurations(t *testing.T) {
	c := validConfig()
	if c.DialogueIdleTimeout() != 15*time.Minute {
		t.Errorf("idle timeout = %v", c.DialogueIdleTimeout())
	}
	if c.DialogueReapInterval() != time.Minute {
		t.Errorf("reap interval = %v", c.DialogueReapInterval())
	}
	if c.UseDatabase() {
		t.Error("file store must not use the database")
	}
}
