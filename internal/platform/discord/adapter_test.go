package discord

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

func TestToMessage(t *testing.T) {
	tests := []struct {
		name string
		in   *discordgo.Message
		ok   bool
	}{
		{
			name: "guild message",
			in: &discordgo.Message{
				ID: "1", GuildID: "10", ChannelID: "20", Content: "hello",
				Author: &discordgo.User{ID: "30"},
			},
			ok: true,
		},
		{
			name: "direct message",
			in:   &discordgo.Message{ID: "1", ChannelID: "20", Author: &discordgo.User{ID: "30"}},
		},
		{
			name: "no author",
			in:   &discordgo.Message{ID: "1", GuildID: "10", ChannelID: "20"},
		},
		{
			name: "bad snowflake",
			in:   &discordgo.Message{ID: "1", GuildID: "x", ChannelID: "20", Author: &discordgo.User{ID: "30"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := toMessage(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if msg.GuildID != 10 || msg.ChannelID != 20 || msg.AuthorID != 30 || msg.Content != "hello" || msg.ID != "1" {
				t.Errorf("msg = %+v", msg)
			}
		})
	}
}

func TestMention(t *testing.T) {
	if got := Mention(42, "hi"); got != "<@42> hi" {
		t.Errorf("Mention = %q", got)
	}
}

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("short", 10); len(got) != 1 || got[0] != "short" {
		t.Errorf("short text split into %q", got)
	}

	lines := strings.Repeat("0123456789\n", 4) + "0123456789"
	parts := splitMessage(lines, 25)
	for _, p := range parts {
		if len(p) > 25 {
			t.Errorf("part too long: %d", len(p))
		}
	}
	if strings.Join(parts, "\n") != lines {
		t.Errorf("parts do not reassemble: %q", parts)
	}

	runes := strings.Repeat("é", 30)
	for _, p := range splitMessage(runes, 7) {
		if !utf8.ValidString(p) {
			t.Errorf("split inside a rune: %q", p)
		}
		if len(p) > 7 {
			t.Errorf("part too long: %d", len(p))
		}
	}
}
