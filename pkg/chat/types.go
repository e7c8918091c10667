// Package chat holds the platform-neutral message shape shared by the reply
// engine, the dialogue engine and the platform adapters.
package chat

import "context"

// Message is one inbound chat message, normalized from the platform event.
type Message struct {
	ID        string `json:"id"`
	GuildID   uint64 `json:"guild_id"`
	ChannelID uint64 `json:"channel_id"`
	AuthorID  uint64 `json:"author_id"`
	Content   string `json:"content"`
}

// Sender delivers text to a channel.
type Sender interface {
	Send(ctx context.Context, channelID uint64, text string) error
}

// SenderFunc allows a plain function to act as a Sender.
type SenderFunc func(ctx context.Context, channelID uint64, text string) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, channelID uint64, text string) error {
	if f == nil {
		return nil
	}
	return f(ctx, channelID, text)
}
