// Package discord connects the bot to Discord through discordgo.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/pitabwire/frame/workerpool"

	"github.com/guildreply/guildreply/pkg/chat"
)

const (
	sendTimeout = 10 * time.Second
	// maxMessageLen is Discord's limit on message content length.
	maxMessageLen = 2000
)

// Handler consumes one inbound guild message.
type Handler func(ctx context.Context, msg chat.Message) bool

// Adapter receives guild messages from Discord and sends replies back.
type Adapter struct {
	session *discordgo.Session
	pool    workerpool.WorkerPool

	ctx     context.Context
	handler Handler
	running atomic.Bool
}

var _ chat.Sender = (*Adapter)(nil)

// New creates an adapter for the given bot token. Inbound messages are
// dispatched on pool when it is non-nil.
func New(token string, pool workerpool.WorkerPool) (*Adapter, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	return &Adapter{
		session: session,
		pool:    pool,
		ctx:     context.Background(),
	}, nil
}

// Start registers handler and opens the gateway connection.
func (a *Adapter) Start(ctx context.Context, handler Handler) error {
	a.ctx = ctx
	a.handler = handler
	a.session.AddHandler(a.handleMessage)

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	a.running.Store(true)

	if u := a.session.State.User; u != nil {
		slog.InfoContext(ctx, "discord bot connected",
			slog.String("username", u.Username),
			slog.String("user_id", u.ID))
	}
	return nil
}

// Stop closes the gateway connection.
func (a *Adapter) Stop() error {
	if !a.running.Swap(false) {
		return nil
	}
	if err := a.session.Close(); err != nil {
		return fmt.Errorf("failed to close discord session: %w", err)
	}
	return nil
}

// Send posts text to channelID, split into several messages when it exceeds
// Discord's length limit.
func (a *Adapter) Send(ctx context.Context, channelID uint64, text string) error {
	if !a.running.Load() {
		return errors.New("discord bot not running")
	}

	channel := strconv.FormatUint(channelID, 10)
	for _, part := range splitMessage(text, maxMessageLen) {
		if err := a.sendOne(ctx, channel, part); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) sendOne(ctx context.Context, channel, text string) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := a.session.ChannelMessageSend(channel, text)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send discord message: %w", err)
		}
		return nil
	case <-sendCtx.Done():
		return fmt.Errorf("send message timeout: %w", sendCtx.Err())
	}
}

func (a *Adapter) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return
	}
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	msg, ok := toMessage(m.Message)
	if !ok {
		return
	}

	dispatch := func() { a.handler(a.ctx, msg) }
	if a.pool != nil {
		if err := a.pool.Submit(a.ctx, dispatch); err == nil {
			return
		}
	}
	dispatch()
}

// toMessage converts a guild message. Direct messages and messages with
// malformed snowflakes are rejected.
func toMessage(m *discordgo.Message) (chat.Message, bool) {
	if m == nil || m.Author == nil || m.GuildID == "" {
		return chat.Message{}, false
	}
	guildID, err := strconv.ParseUint(m.GuildID, 10, 64)
	if err != nil {
		return chat.Message{}, false
	}
	channelID, err := strconv.ParseUint(m.ChannelID, 10, 64)
	if err != nil {
		return chat.Message{}, false
	}
	authorID, err := strconv.ParseUint(m.Author.ID, 10, 64)
	if err != nil {
		return chat.Message{}, false
	}
	return chat.Message{
		ID:        m.ID,
		GuildID:   guildID,
		ChannelID: channelID,
		AuthorID:  authorID,
		Content:   m.Content,
	}, true
}

// Mention prefixes text with a mention of userID.
func Mention(userID uint64, text string) string {
	return "<@" + strconv.FormatUint(userID, 10) + "> " + text
}

// splitMessage cuts text into parts of at most limit bytes, preferring line
// boundaries and never splitting a UTF-8 sequence.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var parts []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], '\n')
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
		}
		parts = append(parts, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
