// Package storage persists guild reply rules to files or a database.
package storage

import (
	"context"
	"errors"

	"github.com/guildreply/guildreply/pkg/reply"
)

// ErrNoBackup is returned by Load when nothing was ever saved for a guild.
var ErrNoBackup = errors.New("no backup for guild")

// Backend saves and loads one guild's rule records.
type Backend interface {
	Save(ctx context.Context, guildID uint64, recs []reply.Record) error
	Load(ctx context.Context, guildID uint64) ([]reply.Record, error)
	// Guilds lists every guild with a saved backup.
	Guilds(ctx context.Context) ([]uint64, error)
}

var (
	_ Backend = (*FileStore)(nil)
	_ Backend = (*Repository)(nil)
)
