package storage

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/guildreply/guildreply/pkg/reply"
)

// Format selects the on-disk encoding of backup files.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FileStore keeps one backup file per guild, named <guildID>.<format>.
type FileStore struct {
	dir    string
	format Format

	mu      sync.Mutex
	written map[uint64][sha256.Size]byte
}

// NewFileStore creates a file store rooted at dir.
func NewFileStore(dir string, format Format) (*FileStore, error) {
	switch format {
	case FormatJSON, FormatYAML:
	case "":
		format = FormatJSON
	default:
		return nil, fmt.Errorf("unsupported backup format %q", format)
	}
	return &FileStore{
		dir:     dir,
		format:  format,
		written: make(map[uint64][sha256.Size]byte),
	}, nil
}

// Dir returns the directory holding the backup files.
func (f *FileStore) Dir() string { return f.dir }

// Path returns the backup file path of a guild.
func (f *FileStore) Path(guildID uint64) string {
	return filepath.Join(f.dir, strconv.FormatUint(guildID, 10)+"."+string(f.format))
}

// GuildFromPath parses the guild id out of a backup file path.
func (f *FileStore) GuildFromPath(path string) (uint64, bool) {
	base := filepath.Base(path)
	name, ok := strings.CutSuffix(base, "."+string(f.format))
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(name, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (f *FileStore) encode(recs []reply.Record) ([]byte, error) {
	if recs == nil {
		recs = []reply.Record{}
	}
	if f.format == FormatYAML {
		return yaml.Marshal(recs)
	}
	return json.MarshalIndent(recs, "", "  ")
}

func (f *FileStore) decode(raw []byte) ([]reply.Record, error) {
	var recs []reply.Record
	var err error
	if f.format == FormatYAML {
		err = yaml.Unmarshal(raw, &recs)
	} else {
		err = json.Unmarshal(raw, &recs)
	}
	return recs, err
}

// Save replaces the guild's backup file atomically.
func (f *FileStore) Save(_ context.Context, guildID uint64, recs []reply.Record) error {
	raw, err := f.encode(recs)
	if err != nil {
		return fmt.Errorf("encode guild %d: %w", guildID, err)
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir %q: %w", f.dir, err)
	}

	path := f.Path(guildID)
	tmp, err := os.CreateTemp(f.dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write %q: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %q: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %q: %w", tmp.Name(), err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %q: %w", path, err)
	}
	f.written[guildID] = sha256.Sum256(raw)
	return nil
}

// Load reads the guild's backup. It returns ErrNoBackup when the file does
// not exist or holds null.
func (f *FileStore) Load(_ context.Context, guildID uint64) ([]reply.Record, error) {
	path := f.Path(guildID)
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoBackup
	}
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}

	recs, err := f.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", path, err)
	}
	if recs == nil {
		return nil, ErrNoBackup
	}
	return recs, nil
}

// Guilds lists the guilds that have a backup file. A missing directory
// yields no guilds.
func (f *FileStore) Guilds(_ context.Context) ([]uint64, error) {
	entries, err := os.ReadDir(f.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup dir %q: %w", f.dir, err)
	}

	var ids []uint64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if id, ok := f.GuildFromPath(entry.Name()); ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// ChangedExternally reports whether the guild's file on disk differs from
// what this store last wrote.
func (f *FileStore) ChangedExternally(guildID uint64) (bool, error) {
	raw, err := os.ReadFile(f.Path(guildID))
	if err != nil {
		return false, err
	}
	sum := sha256.Sum256(raw)

	f.mu.Lock()
	defer f.mu.Unlock()
	last, ok := f.written[guildID]
	return !ok || last != sum, nil
}
