package storage

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	"gorm.io/gorm"

	"github.com/guildreply/guildreply/pkg/reply"
)

// DBProvider hands out gorm sessions. frame's datastore pool satisfies it.
type DBProvider interface {
	DB(ctx context.Context, readOnly bool) *gorm.DB
}

// Repository persists reply rules in the reply_rules table.
type Repository struct {
	pool DBProvider
}

// NewRepository creates a new reply rule repository.
func NewRepository(pool DBProvider) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) db(ctx context.Context, readOnly bool) *gorm.DB {
	return r.pool.DB(ctx, readOnly)
}

// Migrate creates or updates the reply_rules table.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db(ctx, false).AutoMigrate(&RuleRow{})
}

// Save replaces every row of the guild in a single transaction.
func (r *Repository) Save(ctx context.Context, guildID uint64, recs []reply.Record) error {
	rows := make([]RuleRow, 0, len(recs))
	for i, rec := range recs {
		rows = append(rows, RuleRow{
			ID:             xid.New().String(),
			GuildID:        guildID,
			Position:       i,
			RuleID:         rec.ID,
			Trigger:        rec.Trigger,
			Reply:          rec.Reply,
			MatchCondition: rec.MatchCondition,
			UserIDs:        IDList(rec.UserIDs),
			ChannelIDs:     IDList(rec.ChannelIDs),
		})
	}

	return r.db(ctx, false).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("guild_id = ?", guildID).Delete(&RuleRow{}).Error; err != nil {
			return fmt.Errorf("clear guild %d: %w", guildID, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert guild %d: %w", guildID, err)
		}
		return nil
	})
}

// Load returns the guild's rules in evaluation order. A guild without rows
// yields ErrNoBackup.
func (r *Repository) Load(ctx context.Context, guildID uint64) ([]reply.Record, error) {
	var rows []RuleRow
	err := r.db(ctx, true).
		Where("guild_id = ?", guildID).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load guild %d: %w", guildID, err)
	}
	if len(rows) == 0 {
		return nil, ErrNoBackup
	}

	recs := make([]reply.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, reply.Record{
			ID:             row.RuleID,
			Trigger:        row.Trigger,
			Reply:          row.Reply,
			MatchCondition: row.MatchCondition,
			UserIDs:        []uint64(row.UserIDs),
			ChannelIDs:     []uint64(row.ChannelIDs),
		})
	}
	return recs, nil
}

// Guilds returns every guild with at least one stored rule.
func (r *Repository) Guilds(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	err := r.db(ctx, true).
		Model(&RuleRow{}).
		Distinct("guild_id").
		Order("guild_id ASC").
		Pluck("guild_id", &ids).Error
	return ids, err
}
